package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	kafka "github.com/segmentio/kafka-go"

	"toy-rental-pricing/internal/logger"
	"toy-rental-pricing/internal/model"
	"toy-rental-pricing/internal/service"
)

// Reader - источник сообщений (kafka.Reader или подмена в тестах)
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Writer - получатель ответов
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Quoter - расчет цены по запросу
type Quoter interface {
	Quote(ctx context.Context, req model.CalcRequest) (model.CalcResponse, error)
}

// Consumer читает CalcRequest из топика запросов и пишет CalcResponse
// в топик ответов. Формат сообщений задается кодеком (JSON или XML).
type Consumer struct {
	format    string
	unmarshal func([]byte, any) error
	marshal   func(any) ([]byte, error)

	reader  Reader
	writer  Writer
	quoter  Quoter
	log     *slog.Logger
	backoff time.Duration // пауза после ошибки чтения
}

func newConsumer(format string, unmarshal func([]byte, any) error, marshal func(any) ([]byte, error), r Reader, w Writer, q Quoter) *Consumer {
	return &Consumer{
		format:    format,
		unmarshal: unmarshal,
		marshal:   marshal,
		reader:    r,
		writer:    w,
		quoter:    q,
		log:       logger.WithComponent("kafka-" + format),
		backoff:   time.Second,
	}
}

// NewReader - kafka.Reader группы потребителей для топика запросов
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
}

// NewWriter - kafka.Writer для топика ответов, партиция по ключу (ID товара)
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
}

// Run обрабатывает сообщения до отмены контекста или закрытия reader.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("Старт подписки на топик запросов")
	defer c.close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				c.log.Info("Подписка остановлена")
				return nil
			}
			c.log.Error("Ошибка чтения сообщения", "error", err)
			select {
			case <-ctx.Done():
				c.log.Info("Подписка остановлена")
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}

		out, ok := c.handle(ctx, msg)
		if !ok {
			continue
		}
		if err := c.writer.WriteMessages(ctx, out); err != nil {
			c.log.Error("Ошибка отправки ответа", "error", err)
		}
	}
}

// handle - ответ на одно сообщение. Ошибки расчета возвращаются в поле Error.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) (kafka.Message, bool) {
	var req model.CalcRequest
	if err := c.unmarshal(msg.Value, &req); err != nil {
		c.log.Warn("Ошибка парсинга запроса", "error", err, "offset", msg.Offset)
		return c.reply(msg.Key, model.CalcResponse{Error: "malformed request: " + err.Error()})
	}

	resp, err := c.quoter.Quote(ctx, req)
	if err != nil {
		c.log.Warn("Ошибка расчета", "item", req.ItemID, "request_id", req.RequestID, "error", err)
		resp = model.CalcResponse{RequestID: req.RequestID, ItemID: req.ItemID, Error: err.Error()}
	}

	key := msg.Key
	if resp.ItemID != "" {
		key = []byte(resp.ItemID)
	}
	return c.reply(key, resp)
}

func (c *Consumer) reply(key []byte, resp model.CalcResponse) (kafka.Message, bool) {
	value, err := c.marshal(resp)
	if err != nil {
		// JSON не кодирует NaN и бесконечность
		reason := err.Error()
		if !service.IsFinite(resp.Result) {
			reason = "pricing result is not a finite number"
		}
		c.log.Warn("Ошибка сериализации ответа", "item", resp.ItemID, "error", err)
		value, err = c.marshal(model.CalcResponse{RequestID: resp.RequestID, ItemID: resp.ItemID, ItemName: resp.ItemName, Error: reason})
		if err != nil {
			c.log.Error("Ответ не отправлен", "error", err)
			return kafka.Message{}, false
		}
	}
	return kafka.Message{Key: key, Value: value}, true
}

func (c *Consumer) close() {
	if err := c.reader.Close(); err != nil {
		c.log.Warn("Ошибка закрытия reader", "error", err)
	}
	if err := c.writer.Close(); err != nil {
		c.log.Warn("Ошибка закрытия writer", "error", err)
	}
}
