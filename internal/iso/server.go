package iso

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/moov-io/iso8583"
	"github.com/moov-io/iso8583/encoding"
	"github.com/moov-io/iso8583/field"
	"github.com/moov-io/iso8583/prefix"

	"toy-rental-pricing/internal/logger"
	"toy-rental-pricing/internal/model"
	"toy-rental-pricing/internal/service"
)

const (
	MTIRequest  = "0100"
	MTIResponse = "0110"

	CodeApproved     = "00"
	CodeItemNotFound = "25"
	CodeFormatError  = "30"
	CodeInvalid      = "12"

	FieldFinalPrice   = 4
	FieldResponseCode = 39
	FieldItem         = 48
	FieldCustomerType = 60
	FieldTier         = 61
	FieldQuantity     = 62

	maxCentimes = 999_999_999_999
	maxFrame    = math.MaxUint16
	maxLLL      = 999
)

// Spec - поля сообщений терминала.
// Текстовые поля передаются как UTF-8 (в названиях правил есть диакритика).
var Spec = &iso8583.MessageSpec{
	Name: "Toy rental pricing terminal",
	Fields: map[int]field.Field{
		0: field.NewString(&field.Spec{
			Length:      4,
			Description: "Message Type Indicator",
			Enc:         encoding.ASCII,
			Pref:        prefix.ASCII.Fixed,
		}),
		1: field.NewBitmap(&field.Spec{
			Length:      8,
			Description: "Bitmap",
			Enc:         encoding.BytesToASCIIHex,
			Pref:        prefix.Hex.Fixed,
		}),
		FieldFinalPrice: field.NewString(&field.Spec{
			Length:      12,
			Description: "Final price (centimes)",
			Enc:         encoding.ASCII,
			Pref:        prefix.ASCII.Fixed,
		}),
		FieldResponseCode: field.NewString(&field.Spec{
			Length:      2,
			Description: "Response code",
			Enc:         encoding.ASCII,
			Pref:        prefix.ASCII.Fixed,
		}),
		FieldItem: field.NewString(&field.Spec{
			Length:      999,
			Description: "Item ID or slug / applied rules",
			Enc:         encoding.Binary,
			Pref:        prefix.ASCII.LLL,
		}),
		FieldCustomerType: field.NewString(&field.Spec{
			Length:      999,
			Description: "Customer type",
			Enc:         encoding.Binary,
			Pref:        prefix.ASCII.LLL,
		}),
		FieldTier: field.NewString(&field.Spec{
			Length:      999,
			Description: "Rental tier",
			Enc:         encoding.Binary,
			Pref:        prefix.ASCII.LLL,
		}),
		FieldQuantity: field.NewString(&field.Spec{
			Length:      999,
			Description: "Quantity",
			Enc:         encoding.ASCII,
			Pref:        prefix.ASCII.LLL,
		}),
	},
}

// Quoter - расчет цены по запросу
type Quoter interface {
	Quote(ctx context.Context, req model.CalcRequest) (model.CalcResponse, error)
}

// Server - TCP-сервер для магазинных терминалов (ISO 8583)
type Server struct {
	quoter  Quoter
	log     *slog.Logger
	backoff time.Duration // пауза после ошибки Accept
}

func NewServer(q Quoter) *Server {
	return &Server{quoter: q, log: logger.WithComponent("iso8583"), backoff: time.Second}
}

// ListenAndServe слушает addr до отмены контекста
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("ошибка запуска ISO8583 сервера: %w", err)
	}
	s.log.Info("ISO8583 сервер слушает порт", "addr", ln.Addr().String())
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Error("Ошибка соединения", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.backoff):
			}
			continue
		}
		go s.HandleConn(ctx, conn)
	}
}

// HandleConn отвечает на запросы одного терминала, пока он не закроет соединение
func (s *Server) HandleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	for {
		frame, err := ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.log.Warn("Ошибка чтения", "error", err)
			}
			return
		}

		packed, err := s.Respond(ctx, frame).Pack()
		if err != nil {
			s.log.Error("Ошибка упаковки ответа", "error", err)
			return
		}
		if err := WriteFrame(conn, packed); err != nil {
			s.log.Warn("Ошибка отправки ответа", "error", err)
			return
		}
	}
}

// Respond - ответ 0110 на упакованный запрос 0100
func (s *Server) Respond(ctx context.Context, raw []byte) *iso8583.Message {
	msg := iso8583.NewMessage(Spec)
	if err := msg.Unpack(raw); err != nil {
		s.log.Warn("Ошибка распаковки ISO8583", "error", err)
		return response(CodeFormatError, 0, nil)
	}
	if mti, _ := msg.GetMTI(); mti != MTIRequest {
		s.log.Warn("Неожиданный MTI", "mti", mti)
		return response(CodeFormatError, 0, nil)
	}

	req := model.CalcRequest{
		ItemID:       fieldValue(msg, FieldItem),
		Tier:         model.Tier(fieldValue(msg, FieldTier)),
		CustomerType: model.CustomerType(fieldValue(msg, FieldCustomerType)),
	}
	if q := fieldValue(msg, FieldQuantity); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			return response(CodeFormatError, 0, nil)
		}
		req.Quantity = n
	}
	if req.ItemID == "" {
		return response(CodeFormatError, 0, nil)
	}

	s.log.Debug("Запрос ISO", "item", req.ItemID, "tier", req.Tier, "quantity", req.Quantity, "customer_type", req.CustomerType)

	resp, err := s.quoter.Quote(ctx, req)
	switch {
	case errors.Is(err, service.ErrItemNotFound):
		return response(CodeItemNotFound, 0, nil)
	case err != nil:
		s.log.Warn("Запрос отклонен", "item", req.ItemID, "error", err)
		return response(CodeInvalid, 0, nil)
	}

	final := resp.Result.FinalPrice
	if math.IsNaN(final) || math.IsInf(final, 0) || math.Round(final*100) > maxCentimes {
		return response(CodeInvalid, 0, resp.Result.AppliedRules)
	}
	return response(CodeApproved, int64(math.Round(final*100)), resp.Result.AppliedRules)
}

func response(code string, centimes int64, rules []string) *iso8583.Message {
	msg := iso8583.NewMessage(Spec)
	msg.MTI(MTIResponse)
	// значения ниже всегда укладываются в длины полей
	_ = msg.Field(FieldFinalPrice, fmt.Sprintf("%012d", centimes))
	_ = msg.Field(FieldResponseCode, code)
	if len(rules) > 0 {
		_ = msg.Field(FieldItem, truncate(strings.Join(rules, ";"), maxLLL))
	}
	return msg
}

// truncate обрезает строку до max байт, не разрывая символ UTF-8
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	s = s[:max]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

func fieldValue(msg *iso8583.Message, id int) string {
	f, ok := msg.GetFields()[id]
	if !ok {
		return ""
	}
	v, err := f.String()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

// ReadFrame - сообщение с 2-байтовым заголовком длины (big-endian)
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	frame := make([]byte, binary.BigEndian.Uint16(header[:]))
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, err
	}
	return frame, nil
}

// WriteFrame - запись сообщения с заголовком длины
func WriteFrame(w io.Writer, msg []byte) error {
	if len(msg) > maxFrame {
		return fmt.Errorf("сообщение слишком длинное: %d байт", len(msg))
	}
	buf := make([]byte, 2+len(msg))
	binary.BigEndian.PutUint16(buf, uint16(len(msg)))
	copy(buf[2:], msg)
	_, err := w.Write(buf)
	return err
}
