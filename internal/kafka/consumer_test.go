package kafka

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toy-rental-pricing/internal/catalog"
	"toy-rental-pricing/internal/logger"
	"toy-rental-pricing/internal/model"
	"toy-rental-pricing/internal/service"
	"toy-rental-pricing/internal/store"
)

type fakeReader struct {
	msgs   []kafka.Message
	errs   []error
	closed bool
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return kafka.Message{}, err
	}
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

type fakeWriter struct {
	written []kafka.Message
	closed  bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func newTestQuoter(t *testing.T) *service.Quoter {
	t.Helper()
	logger.InitializeTo(io.Discard, "error", "text")
	c, err := catalog.New([]model.Item{
		{
			ID:      "toy-002",
			Name:    "Maison de poupée",
			Pricing: model.RentalTiers{DailyPrice: 100, WeeklyPrice: 500, MonthlyPrice: 1500},
		},
		{
			ID:      "toy-003",
			Name:    "Puzzle cassé",
			Pricing: model.RentalTiers{DailyPrice: 20},
			Promotion: &model.Promotion{
				IsActive: true, Kind: model.PromotionFixed, Value: "dix",
			},
		},
	})
	require.NoError(t, err)
	return service.NewQuoter(service.NewPricingAdmin(c, store.NewMemory()), false, nil)
}

func TestJSONConsumer(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Key: []byte("k1"), Value: []byte(`{"requestId":"r-1","itemId":"maison-de-poupee","tier":"weekly","quantity":3,"customerType":"premium"}`)},
		{Key: []byte("k2"), Value: []byte(`{"requestId":"r-2","itemId":"missing"}`)},
		{Key: []byte("k3"), Value: []byte(`{oops`)},
	}}
	writer := &fakeWriter{}

	err := NewJSONConsumer(reader, writer, newTestQuoter(t)).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, reader.closed)
	assert.True(t, writer.closed)
	require.Len(t, writer.written, 3)

	var ok model.CalcResponse
	require.NoError(t, json.Unmarshal(writer.written[0].Value, &ok))
	assert.Equal(t, "toy-002", string(writer.written[0].Key))
	assert.Equal(t, "r-1", ok.RequestID)
	assert.Empty(t, ok.Error)
	assert.InDelta(t, 1147.5, ok.Result.FinalPrice, 1e-9)
	assert.Equal(t, "1.148 MAD", ok.Formatted.FinalPrice)

	var missing model.CalcResponse
	require.NoError(t, json.Unmarshal(writer.written[1].Value, &missing))
	assert.Equal(t, "missing", string(writer.written[1].Key))
	assert.Equal(t, "r-2", missing.RequestID)
	assert.Contains(t, missing.Error, "not found")

	var malformed model.CalcResponse
	require.NoError(t, json.Unmarshal(writer.written[2].Value, &malformed))
	assert.Equal(t, "k3", string(writer.written[2].Key))
	assert.Contains(t, malformed.Error, "malformed request")
}

func TestJSONConsumer_NonFiniteResult(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Value: []byte(`{"requestId":"r-3","itemId":"toy-003","tier":"daily"}`)},
	}}
	writer := &fakeWriter{}

	require.NoError(t, NewJSONConsumer(reader, writer, newTestQuoter(t)).Run(context.Background()))
	require.Len(t, writer.written, 1)

	var resp model.CalcResponse
	require.NoError(t, json.Unmarshal(writer.written[0].Value, &resp))
	assert.Equal(t, "toy-003", resp.ItemID)
	assert.Equal(t, "pricing result is not a finite number", resp.Error)
}

func TestXMLConsumer(t *testing.T) {
	reader := &fakeReader{msgs: []kafka.Message{
		{Value: []byte(`<CalcRequest><RequestID>x-1</RequestID><ItemID>toy-002</ItemID><Tier>monthly</Tier><Quantity>1</Quantity></CalcRequest>`)},
		{Value: []byte(`<CalcRequest><ItemID>toy-003</ItemID><Tier>daily</Tier></CalcRequest>`)},
	}}
	writer := &fakeWriter{}

	require.NoError(t, NewXMLConsumer(reader, writer, newTestQuoter(t)).Run(context.Background()))
	require.Len(t, writer.written, 2)

	var resp model.CalcResponse
	require.NoError(t, xml.Unmarshal(writer.written[0].Value, &resp))
	assert.Equal(t, "x-1", resp.RequestID)
	assert.Equal(t, "Maison de poupée", resp.ItemName)
	assert.Equal(t, model.TierMonthly, resp.Result.Tier)
	assert.InDelta(t, 1500.0, resp.Result.FinalPrice, 1e-9)
	assert.Equal(t, "1.500 MAD", resp.Formatted.FinalPrice)

	// XML переносит NaN без ошибки
	assert.Contains(t, string(writer.written[1].Value), "<FinalPrice>NaN</FinalPrice>")
}

func TestConsumer_ReadErrorsAreSkipped(t *testing.T) {
	reader := &fakeReader{
		errs: []error{errors.New("broker unavailable")},
		msgs: []kafka.Message{{Value: []byte(`{"itemId":"toy-002"}`)}},
	}
	writer := &fakeWriter{}

	c := NewJSONConsumer(reader, writer, newTestQuoter(t))
	c.backoff = time.Millisecond
	require.NoError(t, c.Run(context.Background()))
	assert.Len(t, writer.written, 1)
}

type brokenReader struct {
	reads atomic.Int32
}

func (r *brokenReader) ReadMessage(context.Context) (kafka.Message, error) {
	r.reads.Add(1)
	return kafka.Message{}, errors.New("broker unavailable")
}

func (r *brokenReader) Close() error { return nil }

func TestConsumer_BacksOffOnPersistentReadErrors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	reader := &brokenReader{}
	c := NewJSONConsumer(reader, &fakeWriter{}, newTestQuoter(t))
	c.backoff = 25 * time.Millisecond

	require.NoError(t, c.Run(ctx))
	assert.LessOrEqual(t, reader.reads.Load(), int32(6))
}

func TestConsumer_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := &fakeReader{errs: []error{context.Canceled}}
	writer := &fakeWriter{}

	require.NoError(t, NewJSONConsumer(reader, writer, newTestQuoter(t)).Run(ctx))
	assert.Empty(t, writer.written)
	assert.True(t, reader.closed)
}
