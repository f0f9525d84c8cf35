package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/restock/internal/stock"
	"example.com/restock/internal/storefront"
)

type captureWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return c.err
}

func (c *captureWriter) Close() error {
	c.closed = true
	return nil
}

func TestRecordWritesKeyedJSON(t *testing.T) {
	w := &captureWriter{}
	p := &Producer{w: w}
	observed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := stock.Snapshot{
		Product:    "P123",
		ProductID:  42,
		Country:    "GB",
		Variants:   []storefront.Variant{{ID: "v1", MerchantID: 7, Quantity: 3}},
		ObservedAt: observed,
	}

	require.NoError(t, p.Record(context.Background(), snap))
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "P123/GB", string(msg.Key))
	assert.Equal(t, observed, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "application/json", string(msg.Headers[0].Value))

	var decoded stock.Snapshot
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, snap, decoded)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestRecordSurfacesWriteErrors(t *testing.T) {
	p := &Producer{w: &captureWriter{err: errors.New("leader not available")}}
	err := p.Record(context.Background(), stock.Snapshot{Product: "P1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestNewProducerParsesBrokers(t *testing.T) {
	p := NewProducer(" a:9092, ,b:9092 ", "stock-snapshots")
	w, ok := p.w.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "stock-snapshots", w.Topic)
	assert.NotNil(t, w.Addr)
	assert.Equal(t, 1, w.BatchSize, "one snapshot per write, no batch linger")
	assert.LessOrEqual(t, w.BatchTimeout, 10*time.Millisecond)
}
