// Package kafka exports stock snapshots to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/restock/internal/stock"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes every snapshot as one JSON message keyed by product and
// country. It implements stock.Sink.
type Producer struct {
	w messageWriter
}

var _ stock.Sink = (*Producer)(nil)

func NewProducer(brokers, topic string) *Producer {
	var addrs []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(addrs...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 5 * time.Second,
			BatchSize:    1,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Producer) Close() error {
	return p.w.Close()
}

func (p *Producer) Record(ctx context.Context, snap stock.Snapshot) error {
	msg, err := message(snap)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write snapshot message: %w", err)
	}
	return nil
}

func message(snap stock.Snapshot) (kafka.Message, error) {
	b, err := json.Marshal(snap)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	return kafka.Message{
		Key:   []byte(snap.Product + "/" + string(snap.Country)),
		Value: b,
		Time:  snap.ObservedAt,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}, nil
}
