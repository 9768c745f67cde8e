package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/pkg/config"
)

// Message kinds carried in the "kind" header
const (
	KindRecord = "aggregate_record"
	KindSeries = "index_series"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes JSON messages keyed by region
type KafkaPublisher struct {
	w     messageWriter
	topic string
}

// NewKafkaPublisher creates a synchronous, hash-balanced writer
func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{}, // 같은 지역은 같은 파티션
			BatchTimeout: 10 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		topic: cfg.Topic,
	}
}

// Name implements Sink
func (p *KafkaPublisher) Name() string { return "kafka:" + p.topic }

// PublishRecord implements Sink
func (p *KafkaPublisher) PublishRecord(ctx context.Context, rec contracts.AggregateRecord) error {
	return p.write(ctx, KindRecord, rec.Region.Key, rec)
}

// PublishSeries implements Sink
func (p *KafkaPublisher) PublishSeries(ctx context.Context, region string, s contracts.IndexTimeSeries) error {
	payload := struct {
		Region string `json:"region"`
		contracts.IndexTimeSeries
	}{region, s}
	return p.write(ctx, KindSeries, region, payload)
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

func (p *KafkaPublisher) write(ctx context.Context, kind, key string, v interface{}) error {
	value, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}

	msg := kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: []kafka.Header{{Key: "kind", Value: []byte(kind)}},
		Time:    time.Now().UTC(),
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}
	return nil
}
