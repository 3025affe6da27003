package queue

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

const Topic = "sync-jobs"

// Job types the worker understands.
const (
	JobCatalog   = "catalog"
	JobCustomers = "customers"
)

type Job struct {
	Type        string    `json:"type"`
	RequestedAt time.Time `json:"requested_at"`
}

// Producer publishes sync jobs for the worker process.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers string) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(strings.Split(brokers, ",")...),
		Topic:    Topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{writer: writer}
}

func (p *Producer) Enqueue(ctx context.Context, jobType string) error {
	job := Job{Type: jobType, RequestedAt: time.Now().UTC()}
	value, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(jobType),
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
