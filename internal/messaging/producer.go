package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sally-https/book-api-v2/internal/metrics"

	"github.com/nats-io/nats.go"
)

// Producer publishes events to a JetStream stream so they survive broker
// restarts until the SMS worker acknowledges them.
type Producer struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	subject string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewProducer(url, stream, subject string, logger *slog.Logger, m *metrics.Metrics) (*Producer, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("opening JetStream context: %w", err)
	}

	if _, err := js.StreamInfo(stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     stream,
			Subjects: []string{subject},
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("creating stream %s: %w", stream, err)
		}
	}

	logger.Info("NATS producer initialized", "url", url, "stream", stream, "subject", subject)

	return &Producer{
		conn:    nc,
		js:      js,
		subject: subject,
		logger:  logger,
		metrics: m,
	}, nil
}

func (p *Producer) Publish(ctx context.Context, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	start := time.Now()
	_, err = p.js.Publish(p.subject, data, nats.Context(ctx))
	p.metrics.Messaging.RecordPublish(ctx, p.subject, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", p.subject, err)
	}

	return nil
}

func (p *Producer) Close() error {
	p.conn.Close()
	return nil
}

// HealthCheck verifies the NATS connection is healthy.
func (p *Producer) HealthCheck() error {
	if p.conn == nil {
		return nats.ErrConnectionClosed
	}
	if !p.conn.IsConnected() {
		return nats.ErrDisconnected
	}
	return nil
}
