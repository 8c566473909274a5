package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sally-https/book-api-v2/internal/metrics"

	"github.com/nats-io/nats.go"
)

// Sender delivers the rendered notification text to the student.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// Consumer drains borrow events from JetStream and sends SMS messages. The
// durable subscription replays unacknowledged events after a restart.
type Consumer struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	sub     *nats.Subscription
	subject string
	durable string
	sender  Sender
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewConsumer(url, stream, subject string, sender Sender, logger *slog.Logger, m *metrics.Metrics) (*Consumer, error) {
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

	return &Consumer{
		conn:    nc,
		js:      js,
		subject: subject,
		durable: "sms-worker",
		sender:  sender,
		logger:  logger,
		metrics: m,
	}, nil
}

func (c *Consumer) Start(ctx context.Context) error {
	sub, err := c.js.Subscribe(c.subject, func(msg *nats.Msg) {
		c.handle(ctx, msg)
	}, nats.Durable(c.durable), nats.ManualAck())
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", c.subject, err)
	}

	c.sub = sub
	c.logger.Info("notification consumer started", "subject", c.subject, "durable", c.durable)

	<-ctx.Done()
	return ctx.Err()
}

func (c *Consumer) handle(ctx context.Context, msg *nats.Msg) {
	start := time.Now()

	var event BorrowEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		c.logger.Error("failed to unmarshal borrow event", "error", err)
		// Poison message, do not redeliver.
		_ = msg.Ack()
		c.metrics.Messaging.RecordConsume(ctx, c.subject, time.Since(start), err)
		return
	}

	text := renderBorrowSMS(event)
	if err := c.sender.Send(ctx, event.StudentPhone, text); err != nil {
		c.logger.Error("failed to send SMS, will redeliver",
			"loan_id", event.LoanID, "error", err)
		_ = msg.Nak()
		c.metrics.Messaging.RecordConsume(ctx, c.subject, time.Since(start), err)
		c.metrics.RecordNotificationFailure(ctx)
		return
	}

	_ = msg.Ack()
	c.metrics.Messaging.RecordConsume(ctx, c.subject, time.Since(start), nil)
	c.metrics.RecordNotificationSent(ctx)
	c.logger.Info("borrow SMS sent", "loan_id", event.LoanID, "student_id", event.StudentID)
}

func (c *Consumer) Close() error {
	if c.sub != nil {
		_ = c.sub.Unsubscribe()
	}
	c.conn.Close()
	return nil
}

// HealthCheck verifies the NATS connection is healthy.
func (c *Consumer) HealthCheck() error {
	if c.conn == nil {
		return nats.ErrConnectionClosed
	}
	if !c.conn.IsConnected() {
		return nats.ErrDisconnected
	}
	return nil
}

func renderBorrowSMS(event BorrowEvent) string {
	return fmt.Sprintf(
		"Dear %s, you have successfully borrowed the book '%s' by %s. "+
			"The book must be returned by %s. "+
			"Kindly contact the librarian for your return code when returning the book.",
		event.StudentName,
		event.BookTitle,
		event.BookAuthor,
		event.DueDate.Format("Jan 2, 2006"),
	)
}
