package notification_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sally-https/book-api-v2/internal/messaging"
	"github.com/sally-https/book-api-v2/internal/metrics"
	"github.com/sally-https/book-api-v2/internal/notification"
	"github.com/sally-https/book-api-v2/testing/testnats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingSender struct {
	mu       sync.Mutex
	messages []string
	phones   []string
}

func (s *capturingSender) Send(_ context.Context, phone, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phones = append(s.phones, phone)
	s.messages = append(s.messages, message)
	return nil
}

func (s *capturingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func TestNotificationPipeline(t *testing.T) {
	natsContainer := testnats.SetupSharedNATS(t)
	defer natsContainer.Cleanup(t)

	mockMetrics := metrics.NewMock()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	const (
		stream  = "NOTIFICATIONS_TEST"
		subject = "notifications.test.borrow"
	)

	producer, err := messaging.NewProducer(natsContainer.URL, stream, subject, logger, mockMetrics)
	require.NoError(t, err)
	defer producer.Close()

	sender := &capturingSender{}
	consumer, err := notification.NewConsumer(natsContainer.URL, stream, subject, sender, logger, mockMetrics)
	require.NoError(t, err)
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = consumer.Start(ctx)
	}()

	// Give the durable subscription a moment to bind
	time.Sleep(500 * time.Millisecond)

	event := notification.BorrowEvent{
		LoanID:       1,
		StudentID:    42,
		StudentName:  "John Doe",
		StudentPhone: "+420123456789",
		BookID:       1234567,
		BookTitle:    "Neuromancer",
		BookAuthor:   "William Gibson",
		DueDate:      time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, producer.Publish(ctx, event))

	require.Eventually(t, func() bool {
		return sender.count() == 1
	}, 10*time.Second, 100*time.Millisecond, "SMS should be delivered")

	sender.mu.Lock()
	defer sender.mu.Unlock()
	assert.Equal(t, "+420123456789", sender.phones[0])
	assert.Contains(t, sender.messages[0], "John Doe")
	assert.Contains(t, sender.messages[0], "Neuromancer")
	assert.Contains(t, sender.messages[0], "William Gibson")
	assert.Contains(t, sender.messages[0], "Sep 7, 2026")
	assert.NotContains(t, sender.messages[0], "return code is")
}
