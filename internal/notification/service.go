package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sally-https/book-api-v2/internal/book"
	"github.com/sally-https/book-api-v2/internal/loan"
	"github.com/sally-https/book-api-v2/internal/student"
)

// Producer publishes events to the configured broker backend.
type Producer interface {
	Publish(ctx context.Context, value interface{}) error
	Close() error
}

// Dispatcher enriches committed loans into borrow events and hands them to
// the broker. It satisfies the loan service's notifier hook.
type Dispatcher struct {
	students student.Repository
	books    book.Repository
	producer Producer
	logger   *slog.Logger
}

func NewDispatcher(students student.Repository, books book.Repository, producer Producer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		students: students,
		books:    books,
		producer: producer,
		logger:   logger,
	}
}

func (d *Dispatcher) NotifyBorrowed(ctx context.Context, l *loan.Loan) error {
	s, err := d.students.GetByID(ctx, l.StudentID)
	if err != nil {
		return fmt.Errorf("loading student for notification: %w", err)
	}

	b, err := d.books.GetByID(ctx, l.BookID)
	if err != nil {
		return fmt.Errorf("loading book for notification: %w", err)
	}

	event := BorrowEvent{
		LoanID:       l.ID,
		StudentID:    s.ID,
		StudentName:  s.Name,
		StudentPhone: s.Phone,
		BookID:       b.ID,
		BookTitle:    b.Title,
		BookAuthor:   b.Author,
		DueDate:      l.DueDate,
	}

	if err := d.producer.Publish(ctx, event); err != nil {
		return fmt.Errorf("publishing borrow event: %w", err)
	}

	d.logger.InfoContext(ctx, "borrow event published",
		"loan_id", l.ID, "student_id", s.ID, "book_id", b.ID)
	return nil
}
