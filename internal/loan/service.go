package loan

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/sally-https/book-api-v2/internal/book"
	"github.com/sally-https/book-api-v2/internal/db"
	"github.com/sally-https/book-api-v2/internal/metrics"

	"github.com/uptrace/bun"
)

var (
	ErrBorrowLimit     = errors.New("you have reached the maximum of 3 borrowed books")
	ErrCopyLimit       = errors.New("you have reached the maximum of 3 copies of this book")
	ErrOverdueLoans    = errors.New("you have overdue books that must be returned first")
	ErrBookUnavailable = errors.New("no copies of this book are currently available")
	ErrInvalidReturn   = errors.New("no matching borrowed book for that return code")
)

const (
	maxOutstandingLoans = 3
	maxCopiesPerTitle   = 3
)

// Notifier is told about new loans after they commit.
type Notifier interface {
	NotifyBorrowed(ctx context.Context, loan *Loan) error
}

type Service interface {
	Borrow(ctx context.Context, studentID int, req BorrowRequest) (*BorrowedBook, error)
	Return(ctx context.Context, studentID int, req ReturnRequest) (*Loan, error)
}

type service struct {
	db       *bun.DB
	loans    Repository
	books    book.Repository
	codes    CodeGenerator
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(bdb *bun.DB, loans Repository, books book.Repository, codes CodeGenerator, notifier Notifier, logger *slog.Logger, m *metrics.Metrics) Service {
	return &service{
		db:       bdb,
		loans:    loans,
		books:    books,
		codes:    codes,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// Borrow checks the lending policy and creates the loan atomically with the
// stock decrement. The whole flow runs serializable so concurrent borrows
// cannot oversell the last copy.
func (s *service) Borrow(ctx context.Context, studentID int, req BorrowRequest) (*BorrowedBook, error) {
	code, err := s.codes.NextCode()
	if err != nil {
		return nil, err
	}

	now := s.now()
	borrowedDate := now.Truncate(24 * time.Hour)
	dueDate := borrowedDate.AddDate(0, 0, req.Days)

	var created *Loan
	err = s.runSerializable(ctx, func(ctx context.Context, tx bun.Tx) error {
		b, err := s.books.GetForUpdate(ctx, tx, req.BookID)
		if err != nil {
			return err
		}

		outstanding, err := s.loans.CountOutstanding(ctx, tx, studentID)
		if err != nil {
			return err
		}
		if outstanding >= maxOutstandingLoans {
			return ErrBorrowLimit
		}

		// With equal caps the global check fires first, but the per-title
		// count is enforced on its own in case the caps ever diverge.
		copies, err := s.loans.CountOutstandingForBook(ctx, tx, studentID, req.BookID)
		if err != nil {
			return err
		}
		if copies >= maxCopiesPerTitle {
			return ErrCopyLimit
		}

		overdue, err := s.loans.HasOverdue(ctx, tx, studentID, now)
		if err != nil {
			return err
		}
		if overdue {
			return ErrOverdueLoans
		}

		if b.Quantity < 1 {
			return ErrBookUnavailable
		}

		created, err = s.loans.Create(ctx, tx, &Loan{
			StudentID:    studentID,
			BookID:       req.BookID,
			Status:       StatusBorrowed,
			BorrowedDate: borrowedDate,
			DueDate:      dueDate,
			ReturnCode:   code,
		})
		if err != nil {
			return err
		}

		return s.books.AdjustQuantity(ctx, tx, req.BookID, -1)
	})
	if err != nil {
		if isPolicyRefusal(err) {
			s.metrics.RecordPolicyRefusal(ctx)
		}
		return nil, err
	}

	s.metrics.RecordLoanCreated(ctx)
	s.dispatchNotification(ctx, created)

	return &BorrowedBook{
		ID:           created.ID,
		StudentID:    created.StudentID,
		BookID:       created.BookID,
		Status:       created.Status,
		BorrowedDate: created.BorrowedDate,
		DueDate:      created.DueDate,
		ReturnCode:   created.ReturnCode,
	}, nil
}

// Return closes a loan and restores the copy to stock. The loan must be
// open, owned by the student, and matched by return code.
func (s *service) Return(ctx context.Context, studentID int, req ReturnRequest) (*Loan, error) {
	now := s.now()

	var returned *Loan
	err := s.runSerializable(ctx, func(ctx context.Context, tx bun.Tx) error {
		l, err := s.loans.FindOpenForReturn(ctx, tx, req.BorrowedBookID, studentID, req.ReturnCode)
		if err != nil {
			if errors.Is(err, ErrLoanNotFound) {
				return ErrInvalidReturn
			}
			return err
		}

		if err := s.loans.MarkReturned(ctx, tx, l.ID, now); err != nil {
			return err
		}
		if err := s.books.AdjustQuantity(ctx, tx, l.BookID, 1); err != nil {
			return err
		}

		l.Status = StatusReturned
		l.ReturnedAt = &now
		returned = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLoanReturned(ctx)
	return returned, nil
}

// runSerializable retries once on a serialization failure, which is how
// Postgres reports a lost race between two concurrent transactions.
func (s *service) runSerializable(ctx context.Context, fn func(context.Context, bun.Tx) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}
	err := s.db.RunInTx(ctx, opts, fn)
	if err != nil && db.IsSerializationFailure(err) {
		s.logger.WarnContext(ctx, "serialization failure, retrying transaction")
		err = s.db.RunInTx(ctx, opts, fn)
	}
	return err
}

func (s *service) dispatchNotification(ctx context.Context, l *Loan) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyBorrowed(ctx, l); err != nil {
		s.logger.WarnContext(ctx, "failed to dispatch borrow notification",
			"loan_id", l.ID, "error", err)
	}
}

func isPolicyRefusal(err error) bool {
	return errors.Is(err, ErrBorrowLimit) ||
		errors.Is(err, ErrCopyLimit) ||
		errors.Is(err, ErrOverdueLoans) ||
		errors.Is(err, ErrBookUnavailable)
}
