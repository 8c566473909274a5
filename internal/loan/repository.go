package loan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sally-https/book-api-v2/internal/metrics"

	"github.com/uptrace/bun"
)

var ErrLoanNotFound = errors.New("loan not found")

// Repository methods take a bun.IDB so the borrow and return flows can run
// their reads and writes inside one serializable transaction.
type Repository interface {
	CountOutstanding(ctx context.Context, idb bun.IDB, studentID int) (int, error)
	CountOutstandingForBook(ctx context.Context, idb bun.IDB, studentID, bookID int) (int, error)
	HasOverdue(ctx context.Context, idb bun.IDB, studentID int, now time.Time) (bool, error)
	Create(ctx context.Context, idb bun.IDB, loan *Loan) (*Loan, error)
	FindOpenForReturn(ctx context.Context, idb bun.IDB, loanID, studentID int, returnCode string) (*Loan, error)
	MarkReturned(ctx context.Context, idb bun.IDB, loanID int, at time.Time) error
}

type repository struct {
	metrics *metrics.Metrics
}

func NewRepository(m *metrics.Metrics) Repository {
	return &repository{metrics: m}
}

func (r *repository) CountOutstanding(ctx context.Context, idb bun.IDB, studentID int) (int, error) {
	start := time.Now()
	count, err := idb.NewSelect().
		Model((*Loan)(nil)).
		Where("l.student_id = ?", studentID).
		Where("l.status = ?", StatusBorrowed).
		Count(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "loans", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("counting outstanding loans: %w", err)
	}
	return count, nil
}

func (r *repository) CountOutstandingForBook(ctx context.Context, idb bun.IDB, studentID, bookID int) (int, error) {
	start := time.Now()
	count, err := idb.NewSelect().
		Model((*Loan)(nil)).
		Where("l.student_id = ?", studentID).
		Where("l.book_id = ?", bookID).
		Where("l.status = ?", StatusBorrowed).
		Count(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "loans", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("counting outstanding loans for book: %w", err)
	}
	return count, nil
}

func (r *repository) HasOverdue(ctx context.Context, idb bun.IDB, studentID int, now time.Time) (bool, error) {
	start := time.Now()
	exists, err := idb.NewSelect().
		Model((*Loan)(nil)).
		Where("l.student_id = ?", studentID).
		Where("l.status = ?", StatusBorrowed).
		Where("l.due_date < ?", now).
		Exists(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "loans", time.Since(start), err)
	if err != nil {
		return false, fmt.Errorf("checking overdue loans: %w", err)
	}
	return exists, nil
}

func (r *repository) Create(ctx context.Context, idb bun.IDB, loan *Loan) (*Loan, error) {
	start := time.Now()
	_, err := idb.NewInsert().Model(loan).Returning("*").Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "loans", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("inserting loan: %w", err)
	}
	return loan, nil
}

// FindOpenForReturn matches a loan on id, owner and return code. A miss on
// any of the three looks the same to the caller.
func (r *repository) FindOpenForReturn(ctx context.Context, idb bun.IDB, loanID, studentID int, returnCode string) (*Loan, error) {
	start := time.Now()
	loan := &Loan{}
	err := idb.NewSelect().
		Model(loan).
		Where("l.id = ?", loanID).
		Where("l.student_id = ?", studentID).
		Where("l.return_code = ?", returnCode).
		Where("l.status = ?", StatusBorrowed).
		Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "loans", time.Since(start), err)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("selecting loan for return: %w", err)
	}
	return loan, nil
}

func (r *repository) MarkReturned(ctx context.Context, idb bun.IDB, loanID int, at time.Time) error {
	start := time.Now()
	res, err := idb.NewUpdate().
		Model((*Loan)(nil)).
		Set("status = ?", StatusReturned).
		Set("returned_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", loanID).
		Where("status = ?", StatusBorrowed).
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", "loans", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("marking loan returned: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrLoanNotFound
	}
	return nil
}
