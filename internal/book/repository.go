package book

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sally-https/book-api-v2/internal/metrics"

	"github.com/uptrace/bun"
)

var ErrBookNotFound = errors.New("book not found")

// Repository methods that take a bun.IDB run against either the pooled
// connection or an open transaction.
type Repository interface {
	Create(ctx context.Context, book *Book) (*Book, error)
	GetByID(ctx context.Context, id int) (*Book, error)
	GetForUpdate(ctx context.Context, idb bun.IDB, id int) (*Book, error)
	GetByBarcode(ctx context.Context, code string) (*Book, error)
	GetAll(ctx context.Context) ([]Book, error)
	Update(ctx context.Context, book *Book) error
	AdjustQuantity(ctx context.Context, idb bun.IDB, id, delta int) error
	Delete(ctx context.Context, id int) error
	Count(ctx context.Context) (int, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Repository {
	return &repository{db: db, metrics: m}
}

func (r *repository) Create(ctx context.Context, book *Book) (*Book, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(book).Returning("*").Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "books", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("inserting book: %w", err)
	}
	return book, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Book, error) {
	start := time.Now()
	book := &Book{}
	err := r.db.NewSelect().Model(book).Where("b.id = ?", id).Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "books", time.Since(start), err)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("selecting book: %w", err)
	}
	return book, nil
}

// GetForUpdate locks the row for the duration of the enclosing transaction.
func (r *repository) GetForUpdate(ctx context.Context, idb bun.IDB, id int) (*Book, error) {
	start := time.Now()
	book := &Book{}
	err := idb.NewSelect().Model(book).Where("b.id = ?", id).For("UPDATE").Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "books", time.Since(start), err)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("selecting book for update: %w", err)
	}
	return book, nil
}

// GetByBarcode resolves a scanned Code 128 payload, which carries the
// book id as text.
func (r *repository) GetByBarcode(ctx context.Context, code string) (*Book, error) {
	start := time.Now()
	book := &Book{}
	err := r.db.NewSelect().Model(book).Where("CAST(b.id AS TEXT) = ?", code).Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "books", time.Since(start), err)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("selecting book by barcode: %w", err)
	}
	return book, nil
}

func (r *repository) GetAll(ctx context.Context) ([]Book, error) {
	start := time.Now()
	var books []Book
	err := r.db.NewSelect().Model(&books).Order("b.created_at DESC").Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "books", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("listing books: %w", err)
	}
	return books, nil
}

func (r *repository) Update(ctx context.Context, book *Book) error {
	start := time.Now()
	book.UpdatedAt = time.Now()
	res, err := r.db.NewUpdate().
		Model(book).
		Column("title", "author", "quantity", "image_url", "updated_at").
		WherePK().
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", "books", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("updating book: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrBookNotFound
	}
	return nil
}

// AdjustQuantity applies a stock delta inside the caller's transaction.
func (r *repository) AdjustQuantity(ctx context.Context, idb bun.IDB, id, delta int) error {
	start := time.Now()
	res, err := idb.NewUpdate().
		Model((*Book)(nil)).
		Set("quantity = quantity + ?", delta).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", "books", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("adjusting book quantity: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrBookNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int) error {
	start := time.Now()
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Table("loans").
			Where("book_id = ?", id).
			Exec(ctx); err != nil {
			return fmt.Errorf("deleting book loans: %w", err)
		}

		res, err := tx.NewDelete().Model((*Book)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return fmt.Errorf("deleting book: %w", err)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return ErrBookNotFound
		}
		return nil
	})
	r.metrics.Database.RecordQuery(ctx, "delete", "books", time.Since(start), err)
	return err
}

func (r *repository) Count(ctx context.Context) (int, error) {
	start := time.Now()
	count, err := r.db.NewSelect().Model((*Book)(nil)).Count(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "books", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("counting books: %w", err)
	}
	return count, nil
}
