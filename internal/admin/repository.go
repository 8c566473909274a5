package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sally-https/book-api-v2/internal/metrics"

	"github.com/uptrace/bun"
)

var ErrAdminNotFound = errors.New("admin not found")

type Repository interface {
	Create(ctx context.Context, admin *Admin) (*Admin, error)
	GetByID(ctx context.Context, id int) (*Admin, error)
	GetByEmail(ctx context.Context, email string) (*Admin, error)
	Update(ctx context.Context, admin *Admin) error
	Count(ctx context.Context) (int, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Repository {
	return &repository{db: db, metrics: m}
}

func (r *repository) Create(ctx context.Context, admin *Admin) (*Admin, error) {
	start := time.Now()
	_, err := r.db.NewInsert().Model(admin).Returning("*").Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "insert", "admins", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("inserting admin: %w", err)
	}
	return admin, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Admin, error) {
	start := time.Now()
	admin := &Admin{}
	err := r.db.NewSelect().Model(admin).Where("a.id = ?", id).Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "admins", time.Since(start), err)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("selecting admin: %w", err)
	}
	return admin, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Admin, error) {
	start := time.Now()
	admin := &Admin{}
	err := r.db.NewSelect().Model(admin).Where("a.email = ?", email).Scan(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "admins", time.Since(start), err)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("selecting admin by email: %w", err)
	}
	return admin, nil
}

func (r *repository) Update(ctx context.Context, admin *Admin) error {
	start := time.Now()
	admin.UpdatedAt = time.Now()
	result, err := r.db.NewUpdate().Model(admin).WherePK().Exec(ctx)
	r.metrics.Database.RecordQuery(ctx, "update", "admins", time.Since(start), err)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrAdminNotFound
	}
	return nil
}

func (r *repository) Count(ctx context.Context) (int, error) {
	start := time.Now()
	count, err := r.db.NewSelect().Model((*Admin)(nil)).Count(ctx)
	r.metrics.Database.RecordQuery(ctx, "select", "admins", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("counting admins: %w", err)
	}
	return count, nil
}
