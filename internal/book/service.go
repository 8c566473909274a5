package book

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/sally-https/book-api-v2/internal/barcode"
	"github.com/sally-https/book-api-v2/internal/db"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// idAllocationAttempts bounds retries when a random id collides.
const idAllocationAttempts = 3

// IDAllocator produces catalogue ids. Production uses random seven digit
// numbers; tests inject fixed sequences.
type IDAllocator interface {
	NextID() (int, error)
}

type randomIDAllocator struct{}

func NewRandomIDAllocator() IDAllocator {
	return randomIDAllocator{}
}

func (randomIDAllocator) NextID() (int, error) {
	// 1000000..9999999 inclusive
	n, err := rand.Int(rand.Reader, big.NewInt(9000000))
	if err != nil {
		return 0, fmt.Errorf("allocating book id: %w", err)
	}
	return int(n.Int64()) + 1000000, nil
}

type Service interface {
	AddBook(ctx context.Context, req AddBookRequest) (*Book, error)
	GetBookByID(ctx context.Context, id int) (*Book, error)
	GetBookByBarcode(ctx context.Context, code string) (*Book, error)
	ListBooks(ctx context.Context) ([]Book, error)
	EditBook(ctx context.Context, id int, req EditBookRequest) (*Book, error)
	DeleteBook(ctx context.Context, id int) error
}

type service struct {
	repo Repository
	ids  IDAllocator
}

func NewService(repo Repository, ids IDAllocator) Service {
	return &service{repo: repo, ids: ids}
}

func (s *service) AddBook(ctx context.Context, req AddBookRequest) (*Book, error) {
	var lastErr error
	for attempt := 0; attempt < idAllocationAttempts; attempt++ {
		id, err := s.ids.NextID()
		if err != nil {
			return nil, err
		}

		label, err := barcode.EncodeCode128(strconv.Itoa(id))
		if err != nil {
			return nil, err
		}

		created, err := s.repo.Create(ctx, &Book{
			ID:       id,
			Title:    req.Title,
			Author:   req.Author,
			Quantity: req.Quantity,
			ImageURL: req.ImageURL,
			Barcode:  label,
		})
		if err == nil {
			return created, nil
		}
		if !db.IsUniqueViolation(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("allocating unique book id: %w", lastErr)
}

func (s *service) GetBookByID(ctx context.Context, id int) (*Book, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetBookByBarcode(ctx context.Context, code string) (*Book, error) {
	if code == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByBarcode(ctx, code)
}

func (s *service) ListBooks(ctx context.Context) ([]Book, error) {
	return s.repo.GetAll(ctx)
}

func (s *service) EditBook(ctx context.Context, id int, req EditBookRequest) (*Book, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}

	book, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		book.Title = *req.Title
	}
	if req.Author != nil {
		book.Author = *req.Author
	}
	if req.Quantity != nil {
		book.Quantity = *req.Quantity
	}
	if req.ImageURL != nil {
		book.ImageURL = *req.ImageURL
	}

	if err := s.repo.Update(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

func (s *service) DeleteBook(ctx context.Context, id int) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}
