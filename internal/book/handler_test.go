package book_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/sally-https/book-api-v2/internal/book"
	"github.com/sally-https/book-api-v2/internal/loan"
	"github.com/sally-https/book-api-v2/internal/metrics"
	"github.com/sally-https/book-api-v2/internal/student"
	"github.com/sally-https/book-api-v2/testing/testdb"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sequenceIDs struct {
	ids  []int
	next int
}

func (s *sequenceIDs) NextID() (int, error) {
	if s.next >= len(s.ids) {
		return 0, fmt.Errorf("sequence exhausted")
	}
	id := s.ids[s.next]
	s.next++
	return id, nil
}

func TestBookHandler_Shared(t *testing.T) {
	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	pgContainer.RunMigrations(t, (*student.Student)(nil), (*book.Book)(nil), (*loan.Loan)(nil))

	mockMetrics := metrics.NewMock()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	bookRepo := book.NewRepository(pgContainer.DB, mockMetrics)

	ctx := context.Background()

	newRouter := func(ids book.IDAllocator) chi.Router {
		service := book.NewService(bookRepo, ids)
		handler := book.NewHandler(service, logger, mockMetrics)
		router := chi.NewRouter()
		handler.RegisterAdminRoutes(router)
		handler.RegisterStudentRoutes(router)
		return router
	}

	t.Run("AddBook_Success", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "books", "loans")
		router := newRouter(&sequenceIDs{ids: []int{1234567}})

		payload := map[string]interface{}{
			"title":          "Snow Crash",
			"author":         "Neal Stephenson",
			"quantity":       4,
			"book_image_url": "https://covers.example.com/snow-crash.jpg",
		}
		body, _ := json.Marshal(payload)

		req := httptest.NewRequest(http.MethodPost, "/admin-add-book", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response struct {
			Success bool      `json:"success"`
			Book    book.Book `json:"book"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.True(t, response.Success)
		assert.Equal(t, 1234567, response.Book.ID)
		assert.Equal(t, "Snow Crash", response.Book.Title)
		assert.NotEmpty(t, response.Book.Barcode, "barcode PNG should be generated")
	})

	t.Run("AddBook_RetriesOnIDCollision", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "books", "loans")
		router := newRouter(&sequenceIDs{ids: []int{1234567, 1234567, 7654321}})

		seed := &book.Book{ID: 1234567, Title: "Taken", Author: "Someone", Quantity: 1}
		_, err := pgContainer.DB.NewInsert().Model(seed).Exec(ctx)
		require.NoError(t, err)

		payload := map[string]interface{}{
			"title":    "Second Book",
			"author":   "Author",
			"quantity": 1,
		}
		body, _ := json.Marshal(payload)

		req := httptest.NewRequest(http.MethodPost, "/admin-add-book", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), "7654321")
	})

	t.Run("AddBook_ValidationError", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "books", "loans")
		router := newRouter(&sequenceIDs{ids: []int{1234567}})

		// quantity below 1 and a malformed image URL
		payload := map[string]interface{}{
			"title":          "Bad Book",
			"author":         "Author",
			"quantity":       0,
			"book_image_url": "not-a-url",
		}
		body, _ := json.Marshal(payload)

		req := httptest.NewRequest(http.MethodPost, "/admin-add-book", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "quantity")
		assert.Contains(t, w.Body.String(), "book_image_url")
	})

	t.Run("EditBook_Partial", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "books", "loans")
		router := newRouter(&sequenceIDs{ids: []int{1234567}})

		seed := &book.Book{ID: 1234567, Title: "Old Title", Author: "Author", Quantity: 2}
		_, err := pgContainer.DB.NewInsert().Model(seed).Exec(ctx)
		require.NoError(t, err)

		payload := map[string]interface{}{"quantity": 9}
		body, _ := json.Marshal(payload)

		req := httptest.NewRequest(http.MethodPatch, "/admin-edit-book/1234567", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		updated, err := bookRepo.GetByID(ctx, 1234567)
		require.NoError(t, err)
		assert.Equal(t, "Old Title", updated.Title)
		assert.Equal(t, 9, updated.Quantity)
	})

	t.Run("EditBook_NotFound", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "books", "loans")
		router := newRouter(&sequenceIDs{ids: []int{1234567}})

		payload := map[string]interface{}{"quantity": 9}
		body, _ := json.Marshal(payload)

		req := httptest.NewRequest(http.MethodPatch, "/admin-edit-book/9999999", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("ScanBarcode_Found", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "books", "loans")
		router := newRouter(&sequenceIDs{ids: []int{1234567}})

		seed := &book.Book{ID: 1234567, Title: "Scannable", Author: "Author", Quantity: 2}
		_, err := pgContainer.DB.NewInsert().Model(seed).Exec(ctx)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/student-scan-barcode/1234567", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Scannable")
	})

	t.Run("ScanBarcode_Unknown", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "books", "loans")
		router := newRouter(&sequenceIDs{ids: []int{1234567}})

		req := httptest.NewRequest(http.MethodPost, "/student-scan-barcode/0000000", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("DeleteBook_CascadesLoans", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "students", "books", "loans")
		router := newRouter(&sequenceIDs{ids: []int{1234567}})

		s := &student.Student{
			Name:          "Reader",
			StudentNumber: "S00000001",
			Email:         "reader@example.com",
			Password:      "hashed",
			Phone:         "+420123456789",
		}
		_, err := pgContainer.DB.NewInsert().Model(s).Exec(ctx)
		require.NoError(t, err)

		seed := &book.Book{ID: 1234567, Title: "Doomed", Author: "Author", Quantity: 2}
		_, err = pgContainer.DB.NewInsert().Model(seed).Exec(ctx)
		require.NoError(t, err)

		l := &loan.Loan{
			StudentID:    s.ID,
			BookID:       1234567,
			Status:       loan.StatusReturned,
			BorrowedDate: seed.CreatedAt,
			DueDate:      seed.CreatedAt,
			ReturnCode:   "code0001",
		}
		_, err = pgContainer.DB.NewInsert().Model(l).Exec(ctx)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodDelete, "/books/1234567", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		_, err = bookRepo.GetByID(ctx, 1234567)
		assert.ErrorIs(t, err, book.ErrBookNotFound)

		count, err := pgContainer.DB.NewSelect().Model((*loan.Loan)(nil)).Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}
