package report_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/sally-https/book-api-v2/internal/auth"
	"github.com/sally-https/book-api-v2/internal/book"
	"github.com/sally-https/book-api-v2/internal/loan"
	"github.com/sally-https/book-api-v2/internal/metrics"
	"github.com/sally-https/book-api-v2/internal/report"
	"github.com/sally-https/book-api-v2/internal/student"
	"github.com/sally-https/book-api-v2/testing/testdb"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportHandler_Shared(t *testing.T) {
	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	pgContainer.RunMigrations(t, (*student.Student)(nil), (*book.Book)(nil), (*loan.Loan)(nil))

	mockMetrics := metrics.NewMock()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	handler := report.NewHandler(report.NewRepository(pgContainer.DB, mockMetrics), logger)

	ctx := context.Background()

	// One student with an open loan, a returned loan and an overdue loan,
	// plus a second student with nothing borrowed.
	seed := func(t *testing.T) (active, idle *student.Student) {
		t.Helper()

		active = &student.Student{
			Name:          "Active Reader",
			StudentNumber: "S00000001",
			Email:         "active@example.com",
			Password:      "hashed",
			Phone:         "+420123456789",
		}
		idle = &student.Student{
			Name:          "Idle Reader",
			StudentNumber: "S00000002",
			Email:         "idle@example.com",
			Password:      "hashed",
			Phone:         "+420987654321",
		}
		for _, s := range []*student.Student{active, idle} {
			_, err := pgContainer.DB.NewInsert().Model(s).Exec(ctx)
			require.NoError(t, err)
		}

		books := []*book.Book{
			{ID: 1000001, Title: "Dune", Author: "Frank Herbert", Quantity: 2},
			{ID: 1000002, Title: "Hyperion", Author: "Dan Simmons", Quantity: 1},
		}
		for _, b := range books {
			_, err := pgContainer.DB.NewInsert().Model(b).Exec(ctx)
			require.NoError(t, err)
		}

		now := time.Now()
		returnedAt := now.AddDate(0, 0, -1)
		loans := []*loan.Loan{
			{
				StudentID:    active.ID,
				BookID:       1000001,
				Status:       loan.StatusBorrowed,
				BorrowedDate: now,
				DueDate:      now.AddDate(0, 0, 7),
				ReturnCode:   "open0001",
			},
			{
				StudentID:    active.ID,
				BookID:       1000001,
				Status:       loan.StatusReturned,
				BorrowedDate: now.AddDate(0, 0, -9),
				DueDate:      now.AddDate(0, 0, -2),
				ReturnedAt:   &returnedAt,
				ReturnCode:   "done0001",
			},
			{
				StudentID:    active.ID,
				BookID:       1000002,
				Status:       loan.StatusBorrowed,
				BorrowedDate: now.AddDate(0, 0, -10),
				DueDate:      now.AddDate(0, 0, -3),
				ReturnCode:   "late0001",
			},
		}
		for _, l := range loans {
			_, err := pgContainer.DB.NewInsert().Model(l).Exec(ctx)
			require.NoError(t, err)
		}
		return active, idle
	}

	adminRouter := chi.NewRouter()
	handler.RegisterAdminRoutes(adminRouter)

	newStudentRouter := func(studentID int) chi.Router {
		router := chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := context.WithValue(r.Context(), auth.SubjectIDKey, studentID)
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		})
		handler.RegisterStudentRoutes(router)
		return router
	}

	t.Run("AdminDashboard", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "students", "books", "loans")
		seed(t)

		req := httptest.NewRequest(http.MethodGet, "/admin-dashboard", nil)
		w := httptest.NewRecorder()
		adminRouter.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Success   bool                  `json:"success"`
			Dashboard report.AdminDashboard `json:"dashboard"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, 2, response.Dashboard.TotalBooks)
		assert.Equal(t, 2, response.Dashboard.TotalStudents)
		assert.Equal(t, 2, response.Dashboard.BorrowedBooks)
		assert.Equal(t, 1, response.Dashboard.ReturnedBooks)
		assert.Equal(t, 1, response.Dashboard.OverdueLoans)
		assert.Equal(t, 3, response.Dashboard.AvailableStock)
	})

	t.Run("StudentDashboard", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "students", "books", "loans")
		active, idle := seed(t)

		req := httptest.NewRequest(http.MethodGet, "/student-dashboard", nil)
		w := httptest.NewRecorder()
		newStudentRouter(active.ID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Dashboard report.StudentDashboard `json:"dashboard"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, 3, response.Dashboard.TotalLoans)
		assert.Equal(t, 2, response.Dashboard.BorrowedBooks)
		assert.Equal(t, 1, response.Dashboard.ReturnedBooks)
		assert.Equal(t, 1, response.Dashboard.OverdueLoans)

		// The overdue Hyperion loan is the one due back soonest
		require.NotNil(t, response.Dashboard.NextDueTitle)
		assert.Equal(t, "Hyperion", *response.Dashboard.NextDueTitle)
		require.NotNil(t, response.Dashboard.NextDueDate)

		// The idle student's dashboard is empty
		w = httptest.NewRecorder()
		newStudentRouter(idle.ID).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/student-dashboard", nil))
		response.Dashboard = report.StudentDashboard{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, 0, response.Dashboard.TotalLoans)
		assert.Equal(t, 0, response.Dashboard.BorrowedBooks)
		assert.Nil(t, response.Dashboard.NextDueTitle)
	})

	t.Run("ListStudents_WithBorrowCounts", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "students", "books", "loans")
		active, idle := seed(t)

		req := httptest.NewRequest(http.MethodGet, "/admin-view-students", nil)
		w := httptest.NewRecorder()
		adminRouter.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Students []report.StudentRow `json:"students"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		require.Len(t, response.Students, 2)

		byID := map[int]report.StudentRow{}
		for _, row := range response.Students {
			byID[row.ID] = row
		}
		assert.Equal(t, 2, byID[active.ID].BorrowedCount)
		assert.Equal(t, 0, byID[idle.ID].BorrowedCount)
	})

	t.Run("ListBorrowedAndReturned", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "students", "books", "loans")
		seed(t)

		w := httptest.NewRecorder()
		adminRouter.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin-view-borrowed-books", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		var borrowed struct {
			BorrowedBooks []report.LoanRow `json:"borrowedBooks"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&borrowed))
		assert.Len(t, borrowed.BorrowedBooks, 2)

		w = httptest.NewRecorder()
		adminRouter.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin-view-returned-books", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		var returned struct {
			ReturnedBooks []report.LoanRow `json:"returnedBooks"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&returned))
		require.Len(t, returned.ReturnedBooks, 1)
		assert.Equal(t, "done0001", returned.ReturnedBooks[0].ReturnCode)
		assert.Equal(t, "Dune", returned.ReturnedBooks[0].BookTitle)
		assert.Equal(t, "Active Reader", returned.ReturnedBooks[0].StudentName)
	})

	t.Run("StudentViewBorrowedBooks", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "students", "books", "loans")
		active, _ := seed(t)

		req := httptest.NewRequest(http.MethodGet, "/student-view-borrowed-books", nil)
		w := httptest.NewRecorder()
		newStudentRouter(active.ID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			BorrowedBooks []report.StudentLoanRow `json:"borrowedBooks"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		// Full history, returned loans included
		require.Len(t, response.BorrowedBooks, 3)
		// Ordered by due date, overdue first
		assert.Equal(t, "Hyperion", response.BorrowedBooks[0].BookTitle)

		statuses := map[string]int{}
		for _, row := range response.BorrowedBooks {
			statuses[row.Status]++
		}
		assert.Equal(t, 2, statuses[loan.StatusBorrowed])
		assert.Equal(t, 1, statuses[loan.StatusReturned])
	})

	t.Run("ViewBookLibrary", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "students", "books", "loans")
		active, _ := seed(t)

		req := httptest.NewRequest(http.MethodGet, "/view-book-library", nil)
		w := httptest.NewRecorder()
		newStudentRouter(active.ID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Books []report.LibraryRow `json:"books"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		require.Len(t, response.Books, 2)

		byTitle := map[string]report.LibraryRow{}
		for _, row := range response.Books {
			byTitle[row.Title] = row
		}
		assert.Equal(t, 2, byTitle["Dune"].BorrowCount)
		assert.Equal(t, 1, byTitle["Hyperion"].BorrowCount)
	})
}
