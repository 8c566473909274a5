package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/sally-https/book-api-v2/internal/admin"
	"github.com/sally-https/book-api-v2/internal/auth"
	"github.com/sally-https/book-api-v2/internal/metrics"
	"github.com/sally-https/book-api-v2/internal/student"
	"github.com/sally-https/book-api-v2/testing/testdb"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthHandler_Shared(t *testing.T) {
	// Set JWT_SECRET for tests
	os.Setenv("JWT_SECRET", "test-secret-key-for-testing")
	defer os.Unsetenv("JWT_SECRET")

	pgContainer := testdb.SetupSharedPostgres(t)
	defer pgContainer.Cleanup(t)

	pgContainer.RunMigrations(t,
		(*student.Student)(nil),
		(*admin.Admin)(nil),
		(*auth.RefreshToken)(nil),
	)

	mockMetrics := metrics.NewMock()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	studentRepo := student.NewRepository(pgContainer.DB, mockMetrics)
	adminRepo := admin.NewRepository(pgContainer.DB, mockMetrics)
	authRepo := auth.NewRepository(pgContainer.DB, mockMetrics)
	studentService := student.NewService(studentRepo, authRepo)

	authService := auth.NewService(authRepo,
		student.NewAuthenticator(studentService, studentRepo),
		admin.NewAuthenticator(adminRepo))
	authHandler := auth.NewHandler(authService, logger)

	mux := chi.NewRouter()
	authHandler.RegisterRoutes(mux)

	ctx := context.Background()

	seedAdmin := func(t *testing.T) {
		t.Helper()
		hash, _ := bcrypt.GenerateFromPassword([]byte("admin-secret"), bcrypt.DefaultCost)
		a := &admin.Admin{Name: "Librarian", Email: "librarian@example.com", Password: string(hash)}
		_, err := pgContainer.DB.NewInsert().Model(a).Exec(ctx)
		require.NoError(t, err)
	}

	register := func(t *testing.T) auth.AuthResponse {
		t.Helper()
		payload := map[string]interface{}{
			"name":       "John Doe",
			"student_id": "S00000001",
			"email":      "john.doe@example.com",
			"password":   "password123",
			"phone":      "+420123456789",
		}
		body, _ := json.Marshal(payload)

		req := httptest.NewRequest(http.MethodPost, "/student-register", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)

		var response auth.AuthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		return response
	}

	t.Run("Register_Success", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "students", "admins", "refresh_tokens")

		response := register(t)
		assert.True(t, response.Success)
		assert.NotEmpty(t, response.Token)
		assert.NotEmpty(t, response.RefreshToken)
		assert.Equal(t, auth.RoleStudent, response.Role)
		assert.NotNil(t, response.Student)

		claims, err := auth.ValidateAccessToken(response.Token)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleStudent, claims.Role)
		assert.Equal(t, "john.doe@example.com", claims.Email)
	})

	t.Run("Register_DuplicateStudentNumber", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "students", "admins", "refresh_tokens")
		register(t)

		payload := map[string]interface{}{
			"name":       "Jane Doe",
			"student_id": "S00000001",
			"email":      "jane.doe@example.com",
			"password":   "password123",
			"phone":      "+420987654321",
		}
		body, _ := json.Marshal(payload)

		req := httptest.NewRequest(http.MethodPost, "/student-register", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Register_ValidationError", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "students", "admins", "refresh_tokens")

		// student_id must be exactly 9 characters
		payload := map[string]interface{}{
			"name":       "John Doe",
			"student_id": "SHORT",
			"email":      "not-an-email",
			"password":   "pw",
			"phone":      "+420123456789",
		}
		body, _ := json.Marshal(payload)

		req := httptest.NewRequest(http.MethodPost, "/student-register", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "student_id")
		assert.Contains(t, w.Body.String(), "email")
		assert.Contains(t, w.Body.String(), "password")
	})

	t.Run("StudentLogin_Success", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "students", "admins", "refresh_tokens")
		register(t)

		payload := map[string]interface{}{
			"student_id": "S00000001",
			"password":   "password123",
		}
		body, _ := json.Marshal(payload)

		req := httptest.NewRequest(http.MethodPost, "/student-login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response auth.AuthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.NotEmpty(t, response.Token)

		cookies := w.Result().Cookies()
		var foundAuthCookie bool
		for _, cookie := range cookies {
			if cookie.Name == "token" {
				foundAuthCookie = true
				assert.Equal(t, response.Token, cookie.Value)
				break
			}
		}
		assert.True(t, foundAuthCookie, "token cookie should be set")
	})

	t.Run("StudentLogin_WrongPassword", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "students", "admins", "refresh_tokens")
		register(t)

		payload := map[string]interface{}{
			"student_id": "S00000001",
			"password":   "wrong-password",
		}
		body, _ := json.Marshal(payload)

		req := httptest.NewRequest(http.MethodPost, "/student-login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("AdminLogin_Success", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "students", "admins", "refresh_tokens")
		seedAdmin(t)

		payload := map[string]interface{}{
			"email":    "librarian@example.com",
			"password": "admin-secret",
		}
		body, _ := json.Marshal(payload)

		req := httptest.NewRequest(http.MethodPost, "/admin-login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response auth.AuthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, auth.RoleAdmin, response.Role)
		assert.NotNil(t, response.Admin)

		claims, err := auth.ValidateAccessToken(response.Token)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, claims.Role)
	})

	t.Run("Refresh_RotatesToken", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "students", "admins", "refresh_tokens")
		registered := register(t)

		payload := map[string]interface{}{"refreshToken": registered.RefreshToken}
		body, _ := json.Marshal(payload)

		req := httptest.NewRequest(http.MethodPost, "/auth-refresh", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response auth.AuthResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.NotEmpty(t, response.Token)
		assert.NotEqual(t, registered.RefreshToken, response.RefreshToken)

		// The old refresh token is spent
		req = httptest.NewRequest(http.MethodPost, "/auth-refresh", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w = httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Logout_DeletesRefreshToken", func(t *testing.T) {
		testdb.CleanupTables(t, pgContainer.DB, "students", "admins", "refresh_tokens")
		registered := register(t)

		payload := map[string]interface{}{"refreshToken": registered.RefreshToken}
		body, _ := json.Marshal(payload)

		req := httptest.NewRequest(http.MethodPost, "/student-logout", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		req = httptest.NewRequest(http.MethodPost, "/auth-refresh", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w = httptest.NewRecorder()
		mux.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
