package report

import (
	"context"
	"fmt"
	"time"

	"github.com/sally-https/book-api-v2/internal/metrics"

	"github.com/uptrace/bun"
)

// AdminDashboard aggregates catalogue-wide counters.
type AdminDashboard struct {
	TotalBooks     int `json:"total_books"`
	TotalStudents  int `json:"total_students"`
	BorrowedBooks  int `json:"borrowed_books"`
	ReturnedBooks  int `json:"returned_books"`
	OverdueLoans   int `json:"overdue_loans"`
	AvailableStock int `json:"available_stock"`
}

// StudentDashboard aggregates one student's counters plus the open loan
// that is due back soonest.
type StudentDashboard struct {
	TotalLoans    int        `json:"total_loans"`
	BorrowedBooks int        `json:"borrowed_books"`
	ReturnedBooks int        `json:"returned_books"`
	OverdueLoans  int        `json:"overdue_loans"`
	NextDueTitle  *string    `json:"next_due_title"`
	NextDueDate   *time.Time `json:"next_due_date"`
}

// StudentRow lists a student together with their open loan count.
type StudentRow struct {
	ID            int       `bun:"id" json:"id"`
	Name          string    `bun:"name" json:"name"`
	StudentNumber string    `bun:"student_number" json:"student_id"`
	Email         string    `bun:"email" json:"email"`
	Phone         string    `bun:"phone" json:"phone"`
	CreatedAt     time.Time `bun:"created_at" json:"created_at"`
	BorrowedCount int       `bun:"borrowed_count" json:"borrowed_count"`
}

// LoanRow is a loan joined with its book and student for admin listings.
type LoanRow struct {
	ID           int        `bun:"id" json:"id"`
	Status       string     `bun:"status" json:"status"`
	BorrowedDate time.Time  `bun:"borrowed_date" json:"borrowed_date"`
	DueDate      time.Time  `bun:"due_date" json:"due_date"`
	ReturnedAt   *time.Time `bun:"returned_at" json:"returned_at,omitempty"`
	ReturnCode   string     `bun:"return_code" json:"return_code"`
	BookID       int        `bun:"book_id" json:"book_id"`
	BookTitle    string     `bun:"book_title" json:"book_title"`
	BookAuthor   string     `bun:"book_author" json:"book_author"`
	StudentID    int        `bun:"student_id" json:"student_id"`
	StudentName  string     `bun:"student_name" json:"student_name"`
}

// StudentLoanRow is a student's own loan joined with the book.
type StudentLoanRow struct {
	ID           int        `bun:"id" json:"id"`
	Status       string     `bun:"status" json:"status"`
	BorrowedDate time.Time  `bun:"borrowed_date" json:"borrowed_date"`
	DueDate      time.Time  `bun:"due_date" json:"due_date"`
	ReturnedAt   *time.Time `bun:"returned_at" json:"returned_at,omitempty"`
	BookID       int        `bun:"book_id" json:"book_id"`
	BookTitle    string     `bun:"book_title" json:"book_title"`
	BookAuthor   string     `bun:"book_author" json:"book_author"`
	ImageURL     string     `bun:"image_url" json:"book_image_url"`
}

// LibraryRow is a catalogue title with its all-time borrow count.
type LibraryRow struct {
	ID          int    `bun:"id" json:"id"`
	Title       string `bun:"title" json:"title"`
	Author      string `bun:"author" json:"author"`
	Quantity    int    `bun:"quantity" json:"quantity"`
	ImageURL    string `bun:"image_url" json:"book_image_url"`
	BorrowCount int    `bun:"borrow_count" json:"borrow_count"`
}

type Repository interface {
	AdminDashboard(ctx context.Context) (*AdminDashboard, error)
	StudentDashboard(ctx context.Context, studentID int) (*StudentDashboard, error)
	ListStudents(ctx context.Context) ([]StudentRow, error)
	ListLoans(ctx context.Context, status string) ([]LoanRow, error)
	ListStudentLoans(ctx context.Context, studentID int) ([]StudentLoanRow, error)
	ListLibrary(ctx context.Context) ([]LibraryRow, error)
}

type repository struct {
	db      *bun.DB
	metrics *metrics.Metrics
}

func NewRepository(db *bun.DB, m *metrics.Metrics) Repository {
	return &repository{db: db, metrics: m}
}

func (r *repository) AdminDashboard(ctx context.Context) (*AdminDashboard, error) {
	start := time.Now()
	dash := &AdminDashboard{}
	err := r.db.NewRaw(`
		SELECT
			(SELECT COUNT(*) FROM books) AS total_books,
			(SELECT COUNT(*) FROM students) AS total_students,
			(SELECT COUNT(*) FROM loans WHERE status = 'borrowed') AS borrowed_books,
			(SELECT COUNT(*) FROM loans WHERE status = 'returned') AS returned_books,
			(SELECT COUNT(*) FROM loans WHERE status = 'borrowed' AND due_date < ?) AS overdue_loans,
			(SELECT COALESCE(SUM(quantity), 0) FROM books) AS available_stock
	`, time.Now()).Scan(ctx, &dash.TotalBooks, &dash.TotalStudents, &dash.BorrowedBooks,
		&dash.ReturnedBooks, &dash.OverdueLoans, &dash.AvailableStock)
	r.metrics.Database.RecordQuery(ctx, "select", "dashboard", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("loading admin dashboard: %w", err)
	}
	return dash, nil
}

func (r *repository) StudentDashboard(ctx context.Context, studentID int) (*StudentDashboard, error) {
	start := time.Now()
	dash := &StudentDashboard{}
	err := r.db.NewRaw(`
		SELECT
			COUNT(*) AS total_loans,
			COUNT(*) FILTER (WHERE status = 'borrowed') AS borrowed_books,
			COUNT(*) FILTER (WHERE status = 'returned') AS returned_books,
			COUNT(*) FILTER (WHERE status = 'borrowed' AND due_date < ?) AS overdue_loans,
			(SELECT b.title
				FROM loans nl
				JOIN books b ON b.id = nl.book_id
				WHERE nl.student_id = ? AND nl.status = 'borrowed'
				ORDER BY nl.due_date ASC LIMIT 1) AS next_due_title,
			(SELECT nl.due_date
				FROM loans nl
				WHERE nl.student_id = ? AND nl.status = 'borrowed'
				ORDER BY nl.due_date ASC LIMIT 1) AS next_due_date
		FROM loans
		WHERE student_id = ?
	`, time.Now(), studentID, studentID, studentID).Scan(ctx,
		&dash.TotalLoans, &dash.BorrowedBooks, &dash.ReturnedBooks, &dash.OverdueLoans,
		&dash.NextDueTitle, &dash.NextDueDate)
	r.metrics.Database.RecordQuery(ctx, "select", "dashboard", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("loading student dashboard: %w", err)
	}
	return dash, nil
}

func (r *repository) ListStudents(ctx context.Context) ([]StudentRow, error) {
	start := time.Now()
	var rows []StudentRow
	err := r.db.NewRaw(`
		SELECT s.id, s.name, s.student_number, s.email, s.phone, s.created_at,
			COUNT(l.id) FILTER (WHERE l.status = 'borrowed') AS borrowed_count
		FROM students s
		LEFT JOIN loans l ON l.student_id = s.id
		GROUP BY s.id
		ORDER BY s.created_at DESC
	`).Scan(ctx, &rows)
	r.metrics.Database.RecordQuery(ctx, "select", "students", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("listing students: %w", err)
	}
	return rows, nil
}

func (r *repository) ListLoans(ctx context.Context, status string) ([]LoanRow, error) {
	start := time.Now()
	var rows []LoanRow
	err := r.db.NewRaw(`
		SELECT l.id, l.status, l.borrowed_date, l.due_date, l.returned_at, l.return_code,
			b.id AS book_id, b.title AS book_title, b.author AS book_author,
			s.id AS student_id, s.name AS student_name
		FROM loans l
		JOIN books b ON b.id = l.book_id
		JOIN students s ON s.id = l.student_id
		WHERE l.status = ?
		ORDER BY l.created_at DESC
	`, status).Scan(ctx, &rows)
	r.metrics.Database.RecordQuery(ctx, "select", "loans", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("listing %s loans: %w", status, err)
	}
	return rows, nil
}

func (r *repository) ListStudentLoans(ctx context.Context, studentID int) ([]StudentLoanRow, error) {
	start := time.Now()
	var rows []StudentLoanRow
	err := r.db.NewRaw(`
		SELECT l.id, l.status, l.borrowed_date, l.due_date, l.returned_at,
			b.id AS book_id, b.title AS book_title, b.author AS book_author, b.image_url
		FROM loans l
		JOIN books b ON b.id = l.book_id
		WHERE l.student_id = ?
		ORDER BY l.due_date ASC
	`, studentID).Scan(ctx, &rows)
	r.metrics.Database.RecordQuery(ctx, "select", "loans", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("listing student loans: %w", err)
	}
	return rows, nil
}

func (r *repository) ListLibrary(ctx context.Context) ([]LibraryRow, error) {
	start := time.Now()
	var rows []LibraryRow
	err := r.db.NewRaw(`
		SELECT b.id, b.title, b.author, b.quantity, b.image_url,
			COUNT(l.id) AS borrow_count
		FROM books b
		LEFT JOIN loans l ON l.book_id = b.id
		GROUP BY b.id
		ORDER BY b.title ASC
	`).Scan(ctx, &rows)
	r.metrics.Database.RecordQuery(ctx, "select", "books", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("listing library: %w", err)
	}
	return rows, nil
}
