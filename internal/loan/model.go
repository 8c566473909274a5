package loan

import (
	"time"

	"github.com/uptrace/bun"
)

// Loan statuses.
const (
	StatusBorrowed = "borrowed"
	StatusReturned = "returned"
)

// Loan records a single borrowing of one copy of a title.
type Loan struct {
	bun.BaseModel `bun:"table:loans,alias:l"`

	ID           int        `bun:"id,pk,autoincrement" json:"id"`
	StudentID    int        `bun:"student_id,notnull" json:"student_id"`
	BookID       int        `bun:"book_id,notnull" json:"book_id"`
	Status       string     `bun:"status,notnull,default:'borrowed'" json:"status"`
	BorrowedDate time.Time  `bun:"borrowed_date,notnull" json:"borrowed_date"`
	DueDate      time.Time  `bun:"due_date,notnull" json:"due_date"`
	ReturnedAt   *time.Time `bun:"returned_at" json:"returned_at,omitempty"`
	ReturnCode   string     `bun:"return_code,notnull" json:"-"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// BorrowRequest is the request body for borrowing a book
type BorrowRequest struct {
	BookID int `json:"book_id" validate:"required"`
	Days   int `json:"days" validate:"required,min=1,max=7"`
}

// ReturnRequest is the request body for returning a borrowed book. The code
// is deliberately not length-checked: any mismatch, malformed or not, comes
// back as the same generic invalid-return error.
type ReturnRequest struct {
	BorrowedBookID int    `json:"borrowed_book_id" validate:"required"`
	ReturnCode     string `json:"return_code" validate:"required"`
}

// BorrowedBook is the borrow response payload, return code included so the
// student can present it at the desk.
type BorrowedBook struct {
	ID           int       `json:"id"`
	StudentID    int       `json:"student_id"`
	BookID       int       `json:"book_id"`
	Status       string    `json:"status"`
	BorrowedDate time.Time `json:"borrowed_date"`
	DueDate      time.Time `json:"due_date"`
	ReturnCode   string    `json:"return_code"`
}
