package notification

import "time"

// BorrowEvent is published after a loan commits and carries everything the
// SMS worker needs without another database round trip.
type BorrowEvent struct {
	LoanID       int       `json:"loan_id"`
	StudentID    int       `json:"student_id"`
	StudentName  string    `json:"student_name"`
	StudentPhone string    `json:"student_phone"`
	BookID       int       `json:"book_id"`
	BookTitle    string    `json:"book_title"`
	BookAuthor   string    `json:"book_author"`
	DueDate      time.Time `json:"due_date"`
}
