package book

import (
	"time"

	"github.com/uptrace/bun"
)

// Book is a catalogue title. IDs are random seven digit numbers so the
// printed barcode doubles as the lookup key.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID        int       `bun:"id,pk" json:"id"`
	Title     string    `bun:"title,notnull" json:"title"`
	Author    string    `bun:"author,notnull" json:"author"`
	Quantity  int       `bun:"quantity,notnull" json:"quantity"`
	ImageURL  string    `bun:"image_url" json:"book_image_url"`
	Barcode   []byte    `bun:"barcode,type:bytea" json:"barcode,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// AddBookRequest is the request body for adding a catalogue title
type AddBookRequest struct {
	Title    string `json:"title" validate:"required,max=255"`
	Author   string `json:"author" validate:"required,max=255"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
	ImageURL string `json:"book_image_url" validate:"omitempty,url"`
}

// EditBookRequest is a partial update; nil fields are left unchanged
type EditBookRequest struct {
	Title    *string `json:"title" validate:"omitempty,max=255"`
	Author   *string `json:"author" validate:"omitempty,max=255"`
	Quantity *int    `json:"quantity" validate:"omitempty,min=0"`
	ImageURL *string `json:"book_image_url" validate:"omitempty,url"`
}
