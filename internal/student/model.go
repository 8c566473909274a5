package student

import (
	"time"

	"github.com/uptrace/bun"
)

type Student struct {
	bun.BaseModel `bun:"table:students,alias:s"`

	ID            int       `bun:"id,pk,autoincrement" json:"id"`
	Name          string    `bun:"name,notnull" json:"name"`
	StudentNumber string    `bun:"student_number,unique,notnull" json:"student_id"`
	Email         string    `bun:"email,unique,notnull" json:"email"`
	Password      string    `bun:"password,notnull" json:"-"` // Never expose password hash in JSON
	Phone         string    `bun:"phone" json:"phone"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// AddStudentRequest is the admin request body for creating a student
type AddStudentRequest struct {
	Name          string `json:"name" validate:"required,max=255"`
	StudentNumber string `json:"student_id" validate:"required,len=9"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=6"`
	Phone         string `json:"phone"`
}

// EditStudentRequest is a partial update; nil fields are left unchanged
type EditStudentRequest struct {
	Name          *string `json:"name" validate:"omitempty,max=255"`
	StudentNumber *string `json:"student_id" validate:"omitempty,len=9"`
	Email         *string `json:"email" validate:"omitempty,email"`
	Password      *string `json:"password" validate:"omitempty,min=6"`
	Phone         *string `json:"phone"`
}

// UpdateProfileRequest is the student's own partial profile update
type UpdateProfileRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=255"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6"`
	Phone    *string `json:"phone"`
}
