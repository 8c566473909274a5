package auth

import (
	"time"

	"github.com/uptrace/bun"
)

// Subject roles carried in access tokens.
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// RefreshToken stores refresh tokens in database
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`

	ID        int       `bun:"id,pk,autoincrement"`
	Role      string    `bun:"role,notnull"`
	SubjectID int       `bun:"subject_id,notnull"`
	Token     string    `bun:"token,unique,notnull"`
	ExpiresAt time.Time `bun:"expires_at,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// StudentRegisterRequest is the request body for student registration
type StudentRegisterRequest struct {
	Name          string `json:"name" validate:"required,max=255"`
	StudentNumber string `json:"student_id" validate:"required,len=9"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=6"`
	Phone         string `json:"phone" validate:"required"`
}

// StudentLoginRequest is the request body for student login
type StudentLoginRequest struct {
	StudentNumber string `json:"student_id" validate:"required,len=9"`
	Password      string `json:"password" validate:"required,min=6"`
}

// AdminLoginRequest is the request body for admin login
type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// RefreshRequest is the request body for token refresh and logout
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// AuthResponse is the response for successful authentication
type AuthResponse struct {
	Success      bool        `json:"success"`
	Message      string      `json:"message"`
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	Role         string      `json:"role"`
	Student      interface{} `json:"student,omitempty"`
	Admin        interface{} `json:"admin,omitempty"`
}
