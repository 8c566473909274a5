package student

import (
	"context"
	"errors"
	"fmt"

	"github.com/sally-https/book-api-v2/internal/auth"
	"github.com/sally-https/book-api-v2/internal/db"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrStudentNotFound = errors.New("student not found")
	ErrDuplicateRecord = errors.New("student number or email already in use")
	ErrInvalidInput    = errors.New("invalid input")
)

type Service interface {
	CreateStudent(ctx context.Context, req AddStudentRequest) (*Student, error)
	GetStudentByID(ctx context.Context, id int) (*Student, error)
	EditStudent(ctx context.Context, id int, req EditStudentRequest) (*Student, error)
	UpdateProfile(ctx context.Context, id int, req UpdateProfileRequest) (*Student, error)
	DeleteStudent(ctx context.Context, id int) error
}

// TokenRevoker drops every stored refresh token for a subject.
type TokenRevoker interface {
	DeleteSubjectTokens(ctx context.Context, role string, subjectID int) error
}

type service struct {
	repo     Repository
	sessions TokenRevoker
}

func NewService(repo Repository, sessions TokenRevoker) Service {
	return &service{
		repo:     repo,
		sessions: sessions,
	}
}

func (s *service) CreateStudent(ctx context.Context, req AddStudentRequest) (*Student, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, &Student{
		Name:          req.Name,
		StudentNumber: req.StudentNumber,
		Email:         req.Email,
		Password:      string(hashed),
		Phone:         req.Phone,
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrDuplicateRecord
		}
		return nil, err
	}
	return created, nil
}

func (s *service) GetStudentByID(ctx context.Context, id int) (*Student, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *service) EditStudent(ctx context.Context, id int, req EditStudentRequest) (*Student, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}

	stud, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		stud.Name = *req.Name
	}
	if req.StudentNumber != nil {
		stud.StudentNumber = *req.StudentNumber
	}
	if req.Email != nil {
		stud.Email = *req.Email
	}
	if req.Phone != nil {
		stud.Phone = *req.Phone
	}
	if req.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		stud.Password = string(hashed)
	}

	if err := s.repo.Update(ctx, stud); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrDuplicateRecord
		}
		return nil, err
	}
	return stud, nil
}

func (s *service) UpdateProfile(ctx context.Context, id int, req UpdateProfileRequest) (*Student, error) {
	return s.EditStudent(ctx, id, EditStudentRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
}

func (s *service) DeleteStudent(ctx context.Context, id int) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	// Without this a deleted student could refresh back into a session.
	if s.sessions != nil {
		if err := s.sessions.DeleteSubjectTokens(ctx, auth.RoleStudent, id); err != nil {
			return fmt.Errorf("revoking sessions for deleted student: %w", err)
		}
	}
	return nil
}
