package student

import (
	"context"
	"errors"

	"github.com/sally-https/book-api-v2/internal/auth"

	"golang.org/x/crypto/bcrypt"
)

// Authenticator adapts student accounts to the authentication flow.
type Authenticator struct {
	service Service
	repo    Repository
}

func NewAuthenticator(service Service, repo Repository) *Authenticator {
	return &Authenticator{service: service, repo: repo}
}

func (a *Authenticator) Register(ctx context.Context, req auth.StudentRegisterRequest) (auth.Subject, interface{}, error) {
	created, err := a.service.CreateStudent(ctx, AddStudentRequest{
		Name:          req.Name,
		StudentNumber: req.StudentNumber,
		Email:         req.Email,
		Password:      req.Password,
		Phone:         req.Phone,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateRecord) {
			return auth.Subject{}, nil, auth.ErrDuplicateAccount
		}
		return auth.Subject{}, nil, err
	}
	return auth.Subject{ID: created.ID, Email: created.Email}, created, nil
}

func (a *Authenticator) Authenticate(ctx context.Context, studentNumber, password string) (auth.Subject, interface{}, error) {
	s, err := a.repo.GetByStudentNumber(ctx, studentNumber)
	if err != nil {
		if errors.Is(err, ErrStudentNotFound) {
			return auth.Subject{}, nil, auth.ErrInvalidCredentials
		}
		return auth.Subject{}, nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(s.Password), []byte(password)) != nil {
		return auth.Subject{}, nil, auth.ErrInvalidCredentials
	}

	return auth.Subject{ID: s.ID, Email: s.Email}, s, nil
}

func (a *Authenticator) GetSubject(ctx context.Context, id int) (auth.Subject, interface{}, error) {
	s, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return auth.Subject{}, nil, err
	}
	return auth.Subject{ID: s.ID, Email: s.Email}, s, nil
}
