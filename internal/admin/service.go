package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sally-https/book-api-v2/internal/auth"
	"github.com/sally-https/book-api-v2/internal/config"
	"github.com/sally-https/book-api-v2/internal/db"

	"golang.org/x/crypto/bcrypt"
)

var ErrDuplicateEmail = errors.New("email already in use")

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// EnsureDefault seeds the configured admin account when the table is empty,
// so a fresh deployment is immediately usable.
func (s *Service) EnsureDefault(ctx context.Context, cfg config.AdminConfig, logger *slog.Logger) error {
	if cfg.Email == "" || cfg.Password == "" {
		return nil
	}

	count, err := s.repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("checking admin accounts: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}

	if _, err := s.repo.Create(ctx, &Admin{
		Name:     cfg.Name,
		Email:    cfg.Email,
		Password: string(hash),
	}); err != nil {
		return fmt.Errorf("seeding admin account: %w", err)
	}

	logger.InfoContext(ctx, "seeded default admin account", "email", cfg.Email)
	return nil
}

// UpdateProfile applies an admin's partial self-update; nil fields are left
// unchanged and a new password is re-hashed.
func (s *Service) UpdateProfile(ctx context.Context, id int, req UpdateProfileRequest) (*Admin, error) {
	admin, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		admin.Name = *req.Name
	}
	if req.Email != nil {
		admin.Email = *req.Email
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hashing admin password: %w", err)
		}
		admin.Password = string(hash)
	}

	if err := s.repo.Update(ctx, admin); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return admin, nil
}

// Authenticator adapts admin accounts to the authentication flow.
type Authenticator struct {
	repo Repository
}

func NewAuthenticator(repo Repository) *Authenticator {
	return &Authenticator{repo: repo}
}

func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (auth.Subject, interface{}, error) {
	admin, err := a.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAdminNotFound) {
			return auth.Subject{}, nil, auth.ErrInvalidCredentials
		}
		return auth.Subject{}, nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)) != nil {
		return auth.Subject{}, nil, auth.ErrInvalidCredentials
	}

	return auth.Subject{ID: admin.ID, Email: admin.Email}, admin, nil
}

func (a *Authenticator) GetSubject(ctx context.Context, id int) (auth.Subject, interface{}, error) {
	admin, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return auth.Subject{}, nil, err
	}
	return auth.Subject{ID: admin.ID, Email: admin.Email}, admin, nil
}
