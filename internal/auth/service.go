package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrDuplicateAccount    = errors.New("student number or email already registered")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

const refreshTokenTTL = 7 * 24 * time.Hour

// Subject identifies the authenticated principal across roles.
type Subject struct {
	ID    int
	Email string
}

// StudentAuthenticator verifies student credentials against their accounts.
type StudentAuthenticator interface {
	Register(ctx context.Context, req StudentRegisterRequest) (Subject, interface{}, error)
	Authenticate(ctx context.Context, studentNumber, password string) (Subject, interface{}, error)
	GetSubject(ctx context.Context, id int) (Subject, interface{}, error)
}

// AdminAuthenticator verifies admin credentials against their accounts.
type AdminAuthenticator interface {
	Authenticate(ctx context.Context, email, password string) (Subject, interface{}, error)
	GetSubject(ctx context.Context, id int) (Subject, interface{}, error)
}

type Service struct {
	repo     *Repository
	students StudentAuthenticator
	admins   AdminAuthenticator
}

func NewService(repo *Repository, students StudentAuthenticator, admins AdminAuthenticator) *Service {
	return &Service{repo: repo, students: students, admins: admins}
}

func (s *Service) RegisterStudent(ctx context.Context, req StudentRegisterRequest) (*AuthResponse, error) {
	subject, record, err := s.students.Register(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := s.issueTokens(ctx, RoleStudent, subject)
	if err != nil {
		return nil, err
	}
	resp.Message = "Student registered successfully"
	resp.Student = record
	return resp, nil
}

func (s *Service) LoginStudent(ctx context.Context, req StudentLoginRequest) (*AuthResponse, error) {
	subject, record, err := s.students.Authenticate(ctx, req.StudentNumber, req.Password)
	if err != nil {
		return nil, err
	}

	resp, err := s.issueTokens(ctx, RoleStudent, subject)
	if err != nil {
		return nil, err
	}
	resp.Message = "Login successful"
	resp.Student = record
	return resp, nil
}

func (s *Service) LoginAdmin(ctx context.Context, req AdminLoginRequest) (*AuthResponse, error) {
	subject, record, err := s.admins.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	resp, err := s.issueTokens(ctx, RoleAdmin, subject)
	if err != nil {
		return nil, err
	}
	resp.Message = "Login successful"
	resp.Admin = record
	return resp, nil
}

// Refresh rotates the refresh token and issues a fresh access token.
func (s *Service) Refresh(ctx context.Context, token string) (*AuthResponse, error) {
	stored, err := s.repo.GetRefreshToken(ctx, token)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	var subject Subject
	switch stored.Role {
	case RoleStudent:
		subject, _, err = s.students.GetSubject(ctx, stored.SubjectID)
	case RoleAdmin:
		subject, _, err = s.admins.GetSubject(ctx, stored.SubjectID)
	default:
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	if err := s.repo.DeleteRefreshToken(ctx, token); err != nil {
		return nil, fmt.Errorf("rotating refresh token: %w", err)
	}

	resp, err := s.issueTokens(ctx, stored.Role, subject)
	if err != nil {
		return nil, err
	}
	resp.Message = "Token refreshed"
	return resp, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.repo.DeleteRefreshToken(ctx, token)
}

func (s *Service) issueTokens(ctx context.Context, role string, subject Subject) (*AuthResponse, error) {
	accessToken, err := GenerateAccessToken(subject.ID, subject.Email, role)
	if err != nil {
		return nil, fmt.Errorf("generating access token: %w", err)
	}

	refreshToken, err := GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generating refresh token: %w", err)
	}

	if err := s.repo.CreateRefreshToken(ctx, role, subject.ID, refreshToken, time.Now().Add(refreshTokenTTL)); err != nil {
		return nil, fmt.Errorf("storing refresh token: %w", err)
	}

	return &AuthResponse{
		Success:      true,
		Token:        accessToken,
		RefreshToken: refreshToken,
		Role:         role,
	}, nil
}
