package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pixshare/pkg/generator"
)

type ServiceInterface interface {
	Register(ctx context.Context, name, email, password string) (*User, string, error)
	Login(ctx context.Context, email, password string) (*User, string, error)
	Logout(ctx context.Context, sessionID string) error
	Profile(ctx context.Context, userID string) (*User, error)
	UpdateProfile(ctx context.Context, userID, name, email string) (*User, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
}

type Service struct {
	Repo     Repository
	Sessions Sessions
	TTL      time.Duration
}

func NewService(repo Repository, sessions Sessions, ttl time.Duration) *Service {
	return &Service{Repo: repo, Sessions: sessions, TTL: ttl}
}

// Register creates the user and opens their first session, returning its id.
func (s *Service) Register(ctx context.Context, name, email, password string) (*User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	exist, err := s.Repo.FindByEmail(ctx, email)
	if exist != nil && err == nil {
		return nil, "", ErrExists
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hashing password error: %w", err)
	}

	userID, err := generator.RandomID(24)
	if err != nil {
		return nil, "", fmt.Errorf("user id gen error: %w", err)
	}

	user := &User{
		ID:       userID,
		Name:     strings.TrimSpace(name),
		Email:    email,
		Password: string(hashedPassword),
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	sessionID, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, sessionID, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.Repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", ErrBadCredentials
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", ErrBadCredentials
	}

	sessionID, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, sessionID, nil
}

func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.Sessions.Invalidate(ctx, sessionID)
}

func (s *Service) Profile(ctx context.Context, userID string) (*User, error) {
	return s.Repo.FindByID(ctx, userID)
}

// UpdateProfile renames the user and moves them to email, which is stored
// lowercased.
func (s *Service) UpdateProfile(ctx context.Context, userID, name, email string) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.Repo.UpdateProfile(ctx, userID, name, email); err != nil {
		return nil, err
	}
	return s.Repo.FindByID(ctx, userID)
}

// ChangePassword replaces the password hash once current matches the stored
// one. Open sessions stay valid.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.Repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(current)); err != nil {
		return ErrWrongPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password error: %w", err)
	}
	return s.Repo.UpdatePassword(ctx, userID, string(hashed))
}

func (s *Service) openSession(ctx context.Context, userID string) (string, error) {
	sessionID, err := generator.SessionID()
	if err != nil {
		return "", fmt.Errorf("session id gen error: %w", err)
	}
	if err := s.Sessions.Create(ctx, userID, sessionID, s.TTL); err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return sessionID, nil
}
