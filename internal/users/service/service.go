package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sale-products/internal/users"

	"golang.org/x/crypto/bcrypt"
)

type Repository interface {
	Create(ctx context.Context, username, passwordHash string) (users.User, error)
	FindByID(ctx context.Context, id int64) (users.User, error)
	FindByUsername(ctx context.Context, username string) (users.User, error)
}

type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register stores a user with a bcrypt hash of password.
func (s *Service) Register(ctx context.Context, username, password string) (users.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return users.User{}, users.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return users.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.repo.Create(ctx, username, string(hash))
	if err != nil {
		return users.User{}, fmt.Errorf("repo create: %w", err)
	}
	return u, nil
}

// Authenticate returns the user when password matches. Unknown users and
// wrong passwords both yield users.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (users.User, error) {
	u, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.User{}, users.ErrInvalidCredentials
		}
		return users.User{}, fmt.Errorf("repo find: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return users.User{}, users.ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (users.User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return users.User{}, fmt.Errorf("repo find: %w", err)
	}
	return u, nil
}
