package users

import (
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
)

type User struct {
	ID           int64     `json:"id" example:"1"`
	Username     string    `json:"username" example:"seller1"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at" example:"2026-02-24T12:00:00Z"`
}
