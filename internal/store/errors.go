package store

import "errors"

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrOwnerSessionNotFound = errors.New("owner session not found")
	ErrDriverNotFound       = errors.New("driver not found")
	ErrEntryNotFound        = errors.New("entry not found")
	ErrEntryForbidden       = errors.New("entry owned by another manager")
	ErrManagerNotFound      = errors.New("manager not found")
	ErrUsernameTaken        = errors.New("username already taken")
)
