package service

import "errors"

var (
	ErrMatrixNotFound     = errors.New("access matrix not found")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidAction      = errors.New("invalid action")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrScopeViolation     = errors.New("unauthorized: entry belongs to another scope")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
)
