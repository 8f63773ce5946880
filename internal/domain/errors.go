package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrInvalidInput    = errors.New("invalid input")
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrEnhancerFailure = errors.New("enhancer failure")
)
