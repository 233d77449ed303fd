package usecase

import "errors"

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrNotFound               = errors.New("resource not found")
	ErrConflict               = errors.New("conflict")
	ErrCapacityExceeded       = errors.New("capacity exceeded")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrReplacementUnavailable = errors.New("no eligible replacement tracker")
	ErrDependencyUnavailable  = errors.New("dependency unavailable")
)
