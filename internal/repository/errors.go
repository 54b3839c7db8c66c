package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a concurrent writer won a uniqueness race,
	// e.g. two transactions rotating the same refresh token.
	ErrConflict = errors.New("repository: conflict")
)
