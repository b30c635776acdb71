package store

import "errors"

// Sentinel errors returned by store operations.
var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)
