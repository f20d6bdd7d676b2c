package store

import "errors"

var (
	ErrSweepNotFound = errors.New("sweep not found")
	ErrEmptySweepID  = errors.New("sweep id must not be empty")
)
