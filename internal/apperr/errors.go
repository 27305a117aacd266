// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrSelfLoop         = errors.New("self-loop edge")
	ErrMalformedEdge    = errors.New("malformed edge")
	ErrUnknownCharacter = errors.New("unknown character")
	ErrEmptyTable       = errors.New("empty alias table")
)
