package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidFormat   = errors.New("invalid iatf file format")
	ErrSectionNotFound = errors.New("section not found")
	ErrNoSections      = errors.New("no sections found")
	ErrNotWatched      = errors.New("file is not being watched")
)
