package apperrors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrJobNotFound  = errors.New("job not found")
	ErrNoCandidates = errors.New("no candidate proposals exist")
)
