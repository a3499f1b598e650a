package apperrors

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidQuery     = errors.New("invalid query")
	ErrPermissionDenied = errors.New("permission denied")
)
