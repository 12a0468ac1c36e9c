package poll_errors

import "errors"

// Common errors
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrAlreadyExists      = errors.New("already exists")
	ErrPollClosed         = errors.New("poll is closed")
	ErrPollRemoved        = errors.New("poll has been removed")
	ErrInvalidOption      = errors.New("invalid option")
	ErrMalformedMessage   = errors.New("malformed message")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrServiceUnavailable = errors.New("service unavailable")
)
