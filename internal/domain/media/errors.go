package media

import "errors"

var (
	ErrNotFound        = errors.New("media not found")
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file exceeds maximum allowed size")
	ErrInvalidMimeType = errors.New("file type is not allowed")
	ErrNotClaimable    = errors.New("media is not pending")
	ErrNotRetryable    = errors.New("only failed media can be retried")
	ErrCompleted       = errors.New("completed media is immutable")
)
