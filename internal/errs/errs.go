package errs

import "errors"

// Domain sentinel errors for mapping to HTTP codes in handlers.
var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrUserNotFound    = errors.New("user not found")

	ErrChannelFull     = errors.New("channel is full")
	ErrGroupNotAllowed = errors.New("access denied for user group")
	ErrForbidden       = errors.New("insufficient role")

	// ErrLockTimeout is retryable: the chunk was not applied and the
	// session buffer is untouched.
	ErrLockTimeout = errors.New("session lock acquisition timed out")

	ErrConversionFailed    = errors.New("audio conversion failed")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrTokenInvalid        = errors.New("token verification failed")
)
