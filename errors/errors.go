package errors

import "fmt"

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong
	// passwords, to avoid leaking which one failed.
	ErrInvalidCredentials = fmt.Errorf("invalid username or password")
	ErrUserAlreadyExists  = fmt.Errorf("username already taken")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity rules")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrNoRecipient        = fmt.Errorf("no recipient selected")
	ErrInvalidTarget      = fmt.Errorf("invalid recipient name")
	ErrInvalidUsername    = fmt.Errorf("username does not meet format rules")
	ErrStoreUnavailable   = fmt.Errorf("store unavailable")
	ErrContentTooLong     = fmt.Errorf("message content too long")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)
