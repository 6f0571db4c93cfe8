package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Sentinel errors for the domain layer. These provide consistent, checkable
// errors for common business logic failures.
var (
	ErrNotFound     = errors.New("requested resource not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrAuth matches identity errors caused by a rejected session or key,
	// so the UI can prompt for re-authentication.
	ErrAuth = errors.New("authentication rejected")
	// ErrForbidden is returned when a token is valid but not for the target user.
	ErrForbidden = errors.New("forbidden")
)

// ErrorKind is the single discriminator the coordinator branches on.
type ErrorKind string

const (
	KindNone     ErrorKind = ""
	KindIdentity ErrorKind = "identity"
	KindNetwork  ErrorKind = "network"
	KindAuth     ErrorKind = "auth"
	KindInvalid  ErrorKind = "invalid"
)

// IdentityError is a structured rejection from the identity provider.
type IdentityError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *IdentityError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("identity provider: %s (%s)", e.Message, e.Code)
	}
	return "identity provider: " + e.Message
}

func (e *IdentityError) Unwrap() error { return e.Err }

// Is matches ErrAuth for session and credential failures.
func (e *IdentityError) Is(target error) bool {
	return target == ErrAuth && e.IsAuth()
}

// IsAuth reports whether the provider rejected the caller rather than the data.
func (e *IdentityError) IsAuth() bool {
	if e.Status == 401 || e.Status == 403 {
		return true
	}
	switch e.Code {
	case "authentication_invalid", "session_invalid", "session_expired", "unauthorized":
		return true
	}
	return false
}

// NetworkError reports a failed call to the application store, either a
// transport failure or a non-2xx response.
type NetworkError struct {
	Status  int
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("application store: %s (status %d)", e.Message, e.Status)
	}
	return "application store: " + e.Message
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError wraps input that failed validation.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "invalid input: " + e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// Message is the text shown to users. Struct validation failures name the
// offending fields rather than echoing the validator's diagnostics.
func (e *ValidationError) Message() string {
	var verrs validator.ValidationErrors
	if errors.As(e.Err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
		return "Invalid value for " + strings.Join(fields, ", ")
	}
	return e.Err.Error()
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// KindOf classifies err for outcome reporting.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var idErr *IdentityError
	if errors.As(err, &idErr) {
		if idErr.IsAuth() {
			return KindAuth
		}
		return KindIdentity
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	if errors.Is(err, ErrInvalidInput) {
		return KindInvalid
	}
	return KindNetwork
}

// MessageOf extracts the human-readable part of a client error.
func MessageOf(err error) string {
	var idErr *IdentityError
	if errors.As(err, &idErr) {
		return idErr.Message
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Message
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Message()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
