package storefront

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCheckoutInProgress is returned when Checkout is invoked while a previous
// checkout on the same coordinator has not resolved yet.
var ErrCheckoutInProgress = errors.New("checkout already in progress")

// ValidationError indicates that a request is missing required fields or contains invalid data.
type ValidationError struct {
	Fields []FieldError
}

type FieldError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation error"
	}
	if len(e.Fields) == 1 {
		fe := e.Fields[0]
		if fe.Field == "" {
			return fmt.Sprintf("validation error: %s", fe.Message)
		}
		return fmt.Sprintf("validation error: %s: %s", fe.Field, fe.Message)
	}
	return fmt.Sprintf("validation error: %d fields", len(e.Fields))
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// IsValidationError checks whether err is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// APIError represents a non-2xx response from the storefront backend.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	if e == nil {
		return "storefront api error"
	}
	if len(e.Body) == 0 {
		return fmt.Sprintf("storefront api error: status %d", e.StatusCode)
	}
	b := e.Body
	if len(b) > 1024 {
		b = b[:1024]
	}
	return fmt.Sprintf("storefront api error: status %d: %s", e.StatusCode, string(b))
}

// Message extracts the backend's error message from the response body.
// Returns "" when the body carries no message field.
func (e *APIError) Message() string {
	if e == nil || len(e.Body) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Body, &payload); err != nil {
		return ""
	}
	return payload.Message
}

// AuthError is terminal for the current call: no token is present, or the
// refresh procedure failed. A failed refresh also clears the session store.
type AuthError struct {
	Message string
	Cause   error
}

func (e *AuthError) Error() string {
	if e == nil {
		return "auth error"
	}
	if e.Cause == nil {
		return fmt.Sprintf("auth error: %s", e.Message)
	}
	return fmt.Sprintf("auth error: %s: %v", e.Message, e.Cause)
}

func (e *AuthError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsAuthError checks whether err is an *AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// NetworkError is a transport failure or timeout. The caller may retry manually.
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	if e == nil || e.Cause == nil {
		return "network error"
	}
	return fmt.Sprintf("network error: %v", e.Cause)
}

func (e *NetworkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsNetworkError checks whether err is a *NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// UnexpectedFormatError is a success status with a body that did not match the
// expected shape. UIs treat it like a server error; it is kept distinct so the
// logs tell malformed-success apart from a plain 5xx.
type UnexpectedFormatError struct {
	Body  []byte
	Cause error
}

func (e *UnexpectedFormatError) Error() string {
	if e == nil {
		return "unexpected response format"
	}
	return fmt.Sprintf("unexpected response format: %v", e.Cause)
}

func (e *UnexpectedFormatError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// CheckoutError carries the user-facing message for a failed payment creation.
// The message comes from the backend's error body when present.
type CheckoutError struct {
	Message string
	Cause   error
}

func (e *CheckoutError) Error() string {
	if e == nil {
		return "checkout error"
	}
	if e.Cause == nil {
		return fmt.Sprintf("checkout error: %s", e.Message)
	}
	return fmt.Sprintf("checkout error: %s: %v", e.Message, e.Cause)
}

func (e *CheckoutError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
