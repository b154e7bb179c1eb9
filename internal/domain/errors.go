package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStateNotFound is returned when an OAuth state nonce is unknown,
	// expired, or was already consumed.
	ErrStateNotFound = errors.New("oauth state not found")

	// ErrDuplicateState is returned when a state nonce already exists.
	// With 128 bits of entropy this should never happen.
	ErrDuplicateState = errors.New("oauth state already exists")

	// ErrNotInstalled is returned when no session exists for a shop. This is
	// a normal caller-visible condition, mapped to an authentication-required
	// error at the HTTP boundary.
	ErrNotInstalled = errors.New("shop not installed")
)

// TokenExchangeError is a hard failure of the one-shot code-for-token
// exchange. The raw response body is kept for server-side diagnostics only.
type TokenExchangeError struct {
	Status int
	Body   string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: status %d", e.Status)
}

// MetafieldWriteError carries the field-level validation errors the Admin API
// returned for a metafield write. The write is not retried.
type MetafieldWriteError struct {
	Errors []FieldError
}

// FieldError is one userError entry from a metafieldsSet mutation.
type FieldError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

func (e *MetafieldWriteError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return "metafield write rejected: " + strings.Join(msgs, "; ")
}
