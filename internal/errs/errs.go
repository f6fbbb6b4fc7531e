// Package errs defines the error taxonomy shared across layers so handlers
// can map failures to stable machine-readable kinds.
package errs

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind identifies a class of failure. The string value is part of the wire
// contract: clients switch on it.
type Kind string

const (
	// KindKeyStorage means the key pair on disk is unreadable and could not
	// be regenerated. Fatal: no login can be authenticated without it.
	KindKeyStorage Kind = "key_storage"

	// KindEncryption and KindDecryption cover credential-transport crypto.
	// Both are treated as authentication failures at the boundary.
	KindEncryption Kind = "encryption_failed"
	KindDecryption Kind = "decryption_failed"

	// KindAuthRequired means there is no valid session.
	KindAuthRequired Kind = "auth_required"

	// KindChallenge means the upstream demands interactive verification
	// that this server cannot resolve automatically.
	KindChallenge Kind = "challenge_required"

	// KindRateLimited means the upstream is throttling us.
	KindRateLimited Kind = "rate_limited"

	// KindNotFound covers missing threads; KindUserNotFound missing handles.
	KindNotFound     Kind = "not_found"
	KindUserNotFound Kind = "user_not_found"

	// KindTransient covers network errors and upstream 5xx. Retried
	// internally; surfaced only after the retry budget is exhausted.
	KindTransient Kind = "upstream_unavailable"

	// KindFatal means the upstream answered in a shape we do not recognize.
	// Never retried.
	KindFatal Kind = "upstream_error"

	// KindValidation covers malformed client input.
	KindValidation Kind = "validation"
)

// Error carries a kind plus a human-readable message. RetryAfter is a hint
// populated for rate-limited failures when the upstream provides one.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration

	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause without exposing it in Message. The cause is for
// logs; Message is what clients see.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the kind from err, or KindFatal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindFatal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// RetryAfterOf returns the retry-after hint from err, if any.
func RetryAfterOf(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}

// HTTPStatus maps a kind to the status code the transport contract assigns it.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindEncryption, KindDecryption, KindAuthRequired:
		return http.StatusUnauthorized
	case KindChallenge:
		return http.StatusForbidden
	case KindNotFound, KindUserNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindTransient:
		return http.StatusBadGateway
	case KindFatal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
