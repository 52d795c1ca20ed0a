package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/draftforge/draftforge-go/internal/knowledge"
)

// Sentinel errors classifying vendor call failures. Callers match them
// with errors.Is to decide whether a retry, a credential fix, or a code
// change is needed.
var (
	// ErrAuthentication means the credential was rejected. The user must
	// fix the key and retry; retrying unchanged cannot succeed.
	ErrAuthentication = errors.New("provider: invalid credential")

	// ErrTransient means a network, rate-limit, or server-side failure.
	// Retrying the same call later is safe.
	ErrTransient = errors.New("provider: transient failure")

	// ErrUnsupported means the vendor's API no longer matches the shape
	// this implementation expects. Not retryable without a code change.
	ErrUnsupported = errors.New("provider: vendor contract mismatch")
)

// Operation names used in error messages, so callers can tell "your key
// can't embed" apart from "your key can't generate".
const (
	opListModels = "list models"
	opEmbed      = "embed"
	opGenerate   = "generate"
)

// Error is a classified vendor call failure. It unwraps to both its kind
// sentinel and the underlying cause.
type Error struct {
	// Vendor identifies the backend that failed.
	Vendor knowledge.Vendor

	// Op is the operation that failed: "list models", "embed", or "generate".
	Op string

	// Kind is one of ErrAuthentication, ErrTransient, ErrUnsupported.
	Kind error

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("provider: %s %s: %v", e.Vendor, e.Op, e.Err)
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// vendorErr wraps err as a classified *Error. A nil kind is inferred from
// the error text via classify.
func vendorErr(vendor knowledge.Vendor, op string, kind, err error) error {
	if kind == nil {
		kind = classify(err)
	}
	return &Error{Vendor: vendor, Op: op, Kind: kind, Err: err}
}

// classifyStatus maps an HTTP status code to an error kind. 2xx codes are
// the caller's responsibility — this is only called on failures.
func classifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuthentication
	case status == http.StatusTooManyRequests || status >= 500:
		return ErrTransient
	default:
		return ErrUnsupported
	}
}

// classify guesses the error kind from an opaque SDK error. Transport and
// rate-limit failures are retryable; credential rejections are not.
// Anything unrecognisable defaults to transient so callers err on the side
// of retrying rather than demanding a code change.
func classify(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") ||
		strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "unauthenticated") ||
		strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "invalid api key") ||
		strings.Contains(msg, "api key not valid"):
		return ErrAuthentication
	case strings.Contains(msg, "unmarshal") ||
		strings.Contains(msg, "unexpected end of json") ||
		strings.Contains(msg, "cannot parse"):
		return ErrUnsupported
	default:
		return ErrTransient
	}
}
