// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
)

// Kind classifies a fetch failure.
type Kind string

const (
	// KindNotFound means the source has no such researcher or no works.
	// It is a valid empty result, not an error.
	KindNotFound Kind = "NOT_FOUND"

	// KindTimeout means the request exceeded its deadline.
	KindTimeout Kind = "TIMEOUT"

	// KindNetwork means the source could not be reached.
	KindNetwork Kind = "NETWORK_ERROR"

	// KindRateLimited means the source kept refusing with HTTP 429 or a
	// captcha page after the allowed backoff retries.
	KindRateLimited Kind = "RATE_LIMITED"

	// KindAuth means credentials were rejected. It aborts the whole run.
	KindAuth Kind = "AUTH_ERROR"

	// KindUnexpected covers every other failure.
	KindUnexpected Kind = "UNEXPECTED"
)

// Failure is the error type returned by every Fetcher.
type Failure struct {
	Kind       Kind
	StatusCode int

	// Message is the human-readable text reported by the source, when it
	// sent one (for example ORCID's "user-message").
	Message string

	Err error
}

func (f *Failure) Error() string {
	switch {
	case f.Message != "" && f.StatusCode != 0:
		return fmt.Sprintf("%s (status %d): %s", f.Kind, f.StatusCode, f.Message)
	case f.Message != "":
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	case f.StatusCode != 0 && f.Err != nil:
		return fmt.Sprintf("%s (status %d): %v", f.Kind, f.StatusCode, f.Err)
	case f.StatusCode != 0:
		return fmt.Sprintf("%s (status %d)", f.Kind, f.StatusCode)
	case f.Err != nil:
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	default:
		return string(f.Kind)
	}
}

func (f *Failure) Unwrap() error { return f.Err }

// Is lets errors.Is match a Failure against a sentinel of the same kind.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	return ok && t.Kind == f.Kind && t.StatusCode == 0 && t.Message == "" && t.Err == nil
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound    = &Failure{Kind: KindNotFound}
	ErrTimeout     = &Failure{Kind: KindTimeout}
	ErrNetwork     = &Failure{Kind: KindNetwork}
	ErrRateLimited = &Failure{Kind: KindRateLimited}
	ErrAuth        = &Failure{Kind: KindAuth}
	ErrUnexpected  = &Failure{Kind: KindUnexpected}
)

// Fail builds a Failure of the given kind wrapping err.
func Fail(kind Kind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// FromStatus maps an HTTP status to a Failure. It returns nil for 2xx.
func FromStatus(status int, message string) *Failure {
	var kind Kind
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = KindAuth
	case status == http.StatusNotFound || status == http.StatusGone:
		kind = KindNotFound
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		kind = KindTimeout
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable:
		kind = KindNetwork
	default:
		kind = KindUnexpected
	}
	return &Failure{Kind: kind, StatusCode: status, Message: message}
}

// Classify returns the Kind of any error. A *Failure keeps its own kind;
// transport errors are mapped to Timeout or Network; everything else is
// Unexpected. Classify(nil) is "".
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	var urlErr *url.Error
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) || errors.As(err, &urlErr) {
		return KindNetwork
	}
	return KindUnexpected
}

// Wrap converts a transport or decoding error into a *Failure, keeping an
// existing Failure untouched. Context cancellation is returned unchanged
// so callers can tell an operator interrupt from a source failure.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var f *Failure
	if errors.As(err, &f) {
		return err
	}
	return &Failure{Kind: Classify(err), Err: err}
}

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	return Classify(err) == KindAuth
}

// IsNotFound reports whether err means "no works" rather than a failure.
func IsNotFound(err error) bool {
	return Classify(err) == KindNotFound
}
