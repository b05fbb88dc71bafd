package fetcher

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure. The string value is persisted as the
// page's failure reason.
type Kind string

const (
	// KindNetwork covers transport failures: DNS, connect, TLS, timeouts,
	// truncated or undecodable bodies.
	KindNetwork Kind = "network-error"

	// KindNotHTML is returned when the final response is not text/html.
	KindNotHTML Kind = "non-html-content-type"

	// KindTooManyRedirects is returned when the redirect chain exceeds the limit.
	KindTooManyRedirects Kind = "too-many-redirects"
)

// FetchError is the error type returned by Fetcher.Fetch.
type FetchError struct {
	// Kind is the failure category.
	Kind Kind

	// URL is the URL being requested when the failure happened. After a
	// redirect this differs from the URL passed to Fetch.
	URL string

	// Err is the underlying cause, if any.
	Err error
}

// Error returns the failure kind. Details stay available through Unwrap so
// the persisted reason is stable across runs.
func (e *FetchError) Error() string {
	return string(e.Kind)
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Detail returns a human readable description for logs.
func (e *FetchError) Detail() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.URL)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.URL, e.Err)
}

// IsKind reports whether err is a *FetchError of the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == kind
}

// ErrInvalidProxyAddress is returned when a proxy address is not "host:port".
var ErrInvalidProxyAddress = errors.New("invalid proxy address: expected host:port")

func newFetchError(kind Kind, url string, err error) *FetchError {
	return &FetchError{Kind: kind, URL: url, Err: err}
}
