package feed

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork matches any request that failed after its retries.
	ErrNetwork = errors.New("feed request failed")
	// ErrAuthentication is returned by Ping when the smoke test does not pass.
	ErrAuthentication = errors.New("feed authentication failed")
)

// FetchError carries the outcome of the final attempt of a request.
type FetchError struct {
	URL        string
	StatusCode int // 0 when the request never got a response
	Attempts   int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		if e.Body != "" {
			return fmt.Sprintf("feed %s: status %d after %d attempt(s): %s", e.URL, e.StatusCode, e.Attempts, e.Body)
		}
		return fmt.Sprintf("feed %s: status %d after %d attempt(s)", e.URL, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("feed %s: %v after %d attempt(s)", e.URL, e.Err, e.Attempts)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrNetwork }
