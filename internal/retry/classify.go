package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// retryableError is implemented by errors that know their own verdict,
// e.g. HTTP status errors from the econ client.
type retryableError interface {
	IsRetryable() bool
}

// Transient is the default Classifier. Network timeouts, interrupted
// transport, and errors that declare themselves retryable get another
// attempt; context cancellation and anything that looks like a client
// mistake abort immediately.
func Transient(err error) bool {
	if err == nil {
		return false
	}

	// A canceled run is not a flaky provider.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var re retryableError
	if errors.As(err, &re) {
		return re.IsRetryable()
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	return false
}

// Always marks every error retryable. Used where the whole operation is a
// network call and the only permanent failure mode is running out of
// budget, e.g. the broker connect loop.
func Always(error) bool { return true }
