package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// wrapTransport maps a transport-level failure onto the taxonomy.
func wrapTransport(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", name, ErrTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%s: %w: %v", name, ErrProvider, err)
}

// wrapStatus maps a non-2xx provider response onto the taxonomy.
func wrapStatus(name string, status int, body string) error {
	if len(body) > 200 {
		body = body[:200]
	}
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w: %s", name, ErrRateLimited, body)
	}
	return fmt.Errorf("%s: %w: status %d: %s", name, ErrProvider, status, body)
}
