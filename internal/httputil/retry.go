// Package httputil holds HTTP helpers shared by the outbound adapters.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay is the first backoff step after an HTTP 429. Tests shrink it.
var RetryBaseDelay = 2 * time.Second

// MaxRetryAfter caps a server-provided Retry-After hint.
var MaxRetryAfter = 2 * time.Minute

const defaultMaxRetries = 3

// DoWithRetry executes req and retries while the server answers 429 Too Many
// Requests. The delay doubles from RetryBaseDelay unless the response carries
// a Retry-After value in seconds. Request bodies are replayed through
// req.GetBody, so callers should build requests with http.NewRequest over a
// bytes reader.
//
// A non-positive maxRetries uses the default (3). After the last retry the
// final 429 response is returned unchanged for the caller to inspect.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if client == nil {
		client = http.DefaultClient
	}

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxRetries {
			return resp, nil
		}

		wait := backoff(attempt, resp.Header.Get("Retry-After"))
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func backoff(attempt int, retryAfter string) time.Duration {
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
		return min(time.Duration(secs)*time.Second, MaxRetryAfter)
	}
	return RetryBaseDelay << attempt
}
