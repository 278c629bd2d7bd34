package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxRetries = 3

var baseDelay = 2 * time.Second

func isRetryableStatus(code int) bool {
	return code == 429 || code == 529 || code == 503 || code == 502 || code == 500
}

func isRetryableError(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "529") ||
		strings.Contains(errStr, "overloaded") ||
		strings.Contains(errStr, "Overloaded") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "502")
}

// backoff waits before the next attempt. It returns early with the context
// error if ctx is done first.
func backoff(ctx context.Context, attempt int) error {
	delay := baseDelay * time.Duration(1<<attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// withRetry runs call up to maxRetries times, backing off between attempts
// while call reports the failure as transient.
func withRetry(ctx context.Context, call func() (retry bool, err error)) error {
	var err error
	for attempt := range maxRetries {
		var retry bool
		if retry, err = call(); err == nil || !retry {
			return err
		}
		if attempt < maxRetries-1 {
			if waitErr := backoff(ctx, attempt); waitErr != nil {
				return waitErr
			}
		}
	}
	return err
}

// postJSON sends body to url, retrying on transient statuses, and returns the
// body of the first 200 response.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body []byte) ([]byte, error) {
	var respBody []byte

	err := withRetry(ctx, func() (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return false, fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return false, fmt.Errorf("http request: %w", err)
		}

		respBody, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return false, fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return false, nil
		}
		return isRetryableStatus(resp.StatusCode), &APIError{Provider: provider, Status: resp.StatusCode, Body: string(respBody)}
	})
	if err != nil {
		return nil, err
	}
	return respBody, nil
}
