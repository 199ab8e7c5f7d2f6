// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"net/http"
	"time"
)

// RetryPolicy bounds retries of transient failures (HTTP 429, 502,
// 503, 504). Other failures are returned immediately. Both backends
// apply the same policy; the zero value sends each request once.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the
	// first. Values below 1 mean 1.
	MaxAttempts int

	// InitialBackoff is the wait before the second attempt. Each
	// later wait doubles, capped at MaxBackoff. Defaults to 100ms.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between attempts. Defaults to 5s.
	MaxBackoff time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 100 * time.Millisecond
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 5 * time.Second
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	return p
}

// backoff returns the wait after the given failed attempt (1-based):
// InitialBackoff after the first, doubling after each later one, never
// above MaxBackoff. p must have defaults applied.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.InitialBackoff
	for i := 1; i < attempt && delay < p.MaxBackoff; i++ {
		delay *= 2
	}
	return min(delay, p.MaxBackoff)
}

// retryableStatus reports whether an HTTP status marks a throttled or
// briefly unavailable store.
func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
