// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/chunkfs/lib/clock"
	"github.com/bureau-foundation/chunkfs/lib/netutil"
	"github.com/bureau-foundation/chunkfs/lib/secret"
)

// ChunkPlaceholder is replaced by the path-escaped chunk ID in
// HTTPConfig.URLTemplate.
const ChunkPlaceholder = "{chunk}"

// DefaultTimeout bounds a single fetch attempt when HTTPConfig.Timeout
// is zero.
const DefaultTimeout = 30 * time.Second

// HTTPConfig configures an HTTPFetcher.
//
// Exactly one of URLTemplate and BaseURL must be set.
type HTTPConfig struct {
	// URLTemplate is the chunk URL with ChunkPlaceholder marking where
	// the chunk ID goes, for example
	// "https://www.googleapis.com/drive/v3/files/{chunk}?alt=media".
	URLTemplate string

	// BaseURL is a URL prefix; the chunk URL is BaseURL + "/" + ID.
	BaseURL string

	// Token is sent as "Authorization: Bearer <token>" on every
	// request. The buffer is borrowed and must stay open for the
	// fetcher's lifetime.
	Token *secret.Buffer

	// HTTPClient performs requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Timeout bounds each attempt. Defaults to DefaultTimeout.
	Timeout time.Duration

	// Retry controls re-sending requests that failed with a transient
	// status. The zero value sends each request once.
	Retry RetryPolicy

	// MaxBodySize caps a response body. Defaults to
	// netutil.MaxBodySize.
	MaxBodySize int64

	// Clock provides time operations. Defaults to clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// HTTPFetcher fetches chunks over HTTP. It holds no mutable state and
// is safe for concurrent use.
type HTTPFetcher struct {
	urlTemplate string
	token       *secret.Buffer
	httpClient  *http.Client
	timeout     time.Duration
	retry       RetryPolicy
	maxBodySize int64
	clock       clock.Clock
	logger      *slog.Logger
}

// NewHTTP validates config and returns an HTTPFetcher.
func NewHTTP(config HTTPConfig) (*HTTPFetcher, error) {
	template, err := resolveURLTemplate(config.URLTemplate, config.BaseURL)
	if err != nil {
		return nil, err
	}
	if config.Token == nil {
		return nil, fmt.Errorf("fetch: bearer token is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	retry := config.Retry.withDefaults()

	maxBodySize := config.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = netutil.MaxBodySize
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPFetcher{
		urlTemplate: template,
		token:       config.Token,
		httpClient:  httpClient,
		timeout:     timeout,
		retry:       retry,
		maxBodySize: maxBodySize,
		clock:       clk,
		logger:      logger,
	}, nil
}

func resolveURLTemplate(template, baseURL string) (string, error) {
	switch {
	case template != "" && baseURL != "":
		return "", fmt.Errorf("fetch: set either a URL template or a base URL, not both")
	case template == "" && baseURL == "":
		return "", fmt.Errorf("fetch: a URL template or a base URL is required")
	case baseURL != "":
		template = strings.TrimRight(baseURL, "/") + "/" + ChunkPlaceholder
	}

	if strings.Count(template, ChunkPlaceholder) != 1 {
		return "", fmt.Errorf("fetch: URL template %q must contain %s exactly once", template, ChunkPlaceholder)
	}
	parsed, err := url.Parse(strings.Replace(template, ChunkPlaceholder, "x", 1))
	if err != nil {
		return "", fmt.Errorf("fetch: invalid URL template %q: %w", template, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("fetch: URL template %q must use http or https", template)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("fetch: URL template %q has no host", template)
	}
	return template, nil
}

// ChunkURL returns the URL requested for chunkID.
func (f *HTTPFetcher) ChunkURL(chunkID string) string {
	return strings.Replace(f.urlTemplate, ChunkPlaceholder, url.PathEscape(chunkID), 1)
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, chunkID string, sub *Range) ([]byte, error) {
	if sub != nil {
		if err := sub.validate(); err != nil {
			return nil, &Error{ChunkID: chunkID, Range: sub, Kind: KindInvalidRange, Err: err}
		}
	}

	chunkURL := f.ChunkURL(chunkID)
	for attempt := 1; ; attempt++ {
		data, err := f.attempt(ctx, chunkURL, chunkID, sub)
		if err == nil {
			return data, nil
		}
		if attempt >= f.retry.MaxAttempts || !retryable(err) {
			return nil, err
		}

		backoff := f.retry.backoff(attempt)
		f.logger.Warn("retrying chunk fetch",
			"chunk", chunkID,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		select {
		case <-f.clock.After(backoff):
		case <-ctx.Done():
			return nil, &Error{ChunkID: chunkID, Range: sub, Kind: KindTransport, Message: "cancelled during retry backoff", Err: ctx.Err()}
		}
	}
}

// attempt performs one request.
func (f *HTTPFetcher) attempt(ctx context.Context, chunkURL, chunkID string, sub *Range) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, chunkURL, nil)
	if err != nil {
		return nil, &Error{ChunkID: chunkID, Range: sub, Kind: KindTransport, Err: err}
	}
	requestID := uuid.NewString()
	request.Header.Set("Authorization", "Bearer "+f.token.String())
	request.Header.Set("X-Request-Id", requestID)
	if sub != nil {
		request.Header.Set("Range", sub.String())
	}

	started := f.clock.Now()
	response, err := f.httpClient.Do(request)
	if err != nil {
		return nil, f.transportError(ctx, attemptCtx, chunkID, sub, err)
	}
	defer response.Body.Close()

	data, err := f.readResponse(ctx, attemptCtx, response, chunkID, sub)
	f.logger.Debug("chunk fetch",
		"chunk", chunkID,
		"range", rangeAttr(sub),
		"status", response.StatusCode,
		"bytes", len(data),
		"request_id", requestID,
		"duration", f.clock.Now().Sub(started),
	)
	return data, err
}

func (f *HTTPFetcher) readResponse(ctx, attemptCtx context.Context, response *http.Response, chunkID string, sub *Range) ([]byte, error) {
	switch response.StatusCode {
	case http.StatusOK:
		body, err := f.readBody(ctx, attemptCtx, response, chunkID, sub)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			if err := checkBody(chunkID, nil, body, response.ContentLength); err != nil {
				return nil, err
			}
			return body, nil
		}
		// The server ignored the Range header and sent the whole
		// chunk. Slice locally when it covers the range.
		if int64(len(body)) <= sub.End {
			return nil, &Error{
				ChunkID: chunkID,
				Range:   sub,
				Kind:    KindShortBody,
				Message: fmt.Sprintf("full response of %d bytes does not cover the range", len(body)),
			}
		}
		return bytes.Clone(body[sub.Start : sub.End+1]), nil

	case http.StatusPartialContent:
		if sub == nil {
			return nil, &Error{ChunkID: chunkID, Kind: KindStatus, StatusCode: response.StatusCode, Message: "partial content for a whole-chunk request"}
		}
		if err := checkContentRange(response.Header.Get("Content-Range"), *sub); err != nil {
			return nil, &Error{ChunkID: chunkID, Range: sub, Kind: KindStatus, StatusCode: response.StatusCode, Err: err}
		}
		body, err := f.readBody(ctx, attemptCtx, response, chunkID, sub)
		if err != nil {
			return nil, err
		}
		if err := checkBody(chunkID, sub, body, -1); err != nil {
			return nil, err
		}
		return body, nil
	}

	fetchErr := &Error{
		ChunkID:    chunkID,
		Range:      sub,
		Kind:       statusKind(response.StatusCode),
		StatusCode: response.StatusCode,
		Message:    strings.TrimSpace(netutil.ErrorBody(response.Body)),
	}
	return nil, fetchErr
}

func (f *HTTPFetcher) readBody(ctx, attemptCtx context.Context, response *http.Response, chunkID string, sub *Range) ([]byte, error) {
	expected := response.ContentLength
	if sub != nil && response.StatusCode == http.StatusPartialContent {
		expected = sub.Len()
	}
	body, err := netutil.ReadBody(response.Body, f.maxBodySize, expected)
	if err == nil {
		return body, nil
	}
	if classified := contextError(ctx, attemptCtx, chunkID, sub, err); classified != nil {
		return nil, classified
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, &Error{ChunkID: chunkID, Range: sub, Kind: KindShortBody, StatusCode: response.StatusCode, Err: err}
	}
	if errors.Is(err, netutil.ErrBodyTooLarge) {
		return nil, &Error{ChunkID: chunkID, Range: sub, Kind: KindStatus, StatusCode: response.StatusCode, Err: err}
	}
	return nil, &Error{ChunkID: chunkID, Range: sub, Kind: KindTransport, StatusCode: response.StatusCode, Err: err}
}

func (f *HTTPFetcher) transportError(ctx, attemptCtx context.Context, chunkID string, sub *Range, err error) error {
	if classified := contextError(ctx, attemptCtx, chunkID, sub, err); classified != nil {
		return classified
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{ChunkID: chunkID, Range: sub, Kind: KindTimeout, Err: err}
	}
	return &Error{ChunkID: chunkID, Range: sub, Kind: KindTransport, Err: err}
}

func statusKind(status int) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindUnauthorized
	case http.StatusNotFound:
		return KindNotFound
	default:
		return KindStatus
	}
}

func retryable(err error) bool {
	var fetchErr *Error
	if !errors.As(err, &fetchErr) || fetchErr.Kind != KindStatus {
		return false
	}
	return retryableStatus(fetchErr.StatusCode)
}

// checkContentRange verifies that a 206 response starts at the
// requested offset and does not run past it. An absent header is
// accepted; the body length check still applies.
func checkContentRange(header string, want Range) error {
	if header == "" {
		return nil
	}
	spec, found := strings.CutPrefix(header, "bytes ")
	if !found {
		return fmt.Errorf("unsupported Content-Range %q", header)
	}
	span, _, _ := strings.Cut(spec, "/")
	startText, endText, found := strings.Cut(span, "-")
	if !found {
		return fmt.Errorf("malformed Content-Range %q", header)
	}
	start, err := strconv.ParseInt(startText, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed Content-Range %q", header)
	}
	end, err := strconv.ParseInt(endText, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed Content-Range %q", header)
	}
	// A server that clamps the range to a shorter object is reported
	// by the body length check as a short body.
	if start != want.Start || end > want.End {
		return fmt.Errorf("Content-Range %q does not match requested %s", header, want)
	}
	return nil
}

func rangeAttr(sub *Range) string {
	if sub == nil {
		return "full"
	}
	return sub.String()
}
