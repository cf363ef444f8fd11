package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/modelfinder/internal/logging"
	"github.com/muurk/modelfinder/internal/lookup"
	"github.com/muurk/modelfinder/internal/version"
)

// RemoteClient performs lookups through a modelfinder server's JSON API.
// Validation still happens locally so bad input never leaves the machine.
type RemoteClient struct {
	// LookupURL is the server's lookup API URL (e.g. http://host:8080/api/v1/lookup)
	LookupURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client
}

// NewRemoteClient creates a client for a lookup API URL. A bare base URL
// such as http://host:8080 gets the default API path appended.
func NewRemoteClient(lookupURL string) *RemoteClient {
	if u, err := url.Parse(lookupURL); err == nil && (u.Path == "" || u.Path == "/") {
		u.Path = LookupPath
		lookupURL = u.String()
	}
	return &RemoteClient{
		LookupURL:  lookupURL,
		HTTPClient: &http.Client{Timeout: lookup.DefaultTimeout},
	}
}

// SetTimeout sets the HTTP request timeout
func (c *RemoteClient) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// Lookup resolves raw through the remote server
func (c *RemoteClient) Lookup(ctx context.Context, raw string) lookup.Result {
	key, err := lookup.DeriveLookupKey(raw)
	if err != nil {
		return lookup.FailureResult(raw, "", err)
	}

	u, err := url.Parse(c.LookupURL)
	if err != nil {
		return lookup.FailureResult(raw, key, lookup.NewTransportError(c.LookupURL, err))
	}
	q := u.Query()
	q.Set(SerialParam, raw)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return lookup.FailureResult(raw, key, lookup.NewTransportError(c.LookupURL, err))
	}
	req.Header.Set("User-Agent", "modelfinder/"+version.Version)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return lookup.FailureResult(raw, key, lookup.NewTransportError(c.LookupURL, err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return lookup.FailureResult(raw, key, lookup.NewTransportError(c.LookupURL, err))
	}

	logging.Debug("Remote lookup response",
		zap.String("request_id", resp.Header.Get(RequestIDHeader)),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if len(body) == 0 {
		return lookup.FailureResult(raw, key, lookup.NewEmptyResponseError(c.LookupURL))
	}

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		return lookup.FailureResult(raw, key, lookup.NewMalformedResponseError(c.LookupURL,
			fmt.Errorf("unexpected content type %q (status %d)", ct, resp.StatusCode)))
	}

	var lr LookupResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return lookup.FailureResult(raw, key, lookup.NewMalformedResponseError(c.LookupURL, err))
	}

	result := lr.Result()
	// Keep the caller's input even if the server echoed something else
	result.Serial = raw
	if result.Key == "" {
		result.Key = key
	}
	return result
}
