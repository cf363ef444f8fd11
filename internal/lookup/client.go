package lookup

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/modelfinder/internal/logging"
	"github.com/muurk/modelfinder/internal/urls"
	"github.com/muurk/modelfinder/internal/version"
)

const (
	// DefaultEndpoint is Apple's product lookup endpoint. It is plain HTTP;
	// that is the service's own contract.
	DefaultEndpoint = urls.ProductEndpoint

	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// QueryParam is the query parameter carrying the lookup key
	QueryParam = "cc"

	// maxBodySize caps how much of a response is read
	maxBodySize = 1 << 20
)

// Client resolves serial numbers against the product endpoint.
// A Client holds no per-lookup state and is safe for concurrent use once
// configured.
type Client struct {
	// Endpoint is the product endpoint URL (without query string)
	Endpoint string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// UserAgent is sent with every request
	UserAgent string
}

// NewClient creates a client for Apple's product endpoint
func NewClient() *Client {
	return NewClientWithURL(DefaultEndpoint)
}

// NewClientWithURL creates a client for a custom endpoint, e.g. a test server
func NewClientWithURL(endpoint string) *Client {
	return &Client{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		UserAgent:  "modelfinder/" + version.Version,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetHTTPClient replaces the underlying HTTP client
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.HTTPClient = hc
}

// SetUserAgent sets the User-Agent header sent with each request
func (c *Client) SetUserAgent(ua string) {
	c.UserAgent = ua
}

// RequestURL returns the URL queried for a lookup key
func (c *Client) RequestURL(key string) (string, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(QueryParam, key)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Lookup validates raw, queries the endpoint once and returns the result.
// Validation failures return without any network activity. The context
// bounds the request; its cancellation surfaces as a transport failure.
func (c *Client) Lookup(ctx context.Context, raw string) Result {
	key, err := DeriveLookupKey(raw)
	if err != nil {
		logging.Debug("Serial number rejected",
			zap.String("serial", raw),
			zap.Int("length", len([]rune(raw))),
			zap.Error(err),
		)
		return FailureResult(raw, "", err)
	}

	start := time.Now()
	model, err := c.fetch(ctx, key)
	logging.LogLookup(key, model, time.Since(start), err)
	if err != nil {
		return FailureResult(raw, key, err)
	}
	return ModelResult(raw, key, model)
}

// LookupAsync runs Lookup on its own goroutine and calls onComplete exactly
// once with the result.
func (c *Client) LookupAsync(ctx context.Context, raw string, onComplete func(Result)) {
	go func() {
		onComplete(c.Lookup(ctx, raw))
	}()
}

// Go starts a lookup and returns a channel that receives exactly one
// Result and is then closed.
func (c *Client) Go(ctx context.Context, raw string) <-chan Result {
	ch := make(chan Result, 1)
	c.LookupAsync(ctx, raw, func(r Result) {
		ch <- r
		close(ch)
	})
	return ch
}

// LookupMany looks up every serial concurrently. Results are returned in
// the order of the input.
func (c *Client) LookupMany(ctx context.Context, serials []string) []Result {
	results := make([]Result, len(serials))

	var wg sync.WaitGroup
	for i, serial := range serials {
		wg.Add(1)
		go func(i int, serial string) {
			defer wg.Done()
			results[i] = c.Lookup(ctx, serial)
		}(i, serial)
	}
	wg.Wait()

	return results
}

// fetch performs the single HTTP round trip for a derived key
func (c *Client) fetch(ctx context.Context, key string) (string, error) {
	reqURL, err := c.RequestURL(key)
	if err != nil {
		return "", NewTransportError(c.Endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", NewTransportError(c.Endpoint, err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	logging.Debug("Querying product endpoint", zap.String("url", reqURL))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", NewTransportError(c.Endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", NewTransportError(c.Endpoint, err)
	}

	// Status codes are not checked; the body alone decides the outcome.
	logging.Debug("Product endpoint responded",
		zap.Int("status_code", resp.StatusCode),
		zap.Int("body_size", len(body)),
	)
	logging.LogRawBytes("Product response body", body)

	if len(body) == 0 {
		return "", NewEmptyResponseError(c.Endpoint)
	}

	model, err := ParseModelName(body)
	if err != nil {
		return "", NewMalformedResponseError(c.Endpoint, err)
	}

	return model, nil
}
