// Package upstream performs the outbound HTTP calls made on behalf of tools and
// classifies their failures.
package upstream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// UserAgent is sent with every outbound request.
const UserAgent = "MCP Test Server (github.com/modelcontextprotocol/python-sdk)"

// DefaultTimeout bounds every outbound call when none is configured.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response body is kept on a StatusError.
const maxErrorBody = 2048

// ErrTimeout is returned when an upstream call exceeds its deadline.
var ErrTimeout = errors.New("upstream timeout")

// StatusError is returned for any non-2xx upstream response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s %s: %s", e.Method, e.URL, e.Status)
}

// Options configures a Client. The zero value is usable.
type Options struct {
	Timeout     time.Duration
	InsecureTLS bool
	// Transport overrides the round tripper, mostly for tests.
	Transport http.RoundTripper
}

// Client is an immutable HTTP client shared by every tool invocation.
type Client struct {
	http *http.Client
}

// New builds a Client. Redirects are followed by the standard policy.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	rt := opts.Transport
	if rt == nil {
		base := http.DefaultTransport.(*http.Transport).Clone()
		if opts.InsecureTLS {
			base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed model endpoints
		}
		rt = base
	}
	return &Client{http: &http.Client{Timeout: opts.Timeout, Transport: rt}}
}

// Get issues a GET and returns the body text.
func (c *Client) Get(ctx context.Context, url string, header http.Header) (string, error) {
	return c.Do(ctx, http.MethodGet, url, header, nil)
}

// Do sends one request and returns the response body as text. Non-2xx
// responses become *StatusError and deadline overruns become ErrTimeout.
func (c *Client) Do(ctx context.Context, method, url string, header http.Header, body io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%s %s: %w", method, url, ErrTimeout)
		}
		return "", fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("read %s: %w", url, ErrTimeout)
		}
		return "", fmt.Errorf("read %s: %w", url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return "", &StatusError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(data),
		}
	}
	return string(data), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// BearerHeader returns a header set carrying the bearer token.
func BearerHeader(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}
