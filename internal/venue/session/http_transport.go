package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// HTTPTransport wraps a venue's REST API: every call goes through the rate
// limiter first, then a circuit breaker that trips after repeated failures
// so a venue outage fails fast instead of queuing requests behind a dead
// endpoint. Ported from cryptotrader.exchange.base.transport.HttpTransport,
// whose rest_call wrapped requests.Session calls in the shared Limited rate
// limiter; gobreaker adds the fail-fast behavior the Python source didn't
// have, grounded on the rest of the retrieval pack's circuit-breaker usage.
type HTTPTransport struct {
	client  *http.Client
	baseURL string
	limiter *RateLimiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	sign    func(req *http.Request) error
}

// HTTPTransportConfig configures an HTTPTransport.
type HTTPTransportConfig struct {
	BaseURL   string
	RateLimit RateLimit
	Timeout   time.Duration
	// Sign mutates an outgoing request to attach venue authentication
	// (headers, query signature) before it's sent. May be nil for
	// public-only endpoints.
	Sign func(req *http.Request) error
}

// NewHTTPTransport builds an HTTPTransport from its config.
func NewHTTPTransport(name string, cfg HTTPTransportConfig) *HTTPTransport {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &HTTPTransport{
		client:  &http.Client{Timeout: timeout},
		baseURL: cfg.BaseURL,
		limiter: NewRateLimiter(cfg.RateLimit),
		breaker: gobreaker.NewCircuitBreaker[[]byte](st),
		sign:    cfg.Sign,
	}
}

// Get issues a signed or unsigned GET and returns the raw response body.
func (t *HTTPTransport) Get(ctx context.Context, path string, query string) ([]byte, error) {
	return t.request(ctx, http.MethodGet, path, query, nil)
}

// Post issues a signed or unsigned POST with a JSON body and returns the
// raw response body.
func (t *HTTPTransport) Post(ctx context.Context, path string, body []byte) ([]byte, error) {
	return t.request(ctx, http.MethodPost, path, "", body)
}

func (t *HTTPTransport) request(ctx context.Context, method, path, query string, body []byte) ([]byte, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	return t.breaker.Execute(func() ([]byte, error) {
		url := t.baseURL + path
		if query != "" {
			url += "?" + query
		}
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if t.sign != nil {
			if err := t.sign(req); err != nil {
				return nil, fmt.Errorf("sign request: %w", err)
			}
		}
		resp, err := t.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("%s %s: venue returned %d: %s", method, path, resp.StatusCode, string(data))
		}
		return data, nil
	})
}
