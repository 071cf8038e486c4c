package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Agurato/marquee/internal/model"
)

var (
	ErrUnauthorized = model.ErrUnauthorized
)

// StatusError is returned by Transport for any non 2xx/3xx upstream response
type StatusError struct {
	Code       int
	URL        string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d %s for %s", e.Code, http.StatusText(e.Code), e.URL)
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// Retryable reports whether repeating the request may succeed
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// Transport paces every outgoing request, authenticates it and turns error statuses into errors.
// Every golang-tmdb call of a run goes through the same Transport so all of them count against one limit.
type Transport struct {
	Base    http.RoundTripper
	Limiter *rate.Limiter
	Token   string
	// Endpoint, when set, replaces the scheme and host of every request
	Endpoint *url.URL

	unauthorized atomic.Bool
	requests     atomic.Int64
}

// NewTransport returns a Transport allowing requests requests per window, evenly spaced
func NewTransport(token string, requests int, window time.Duration) *Transport {
	return &Transport{
		Base:    http.DefaultTransport,
		Limiter: rate.NewLimiter(rate.Every(window/time.Duration(requests)), 1),
		Token:   token,
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.Limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	r := req.Clone(req.Context())
	if t.Endpoint != nil {
		r.URL.Scheme = t.Endpoint.Scheme
		r.URL.Host = t.Endpoint.Host
		r.Host = t.Endpoint.Host
	}
	if t.Token != "" {
		r.Header.Set("Authorization", "Bearer "+t.Token)
	}
	r.Header.Set("Accept", "application/json")

	t.requests.Add(1)
	resp, err := t.base().RoundTrip(r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusBadRequest {
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	statusErr := &StatusError{
		Code:       resp.StatusCode,
		URL:        redactedURL(req.URL),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
	if resp.StatusCode == http.StatusUnauthorized {
		t.unauthorized.Store(true)
	}
	log.Debug().Int("status", statusErr.Code).Str("url", statusErr.URL).Msg("Upstream error response")
	return nil, statusErr
}

// Unauthorized reports whether upstream ever answered 401
func (t *Transport) Unauthorized() bool {
	return t.unauthorized.Load()
}

// Requests returns the number of requests sent upstream
func (t *Transport) Requests() int64 {
	return t.requests.Load()
}

func (t *Transport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

// contextTransport also ends requests when ctx is done, for clients that send them on a context of their own
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithCancel(req.Context())
	stop := context.AfterFunc(t.ctx, cancel)
	// The request context ends once the caller is done with the response body
	context.AfterFunc(req.Context(), func() {
		stop()
		cancel()
	})

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req.WithContext(ctx))
}

// parseRetryAfter only understands the delay-seconds form TMDB sends
func parseRetryAfter(value string) time.Duration {
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func redactedURL(u *url.URL) string {
	c := *u
	q := c.Query()
	if q.Has("api_key") {
		q.Set("api_key", "redacted")
		c.RawQuery = q.Encode()
	}
	return c.String()
}
