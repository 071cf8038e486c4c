package infrastructure

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agurato/marquee/internal/infrastructure/tmdbtest"
)

const apiBaseURL = "https://api.themoviedb.org/3"

func get(t *testing.T, client *http.Client, rawURL string) error {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, rawURL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func TestTransportPacing(t *testing.T) {
	srv := tmdbtest.New("token")
	defer srv.Close()
	srv.SetTitles("movie")

	tr := NewTransport("token", 5, 100*time.Millisecond)
	tr.Endpoint = srv.ParsedURL()
	client := &http.Client{Transport: tr}

	start := time.Now()
	for i := 0; i < 6; i++ {
		require.NoError(t, get(t, client, apiBaseURL+"/discover/movie?page=1"))
	}
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 95*time.Millisecond)
	assert.Equal(t, int64(6), tr.Requests())
	assert.Equal(t, 6, srv.Hits("/3/discover/movie"))
	for _, header := range srv.AuthHeaders() {
		assert.Equal(t, "Bearer token", header)
	}
}

func TestTransportErrors(t *testing.T) {
	srv := tmdbtest.New("token")
	defer srv.Close()

	t.Run("status", func(t *testing.T) {
		tr := NewTransport("token", 1000, time.Second)
		tr.Endpoint = srv.ParsedURL()
		srv.Fail("/3/movie/1", http.StatusTooManyRequests)

		err := get(t, &http.Client{Transport: tr}, apiBaseURL+"/movie/1")
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
		assert.True(t, statusErr.Retryable())
		assert.False(t, tr.Unauthorized())
	})

	t.Run("not found", func(t *testing.T) {
		tr := NewTransport("token", 1000, time.Second)
		tr.Endpoint = srv.ParsedURL()

		err := get(t, &http.Client{Transport: tr}, apiBaseURL+"/movie/404")
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusNotFound, statusErr.Code)
		assert.False(t, statusErr.Retryable())
	})

	t.Run("unauthorized", func(t *testing.T) {
		tr := NewTransport("wrong", 1000, time.Second)
		tr.Endpoint = srv.ParsedURL()

		err := get(t, &http.Client{Transport: tr}, apiBaseURL+"/discover/movie")
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.True(t, tr.Unauthorized())
	})
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-1"))
	assert.Equal(t, time.Duration(0), parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}

func TestRedactedURL(t *testing.T) {
	u, err := url.Parse("https://api.themoviedb.org/3/discover/movie?api_key=secret&page=2")
	require.NoError(t, err)
	redacted := redactedURL(u)
	assert.NotContains(t, redacted, "secret")
	assert.Contains(t, redacted, "page=2")
}
