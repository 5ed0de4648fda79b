package upstream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_GetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Campinas", r.URL.Query().Get("name"))
		assert.Equal(t, "10", r.URL.Query().Get("count"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"answer": 42}`)
	}))
	defer srv.Close()

	c := NewClientWithHTTP("geocoding", srv.Client(), testLogger())

	var out struct {
		Answer int `json:"answer"`
	}
	err := c.GetJSON(context.Background(), srv.URL, url.Values{"name": {"Campinas"}, "count": {"10"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, 42, out.Answer)
}

func TestClient_GetRaw_Errors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
	}{
		{
			name: "bad request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":true,"reason":"Latitude must be in range of -90 to 90°."}`, http.StatusBadRequest)
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClientWithHTTP("forecast", srv.Client(), testLogger())
			_, err := c.GetRaw(context.Background(), srv.URL, url.Values{})
			require.Error(t, err)

			var upErr *Error
			require.True(t, errors.As(err, &upErr), "expected *upstream.Error, got %T", err)
			assert.Equal(t, "forecast", upErr.Service)
			assert.Equal(t, tt.wantStatus, upErr.StatusCode)
		})
	}
}

func TestClient_GetJSON_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	}))
	defer srv.Close()

	c := NewClientWithHTTP("geocoding", srv.Client(), testLogger())
	var out map[string]any
	err := c.GetJSON(context.Background(), srv.URL, url.Values{}, &out)

	var upErr *Error
	require.True(t, errors.As(err, &upErr))
	assert.Zero(t, upErr.StatusCode)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := NewClient("forecast", 0, testLogger())
	_, err := c.GetRaw(context.Background(), addr, url.Values{})

	var upErr *Error
	require.True(t, errors.As(err, &upErr))
	assert.Contains(t, err.Error(), "failed to fetch")
}

func TestClient_NoRetryAndBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClientWithHTTP("forecast", srv.Client(), testLogger())

	for i := 0; i < maxConsecutiveFailures+1; i++ {
		_, err := c.GetRaw(context.Background(), srv.URL, url.Values{})
		require.Error(t, err)
	}
	// one request per call, nothing retried
	assert.EqualValues(t, maxConsecutiveFailures+1, hits.Load())

	_, err := c.GetRaw(context.Background(), srv.URL, url.Values{})
	var upErr *Error
	require.True(t, errors.As(err, &upErr))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.EqualValues(t, maxConsecutiveFailures+1, hits.Load())
}

func TestClient_BreakerIgnoresClientErrors(t *testing.T) {
	var hits atomic.Int32
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !healthy.Load() {
			http.Error(w, `{"error":true,"reason":"Parameter 'latitude' is out of range"}`, http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c := NewClientWithHTTP("forecast", srv.Client(), testLogger())

	for i := 0; i < maxConsecutiveFailures+1; i++ {
		_, err := c.GetRaw(context.Background(), srv.URL, url.Values{})
		var upErr *Error
		require.True(t, errors.As(err, &upErr))
		assert.Equal(t, http.StatusBadRequest, upErr.StatusCode)
	}

	healthy.Store(true)
	body, err := c.GetRaw(context.Background(), srv.URL, url.Values{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(body))
	assert.EqualValues(t, maxConsecutiveFailures+2, hits.Load())
}

func TestClient_BreakerIgnoresCanceledCallers(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c := NewClientWithHTTP("forecast", srv.Client(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < maxConsecutiveFailures+1; i++ {
		_, err := c.GetRaw(ctx, srv.URL, url.Values{})
		require.ErrorIs(t, err, context.Canceled)
	}

	_, err := c.GetRaw(context.Background(), srv.URL, url.Values{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())
}

func TestCountsAsHealthy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: true},
		{name: "canceled", err: &Error{Service: "forecast", Err: context.Canceled}, want: true},
		{name: "bad request", err: &Error{Service: "forecast", StatusCode: http.StatusBadRequest}, want: true},
		{name: "not found", err: &Error{Service: "forecast", StatusCode: http.StatusNotFound}, want: true},
		{name: "server error", err: &Error{Service: "forecast", StatusCode: http.StatusInternalServerError}, want: false},
		{name: "deadline", err: &Error{Service: "forecast", Err: context.DeadlineExceeded}, want: false},
		{name: "transport", err: &Error{Service: "forecast", Err: errors.New("connection refused")}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, countsAsHealthy(tt.err))
		})
	}
}
