package users

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoUsers = `[
  {
    "id": "u1",
    "name": "Ada",
    "image": "https://cdn.example.com/ada.png",
    "createdAt": "2025-06-01T12:00:00.000Z",
    "projects": [{"id": "p1", "hours": 12.5}],
    "purchasedProgressHours": 3,
    "totalShellsSpent": 40,
    "adminShellAdjustment": -5
  },
  {
    "id": "u2",
    "createdAt": "2025-06-02T08:30:00.000Z",
    "projects": []
  }
]`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// upstream serves body with status on /api/users and counts requests.
func upstream(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/users", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts, &hits
}

func newTestLoader(t *testing.T, baseURL string, opts ...Option) *Loader {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	l, err := NewLoader(baseURL, opts...)
	require.NoError(t, err)
	return l
}

func strPtr(s string) *string { return &s }

func TestLoad_HappyPath(t *testing.T) {
	ts, hits := upstream(t, http.StatusOK, twoUsers)
	l := newTestLoader(t, ts.URL)

	data, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, data.Users, 2)

	want := []User{
		{
			ID:                     "u1",
			Name:                   strPtr("Ada"),
			Image:                  strPtr("https://cdn.example.com/ada.png"),
			CreatedAt:              "2025-06-01T12:00:00.000Z",
			Projects:               []Project{{"id": "p1", "hours": 12.5}},
			PurchasedProgressHours: 3,
			TotalShellsSpent:       40,
			AdminShellAdjustment:   -5,
		},
		{
			ID:        "u2",
			CreatedAt: "2025-06-02T08:30:00.000Z",
			Projects:  []Project{},
		},
	}
	assert.Equal(t, want, data.Users)
	assert.Equal(t, int64(1), hits.Load())
}

func TestLoad_EmptyArray(t *testing.T) {
	ts, _ := upstream(t, http.StatusOK, `[]`)
	l := newTestLoader(t, ts.URL)

	data, err := l.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, data.Users)
	assert.Empty(t, data.Users)
}

func TestLoad_NonSuccessStatus(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusBadGateway} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			// A body that would fail validation proves it is never parsed.
			ts, hits := upstream(t, status, `{"not":"an array"}`)
			l := newTestLoader(t, ts.URL)

			data, err := l.Load(context.Background())
			require.Error(t, err)
			assert.Equal(t, ErrUpstreamFetch, err)
			assert.False(t, errors.Is(err, ErrInvalidPayload))
			assert.Nil(t, data.Users)
			assert.Equal(t, int64(1), hits.Load())
		})
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	ts, _ := upstream(t, http.StatusOK, `<html>oops</html>`)
	l := newTestLoader(t, ts.URL)

	_, err := l.Load(context.Background())
	require.Error(t, err)

	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.NotErrorIs(t, err, ErrUpstreamFetch)
}

func TestLoad_NotAnArray(t *testing.T) {
	ts, _ := upstream(t, http.StatusOK, `{"users": []}`)
	l := newTestLoader(t, ts.URL)

	_, err := l.Load(context.Background())
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, -1, vErr.Index)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestLoad_TransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	baseURL := ts.URL
	ts.Close()

	l := newTestLoader(t, baseURL)
	_, err := l.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamFetch)
}

func TestLoad_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	l := newTestLoader(t, ts.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := l.Load(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrUpstreamFetch)
}

func TestLoad_SameURLEveryCall(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.String())
		mu.Unlock()
		io.WriteString(w, twoUsers)
	}))
	defer ts.Close()

	l := newTestLoader(t, ts.URL)

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "/somewhere/else?page=2")

	_, err := l.Load(ctx)
	require.NoError(t, err)
	_, err = l.Load(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/api/users", "/api/users"}, paths)
}

func TestLoad_Idempotent(t *testing.T) {
	ts, hits := upstream(t, http.StatusOK, twoUsers)
	l := newTestLoader(t, ts.URL)

	first, err := l.Load(context.Background())
	require.NoError(t, err)
	second, err := l.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(2), hits.Load(), "no call may be served from a cache")

	// Results must not share backing storage.
	first.Users[0].ID = "mutated"
	assert.Equal(t, "u1", second.Users[0].ID)
}

func TestNewLoader(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		opts    []Option
		want    string
		wantErr bool
	}{
		{name: "default path", baseURL: "https://shipwrecked.hackclub.com", want: "https://shipwrecked.hackclub.com/api/users"},
		{name: "trailing slash", baseURL: "https://example.com/", want: "https://example.com/api/users"},
		{name: "base with prefix", baseURL: "http://localhost:8080/proxy", want: "http://localhost:8080/proxy/api/users"},
		{name: "custom path", baseURL: "https://example.com", opts: []Option{WithUsersPath("/v2/people")}, want: "https://example.com/v2/people"},
		{name: "missing scheme", baseURL: "example.com", wantErr: true},
		{name: "unsupported scheme", baseURL: "ftp://example.com", wantErr: true},
		{name: "unparseable", baseURL: "http://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLoader(tt.baseURL, tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.Endpoint())
		})
	}
}

func TestWithTimeout(t *testing.T) {
	t.Run("default client", func(t *testing.T) {
		l := newTestLoader(t, "https://example.com", WithTimeout(5*time.Second))
		assert.Equal(t, 5*time.Second, l.http.Timeout)
	})

	t.Run("caller client is not modified", func(t *testing.T) {
		before := http.DefaultClient.Timeout
		l := newTestLoader(t, "https://example.com", WithHTTPClient(http.DefaultClient), WithTimeout(7*time.Second))
		assert.Equal(t, before, http.DefaultClient.Timeout)
		assert.NotSame(t, http.DefaultClient, l.http)
		assert.Equal(t, 7*time.Second, l.http.Timeout)
	})

	t.Run("order independent", func(t *testing.T) {
		hc := &http.Client{}
		l := newTestLoader(t, "https://example.com", WithTimeout(7*time.Second), WithHTTPClient(hc))
		assert.Equal(t, 7*time.Second, l.http.Timeout)
		assert.Zero(t, hc.Timeout)
	})

	t.Run("client kept without timeout", func(t *testing.T) {
		hc := &http.Client{Timeout: time.Second}
		l := newTestLoader(t, "https://example.com", WithHTTPClient(hc))
		assert.Same(t, hc, l.http)
	})
}

func TestLoad_BodyTooLarge(t *testing.T) {
	ts, _ := upstream(t, http.StatusOK, twoUsers)
	l := newTestLoader(t, ts.URL, WithMaxBodySize(16))

	_, err := l.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, -1, vErr.Index)
	assert.Contains(t, vErr.Reason, "16 bytes")

	l = newTestLoader(t, ts.URL, WithMaxBodySize(int64(len(twoUsers))))
	data, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, data.Users, 2)
}
