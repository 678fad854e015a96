package page

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brattlof/shipboard/internal/app/render"
)

type greeting struct {
	Names []string `json:"names"`
}

func testRouter() *Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorView := func(status int, message string) templ.Component {
		return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
			_, err := fmt.Fprintf(w, "error %d: %s", status, message)
			return err
		})
	}
	return New(render.NewRenderer(logger), errorView, logger)
}

func greetingView(g greeting) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, n := range g.Names {
			if _, err := fmt.Fprintf(w, "<li>%s</li>", templ.EscapeString(n)); err != nil {
				return err
			}
		}
		return nil
	})
}

func serve(t *testing.T, rt *Router, path string) *httptest.ResponseRecorder {
	t.Helper()
	mux := chi.NewRouter()
	rt.Mount(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestDataPattern(t *testing.T) {
	assert.Equal(t, "/__data.json", DataPattern("/"))
	assert.Equal(t, "/crew/__data.json", DataPattern("/crew"))
	assert.Equal(t, "/crew/__data.json", DataPattern("/crew/"))
}

func TestPage_Success(t *testing.T) {
	rt := testRouter()
	calls := 0
	require.NoError(t, Register(rt, Page[greeting]{
		Pattern: "/",
		Title:   "Greetings",
		Load: func(ctx context.Context, r *http.Request) (greeting, error) {
			calls++
			route := RouteFrom(ctx)
			require.NotNil(t, route)
			return greeting{Names: []string{"Ada", "<Bob>"}}, nil
		},
		View: greetingView,
	}))

	rec := serve(t, rt, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<li>Ada</li><li>&lt;Bob&gt;</li>", rec.Body.String())

	rec = serve(t, rt, "/__data.json")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"names":["Ada","<Bob>"]}`, rec.Body.String())

	assert.Equal(t, 2, calls, "each request runs the load function once")
}

func TestPage_LoadFailure(t *testing.T) {
	rt := testRouter()
	viewCalled := false
	require.NoError(t, Register(rt, Page[greeting]{
		Pattern: "/",
		Load: func(ctx context.Context, r *http.Request) (greeting, error) {
			return greeting{}, errors.New("upstream down")
		},
		View: func(g greeting) templ.Component {
			viewCalled = true
			return greetingView(g)
		},
	}))

	rec := serve(t, rt, "/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error 500: Internal Error", rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "upstream down")

	rec = serve(t, rt, "/__data.json")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Error"}`, rec.Body.String())

	assert.False(t, viewCalled)
}

func TestRegister_Invalid(t *testing.T) {
	rt := testRouter()
	assert.Error(t, Register(rt, Page[greeting]{Pattern: "/"}))

	p := Page[greeting]{
		Pattern: "/",
		Load:    func(ctx context.Context, r *http.Request) (greeting, error) { return greeting{}, nil },
		View:    greetingView,
	}
	require.NoError(t, Register(rt, p))
	assert.Error(t, Register(rt, p), "duplicate pattern")
}
