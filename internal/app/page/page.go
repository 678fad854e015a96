// Package page implements server-side pages: a route whose data is produced
// by a load function on every request and handed to a view for rendering.
package page

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/a-h/templ"
)

// LoadFunc produces the render-time data of a page. It runs once per request.
type LoadFunc[T any] func(ctx context.Context, r *http.Request) (T, error)

type Page[T any] struct {
	Pattern string
	Title   string
	Load    LoadFunc[T]
	View    func(data T) templ.Component
}

// DataPattern is the route serving the JSON data of the page at pattern.
func DataPattern(pattern string) string {
	return strings.TrimSuffix(pattern, "/") + "/__data.json"
}

// Register adds the HTML route of p and its JSON data route to rt.
func Register[T any](rt *Router, p Page[T]) error {
	if p.Load == nil || p.View == nil {
		return fmt.Errorf("page %s: load and view are required", p.Pattern)
	}

	if err := rt.Add(&Route{
		Pattern:     p.Pattern,
		Method:      http.MethodGet,
		Type:        RouteTypePage,
		Description: p.Title,
		Handler:     p.handler(rt),
	}); err != nil {
		return err
	}

	return rt.Add(&Route{
		Pattern:     DataPattern(p.Pattern),
		Method:      http.MethodGet,
		Type:        RouteTypeData,
		Description: p.Title + " (data)",
		Handler:     p.dataHandler(rt),
	})
}

func (p Page[T]) handler(rt *Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := p.Load(r.Context(), r)
		if err != nil {
			rt.Fail(w, r, err)
			return
		}
		rt.renderer.Render(r.Context(), w, http.StatusOK, p.View(data))
	}
}

func (p Page[T]) dataHandler(rt *Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := p.Load(r.Context(), r)
		if err != nil {
			rt.FailJSON(w, r, err)
			return
		}
		rt.renderer.JSON(w, http.StatusOK, data)
	}
}
