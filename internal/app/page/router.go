package page

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brattlof/shipboard/internal/app/render"
)

type RouteType int

const (
	RouteTypePage RouteType = iota
	RouteTypeData
	RouteTypeAPI
)

func (t RouteType) String() string {
	switch t {
	case RouteTypePage:
		return "page"
	case RouteTypeData:
		return "data"
	case RouteTypeAPI:
		return "api"
	default:
		return fmt.Sprintf("RouteType(%d)", int(t))
	}
}

type Route struct {
	Pattern     string
	Method      string
	Type        RouteType
	Description string
	Handler     http.HandlerFunc
}

// ErrorView renders the page shown when a page cannot be served.
type ErrorView func(status int, message string) templ.Component

// Router is the table of every route the application serves.
type Router struct {
	routes    []*Route
	index     map[string]*Route
	renderer  *render.Renderer
	errorView ErrorView
	logger    *slog.Logger
}

func New(renderer *render.Renderer, errorView ErrorView, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		routes:    make([]*Route, 0),
		index:     make(map[string]*Route),
		renderer:  renderer,
		errorView: errorView,
		logger:    logger,
	}
}

func indexKey(method, pattern string) string {
	return method + " " + pattern
}

func (r *Router) Add(route *Route) error {
	if route.Method == "" {
		route.Method = http.MethodGet
	}
	key := indexKey(route.Method, route.Pattern)
	if _, exists := r.index[key]; exists {
		return fmt.Errorf("route %s already registered", key)
	}
	if route.Handler == nil {
		return fmt.Errorf("route %s has no handler", key)
	}

	r.index[key] = route
	r.routes = append(r.routes, route)
	return nil
}

func (r *Router) Lookup(method, pattern string) *Route {
	return r.index[indexKey(method, pattern)]
}

// Routes returns the registered routes sorted by pattern, then method.
func (r *Router) Routes() []*Route {
	routes := make([]*Route, len(r.routes))
	copy(routes, r.routes)
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Pattern != routes[j].Pattern {
			return routes[i].Pattern < routes[j].Pattern
		}
		return routes[i].Method < routes[j].Method
	})
	return routes
}

func (r *Router) Mount(chiRouter interface {
	Method(method, pattern string, handler http.Handler)
}) {
	for _, route := range r.Routes() {
		chiRouter.Method(route.Method, route.Pattern, r.createHandler(route))
	}
}

func (r *Router) createHandler(route *Route) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		route.Handler(w, req.WithContext(WithRoute(req.Context(), route)))
	})
}

// Fail logs err and renders the default error page. No recovery or fallback
// content is attempted.
func (r *Router) Fail(w http.ResponseWriter, req *http.Request, err error) {
	r.logFailure(req, err)
	msg := "Internal Error"
	r.renderer.Render(req.Context(), w, http.StatusInternalServerError, r.errorView(http.StatusInternalServerError, msg))
}

// FailJSON is Fail for data routes.
func (r *Router) FailJSON(w http.ResponseWriter, req *http.Request, err error) {
	r.logFailure(req, err)
	r.renderer.JSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal Error"})
}

func (r *Router) logFailure(req *http.Request, err error) {
	pattern := req.URL.Path
	if route := RouteFrom(req.Context()); route != nil {
		pattern = route.Pattern
	}
	r.logger.Error("Failed to load page data",
		"route", pattern,
		"request_id", middleware.GetReqID(req.Context()),
		"error", err,
	)
}
