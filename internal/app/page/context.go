package page

import "context"

type routeKey struct{}

// WithRoute stores the matched route in ctx.
func WithRoute(ctx context.Context, route *Route) context.Context {
	return context.WithValue(ctx, routeKey{}, route)
}

// RouteFrom returns the route stored by WithRoute, or nil.
func RouteFrom(ctx context.Context) *Route {
	if route, ok := ctx.Value(routeKey{}).(*Route); ok {
		return route
	}
	return nil
}
