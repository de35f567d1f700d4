// Package router holds the UI's static route table and mounts page handlers
// on a chi router. Every matched route sets the page title.
package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// TitleSuffix is appended to every page title.
const TitleSuffix = " - Compere"

// TitleHeader carries the rendered page title on every routed response.
const TitleHeader = "X-Page-Title"

// Route is one page of the UI.
type Route struct {
	Path  string
	Name  string
	Title string
}

// Route names.
const (
	Dashboard     = "Dashboard"
	EntityManager = "EntityManager"
	Comparison    = "Comparison"
	Leaderboard   = "Leaderboard"
	Analytics     = "Analytics"
	Simulations   = "Simulations"
	Auth          = "Auth"
)

var routes = []Route{
	{Path: "/", Name: Dashboard, Title: "Dashboard"},
	{Path: "/entities", Name: EntityManager, Title: "Entity Manager"},
	{Path: "/compare", Name: Comparison, Title: "Compare Entities"},
	{Path: "/leaderboard", Name: Leaderboard, Title: "Leaderboard & Rankings"},
	{Path: "/analytics", Name: Analytics, Title: "Analytics & History"},
	{Path: "/simulations", Name: Simulations, Title: "Simulation Scenarios"},
	{Path: "/auth", Name: Auth, Title: "Authentication"},
}

// Routes returns the route table in navigation order.
func Routes() []Route {
	return append([]Route(nil), routes...)
}

// Match returns the route registered for path.
func Match(path string) (Route, bool) {
	for _, r := range routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// PageTitle formats title the way the browser tab shows it.
func PageTitle(title string) string {
	return title + TitleSuffix
}

type ctxKey struct{}

// RouteFromContext returns the route the request was matched to.
func RouteFromContext(ctx context.Context) (Route, bool) {
	r, ok := ctx.Value(ctxKey{}).(Route)
	return r, ok
}

// TitleFromContext returns the page title for the matched route, or "Compere".
func TitleFromContext(ctx context.Context) string {
	if r, ok := RouteFromContext(ctx); ok {
		return PageTitle(r.Title)
	}
	return "Compere"
}

// WithTitle attaches route to the request and sets the title header.
func WithTitle(route Route, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(TitleHeader, PageTitle(route.Title))
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, route)))
	})
}

// Pages maps route names to handlers. A route without a handler answers
// 501 Not Implemented.
type Pages map[string]http.Handler

// New mounts pages on a chi router. GET and POST are routed for every page;
// unknown paths answer 404. middlewares wrap the whole router.
func New(pages Pages, middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares...)

	for _, route := range routes {
		h, ok := pages[route.Name]
		if !ok {
			h = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
			})
		}
		wrapped := WithTitle(route, h)
		r.Method(http.MethodGet, route.Path, wrapped)
		r.Method(http.MethodPost, route.Path, wrapped)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "page not found", http.StatusNotFound)
	})
	return r
}
