// Package web renders the Compere UI pages from store state.
//
// Each page is a plain server-rendered form. GET renders the current state,
// POST runs a store action and renders the page again with its outcome.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/raphaelgruber/compere-go/internal/router"
	"github.com/raphaelgruber/compere-go/internal/simulation"
	"github.com/raphaelgruber/compere-go/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// HealthChecker probes the remote API.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// Config wires the views to their stores.
type Config struct {
	Entities    *store.Entities
	Comparisons *store.Comparisons
	Auth        *store.Auth
	Health      HealthChecker
	Logger      *slog.Logger
	// Pacing is the delay between simulated comparisons.
	Pacing time.Duration
}

// Views renders the UI pages.
type Views struct {
	entities    *store.Entities
	comparisons *store.Comparisons
	auth        *store.Auth
	health      HealthChecker
	logger      *slog.Logger
	pacing      time.Duration
	pages       map[string]*template.Template
}

var pageFiles = map[string]string{
	router.Dashboard:     "dashboard.html",
	router.EntityManager: "entities.html",
	router.Comparison:    "compare.html",
	router.Leaderboard:   "leaderboard.html",
	router.Analytics:     "analytics.html",
	router.Simulations:   "simulations.html",
	router.Auth:          "auth.html",
}

// New parses the page templates.
func New(cfg Config) (*Views, error) {
	if cfg.Entities == nil || cfg.Comparisons == nil || cfg.Auth == nil {
		return nil, errors.New("web: entities, comparisons and auth stores are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	v := &Views{
		entities:    cfg.Entities,
		comparisons: cfg.Comparisons,
		auth:        cfg.Auth,
		health:      cfg.Health,
		logger:      cfg.Logger,
		pacing:      cfg.Pacing,
		pages:       make(map[string]*template.Template, len(pageFiles)),
	}
	for name, file := range pageFiles {
		t, err := template.New(file).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

// Pages returns the handler for every route.
func (v *Views) Pages() router.Pages {
	return router.Pages{
		router.Dashboard:     http.HandlerFunc(v.dashboard),
		router.EntityManager: http.HandlerFunc(v.entityManager),
		router.Comparison:    http.HandlerFunc(v.compare),
		router.Leaderboard:   http.HandlerFunc(v.leaderboard),
		router.Analytics:     http.HandlerFunc(v.analytics),
		router.Simulations:   http.HandlerFunc(v.simulations),
		router.Auth:          http.HandlerFunc(v.authPage),
	}
}

// =============================================================================
// RENDERING
// =============================================================================

type navItem struct {
	Path   string
	Title  string
	Active bool
}

// page is the data every template receives.
type page struct {
	Title         string
	Nav           []navItem
	Flash         string
	Errors        []string
	Authenticated bool
	User          any
	Data          any
}

func (v *Views) newPage(r *http.Request) *page {
	current, _ := router.RouteFromContext(r.Context())
	nav := make([]navItem, 0, 7)
	for _, route := range router.Routes() {
		nav = append(nav, navItem{Path: route.Path, Title: route.Title, Active: route.Path == current.Path})
	}
	p := &page{
		Title:         router.TitleFromContext(r.Context()),
		Nav:           nav,
		Authenticated: v.auth.IsAuthenticated(),
	}
	if u := v.auth.User(); u != nil {
		p.User = u
	}
	return p
}

// check records a failed result's error on the page.
func (p *page) check(success bool, msg string) bool {
	if !success && msg != "" {
		p.Errors = append(p.Errors, msg)
	}
	return success
}

func (v *Views) render(w http.ResponseWriter, r *http.Request, p *page) {
	route, _ := router.RouteFromContext(r.Context())
	t, ok := v.pages[route.Name]
	if !ok {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		v.logger.Error("render page failed", "page", route.Name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

var funcs = template.FuncMap{
	"rating": func(v any) string {
		switch n := v.(type) {
		case int:
			return simulation.FormatRating(float64(n))
		case float64:
			return simulation.FormatRating(n)
		}
		return fmt.Sprint(v)
	},
	"tier":  simulation.RatingTier,
	"badge": simulation.RatingBadge,
	"inc":   func(i int) int { return i + 1 },
	"name": func(names map[int]string, id int) string {
		if n, ok := names[id]; ok {
			return n
		}
		return fmt.Sprintf("#%d", id)
	},
	"ago": func(t time.Time) string {
		if t.IsZero() {
			return "unknown"
		}
		return humanize.Time(t)
	},
	"dict": func(kv ...any) (map[string]any, error) {
		if len(kv)%2 != 0 {
			return nil, errors.New("dict: odd number of arguments")
		}
		m := make(map[string]any, len(kv)/2)
		for i := 0; i < len(kv); i += 2 {
			k, ok := kv[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
			}
			m[k] = kv[i+1]
		}
		return m, nil
	},
}
