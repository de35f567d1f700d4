// Package apitest provides an in-memory fake of the Compere API for tests.
//
// The fake keeps entities, comparisons and users in memory, applies Elo
// updates on comparison creation, records every call and lets tests inject
// failures per route.
package apitest

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/raphaelgruber/compere-go/internal/models"
)

// eloKFactor matches the server's default K-factor.
const eloKFactor = 32.0

// Call is one request received by the fake.
type Call struct {
	Route         string
	Path          string
	Query         string
	Authorization string
	RequestID     string
}

type failure struct {
	status int
	body   string
}

// Server is a fake Compere API.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	entities    []models.Entity
	comparisons []models.Comparison
	mabCounts   map[int]int
	nextID      int
	nextCompID  int
	users       map[string]string
	tokens      map[string]models.User
	failures    map[string]failure
	calls       []Call
	requireAuth bool
	delay       time.Duration
	now         func() time.Time
}

// New starts a fake server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		mabCounts:  map[int]int{},
		nextID:     1,
		nextCompID: 1,
		users:      map[string]string{},
		tokens:     map[string]models.User{},
		failures:   map[string]failure{},
		now:        time.Now,
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/entities/", s.handle("GET /entities/", true, s.listEntities))
	r.Post("/entities/", s.handle("POST /entities/", true, s.createEntity))
	r.Get("/entities/{id}", s.handle("GET /entities/{id}", true, s.getEntity))
	r.Put("/entities/{id}", s.handle("PUT /entities/{id}", true, s.updateEntity))
	r.Delete("/entities/{id}", s.handle("DELETE /entities/{id}", true, s.deleteEntity))

	r.Get("/comparisons/", s.handle("GET /comparisons/", true, s.listComparisons))
	r.Post("/comparisons/", s.handle("POST /comparisons/", true, s.createComparison))
	r.Get("/comparisons/next", s.handle("GET /comparisons/next", true, s.nextComparison))
	r.Get("/comparisons/{id}", s.handle("GET /comparisons/{id}", true, s.getComparison))

	r.Get("/ratings", s.handle("GET /ratings", true, s.ratings))
	r.Get("/similar_entities", s.handle("GET /similar_entities", true, s.pair))
	r.Get("/dissimilar_entities", s.handle("GET /dissimilar_entities", true, s.pair))

	r.Get("/mab/next_comparison", s.handle("GET /mab/next_comparison", true, s.mabNext))
	r.Post("/mab/update", s.handle("POST /mab/update", true, s.mabUpdate))

	r.Post("/auth/token", s.handle("POST /auth/token", false, s.login))
	r.Get("/auth/users/me", s.handle("GET /auth/users/me", false, s.me))

	r.Get("/docs", s.handle("GET /docs", false, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><title>Compere - Swagger UI</title></html>")
	}))

	return r
}

// handle records the call, applies injected failures and the auth guard, then
// runs fn with the server lock held.
func (s *Server) handle(route string, guarded bool, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, Call{
			Route:         route,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		delay := s.delay
		f, failing := s.failures[route]
		s.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}

		if failing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			fmt.Fprint(w, f.body)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if guarded && s.requireAuth {
			if _, ok := s.userFor(r); !ok {
				writeDetail(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
		}
		fn(w, r)
	}
}

// =============================================================================
// TEST CONTROLS
// =============================================================================

// Fail makes route answer status with {"detail": detail} until Recover is called.
// route has the form "POST /comparisons/".
func (s *Server) Fail(route string, status int, detail string) {
	body, _ := json.Marshal(map[string]string{"detail": detail})
	s.FailRaw(route, status, string(body))
}

// FailRaw makes route answer status with a verbatim body.
func (s *Server) FailRaw(route string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, body: body}
}

// Recover removes an injected failure.
func (s *Server) Recover(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, route)
}

// SetDelay delays every response.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// RequireAuth makes every non-auth route answer 401 without a valid token.
func (s *Server) RequireAuth(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requireAuth = on
}

// AddUser registers credentials and returns the token login will issue.
func (s *Server) AddUser(username, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = password
	return "token-" + username
}

// RevokeTokens invalidates every issued token.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]models.User{}
}

// IssueToken registers a valid token for username without going through login.
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := "token-" + username
	s.tokens[token] = models.User{ID: len(s.tokens) + 1, Username: username, Email: username + "@example.com"}
	return token
}

// SeedEntities adds entities directly and returns them with ids assigned.
func (s *Server) SeedEntities(inputs ...models.EntityInput) []models.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Entity, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, s.addEntity(in))
	}
	return out
}

// Entities returns a copy of the stored entities.
func (s *Server) Entities() []models.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Entity(nil), s.entities...)
}

// Comparisons returns a copy of the stored comparisons.
func (s *Server) Comparisons() []models.Comparison {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Comparison(nil), s.comparisons...)
}

// Calls returns every recorded call.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallCount returns how many times route was called.
func (s *Server) CallCount(route string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Route == route {
			n++
		}
	}
	return n
}

// Routes returns the sequence of routes called, in order.
func (s *Server) Routes() []string {
	calls := s.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Route
	}
	return out
}

// ResetCalls forgets recorded calls.
func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// =============================================================================
// HANDLERS (called with s.mu held)
// =============================================================================

func (s *Server) addEntity(in models.EntityInput) models.Entity {
	e := models.Entity{
		ID:          s.nextID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Rating:      models.DefaultRating,
		Category:    in.Category,
		ImageURLs:   in.ImageURLs,
	}
	if e.ImageURLs == nil {
		e.ImageURLs = []string{}
	}
	s.nextID++
	s.entities = append(s.entities, e)
	return e
}

func (s *Server) findEntity(id int) int {
	for i, e := range s.entities {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *Server) listEntities(w http.ResponseWriter, r *http.Request) {
	skip, limit := pagination(r, 100)
	search := strings.ToLower(r.URL.Query().Get("search"))

	out := []models.Entity{}
	for _, e := range s.entities {
		if search != "" && !strings.Contains(strings.ToLower(e.Name), search) &&
			!strings.Contains(strings.ToLower(e.Description), search) {
			continue
		}
		out = append(out, e)
	}
	writeJSON(w, http.StatusOK, window(out, skip, limit))
}

func (s *Server) createEntity(w http.ResponseWriter, r *http.Request) {
	var in models.EntityInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidation(w, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		writeValidation(w, "Value error, Name cannot be empty")
		return
	}
	writeJSON(w, http.StatusOK, s.addEntity(in))
}

func (s *Server) getEntity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	i := s.findEntity(id)
	if i < 0 {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Entity with id %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, s.entities[i])
}

func (s *Server) updateEntity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	i := s.findEntity(id)
	if i < 0 {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Entity with id %d not found", id))
		return
	}
	var in models.EntityUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidation(w, "Invalid JSON body")
		return
	}
	e := &s.entities[i]
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			writeValidation(w, "Value error, Name cannot be empty")
			return
		}
		e.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		e.Description = *in.Description
	}
	if in.Category != nil {
		e.Category = *in.Category
	}
	if in.ImageURLs != nil {
		e.ImageURLs = in.ImageURLs
	}
	writeJSON(w, http.StatusOK, *e)
}

func (s *Server) deleteEntity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	i := s.findEntity(id)
	if i < 0 {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Entity with id %d not found", id))
		return
	}
	s.entities = append(s.entities[:i], s.entities[i+1:]...)
	writeJSON(w, http.StatusOK, models.Message{Message: "Entity deleted successfully"})
}

func (s *Server) listComparisons(w http.ResponseWriter, r *http.Request) {
	skip, limit := pagination(r, 100)
	entityID, _ := strconv.Atoi(r.URL.Query().Get("entity_id"))

	out := []models.Comparison{}
	for i := len(s.comparisons) - 1; i >= 0; i-- {
		c := s.comparisons[i]
		if entityID > 0 && c.Entity1ID != entityID && c.Entity2ID != entityID {
			continue
		}
		out = append(out, c)
	}
	writeJSON(w, http.StatusOK, window(out, skip, limit))
}

func (s *Server) createComparison(w http.ResponseWriter, r *http.Request) {
	var in models.ComparisonInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeValidation(w, "Invalid JSON body")
		return
	}
	i1, i2 := s.findEntity(in.Entity1ID), s.findEntity(in.Entity2ID)
	if i1 < 0 {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Entity with id %d not found", in.Entity1ID))
		return
	}
	if i2 < 0 {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Entity with id %d not found", in.Entity2ID))
		return
	}
	if in.SelectedEntityID != in.Entity1ID && in.SelectedEntityID != in.Entity2ID {
		writeDetail(w, http.StatusBadRequest, "Selected entity must be one of the compared entities")
		return
	}

	created := models.Timestamp{Time: s.now().UTC()}
	c := models.Comparison{
		ID:               s.nextCompID,
		Entity1ID:        in.Entity1ID,
		Entity2ID:        in.Entity2ID,
		SelectedEntityID: in.SelectedEntityID,
		CreatedAt:        &created,
	}
	s.nextCompID++
	s.comparisons = append(s.comparisons, c)

	e1, e2 := &s.entities[i1], &s.entities[i2]
	expected1 := 1 / (1 + math.Pow(10, (e2.Rating-e1.Rating)/400))
	score1 := 0.0
	if in.SelectedEntityID == in.Entity1ID {
		score1 = 1
	}
	e1.Rating += eloKFactor * (score1 - expected1)
	e2.Rating += eloKFactor * ((1 - score1) - (1 - expected1))

	writeJSON(w, http.StatusOK, c)
}

func (s *Server) getComparison(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	for _, c := range s.comparisons {
		if c.ID == id {
			writeJSON(w, http.StatusOK, c)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, fmt.Sprintf("Comparison with id %d not found", id))
}

func (s *Server) nextComparison(w http.ResponseWriter, _ *http.Request) {
	if len(s.entities) < 2 {
		writeDetail(w, http.StatusBadRequest, "Not enough entities for comparison (need at least 2)")
		return
	}
	writeJSON(w, http.StatusOK, models.NextComparison{Entity1: s.entities[0], Entity2: s.entities[len(s.entities)-1]})
}

func (s *Server) ratings(w http.ResponseWriter, _ *http.Request) {
	out := append([]models.Entity{}, s.entities...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) pair(w http.ResponseWriter, _ *http.Request) {
	n := min(2, len(s.entities))
	writeJSON(w, http.StatusOK, append([]models.Entity{}, s.entities[:n]...))
}

// mabNext suggests the two least-compared entities.
func (s *Server) mabNext(w http.ResponseWriter, _ *http.Request) {
	if len(s.entities) < 2 {
		writeDetail(w, http.StatusBadRequest, "Need at least 2 entities for comparison")
		return
	}
	ordered := append([]models.Entity{}, s.entities...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return s.mabCounts[ordered[i].ID] < s.mabCounts[ordered[j].ID]
	})
	writeJSON(w, http.StatusOK, models.NextComparison{Entity1: ordered[0], Entity2: ordered[1]})
}

func (s *Server) mabUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get("comparison_id"))
	if err != nil {
		writeValidation(w, "Input should be a valid integer")
		return
	}
	for _, c := range s.comparisons {
		if c.ID == id {
			s.mabCounts[c.Entity1ID]++
			s.mabCounts[c.Entity2ID]++
			writeJSON(w, http.StatusOK, models.Message{Message: "MAB updated successfully"})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Comparison not found")
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	password, ok := s.users[username]
	if !ok || password != r.URL.Query().Get("password") {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	token := "token-" + username
	s.tokens[token] = models.User{ID: len(s.tokens) + 1, Username: username, Email: username + "@example.com"}
	writeJSON(w, http.StatusOK, models.Token{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	user, ok := s.userFor(r)
	if !ok {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) userFor(r *http.Request) (models.User, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return models.User{}, false
	}
	user, ok := s.tokens[token]
	return user, ok
}

// =============================================================================
// HELPERS
// =============================================================================

func pagination(r *http.Request, defaultLimit int) (int, int) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	return skip, limit
}

func window[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	end := min(skip+limit, len(items))
	return items[skip:end]
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeValidation(w, "Input should be a valid integer")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeValidation(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"detail": []map[string]any{{"loc": []string{"body"}, "msg": msg, "type": "value_error"}},
	})
}
