package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/raphaelgruber/compere-go/internal/models"
)

// =============================================================================
// ENTITIES
// =============================================================================

// EntityAPI maps entity operations to /entities endpoints.
type EntityAPI struct {
	c *Client
}

// ListParams forwards search and pagination to list endpoints. Zero values are omitted.
type ListParams struct {
	Skip   int
	Limit  int
	Search string
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Skip > 0 {
		v.Set("skip", strconv.Itoa(p.Skip))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	return v
}

// List returns entities.
func (a *EntityAPI) List(ctx context.Context, params ListParams) ([]models.Entity, error) {
	var entities []models.Entity
	err := a.c.do(ctx, request{
		method: http.MethodGet,
		route:  "/entities/",
		path:   "/entities/",
		query:  params.values(),
	}, &entities)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	return entities, nil
}

// Get returns one entity.
func (a *EntityAPI) Get(ctx context.Context, id int) (*models.Entity, error) {
	var entity models.Entity
	err := a.c.do(ctx, request{
		method: http.MethodGet,
		route:  "/entities/{id}",
		path:   "/entities/" + strconv.Itoa(id),
	}, &entity)
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return &entity, nil
}

// Create creates an entity.
func (a *EntityAPI) Create(ctx context.Context, input models.EntityInput) (*models.Entity, error) {
	if input.ImageURLs == nil {
		input.ImageURLs = []string{}
	}
	var entity models.Entity
	err := a.c.do(ctx, request{
		method: http.MethodPost,
		route:  "/entities/",
		path:   "/entities/",
		body:   input,
	}, &entity)
	if err != nil {
		return nil, fmt.Errorf("create entity: %w", err)
	}
	return &entity, nil
}

// Update updates an entity.
func (a *EntityAPI) Update(ctx context.Context, id int, input models.EntityUpdate) (*models.Entity, error) {
	var entity models.Entity
	err := a.c.do(ctx, request{
		method: http.MethodPut,
		route:  "/entities/{id}",
		path:   "/entities/" + strconv.Itoa(id),
		body:   input,
	}, &entity)
	if err != nil {
		return nil, fmt.Errorf("update entity: %w", err)
	}
	return &entity, nil
}

// Delete deletes an entity.
func (a *EntityAPI) Delete(ctx context.Context, id int) error {
	err := a.c.do(ctx, request{
		method: http.MethodDelete,
		route:  "/entities/{id}",
		path:   "/entities/" + strconv.Itoa(id),
	}, nil)
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	return nil
}

// =============================================================================
// COMPARISONS
// =============================================================================

// ComparisonAPI maps comparison operations to /comparisons endpoints.
type ComparisonAPI struct {
	c *Client
}

// ComparisonListParams forwards pagination and the entity filter. Zero values are omitted.
type ComparisonListParams struct {
	Skip     int
	Limit    int
	EntityID int
}

func (p ComparisonListParams) values() url.Values {
	v := url.Values{}
	if p.Skip > 0 {
		v.Set("skip", strconv.Itoa(p.Skip))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.EntityID > 0 {
		v.Set("entity_id", strconv.Itoa(p.EntityID))
	}
	return v
}

// List returns comparisons.
func (a *ComparisonAPI) List(ctx context.Context, params ComparisonListParams) ([]models.Comparison, error) {
	var comparisons []models.Comparison
	err := a.c.do(ctx, request{
		method: http.MethodGet,
		route:  "/comparisons/",
		path:   "/comparisons/",
		query:  params.values(),
	}, &comparisons)
	if err != nil {
		return nil, fmt.Errorf("list comparisons: %w", err)
	}
	return comparisons, nil
}

// Get returns one comparison.
func (a *ComparisonAPI) Get(ctx context.Context, id int) (*models.Comparison, error) {
	var comparison models.Comparison
	err := a.c.do(ctx, request{
		method: http.MethodGet,
		route:  "/comparisons/{id}",
		path:   "/comparisons/" + strconv.Itoa(id),
	}, &comparison)
	if err != nil {
		return nil, fmt.Errorf("get comparison: %w", err)
	}
	return &comparison, nil
}

// Create records a comparison.
func (a *ComparisonAPI) Create(ctx context.Context, input models.ComparisonInput) (*models.Comparison, error) {
	var comparison models.Comparison
	err := a.c.do(ctx, request{
		method: http.MethodPost,
		route:  "/comparisons/",
		path:   "/comparisons/",
		body:   input,
	}, &comparison)
	if err != nil {
		return nil, fmt.Errorf("create comparison: %w", err)
	}
	return &comparison, nil
}

// Next returns the server's similarity-based next pair.
func (a *ComparisonAPI) Next(ctx context.Context) (*models.NextComparison, error) {
	var next models.NextComparison
	err := a.c.do(ctx, request{
		method: http.MethodGet,
		route:  "/comparisons/next",
		path:   "/comparisons/next",
	}, &next)
	if err != nil {
		return nil, fmt.Errorf("get next comparison: %w", err)
	}
	return &next, nil
}

// =============================================================================
// RATINGS
// =============================================================================

// RatingAPI maps leaderboard and similarity endpoints.
type RatingAPI struct {
	c *Client
}

// Leaderboard returns all entities ordered by rating, as computed by the server.
func (a *RatingAPI) Leaderboard(ctx context.Context) ([]models.Entity, error) {
	return a.entities(ctx, "/ratings", "get ratings")
}

// Similar returns the server's most similar entities.
func (a *RatingAPI) Similar(ctx context.Context) ([]models.Entity, error) {
	return a.entities(ctx, "/similar_entities", "get similar entities")
}

// Dissimilar returns the server's most dissimilar entities.
func (a *RatingAPI) Dissimilar(ctx context.Context) ([]models.Entity, error) {
	return a.entities(ctx, "/dissimilar_entities", "get dissimilar entities")
}

func (a *RatingAPI) entities(ctx context.Context, path, verb string) ([]models.Entity, error) {
	var entities []models.Entity
	err := a.c.do(ctx, request{
		method: http.MethodGet,
		route:  path,
		path:   path,
	}, &entities)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", verb, err)
	}
	return entities, nil
}

// =============================================================================
// MAB
// =============================================================================

// MABAPI maps the multi-armed bandit endpoints.
type MABAPI struct {
	c *Client
}

// NextComparison returns the bandit's suggested pair.
func (a *MABAPI) NextComparison(ctx context.Context) (*models.NextComparison, error) {
	var next models.NextComparison
	err := a.c.do(ctx, request{
		method: http.MethodGet,
		route:  "/mab/next_comparison",
		path:   "/mab/next_comparison",
	}, &next)
	if err != nil {
		return nil, fmt.Errorf("get mab suggestion: %w", err)
	}
	return &next, nil
}

// Update feeds a recorded comparison into the bandit state.
func (a *MABAPI) Update(ctx context.Context, comparisonID int) error {
	err := a.c.do(ctx, request{
		method: http.MethodPost,
		route:  "/mab/update",
		path:   "/mab/update",
		query:  url.Values{"comparison_id": {strconv.Itoa(comparisonID)}},
	}, nil)
	if err != nil {
		return fmt.Errorf("update mab: %w", err)
	}
	return nil
}

// =============================================================================
// AUTH
// =============================================================================

// AuthAPI maps the authentication endpoints. It does not touch the session;
// that is the auth store's job.
type AuthAPI struct {
	c *Client
}

// Login exchanges credentials for a bearer token.
func (a *AuthAPI) Login(ctx context.Context, username, password string) (*models.Token, error) {
	var token models.Token
	err := a.c.do(ctx, request{
		method: http.MethodPost,
		route:  "/auth/token",
		path:   "/auth/token",
		query:  url.Values{"username": {username}, "password": {password}},
	}, &token)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &token, nil
}

// CurrentUser returns the profile of the session's user.
func (a *AuthAPI) CurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	err := a.c.do(ctx, request{
		method: http.MethodGet,
		route:  "/auth/users/me",
		path:   "/auth/users/me",
	}, &user)
	if err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return &user, nil
}

// =============================================================================
// HEALTH
// =============================================================================

// HealthAPI probes API reachability.
type HealthAPI struct {
	c *Client
}

// Check succeeds when the API docs page answers 2xx.
func (a *HealthAPI) Check(ctx context.Context) error {
	if err := a.c.do(ctx, request{
		method: http.MethodGet,
		route:  "/docs",
		path:   "/docs",
	}, nil); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	return nil
}
