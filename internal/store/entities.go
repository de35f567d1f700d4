package store

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/raphaelgruber/compere-go/internal/client"
	"github.com/raphaelgruber/compere-go/internal/models"
)

// EntityService is the subset of the entity API the store needs.
type EntityService interface {
	List(ctx context.Context, params client.ListParams) ([]models.Entity, error)
	Get(ctx context.Context, id int) (*models.Entity, error)
	Create(ctx context.Context, input models.EntityInput) (*models.Entity, error)
	Update(ctx context.Context, id int, input models.EntityUpdate) (*models.Entity, error)
	Delete(ctx context.Context, id int) error
}

// Pagination is the window used by Refresh.
type Pagination struct {
	Skip  int
	Limit int
	Total int
}

// DefaultPageSize is the Refresh limit of a new store.
const DefaultPageSize = 50

// Entities caches the entity collection.
type Entities struct {
	status

	api EntityService

	mu         sync.RWMutex
	entities   []models.Entity
	current    *models.Entity
	query      string
	pagination Pagination
}

// NewEntities creates an empty entity store.
func NewEntities(api EntityService) *Entities {
	return &Entities{
		api:        api,
		pagination: Pagination{Limit: DefaultPageSize},
	}
}

// =============================================================================
// STATE
// =============================================================================

// All returns a copy of the cached collection in server order.
func (s *Entities) All() []models.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Entity(nil), s.entities...)
}

// Current returns the entity loaded by FetchOne, or nil.
func (s *Entities) Current() *models.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	e := *s.current
	return &e
}

// SearchQuery returns the active filter.
func (s *Entities) SearchQuery() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// SetSearchQuery sets the filter used by Filtered and Sorted.
func (s *Entities) SetSearchQuery(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = q
}

// Pagination returns the Refresh window.
func (s *Entities) Pagination() Pagination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pagination
}

// SetPage moves the Refresh window.
func (s *Entities) SetPage(skip, limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pagination.Skip = skip
	if limit > 0 {
		s.pagination.Limit = limit
	}
}

// Filtered returns the entities whose name or description contains the
// search query, case-insensitively. An empty query matches everything.
func (s *Entities) Filtered() []models.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterEntities(s.entities, s.query)
}

// Sorted returns Filtered ordered by descending rating. Ties keep server order.
func (s *Entities) Sorted() []models.Entity {
	out := s.Filtered()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	return out
}

func filterEntities(entities []models.Entity, query string) []models.Entity {
	if query == "" {
		return append([]models.Entity(nil), entities...)
	}
	q := strings.ToLower(query)
	out := make([]models.Entity, 0, len(entities))
	for _, e := range entities {
		if strings.Contains(strings.ToLower(e.Name), q) || strings.Contains(strings.ToLower(e.Description), q) {
			out = append(out, e)
		}
	}
	return out
}

// =============================================================================
// ACTIONS
// =============================================================================

// Fetch replaces the collection with the server's list.
func (s *Entities) Fetch(ctx context.Context, params client.ListParams) Result[[]models.Entity] {
	s.begin()
	defer s.end()

	entities, err := s.api.List(ctx, params)
	if err != nil {
		return fail[[]models.Entity](s.failWith(err, "Failed to fetch entities"))
	}

	s.mu.Lock()
	s.entities = slices.Clone(entities)
	s.pagination.Total = len(entities)
	s.mu.Unlock()

	return ok(entities)
}

// Refresh fetches the current pagination window.
func (s *Entities) Refresh(ctx context.Context) Result[[]models.Entity] {
	p := s.Pagination()
	return s.Fetch(ctx, client.ListParams{Skip: p.Skip, Limit: p.Limit})
}

// FetchOne loads one entity as the current entity.
func (s *Entities) FetchOne(ctx context.Context, id int) Result[*models.Entity] {
	s.begin()
	defer s.end()

	entity, err := s.api.Get(ctx, id)
	if err != nil {
		return fail[*models.Entity](s.failWith(err, "Failed to fetch entity"))
	}

	cached := *entity
	s.mu.Lock()
	s.current = &cached
	s.mu.Unlock()

	return ok(entity)
}

// Create creates an entity and appends it to the collection.
func (s *Entities) Create(ctx context.Context, input models.EntityInput) Result[*models.Entity] {
	s.begin()
	defer s.end()

	entity, err := s.api.Create(ctx, input)
	if err != nil {
		return fail[*models.Entity](s.failWith(err, "Failed to create entity"))
	}

	s.mu.Lock()
	s.entities = append(s.entities, *entity)
	s.mu.Unlock()

	return ok(entity)
}

// Update updates an entity and replaces the cached copy with the same id.
// Nothing is replaced when the id is not cached.
func (s *Entities) Update(ctx context.Context, id int, input models.EntityUpdate) Result[*models.Entity] {
	s.begin()
	defer s.end()

	entity, err := s.api.Update(ctx, id, input)
	if err != nil {
		return fail[*models.Entity](s.failWith(err, "Failed to update entity"))
	}

	s.mu.Lock()
	for i := range s.entities {
		if s.entities[i].ID == id {
			s.entities[i] = *entity
			break
		}
	}
	s.mu.Unlock()

	return ok(entity)
}

// Delete deletes an entity and drops it from the collection.
func (s *Entities) Delete(ctx context.Context, id int) Result[Empty] {
	s.begin()
	defer s.end()

	if err := s.api.Delete(ctx, id); err != nil {
		return fail[Empty](s.failWith(err, "Failed to delete entity"))
	}

	s.mu.Lock()
	kept := s.entities[:0:0]
	for _, e := range s.entities {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	s.entities = kept
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.mu.Unlock()

	return ok(Empty{})
}
