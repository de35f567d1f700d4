package store

import (
	"context"
	"errors"
	"math"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/raphaelgruber/compere-go/internal/client"
	"github.com/raphaelgruber/compere-go/internal/models"
	"golang.org/x/sync/errgroup"
)

// ComparisonService is the subset of the comparison API the store needs.
type ComparisonService interface {
	List(ctx context.Context, params client.ComparisonListParams) ([]models.Comparison, error)
	Create(ctx context.Context, input models.ComparisonInput) (*models.Comparison, error)
	Next(ctx context.Context) (*models.NextComparison, error)
}

// RatingService returns the server's leaderboard.
type RatingService interface {
	Leaderboard(ctx context.Context) ([]models.Entity, error)
}

// MABService is the bandit API.
type MABService interface {
	NextComparison(ctx context.Context) (*models.NextComparison, error)
	Update(ctx context.Context, comparisonID int) error
}

// TopRatedLimit caps TopRated.
const TopRatedLimit = 10

// recentWindow is the age below which a loaded comparison counts as recent.
const recentWindow = 24 * time.Hour

// Stats summarises the loaded comparison and rating sets.
type Stats struct {
	TotalComparisons  int
	RecentComparisons int
	// AverageRating is the rounded mean of the loaded ratings, not the
	// server's aggregate. It stays at the default until ratings load.
	AverageRating int
}

// Comparisons caches comparison history, suggestions and ratings.
type Comparisons struct {
	status

	comparisons ComparisonService
	ratings     RatingService
	mab         MABService
	now         func() time.Time

	mu            sync.RWMutex
	history       []models.Comparison
	current       *models.NextComparison
	next          *models.NextComparison
	mabSuggestion *models.NextComparison
	leaderboard   []models.Entity
	total         int
	average       int
}

// NewComparisons creates an empty comparison store.
func NewComparisons(comparisons ComparisonService, ratings RatingService, mab MABService) *Comparisons {
	return &Comparisons{
		comparisons: comparisons,
		ratings:     ratings,
		mab:         mab,
		now:         time.Now,
		average:     int(models.DefaultRating),
	}
}

// =============================================================================
// STATE
// =============================================================================

// History returns the loaded comparisons, newest first.
func (s *Comparisons) History() []models.Comparison {
	s.mu.RLock()
	out := append([]models.Comparison(nil), s.history...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Created().After(out[j].Created()) })
	return out
}

// Ratings returns the loaded leaderboard in server order.
func (s *Comparisons) Ratings() []models.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Entity(nil), s.leaderboard...)
}

// TopRated returns up to TopRatedLimit entities by descending rating.
func (s *Comparisons) TopRated() []models.Entity {
	out := s.Ratings()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	if len(out) > TopRatedLimit {
		out = out[:TopRatedLimit]
	}
	return out
}

// Next returns the next suggested comparison, or nil.
func (s *Comparisons) Next() *models.NextComparison {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyPair(s.next)
}

// HasNext reports whether a next comparison is loaded.
func (s *Comparisons) HasNext() bool {
	return s.Next() != nil
}

// MabSuggestion returns the bandit's suggestion, or nil.
func (s *Comparisons) MabSuggestion() *models.NextComparison {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyPair(s.mabSuggestion)
}

// HasMabSuggestion reports whether a bandit suggestion is loaded.
func (s *Comparisons) HasMabSuggestion() bool {
	return s.MabSuggestion() != nil
}

// Current returns the pair being judged, or nil.
func (s *Comparisons) Current() *models.NextComparison {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyPair(s.current)
}

// SetCurrent sets the pair being judged.
func (s *Comparisons) SetCurrent(pair *models.NextComparison) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = copyPair(pair)
}

// Stats returns the derived statistics.
func (s *Comparisons) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-recentWindow)
	recent := 0
	for _, c := range s.history {
		if c.Created().After(cutoff) {
			recent++
		}
	}
	return Stats{
		TotalComparisons:  s.total,
		RecentComparisons: recent,
		AverageRating:     s.average,
	}
}

func copyPair(p *models.NextComparison) *models.NextComparison {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// averageRating is the rounded arithmetic mean, or ok=false for an empty set.
func averageRating(entities []models.Entity) (avg int, ok bool) {
	if len(entities) == 0 {
		return 0, false
	}
	total := 0.0
	for _, e := range entities {
		total += e.Rating
	}
	return int(math.Round(total / float64(len(entities)))), true
}

// =============================================================================
// ACTIONS
// =============================================================================

// FetchComparisons replaces the history with the server's list.
func (s *Comparisons) FetchComparisons(ctx context.Context, params client.ComparisonListParams) Result[[]models.Comparison] {
	s.begin()
	defer s.end()

	comparisons, err := s.comparisons.List(ctx, params)
	if err != nil {
		return fail[[]models.Comparison](s.failWith(err, "Failed to fetch comparisons"))
	}

	s.mu.Lock()
	s.history = slices.Clone(comparisons)
	s.total = len(comparisons)
	s.mu.Unlock()

	return ok(comparisons)
}

// FetchRatings reloads the leaderboard and recomputes the average rating.
// It does not touch the loading counter.
func (s *Comparisons) FetchRatings(ctx context.Context) Result[[]models.Entity] {
	entities, err := s.ratings.Leaderboard(ctx)
	if err != nil {
		return fail[[]models.Entity](s.failWith(err, "Failed to fetch ratings"))
	}

	s.mu.Lock()
	s.leaderboard = slices.Clone(entities)
	if avg, ok := averageRating(entities); ok {
		s.average = avg
	}
	s.mu.Unlock()

	return ok(entities)
}

// GetNextComparison loads the server's next pair. On failure the next pair is cleared.
func (s *Comparisons) GetNextComparison(ctx context.Context) Result[*models.NextComparison] {
	s.begin()
	defer s.end()

	next, err := s.comparisons.Next(ctx)
	if err != nil {
		msg := s.failWith(err, "Failed to get next comparison")
		s.mu.Lock()
		s.next = nil
		s.mu.Unlock()
		return fail[*models.NextComparison](msg)
	}

	s.mu.Lock()
	s.next = copyPair(next)
	s.mu.Unlock()

	return ok(next)
}

// GetMabSuggestion loads the bandit's pair. On failure the suggestion is cleared.
// It does not touch the loading counter.
func (s *Comparisons) GetMabSuggestion(ctx context.Context) Result[*models.NextComparison] {
	next, err := s.mab.NextComparison(ctx)
	if err != nil {
		msg := s.failWith(err, "Failed to get MAB suggestion")
		s.mu.Lock()
		s.mabSuggestion = nil
		s.mu.Unlock()
		return fail[*models.NextComparison](msg)
	}

	s.mu.Lock()
	s.mabSuggestion = copyPair(next)
	s.mu.Unlock()

	return ok(next)
}

// CreateComparison persists a comparison, feeds it to the bandit and refreshes
// ratings, in that order. A failing step skips the rest. There is no rollback:
// when the bandit update or ratings refresh fails, the comparison stays
// persisted and cached, and the Result carries it alongside the error.
func (s *Comparisons) CreateComparison(ctx context.Context, input models.ComparisonInput) Result[*models.Comparison] {
	s.begin()
	defer s.end()

	comparison, err := s.comparisons.Create(ctx, input)
	if err != nil {
		return fail[*models.Comparison](s.failWith(err, "Failed to create comparison"))
	}

	s.mu.Lock()
	s.history = append([]models.Comparison{*comparison}, s.history...)
	s.total++
	s.mu.Unlock()

	if err := s.mab.Update(ctx, comparison.ID); err != nil {
		return Result[*models.Comparison]{Data: comparison, Error: s.failWith(err, "Failed to create comparison")}
	}

	if res := s.FetchRatings(ctx); !res.Success {
		return Result[*models.Comparison]{Data: comparison, Error: res.Error}
	}

	return ok(comparison)
}

// SubmitComparison records the user's judgment and loads the next suggestions:
// persist, bandit update, ratings refresh, next pair, bandit suggestion.
// A failure at persistence leaves Next untouched; any failure skips the
// remaining steps.
func (s *Comparisons) SubmitComparison(ctx context.Context, entity1ID, entity2ID, winnerID int) Result[*models.Comparison] {
	res := s.CreateComparison(ctx, models.ComparisonInput{
		Entity1ID:        entity1ID,
		Entity2ID:        entity2ID,
		SelectedEntityID: winnerID,
	})
	if !res.Success {
		return res
	}

	s.mu.Lock()
	s.next = nil
	s.current = nil
	s.mu.Unlock()

	if next := s.GetNextComparison(ctx); !next.Success {
		return Result[*models.Comparison]{Data: res.Data, Error: next.Error}
	}
	if suggestion := s.GetMabSuggestion(ctx); !suggestion.Success {
		return Result[*models.Comparison]{Data: res.Data, Error: suggestion.Error}
	}

	return res
}

// RefreshData reloads history, ratings and the bandit suggestion concurrently.
// All three run to completion; the first failure is reported.
func (s *Comparisons) RefreshData(ctx context.Context) Result[Empty] {
	var g errgroup.Group

	g.Go(func() error {
		return resultErr(s.FetchComparisons(ctx, client.ComparisonListParams{}))
	})
	g.Go(func() error {
		return resultErr(s.FetchRatings(ctx))
	})
	g.Go(func() error {
		return resultErr(s.GetMabSuggestion(ctx))
	})

	if err := g.Wait(); err != nil {
		return fail[Empty](err.Error())
	}
	return ok(Empty{})
}

func resultErr[T any](r Result[T]) error {
	if r.Success {
		return nil
	}
	return errors.New(r.Error)
}
