package store_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/raphaelgruber/compere-go/internal/apitest"
	"github.com/raphaelgruber/compere-go/internal/client"
	"github.com/raphaelgruber/compere-go/internal/models"
	"github.com/raphaelgruber/compere-go/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newComparisons(c *client.Client) *store.Comparisons {
	return store.NewComparisons(c.Comparisons, c.Ratings, c.MAB)
}

func seedPair(srv *apitest.Server) (models.Entity, models.Entity) {
	seeded := srv.SeedEntities(
		models.EntityInput{Name: "The Dark Knight"},
		models.EntityInput{Name: "Inception"},
	)
	return seeded[0], seeded[1]
}

func TestComparisonsDefaults(t *testing.T) {
	_, c := newAPI(t, "")
	s := newComparisons(c)

	stats := s.Stats()
	assert.Equal(t, 1500, stats.AverageRating)
	assert.Zero(t, stats.TotalComparisons)
	assert.False(t, s.HasNext())
	assert.False(t, s.HasMabSuggestion())
	assert.Empty(t, s.History())
}

func TestCreateComparisonSequence(t *testing.T) {
	srv, c := newAPI(t, "")
	a, b := seedPair(srv)
	s := newComparisons(c)

	res := s.CreateComparison(context.Background(), models.ComparisonInput{
		Entity1ID: a.ID, Entity2ID: b.ID, SelectedEntityID: a.ID,
	})
	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.Data)

	assert.Equal(t, []string{"POST /comparisons/", "POST /mab/update", "GET /ratings"}, srv.Routes())
	assert.Equal(t, 1, s.Stats().TotalComparisons)
	assert.Len(t, s.History(), 1)
	require.Len(t, s.Ratings(), 2)
	assert.Equal(t, a.ID, s.TopRated()[0].ID)
}

func TestSubmitComparisonFullChain(t *testing.T) {
	srv, c := newAPI(t, "")
	a, b := seedPair(srv)
	s := newComparisons(c)
	ctx := context.Background()

	res := s.SubmitComparison(ctx, a.ID, b.ID, b.ID)
	require.True(t, res.Success, res.Error)

	assert.Equal(t, []string{
		"POST /comparisons/",
		"POST /mab/update",
		"GET /ratings",
		"GET /comparisons/next",
		"GET /mab/next_comparison",
	}, srv.Routes())
	assert.True(t, s.HasNext())
	assert.True(t, s.HasMabSuggestion())
	assert.Equal(t, b.ID, res.Data.SelectedEntityID)
}

func TestSubmitComparisonPersistFailure(t *testing.T) {
	srv, c := newAPI(t, "")
	a, b := seedPair(srv)
	s := newComparisons(c)
	ctx := context.Background()

	require.True(t, s.GetNextComparison(ctx).Success)
	before := s.Next()
	require.NotNil(t, before)
	srv.ResetCalls()

	srv.Fail("POST /comparisons/", http.StatusInternalServerError, "write failed")
	res := s.SubmitComparison(ctx, a.ID, b.ID, a.ID)

	assert.False(t, res.Success)
	assert.Equal(t, "write failed", res.Error)
	assert.Nil(t, res.Data)
	assert.Equal(t, before, s.Next(), "next comparison unchanged")
	assert.Zero(t, srv.CallCount("POST /mab/update"))
	assert.Zero(t, srv.CallCount("GET /ratings"))
	assert.Equal(t, []string{"POST /comparisons/"}, srv.Routes())
	assert.Zero(t, s.Stats().TotalComparisons)
}

func TestSubmitComparisonMABFailureKeepsComparison(t *testing.T) {
	srv, c := newAPI(t, "")
	a, b := seedPair(srv)
	s := newComparisons(c)

	srv.Fail("POST /mab/update", http.StatusInternalServerError, "bandit offline")
	res := s.SubmitComparison(context.Background(), a.ID, b.ID, a.ID)

	assert.False(t, res.Success)
	assert.Equal(t, "bandit offline", res.Error)
	require.NotNil(t, res.Data, "persisted comparison is reported")
	assert.Len(t, srv.Comparisons(), 1, "no rollback")
	assert.Len(t, s.History(), 1)
	assert.Zero(t, srv.CallCount("GET /ratings"))
	assert.Zero(t, srv.CallCount("GET /comparisons/next"))
}

func TestSubmitComparisonRatingsFailureAborts(t *testing.T) {
	srv, c := newAPI(t, "")
	a, b := seedPair(srv)
	s := newComparisons(c)

	srv.Fail("GET /ratings", http.StatusServiceUnavailable, "ratings unavailable")
	res := s.SubmitComparison(context.Background(), a.ID, b.ID, a.ID)

	assert.False(t, res.Success)
	assert.Equal(t, "ratings unavailable", res.Error)
	assert.Zero(t, srv.CallCount("GET /comparisons/next"))
	assert.Zero(t, srv.CallCount("GET /mab/next_comparison"))
}

func TestSubmitComparisonNextFailureSkipsSuggestion(t *testing.T) {
	srv, c := newAPI(t, "")
	a, b := seedPair(srv)
	s := newComparisons(c)

	srv.Fail("GET /comparisons/next", http.StatusBadRequest, "Not enough entities for comparison (need at least 2)")
	res := s.SubmitComparison(context.Background(), a.ID, b.ID, a.ID)

	assert.False(t, res.Success)
	assert.False(t, s.HasNext())
	assert.Zero(t, srv.CallCount("GET /mab/next_comparison"))
}

func TestSubmitComparisonInvalidWinner(t *testing.T) {
	srv, c := newAPI(t, "")
	a, b := seedPair(srv)
	s := newComparisons(c)

	res := s.SubmitComparison(context.Background(), a.ID, b.ID, 999)
	assert.False(t, res.Success)
	assert.Equal(t, "Selected entity must be one of the compared entities", res.Error)
	assert.Equal(t, res.Error, s.LastError())
}

func TestGetNextComparisonFailureClearsNext(t *testing.T) {
	srv, c := newAPI(t, "")
	seedPair(srv)
	s := newComparisons(c)
	ctx := context.Background()

	require.True(t, s.GetNextComparison(ctx).Success)
	require.True(t, s.GetMabSuggestion(ctx).Success)

	srv.Fail("GET /comparisons/next", http.StatusInternalServerError, "boom")
	srv.Fail("GET /mab/next_comparison", http.StatusInternalServerError, "boom")

	assert.False(t, s.GetNextComparison(ctx).Success)
	assert.False(t, s.HasNext())
	assert.False(t, s.GetMabSuggestion(ctx).Success)
	assert.False(t, s.HasMabSuggestion())
}

func TestFetchRatingsAverage(t *testing.T) {
	srv, c := newAPI(t, "")
	a, b := seedPair(srv)
	s := newComparisons(c)
	ctx := context.Background()

	require.True(t, s.CreateComparison(ctx, models.ComparisonInput{Entity1ID: a.ID, Entity2ID: b.ID, SelectedEntityID: a.ID}).Success)

	// Elo is zero-sum, so the mean stays at the starting rating.
	assert.Equal(t, 1500, s.Stats().AverageRating)

	srv.SeedEntities(models.EntityInput{Name: "Spirited Away"})
	res := s.FetchRatings(ctx)
	require.True(t, res.Success)
	assert.Len(t, s.Ratings(), 3)
	assert.Equal(t, 1500, s.Stats().AverageRating)
}

func TestComparisonResultsDoNotAliasCache(t *testing.T) {
	srv, c := newAPI(t, "")
	a, b := seedPair(srv)
	s := newComparisons(c)
	ctx := context.Background()
	require.True(t, s.CreateComparison(ctx, models.ComparisonInput{Entity1ID: a.ID, Entity2ID: b.ID, SelectedEntityID: a.ID}).Success)

	ratings := s.FetchRatings(ctx)
	require.True(t, ratings.Success)
	ratings.Data[0].Name = "edited"
	assert.NotEqual(t, "edited", s.Ratings()[0].Name)

	history := s.FetchComparisons(ctx, client.ComparisonListParams{})
	require.True(t, history.Success)
	history.Data[0].SelectedEntityID = 0
	assert.Equal(t, a.ID, s.History()[0].SelectedEntityID)

	next := s.GetNextComparison(ctx)
	require.True(t, next.Success)
	next.Data.Entity1.Name = "edited"
	assert.NotEqual(t, "edited", s.Next().Entity1.Name)
}

func TestFetchRatingsEmptyKeepsDefault(t *testing.T) {
	_, c := newAPI(t, "")
	s := newComparisons(c)

	require.True(t, s.FetchRatings(context.Background()).Success)
	assert.Equal(t, 1500, s.Stats().AverageRating)
}

func TestHistoryNewestFirst(t *testing.T) {
	srv, c := newAPI(t, "")
	a, b := seedPair(srv)
	s := newComparisons(c)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.True(t, s.CreateComparison(ctx, models.ComparisonInput{Entity1ID: a.ID, Entity2ID: b.ID, SelectedEntityID: a.ID}).Success)
	}

	res := s.FetchComparisons(ctx, client.ComparisonListParams{})
	require.True(t, res.Success)

	history := s.History()
	require.Len(t, history, 3)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].Created().After(history[i-1].Created()))
	}
	assert.Equal(t, 3, s.Stats().TotalComparisons)
	assert.Equal(t, 3, s.Stats().RecentComparisons)
}

func TestRefreshData(t *testing.T) {
	srv, c := newAPI(t, "")
	seedPair(srv)
	s := newComparisons(c)

	res := s.RefreshData(context.Background())
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, srv.CallCount("GET /comparisons/"))
	assert.Equal(t, 1, srv.CallCount("GET /ratings"))
	assert.Equal(t, 1, srv.CallCount("GET /mab/next_comparison"))
	assert.True(t, s.HasMabSuggestion())
}

func TestRefreshDataReportsFailureButRunsAll(t *testing.T) {
	srv, c := newAPI(t, "")
	seedPair(srv)
	s := newComparisons(c)

	srv.Fail("GET /ratings", http.StatusInternalServerError, "ratings down")
	res := s.RefreshData(context.Background())

	assert.False(t, res.Success)
	assert.Equal(t, "ratings down", res.Error)
	assert.Equal(t, 1, srv.CallCount("GET /comparisons/"))
	assert.Equal(t, 1, srv.CallCount("GET /mab/next_comparison"))
}

func TestCurrentPair(t *testing.T) {
	srv, c := newAPI(t, "")
	a, b := seedPair(srv)
	s := newComparisons(c)

	s.SetCurrent(&models.NextComparison{Entity1: a, Entity2: b})
	require.NotNil(t, s.Current())
	assert.Equal(t, a.ID, s.Current().Entity1.ID)

	require.True(t, s.SubmitComparison(context.Background(), a.ID, b.ID, a.ID).Success)
	assert.Nil(t, s.Current())
}
