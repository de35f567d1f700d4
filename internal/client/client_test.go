package client_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/raphaelgruber/compere-go/internal/apitest"
	"github.com/raphaelgruber/compere-go/internal/client"
	"github.com/raphaelgruber/compere-go/internal/metrics"
	"github.com/raphaelgruber/compere-go/internal/models"
	"github.com/raphaelgruber/compere-go/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, srv *apitest.Server, token string) (*client.Client, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore(token)
	sess, err := session.New(store)
	require.NoError(t, err)
	return client.New(client.Config{BaseURL: srv.URL, Session: sess}), store
}

func TestNewDefaults(t *testing.T) {
	c := client.New(client.Config{})
	assert.Equal(t, client.DefaultBaseURL, c.BaseURL())
	assert.NotNil(t, c.Session())
	assert.False(t, c.Session().Authenticated())
}

func TestNewTrimsTrailingSlash(t *testing.T) {
	c := client.New(client.Config{BaseURL: "http://api.example.com/"})
	assert.Equal(t, "http://api.example.com", c.BaseURL())
}

func TestBearerTokenAttachedWhenPresent(t *testing.T) {
	srv := apitest.New(t)
	token := srv.IssueToken("alice")
	c, _ := newClient(t, srv, token)

	_, err := c.Entities.List(context.Background(), client.ListParams{})
	require.NoError(t, err)

	calls := srv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer "+token, calls[0].Authorization)
	assert.NotEmpty(t, calls[0].RequestID)
}

func TestNoAuthorizationHeaderWhenAnonymous(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newClient(t, srv, "")

	_, err := c.Entities.List(context.Background(), client.ListParams{})
	require.NoError(t, err)
	assert.Empty(t, srv.Calls()[0].Authorization)
}

func TestUnauthorizedClearsSession(t *testing.T) {
	srv := apitest.New(t)
	srv.RequireAuth(true)
	c, store := newClient(t, srv, "stale-token")

	_, err := c.Ratings.Leaderboard(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, client.ErrUnauthorized)

	assert.False(t, c.Session().Authenticated(), "401 clears the in-memory token")
	persisted, _ := store.Load()
	assert.Empty(t, persisted, "401 clears the persisted token")

	_, _ = c.Ratings.Leaderboard(context.Background())
	calls := srv.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "Bearer stale-token", calls[0].Authorization)
	assert.Empty(t, calls[1].Authorization, "subsequent calls omit the header")
}

func TestNonUnauthorizedErrorKeepsSession(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail("GET /ratings", http.StatusInternalServerError, "boom")
	c, _ := newClient(t, srv, "tok")

	_, err := c.Ratings.Leaderboard(context.Background())
	require.Error(t, err)
	assert.True(t, c.Session().Authenticated())
}

func TestAPIErrorDetail(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantDetail string
	}{
		{"string detail", `{"detail": "Entity with id 9 not found"}`, "Entity with id 9 not found"},
		{"validation list", `{"detail": [{"loc": ["body","name"], "msg": "field required"}]}`, "field required"},
		{"object detail", `{"detail": {"status": "not ready"}}`, `{"status": "not ready"}`},
		{"message key", `{"message": "rate limited"}`, "rate limited"},
		{"html body", `<html>Bad Gateway</html>`, ""},
		{"empty body", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := apitest.New(t)
			srv.FailRaw("GET /entities/{id}", http.StatusNotFound, tt.body)
			c, _ := newClient(t, srv, "")

			_, err := c.Entities.Get(context.Background(), 9)
			require.Error(t, err)

			var apiErr *client.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
			assert.Equal(t, tt.wantDetail, apiErr.Detail)
			assert.ErrorIs(t, err, client.ErrNotFound)
		})
	}
}

func TestMessage(t *testing.T) {
	apiErr := &client.APIError{StatusCode: 400, Detail: "Selected entity must be one of the compared entities"}
	assert.Equal(t, apiErr.Detail, client.Message(apiErr, "fallback"))
	assert.Equal(t, "fallback", client.Message(&client.APIError{StatusCode: 502}, "fallback"))
	assert.Equal(t, "fallback", client.Message(errors.New("dial tcp: refused"), "fallback"))
}

func TestAPIErrorTruncatesOnRuneBoundary(t *testing.T) {
	apiErr := &client.APIError{StatusCode: 502, Body: []byte(strings.Repeat("é", 150))}

	msg := apiErr.Error()
	assert.True(t, utf8.ValidString(msg), msg)
	assert.True(t, strings.HasSuffix(msg, ": "+strings.Repeat("é", 98)+"..."), msg)
}

func TestTimeoutIsGenericError(t *testing.T) {
	srv := apitest.New(t)
	srv.SetDelay(200 * time.Millisecond)
	c := client.New(client.Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})

	_, err := c.Ratings.Leaderboard(context.Background())
	require.Error(t, err)

	var apiErr *client.APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.Equal(t, "Failed to fetch ratings", client.Message(err, "Failed to fetch ratings"))
}

func TestEntityCRUD(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newClient(t, srv, "")
	ctx := context.Background()

	created, err := c.Entities.Create(ctx, models.EntityInput{Name: "Inception", Description: "Dreams"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultRating, created.Rating)
	assert.Equal(t, []string{}, created.ImageURLs)

	got, err := c.Entities.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Inception", got.Name)

	name := "Inception (2010)"
	updated, err := c.Entities.Update(ctx, created.ID, models.EntityUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, "Dreams", updated.Description)

	list, err := c.Entities.List(ctx, client.ListParams{Search: "2010"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, c.Entities.Delete(ctx, created.ID))
	_, err = c.Entities.Get(ctx, created.ID)
	assert.ErrorIs(t, err, client.ErrNotFound)
}

func TestListParamsForwarded(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newClient(t, srv, "")
	ctx := context.Background()

	_, err := c.Entities.List(ctx, client.ListParams{Skip: 10, Limit: 50, Search: "pizza"})
	require.NoError(t, err)
	_, err = c.Comparisons.List(ctx, client.ComparisonListParams{Limit: 5, EntityID: 3})
	require.NoError(t, err)
	_, err = c.Entities.List(ctx, client.ListParams{})
	require.NoError(t, err)

	calls := srv.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, "limit=50&search=pizza&skip=10", calls[0].Query)
	assert.Equal(t, "entity_id=3&limit=5", calls[1].Query)
	assert.Empty(t, calls[2].Query)
}

func TestComparisonAndMABEndpoints(t *testing.T) {
	srv := apitest.New(t)
	seeded := srv.SeedEntities(
		models.EntityInput{Name: "Sakura Sushi"},
		models.EntityInput{Name: "Burger Junction"},
	)
	c, _ := newClient(t, srv, "")
	ctx := context.Background()

	next, err := c.Comparisons.Next(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, next.Entity1.ID, next.Entity2.ID)

	comp, err := c.Comparisons.Create(ctx, models.ComparisonInput{
		Entity1ID: seeded[0].ID, Entity2ID: seeded[1].ID, SelectedEntityID: seeded[0].ID,
	})
	require.NoError(t, err)
	require.NotNil(t, comp.CreatedAt)

	got, err := c.Comparisons.Get(ctx, comp.ID)
	require.NoError(t, err)
	assert.Equal(t, comp.SelectedEntityID, got.SelectedEntityID)

	require.NoError(t, c.MAB.Update(ctx, comp.ID))
	assert.Equal(t, "comparison_id=1", srv.Calls()[len(srv.Calls())-1].Query)

	suggestion, err := c.MAB.NextComparison(ctx)
	require.NoError(t, err)
	assert.NotZero(t, suggestion.Entity1.ID)

	board, err := c.Ratings.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, seeded[0].ID, board[0].ID, "winner leads the leaderboard")
	assert.Greater(t, board[0].Rating, models.DefaultRating)

	similar, err := c.Ratings.Similar(ctx)
	require.NoError(t, err)
	assert.Len(t, similar, 2)
	dissimilar, err := c.Ratings.Dissimilar(ctx)
	require.NoError(t, err)
	assert.Len(t, dissimilar, 2)
}

func TestAuthEndpoints(t *testing.T) {
	srv := apitest.New(t)
	srv.AddUser("alice", "s3cret")
	c, _ := newClient(t, srv, "")
	ctx := context.Background()

	_, err := c.Auth.Login(ctx, "alice", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Incorrect username or password", client.Message(err, "Login failed"))

	token, err := c.Auth.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "bearer", token.TokenType)

	require.NoError(t, c.Session().SetToken(token.AccessToken))
	user, err := c.Auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestHealthCheck(t *testing.T) {
	srv := apitest.New(t)
	c, _ := newClient(t, srv, "")
	assert.NoError(t, c.Health.Check(context.Background()))

	down := client.New(client.Config{BaseURL: "http://127.0.0.1:1"})
	assert.Error(t, down.Health.Check(context.Background()))
}

func TestMetricsAndLogging(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail("GET /ratings", http.StatusInternalServerError, "db down")

	var logs bytes.Buffer
	collector := metrics.NewCollector(nil)
	c := client.New(client.Config{
		BaseURL: srv.URL,
		Metrics: collector,
		Logger:  slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})
	ctx := context.Background()

	_, _ = c.Ratings.Leaderboard(ctx)
	_, _ = c.Entities.Get(ctx, 42)
	_, _ = c.Entities.Get(ctx, 43)

	snap := collector.Snapshot()
	require.Len(t, snap.Operations, 2)
	assert.Equal(t, "GET /entities/{id}", snap.Operations[0].Operation)
	assert.Equal(t, int64(2), snap.Operations[0].Count)
	assert.Equal(t, "GET /ratings", snap.Operations[1].Operation)
	assert.Equal(t, int64(1), snap.Operations[1].Errors)

	assert.Contains(t, logs.String(), "api call failed")
	assert.Contains(t, logs.String(), "db down")
}

func TestCustomHTTPClient(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Content-Type")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := client.New(client.Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
	entities, err := c.Entities.List(context.Background(), client.ListParams{})
	require.NoError(t, err)
	assert.Empty(t, entities)
	assert.Equal(t, "application/json", seen)
}
