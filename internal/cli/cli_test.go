package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/raphaelgruber/compere-go/internal/apitest"
	"github.com/raphaelgruber/compere-go/internal/client"
	"github.com/raphaelgruber/compere-go/internal/models"
	"github.com/raphaelgruber/compere-go/internal/session"
	"github.com/raphaelgruber/compere-go/internal/simulation"
	"github.com/raphaelgruber/compere-go/internal/store"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useFakeAPI points the package-level stores at a fake API.
func useFakeAPI(t *testing.T) *apitest.Server {
	t.Helper()
	srv := apitest.New(t)
	sess, err := session.New(nil)
	require.NoError(t, err)

	apiClient = client.New(client.Config{BaseURL: srv.URL, Session: sess})
	entityStore = store.NewEntities(apiClient.Entities)
	comparisonStore = store.NewComparisons(apiClient.Comparisons, apiClient.Ratings, apiClient.MAB)
	authStore = store.NewAuth(apiClient.Auth, sess, nil)
	t.Cleanup(func() {
		apiClient, entityStore, comparisonStore, authStore = nil, nil, nil, nil
		compareRounds, compareMAB = 0, false
	})
	return srv
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	for _, bad := range []string{"", "abc", "0", "-3"} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}

func TestFindScenario(t *testing.T) {
	s, ok := findScenario(simulation.Scenarios(), "gamers")
	require.True(t, ok)
	assert.Equal(t, "Pro Gamer Rankings", s.Name)

	_, ok = findScenario(simulation.Scenarios(), "nope")
	assert.False(t, ok)
}

func TestSimulationError(t *testing.T) {
	assert.NoError(t, simulationError(simulation.Result{Created: 3}))
	assert.NoError(t, simulationError(simulation.Result{Created: 1, Errors: []string{"x"}}))
	assert.EqualError(t,
		simulationError(simulation.Result{Errors: []string{"a", simulation.TooFewEntities}}),
		"simulation failed: "+simulation.TooFewEntities)
}

func TestResultError(t *testing.T) {
	assert.NoError(t, resultError(store.Result[int]{Success: true}))
	assert.EqualError(t, resultError(store.Result[int]{Error: "Failed to fetch entities"}), "Failed to fetch entities")
}

func TestSimulateStopsOnCancelledCommandContext(t *testing.T) {
	srv := useFakeAPI(t)
	simulateNoProgress = true
	t.Cleanup(func() { simulateNoProgress = false })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)

	err := runSimulate(cmd, []string{"movies"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
	assert.Empty(t, srv.Calls())
}

func TestCompareInteractive(t *testing.T) {
	srv := useFakeAPI(t)
	srv.SeedEntities(models.EntityInput{Name: "Inception"}, models.EntityInput{Name: "Pulp Fiction"})
	compareRounds = 2

	in := bufio.NewReader(strings.NewReader("x\ns\n1\n2\n"))
	require.NoError(t, compareInteractive(context.Background(), in))

	comparisons := srv.Comparisons()
	require.Len(t, comparisons, 2)
	assert.Equal(t, 1, comparisons[0].SelectedEntityID)
	assert.Equal(t, 2, comparisons[1].SelectedEntityID)
}

func TestCompareInteractiveQuit(t *testing.T) {
	srv := useFakeAPI(t)
	srv.SeedEntities(models.EntityInput{Name: "A"}, models.EntityInput{Name: "B"})

	require.NoError(t, compareInteractive(context.Background(), bufio.NewReader(strings.NewReader("q\n"))))
	assert.Empty(t, srv.Comparisons())
}

func TestCompareInteractiveNoPair(t *testing.T) {
	useFakeAPI(t)

	err := compareInteractive(context.Background(), bufio.NewReader(strings.NewReader("")))
	assert.ErrorContains(t, err, "get next comparison")
}
