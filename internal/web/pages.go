package web

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/raphaelgruber/compere-go/internal/client"
	"github.com/raphaelgruber/compere-go/internal/models"
	"github.com/raphaelgruber/compere-go/internal/simulation"
	"github.com/raphaelgruber/compere-go/internal/store"
)

// maxSimulationCount bounds the comparisons a single UI run may create.
const maxSimulationCount = 500

// =============================================================================
// DASHBOARD
// =============================================================================

type dashboardData struct {
	EntityCount int
	Stats       store.Stats
	TopRated    []models.Entity
	Healthy     bool
}

func (v *Views) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := v.newPage(r)

	entities := v.entities.Refresh(ctx)
	p.check(entities.Success, entities.Error)
	res := v.comparisons.RefreshData(ctx)
	p.check(res.Success, res.Error)

	data := dashboardData{
		EntityCount: len(v.entities.All()),
		Stats:       v.comparisons.Stats(),
		TopRated:    v.comparisons.TopRated(),
	}
	if v.health != nil {
		data.Healthy = v.health.Check(ctx) == nil
	}
	p.Data = data
	v.render(w, r, p)
}

// =============================================================================
// ENTITY MANAGER
// =============================================================================

type entitiesData struct {
	Query    string
	Entities []models.Entity
	Editing  *models.Entity
}

func (v *Views) entityManager(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := v.newPage(r)

	if r.Method == http.MethodPost {
		v.entityAction(r, p)
	}

	v.entities.SetSearchQuery(r.URL.Query().Get("q"))
	if res := v.entities.Refresh(ctx); !res.Success {
		p.check(false, res.Error)
	}

	data := entitiesData{Query: v.entities.SearchQuery(), Entities: v.entities.Sorted()}
	if id, err := strconv.Atoi(r.URL.Query().Get("edit")); err == nil {
		if res := v.entities.FetchOne(ctx, id); p.check(res.Success, res.Error) {
			data.Editing = res.Data
		}
	}
	p.Data = data
	v.render(w, r, p)
}

func (v *Views) entityAction(r *http.Request, p *page) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		p.check(false, "Invalid form submission")
		return
	}

	switch r.PostForm.Get("action") {
	case "create":
		res := v.entities.Create(ctx, models.EntityInput{
			Name:        strings.TrimSpace(r.PostForm.Get("name")),
			Description: strings.TrimSpace(r.PostForm.Get("description")),
			Category:    strings.TrimSpace(r.PostForm.Get("category")),
			ImageURLs:   splitLines(r.PostForm.Get("image_urls")),
		})
		if p.check(res.Success, res.Error) {
			p.Flash = "Created " + res.Data.Name
		}

	case "update":
		id, err := strconv.Atoi(r.PostForm.Get("id"))
		if err != nil {
			p.check(false, "Invalid entity id")
			return
		}
		name := strings.TrimSpace(r.PostForm.Get("name"))
		description := strings.TrimSpace(r.PostForm.Get("description"))
		category := strings.TrimSpace(r.PostForm.Get("category"))
		res := v.entities.Update(ctx, id, models.EntityUpdate{
			Name:        &name,
			Description: &description,
			Category:    &category,
			ImageURLs:   splitLines(r.PostForm.Get("image_urls")),
		})
		if p.check(res.Success, res.Error) {
			p.Flash = "Saved " + res.Data.Name
		}

	case "delete":
		id, err := strconv.Atoi(r.PostForm.Get("id"))
		if err != nil {
			p.check(false, "Invalid entity id")
			return
		}
		if res := v.entities.Delete(ctx, id); p.check(res.Success, res.Error) {
			p.Flash = "Entity deleted"
		}

	default:
		p.check(false, "Unknown action")
	}
}

func splitLines(s string) []string {
	out := []string{}
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// =============================================================================
// COMPARE
// =============================================================================

type compareData struct {
	Mode string
	Pair *models.NextComparison
	Last *models.Comparison
}

func (v *Views) compare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := v.newPage(r)
	data := compareData{Mode: r.URL.Query().Get("mode")}

	if r.Method == http.MethodPost {
		e1, err1 := strconv.Atoi(r.FormValue("entity1_id"))
		e2, err2 := strconv.Atoi(r.FormValue("entity2_id"))
		winner, err3 := strconv.Atoi(r.FormValue("winner_id"))
		if err1 != nil || err2 != nil || err3 != nil {
			p.check(false, "Invalid comparison submission")
		} else {
			res := v.comparisons.SubmitComparison(ctx, e1, e2, winner)
			data.Last = res.Data
			if p.check(res.Success, res.Error) {
				p.Flash = "Comparison recorded"
			}
		}
	}

	if data.Mode == "mab" {
		if !v.comparisons.HasMabSuggestion() || r.Method == http.MethodGet {
			res := v.comparisons.GetMabSuggestion(ctx)
			p.check(res.Success, res.Error)
		}
		data.Pair = v.comparisons.MabSuggestion()
	} else {
		if !v.comparisons.HasNext() || r.Method == http.MethodGet {
			res := v.comparisons.GetNextComparison(ctx)
			p.check(res.Success, res.Error)
		}
		data.Pair = v.comparisons.Next()
	}
	v.comparisons.SetCurrent(data.Pair)

	p.Data = data
	v.render(w, r, p)
}

// =============================================================================
// LEADERBOARD & ANALYTICS
// =============================================================================

type leaderboardData struct {
	Entities []models.Entity
}

func (v *Views) leaderboard(w http.ResponseWriter, r *http.Request) {
	p := v.newPage(r)
	res := v.comparisons.FetchRatings(r.Context())
	p.check(res.Success, res.Error)
	p.Data = leaderboardData{Entities: v.comparisons.Ratings()}
	v.render(w, r, p)
}

type analyticsData struct {
	Stats   store.Stats
	History []models.Comparison
	Names   map[int]string
}

func (v *Views) analytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := v.newPage(r)

	res := v.comparisons.FetchComparisons(ctx, client.ComparisonListParams{})
	p.check(res.Success, res.Error)
	ratings := v.comparisons.FetchRatings(ctx)
	p.check(ratings.Success, ratings.Error)

	names := make(map[int]string)
	for _, e := range v.comparisons.Ratings() {
		names[e.ID] = e.Name
	}
	p.Data = analyticsData{
		Stats:   v.comparisons.Stats(),
		History: v.comparisons.History(),
		Names:   names,
	}
	v.render(w, r, p)
}

// =============================================================================
// SIMULATIONS
// =============================================================================

type simulationsData struct {
	Scenarios    []simulation.Scenario
	DefaultCount int
	Result       *simulationResult
}

type simulationResult struct {
	Created  int
	Errors   []string
	Duration string
}

func (v *Views) simulations(w http.ResponseWriter, r *http.Request) {
	p := v.newPage(r)
	data := simulationsData{Scenarios: simulation.Scenarios(), DefaultCount: simulation.DefaultCount}

	if r.Method == http.MethodPost {
		v.runSimulation(r, p, &data)
	}

	p.Data = data
	v.render(w, r, p)
}

func (v *Views) runSimulation(r *http.Request, p *page, data *simulationsData) {
	scenario, ok := simulation.Lookup(r.FormValue("scenario"))
	if !ok {
		p.check(false, "Unknown scenario")
		return
	}
	count, err := strconv.Atoi(r.FormValue("count"))
	if err != nil || count < 1 {
		count = simulation.DefaultCount
	}
	count = min(count, maxSimulationCount)

	v.logger.Info("running simulation", "scenario", scenario.Key, "count", count)
	res := simulation.SimulateComparisons(r.Context(), v.entities, v.comparisons, scenario, count, simulation.Options{Pacing: v.pacing})

	data.Result = &simulationResult{
		Created:  res.Created,
		Errors:   res.Errors,
		Duration: res.Duration.Round(time.Millisecond).String(),
	}
	if len(res.Errors) == 0 {
		p.Flash = "Simulation complete"
	}
}

// =============================================================================
// AUTH
// =============================================================================

type authData struct {
	ExpiresAt *time.Time
}

func (v *Views) authPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := v.newPage(r)

	if r.Method == http.MethodPost {
		switch r.FormValue("action") {
		case "login":
			res := v.auth.Login(ctx, r.FormValue("username"), r.FormValue("password"))
			if p.check(res.Success, res.Error) {
				p.Flash = "Signed in"
			}
		case "logout":
			v.auth.Logout()
			p.Flash = "Signed out"
		default:
			p.check(false, "Unknown action")
		}
		// Refresh the header state after the action.
		fresh := v.newPage(r)
		p.Authenticated, p.User = fresh.Authenticated, fresh.User
	}

	var data authData
	if exp, ok := v.auth.ExpiresAt(); ok {
		data.ExpiresAt = &exp
	}
	p.Data = data
	v.render(w, r, p)
}
