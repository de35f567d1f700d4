package simulation

import (
	"math/rand/v2"
	"time"

	"github.com/raphaelgruber/compere-go/internal/models"
)

// timestampSpread is how far back generated comparisons are dated.
const timestampSpread = 30 * 24 * time.Hour

// GenerateRandomComparisons builds count comparisons between uniformly chosen,
// distinct entities with a coin-flip winner. Fewer than two distinct entity
// ids yield none.
// rng may be nil.
func GenerateRandomComparisons(entities []models.Entity, count int, rng *rand.Rand) []models.ComparisonInput {
	return generate(entities, count, rng, time.Now())
}

func generate(entities []models.Entity, count int, rng *rand.Rand, now time.Time) []models.ComparisonInput {
	if count <= 0 || !hasDistinctPair(entities) {
		return nil
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	out := make([]models.ComparisonInput, 0, count)
	for range count {
		e1 := entities[rng.IntN(len(entities))]
		e2 := entities[rng.IntN(len(entities))]
		for e2.ID == e1.ID {
			e2 = entities[rng.IntN(len(entities))]
		}

		winner := e2
		if rng.Float64() > 0.5 {
			winner = e1
		}

		out = append(out, models.ComparisonInput{
			Entity1ID:        e1.ID,
			Entity2ID:        e2.ID,
			SelectedEntityID: winner.ID,
			Timestamp:        now.Add(-time.Duration(rng.Int64N(int64(timestampSpread)))),
		})
	}
	return out
}

func hasDistinctPair(entities []models.Entity) bool {
	for _, e := range entities[min(1, len(entities)):] {
		if e.ID != entities[0].ID {
			return true
		}
	}
	return false
}
