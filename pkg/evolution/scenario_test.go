package evolution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/step2-technology/ga-llm-search/pkg/core"
	"github.com/step2-technology/ga-llm-search/pkg/genes/travel"
)

const fixedItinerary = `{
  "days": [
    {"date": "2026-09-01", "activities": [
      {"time": "09:00", "location": "Disneyland", "description": "Theme park", "estimated_cost": 800}
    ]},
    {"date": "2026-09-02", "activities": [
      {"time": "10:00", "location": "Shanghai Museum", "description": "Exhibits", "estimated_cost": 50}
    ]}
  ],
  "hotels": {"name": "Garden Inn", "address": "88 Nanjing Rd", "total_cost": 1500},
  "total_cost": 4000
}`

type fixedEvaluator struct{ score float64 }

func (e fixedEvaluator) Score(ctx context.Context, gene core.Gene) (float64, error) {
	return e.score, nil
}

// A constant gateway and a deterministic judge: every round scores
// identically, so the patience window closes right after the first
// improvement from the initial round.
func TestTravelRunStopsEarlyUnderConstantScores(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PopulationSize = 5
	cfg.MaxGenerations = 5
	cfg.MutationRate = 0.4
	cfg.EarlyStoppingRounds = 2
	cfg.UseLLMCrossover = true
	cfg.Concurrency = 4
	cfg.CheckpointPath = ""

	llm := func(ctx context.Context, prompt string) string { return fixedItinerary }

	eng, err := New(cfg, travel.Factory, "plan a trip", "", llm,
		WithEvaluator(fixedEvaluator{score: 8}),
		WithValidator(travel.BudgetValidator{}))
	require.NoError(t, err)

	result, err := eng.Evolve(context.Background())
	require.NoError(t, err)

	assert.Len(t, result.History, 2)
	assert.Equal(t, 8.0, result.BestScore)

	best := result.Best.(*travel.Gene)
	assert.Equal(t, 4000.0, best.TotalCost)
	for _, round := range result.History {
		require.Len(t, round, 5)
		for _, sg := range round {
			assert.Equal(t, 8.0, sg.Fitness)
		}
	}
}
