package travel

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/step2-technology/ga-llm-search/pkg/core"
	"github.com/step2-technology/ga-llm-search/pkg/errors"
)

const sampleItinerary = `{
  "days": [
    {
      "date": "2026-09-01",
      "activities": [
        {"time": "09:00", "location": "Disneyland", "description": "Theme park day", "estimated_cost": 800}
      ]
    },
    {
      "date": "2026-09-02",
      "activities": [
        {"time": "10:00", "location": "Shanghai Museum", "description": "Bronze and ceramics halls", "estimated_cost": 0}
      ]
    }
  ],
  "hotels": {"name": "Garden Inn", "address": "88 Nanjing Rd", "total_cost": 1200},
  "total_cost": 4200
}`

func deadLLM(t *testing.T) core.LLMCaller {
	return func(ctx context.Context, prompt string) string {
		t.Fatal("LLM must not be called")
		return ""
	}
}

func TestParseFromTextDirectJSON(t *testing.T) {
	g := New(deadLLM(t))
	require.NoError(t, g.ParseFromText(context.Background(), sampleItinerary))

	assert.Len(t, g.Days, 2)
	assert.Equal(t, "Disneyland", g.Days[0].Activities[0].Location)
	assert.Equal(t, "Garden Inn", g.Hotel.Name)
	assert.Equal(t, 4200.0, g.TotalCost)
}

func TestParseFromTextStripsMarkdownFence(t *testing.T) {
	g := New(deadLLM(t))
	fenced := "```json\n" + sampleItinerary + "\n```"
	require.NoError(t, g.ParseFromText(context.Background(), fenced))
	assert.Equal(t, 4200.0, g.TotalCost)
}

func TestParseFromTextSalvagesViaReformatPrompt(t *testing.T) {
	var prompt string
	llm := func(ctx context.Context, p string) string {
		prompt = p
		return sampleItinerary
	}

	g := New(llm)
	err := g.ParseFromText(context.Background(), "Day 1 we go to Disneyland, day 2 museums...")
	require.NoError(t, err)

	assert.Contains(t, prompt, "Day 1 we go to Disneyland")
	assert.Contains(t, prompt, "Convert the following travel plan")
	assert.Len(t, g.Days, 2)
}

func TestParseFromTextFailsAfterReformat(t *testing.T) {
	llm := func(ctx context.Context, prompt string) string { return "still not json" }

	g := New(llm)
	err := g.ParseFromText(context.Background(), "free-form text")
	require.Error(t, err)

	var appErr *errors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.Format, appErr.Code())
}

func TestToText(t *testing.T) {
	g := New(deadLLM(t))
	require.NoError(t, g.ParseFromText(context.Background(), sampleItinerary))

	text := g.ToText()
	assert.Contains(t, text, "Travel Itinerary")
	assert.Contains(t, text, "- Days: 2 day(s)")
	assert.Contains(t, text, "- Hotel: Garden Inn")
	assert.Contains(t, text, "- Total Cost: $4200.00")
	assert.Contains(t, text, "Shanghai Museum")

	empty := New(deadLLM(t))
	assert.Contains(t, empty.ToText(), "- Hotel: N/A")
}

func TestCrossover(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	p1 := New(deadLLM(t), WithRand(rng))
	require.NoError(t, p1.ParseFromText(context.Background(), sampleItinerary))
	p2 := New(deadLLM(t), WithRand(rng))
	require.NoError(t, p2.ParseFromText(context.Background(), sampleItinerary))
	p2.Days[0].Activities[0].Location = "Yu Garden"
	p2.Hotel.Name = "Bund View"
	p2.TotalCost = 3000

	child, err := p1.Crossover(p2)
	require.NoError(t, err)
	c := child.(*Gene)

	assert.Len(t, c.Days, 2)
	assert.Equal(t, 3600.0, c.TotalCost)
	assert.Contains(t, []string{"Garden Inn", "Bund View"}, c.Hotel.Name)
	assert.NotEqual(t, p1.ID, c.ID)

	// Parents are untouched.
	assert.Equal(t, "Disneyland", p1.Days[0].Activities[0].Location)
	assert.Equal(t, "Yu Garden", p2.Days[0].Activities[0].Location)
}

func TestCrossoverDeterministicForFixedSeed(t *testing.T) {
	build := func() (*Gene, *Gene) {
		rng := rand.New(rand.NewSource(7))
		p1 := New(deadLLM(t), WithRand(rng))
		require.NoError(t, p1.ParseFromText(context.Background(), sampleItinerary))
		p2 := New(deadLLM(t), WithRand(rng))
		require.NoError(t, p2.ParseFromText(context.Background(), sampleItinerary))
		p2.Days[1].Activities[0].Location = "Power Station of Art"
		p2.Hotel.Name = "Bund View"
		return p1, p2
	}

	p1, p2 := build()
	q1, q2 := build()

	first, err := p1.Crossover(p2)
	require.NoError(t, err)
	second, err := q1.Crossover(q2)
	require.NoError(t, err)

	f := first.(*Gene)
	s := second.(*Gene)
	assert.Equal(t, f.Days, s.Days)
	assert.Equal(t, f.Hotel, s.Hotel)
	assert.Equal(t, f.TotalCost, s.TotalCost)
}

func TestCrossoverRejectsForeignGene(t *testing.T) {
	g := New(deadLLM(t))
	_, err := g.Crossover(nil)
	require.Error(t, err)
}

func TestMutateRewritesOneDay(t *testing.T) {
	optimized := `{"date": "2026-09-01", "activities": [{"time": "08:30", "location": "Zhujiajiao", "description": "Water town morning", "estimated_cost": 150}]}`

	var prompt string
	llm := func(ctx context.Context, p string) string {
		prompt = p
		return optimized
	}

	g := New(llm, WithRand(rand.New(rand.NewSource(3))))
	require.NoError(t, g.ParseFromText(context.Background(), sampleItinerary))

	mutated := g.Mutate(context.Background()).(*Gene)

	assert.Contains(t, prompt, "Optimize the following itinerary")
	assert.InDelta(t, g.TotalCost, mutated.TotalCost, g.TotalCost*0.1+1e-9)

	rewritten := 0
	for _, day := range mutated.Days {
		for _, act := range day.Activities {
			if act.Location == "Zhujiajiao" {
				rewritten++
			}
		}
	}
	assert.Equal(t, 1, rewritten, "exactly one day rewritten")

	// Original untouched.
	assert.Equal(t, 4200.0, g.TotalCost)
	assert.Equal(t, "Disneyland", g.Days[0].Activities[0].Location)
}

func TestMutateKeepsDayOnBadLLMOutput(t *testing.T) {
	llm := func(ctx context.Context, prompt string) string { return "sorry, I can't" }

	g := New(llm, WithRand(rand.New(rand.NewSource(3))))
	require.NoError(t, g.ParseFromText(context.Background(), sampleItinerary))

	mutated := g.Mutate(context.Background()).(*Gene)
	assert.Equal(t, g.Days, mutated.Days)
}

func TestBudgetValidator(t *testing.T) {
	g := New(deadLLM(t))
	require.NoError(t, g.ParseFromText(context.Background(), sampleItinerary))

	assert.True(t, BudgetValidator{}.IsValid(g))

	g.TotalCost = 6000
	assert.False(t, BudgetValidator{}.IsValid(g))

	assert.True(t, BudgetValidator{Ceiling: 7000}.IsValid(g))
	assert.False(t, BudgetValidator{}.IsValid(nil))
}

func TestGeneJSONRoundTrip(t *testing.T) {
	g := New(deadLLM(t))
	require.NoError(t, g.ParseFromText(context.Background(), sampleItinerary))
	g.SetScore(7.5)

	data, err := json.Marshal(g)
	require.NoError(t, err)

	restored := New(deadLLM(t))
	require.NoError(t, json.Unmarshal(data, restored))

	assert.Equal(t, g.ID, restored.ID)
	assert.Equal(t, g.Days, restored.Days)
	assert.Equal(t, g.Hotel, restored.Hotel)
	score, ok := restored.Score()
	require.True(t, ok)
	assert.Equal(t, 7.5, score)
}

func TestPromptSetComplete(t *testing.T) {
	for _, name := range []string{"task", "evaluate", "parse_format", "mutate_day"} {
		tmpl, err := Prompts.Get(name)
		require.NoError(t, err)
		assert.False(t, strings.TrimSpace(tmpl) == "")
	}
}
