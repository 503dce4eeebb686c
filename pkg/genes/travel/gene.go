// Package travel implements an itinerary gene: a structured multi-day travel
// plan evolved under a budget ceiling.
package travel

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/step2-technology/ga-llm-search/pkg/core"
	"github.com/step2-technology/ga-llm-search/pkg/errors"
	"github.com/step2-technology/ga-llm-search/pkg/logging"
	"github.com/step2-technology/ga-llm-search/pkg/utils"
)

// Activity is one scheduled item within a day.
type Activity struct {
	Time          string  `json:"time"`
	Location      string  `json:"location"`
	Description   string  `json:"description"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// Day is one dated block of activities.
type Day struct {
	Date       string     `json:"date"`
	Activities []Activity `json:"activities"`
}

// Hotel is the accommodation choice for the whole trip.
type Hotel struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	TotalCost float64 `json:"total_cost"`
}

// Gene is a complete itinerary. Exported fields are the checkpointed payload.
type Gene struct {
	core.GeneBase
	Days      []Day   `json:"days"`
	Hotel     Hotel   `json:"hotels"`
	TotalCost float64 `json:"total_cost"`

	llm core.LLMCaller
	rng *rand.Rand
}

// Option configures a Gene at construction time.
type Option func(*Gene)

// WithRand fixes the random source, making crossover and the structural part
// of mutation deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(g *Gene) { g.rng = rng }
}

// New creates an empty itinerary gene bound to the given LLM caller.
func New(llm core.LLMCaller, opts ...Option) *Gene {
	g := &Gene{
		GeneBase: core.NewGeneBase(),
		llm:      llm,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Factory adapts New to the engine's gene factory signature.
func Factory(llm core.LLMCaller) core.Gene { return New(llm) }

type payload struct {
	Days      []Day   `json:"days"`
	Hotel     Hotel   `json:"hotels"`
	TotalCost float64 `json:"total_cost"`
}

// ParseFromText fills the gene from an LLM response. Near-miss JSON is
// salvaged by extraction first, then by one reformat re-prompt through the
// LLM; only after both fail is the response rejected.
func (g *Gene) ParseFromText(ctx context.Context, text string) error {
	var data payload
	if err := utils.UnmarshalTolerant(text, &data); err != nil {
		prompt, renderErr := Prompts.Render("parse_format", map[string]string{"raw_input": text})
		if renderErr != nil {
			return renderErr
		}
		reformatted := g.llm(ctx, prompt)
		if err := utils.UnmarshalTolerant(reformatted, &data); err != nil {
			return errors.WithFields(
				errors.Wrap(err, errors.Format, "itinerary response is not parseable JSON"),
				errors.Fields{"response_length": len(text)})
		}
	}

	g.Days = data.Days
	g.Hotel = data.Hotel
	g.TotalCost = data.TotalCost
	return nil
}

// ToText renders the itinerary for evaluation prompts and display.
func (g *Gene) ToText() string {
	hotel := g.Hotel.Name
	if hotel == "" {
		hotel = "N/A"
	}
	schedule, err := json.MarshalIndent(g.Days, "", "  ")
	if err != nil {
		schedule = []byte("[]")
	}
	return fmt.Sprintf(
		"Travel Itinerary\n- Days: %d day(s)\n- Hotel: %s\n- Total Cost: $%.2f\nSchedule:\n%s",
		len(g.Days), hotel, g.TotalCost, schedule)
}

// Crossover recombines two itineraries: the child takes a prefix of the
// receiver's days and the remainder of the other parent's, one parent's
// hotel by coin flip, and the averaged total cost.
func (g *Gene) Crossover(other core.Gene) (core.Gene, error) {
	o, ok := other.(*Gene)
	if !ok {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "crossover requires a travel itinerary gene"),
			errors.Fields{"other_type": fmt.Sprintf("%T", other)})
	}

	child := &Gene{GeneBase: g.Reborn(), llm: g.llm, rng: g.rng}

	minDays := len(g.Days)
	if len(o.Days) < minDays {
		minDays = len(o.Days)
	}
	if minDays > 0 {
		split := g.rng.Intn(minDays) + 1
		child.Days = append(child.Days, cloneDays(g.Days[:split])...)
		if split < len(o.Days) {
			child.Days = append(child.Days, cloneDays(o.Days[split:])...)
		}
	} else if len(g.Days) > 0 {
		child.Days = cloneDays(g.Days)
	} else {
		child.Days = cloneDays(o.Days)
	}

	if g.rng.Intn(2) == 0 {
		child.Hotel = g.Hotel
	} else {
		child.Hotel = o.Hotel
	}
	child.TotalCost = (g.TotalCost + o.TotalCost) / 2
	return child, nil
}

// Mutate returns a copy with the total cost jittered by up to ten percent
// and one randomly chosen day rewritten by the LLM. A malformed LLM answer
// leaves that day unchanged.
func (g *Gene) Mutate(ctx context.Context) core.Gene {
	mutated := &Gene{
		GeneBase:  g.Reborn(),
		Days:      cloneDays(g.Days),
		Hotel:     g.Hotel,
		TotalCost: g.TotalCost * (0.9 + g.rng.Float64()*0.2),
		llm:       g.llm,
		rng:       g.rng,
	}
	if len(mutated.Days) == 0 {
		return mutated
	}

	idx := g.rng.Intn(len(mutated.Days))
	current, err := json.MarshalIndent(mutated.Days[idx], "", "  ")
	if err != nil {
		return mutated
	}

	prompt, err := Prompts.Render("mutate_day", map[string]string{
		"budget":      fmt.Sprintf("%.2f", mutated.TotalCost),
		"current_day": string(current),
	})
	if err != nil {
		return mutated
	}

	var optimized Day
	if err := utils.UnmarshalTolerant(g.llm(ctx, prompt), &optimized); err != nil {
		logging.GetLogger().Debug(ctx, "day mutation discarded, keeping original: %v", err)
		return mutated
	}
	mutated.Days[idx] = optimized
	return mutated
}

func cloneDays(days []Day) []Day {
	cloned := make([]Day, len(days))
	for i, day := range days {
		cloned[i] = Day{
			Date:       day.Date,
			Activities: append([]Activity(nil), day.Activities...),
		}
	}
	return cloned
}
