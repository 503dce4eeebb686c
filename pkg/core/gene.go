package core

import (
	"context"

	"github.com/google/uuid"
)

// Gene is the unit of the search space. Concrete gene types plug into the
// evolution engine through these operations; the engine never inspects the
// payload behind them.
//
// Implementations must be JSON round-trippable (exported fields) so the
// engine can checkpoint and restore populations.
type Gene interface {
	// ParseFromText deserializes an LLM response into the gene's structured
	// fields. Implementations should tolerate near-miss JSON (markdown
	// fences, surrounding prose, minor drift) and attempt at least one
	// recovery strategy, such as a reformat re-prompt, before returning a
	// Format error.
	ParseFromText(ctx context.Context, text string) error

	// ToText renders the gene for display, evaluation and crossover input.
	// It must succeed for any internally consistent gene state.
	ToText() string

	// Crossover recombines the receiver with other into a new gene without
	// mutating either parent. Purely structural: no LLM call, deterministic
	// given a fixed random source.
	Crossover(other Gene) (Gene, error)

	// Mutate returns a modified copy, never touching the receiver. It may
	// consult the LLM; on any internal failure it returns an unmodified or
	// minimally changed copy instead of an error.
	Mutate(ctx context.Context) Gene

	// SetScore records the evaluator's fitness for this gene.
	SetScore(score float64)

	// Score reports the fitness and whether it has been assigned yet.
	Score() (float64, bool)

	// Meta exposes the open-ended metadata map for auxiliary evaluation
	// detail such as score breakdowns.
	Meta() map[string]interface{}
}

// GeneBase supplies identity, score and metadata handling for concrete gene
// types. Embed it and implement the remaining Gene operations.
type GeneBase struct {
	ID       string                 `json:"id"`
	Fitness  *float64               `json:"fitness,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewGeneBase creates a GeneBase with a fresh ID and empty metadata.
func NewGeneBase() GeneBase {
	return GeneBase{
		ID:       uuid.NewString(),
		Metadata: make(map[string]interface{}),
	}
}

// SetScore implements Gene.
func (b *GeneBase) SetScore(score float64) {
	b.Fitness = &score
}

// Score implements Gene. The score is absent until the evaluator assigns it.
func (b *GeneBase) Score() (float64, bool) {
	if b.Fitness == nil {
		return 0, false
	}
	return *b.Fitness, true
}

// Meta implements Gene.
func (b *GeneBase) Meta() map[string]interface{} {
	if b.Metadata == nil {
		b.Metadata = make(map[string]interface{})
	}
	return b.Metadata
}

// Reborn resets identity-carrying state for a gene derived from this one:
// fresh ID, no score, empty metadata.
func (b *GeneBase) Reborn() GeneBase {
	return NewGeneBase()
}

// GeneFactory constructs a fresh, unparsed gene bound to the given LLM
// caller. The engine uses it for population initialization, LLM-guided
// crossover offspring and checkpoint restoration.
type GeneFactory func(llm LLMCaller) Gene
