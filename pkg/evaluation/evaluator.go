// Package evaluation turns genes into scalar fitness values via an LLM
// judgment prompt. Evaluation is tolerant by construction: malformed model
// output degrades to a zero score, never an aborted round.
package evaluation

import (
	"context"
	"strconv"
	"strings"

	"github.com/step2-technology/ga-llm-search/pkg/archive"
	"github.com/step2-technology/ga-llm-search/pkg/core"
	"github.com/step2-technology/ga-llm-search/pkg/logging"
	"github.com/step2-technology/ga-llm-search/pkg/prompts"
	"github.com/step2-technology/ga-llm-search/pkg/utils"
)

// Evaluator computes a fitness score for a gene. Implementations shipped
// here never return an error; the engine still degrades any error from a
// custom evaluator to a zero score.
type Evaluator interface {
	Score(ctx context.Context, gene core.Gene) (float64, error)
}

// LLMEvaluator scores a gene by rendering it into a judgment prompt and
// parsing the model's reply. Two reply shapes are accepted: a bare number
// optionally wrapped in brackets ("[8]"), or a JSON mapping carrying a
// final_score field, in which case the whole mapping is attached to the
// gene's metadata under "score_details".
type LLMEvaluator struct {
	template string
	llm      core.LLMCaller

	clamp    bool
	lo, hi   float64
}

// LLMEvaluatorOption configures an LLMEvaluator.
type LLMEvaluatorOption func(*LLMEvaluator)

// WithBounds selects the strict-bounds profile: scores are clamped into
// [lo, hi]. Without it the evaluator passes scores through untouched.
func WithBounds(lo, hi float64) LLMEvaluatorOption {
	return func(e *LLMEvaluator) {
		e.clamp = true
		e.lo = lo
		e.hi = hi
	}
}

// NewLLMEvaluator creates an evaluator over the given judgment prompt
// template. The template's {{solution_text}} placeholder receives the gene's
// rendered text.
func NewLLMEvaluator(template string, llm core.LLMCaller, opts ...LLMEvaluatorOption) *LLMEvaluator {
	e := &LLMEvaluator{template: template, llm: llm}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Score implements Evaluator. Any parse or LLM failure yields 0.0.
func (e *LLMEvaluator) Score(ctx context.Context, gene core.Gene) (float64, error) {
	prompt := prompts.Substitute(e.template, map[string]string{
		"solution_text": gene.ToText(),
	})

	response := e.llm(ctx, prompt)
	score, ok := e.parse(ctx, response, gene)
	if !ok {
		logging.GetLogger().Warn(ctx, "evaluation response not parseable, scoring 0.0: %q", truncate(response, 120))
		return 0.0, nil
	}

	if e.clamp {
		if score < e.lo {
			score = e.lo
		}
		if score > e.hi {
			score = e.hi
		}
	}
	return score, nil
}

func (e *LLMEvaluator) parse(ctx context.Context, response string, gene core.Gene) (float64, bool) {
	// Bare number, possibly wrapped in brackets: "[8]" -> 8.0.
	cleaned := strings.TrimSpace(response)
	cleaned = strings.ReplaceAll(cleaned, "[", "")
	cleaned = strings.ReplaceAll(cleaned, "]", "")
	if score, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64); err == nil {
		return score, true
	}

	// Structured shape: a mapping with a final_score field.
	details, err := utils.ParseJSONResponse(response)
	if err != nil {
		if raw, extractErr := utils.ExtractJSON(response); extractErr == nil {
			details, err = utils.ParseJSONResponse(raw)
		}
	}
	if err != nil {
		return 0, false
	}

	final, ok := details["final_score"]
	if !ok {
		return 0, false
	}

	score, ok := toFloat(final)
	if !ok {
		return 0, false
	}

	gene.Meta()["score_details"] = details
	return score, true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ArchivingEvaluator wraps an inner evaluator and stores the renders of
// genes scoring at or above a threshold into an explicitly passed archive.
type ArchivingEvaluator struct {
	inner     Evaluator
	store     archive.Archive
	threshold float64
	source    string
}

// NewArchivingEvaluator decorates inner. Entries carry the given source
// label so multi-domain archives stay attributable.
func NewArchivingEvaluator(inner Evaluator, store archive.Archive, threshold float64, source string) *ArchivingEvaluator {
	return &ArchivingEvaluator{
		inner:     inner,
		store:     store,
		threshold: threshold,
		source:    source,
	}
}

// Score implements Evaluator. Archive failures are logged, never propagated.
func (a *ArchivingEvaluator) Score(ctx context.Context, gene core.Gene) (float64, error) {
	score, err := a.inner.Score(ctx, gene)
	if err != nil {
		return score, err
	}

	if score >= a.threshold {
		entry := archive.Entry{
			Source:  a.source,
			Content: gene.ToText(),
			Score:   score,
		}
		if addErr := a.store.Add(ctx, entry); addErr != nil {
			logging.GetLogger().Warn(ctx, "failed to archive candidate: %v", addErr)
		}
	}

	return score, nil
}
