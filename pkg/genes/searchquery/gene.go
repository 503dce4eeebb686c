// Package searchquery implements a search-strategy gene: semantic dimensions
// with one keyword each, composed into a weighted web-search query whose
// result quality drives fitness.
package searchquery

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/step2-technology/ga-llm-search/pkg/core"
	"github.com/step2-technology/ga-llm-search/pkg/errors"
	"github.com/step2-technology/ga-llm-search/pkg/logging"
	"github.com/step2-technology/ga-llm-search/pkg/utils"
)

// maxQueryKeywords caps how many keywords compose one query string.
const maxQueryKeywords = 3

// Gene is one search strategy. Keywords holds the single chosen keyword per
// dimension; QueryString and Results are derived and refreshed after every
// structural change.
type Gene struct {
	core.GeneBase
	UserQuery   string            `json:"user_query"`
	Dimensions  []string          `json:"dimensions"`
	Keywords    map[string]string `json:"keywords"`
	QueryString string            `json:"query_string"`
	Results     []Result          `json:"results,omitempty"`

	llm      core.LLMCaller
	searcher Searcher
	rng      *rand.Rand
}

// Option configures a Gene at construction time.
type Option func(*Gene)

// WithRand fixes the random source used for keyword choice, query shuffling
// and crossover coin flips.
func WithRand(rng *rand.Rand) Option {
	return func(g *Gene) { g.rng = rng }
}

// New creates an empty search-strategy gene.
func New(llm core.LLMCaller, searcher Searcher, opts ...Option) *Gene {
	g := &Gene{
		GeneBase: core.NewGeneBase(),
		Keywords: make(map[string]string),
		llm:      llm,
		searcher: searcher,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewFactory binds a searcher into the engine's gene factory signature.
func NewFactory(searcher Searcher, opts ...Option) core.GeneFactory {
	return func(llm core.LLMCaller) core.Gene {
		return New(llm, searcher, opts...)
	}
}

type payload struct {
	UserQuery  string                     `json:"user_query"`
	Dimensions []string                   `json:"dimensions"`
	Keywords   map[string]json.RawMessage `json:"keywords"`
}

// ParseFromText fills the gene from an LLM response. Each dimension's
// keyword entry may be a candidate list (one is chosen at random) or a bare
// string. The derived query is built and searched immediately.
func (g *Gene) ParseFromText(ctx context.Context, text string) error {
	var data payload
	if err := utils.UnmarshalTolerant(text, &data); err != nil {
		return errors.Wrap(err, errors.Format, "search strategy response is not parseable JSON")
	}

	keywords := make(map[string]string, len(data.Dimensions))
	for _, dim := range data.Dimensions {
		raw, ok := data.Keywords[dim]
		if !ok {
			return errors.WithFields(
				errors.New(errors.Format, "dimension has no keyword entry"),
				errors.Fields{"dimension": dim})
		}

		var candidates []string
		if err := json.Unmarshal(raw, &candidates); err == nil && len(candidates) > 0 {
			keywords[dim] = candidates[g.rng.Intn(len(candidates))]
			continue
		}
		var single string
		if err := json.Unmarshal(raw, &single); err == nil {
			keywords[dim] = single
			continue
		}
		return errors.WithFields(
			errors.New(errors.Format, "invalid keyword format for dimension"),
			errors.Fields{"dimension": dim})
	}

	g.UserQuery = data.UserQuery
	g.Dimensions = data.Dimensions
	g.Keywords = keywords
	g.rebuild(ctx)
	return nil
}

// rebuild derives the weighted query string from the current keywords and
// refreshes the search results. A failed search leaves the gene with no
// results, which the scoring rubric maps to zero.
func (g *Gene) rebuild(ctx context.Context) {
	chosen := make([]string, 0, len(g.Keywords))
	for _, dim := range sortedKeys(g.Keywords) {
		chosen = append(chosen, g.Keywords[dim])
	}
	g.rng.Shuffle(len(chosen), func(i, j int) {
		chosen[i], chosen[j] = chosen[j], chosen[i]
	})
	if len(chosen) > maxQueryKeywords {
		chosen = chosen[:maxQueryKeywords]
	}
	g.QueryString = WeightedQuery(chosen)

	if g.searcher == nil {
		g.Results = nil
		return
	}
	results, err := g.searcher.Search(ctx, g.QueryString, 5)
	if err != nil {
		logging.GetLogger().Warn(ctx, "search failed for query %q: %v", g.QueryString, err)
		g.Results = nil
		return
	}
	g.Results = results
}

// WeightedQuery composes up to three keywords into a boost-weighted search
// expression: the first exact-quoted at 2.0, the second at 1.5, the third
// bare.
func WeightedQuery(keywords []string) string {
	parts := make([]string, 0, maxQueryKeywords)
	if len(keywords) >= 1 {
		parts = append(parts, fmt.Sprintf("%q^2.0", keywords[0]))
	}
	if len(keywords) >= 2 {
		parts = append(parts, fmt.Sprintf("%q^1.5", keywords[1]))
	}
	if len(keywords) >= 3 {
		parts = append(parts, keywords[2])
	}
	return strings.Join(parts, " ")
}

// ToText renders the strategy and its result summary for evaluation.
func (g *Gene) ToText() string {
	if len(g.Results) == 0 {
		return fmt.Sprintf(
			"## User Query:\n%s\n\n## Search Query:\n%s\n\n## Search Results: null\n",
			g.UserQuery, g.QueryString)
	}

	entries := make([]string, 0, len(g.Results))
	for _, res := range g.Results {
		entries = append(entries, fmt.Sprintf("Title: %q\nSnippet: %q", res.Title, res.Snippet))
	}
	return fmt.Sprintf(
		"## User Query:\n%s\n\n## Search Query:\n%s\n\n## Search Results:\n%s",
		g.UserQuery, g.QueryString, strings.Join(entries, "\n\n"))
}

// Crossover keeps the receiver's query and dimensions and picks each
// dimension's keyword from either parent by coin flip.
func (g *Gene) Crossover(other core.Gene) (core.Gene, error) {
	o, ok := other.(*Gene)
	if !ok {
		return nil, errors.WithFields(
			errors.New(errors.InvalidInput, "crossover requires a search strategy gene"),
			errors.Fields{"other_type": fmt.Sprintf("%T", other)})
	}

	child := &Gene{
		GeneBase:   g.Reborn(),
		UserQuery:  g.UserQuery,
		Dimensions: append([]string(nil), g.Dimensions...),
		Keywords:   make(map[string]string, len(g.Dimensions)),
		llm:        g.llm,
		searcher:   g.searcher,
		rng:        g.rng,
	}

	for _, dim := range g.Dimensions {
		mine, hasMine := g.Keywords[dim]
		theirs, hasTheirs := o.Keywords[dim]
		switch {
		case hasMine && hasTheirs:
			if g.rng.Intn(2) == 0 {
				child.Keywords[dim] = mine
			} else {
				child.Keywords[dim] = theirs
			}
		case hasMine:
			child.Keywords[dim] = mine
		case hasTheirs:
			child.Keywords[dim] = theirs
		}
	}

	child.rebuild(context.Background())
	return child, nil
}

// Mutate rewrites one randomly chosen dimension's keyword through the LLM
// and refreshes the search. A malformed LLM answer keeps the keyword.
func (g *Gene) Mutate(ctx context.Context) core.Gene {
	mutated := &Gene{
		GeneBase:   g.Reborn(),
		UserQuery:  g.UserQuery,
		Dimensions: append([]string(nil), g.Dimensions...),
		Keywords:   make(map[string]string, len(g.Keywords)),
		llm:        g.llm,
		searcher:   g.searcher,
		rng:        g.rng,
	}
	for dim, kw := range g.Keywords {
		mutated.Keywords[dim] = kw
	}
	if len(mutated.Dimensions) == 0 {
		return mutated
	}

	dim := mutated.Dimensions[g.rng.Intn(len(mutated.Dimensions))]
	current := mutated.Keywords[dim]

	prompt, err := Prompts.Render("mutate_keyword", map[string]string{
		"dimension":       dim,
		"current_keyword": current,
	})
	if err != nil {
		mutated.rebuild(ctx)
		return mutated
	}

	var reply struct {
		NewKeyword string `json:"new_keyword"`
	}
	if err := utils.UnmarshalTolerant(g.llm(ctx, prompt), &reply); err != nil || reply.NewKeyword == "" {
		logging.GetLogger().Debug(ctx, "keyword mutation discarded for %q: %v", dim, err)
	} else {
		mutated.Keywords[dim] = reply.NewKeyword
	}

	mutated.rebuild(ctx)
	return mutated
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
