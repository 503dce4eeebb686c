package searchquery

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/step2-technology/ga-llm-search/pkg/core"
	"github.com/step2-technology/ga-llm-search/pkg/errors"
)

const sampleStrategy = `{
  "user_query": "future of trade tariffs",
  "dimensions": ["Policy", "Economics"],
  "keywords": {
    "Policy": ["tariff reform", "trade policy"],
    "Economics": "export volumes"
  }
}`

func stubSearcher(results []Result, err error) Searcher {
	return SearcherFunc(func(ctx context.Context, query string, maxResults int) ([]Result, error) {
		return results, err
	})
}

func noLLM(t *testing.T) core.LLMCaller {
	return func(ctx context.Context, prompt string) string {
		t.Fatal("LLM must not be called")
		return ""
	}
}

func TestParseFromText(t *testing.T) {
	hits := []Result{{Title: "Tariffs 2026", Snippet: "Overview of tariff policy", Link: "https://example.com/t"}}
	g := New(noLLM(t), stubSearcher(hits, nil), WithRand(rand.New(rand.NewSource(1))))

	require.NoError(t, g.ParseFromText(context.Background(), sampleStrategy))

	assert.Equal(t, "future of trade tariffs", g.UserQuery)
	assert.Equal(t, []string{"Policy", "Economics"}, g.Dimensions)
	assert.Contains(t, []string{"tariff reform", "trade policy"}, g.Keywords["Policy"])
	assert.Equal(t, "export volumes", g.Keywords["Economics"])
	assert.NotEmpty(t, g.QueryString)
	assert.Equal(t, hits, g.Results)
}

func TestParseFromTextMissingDimensionEntry(t *testing.T) {
	g := New(noLLM(t), stubSearcher(nil, nil))
	err := g.ParseFromText(context.Background(), `{
	  "user_query": "q",
	  "dimensions": ["Policy"],
	  "keywords": {}
	}`)
	require.Error(t, err)

	var appErr *errors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.Format, appErr.Code())
}

func TestParseFromTextInvalidKeywordShape(t *testing.T) {
	g := New(noLLM(t), stubSearcher(nil, nil))
	err := g.ParseFromText(context.Background(), `{
	  "user_query": "q",
	  "dimensions": ["Policy"],
	  "keywords": {"Policy": 42}
	}`)
	require.Error(t, err)
}

func TestParseFromTextRejectsGarbage(t *testing.T) {
	g := New(noLLM(t), stubSearcher(nil, nil))
	require.Error(t, g.ParseFromText(context.Background(), "no json here"))
}

func TestWeightedQuery(t *testing.T) {
	assert.Equal(t, "", WeightedQuery(nil))
	assert.Equal(t, `"a"^2.0`, WeightedQuery([]string{"a"}))
	assert.Equal(t, `"a"^2.0 "b"^1.5`, WeightedQuery([]string{"a", "b"}))
	assert.Equal(t, `"a"^2.0 "b"^1.5 c`, WeightedQuery([]string{"a", "b", "c"}))
}

func TestToText(t *testing.T) {
	hits := []Result{
		{Title: "First", Snippet: "one", Link: "https://a"},
		{Title: "Second", Snippet: "two", Link: "https://b"},
	}
	g := New(noLLM(t), stubSearcher(hits, nil), WithRand(rand.New(rand.NewSource(2))))
	require.NoError(t, g.ParseFromText(context.Background(), sampleStrategy))

	text := g.ToText()
	assert.Contains(t, text, "## User Query:\nfuture of trade tariffs")
	assert.Contains(t, text, "## Search Query:")
	assert.Contains(t, text, `Title: "First"`)
	assert.Contains(t, text, `Snippet: "two"`)
}

func TestToTextWithoutResults(t *testing.T) {
	g := New(noLLM(t), stubSearcher(nil, fmt.Errorf("backend down")), WithRand(rand.New(rand.NewSource(2))))
	require.NoError(t, g.ParseFromText(context.Background(), sampleStrategy))

	assert.Empty(t, g.Results)
	assert.Contains(t, g.ToText(), "## Search Results: null")
}

func TestCrossoverMixesKeywordsPerDimension(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	searcher := stubSearcher([]Result{{Title: "hit"}}, nil)

	p1 := New(noLLM(t), searcher, WithRand(rng))
	require.NoError(t, p1.ParseFromText(context.Background(), sampleStrategy))
	p2 := New(noLLM(t), searcher, WithRand(rng))
	require.NoError(t, p2.ParseFromText(context.Background(), sampleStrategy))
	p2.Keywords["Policy"] = "customs enforcement"
	p2.Keywords["Economics"] = "supply chains"

	child, err := p1.Crossover(p2)
	require.NoError(t, err)
	c := child.(*Gene)

	assert.Equal(t, p1.UserQuery, c.UserQuery)
	assert.Equal(t, p1.Dimensions, c.Dimensions)
	for _, dim := range c.Dimensions {
		assert.Contains(t, []string{p1.Keywords[dim], p2.Keywords[dim]}, c.Keywords[dim])
	}
	assert.NotEmpty(t, c.QueryString)
	assert.NotEqual(t, p1.ID, c.ID)
}

func TestCrossoverFillsMissingDimensionFromEitherParent(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	searcher := stubSearcher(nil, nil)

	p1 := New(noLLM(t), searcher, WithRand(rng))
	p1.UserQuery = "q"
	p1.Dimensions = []string{"A", "B"}
	p1.Keywords = map[string]string{"A": "alpha"}

	p2 := New(noLLM(t), searcher, WithRand(rng))
	p2.Keywords = map[string]string{"B": "beta"}

	child, err := p1.Crossover(p2)
	require.NoError(t, err)
	c := child.(*Gene)

	assert.Equal(t, "alpha", c.Keywords["A"])
	assert.Equal(t, "beta", c.Keywords["B"])
}

func TestCrossoverRejectsForeignGene(t *testing.T) {
	g := New(noLLM(t), stubSearcher(nil, nil))
	_, err := g.Crossover(nil)
	require.Error(t, err)
}

func TestMutateRewritesOneKeyword(t *testing.T) {
	var prompt string
	llm := func(ctx context.Context, p string) string {
		prompt = p
		return `{"new_keyword": "retaliatory tariffs"}`
	}

	g := New(llm, stubSearcher(nil, nil), WithRand(rand.New(rand.NewSource(8))))
	require.NoError(t, g.ParseFromText(context.Background(), sampleStrategy))
	before := make(map[string]string, len(g.Keywords))
	for dim, kw := range g.Keywords {
		before[dim] = kw
	}

	mutated := g.Mutate(context.Background()).(*Gene)

	assert.Contains(t, prompt, "Expert Information Retrieval Strategist")
	changed := 0
	for dim, kw := range mutated.Keywords {
		if kw != before[dim] {
			changed++
			assert.Equal(t, "retaliatory tariffs", kw)
		}
	}
	assert.Equal(t, 1, changed, "exactly one keyword rewritten")

	// Original untouched.
	assert.Equal(t, before, g.Keywords)
}

func TestMutateKeepsKeywordOnBadLLMOutput(t *testing.T) {
	llm := func(ctx context.Context, prompt string) string { return "nope" }

	g := New(llm, stubSearcher(nil, nil), WithRand(rand.New(rand.NewSource(8))))
	require.NoError(t, g.ParseFromText(context.Background(), sampleStrategy))

	mutated := g.Mutate(context.Background()).(*Gene)
	assert.Equal(t, g.Keywords, mutated.Keywords)
}

func TestMutateEmptyGene(t *testing.T) {
	g := New(noLLM(t), stubSearcher(nil, nil))
	mutated := g.Mutate(context.Background()).(*Gene)
	assert.Empty(t, mutated.Dimensions)
}

func TestGeneJSONRoundTrip(t *testing.T) {
	hits := []Result{{Title: "hit", Snippet: "s", Link: "l"}}
	g := New(noLLM(t), stubSearcher(hits, nil), WithRand(rand.New(rand.NewSource(1))))
	require.NoError(t, g.ParseFromText(context.Background(), sampleStrategy))
	g.SetScore(6)

	data, err := json.Marshal(g)
	require.NoError(t, err)

	restored := NewFactory(stubSearcher(hits, nil))(noLLM(t)).(*Gene)
	require.NoError(t, json.Unmarshal(data, restored))

	assert.Equal(t, g.ID, restored.ID)
	assert.Equal(t, g.Keywords, restored.Keywords)
	assert.Equal(t, g.QueryString, restored.QueryString)
	assert.Equal(t, g.Results, restored.Results)
	score, ok := restored.Score()
	require.True(t, ok)
	assert.Equal(t, 6.0, score)
}
