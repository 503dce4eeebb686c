package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGene is a minimal Gene for population tests.
type stubGene struct {
	GeneBase
	Name string `json:"name"`
}

func (g *stubGene) ParseFromText(ctx context.Context, text string) error {
	g.Name = text
	return nil
}

func (g *stubGene) ToText() string { return g.Name }

func (g *stubGene) Crossover(other Gene) (Gene, error) {
	o, ok := other.(*stubGene)
	if !ok {
		return nil, fmt.Errorf("incompatible gene type %T", other)
	}
	return &stubGene{GeneBase: NewGeneBase(), Name: g.Name + "+" + o.Name}, nil
}

func (g *stubGene) Mutate(ctx context.Context) Gene {
	return &stubGene{GeneBase: NewGeneBase(), Name: g.Name + "'"}
}

func TestSortScoredIsStableDescending(t *testing.T) {
	a := &stubGene{GeneBase: NewGeneBase(), Name: "a"}
	b := &stubGene{GeneBase: NewGeneBase(), Name: "b"}
	c := &stubGene{GeneBase: NewGeneBase(), Name: "c"}
	d := &stubGene{GeneBase: NewGeneBase(), Name: "d"}

	scored := []ScoredGene{
		{Gene: a, Fitness: 4},
		{Gene: b, Fitness: 9},
		{Gene: c, Fitness: 4},
		{Gene: d, Fitness: 9},
	}
	SortScored(scored)

	// Descending, ties keep insertion order: b before d, a before c.
	require.Len(t, scored, 4)
	assert.Equal(t, "b", scored[0].Gene.ToText())
	assert.Equal(t, "d", scored[1].Gene.ToText())
	assert.Equal(t, "a", scored[2].Gene.ToText())
	assert.Equal(t, "c", scored[3].Gene.ToText())
}

func TestBest(t *testing.T) {
	_, ok := Best(nil)
	assert.False(t, ok)

	g := &stubGene{GeneBase: NewGeneBase(), Name: "top"}
	best, ok := Best([]ScoredGene{{Gene: g, Fitness: 7}})
	require.True(t, ok)
	assert.Equal(t, 7.0, best.Fitness)
}

func TestGeneBaseScoreLifecycle(t *testing.T) {
	g := &stubGene{GeneBase: NewGeneBase(), Name: "x"}

	_, ok := g.Score()
	assert.False(t, ok, "score must be absent until evaluated")

	g.SetScore(8.25)
	score, ok := g.Score()
	require.True(t, ok)
	assert.Equal(t, 8.25, score)

	g.Meta()["score_details"] = map[string]interface{}{"final_score": 8.25}
	assert.Contains(t, g.Meta(), "score_details")
}

func TestGeneBaseRebornResetsIdentity(t *testing.T) {
	g := NewGeneBase()
	g.SetScore(5)
	g.Metadata["k"] = "v"

	fresh := g.Reborn()
	assert.NotEqual(t, g.ID, fresh.ID)
	assert.Nil(t, fresh.Fitness)
	assert.Empty(t, fresh.Metadata)
}
