package constraints

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/step2-technology/ga-llm-search/pkg/core"
)

type markerGene struct {
	core.GeneBase
	Valid bool `json:"valid"`
}

func (g *markerGene) ParseFromText(ctx context.Context, text string) error { return nil }
func (g *markerGene) ToText() string                                       { return "marker" }
func (g *markerGene) Crossover(other core.Gene) (core.Gene, error)         { return g, nil }
func (g *markerGene) Mutate(ctx context.Context) core.Gene                 { return g }

func TestAlwaysValid(t *testing.T) {
	v := AlwaysValid{}
	assert.True(t, v.IsValid(&markerGene{}))
	assert.True(t, v.IsValid(nil))
}

func TestFuncAdapter(t *testing.T) {
	v := Func(func(g core.Gene) bool {
		return g.(*markerGene).Valid
	})
	assert.True(t, v.IsValid(&markerGene{Valid: true}))
	assert.False(t, v.IsValid(&markerGene{Valid: false}))
}
