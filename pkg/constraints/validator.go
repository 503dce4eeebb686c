// Package constraints provides the hard-filter applied to offspring before
// they enter the next generation.
package constraints

import "github.com/step2-technology/ga-llm-search/pkg/core"

// Validator is a pure, synchronous predicate over a gene. The engine uses it
// only to reject generated offspring; it never mutates the gene.
type Validator interface {
	IsValid(gene core.Gene) bool
}

// AlwaysValid accepts everything. It is the engine's default when no
// domain-specific constraints are injected.
type AlwaysValid struct{}

func (AlwaysValid) IsValid(core.Gene) bool { return true }

// Func adapts a plain function to the Validator interface.
type Func func(core.Gene) bool

func (f Func) IsValid(gene core.Gene) bool { return f(gene) }
