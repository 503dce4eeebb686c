package travel

import "github.com/step2-technology/ga-llm-search/pkg/core"

// DefaultBudgetCeiling leaves some slack over the task prompt's advertised
// budget so near-miss plans stay in the gene pool.
const DefaultBudgetCeiling = 5500

// BudgetValidator rejects itineraries whose total cost exceeds the ceiling.
// A zero Ceiling means DefaultBudgetCeiling.
type BudgetValidator struct {
	Ceiling float64
}

// IsValid implements constraints.Validator. Non-itinerary genes are rejected.
func (v BudgetValidator) IsValid(gene core.Gene) bool {
	g, ok := gene.(*Gene)
	if !ok {
		return false
	}
	ceiling := v.Ceiling
	if ceiling == 0 {
		ceiling = DefaultBudgetCeiling
	}
	return g.TotalCost <= ceiling
}
