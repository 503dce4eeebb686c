package core

import "sort"

// ScoredGene pairs a gene with the fitness assigned in one evaluation round.
type ScoredGene struct {
	Gene    Gene
	Fitness float64
}

// SortScored orders a round's results descending by fitness, in place. The
// sort is stable: ties keep their original (insertion) order, which is the
// only ordering contract the engine relies on.
func SortScored(scored []ScoredGene) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Fitness > scored[j].Fitness
	})
}

// Best returns the top entry of a sorted round. ok is false for an empty
// round.
func Best(scored []ScoredGene) (ScoredGene, bool) {
	if len(scored) == 0 {
		return ScoredGene{}, false
	}
	return scored[0], true
}
