package evolution

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/step2-technology/ga-llm-search/pkg/core"
	"github.com/step2-technology/ga-llm-search/pkg/errors"
)

// checkpointVersion guards the on-disk schema. A checkpoint written by a
// different schema version is rejected rather than misread.
const checkpointVersion = 1

// RunState is the engine's complete resumable state after some number of
// completed generations.
type RunState struct {
	Generation int
	Population []core.Gene
	Best       core.Gene
	BestScore  float64
	History    [][]core.ScoredGene
}

type scoredSnapshot struct {
	Gene    json.RawMessage `json:"gene"`
	Fitness float64         `json:"fitness"`
}

type checkpointFile struct {
	Version    int               `json:"version"`
	SavedAt    time.Time         `json:"saved_at"`
	Generation int               `json:"generation"`
	Population []json.RawMessage `json:"population"`
	Best       json.RawMessage   `json:"best,omitempty"`
	BestScore  float64           `json:"best_score"`
	History    [][]scoredSnapshot `json:"history"`
}

// Checkpointer persists run state as a versioned JSON document, fully
// overwritten after every generation.
type Checkpointer struct {
	path string
}

// NewCheckpointer creates a checkpointer writing to path.
func NewCheckpointer(path string) *Checkpointer {
	return &Checkpointer{path: path}
}

// Exists reports whether a prior checkpoint is present.
func (c *Checkpointer) Exists() bool {
	_, err := os.Stat(c.path)
	return err == nil
}

// Save writes the whole run state atomically: marshal to a temp file in the
// same directory, then rename over the target.
func (c *Checkpointer) Save(state *RunState) error {
	file := checkpointFile{
		Version:    checkpointVersion,
		SavedAt:    time.Now(),
		Generation: state.Generation,
		BestScore:  state.BestScore,
	}

	for _, gene := range state.Population {
		raw, err := json.Marshal(gene)
		if err != nil {
			return errors.Wrap(err, errors.Persistence, "failed to marshal gene")
		}
		file.Population = append(file.Population, raw)
	}

	if state.Best != nil {
		raw, err := json.Marshal(state.Best)
		if err != nil {
			return errors.Wrap(err, errors.Persistence, "failed to marshal best gene")
		}
		file.Best = raw
	}

	for _, round := range state.History {
		snapshots := make([]scoredSnapshot, 0, len(round))
		for _, sg := range round {
			raw, err := json.Marshal(sg.Gene)
			if err != nil {
				return errors.Wrap(err, errors.Persistence, "failed to marshal history gene")
			}
			snapshots = append(snapshots, scoredSnapshot{Gene: raw, Fitness: sg.Fitness})
		}
		file.History = append(file.History, snapshots)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.Persistence, "failed to marshal checkpoint")
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".checkpoint-*")
	if err != nil {
		return errors.Wrap(err, errors.Persistence, "failed to create temp checkpoint")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, errors.Persistence, "failed to write checkpoint")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, errors.Persistence, "failed to close checkpoint")
	}

	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return errors.WithFields(
			errors.Wrap(err, errors.Persistence, "failed to replace checkpoint"),
			errors.Fields{"path": c.path})
	}
	return nil
}

// Load restores run state, rebuilding genes through the factory so they come
// back bound to the current LLM caller.
func (c *Checkpointer) Load(factory core.GeneFactory, llm core.LLMCaller) (*RunState, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.Persistence, "failed to read checkpoint"),
			errors.Fields{"path": c.path})
	}

	var file checkpointFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, errors.Persistence, "failed to parse checkpoint")
	}
	if file.Version != checkpointVersion {
		return nil, errors.WithFields(
			errors.New(errors.Persistence, "checkpoint schema version mismatch"),
			errors.Fields{"found": file.Version, "want": checkpointVersion})
	}

	state := &RunState{
		Generation: file.Generation,
		BestScore:  file.BestScore,
	}

	restore := func(raw json.RawMessage) (core.Gene, error) {
		gene := factory(llm)
		if err := json.Unmarshal(raw, gene); err != nil {
			return nil, errors.Wrap(err, errors.Persistence, "failed to restore gene")
		}
		return gene, nil
	}

	for _, raw := range file.Population {
		gene, err := restore(raw)
		if err != nil {
			return nil, err
		}
		state.Population = append(state.Population, gene)
	}

	if len(file.Best) > 0 {
		best, err := restore(file.Best)
		if err != nil {
			return nil, err
		}
		state.Best = best
	}

	for _, round := range file.History {
		restored := make([]core.ScoredGene, 0, len(round))
		for _, snap := range round {
			gene, err := restore(snap.Gene)
			if err != nil {
				return nil, err
			}
			restored = append(restored, core.ScoredGene{Gene: gene, Fitness: snap.Fitness})
		}
		state.History = append(state.History, restored)
	}

	return state, nil
}
