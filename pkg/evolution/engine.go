// Package evolution implements the hybrid GA-LLM engine: population
// lifecycle, concurrent fitness evaluation, selection, LLM-assisted
// crossover and mutation, early stopping, and checkpoint/resume.
package evolution

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/step2-technology/ga-llm-search/pkg/constraints"
	"github.com/step2-technology/ga-llm-search/pkg/core"
	"github.com/step2-technology/ga-llm-search/pkg/errors"
	"github.com/step2-technology/ga-llm-search/pkg/evaluation"
	"github.com/step2-technology/ga-llm-search/pkg/logging"
)

// rejectionBudgetFactor bounds how many constraint-invalid children a single
// reproduction phase may discard (factor * population size) before the
// generation is accepted short.
const rejectionBudgetFactor = 25

// Engine drives the generational loop. One coordinating goroutine runs the
// loop sequentially; population construction and fitness evaluation fan out
// through a bounded worker pool and fully drain before the loop proceeds.
type Engine struct {
	config     *Config
	factory    core.GeneFactory
	taskPrompt string
	llm        core.LLMCaller

	evaluator    evaluation.Evaluator
	validator    constraints.Validator
	checkpointer *Checkpointer
	rng          *rand.Rand
}

// Option configures an Engine beyond its required collaborators.
type Option func(*Engine)

// WithEvaluator overrides the default LLM-bracket-number evaluator.
func WithEvaluator(e evaluation.Evaluator) Option {
	return func(eng *Engine) { eng.evaluator = e }
}

// WithValidator overrides the default always-valid constraint filter.
func WithValidator(v constraints.Validator) Option {
	return func(eng *Engine) { eng.validator = v }
}

// WithRand injects the random source. Tournament sampling and structural
// crossover are deterministic given a fixed source.
func WithRand(rng *rand.Rand) Option {
	return func(eng *Engine) { eng.rng = rng }
}

// WithCheckpointer overrides the checkpointer derived from the config path.
func WithCheckpointer(c *Checkpointer) Option {
	return func(eng *Engine) { eng.checkpointer = c }
}

// New creates an engine. The eval prompt template is handed to the default
// evaluator; inject a custom one with WithEvaluator. An invalid config is
// the only fatal setup error.
func New(config *Config, factory core.GeneFactory, taskPrompt, evalPrompt string, llm core.LLMCaller, opts ...Option) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		config:     config,
		factory:    factory,
		taskPrompt: taskPrompt,
		llm:        llm,
		validator:  constraints.AlwaysValid{},
	}
	if config.CheckpointPath != "" {
		e.checkpointer = NewCheckpointer(config.CheckpointPath)
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.evaluator == nil {
		e.evaluator = evaluation.NewLLMEvaluator(evalPrompt, llm)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return e, nil
}

// Result is the outcome of a run: the best gene ever observed, its score,
// and the scored population of every recorded generation.
type Result struct {
	Best      core.Gene
	BestScore float64
	History   [][]core.ScoredGene
}

// Evolve runs the generational loop until max generations or early stopping.
func (e *Engine) Evolve(ctx context.Context) (*Result, error) {
	logger := logging.GetLogger()

	state, err := e.initialState(ctx)
	if err != nil {
		return nil, err
	}
	if len(state.Population) == 0 {
		return nil, errors.New(errors.PopulationShortfall, "no individuals survived initialization")
	}

	noImprovement := 0

	for generation := state.Generation; generation < e.config.MaxGenerations; generation++ {
		genCtx := logging.WithGeneration(ctx, generation)
		logger.Info(genCtx, "starting generation %d of %d (population %d)",
			generation+1, e.config.MaxGenerations, len(state.Population))

		scored := e.evaluateAll(genCtx, state.Population)
		core.SortScored(scored)
		if len(scored) == 0 {
			return nil, errors.New(errors.PopulationShortfall, "evaluation round produced no results")
		}

		top := scored[0]
		logger.Info(genCtx, "generation %d best score: %.2f", generation+1, top.Fitness)

		if top.Fitness > state.BestScore {
			state.Best = top.Gene
			state.BestScore = top.Fitness
			noImprovement = 0
			logger.Info(genCtx, "best-so-far updated: %.2f", state.BestScore)
		} else {
			noImprovement++
			logger.Info(genCtx, "no improvement: %d/%d rounds",
				noImprovement, e.config.EarlyStoppingRounds)
			if noImprovement >= e.config.EarlyStoppingRounds {
				logger.Warn(genCtx, "early stopping triggered, ending run")
				break
			}
		}

		state.Population = e.reproduce(genCtx, scored)
		state.History = append(state.History, scored)
		state.Generation = generation + 1

		e.persist(genCtx, state)
	}

	logger.Info(ctx, "evolution complete, best score: %.2f", state.BestScore)

	return &Result{
		Best:      state.Best,
		BestScore: state.BestScore,
		History:   state.History,
	}, nil
}

// initialState either resumes from a checkpoint or synthesizes a fresh
// population through the LLM.
func (e *Engine) initialState(ctx context.Context) (*RunState, error) {
	logger := logging.GetLogger()

	if e.config.Resume && e.checkpointer != nil && e.checkpointer.Exists() {
		state, err := e.checkpointer.Load(e.factory, e.llm)
		if err == nil {
			logger.Info(ctx, "resumed from checkpoint at generation %d", state.Generation)
			return state, nil
		}
		// A broken checkpoint degrades to a fresh start rather than
		// killing the run.
		logger.Warn(ctx, "failed to resume from checkpoint, starting fresh: %v", err)
	}

	return &RunState{
		Generation: 0,
		Population: e.initializePopulation(ctx),
		BestScore:  math.Inf(-1),
	}, nil
}

// initializePopulation fills population slots concurrently. A slot whose
// LLM response cannot be parsed is dropped, not retried; the population may
// come out smaller than configured.
func (e *Engine) initializePopulation(ctx context.Context) []core.Gene {
	logger := logging.GetLogger()
	logger.Info(ctx, "initializing population, target size %d", e.config.PopulationSize)

	prompt := e.taskPrompt + "\n\nReturn ONLY raw JSON. No markdown, no explanation."

	var mu sync.Mutex
	population := make([]core.Gene, 0, e.config.PopulationSize)

	p := pool.New().WithMaxGoroutines(e.config.Concurrency)
	for i := 0; i < e.config.PopulationSize; i++ {
		slot := i + 1
		p.Go(func() {
			response := e.llm(ctx, prompt)
			gene := e.factory(e.llm)
			if err := gene.ParseFromText(ctx, response); err != nil {
				logger.Warn(ctx, "individual #%d failed to initialize: %v", slot, err)
				return
			}

			mu.Lock()
			population = append(population, gene)
			mu.Unlock()
		})
	}
	p.Wait()

	if len(population) < e.config.PopulationSize {
		logger.Warn(ctx, "population shortfall: %d of %d slots filled",
			len(population), e.config.PopulationSize)
	}
	return population
}

// evaluateAll computes every individual's fitness concurrently. A failed
// evaluation degrades to 0.0 for that individual; results arrive in
// completion order and are sorted by the caller.
func (e *Engine) evaluateAll(ctx context.Context, population []core.Gene) []core.ScoredGene {
	logger := logging.GetLogger()

	var mu sync.Mutex
	scored := make([]core.ScoredGene, 0, len(population))

	p := pool.New().WithMaxGoroutines(e.config.Concurrency)
	for _, gene := range population {
		gene := gene
		p.Go(func() {
			score, err := e.evaluator.Score(ctx, gene)
			if err != nil {
				logger.Warn(ctx, "evaluation failed, scoring 0.0: %v", err)
				score = 0.0
			}
			gene.SetScore(score)

			mu.Lock()
			scored = append(scored, core.ScoredGene{Gene: gene, Fitness: score})
			mu.Unlock()
		})
	}
	p.Wait()

	return scored
}

// reproduce builds the next generation: elites verbatim, then tournament
// parents recombined and probabilistically mutated until the population is
// full. Constraint-invalid children are dropped and resampled; after the
// rejection budget runs out the generation is accepted short.
func (e *Engine) reproduce(ctx context.Context, scored []core.ScoredGene) []core.Gene {
	logger := logging.GetLogger()

	eliteCount := int(math.Floor(float64(len(scored)) * e.config.EliteRatio))
	if eliteCount < 1 {
		eliteCount = 1
	}
	if eliteCount > len(scored) {
		eliteCount = len(scored)
	}

	next := make([]core.Gene, 0, e.config.PopulationSize)
	for _, sg := range scored[:eliteCount] {
		next = append(next, sg.Gene)
	}

	rejectionBudget := rejectionBudgetFactor * e.config.PopulationSize
	for len(next) < e.config.PopulationSize {
		p1 := e.selectParent(scored)
		p2 := e.selectParent(scored)

		child, err := e.makeChild(ctx, p1, p2)
		if err != nil {
			logger.Warn(ctx, "crossover failed, skipping child: %v", err)
			rejectionBudget--
			if rejectionBudget <= 0 {
				break
			}
			continue
		}

		if e.rng.Float64() < e.config.MutationRate {
			child = child.Mutate(ctx)
		}

		if !e.validator.IsValid(child) {
			rejectionBudget--
			if rejectionBudget <= 0 {
				logger.Warn(ctx, "rejection budget exhausted, accepting generation at size %d", len(next))
				break
			}
			continue
		}

		next = append(next, child)
	}

	return next
}

// makeChild produces one offspring, via LLM fusion when configured (falling
// back to the structural child on any failure) or plain structural
// crossover otherwise.
func (e *Engine) makeChild(ctx context.Context, p1, p2 core.Gene) (core.Gene, error) {
	structural, err := p1.Crossover(p2)
	if err != nil {
		return nil, err
	}
	if !e.config.UseLLMCrossover {
		return structural, nil
	}

	prompt := "Synthesize the best from the two candidates below.\n\n" +
		"Candidate A:\n" + p1.ToText() + "\n\n" +
		"Candidate B:\n" + p2.ToText() + "\n\n" +
		e.taskPrompt + "\n\n" +
		"Output ONLY the improved JSON.\nNo markdown, no explanation.\n"

	improved := e.llm(ctx, prompt)
	child := e.factory(e.llm)
	if parseErr := child.ParseFromText(ctx, improved); parseErr != nil {
		logging.GetLogger().Warn(ctx, "LLM crossover failed, using structural child: %v", parseErr)
		return structural, nil
	}
	return child, nil
}

// selectParent runs one k-way tournament: sample k distinct individuals
// uniformly without replacement, keep the fittest. Ties resolve to the
// first individual encountered in sampled order.
func (e *Engine) selectParent(scored []core.ScoredGene) core.Gene {
	k := e.config.TournamentSize
	if k > len(scored) {
		k = len(scored)
	}
	return pickTournament(scored, sampleDistinct(e.rng, len(scored), k))
}

// pickTournament resolves a tournament over the given sampled indices.
func pickTournament(scored []core.ScoredGene, idxs []int) core.Gene {
	best := scored[idxs[0]]
	for _, idx := range idxs[1:] {
		if scored[idx].Fitness > best.Fitness {
			best = scored[idx]
		}
	}
	return best.Gene
}

// sampleDistinct draws k distinct indices from [0,n) via a partial
// Fisher-Yates shuffle, deterministic given the random source.
func sampleDistinct(rng *rand.Rand, n, k int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.Intn(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}

// persist overwrites the checkpoint with the full run state. A write
// failure is logged and swallowed; the run continues in memory.
func (e *Engine) persist(ctx context.Context, state *RunState) {
	if e.checkpointer == nil {
		return
	}
	if err := e.checkpointer.Save(state); err != nil {
		logging.GetLogger().Warn(ctx, "checkpoint save failed: %v", err)
		return
	}
	logging.GetLogger().Debug(ctx, "checkpoint saved at generation %d", state.Generation)
}
