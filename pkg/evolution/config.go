package evolution

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/step2-technology/ga-llm-search/pkg/errors"
)

// Config fixes the parameters of one evolution run. It is immutable for the
// duration of the run.
type Config struct {
	// PopulationSize is the target number of individuals per generation.
	// Initialization and reproduction may come up short; the engine
	// tolerates smaller populations.
	PopulationSize int `yaml:"population_size" validate:"required,min=1"`

	// EliteRatio is the fraction of each generation carried over verbatim.
	// The elite count is always at least one.
	EliteRatio float64 `yaml:"elite_ratio" validate:"gte=0,lte=1"`

	// MutationRate is the independent probability that a child is replaced
	// by its mutated copy.
	MutationRate float64 `yaml:"mutation_rate" validate:"gte=0,lte=1"`

	// MaxGenerations bounds the run; early stopping may end it sooner.
	MaxGenerations int `yaml:"max_generations" validate:"required,min=1"`

	// Temperature is the LLM sampling temperature used by gateways built
	// from this config.
	Temperature float64 `yaml:"llm_temperature" validate:"gte=0,lte=2"`

	// UseLLMCrossover selects LLM-guided fusion crossover with structural
	// fallback; false means plain structural crossover.
	UseLLMCrossover bool `yaml:"use_llm_for_crossover"`

	// EarlyStoppingRounds is the number of consecutive non-improving
	// generations tolerated before the run stops.
	EarlyStoppingRounds int `yaml:"early_stopping_rounds" validate:"min=1"`

	// TournamentSize is k for k-way tournament parent selection.
	TournamentSize int `yaml:"tournament_size" validate:"min=2"`

	// Concurrency caps the worker pool used for population initialization
	// and fitness evaluation.
	Concurrency int `yaml:"concurrency" validate:"min=1"`

	// CheckpointPath is where run state is persisted after each
	// generation. Empty disables checkpointing.
	CheckpointPath string `yaml:"checkpoint_path"`

	// Resume loads prior run state from CheckpointPath when present.
	Resume bool `yaml:"resume"`
}

// DefaultConfig mirrors the framework's historical defaults.
func DefaultConfig() *Config {
	return &Config{
		PopulationSize:      30,
		EliteRatio:          0.2,
		MutationRate:        0.3,
		MaxGenerations:      20,
		Temperature:         0.7,
		UseLLMCrossover:     true,
		EarlyStoppingRounds: 5,
		TournamentSize:      3,
		Concurrency:         8,
		CheckpointPath:      "evolution_checkpoint.json",
	}
}

// LoadConfig reads a YAML config file over the defaults and validates the
// result. Configuration errors are the one class that aborts a run.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to read config file"),
			errors.Fields{"path": path})
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to parse config file"),
			errors.Fields{"path": path})
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the config against its declared constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, errors.ValidationFailed, "invalid evolution config")
	}
	return nil
}
