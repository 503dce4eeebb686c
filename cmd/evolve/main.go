// Command evolve runs the travel-itinerary optimization end to end: seed a
// population of itineraries through an LLM, evolve them under a budget
// constraint, and print the best plan found.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/step2-technology/ga-llm-search/pkg/archive"
	"github.com/step2-technology/ga-llm-search/pkg/core"
	"github.com/step2-technology/ga-llm-search/pkg/evaluation"
	"github.com/step2-technology/ga-llm-search/pkg/evolution"
	"github.com/step2-technology/ga-llm-search/pkg/genes/travel"
	"github.com/step2-technology/ga-llm-search/pkg/llms"
	"github.com/step2-technology/ga-llm-search/pkg/logging"
)

var (
	configPath  string
	apiKey      string
	baseURL     string
	model       string
	archivePath string
	logDir      string
	resume      bool
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "evolve",
	Short: "Evolve travel itineraries with a hybrid GA-LLM search",
	Long: `Runs the evolutionary loop against an OpenAI-compatible endpoint:
the LLM seeds a population of structured itineraries, an LLM judge scores
them, and tournament selection with LLM-guided crossover and mutation
improves them generation by generation. Progress is checkpointed so an
interrupted run can resume.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "YAML evolution config (defaults used when empty)")
	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "API key (falls back to OPENAI_API_KEY)")
	rootCmd.Flags().StringVar(&baseURL, "base-url", "", "chat-completions endpoint override")
	rootCmd.Flags().StringVar(&model, "model", "", "model name override")
	rootCmd.Flags().StringVar(&archivePath, "archive", "", "SQLite file collecting high-scoring plans")
	rootCmd.Flags().StringVar(&logDir, "log-dir", "", "directory for a timestamped run log")
	rootCmd.Flags().BoolVar(&resume, "resume", false, "resume from the checkpoint if present")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := setupLogging(); err != nil {
		return err
	}
	logger := logging.GetLogger()

	config, err := loadConfig()
	if err != nil {
		return err
	}
	if resume {
		config.Resume = true
	}

	llm := buildLLM(config)

	evaluator, cleanup, err := buildEvaluator(llm)
	if err != nil {
		return err
	}
	defer cleanup()

	engine, err := evolution.New(
		config,
		travel.Factory,
		travel.Prompts.MustGet("task"),
		travel.Prompts.MustGet("evaluate"),
		llm,
		evolution.WithEvaluator(evaluator),
		evolution.WithValidator(travel.BudgetValidator{}),
	)
	if err != nil {
		return err
	}

	result, err := engine.Evolve(ctx)
	if err != nil {
		return err
	}
	logger.Info(ctx, "run finished after %d recorded generation(s)", len(result.History))

	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Best Travel Plan Found (Score: %.2f/10):\n", result.BestScore)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println(result.Best.ToText())
	return nil
}

func setupLogging() error {
	severity := logging.INFO
	if verbose {
		severity = logging.DEBUG
	}

	outputs := []logging.Output{logging.NewConsoleOutput(true, logging.WithColor(true))}
	if logDir != "" {
		fileOut, err := logging.NewFileOutput(logDir, "evolve")
		if err != nil {
			return err
		}
		outputs = append(outputs, fileOut)
	}

	logging.SetLogger(logging.NewLogger(logging.Config{
		Severity: severity,
		Outputs:  outputs,
	}))
	return nil
}

func loadConfig() (*evolution.Config, error) {
	if configPath == "" {
		return evolution.DefaultConfig(), nil
	}
	return evolution.LoadConfig(configPath)
}

func buildLLM(config *evolution.Config) core.LLMCaller {
	key := apiKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}

	opts := []llms.GatewayOption{
		llms.WithAPIKey(key),
		llms.WithTemperature(config.Temperature),
	}
	if baseURL != "" {
		opts = append(opts, llms.WithBaseURL(baseURL))
	}
	if model != "" {
		opts = append(opts, llms.WithModel(model))
	}
	return llms.NewGateway(opts...).Caller()
}

// buildEvaluator returns the judge, optionally decorated to archive plans
// scoring 7 or above into SQLite.
func buildEvaluator(llm core.LLMCaller) (evaluation.Evaluator, func(), error) {
	judge := evaluation.NewLLMEvaluator(
		travel.Prompts.MustGet("evaluate"), llm,
		evaluation.WithBounds(0, 10),
	)
	if archivePath == "" {
		return judge, func() {}, nil
	}

	store, err := archive.NewSQLiteArchive(archivePath)
	if err != nil {
		return nil, nil, err
	}
	archiving := evaluation.NewArchivingEvaluator(judge, store, 7.0, "travel")
	return archiving, func() { store.Close() }, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
