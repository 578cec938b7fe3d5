// featuremap links natural-language feature requirements to the files,
// functions and line ranges that implement them.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"featuremap/internal/llm"
	"featuremap/internal/pipeline"
	"featuremap/internal/sandbox"
)

var version = "dev"

var (
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:     "featuremap",
	Short:   "Locate feature implementations in an untrusted source archive",
	Version: version,
	Long: `featuremap accepts a natural-language feature description and a
compressed source archive, and reports which files, functions and line
ranges implement each described feature, together with a suggested
execution plan.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func main() {
	// Optional .env for local runs; absence is not an error.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().Float64("min-score", 0.1, "minimum normalized localization score")
	rootCmd.PersistentFlags().Int("top-k", 3, "implementation locations kept per requirement")
	rootCmd.PersistentFlags().Int64("max-archive-bytes", sandbox.DefaultLimits.MaxArchiveBytes, "maximum compressed archive size")
	rootCmd.PersistentFlags().Int64("max-total-bytes", sandbox.DefaultLimits.MaxTotalBytes, "maximum total uncompressed size")
	rootCmd.PersistentFlags().Int64("max-file-bytes", sandbox.DefaultLimits.MaxFileBytes, "per-file uncompressed cap")
	rootCmd.PersistentFlags().Int("parallelism", 0, "extraction workers (0 = GOMAXPROCS)")
	rootCmd.PersistentFlags().String("gemini-api-key", "", "Gemini API key for LLM-backed plan and test generation")
	rootCmd.PersistentFlags().String("gemini-model", llm.DefaultModel, "Gemini model name")

	viper.SetEnvPrefix("FEATUREMAP")
	viper.AutomaticEnv()
	_ = viper.BindPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(analyzeCmd, serveCmd)
}

func engineConfig() pipeline.Config {
	return pipeline.Config{
		Limits: sandbox.Limits{
			MaxArchiveBytes: viper.GetInt64("max-archive-bytes"),
			MaxTotalBytes:   viper.GetInt64("max-total-bytes"),
			MaxFileBytes:    viper.GetInt64("max-file-bytes"),
		},
		MinScore:    viper.GetFloat64("min-score"),
		TopK:        viper.GetInt("top-k"),
		Parallelism: viper.GetInt("parallelism"),
	}
}

// newEngine wires the Gemini collaborators when a key is configured;
// otherwise the pipeline falls back to its offline heuristics.
func newEngine(ctx context.Context) *pipeline.Engine {
	var opts []pipeline.Option
	if key := viper.GetString("gemini-api-key"); key != "" {
		gemini, err := llm.NewGemini(ctx, key, viper.GetString("gemini-model"))
		if err != nil {
			logger.Warn("gemini client unavailable, using heuristic collaborators", zap.Error(err))
		} else {
			opts = append(opts, pipeline.WithSummarizer(gemini), pipeline.WithTestGenerator(gemini))
		}
	}
	return pipeline.New(engineConfig(), logger, opts...)
}
