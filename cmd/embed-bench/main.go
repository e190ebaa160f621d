package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/embedbench/embed-bench/internal/bench"
	"github.com/embedbench/embed-bench/internal/bus"
	"github.com/embedbench/embed-bench/internal/config"
	"github.com/embedbench/embed-bench/internal/dataset"
	"github.com/embedbench/embed-bench/internal/embed"
	"github.com/embedbench/embed-bench/internal/evaluation"
	"github.com/embedbench/embed-bench/internal/index"
	"github.com/embedbench/embed-bench/internal/pkg/logger"
	"github.com/embedbench/embed-bench/internal/qdrant"
	"github.com/embedbench/embed-bench/internal/retriever"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "embed-bench",
		Short: "Embed Bench - embedding strategy benchmark harness",
		Long: `Embed Bench indexes a document corpus under several embedding
strategies, retrieves against each one, and scores retrieval quality
with NDCG@k so strategies can be compared on equal footing.

Run 'embed-bench index' to build the per-strategy collections.
Run 'embed-bench eval' to score every strategy against the baseline.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("format", "text", "output format (text, json)")

	rootCmd.AddCommand(
		indexCmd(),
		evalCmd(),
		queryCmd(),
		collectionsCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and builds the shared dependencies.
func setup(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}

	return cfg, logger.New(level, cfg.Log.Format), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newQdrantClient(cfg *config.Config) (*qdrant.Client, error) {
	return qdrant.NewClient(qdrant.ClientConfig{
		Host:             cfg.Qdrant.Host,
		Port:             cfg.Qdrant.Port,
		APIKey:           cfg.Qdrant.APIKey,
		UseTLS:           cfg.Qdrant.UseTLS,
		CollectionPrefix: cfg.Qdrant.CollectionPrefix,
	})
}

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the corpus under each configured strategy",
		Long: `Load the corpus and build one Qdrant collection per strategy,
embedding every document with that strategy's model. Re-running is
safe: point IDs are derived from document IDs, so documents are
upserted in place.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}

			only, _ := cmd.Flags().GetString("strategy")

			ctx, cancel := signalContext()
			defer cancel()

			ds, err := dataset.Load(cfg.Dataset)
			if err != nil {
				return err
			}
			log.Info("dataset loaded",
				"documents", len(ds.Documents),
				"queries", len(ds.Queries))

			client, err := newQdrantClient(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.HealthCheck(ctx); err != nil {
				return err
			}

			cache, err := embed.NewCache(cfg.Cache)
			if err != nil {
				return err
			}

			b, err := bus.NewBus(cfg.Bus)
			if err != nil {
				return err
			}
			defer b.Close()

			runID := uuid.NewString()

			for _, strategy := range cfg.Strategies {
				if only != "" && strategy.Name != only {
					continue
				}

				provider := embed.NewCached(embed.NewClient(cfg.Embedding, strategy.Model, log), cache)
				pipeline := index.NewPipeline(provider, client, cfg.Index, log).WithBus(b, runID)

				result, err := pipeline.Index(ctx, index.Request{
					Strategy:   strategy,
					Documents:  ds.Documents,
					VectorSize: uint64(cfg.Embedding.Dim),
				})
				if err != nil {
					return err
				}

				fmt.Printf("indexed %d documents into %s (%s)\n",
					result.Documents, strategy.Collection, result.Duration.Round(time.Millisecond))
			}

			return nil
		},
	}

	cmd.Flags().String("strategy", "", "index only this strategy")

	return cmd
}

func evalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate every strategy and compare against the baseline",
		Long: `Run the full query set against each strategy's collection and
score the rankings with NDCG@k. The report shows each strategy's mean
score and its delta against the configured baseline.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}

			format, _ := cmd.Flags().GetString("format")
			k, _ := cmd.Flags().GetInt("k")
			if k > 0 {
				cfg.Eval.K = k
			}

			ctx, cancel := signalContext()
			defer cancel()

			ds, err := dataset.Load(cfg.Dataset)
			if err != nil {
				return err
			}

			client, err := newQdrantClient(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.HealthCheck(ctx); err != nil {
				return err
			}

			cache, err := embed.NewCache(cfg.Cache)
			if err != nil {
				return err
			}

			b, err := bus.NewBus(cfg.Bus)
			if err != nil {
				return err
			}
			defer b.Close()

			runID := uuid.NewString()
			evaluator := evaluation.NewEvaluator(cfg.Eval, log).WithBus(b, runID)
			factory := bench.NewVectorRetrieverFactory(cfg.Embedding, client, cache, log)
			runner := bench.NewRunner(factory, evaluator, log)

			comparison, err := runner.Run(ctx, cfg.Strategies, cfg.Eval.Baseline, ds.Queries, ds.Relevance)
			if err != nil {
				return err
			}

			return bench.Render(os.Stdout, comparison, format)
		},
	}

	cmd.Flags().Int("k", 0, "evaluation cutoff (overrides config)")

	return cmd
}

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Run one ad-hoc query against a strategy's collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}

			name, _ := cmd.Flags().GetString("strategy")
			k, _ := cmd.Flags().GetInt("k")
			if name == "" {
				name = cfg.Eval.Baseline
			}
			if k <= 0 {
				k = cfg.Eval.K
			}

			strategy, ok := cfg.Strategy(name)
			if !ok {
				return fmt.Errorf("strategy %q is not configured", name)
			}

			ctx, cancel := signalContext()
			defer cancel()

			client, err := newQdrantClient(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			provider := embed.NewClient(cfg.Embedding, strategy.Model, log)
			ret := retriever.NewVectorRetriever(provider, client, strategy.Collection)

			docs, err := ret.Retrieve(ctx, args[0], k)
			if err != nil {
				return err
			}

			for i, d := range docs {
				fmt.Printf("%2d. %-20s %.4f\n", i+1, d.ID, d.Score)
			}
			return nil
		},
	}

	cmd.Flags().String("strategy", "", "strategy to query (default: the baseline)")
	cmd.Flags().Int("k", 0, "number of results (default: eval k)")

	return cmd
}

func collectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List benchmark collections and their point counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			client, err := newQdrantClient(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			names, err := client.ListCollections(ctx)
			if err != nil {
				return err
			}

			for _, name := range names {
				info, err := client.GetCollectionInfo(ctx, name)
				if err != nil {
					return err
				}
				fmt.Printf("%-30s %8d points  %s\n", info.Name, info.PointsCount, info.Status)
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("embed-bench %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}
