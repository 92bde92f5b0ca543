package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cognicore/simhist/internal/logging"
	"github.com/cognicore/simhist/pkg/simhist/config"
	"github.com/cognicore/simhist/pkg/simhist/metrics"
	"github.com/cognicore/simhist/pkg/simhist/store"
	"github.com/cognicore/simhist/pkg/simhist/store/sqlite"
)

const envPrefix = "SIMHIST"

// cli carries state shared by all subcommands.
type cli struct {
	v        *viper.Viper
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "simhist",
		Short:         "Sampled Jaccard similarity histograms for request-log corpora",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := c.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			return c.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-format", "text", "Log format (text, json)")
	pf.String("db", "", "SQLite database for run history (optional)")
	pf.String("metrics-file", "", "Write Prometheus metrics to this file when done (optional)")

	root.AddCommand(newRunCmd(c), newCompareCmd(c), newHistoryCmd(c))
	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	c.logger = logging.New(logging.Config{
		Level:  c.v.GetString("log-level"),
		Format: c.v.GetString("log-format"),
		Output: cmd.ErrOrStderr(),
	})
	c.registry = prometheus.NewRegistry()
	m, err := metrics.New(c.registry)
	if err != nil {
		return err
	}
	c.metrics = m
	return nil
}

// openStore opens the run history database, or returns nil when none is configured.
func (c *cli) openStore(ctx context.Context) (store.Store, error) {
	path := c.v.GetString("db")
	if path == "" {
		return nil, nil
	}
	return sqlite.OpenSQLite(ctx, path)
}

func (c *cli) writeMetrics() error {
	path := c.v.GetString("metrics-file")
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := metrics.WriteText(f, c.registry); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// addEngineFlags registers the engine parameters shared by run and compare.
func addEngineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("steps", config.DefaultSteps, "Histogram steps (bins = steps+1)")
	f.Int("chunk-size", config.DefaultChunkSize, "Documents per dense chunk")
	f.Int("rounds", config.DefaultRounds, "Sampling rounds per comparison")
	f.Int("workers", config.DefaultWorkers, "Rounds executed concurrently")
	f.Uint64("seed", 0, "Fixed random seed (unset means random)")
	f.String("self-mode", config.SelfBipartition, "Self comparison estimator (bipartition, diagonal)")
	f.Int64("max-chunk-bytes", 0, "Memory budget for one chunk pair, 0 disables")
	f.Uint64("vocabulary-limit", 0, "Maximum vocabulary size, 0 means unlimited")
}

// overridden reports whether a flag was given on the command line or via env.
func (c *cli) overridden(cmd *cobra.Command, name string) bool {
	if cmd.Flags().Changed(name) {
		return true
	}
	_, ok := os.LookupEnv(envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_")))
	return ok
}

// applyEngineOverrides layers flags and environment over e.
func (c *cli) applyEngineOverrides(cmd *cobra.Command, e *config.Engine) {
	if c.overridden(cmd, "steps") {
		e.Steps = c.v.GetInt("steps")
	}
	if c.overridden(cmd, "chunk-size") {
		e.ChunkSize = c.v.GetInt("chunk-size")
	}
	if c.overridden(cmd, "rounds") {
		e.Rounds = c.v.GetInt("rounds")
	}
	if c.overridden(cmd, "workers") {
		e.Workers = c.v.GetInt("workers")
	}
	if c.overridden(cmd, "seed") {
		seed := c.v.GetUint64("seed")
		e.Seed = &seed
	}
	if c.overridden(cmd, "self-mode") {
		e.SelfMode = c.v.GetString("self-mode")
	}
	if c.overridden(cmd, "max-chunk-bytes") {
		e.MaxChunkBytes = c.v.GetInt64("max-chunk-bytes")
	}
	if c.overridden(cmd, "vocabulary-limit") {
		e.VocabularyLimit = c.v.GetUint64("vocabulary-limit")
	}
}
