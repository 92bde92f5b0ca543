package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/simhist/internal/corpus"
	"github.com/cognicore/simhist/pkg/simhist/config"
	"github.com/cognicore/simhist/pkg/simhist/internalerr"
	"github.com/cognicore/simhist/pkg/simhist/report"
	"github.com/cognicore/simhist/pkg/simhist/session"
	"github.com/cognicore/simhist/pkg/simhist/store"
)

func newRunCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compare every dataset of a settings file and write R scripts",
		Long: `Loads a YAML settings file, compares the train and test corpus of every
dataset, and writes <output.dir>/viz/<outname>.R with one bar plot per
comparison (a, b, ab).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.v.GetString("settings")
			if path == "" {
				return fmt.Errorf("--settings required: %w", internalerr.ErrInvalidConfig)
			}
			settings, err := config.Load(path)
			if err != nil {
				return err
			}
			c.applyEngineOverrides(cmd, &settings.Engine)
			if err := settings.Validate(); err != nil {
				return err
			}
			if len(settings.Datasets) == 0 {
				return fmt.Errorf("%s: no datasets: %w", path, internalerr.ErrInvalidConfig)
			}
			return c.runSettings(cmd.Context(), settings, c.v.GetBool("json"))
		},
	}
	cmd.Flags().String("settings", "", "Settings file (required)")
	cmd.Flags().Bool("json", false, "Also write <outname>.json next to the R script")
	addEngineFlags(cmd)
	return cmd
}

func (c *cli) runSettings(ctx context.Context, settings *config.Settings, writeJSON bool) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if st != nil {
		defer st.Close()
	}

	var failed []error
	for _, ds := range settings.Datasets {
		c.logger.Info("dataset started", "dataset", ds.OutName)
		if err := c.runDataset(ctx, settings, ds, st, writeJSON); err != nil {
			// cancellation stops the whole batch
			if ctx.Err() != nil {
				return err
			}
			c.logger.Error("dataset failed", "dataset", ds.OutName, "err", err)
			failed = append(failed, fmt.Errorf("dataset %s: %w", ds.OutName, err))
			continue
		}
		c.logger.Info("dataset finished", "dataset", ds.OutName)
	}
	if err := c.writeMetrics(); err != nil {
		failed = append(failed, fmt.Errorf("write metrics: %w", err))
	}
	return errors.Join(failed...)
}

func (c *cli) runDataset(ctx context.Context, settings *config.Settings, ds config.Dataset, st store.Store, writeJSON bool) error {
	a, err := corpus.Load(settings.TrainPath(ds))
	if err != nil {
		return err
	}
	b, err := corpus.Load(settings.TestPath(ds))
	if err != nil {
		return err
	}

	res, rep, err := c.compare(ctx, settings.Engine, a, b)
	if err != nil {
		return err
	}

	script := settings.ScriptPath(ds)
	if err := os.MkdirAll(filepath.Dir(script), 0o755); err != nil {
		return err
	}
	if err := writeFileWith(script, rep.WriteR); err != nil {
		return err
	}
	c.logger.Info("script written", "path", script)

	if writeJSON {
		jsonPath := strings.TrimSuffix(script, filepath.Ext(script)) + ".json"
		if err := writeFileWith(jsonPath, rep.WriteJSON); err != nil {
			return err
		}
	}

	if st != nil {
		id, err := st.SaveRun(ctx, runRecord(ds.OutName, settings.Engine, res))
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		c.logger.Info("run saved", "id", id)
	}
	return nil
}

// compare runs one session. Histograms that cannot be normalized are logged
// and plotted as NA; every other failure is returned.
func (c *cli) compare(ctx context.Context, engine config.Engine, a, b corpus.Corpus) (session.Result, report.Report, error) {
	s, err := session.New(engine, a.Documents(), b.Documents(),
		session.WithLogger(c.logger.With("a", a.Name, "b", b.Name)),
		session.WithObserver(c.metrics),
	)
	if err != nil {
		return session.Result{}, report.Report{}, err
	}
	start := time.Now()
	res, err := s.Run(ctx)
	if err != nil {
		return session.Result{}, report.Report{}, err
	}
	c.logger.Info("comparison complete", "elapsed", time.Since(start), "vocabulary", res.Width)

	rep, err := res.Report()
	if err != nil {
		c.logger.Warn("histogram not normalized", "err", err)
	}
	return res, rep, nil
}

func runRecord(name string, e config.Engine, res session.Result) store.Run {
	return store.Run{
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Steps:     e.Steps,
		ChunkSize: e.ChunkSize,
		Rounds:    e.Rounds,
		Workers:   e.Workers,
		Seed:      e.Seed,
		SelfMode:  e.SelfMode,
		Width:     res.Width,
		DocsA:     res.DocsA,
		DocsB:     res.DocsB,
		SelfA:     res.SelfA,
		SelfB:     res.SelfB,
		Cross:     res.Cross,
	}
}

func writeFileWith(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
