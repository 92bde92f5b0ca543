package main

import (
	"github.com/spf13/cobra"

	"github.com/cognicore/simhist/internal/corpus"
	"github.com/cognicore/simhist/pkg/simhist/config"
)

func newCompareCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <corpus-a> <corpus-b>",
		Short: "Compare two corpus files and print the R script",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := config.DefaultEngine()
			c.applyEngineOverrides(cmd, &engine)
			if err := engine.Validate(); err != nil {
				return err
			}

			a, err := corpus.Load(args[0])
			if err != nil {
				return err
			}
			b, err := corpus.Load(args[1])
			if err != nil {
				return err
			}

			res, rep, err := c.compare(cmd.Context(), engine, a, b)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if c.v.GetBool("json") {
				err = rep.WriteJSON(out)
			} else {
				err = rep.WriteR(out)
			}
			if err != nil {
				return err
			}

			st, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
				id, err := st.SaveRun(cmd.Context(), runRecord(a.Name+"_vs_"+b.Name, engine, res))
				if err != nil {
					return err
				}
				c.logger.Info("run saved", "id", id)
			}
			return c.writeMetrics()
		},
	}
	cmd.Flags().Bool("json", false, "Print the report as JSON instead of R")
	addEngineFlags(cmd)
	return cmd
}
