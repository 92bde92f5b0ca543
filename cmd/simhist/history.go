package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/simhist/pkg/simhist/internalerr"
)

func newHistoryCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			if st == nil {
				return fmt.Errorf("--db required: %w", internalerr.ErrInvalidConfig)
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), c.v.GetInt("limit"))
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tCREATED\tDOCS A\tDOCS B\tVOCAB\tPAIRS A\tPAIRS B\tPAIRS AB")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
					r.ID, r.Name, r.CreatedAt.Format(time.RFC3339),
					r.DocsA, r.DocsB, r.Width,
					r.SelfA.Total(), r.SelfB.Total(), r.Cross.Total())
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum runs to list, 0 for all")
	return cmd
}
