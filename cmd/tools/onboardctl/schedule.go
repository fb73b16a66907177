package main

import (
	"fmt"
	"text/tabwriter"

	"prospect-onboarding/internal/onboarding/scheduler"

	"github.com/spf13/cobra"
)

func scheduleCmd(opts *options) *cobra.Command {
	var (
		start  string
		delays []int
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Preview meeting dates for a start date and day offsets",
		Long: `Computes one 09:00 slot per delay, counted in calendar days from the
start date. Slots landing on Saturday or Sunday move to the next Monday.`,
		Example: `  onboardctl schedule --start 2025-01-17 --delays 0,1,3`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := scheduler.ParseStart(start, opts.loc)
			if err != nil {
				return err
			}
			entries, err := scheduler.Preview(s, delays)
			if err != nil {
				return err
			}
			opts.log.Debug("schedule computed", map[string]interface{}{"start": start, "meetings": len(entries)})

			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), entries)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", headerStyle.Render("#"), headerStyle.Render("DELAY"),
				headerStyle.Render("WHEN"), headerStyle.Render("SHIFTED"))
			for _, e := range entries {
				shifted := ""
				if e.Shifted {
					shifted = "weekend"
				}
				fmt.Fprintf(w, "%d\t+%dd\t%s\t%s\n", e.Index+1, e.DelayDays, e.At.Format("Mon 2006-01-02 15:04"), shifted)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntSliceVar(&delays, "delays", nil, "comma separated day offsets from the start date")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("delays")
	return cmd
}
