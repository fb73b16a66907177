package main

import (
	"fmt"
	"text/tabwriter"

	"prospect-onboarding/internal/onboarding/steps"

	"github.com/spf13/cobra"
)

func stepsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "steps",
		Short: "List the wizard steps",
		RunE: func(cmd *cobra.Command, _ []string) error {
			all := steps.All()
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), all)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\n", headerStyle.Render("#"), headerStyle.Render("TITLE"), headerStyle.Render("SKIPPABLE"))
			for _, s := range all {
				fmt.Fprintf(w, "%d\t%s\t%t\n", int(s.ID), s.Title, s.Skippable)
			}
			return w.Flush()
		},
	}
}
