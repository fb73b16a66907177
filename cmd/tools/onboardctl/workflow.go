package main

import (
	"fmt"
	"text/tabwriter"

	"prospect-onboarding/internal/onboarding/workflow"

	"github.com/spf13/cobra"
)

func workflowCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "List the dossier steps and the action leading to each",
		RunE: func(cmd *cobra.Command, _ []string) error {
			steps := workflow.Steps()
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), steps)
			}

			reachedBy := make(map[int]string, len(steps))
			for _, a := range workflow.Actions() {
				reachedBy[a.Target()] = a.String()
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", headerStyle.Render("STEP"), headerStyle.Render("TITLE"),
				headerStyle.Render("PROGRESS"), headerStyle.Render("ACTION"))
			for _, d := range steps {
				fmt.Fprintf(w, "%d\t%s\t%d%%\t%s\n", d.Step, d.Title, d.Progress, reachedBy[d.Step])
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(workflowNextCmd(opts))
	return cmd
}

// transition is the answer of "workflow next".
type transition struct {
	Current int                  `json:"current"`
	Action  string               `json:"action"`
	Target  int                  `json:"target"`
	Legal   bool                 `json:"legal"`
	Step    *workflow.Descriptor `json:"step,omitempty"`
}

func workflowNextCmd(opts *options) *cobra.Command {
	var (
		current int
		action  string
	)

	cmd := &cobra.Command{
		Use:     "next",
		Short:   "Tell whether an action may run on a dossier at a given step",
		Example: `  onboardctl workflow next --step 1 --action assign-expert`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, ok := workflow.ParseAction(action)
			if !ok {
				return fmt.Errorf("unknown action %q", action)
			}

			target := workflow.NextStep(current, a)
			t := transition{Current: current, Action: a.String(), Target: target, Legal: workflow.CanAdvance(current, target)}
			if t.Legal {
				d := workflow.DescribeStep(target)
				t.Step = &d
			}

			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), t)
			}
			if !t.Legal {
				fmt.Fprintf(cmd.OutOrStdout(), "rejected: %s leads to step %d, dossier is at step %d\n", t.Action, target, current)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "allowed: step %d -> %d (%s, %d%%)\n", current, target, t.Step.Title, t.Step.Progress)
			return nil
		},
	}

	cmd.Flags().IntVar(&current, "step", 0, "current dossier step (0-5)")
	cmd.Flags().StringVar(&action, "action", "", "action name, e.g. sign-charter")
	_ = cmd.MarkFlagRequired("action")
	return cmd
}
