package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"prospect-onboarding/pkg/registry"

	"github.com/spf13/cobra"
)

func workersCmd(opts *options) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "workers",
		Short: "Inspect the worker registry",
	}
	cmd.PersistentFlags().StringVar(&path, "registry", "configs/worker-registry.json", "path to the worker registry")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(path)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), reg.Workers)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", headerStyle.Render("TASK TYPE"), headerStyle.Render("CONFIG KEY"),
				headerStyle.Render("CATEGORY"), headerStyle.Render("ERROR CODES"))
			for _, wk := range reg.Workers {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", wk.TaskType, wk.ConfigKey, wk.Category, strings.Join(wk.ErrorCodes, ","))
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Check the registry for duplicates and missing fields",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := registry.LoadRegistry(path)
			if err != nil {
				return fmt.Errorf("failed to load registry: %w", err)
			}
			if err := reg.Validate(); err != nil {
				return fmt.Errorf("registry validation failed: %w", err)
			}
			opts.log.Info("registry validated", map[string]interface{}{"path": path})
			fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d workers.\n", len(reg.Workers))
			return nil
		},
	})

	return cmd
}
