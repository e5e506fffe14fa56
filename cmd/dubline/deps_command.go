package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dubline/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var probeLLM bool

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check external tools and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, probeLLM)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				if !r.Passed {
					status = "missing"
					if r.Optional {
						status = "missing (optional)"
					}
				}
				rows = append(rows, []string{r.Name, status, yesNo(r.Optional), r.Detail})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Check", "Status", "Optional", "Detail"},
				rows,
			))
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d required check(s) failed", len(failed))
			}
			fmt.Fprintln(out, "All required checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&probeLLM, "llm", false, "Also probe the translation backend (spends one request)")
	return cmd
}
