package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rizal/kova/pkg/history"
)

var usageDir string

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show recorded token usage",
	RunE:  runUsage,
}

func init() {
	usageCmd.Flags().StringVar(&usageDir, "dir", "", "project directory (default is the current directory)")
	rootCmd.AddCommand(usageCmd)
}

func runUsage(cmd *cobra.Command, args []string) error {
	dir, err := resolveDir(usageDir)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.ledger == nil {
		return fmt.Errorf("usage ledger is disabled or unavailable")
	}

	out := cmd.OutOrStdout()

	totals, err := a.ledger.ProjectTotals(history.ProjectID(dir))
	if err != nil {
		return fmt.Errorf("failed to read project totals: %w", err)
	}

	fmt.Fprintf(out, "Project %s: %d runs, %d prompt + %d completion = %d tokens\n",
		dir, totals.Runs, totals.PromptTokens, totals.CompletionTokens, totals.TotalTokens)

	byModel, err := a.ledger.ByModel()
	if err != nil {
		return fmt.Errorf("failed to read per-model totals: %w", err)
	}
	if len(byModel) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tRUNS\tTOKENS")
	for _, m := range byModel {
		fmt.Fprintf(w, "%s\t%d\t%d\n", m.Model, m.Runs, m.TotalTokens)
	}
	return w.Flush()
}
