package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rizal/kova/pkg/history"
)

var statusDir string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent availability and project history state",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusDir, "dir", "", "project directory (default is the current directory)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	dir, err := resolveDir(statusDir)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()

	version, err := a.exec.Version(context.Background())
	if err != nil {
		fmt.Fprintf(out, "Agent: unavailable (%s not on PATH or not responding)\n", a.cfg.Agent.Binary)
	} else {
		fmt.Fprintf(out, "Agent: %s %s\n", a.cfg.Agent.Binary, version)
	}

	a.sessions.LoadProjectSessions(dir)
	fmt.Fprintf(out, "Project: %s\n", dir)
	fmt.Fprintf(out, "History: %s\n", a.sessions.Summary())

	if h := a.exec.LastHandle(dir); h != "" {
		fmt.Fprintf(out, "Continuity: resuming agent session %s\n", h)
	} else {
		fmt.Fprintln(out, "Continuity: no stored agent session")
	}

	if a.ledger != nil {
		totals, err := a.ledger.ProjectTotals(history.ProjectID(dir))
		if err == nil && totals.TotalTokens > 0 {
			fmt.Fprintf(out, "Usage: %d tokens across %d runs\n", totals.TotalTokens, totals.Runs)
		}
	}

	return nil
}
