package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rizal/kova/pkg/executor"
	"github.com/rizal/kova/pkg/history"
)

var (
	runDir       string
	runPlan      bool
	runTimeout   time.Duration
	runResume    string
	runNoHistory bool
)

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run a prompt through the coding agent",
	Long: `Run a prompt through the coding agent in a project directory.
The prompt is taken from the arguments, or from standard input when no
argument is given. The exchange is appended to the project's active chat
session and the agent's conversation is resumed automatically.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runDir, "dir", "", "project directory (default is the current directory)")
	runCmd.Flags().BoolVar(&runPlan, "plan", false, "plan only, do not let the agent edit files")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "invocation timeout (default from config)")
	runCmd.Flags().StringVar(&runResume, "resume", "", "resume a specific agent session handle")
	runCmd.Flags().BoolVar(&runNoHistory, "no-history", false, "do not record the exchange in chat history")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	prompt, err := readPrompt(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("prompt is empty")
	}

	dir, err := resolveDir(runDir)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !runNoHistory {
		a.sessions.LoadProjectSessions(dir)
	}

	enableEditing := a.cfg.Agent.EnableEditing && !runPlan

	outcome := a.exec.Run(context.Background(), executor.Request{
		Prompt:        prompt,
		WorkingDir:    dir,
		Timeout:       runTimeout,
		EnableEditing: enableEditing,
		ResumeHandle:  runResume,
		AllowedTools:  a.cfg.Agent.AllowedTools,
	})

	if !outcome.OK {
		return fmt.Errorf("%s", outcome.ErrMessage)
	}

	fmt.Fprintln(cmd.OutOrStdout(), outcome.Text)

	for _, denial := range outcome.Denials {
		fmt.Fprintf(cmd.ErrOrStderr(), "permission denied: %s", denial.Tool)
		if denial.Reason != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), " (%s)", denial.Reason)
		}
		fmt.Fprintln(cmd.ErrOrStderr())
	}

	if !runNoHistory {
		entry := a.sessions.AddEntry(history.KindInteractive, prompt, outcome.Text, a.cfg.Agent.Binary, outcome.Usage)
		a.sessions.MarkSaved()

		if a.ledger != nil && outcome.Usage != nil {
			projectID := history.ProjectID(dir)
			if err := a.ledger.Record(projectID, entry.ID, a.cfg.Agent.Binary, *outcome.Usage); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: could not record usage: %v\n", err)
			}
		}
	}

	return nil
}

func readPrompt(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
	}
	return string(data), nil
}
