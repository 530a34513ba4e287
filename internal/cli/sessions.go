package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rizal/kova/pkg/history"
)

var (
	sessionsDir string
	sessionsAll bool
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage a project's chat sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the project's chat sessions",
	RunE:  runSessionsList,
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Start a new chat session",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionsNew,
}

var sessionsSwitchCmd = &cobra.Command{
	Use:   "switch <session-id>",
	Short: "Make another session the active one",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsSwitch,
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all chat sessions of the project",
	RunE:  runSessionsClear,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show recent entries of the active session",
	RunE:  runSessionsShow,
}

var sessionsShowLimit int

func init() {
	sessionsCmd.PersistentFlags().StringVar(&sessionsDir, "dir", "", "project directory (default is the current directory)")
	sessionsListCmd.Flags().BoolVar(&sessionsAll, "all", false, "list every project with stored history")
	sessionsShowCmd.Flags().IntVar(&sessionsShowLimit, "limit", 10, "number of recent entries to show")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsNewCmd)
	sessionsCmd.AddCommand(sessionsSwitchCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if sessionsAll {
		projects := a.sessions.AllProjects()
		if len(projects) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No projects with stored history")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PROJECT\tSESSIONS\tENTRIES\tLAST UPDATED")
		for _, p := range projects {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\n",
				p.ProjectPath, p.SessionCount, p.EntryCount, p.LastUpdated.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	}

	dir, err := resolveDir(sessionsDir)
	if err != nil {
		return err
	}

	sessions := a.sessions.LoadProjectSessions(dir)
	active := a.sessions.ActiveSession()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tENTRIES\tCREATED\tACTIVE")
	for _, sess := range sessions {
		marker := ""
		if active != nil && sess.SessionID == active.SessionID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			sess.SessionID, sess.SessionName, len(sess.Entries), sess.FormattedDate(), marker)
	}
	return w.Flush()
}

func runSessionsNew(cmd *cobra.Command, args []string) error {
	dir, err := resolveDir(sessionsDir)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	a.sessions.LoadProjectSessions(dir)

	name := ""
	if len(args) == 1 {
		name = args[0]
	}

	sess := a.sessions.StartNewSession(name)
	a.sessions.SaveProjectSessions()

	fmt.Fprintf(cmd.OutOrStdout(), "Started session %s (%s)\n", sess.SessionID, sess.SessionName)
	return nil
}

func runSessionsSwitch(cmd *cobra.Command, args []string) error {
	dir, err := resolveDir(sessionsDir)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	a.sessions.LoadProjectSessions(dir)

	if !a.sessions.SwitchToSession(args[0]) {
		return fmt.Errorf("no session %q in this project", args[0])
	}

	active := a.sessions.ActiveSession()
	fmt.Fprintf(cmd.OutOrStdout(), "Switched to session %s (%s)\n", active.SessionID, active.SessionName)
	return nil
}

func runSessionsClear(cmd *cobra.Command, args []string) error {
	dir, err := resolveDir(sessionsDir)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	a.sessions.LoadProjectSessions(dir)
	a.sessions.ClearProjectHistory()
	a.handles.Clear(history.ProjectID(dir))

	fmt.Fprintf(cmd.OutOrStdout(), "Cleared chat history for %s\n", dir)
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	dir, err := resolveDir(sessionsDir)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	a.sessions.LoadProjectSessions(dir)

	active := a.sessions.ActiveSession()
	if active == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No active session")
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", active.SessionName, a.sessions.Summary())

	for _, entry := range a.sessions.RecentEntries(sessionsShowLimit) {
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s  %s\n", entry.FormattedTime(), entry.ID, entry.Preview(60))
	}
	return nil
}
