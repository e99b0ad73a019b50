package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"focusgate/internal/journal"
)

var (
	journalPath string
	tailCount   int
	sessionsMax int
)

func init() {
	journalCmd.PersistentFlags().StringVar(&journalPath, "journal", "", "journal database (default: journal.path from config)")
	journalTailCmd.Flags().IntVarP(&tailCount, "lines", "n", 20, "number of entries")
	journalSessionsCmd.Flags().IntVarP(&sessionsMax, "limit", "n", 10, "number of sessions")
	journalCmd.AddCommand(journalTailCmd, journalSessionsCmd)
	rootCmd.AddCommand(journalCmd)
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Read the diagnostics journal",
}

var journalTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print the newest journal entries, oldest first",
	RunE:  runJournalTail,
}

var journalSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent host sessions",
	RunE:  runJournalSessions,
}

// openJournal opens the journal named by --journal or the config, read-only.
func openJournal(cmd *cobra.Command) (*journal.Journal, context.Context, error) {
	path := journalPath
	if path == "" {
		cfg, _, err := loadConfig()
		if err != nil {
			return nil, nil, err
		}
		path = cfg.Journal.Path
	}
	if path == journal.MemoryPath {
		return nil, nil, fmt.Errorf("journal is in-memory; nothing to read")
	}
	j, err := journal.OpenReadOnly(path)
	if err != nil {
		return nil, nil, err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return j, ctx, nil
}

func runJournalTail(cmd *cobra.Command, args []string) error {
	j, ctx, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.Tail(ctx, tailCount)
	if err != nil {
		return err
	}
	printEntries(cmd.OutOrStdout(), entries)
	return nil
}

func printEntries(w io.Writer, entries []journal.Entry) {
	for _, e := range entries {
		fmt.Fprintf(w, "%s  #%-4d %-11s %s\n", formatNs(e.TimestampNs), e.SessionID, e.Kind, e.Detail)
	}
}

func runJournalSessions(cmd *cobra.Command, args []string) error {
	j, ctx, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	sessions, err := j.Sessions(ctx, sessionsMax)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, s := range sessions {
		fmt.Fprintf(out, "#%-4d %s  pid=%-7d version=%-8s %s\n",
			s.ID, formatNs(s.StartedNs), s.PID, s.Version, sessionState(s))
	}
	return nil
}

func sessionState(s journal.Session) string {
	if s.EndedNs == nil {
		return "running or crashed"
	}
	return "ran " + time.Duration(*s.EndedNs-s.StartedNs).Round(time.Second).String()
}

func formatNs(ns int64) string {
	return time.Unix(0, ns).Local().Format("2006-01-02 15:04:05.000")
}
