package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"focusgate/internal/menu"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the last host session from the journal",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	j, ctx, err := openJournal(cmd)
	if err != nil {
		return err
	}
	defer j.Close()
	out := cmd.OutOrStdout()

	sessions, err := j.Sessions(ctx, 1)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out, "no sessions recorded")
		return nil
	}
	s := sessions[0]
	fmt.Fprintf(out, "session #%d  pid=%d  version=%s\n", s.ID, s.PID, s.Version)
	fmt.Fprintf(out, "started %s, %s\n", formatNs(s.StartedNs), sessionState(s))

	focusEvents, err := j.FocusEvents(ctx, s.ID)
	if err != nil {
		return err
	}
	trims, err := j.MenuTrims(ctx, s.ID)
	if err != nil {
		return err
	}
	suppressions, err := j.Suppressions(ctx, s.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "focus transitions: %d\n", len(focusEvents))
	trimmed := "no"
	for _, t := range trims {
		if t.Outcome == menu.OutcomePatched.String() {
			trimmed = fmt.Sprintf("yes (%s scan, %d disabled)", t.Reason, t.Disabled)
			if t.Trimmer != "" {
				trimmed += " via " + t.Trimmer
			}
		}
	}
	fmt.Fprintf(out, "menu trimmed: %s\n", trimmed)
	if len(suppressions) > 0 {
		fmt.Fprintf(out, "suppressed: %s(%s)\n", suppressions[0].Query, suppressions[0].Arg)
	}

	stats, err := j.LatestStats(ctx)
	if err != nil {
		return err
	}
	if stats == nil {
		fmt.Fprintln(out, "no stats snapshot yet")
		return nil
	}
	fmt.Fprintf(out, "gate (as of %s): passed=%d blocked=%d suppressed=%d flushes=%d flush_errors=%d\n",
		formatNs(stats.TimestampNs), stats.Passed, stats.Blocked, stats.Suppressed, stats.Flushes, stats.FlushErrors)
	if len(stats.Metrics) > 0 {
		names := make([]string, 0, len(stats.Metrics))
		for name := range stats.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "  %s = %v\n", name, stats.Metrics[name])
		}
	}
	return nil
}
