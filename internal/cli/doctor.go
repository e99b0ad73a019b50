package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"focusgate/internal/config"
	"focusgate/internal/focus"
	"focusgate/internal/health"
	"focusgate/internal/host"
	"focusgate/internal/journal"
)

var doctorJSON bool

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "print the full health report as JSON")
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the gate can work on this machine",
	RunE:  runDoctor,
}

// doctorChecker registers every doctor check for cfg.
func doctorChecker(cfg *config.Config, path string) *health.Checker {
	c := health.NewChecker()
	c.RegisterFunc("focus_backend", true,
		health.FocusBackendCheck(focus.NewSource(host.SourceConfig(cfg)), os.Getpid()))
	c.RegisterFunc("config", true, health.ConfigCheck(path))
	c.RegisterFunc("data_dir", false, health.WritableDirCheck(config.Dir()))
	if cfg.Journal.Enabled && cfg.Journal.Path != journal.MemoryPath {
		jp := cfg.Journal.Path
		c.RegisterFunc("journal", false, health.JournalCheck(func(ctx context.Context) error {
			j, err := journal.Open(jp)
			if err != nil {
				return err
			}
			defer j.Close()
			return j.Ping(ctx)
		}))
	}
	if cfg.Logging.Output == "file" || cfg.Logging.Output == "both" {
		c.RegisterFunc("log_dir", false, health.WritableDirCheck(filepath.Dir(cfg.Logging.FilePath)))
	}
	return c
}

func runDoctor(cmd *cobra.Command, args []string) error {
	path := resolveConfigPath()
	cfg, err := config.NewLoader(path).Load()
	if err != nil {
		// Keep going on defaults so the other checks still run; the config
		// check reports the problem.
		cfg = config.DefaultConfig()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	checker := doctorChecker(cfg, path)
	checker.SetReady(true)
	resp := checker.HealthResponse(ctx, true)
	out := cmd.OutOrStdout()

	if doctorJSON {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	} else {
		names := make([]string, 0, len(resp.Components))
		for name := range resp.Components {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			r := resp.Components[name]
			fmt.Fprintf(out, "  %s %-14s %s\n", statusMark(r.Status), name, r.Message)
			if r.Error != "" {
				fmt.Fprintf(out, "      error: %s\n", r.Error)
			}
		}
		fmt.Fprintf(out, "\noverall: %s\n", resp.Status)
	}

	if resp.Status == health.StatusUnhealthy {
		return fmt.Errorf("doctor: %s", resp.Status)
	}
	return nil
}

func statusMark(s health.Status) string {
	switch s {
	case health.StatusHealthy:
		return "[ok]  "
	case health.StatusDegraded:
		return "[warn]"
	default:
		return "[fail]"
	}
}
