package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"focusgate/internal/focus"
	"focusgate/internal/host"
)

var (
	probeBackend string
	probePID     int
	probeCount   int
	probeEvery   time.Duration
)

func init() {
	probeCmd.Flags().StringVar(&probeBackend, "backend", "", "override focus.backend (auto, x11, wayland, static)")
	probeCmd.Flags().IntVar(&probePID, "pid", 0, "report whether this pid owns the foreground window")
	probeCmd.Flags().IntVarP(&probeCount, "count", "n", 1, "number of queries")
	probeCmd.Flags().DurationVar(&probeEvery, "interval", time.Second, "delay between queries")
	rootCmd.AddCommand(probeCmd)
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Query the OS foreground window the way a host would",
	RunE:  runProbe,
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if probeBackend != "" {
		cfg.Focus.Backend = probeBackend
	}
	src := focus.NewSource(host.SourceConfig(cfg))
	out := cmd.OutOrStdout()

	ok, desc := src.Available()
	fmt.Fprintf(out, "backend: %s (available=%t)\n", desc, ok)
	if !ok {
		return fmt.Errorf("foreground query unavailable: %s", desc)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	for i := 0; i < probeCount; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(probeEvery):
			}
		}
		probeOnce(ctx, cmd, src, cfg.QueryTimeout())
	}
	return nil
}

func probeOnce(ctx context.Context, cmd *cobra.Command, src focus.ForegroundSource, timeout time.Duration) {
	out := cmd.OutOrStdout()
	if timeout <= 0 {
		timeout = focus.DefaultQueryTimeout
	}
	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	w, err := src.Foreground(qctx)
	took := time.Since(start).Round(time.Microsecond)
	switch {
	case errors.Is(err, focus.ErrNoForeground):
		fmt.Fprintf(out, "no foreground window (%s)\n", took)
		return
	case err != nil:
		fmt.Fprintf(out, "query failed after %s: %v\n", took, err)
		return
	}

	title := src.Title(qctx, w)
	fmt.Fprintf(out, "window=%s pid=%d title=%q (%s)", w.Handle, w.PID, title, took)
	if probePID != 0 {
		fmt.Fprintf(out, " foreground=%t", w.PID == probePID)
	}
	fmt.Fprintln(out)
}
