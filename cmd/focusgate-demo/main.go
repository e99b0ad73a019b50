// focusgate-demo is a small ebiten title screen run behind the focus gate.
//
// It wires the gate the way a real host would: OS foreground and engine focus
// are refreshed every tick, all gameplay input goes through the gated source,
// and the title menu is trimmed once the UI tree is loaded. Pressing Submit
// while the window is in the background does nothing; so does the first
// Submit after "New Game" was disabled.
//
//	focusgate-demo [-config path] [-list] [-http 127.0.0.1:9464]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hajimehoshi/ebiten/v2"

	"focusgate/internal/config"
	"focusgate/internal/ebitenhost"
	"focusgate/internal/host"
	"focusgate/internal/logging"
)

var version = "dev"

var (
	configPath = flag.String("config", "", "path to config file (default: search standard locations)")
	listMenu   = flag.Bool("list", false, "draw the title menu as a self-drawn list instead of buttons")
	httpAddr   = flag.String("http", "", "serve /metrics, /healthz and /readyz on this address")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "focusgate-demo: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	path := *configPath
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		path = config.ConfigPath()
	}

	loader := config.NewLoader(path)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	defer loader.Close()

	lc, err := host.LoggingConfig(cfg.Logging)
	if err != nil {
		return err
	}
	logger, err := logging.New(lc)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logger.Close()
	logging.SetDefault(logger)

	bindings, err := ebitenhost.NewBindings(cfg.Bindings)
	if err != nil {
		return fmt.Errorf("bindings: %w", err)
	}
	src := ebitenhost.NewSource(ebitenhost.Live(), bindings, logger.Logger)

	rt, err := host.New(cfg, host.Deps{
		EngineFocused: src.EngineFocused,
		Input:         src,
		Flusher:       src,
		Logger:        logger,
		Version:       version,
		CrashDir:      logging.DefaultCrashDir(),
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.WatchConfig(loader)
	if _, statErr := os.Stat(path); statErr == nil {
		if err := loader.Watch(); err != nil {
			logger.Warn("config hot reload disabled", "path", path, "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Start(ctx); err != nil {
		return err
	}

	var srv *diagServer
	if *httpAddr != "" {
		srv = newDiagServer(*httpAddr, rt, path, logger.WithComponent("http"))
		srv.Start()
		defer srv.Shutdown()
	}

	g := newGame(ctx, rt, src, *listMenu)
	g.Load()
	if srv != nil {
		srv.SetReady(true)
	}

	ebiten.SetWindowTitle("focusgate demo")
	ebiten.SetWindowSize(480, 320)
	ebiten.SetRunnableOnUnfocused(true)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return fmt.Errorf("ebiten: %w", err)
	}
	return nil
}
