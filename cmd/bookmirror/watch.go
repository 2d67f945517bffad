package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/bookmirror/bookmirror/internal/config"
	"github.com/bookmirror/bookmirror/internal/daemon"
	"github.com/bookmirror/bookmirror/internal/dashboard"
	"github.com/bookmirror/bookmirror/internal/sync"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: "sync",
	Short:   "Keep the directory in sync until interrupted",
	Long: `Watch places.sqlite and run a pass whenever it changes.

The first Ctrl+C lets a running pass finish and then exits. A second Ctrl+C
exits immediately.

With --dashboard-port (or dashboard_port in the config) a WebSocket
dashboard streams every detected change and item outcome:
  ws://localhost:<port>/ws`,
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("dashboard-port") {
			cfg.DashboardPort, _ = cmd.Flags().GetInt("dashboard-port")
		}

		if err := runWatch(cfg); err != nil {
			fail("%v", err)
		}
		fmt.Println("Stopped")
	},
}

// runWatch runs the daemon until interrupted. Errors are returned rather
// than reported so the dashboard and log file are closed first.
func runWatch(c *config.Config) error {
	a, err := newApp(c, true)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.out.Logger("daemon")
	logger.Printf("Using %s", a.dbPath)
	logger.Printf("Mirroring '%s' into %s", c.Folder, c.OutputDir)

	var (
		itemNotifier   sync.Notifier
		changeNotifier daemon.ChangeNotifier
	)
	if c.DashboardPort > 0 {
		server := dashboard.NewServer(&dashboard.Config{
			Port:   c.DashboardPort,
			Logger: a.out.Logger("dashboard"),
		})
		handler := dashboard.NewHandler(server, a.out.Logger("dashboard"))
		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start dashboard: %w", err)
		}
		defer server.Stop()

		itemNotifier, changeNotifier = handler, handler
	}

	s, err := a.syncer(itemNotifier)
	if err != nil {
		return err
	}

	detector, err := daemon.NewDetector(afero.NewOsFs(), a.dbPath)
	if err != nil {
		return err
	}

	d, err := daemon.New(s, detector, a.source, &daemon.Config{
		Folder:            c.Folder,
		PollInterval:      c.PollInterval,
		ReconcileOnStart:  c.ReconcileOnStart,
		ReconcileInterval: c.ReconcileInterval,
		FastPath:          c.FastPath,
		WatchFS:           c.WatchFS,
		Logger:            logger,
		Notifier:          changeNotifier,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		// Restore default handling so a second interrupt kills the process.
		stop()
	}()

	return d.Run(ctx)
}

func init() {
	watchCmd.Flags().IntP("dashboard-port", "p", 0, "Serve a live dashboard on this port (0 = off)")
	rootCmd.AddCommand(watchCmd)
}
