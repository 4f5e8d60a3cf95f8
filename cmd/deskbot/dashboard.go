package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/akimovd/deskbot/internal/config"
	"github.com/akimovd/deskbot/internal/dashboard"
	"github.com/akimovd/deskbot/internal/db"
)

func newDashboardCmd() *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Start the read-only audit dashboard",
		Long:  "Serves the audit database over HTTP without starting the bot.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, configPath, addr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to deskbot config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func runDashboard(cmd *cobra.Command, configPath, addr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Dashboard.Addr
	}

	gormDB, err := db.Connect(cfg.DB.Driver, cfg.DB.Path, cfg.DB.User, cfg.DB.Host, cfg.DB.Port, cfg.DB.Database)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	return dashboard.Start(ctx, dashboard.StartOpts{
		DB:   gormDB,
		Addr: addr,
		Out:  cmd.OutOrStdout(),
	})
}
