package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/akimovd/deskbot/internal/bot"
	"github.com/akimovd/deskbot/internal/chat"
	"github.com/akimovd/deskbot/internal/chat/discord"
	"github.com/akimovd/deskbot/internal/chat/telegram"
	"github.com/akimovd/deskbot/internal/config"
	"github.com/akimovd/deskbot/internal/dashboard"
	"github.com/akimovd/deskbot/internal/db"
	"github.com/akimovd/deskbot/internal/directory"
	"github.com/akimovd/deskbot/internal/fleet"
	"github.com/akimovd/deskbot/internal/oversight"
	"github.com/akimovd/deskbot/internal/sheets"
	"github.com/akimovd/deskbot/internal/task"
)

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bot daemon",
		Long:  "Connects to the chat platforms, the spreadsheet and the audit database, then serves until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to deskbot config file")
	return cmd
}

func runBot(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Loaded config from %s\n", configPath)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	stores, err := openSheets(ctx, cfg)
	if err != nil {
		return err
	}

	userStore, err := directory.NewStore(stores.users)
	if err != nil {
		return err
	}
	knownUsers, err := userStore.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	registry := directory.NewRegistry(knownUsers)
	fmt.Fprintf(out, "Loaded %d users\n", registry.Len())

	gormDB, err := db.Connect(cfg.DB.Driver, cfg.DB.Path, cfg.DB.User, cfg.DB.Host, cfg.DB.Port, cfg.DB.Database)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	recorder := db.NewRecorder(gormDB)

	repo, err := task.NewRepository(task.RepositoryOpts{
		Rows:     stores.tasks,
		Names:    registry,
		Recorder: recorder,
	})
	if err != nil {
		return err
	}

	fleetStore, err := fleet.NewStore(stores.devices, stores.cartridges)
	if err != nil {
		return err
	}
	inventory := fleet.NewInventory()
	devices, err := fleetStore.LoadDevices(ctx)
	if err != nil {
		return fmt.Errorf("load devices: %w", err)
	}
	inventory.Replace(devices)
	fmt.Fprintf(out, "Loaded %d devices\n", inventory.Len())

	reporter, err := buildReporter(cfg)
	if err != nil {
		return err
	}

	tg, err := telegram.New(telegram.AdapterOpts{Token: cfg.Telegram.Token})
	if err != nil {
		return err
	}

	primary, err := newBot(cfg, tg, "telegram", repo, registry, userStore, inventory, fleetStore, reporter, recorder)
	if err != nil {
		return err
	}
	if err := primary.StartDigest(ctx, cfg.Digest.Schedule); err != nil {
		return err
	}

	go func() {
		if err := dashboard.Start(ctx, dashboard.StartOpts{DB: gormDB, Addr: cfg.Dashboard.Addr, Out: out}); err != nil {
			reporter.ReportError(ctx, "dashboard", err)
		}
	}()

	if cfg.Discord.Token != "" {
		dc, err := discord.New(discord.AdapterOpts{BotToken: cfg.Discord.Token})
		if err != nil {
			return err
		}
		secondary, err := newBot(cfg, dc, "discord", repo, registry, userStore, inventory, fleetStore, reporter, recorder)
		if err != nil {
			return err
		}
		go func() {
			if err := secondary.Run(ctx); err != nil {
				reporter.ReportError(ctx, "discord", err)
			}
		}()
	}

	fmt.Fprintln(out, "Deskbot running.")
	return primary.Run(ctx)
}

func newBot(cfg *config.Config, adapter chat.Adapter, platform string, repo *task.Repository,
	registry *directory.Registry, userStore *directory.Store, inventory *fleet.Inventory,
	fleetStore *fleet.Store, reporter oversight.Reporter, recorder *db.Recorder) (*bot.Bot, error) {
	return bot.New(bot.Opts{
		Adapter:    adapter,
		Tasks:      repo,
		Users:      registry,
		UserStore:  userStore,
		Inventory:  inventory,
		FleetStore: fleetStore,
		Reporter:   reporter,
		Audit:      recorder,
		Platform:   platform,
		SuperAdmin: cfg.SuperAdmin,
	})
}

// buildReporter returns the log reporter, joined with Slack when a token is
// configured.
func buildReporter(cfg *config.Config) (oversight.Reporter, error) {
	if cfg.Slack.Token == "" {
		return oversight.LogReporter{}, nil
	}
	slack, err := oversight.NewSlack(oversight.SlackOpts{
		Token:   cfg.Slack.Token,
		Channel: cfg.Slack.Channel,
	})
	if err != nil {
		return nil, err
	}
	return oversight.Multi{oversight.LogReporter{}, slack}, nil
}

// sheetStores bundles the four RowStore clients of one spreadsheet.
type sheetStores struct {
	tasks      sheets.RowStore
	users      sheets.RowStore
	devices    sheets.RowStore
	cartridges sheets.RowStore
}

func openSheets(ctx context.Context, cfg *config.Config) (*sheetStores, error) {
	creds, err := os.ReadFile(cfg.Sheets.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	open := func(sheet string, width int) (sheets.RowStore, error) {
		return sheets.NewClient(ctx, sheets.ClientOpts{
			CredentialsJSON: creds,
			SpreadsheetID:   cfg.Sheets.SpreadsheetID,
			Sheet:           sheet,
			Width:           width,
		})
	}

	var s sheetStores
	if s.tasks, err = open(cfg.Sheets.TasksSheet, task.SheetWidth); err != nil {
		return nil, err
	}
	if s.users, err = open(cfg.Sheets.UsersSheet, len(directory.UserSheetHeader())); err != nil {
		return nil, err
	}
	if s.devices, err = open(cfg.Sheets.DevicesSheet, len(fleet.DeviceSheetHeader())); err != nil {
		return nil, err
	}
	if s.cartridges, err = open(cfg.Sheets.CartridgesSheet, len(fleet.ChangeSheetHeader())); err != nil {
		return nil, err
	}
	return &s, nil
}
