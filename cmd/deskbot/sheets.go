package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/akimovd/deskbot/internal/config"
	"github.com/akimovd/deskbot/internal/directory"
	"github.com/akimovd/deskbot/internal/fleet"
	"github.com/akimovd/deskbot/internal/sheets"
	"github.com/akimovd/deskbot/internal/task"
)

func newSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Spreadsheet management commands",
	}

	cmd.AddCommand(newSheetsInitCmd())
	return cmd
}

func newSheetsInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write header rows to empty sheets",
		Long:  "Appends the expected header row to each configured sheet that is still empty.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSheetsInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to deskbot config file")
	return cmd
}

func runSheetsInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	stores, err := openSheets(ctx, cfg)
	if err != nil {
		return err
	}

	targets := []struct {
		name   string
		rows   sheets.RowStore
		header []string
	}{
		{cfg.Sheets.TasksSheet, stores.tasks, task.SheetHeader()},
		{cfg.Sheets.UsersSheet, stores.users, directory.UserSheetHeader()},
		{cfg.Sheets.DevicesSheet, stores.devices, fleet.DeviceSheetHeader()},
		{cfg.Sheets.CartridgesSheet, stores.cartridges, fleet.ChangeSheetHeader()},
	}

	for _, tgt := range targets {
		ids, err := tgt.rows.Column(ctx, 1)
		if err != nil {
			return fmt.Errorf("read %s: %w", tgt.name, err)
		}
		if len(ids) > 0 {
			fmt.Fprintf(out, "%s: already has data, skipped\n", tgt.name)
			continue
		}
		if err := tgt.rows.Append(ctx, tgt.header); err != nil {
			return fmt.Errorf("write %s header: %w", tgt.name, err)
		}
		fmt.Fprintf(out, "%s: header written\n", tgt.name)
	}
	return nil
}
