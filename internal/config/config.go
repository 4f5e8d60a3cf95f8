// Package config provides YAML-based configuration loading for deskbot.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level deskbot configuration, loaded from config.yaml.
type Config struct {
	Telegram   TelegramConfig  `yaml:"telegram"`
	Discord    DiscordConfig   `yaml:"discord"`
	Sheets     SheetsConfig    `yaml:"sheets"`
	DB         DBConfig        `yaml:"db"`
	Slack      SlackConfig     `yaml:"slack"`
	Dashboard  DashboardConfig `yaml:"dashboard"`
	Digest     DigestConfig    `yaml:"digest"`
	SuperAdmin int64           `yaml:"superadmin"`
}

// TelegramConfig holds the primary chat platform settings.
type TelegramConfig struct {
	Token string `yaml:"token"`
}

// DiscordConfig holds the optional secondary chat platform settings. With
// an empty token the Discord adapter is not started.
type DiscordConfig struct {
	Token string `yaml:"token"`
}

// SheetsConfig points at the spreadsheet that is the source of truth.
type SheetsConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	TasksSheet      string `yaml:"tasks_sheet"`
	UsersSheet      string `yaml:"users_sheet"`
	DevicesSheet    string `yaml:"devices_sheet"`
	CartridgesSheet string `yaml:"cartridges_sheet"`
}

// DBConfig holds connection settings for the local audit database.
type DBConfig struct {
	Driver   string `yaml:"driver"` // sqlite or mysql
	Path     string `yaml:"path"`   // sqlite only
	User     string `yaml:"user"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
}

// SlackConfig holds the optional operator-channel reporter settings.
type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// DashboardConfig holds the read-only HTTP dashboard settings.
type DashboardConfig struct {
	Addr string `yaml:"addr"`
}

// DigestConfig schedules the daily open-task digest.
type DigestConfig struct {
	Schedule string `yaml:"schedule"` // cron expression
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Sheets.TasksSheet == "" {
		c.Sheets.TasksSheet = "Tasks"
	}
	if c.Sheets.UsersSheet == "" {
		c.Sheets.UsersSheet = "Users"
	}
	if c.Sheets.DevicesSheet == "" {
		c.Sheets.DevicesSheet = "Devices"
	}
	if c.Sheets.CartridgesSheet == "" {
		c.Sheets.CartridgesSheet = "Cartridges"
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "sqlite"
	}
	if c.DB.Driver == "sqlite" && c.DB.Path == "" {
		c.DB.Path = "deskbot.db"
	}
	if c.DB.Driver == "mysql" {
		if c.DB.User == "" {
			c.DB.User = "deskbot"
		}
		if c.DB.Host == "" {
			c.DB.Host = "127.0.0.1"
		}
		if c.DB.Port == 0 {
			c.DB.Port = 3306
		}
		if c.DB.Database == "" {
			c.DB.Database = "deskbot_audit"
		}
	}
	if c.Dashboard.Addr == "" {
		c.Dashboard.Addr = ":8090"
	}
	if c.Digest.Schedule == "" {
		c.Digest.Schedule = "0 9 * * 1-5"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Telegram.Token == "" {
		errs = append(errs, "telegram.token is required")
	}
	if c.Sheets.CredentialsFile == "" {
		errs = append(errs, "sheets.credentials_file is required")
	}
	if c.Sheets.SpreadsheetID == "" {
		errs = append(errs, "sheets.spreadsheet_id is required")
	}
	if c.SuperAdmin == 0 {
		errs = append(errs, "superadmin is required")
	}
	if c.Slack.Token != "" && c.Slack.Channel == "" {
		errs = append(errs, "slack.channel is required when slack.token is set")
	}
	switch c.DB.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("db.driver %q is not supported", c.DB.Driver))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
