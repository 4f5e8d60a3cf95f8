package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const minimalYAML = `
telegram:
  token: "12345:tok"
sheets:
  credentials_file: /etc/deskbot/sa.json
  spreadsheet_id: sheet-key
superadmin: 100500
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Load("testdata/valid_full.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Telegram.Token != "12345:telegram-token" {
		t.Errorf("Telegram.Token = %q", cfg.Telegram.Token)
	}
	if cfg.Discord.Token != "discord-token" {
		t.Errorf("Discord.Token = %q", cfg.Discord.Token)
	}
	if cfg.Sheets.SpreadsheetID != "1aBcD-spreadsheet" {
		t.Errorf("Sheets.SpreadsheetID = %q", cfg.Sheets.SpreadsheetID)
	}
	if cfg.DB.Driver != "mysql" {
		t.Errorf("DB.Driver = %q, want mysql", cfg.DB.Driver)
	}
	if cfg.DB.Host != "10.0.0.5" || cfg.DB.Port != 3307 {
		t.Errorf("DB = %+v", cfg.DB)
	}
	if cfg.Slack.Channel != "#tech-support-ops" {
		t.Errorf("Slack.Channel = %q", cfg.Slack.Channel)
	}
	if cfg.Dashboard.Addr != ":9090" {
		t.Errorf("Dashboard.Addr = %q", cfg.Dashboard.Addr)
	}
	if cfg.Digest.Schedule != "30 8 * * 1-5" {
		t.Errorf("Digest.Schedule = %q", cfg.Digest.Schedule)
	}
	if cfg.SuperAdmin != 100500 {
		t.Errorf("SuperAdmin = %d, want 100500", cfg.SuperAdmin)
	}
}

func TestParse_MinimalConfig_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Sheets.TasksSheet != "Tasks" {
		t.Errorf("TasksSheet = %q, want %q (default)", cfg.Sheets.TasksSheet, "Tasks")
	}
	if cfg.Sheets.UsersSheet != "Users" {
		t.Errorf("UsersSheet = %q, want %q (default)", cfg.Sheets.UsersSheet, "Users")
	}
	if cfg.DB.Driver != "sqlite" {
		t.Errorf("DB.Driver = %q, want sqlite (default)", cfg.DB.Driver)
	}
	if cfg.DB.Path != "deskbot.db" {
		t.Errorf("DB.Path = %q, want deskbot.db (default)", cfg.DB.Path)
	}
	if cfg.Dashboard.Addr != ":8090" {
		t.Errorf("Dashboard.Addr = %q, want :8090 (default)", cfg.Dashboard.Addr)
	}
	if cfg.Digest.Schedule != "0 9 * * 1-5" {
		t.Errorf("Digest.Schedule = %q, want default", cfg.Digest.Schedule)
	}
}

func TestParse_MysqlDefaults(t *testing.T) {
	yaml := minimalYAML + `
db:
  driver: mysql
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DB.Host != "127.0.0.1" {
		t.Errorf("DB.Host = %q, want %q (default)", cfg.DB.Host, "127.0.0.1")
	}
	if cfg.DB.Port != 3306 {
		t.Errorf("DB.Port = %d, want 3306 (default)", cfg.DB.Port)
	}
	if cfg.DB.Database != "deskbot_audit" {
		t.Errorf("DB.Database = %q, want deskbot_audit (default)", cfg.DB.Database)
	}
}

func TestParse_MissingTelegramToken(t *testing.T) {
	yaml := `
sheets:
  credentials_file: /etc/deskbot/sa.json
  spreadsheet_id: sheet-key
superadmin: 100500
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for missing telegram token")
	}
	if !strings.Contains(err.Error(), "telegram.token is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "telegram.token is required")
	}
}

func TestParse_MissingSuperAdmin(t *testing.T) {
	yaml := `
telegram:
  token: "12345:tok"
sheets:
  credentials_file: /etc/deskbot/sa.json
  spreadsheet_id: sheet-key
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for missing superadmin")
	}
	if !strings.Contains(err.Error(), "superadmin is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "superadmin is required")
	}
}

func TestParse_SlackTokenWithoutChannel(t *testing.T) {
	yaml := minimalYAML + `
slack:
  token: xoxb-tok
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for slack token without channel")
	}
	if !strings.Contains(err.Error(), "slack.channel is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "slack.channel is required")
	}
}

func TestParse_UnknownDBDriver(t *testing.T) {
	yaml := minimalYAML + `
db:
  driver: postgres
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for unknown db driver")
	}
	if !strings.Contains(err.Error(), `db.driver "postgres" is not supported`) {
		t.Errorf("error = %q", err.Error())
	}
}

func TestParse_MultipleValidationErrors(t *testing.T) {
	_, err := Parse([]byte(`discord: {token: x}`))
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{
		"telegram.token is required",
		"sheets.credentials_file is required",
		"sheets.spreadsheet_id is required",
		"superadmin is required",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error missing %q: %s", want, msg)
		}
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte(":::invalid"))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "config: parse:") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: parse:")
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SuperAdmin != 100500 {
		t.Errorf("SuperAdmin = %d, want 100500", cfg.SuperAdmin)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: read")
	}
}

func TestLoad_MinimalFixture(t *testing.T) {
	cfg, err := Load("testdata/valid_minimal.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Telegram.Token != "12345:telegram-token" {
		t.Errorf("Telegram.Token = %q", cfg.Telegram.Token)
	}
	if cfg.Sheets.CartridgesSheet != "Cartridges" {
		t.Errorf("CartridgesSheet = %q, want default", cfg.Sheets.CartridgesSheet)
	}
}

func TestLoad_InvalidYAMLFixture(t *testing.T) {
	_, err := Load("testdata/invalid.yaml")
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "config: parse:") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config: parse:")
	}
}
