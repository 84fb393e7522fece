package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poltergeist/callcenter/pkg/config"
	"github.com/poltergeist/callcenter/pkg/types"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeConfig(t, "callcenter.yaml", `
agents: 4
max_call_duration: 120
time_unit: 250ms
log_level: debug
ledger:
  backend: sqlite
  path: calls.db
  autosave_interval: 30s
notifications:
  enabled: true
  backlog_threshold: 8
`)

	cfg, err := config.NewManager(nil).LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Agents != 4 {
		t.Errorf("expected 4 agents, got %d", cfg.Agents)
	}
	if cfg.MaxCallDuration != 120 {
		t.Errorf("expected max duration 120, got %d", cfg.MaxCallDuration)
	}
	if cfg.TimeUnit != 250*time.Millisecond {
		t.Errorf("expected time unit 250ms, got %v", cfg.TimeUnit)
	}
	if cfg.LogLevel != types.LogLevelDebug {
		t.Errorf("expected debug level, got %s", cfg.LogLevel)
	}
	if cfg.Ledger.Backend != types.LedgerBackendSQLite || cfg.Ledger.Path != "calls.db" {
		t.Errorf("unexpected ledger config: %+v", cfg.Ledger)
	}
	if cfg.Ledger.AutosaveInterval != 30*time.Second {
		t.Errorf("expected autosave 30s, got %v", cfg.Ledger.AutosaveInterval)
	}
	if !cfg.Notifications.Enabled || cfg.Notifications.BacklogThreshold != 8 {
		t.Errorf("unexpected notifications config: %+v", cfg.Notifications)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	path := writeConfig(t, "callcenter.json", `{
  "agents": 2,
  "max_call_duration": 60,
  "ledger": {"backend": "file", "path": "state.dat"}
}`)

	cfg, err := config.NewManager(nil).LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Agents != 2 || cfg.MaxCallDuration != 60 {
		t.Errorf("unexpected values: agents=%d max=%d", cfg.Agents, cfg.MaxCallDuration)
	}
	if cfg.Ledger.Path != "state.dat" {
		t.Errorf("expected ledger path state.dat, got %s", cfg.Ledger.Path)
	}
	// unset keys keep their defaults
	if cfg.TimeUnit != time.Second {
		t.Errorf("expected default time unit, got %v", cfg.TimeUnit)
	}
	if cfg.LogLevel != types.LogLevelInfo {
		t.Errorf("expected default log level, got %s", cfg.LogLevel)
	}
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, "callcenter.yaml", "")

	cfg, err := config.NewManager(nil).LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	def := types.DefaultConfig()
	if cfg.Agents != def.Agents || cfg.MaxCallDuration != def.MaxCallDuration || cfg.Ledger != def.Ledger {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfig_UnknownKey(t *testing.T) {
	path := writeConfig(t, "callcenter.yaml", "agents: 3\nagnets: 4\n")

	_, err := config.NewManager(nil).LoadConfig(path)
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if !errors.Is(err, types.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	_, err := config.NewManager(nil).LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestLoadConfig_ClampsAgents(t *testing.T) {
	path := writeConfig(t, "callcenter.yaml", "agents: 9\n")

	cfg, err := config.NewManager(nil).LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Agents != types.MaxAgentCount {
		t.Errorf("expected agents clamped to %d, got %d", types.MaxAgentCount, cfg.Agents)
	}
}

func TestParse_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero agents", "agents: 0\n"},
		{"negative agents", "agents: -2\n"},
		{"duration too long", "max_call_duration: 3601\n"},
		{"duration zero", "max_call_duration: 0\n"},
		{"zero time unit", "time_unit: 0s\n"},
		{"bad log level", "log_level: loud\n"},
		{"bad backend", "ledger:\n  backend: floppy\n"},
		{"empty path", "ledger:\n  path: \"\"\n"},
		{"negative threshold", "notifications:\n  backlog_threshold: -1\n"},
		{"malformed yaml", "agents: [3\n"},
	}

	m := config.NewManager(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, types.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestValidateConfig(t *testing.T) {
	m := config.NewManager(nil)

	if err := m.ValidateConfig(m.GetDefaultConfig()); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}

	cfg := m.GetDefaultConfig()
	cfg.MaxCallDuration = -5
	if err := m.ValidateConfig(cfg); !errors.Is(err, types.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if cfg.MaxCallDuration != -5 {
		t.Error("ValidateConfig must not modify the config")
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := config.NewManager(nil).GetDefaultConfig()

	if cfg.Agents != 3 {
		t.Errorf("expected 3 default agents, got %d", cfg.Agents)
	}
	if cfg.MaxCallDuration != types.DefaultMaxCallDuration {
		t.Errorf("expected default max duration %d, got %d", types.DefaultMaxCallDuration, cfg.MaxCallDuration)
	}
	if cfg.Ledger.Backend != types.LedgerBackendFile || cfg.Ledger.Path != types.DefaultStorePath {
		t.Errorf("unexpected default ledger: %+v", cfg.Ledger)
	}
	if cfg.Notifications.Enabled {
		t.Error("notifications should be off by default")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	m := config.NewManager(nil)
	path := filepath.Join(t.TempDir(), config.DefaultConfigFile)

	cfg := m.GetDefaultConfig()
	cfg.Agents = 5
	cfg.TimeUnit = 100 * time.Millisecond
	cfg.Ledger.AutosaveInterval = time.Minute
	cfg.Notifications.Enabled = true

	if err := m.SaveConfig(path, cfg); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := m.LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to reload saved config: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\nsaved  %+v\nloaded %+v", cfg, loaded)
	}
}

func TestMarshal_WritesDurationsAsStrings(t *testing.T) {
	data, err := config.Marshal(types.DefaultConfig())
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if want := "time_unit: 1s"; !strings.Contains(string(data), want) {
		t.Errorf("expected %q in output:\n%s", want, data)
	}
}
