package validation_test

import (
	"testing"
	"time"

	"github.com/poltergeist/callcenter/pkg/types"
	"github.com/poltergeist/callcenter/pkg/validation"
)

func TestValidateConfiguration(t *testing.T) {
	tests := []struct {
		name         string
		mutate       func(c *types.Config)
		wantValid    bool
		wantField    string
		wantWarnings int
	}{
		{name: "defaults", mutate: func(c *types.Config) {}, wantValid: true},
		{name: "no agents", mutate: func(c *types.Config) { c.Agents = 0 }, wantField: "agents"},
		{name: "too many agents warns", mutate: func(c *types.Config) { c.Agents = 12 }, wantValid: true, wantWarnings: 1},
		{name: "duration ceiling", mutate: func(c *types.Config) { c.MaxCallDuration = types.MaxCallDurationCeiling }, wantValid: true},
		{name: "duration over ceiling", mutate: func(c *types.Config) { c.MaxCallDuration = types.MaxCallDurationCeiling + 1 }, wantField: "max_call_duration"},
		{name: "negative time unit", mutate: func(c *types.Config) { c.TimeUnit = -time.Second }, wantField: "time_unit"},
		{name: "empty log level", mutate: func(c *types.Config) { c.LogLevel = "" }, wantValid: true},
		{name: "unknown log level", mutate: func(c *types.Config) { c.LogLevel = "trace" }, wantField: "log_level"},
		{name: "sqlite backend", mutate: func(c *types.Config) { c.Ledger.Backend = types.LedgerBackendSQLite }, wantValid: true},
		{name: "unknown backend", mutate: func(c *types.Config) { c.Ledger.Backend = "s3" }, wantField: "ledger.backend"},
		{name: "missing path", mutate: func(c *types.Config) { c.Ledger.Path = "" }, wantField: "ledger.path"},
		{name: "negative autosave", mutate: func(c *types.Config) { c.Ledger.AutosaveInterval = -time.Minute }, wantField: "ledger.autosave_interval"},
		{name: "negative threshold", mutate: func(c *types.Config) { c.Notifications.BacklogThreshold = -1 }, wantField: "notifications.backlog_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := types.DefaultConfig()
			tt.mutate(cfg)

			result := validation.ValidateConfiguration(cfg)
			if result.Valid != tt.wantValid {
				t.Fatalf("expected valid=%v, got %v (%+v)", tt.wantValid, result.Valid, result.Errors)
			}
			if got := len(result.Warnings()); got != tt.wantWarnings {
				t.Errorf("expected %d warnings, got %d", tt.wantWarnings, got)
			}
			if tt.wantField == "" {
				return
			}

			err := result.Err()
			ve, ok := err.(*validation.ValidationError)
			if !ok {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("expected field %s, got %s", tt.wantField, ve.Field)
			}
		})
	}
}
