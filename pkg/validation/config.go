package validation

import (
	"fmt"

	"github.com/poltergeist/callcenter/pkg/types"
)

// ValidateConfiguration validates an entire configuration.
// An agent count above the hard cap is a warning: the dispatcher clamps it.
func ValidateConfiguration(cfg *types.Config) *ValidationResult {
	result := &ValidationResult{Valid: true}

	switch {
	case cfg.Agents < 1:
		result.AddError("config", "agents", "at least one agent is required", ValidationLevelError)
	case cfg.Agents > types.MaxAgentCount:
		result.AddError("config", "agents",
			fmt.Sprintf("%d agents requested, clamping to %d", cfg.Agents, types.MaxAgentCount),
			ValidationLevelWarning)
	}

	if cfg.MaxCallDuration < 1 || cfg.MaxCallDuration > types.MaxCallDurationCeiling {
		result.AddError("config", "max_call_duration",
			fmt.Sprintf("must be within 1..%d seconds", types.MaxCallDurationCeiling),
			ValidationLevelError)
	}

	if cfg.TimeUnit <= 0 {
		result.AddError("config", "time_unit", "must be positive", ValidationLevelError)
	}

	switch cfg.LogLevel {
	case types.LogLevelDebug, types.LogLevelInfo, types.LogLevelWarn, types.LogLevelError, "":
	default:
		result.AddError("config", "log_level", fmt.Sprintf("unknown level %q", cfg.LogLevel), ValidationLevelError)
	}

	switch cfg.Ledger.Backend {
	case types.LedgerBackendFile, types.LedgerBackendSQLite:
	default:
		result.AddError("config", "ledger.backend", fmt.Sprintf("unknown backend %q", cfg.Ledger.Backend), ValidationLevelError)
	}
	if cfg.Ledger.Path == "" {
		result.AddError("config", "ledger.path", "store path is required", ValidationLevelError)
	}
	if cfg.Ledger.AutosaveInterval < 0 {
		result.AddError("config", "ledger.autosave_interval", "must not be negative", ValidationLevelError)
	}

	if cfg.Notifications.BacklogThreshold < 0 {
		result.AddError("config", "notifications.backlog_threshold", "must not be negative", ValidationLevelError)
	}

	return result
}
