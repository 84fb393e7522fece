package types

import "time"

// LedgerBackend selects the persistence implementation
type LedgerBackend string

const (
	LedgerBackendFile   LedgerBackend = "file"
	LedgerBackendSQLite LedgerBackend = "sqlite"
)

// LogLevel represents logging verbosity levels
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config is the complete call center configuration
type Config struct {
	Agents          int                 `json:"agents" yaml:"agents" mapstructure:"agents"`
	MaxCallDuration int                 `json:"max_call_duration" yaml:"max_call_duration" mapstructure:"max_call_duration"`
	TimeUnit        time.Duration       `json:"time_unit" yaml:"time_unit" mapstructure:"time_unit"`
	LogLevel        LogLevel            `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	LogFile         string              `json:"log_file,omitempty" yaml:"log_file,omitempty" mapstructure:"log_file"`
	Ledger          LedgerConfig        `json:"ledger" yaml:"ledger" mapstructure:"ledger"`
	Notifications   NotificationsConfig `json:"notifications" yaml:"notifications" mapstructure:"notifications"`
}

// LedgerConfig configures state persistence
type LedgerConfig struct {
	Backend          LedgerBackend `json:"backend" yaml:"backend" mapstructure:"backend"`
	Path             string        `json:"path" yaml:"path" mapstructure:"path"`
	AutosaveInterval time.Duration `json:"autosave_interval,omitempty" yaml:"autosave_interval,omitempty" mapstructure:"autosave_interval"`
}

// NotificationsConfig configures desktop notifications
type NotificationsConfig struct {
	Enabled          bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	BacklogThreshold int  `json:"backlog_threshold" yaml:"backlog_threshold" mapstructure:"backlog_threshold"`
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	return &Config{
		Agents:          3,
		MaxCallDuration: DefaultMaxCallDuration,
		TimeUnit:        time.Second,
		LogLevel:        LogLevelInfo,
		Ledger: LedgerConfig{
			Backend: LedgerBackendFile,
			Path:    DefaultStorePath,
		},
		Notifications: NotificationsConfig{
			Enabled:          false,
			BacklogThreshold: 5,
		},
	}
}
