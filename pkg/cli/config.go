package cli

// Config holds the global flag values shared by every command
type Config struct {
	ConfigFile string
	StorePath  string
	Verbosity  string
	Version    string
}

// NewConfig creates a new CLI configuration with defaults
func NewConfig() *Config {
	return &Config{
		Verbosity: "info",
	}
}
