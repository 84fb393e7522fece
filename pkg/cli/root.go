// Package cli provides the command-line interface for the call center console
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/poltergeist/callcenter/pkg/config"
	"github.com/poltergeist/callcenter/pkg/logger"
	"github.com/poltergeist/callcenter/pkg/types"
)

// EnvPrefix prefixes environment overrides, e.g. CALLCENTER_LEDGER_PATH
const EnvPrefix = "CALLCENTER"

// CLI encapsulates the command-line interface and keeps all state off globals
type CLI struct {
	config   *Config
	rootCmd  *cobra.Command
	logger   logger.Logger
	console  *logger.ConsoleLogger
	input    io.Reader
	output   io.Writer
	errorOut io.Writer

	// configUsed is the file the last loadConfig read, empty when running on defaults
	configUsed string
}

// NewCLI creates a new CLI instance with the given configuration
func NewCLI(cfg *Config) *CLI {
	if cfg == nil {
		cfg = NewConfig()
	}

	cli := &CLI{
		config:   cfg,
		input:    os.Stdin,
		output:   os.Stdout,
		errorOut: os.Stderr,
	}
	cli.console = logger.NewConsoleLogger(cli.output)

	cli.setupCommands()
	return cli
}

// NewCLIWithOutput creates a CLI with custom output writers (for testing)
func NewCLIWithOutput(cfg *Config, output, errorOut io.Writer) *CLI {
	cli := NewCLI(cfg)
	cli.output = output
	cli.errorOut = errorOut
	cli.console = logger.NewConsoleLogger(output)
	cli.rootCmd.SetOut(output)
	cli.rootCmd.SetErr(errorOut)
	return cli
}

// SetInput replaces stdin for the interactive console
func (c *CLI) SetInput(r io.Reader) {
	c.input = r
	c.rootCmd.SetIn(r)
}

// Execute runs the CLI with the given arguments
func (c *CLI) Execute(args []string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.Execute()
}

// ExecuteContext runs the CLI with context support
func (c *CLI) ExecuteContext(ctx context.Context, args []string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.ExecuteContext(ctx)
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "callcenter",
		Short: "Priority call dispatch simulation",
		Long: `callcenter simulates a call center: calls wait in a priority queue
(VIP, High, Medium, Low) and a fixed pool of agents works them one at a time.
Agents can be released mid-call, and the queue and agent statistics are saved
between runs.`,

		PersistentPreRunE: c.initializeLogger,
		SilenceUsage:      true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	c.setupFlags()

	c.rootCmd.Version = c.config.Version
	c.rootCmd.SetVersionTemplate("callcenter v{{.Version}}\n")

	c.rootCmd.AddCommand(c.newRunCmd())
	c.rootCmd.AddCommand(c.newInspectCmd())
	c.rootCmd.AddCommand(c.newInitCmd())
	c.rootCmd.AddCommand(c.newVersionCmd())
}

func (c *CLI) setupFlags() {
	flags := c.rootCmd.PersistentFlags()

	flags.StringVar(&c.config.ConfigFile, "config", "", "config file (default: ./callcenter.yaml if present)")
	flags.StringVar(&c.config.StorePath, "store", "", "ledger path, overrides ledger.path")
	flags.StringVarP(&c.config.Verbosity, "verbosity", "v", "info", "log level (debug, info, warn, error)")
}

func (c *CLI) initializeLogger(cmd *cobra.Command, args []string) error {
	c.logger = c.buildLogger("", c.config.Verbosity)
	return nil
}

// buildLogger writes to stderr with colors in normal use and plain text to a redirected error stream
func (c *CLI) buildLogger(logFile, level string) logger.Logger {
	if c.errorOut == os.Stderr {
		return logger.CreateLogger(logFile, level)
	}
	return logger.CreateLoggerWithOutput(logFile, level, c.errorOut)
}

// loadConfig layers the config file, CALLCENTER_* environment and flags over the defaults.
// It also swaps in a logger built from the loaded log settings.
func (c *CLI) loadConfig() (*types.Config, error) {
	v := viper.New()
	setDefaults(v, types.DefaultConfig())

	if c.config.ConfigFile != "" {
		v.SetConfigFile(c.config.ConfigFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(strings.TrimSuffix(config.DefaultConfigFile, ".yaml"))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	c.configUsed = ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if c.config.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: failed to read config: %w", types.ErrInvalidConfig, err)
		}
	} else {
		c.configUsed = v.ConfigFileUsed()
		c.logger.Debug("Using config file", logger.WithField("file", c.configUsed))
	}

	cfg := &types.Config{}
	if err := v.UnmarshalExact(cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidConfig, err)
	}

	if c.rootCmd.PersistentFlags().Changed("verbosity") {
		cfg.LogLevel = types.LogLevel(c.config.Verbosity)
	}
	if c.config.StorePath != "" {
		cfg.Ledger.Path = c.config.StorePath
	}

	if err := config.NewManager(c.logger).Normalize(cfg); err != nil {
		return nil, err
	}

	c.logger = c.buildLogger(cfg.LogFile, string(cfg.LogLevel))
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it during Unmarshal
func setDefaults(v *viper.Viper, def *types.Config) {
	v.SetDefault("agents", def.Agents)
	v.SetDefault("max_call_duration", def.MaxCallDuration)
	v.SetDefault("time_unit", def.TimeUnit)
	v.SetDefault("log_level", string(def.LogLevel))
	v.SetDefault("log_file", def.LogFile)
	v.SetDefault("ledger.backend", string(def.Ledger.Backend))
	v.SetDefault("ledger.path", def.Ledger.Path)
	v.SetDefault("ledger.autosave_interval", def.Ledger.AutosaveInterval)
	v.SetDefault("notifications.enabled", def.Notifications.Enabled)
	v.SetDefault("notifications.backlog_threshold", def.Notifications.BacklogThreshold)
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			version := c.config.Version
			if version == "" {
				version = "dev"
			}
			fmt.Fprintf(c.output, "callcenter v%s\n", version)
		},
	}
}

// ExecuteWithVersion builds a CLI for os.Args and runs it
func ExecuteWithVersion(version string) error {
	cfg := NewConfig()
	cfg.Version = version
	return NewCLI(cfg).Execute(os.Args[1:])
}
