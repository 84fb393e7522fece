package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/poltergeist/callcenter/pkg/config"
	"github.com/poltergeist/callcenter/pkg/types"
)

func (c *CLI) newInitCmd() *cobra.Command {
	var force bool
	var backend string
	var agents int

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write callcenter.yaml (or the --config path) with the default settings,
ready to edit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInit(force, types.LedgerBackend(backend), agents)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing configuration")
	cmd.Flags().StringVar(&backend, "backend", string(types.LedgerBackendFile), "ledger backend (file, sqlite)")
	cmd.Flags().IntVarP(&agents, "agents", "a", types.DefaultConfig().Agents, "number of agents")

	return cmd
}

func (c *CLI) runInit(force bool, backend types.LedgerBackend, agents int) error {
	path := c.config.ConfigFile
	if path == "" {
		path = config.DefaultConfigFile
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration already exists at %s. Use --force to overwrite", path)
	}

	mgr := config.NewManager(c.logger)
	cfg := mgr.GetDefaultConfig()
	cfg.Agents = agents
	cfg.Ledger.Backend = backend
	if backend == types.LedgerBackendSQLite {
		cfg.Ledger.Path = "call_center.db"
	}
	if c.config.StorePath != "" {
		cfg.Ledger.Path = c.config.StorePath
	}

	if err := mgr.Normalize(cfg); err != nil {
		return err
	}
	if err := mgr.SaveConfig(path, cfg); err != nil {
		return err
	}

	c.console.Success(fmt.Sprintf("Created configuration at %s", path))
	return nil
}
