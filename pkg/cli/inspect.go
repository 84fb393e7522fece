package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/poltergeist/callcenter/pkg/ledger"
)

func (c *CLI) newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Show the saved queue and agent statistics",
		Long:  `Read the ledger and print its queue and agent tables without starting any agents.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context())
		},
	}
}

func (c *CLI) runInspect(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	store, err := ledger.NewStore(cfg.Ledger, c.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	snapshot, found, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cfg.Ledger.Path, err)
	}
	if !found {
		c.console.Info("No previous data found")
		return nil
	}

	c.console.Info(fmt.Sprintf("Ledger %s (%s), next call ID %d", cfg.Ledger.Path, cfg.Ledger.Backend, snapshot.NextID))
	renderQueue(c.output, callSnapshots(snapshot.Calls))
	renderAgents(c.output, agentSnapshots(snapshot.Agents))
	return nil
}
