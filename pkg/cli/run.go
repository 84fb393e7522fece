package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/poltergeist/callcenter/internal/engine"
	"github.com/poltergeist/callcenter/pkg/config"
	pcontext "github.com/poltergeist/callcenter/pkg/context"
	"github.com/poltergeist/callcenter/pkg/logger"
	"github.com/poltergeist/callcenter/pkg/notifier"
	"github.com/poltergeist/callcenter/pkg/process"
	"github.com/poltergeist/callcenter/pkg/types"
)

func (c *CLI) newRunCmd() *cobra.Command {
	var agents int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the interactive call center console",
		Long: `Start the agent pool and the numbered menu. Saved state is loaded on
startup and written back on exit, on SIGINT/SIGTERM, and on the autosave interval
when one is configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConsole(cmd.Context(), agents, cmd.Flags().Changed("agents"))
		},
	}

	cmd.Flags().IntVarP(&agents, "agents", "a", 0, fmt.Sprintf("number of agents (max %d, default from config)", types.MaxAgentCount))

	return cmd
}

// runConsole wires the dispatcher to its collaborators and blocks in the menu.
// agents overrides the configured pool size when override is set.
func (c *CLI) runConsole(ctx context.Context, agents int, override bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(pcontext.EnrichContext(ctx, "console"))
	defer cancel()

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	requested := cfg.Agents
	if override {
		requested = agents
	}
	count, clamped, err := engine.ClampAgentCount(requested)
	if err != nil {
		return err
	}
	if clamped {
		c.console.Warn(fmt.Sprintf("Requested %d agents; using the maximum of %d", requested, count))
	}
	cfg.Agents = count

	rt, err := engine.NewDependencyFactory(cfg, c.logger).Build()
	if err != nil {
		return err
	}
	defer rt.Close()
	d := rt.Dispatcher

	found, err := engine.LoadState(ctx, d, rt.Store)
	if err != nil {
		return fmt.Errorf("failed to load saved state from %s: %w", cfg.Ledger.Path, err)
	}
	if found {
		c.console.Success("Data loaded successfully!")
	} else {
		c.console.Info("No previous data found")
	}

	if err := d.Start(ctx); err != nil {
		return err
	}

	con := newConsole(ctx, c, d, rt.Store, rt.Metrics)

	pm := process.NewManager(c.logger)
	// handlers run in reverse order: save first, then stop the workers
	pm.RegisterShutdownHandler(func() {
		if err := d.Stop(); err != nil {
			c.logger.Error("Worker shutdown failed", logger.WithField("error", err))
		}
	})
	pm.RegisterShutdownHandler(func() {
		con.save()
	})
	pm.SetAutosave(cfg.Ledger.AutosaveInterval, con.autosave)
	pm.Start(ctx)
	defer pm.Stop()
	con.shutdown = pm.Done()

	if c.configUsed != "" {
		rm := config.NewReloadManager(c.configUsed, c.logger)
		rm.AddCallback(c.applyReload(cfg, d, rt.Notifier))
		if err := rm.StartWatching(ctx); err != nil {
			c.logger.Warn("Config hot reload disabled", logger.WithField("error", err))
		} else {
			defer rm.StopWatching()
		}
	}

	exitSave := con.loop()

	// the signal path saves through the shutdown handlers; stop them before the exit save
	pm.Stop()
	if exitSave {
		con.save()
	}
	if err := d.Stop(); err != nil {
		return fmt.Errorf("failed to stop agents: %w", err)
	}
	return nil
}

// applyReload returns the hot-reload callback. Pool size and ledger changes need a restart.
func (c *CLI) applyReload(current *types.Config, d *engine.Dispatcher, n *notifier.Notifier) config.ReloadCallback {
	return func(next *types.Config, err error) {
		if err != nil {
			c.logger.Warn("Keeping previous configuration", logger.WithField("error", err))
			return
		}

		if next.Agents != current.Agents {
			c.logger.Warn("Agent count change ignored until restart",
				logger.WithField("running", current.Agents),
				logger.WithField("configured", next.Agents))
		}
		if next.Ledger != current.Ledger {
			c.logger.Warn("Ledger change ignored until restart")
		}

		logger.SetLevel(c.logger, string(next.LogLevel))
		if err := d.SetMaxCallDuration(next.MaxCallDuration); err != nil {
			c.logger.Warn("Max call duration not applied", logger.WithField("error", err))
		}
		n.SetEnabled(next.Notifications.Enabled)
		threshold := 0
		if next.Notifications.Enabled {
			threshold = next.Notifications.BacklogThreshold
		}
		d.SetBacklogThreshold(threshold)

		c.logger.Info("Applied configuration changes",
			logger.WithField("log_level", string(next.LogLevel)),
			logger.WithField("max_call_duration", next.MaxCallDuration),
			logger.WithField("notifications", next.Notifications.Enabled))
	}
}
