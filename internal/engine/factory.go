package engine

import (
	"errors"

	"github.com/poltergeist/callcenter/pkg/ledger"
	"github.com/poltergeist/callcenter/pkg/logger"
	"github.com/poltergeist/callcenter/pkg/metrics"
	"github.com/poltergeist/callcenter/pkg/notifier"
	"github.com/poltergeist/callcenter/pkg/types"
)

// DependencyFactory builds a dispatcher and its collaborators from a loaded configuration.
// Constructors never fall back to concrete implementations on their own; this is where
// the defaults are chosen.
type DependencyFactory struct {
	logger logger.Logger
	config *types.Config
}

// NewDependencyFactory creates a new dependency factory
func NewDependencyFactory(cfg *types.Config, log logger.Logger) *DependencyFactory {
	if cfg == nil {
		cfg = types.DefaultConfig()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &DependencyFactory{
		logger: log,
		config: cfg,
	}
}

// Runtime is a dispatcher wired to concrete collaborators that callers may need directly
type Runtime struct {
	Dispatcher *Dispatcher
	Store      ledger.Store
	Metrics    *metrics.Metrics
	Notifier   *notifier.Notifier
}

// Build creates the metrics registry, the notifier, the ledger store and the dispatcher
func (f *DependencyFactory) Build() (*Runtime, error) {
	m := f.createMetrics()
	n := f.createNotifier()

	store, err := f.createStore()
	if err != nil {
		return nil, err
	}

	d, err := NewDispatcher(OptionsFromConfig(f.config), f.logger, Dependencies{
		Notifier: n,
		Recorder: m,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Runtime{
		Dispatcher: d,
		Store:      store,
		Metrics:    m,
		Notifier:   n,
	}, nil
}

// CreateDefaults returns the default notifier and recorder as engine dependencies
func (f *DependencyFactory) CreateDefaults() Dependencies {
	return Dependencies{
		Notifier: f.createNotifier(),
		Recorder: f.createMetrics(),
	}
}

// CreateWithOverrides creates dependencies with specific overrides.
// Non-nil overrides replace the defaults.
func (f *DependencyFactory) CreateWithOverrides(overrides Dependencies) Dependencies {
	deps := f.CreateDefaults()

	if overrides.Notifier != nil {
		deps.Notifier = overrides.Notifier
	}
	if overrides.Recorder != nil {
		deps.Recorder = overrides.Recorder
	}

	return deps
}

// Close stops the workers and releases the store
func (r *Runtime) Close() error {
	return errors.Join(r.Dispatcher.Stop(), r.Store.Close())
}

func (f *DependencyFactory) createMetrics() *metrics.Metrics {
	return metrics.New()
}

func (f *DependencyFactory) createNotifier() *notifier.Notifier {
	return notifier.New(notifier.Config{
		Enabled: f.config.Notifications.Enabled,
		Sound:   true,
	}, f.logger)
}

func (f *DependencyFactory) createStore() (ledger.Store, error) {
	return ledger.NewStore(f.config.Ledger, f.logger)
}
