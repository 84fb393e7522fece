// Package process ties the console's lifetime to OS signals and runs periodic autosave
package process

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/poltergeist/callcenter/pkg/logger"
)

// Manager runs shutdown handlers on SIGINT/SIGTERM or context cancellation,
// and an optional autosave function on a fixed interval.
type Manager struct {
	logger           logger.Logger
	shutdownHandlers []func()
	autosaveFunc     func()
	autosaveInterval time.Duration
	signals          []os.Signal

	stop     chan struct{}
	done     chan struct{}
	shutdown sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewManager creates a new process manager
func NewManager(log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{
		logger:  log.WithComponent("process"),
		signals: []os.Signal{os.Interrupt, syscall.SIGTERM},
		done:    make(chan struct{}),
	}
}

// RegisterShutdownHandler adds a handler; handlers run in reverse registration order
func (m *Manager) RegisterShutdownHandler(handler func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownHandlers = append(m.shutdownHandlers, handler)
}

// SetAutosave runs fn every interval while the manager is running. A zero interval disables it.
func (m *Manager) SetAutosave(interval time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autosaveInterval = interval
	m.autosaveFunc = fn
}

// Start begins watching for signals. Cancelling ctx behaves like a signal.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stop = make(chan struct{})
	stop := m.stop
	interval, autosave := m.autosaveInterval, m.autosaveFunc
	m.mu.Unlock()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, m.signals...)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer signal.Stop(sigChan)

		select {
		case <-stop:
		case <-ctx.Done():
			m.handleShutdown()
		case sig := <-sigChan:
			m.logger.Info("Received signal", logger.WithField("signal", sig.String()))
			m.handleShutdown()
		}
	}()

	if autosave != nil && interval > 0 {
		m.startAutosave(ctx, stop, interval, autosave)
	}
}

// Stop stops watching without running the shutdown handlers
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stop)
	m.mu.Unlock()

	m.wg.Wait()
}

// Done is closed once the shutdown handlers have run
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// IsRunning checks if the process manager is running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) handleShutdown() {
	m.shutdown.Do(func() {
		m.logger.Info("Initiating graceful shutdown...")

		m.mu.Lock()
		handlers := make([]func(), len(m.shutdownHandlers))
		copy(handlers, m.shutdownHandlers)
		m.mu.Unlock()

		for i := len(handlers) - 1; i >= 0; i-- {
			handlers[i]()
		}
		close(m.done)
	})
}

func (m *Manager) startAutosave(ctx context.Context, stop <-chan struct{}, interval time.Duration, fn func()) {
	m.logger.Debug("Autosave enabled", logger.WithField("interval", interval.String()))

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}
