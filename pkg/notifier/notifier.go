// Package notifier raises desktop notifications for dispatcher events
package notifier

import (
	"fmt"
	"sync/atomic"

	"github.com/gen2brain/beeep"

	"github.com/poltergeist/callcenter/pkg/logger"
	"github.com/poltergeist/callcenter/pkg/types"
)

const appName = "Call Center"

// Sender delivers one notification
type Sender func(title, message string) error

// Config represents notification configuration
type Config struct {
	Enabled bool
	// Sound plays a beep alongside preemption notices
	Sound bool
}

// Notifier sends preemption and backlog notices when enabled.
// Delivery happens on its own goroutine so callers never wait on the desktop.
type Notifier struct {
	enabled atomic.Bool
	sound   bool
	send    Sender
	beep    func() error
	logger  logger.Logger
}

// Option customizes a Notifier
type Option func(*Notifier)

// WithSender replaces desktop delivery, mainly for tests
func WithSender(send Sender) Option {
	return func(n *Notifier) {
		n.send = send
		n.beep = func() error { return nil }
	}
}

// New creates a notifier backed by beeep
func New(config Config, log logger.Logger, opts ...Option) *Notifier {
	if log == nil {
		log = logger.NewNopLogger()
	}
	n := &Notifier{
		sound: config.Sound,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
		beep: func() error {
			return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
		},
		logger: log.WithComponent("notifier"),
	}
	n.enabled.Store(config.Enabled)
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SetEnabled toggles delivery at runtime
func (n *Notifier) SetEnabled(enabled bool) {
	n.enabled.Store(enabled)
}

// Enabled reports whether notifications are delivered
func (n *Notifier) Enabled() bool {
	return n.enabled.Load()
}

// NotifyPreempted reports a call abandoned by a release
func (n *Notifier) NotifyPreempted(agentID int, call types.Call) {
	if !n.Enabled() {
		return
	}
	title := fmt.Sprintf("%s: call released", appName)
	message := fmt.Sprintf("Agent %d dropped call #%d from %s (%s)",
		agentID, call.ID, call.CallerName, call.Priority)
	n.deliver(title, message, n.sound)
}

// NotifyBacklog reports a queue that reached its threshold
func (n *Notifier) NotifyBacklog(queued int) {
	if !n.Enabled() {
		return
	}
	title := fmt.Sprintf("%s: queue backlog", appName)
	message := fmt.Sprintf("%d calls waiting for an agent", queued)
	n.deliver(title, message, false)
}

func (n *Notifier) deliver(title, message string, withSound bool) {
	go func() {
		if err := n.send(title, message); err != nil {
			n.logger.Debug("Failed to send notification", logger.WithField("error", err))
		}
		if withSound {
			if err := n.beep(); err != nil {
				n.logger.Debug("Failed to play sound", logger.WithField("error", err))
			}
		}
	}()
}
