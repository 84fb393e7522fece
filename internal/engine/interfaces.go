package engine

import (
	"time"

	"github.com/poltergeist/callcenter/pkg/types"
)

// Notifier surfaces dispatcher events outside the log.
// Implementations must not block; they are called without the dispatcher lock held.
type Notifier interface {
	NotifyPreempted(agentID int, call types.Call)
	NotifyBacklog(queued int)
}

// Recorder receives dispatcher measurements.
// pkg/metrics provides the Prometheus implementation.
type Recorder interface {
	CallSubmitted(priority types.Priority)
	CallAssigned(priority types.Priority, wait time.Duration)
	CallCompleted(priority types.Priority, handle time.Duration)
	CallPreempted(priority types.Priority)
	SetQueueDepth(depth int)
	SetBusyAgents(busy int)
}

// Dependencies are the optional collaborators of a Dispatcher.
// Nil members are replaced with no-op implementations.
type Dependencies struct {
	Notifier Notifier
	Recorder Recorder
}

type nopNotifier struct{}

func (nopNotifier) NotifyPreempted(int, types.Call) {}
func (nopNotifier) NotifyBacklog(int)               {}

type nopRecorder struct{}

func (nopRecorder) CallSubmitted(types.Priority)                {}
func (nopRecorder) CallAssigned(types.Priority, time.Duration)  {}
func (nopRecorder) CallCompleted(types.Priority, time.Duration) {}
func (nopRecorder) CallPreempted(types.Priority)                {}
func (nopRecorder) SetQueueDepth(int)                           {}
func (nopRecorder) SetBusyAgents(int)                           {}

func (d Dependencies) withDefaults() Dependencies {
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Recorder == nil {
		d.Recorder = nopRecorder{}
	}
	return d
}
