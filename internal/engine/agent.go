package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	pcontext "github.com/poltergeist/callcenter/pkg/context"
	"github.com/poltergeist/callcenter/pkg/logger"
	"github.com/poltergeist/callcenter/pkg/types"
)

// agent is one slot of the pool. Every field except preempt and
// assignments is guarded by the dispatcher lock.
type agent struct {
	id     int
	status types.AgentStatus
	// current is set iff status is busy
	current      *types.Call
	handlingID   string
	assignedAt   time.Time
	callsHandled int
	timeSpent    int

	preempt     atomic.Bool
	assignments chan types.Call
	logger      logger.Logger
}

func newAgent(id int, log logger.Logger) *agent {
	return &agent{
		id:          id,
		status:      types.AgentStatusAvailable,
		assignments: make(chan types.Call, 1),
		logger:      log.WithComponent(fmt.Sprintf("agent-%d", id)),
	}
}

func (a *agent) snapshot() types.AgentSnapshot {
	s := types.AgentSnapshot{
		ID:            a.id,
		Status:        a.status,
		CurrentCallID: -1,
		CallsHandled:  a.callsHandled,
		TimeSpent:     a.timeSpent,
	}
	if a.current != nil {
		s.CurrentCallID = a.current.ID
		s.CurrentCaller = a.current.CallerName
	}
	return s
}

func (a *agent) record() types.AgentRecord {
	s := a.snapshot()
	return types.AgentRecord{
		ID:            s.ID,
		Status:        s.Status,
		CurrentCallID: s.CurrentCallID,
		CurrentCaller: s.CurrentCaller,
		CallsHandled:  s.CallsHandled,
		TimeSpent:     s.TimeSpent,
	}
}

// becomeBusy takes ownership of call. Caller holds the dispatcher lock.
func (a *agent) becomeBusy(call types.Call, now time.Time) {
	c := call
	a.status = types.AgentStatusBusy
	a.current = &c
	a.assignedAt = now
	a.handlingID = pcontext.GenerateHandlingID()
	a.preempt.Store(false)
}

// becomeAvailable clears ownership, crediting the call only on completion.
// Caller holds the dispatcher lock.
func (a *agent) becomeAvailable(call types.Call, completed bool) {
	if completed {
		a.callsHandled++
		a.timeSpent += call.Duration
	}
	a.status = types.AgentStatusAvailable
	a.current = nil
	a.handlingID = ""
	a.preempt.Store(false)
}

// handlingOutcome is what a worker reports after one busy period
type handlingOutcome int

const (
	outcomeCompleted handlingOutcome = iota
	outcomePreempted
	outcomeInterrupted
)

func (o handlingOutcome) String() string {
	switch o {
	case outcomeCompleted:
		return "completed"
	case outcomePreempted:
		return "preempted"
	default:
		return "interrupted"
	}
}

// run is the agent's long-lived worker loop
func (d *Dispatcher) run(ctx context.Context, a *agent) error {
	a.logger.Debug("Worker started")
	defer a.logger.Debug("Worker stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case call := <-a.assignments:
			d.handle(ctx, a, call)
		}
	}
}

// handle simulates one call, polling the preemption flag once per time unit
func (d *Dispatcher) handle(ctx context.Context, a *agent, call types.Call) {
	d.mu.Lock()
	handlingID := a.handlingID
	d.mu.Unlock()

	hctx := pcontext.WithHandlingID(pcontext.WithCallID(ctx, call.ID), handlingID)
	hctx = pcontext.WithStartTime(hctx, time.Now())
	log := logger.WithContext(hctx, a.logger)

	log.Info("Handling call",
		logger.WithField("caller", call.CallerName),
		logger.WithField("priority", call.Priority.String()),
		logger.WithField("duration", call.Duration))

	ticker := time.NewTicker(d.timeUnit)
	defer ticker.Stop()

	interrupted := false
poll:
	for elapsed := 0; elapsed < call.Duration && !a.preempt.Load(); {
		select {
		case <-ctx.Done():
			interrupted = true
			break poll
		case <-ticker.C:
			elapsed++
		}
	}

	outcome := d.finish(a, call, interrupted)
	handleTime := pcontext.GetDuration(hctx)

	switch outcome {
	case outcomeCompleted:
		d.recorder.CallCompleted(call.Priority, handleTime)
		log.Success("Call completed",
			logger.WithField("calls_handled", d.callsHandled(a)),
			logger.WithField("since_enqueue", time.Since(call.EnqueuedAt).Round(time.Millisecond).String()))
	case outcomePreempted:
		d.recorder.CallPreempted(call.Priority)
		d.notifier.NotifyPreempted(a.id, call)
		log.Warn("Call preempted, not credited")
	case outcomeInterrupted:
		d.recorder.CallPreempted(call.Priority)
		log.Warn("Call interrupted by shutdown, not credited")
		return
	}

	d.Assign()
}

// finish returns the agent to Available and decides the outcome under the lock,
// so a flag raised right as the last unit elapses still counts as preemption.
func (d *Dispatcher) finish(a *agent, call types.Call, interrupted bool) handlingOutcome {
	d.mu.Lock()
	defer d.mu.Unlock()

	outcome := outcomeCompleted
	switch {
	case interrupted:
		outcome = outcomeInterrupted
	case a.preempt.Load():
		outcome = outcomePreempted
	}

	a.becomeAvailable(call, outcome == outcomeCompleted)
	d.recorder.SetBusyAgents(d.busyCountLocked())
	return outcome
}

func (d *Dispatcher) callsHandled(a *agent) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return a.callsHandled
}
