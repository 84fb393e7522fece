// Package engine dispatches queued calls to a fixed pool of simulated agents
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/poltergeist/callcenter/pkg/ledger"
	"github.com/poltergeist/callcenter/pkg/logger"
	"github.com/poltergeist/callcenter/pkg/queue"
	"github.com/poltergeist/callcenter/pkg/types"
	"github.com/poltergeist/callcenter/pkg/validation"
)

// Options configures a Dispatcher
type Options struct {
	Agents          int
	MaxCallDuration int
	// TimeUnit is the wall-clock length of one simulated second
	TimeUnit time.Duration
	// BacklogThreshold raises a backlog notification when the queue reaches it; 0 disables
	BacklogThreshold int
}

// DefaultOptions returns the options of the stock console
func DefaultOptions() Options {
	return OptionsFromConfig(types.DefaultConfig())
}

// OptionsFromConfig extracts dispatcher options from a loaded configuration
func OptionsFromConfig(cfg *types.Config) Options {
	opts := Options{
		Agents:          cfg.Agents,
		MaxCallDuration: cfg.MaxCallDuration,
		TimeUnit:        cfg.TimeUnit,
	}
	if cfg.Notifications.Enabled {
		opts.BacklogThreshold = cfg.Notifications.BacklogThreshold
	}
	return opts
}

// ClampAgentCount bounds a requested pool size to 1..MaxAgentCount.
// Counts above the cap are clamped and reported; counts below 1 are rejected.
func ClampAgentCount(requested int) (count int, clamped bool, err error) {
	if requested < 1 {
		return 0, false, fmt.Errorf("%w: agent count %d, need at least 1", types.ErrInvalidConfig, requested)
	}
	if requested > types.MaxAgentCount {
		return types.MaxAgentCount, true, nil
	}
	return requested, false, nil
}

// Dispatcher owns the pending queue and the agent pool and moves calls between them.
// One mutex guards the queue and every agent's ownership fields; it is never held
// while a call is being worked.
type Dispatcher struct {
	mu               sync.Mutex
	queue            *queue.CallQueue
	agents           []*agent
	nextID           int64
	validator        *validation.CallValidator
	backlogThreshold int

	timeUnit time.Duration
	logger   logger.Logger
	notifier Notifier
	recorder Recorder

	lifeMu  sync.Mutex
	running bool
	cancel  context.CancelFunc
	group   *SafeGroup
}

// NewDispatcher creates a dispatcher with all agents Available and an empty queue.
// Workers do not run until Start is called.
func NewDispatcher(opts Options, log logger.Logger, deps Dependencies) (*Dispatcher, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.WithComponent("dispatcher")

	count, clamped, err := ClampAgentCount(opts.Agents)
	if err != nil {
		return nil, err
	}
	if clamped {
		log.Warn("Agent count clamped",
			logger.WithField("requested", opts.Agents),
			logger.WithField("max", types.MaxAgentCount))
	}

	maxDuration := opts.MaxCallDuration
	if maxDuration == 0 {
		maxDuration = types.DefaultMaxCallDuration
	}
	if maxDuration < 1 || maxDuration > types.MaxCallDurationCeiling {
		return nil, fmt.Errorf("%w: max call duration %d outside 1..%d",
			types.ErrInvalidConfig, maxDuration, types.MaxCallDurationCeiling)
	}

	timeUnit := opts.TimeUnit
	if timeUnit == 0 {
		timeUnit = time.Second
	}
	if timeUnit < 0 {
		return nil, fmt.Errorf("%w: time unit %v must be positive", types.ErrInvalidConfig, timeUnit)
	}

	deps = deps.withDefaults()

	d := &Dispatcher{
		queue:            queue.NewCallQueue(log.WithComponent("queue")),
		nextID:           1,
		validator:        validation.NewCallValidator(maxDuration),
		backlogThreshold: opts.BacklogThreshold,
		timeUnit:         timeUnit,
		logger:           log,
		notifier:         deps.Notifier,
		recorder:         deps.Recorder,
	}
	for id := 1; id <= count; id++ {
		d.agents = append(d.agents, newAgent(id, log))
	}

	return d, nil
}

// Agents returns the pool size
func (d *Dispatcher) Agents() int {
	return len(d.agents)
}

// MaxCallDuration returns the current duration bound for submissions
func (d *Dispatcher) MaxCallDuration() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.validator.MaxDuration()
}

// SetMaxCallDuration changes the duration bound for later submissions
func (d *Dispatcher) SetMaxCallDuration(n int) error {
	if n < 1 || n > types.MaxCallDurationCeiling {
		return fmt.Errorf("%w: max call duration %d outside 1..%d",
			types.ErrInvalidConfig, n, types.MaxCallDurationCeiling)
	}

	d.mu.Lock()
	d.validator = validation.NewCallValidator(n)
	d.mu.Unlock()

	d.logger.Info("Max call duration updated", logger.WithField("max_call_duration", n))
	return nil
}

// SetBacklogThreshold changes the queue depth that triggers a backlog notification; 0 disables
func (d *Dispatcher) SetBacklogThreshold(n int) {
	if n < 0 {
		n = 0
	}
	d.mu.Lock()
	d.backlogThreshold = n
	d.mu.Unlock()
}

// Submit validates a call request and enqueues it, returning the new call id.
// Invalid requests fail with an error wrapping types.ErrInvalidInput and change nothing.
func (d *Dispatcher) Submit(req types.CallRequest) (int64, error) {
	d.mu.Lock()

	if err := d.validator.Validate(req).Err(); err != nil {
		d.mu.Unlock()
		return 0, err
	}

	call := types.Call{
		ID:          d.nextID,
		Priority:    req.Priority,
		Duration:    req.Duration,
		CallerName:  req.CallerName,
		PhoneNumber: req.PhoneNumber,
		EnqueuedAt:  time.Now(),
	}
	d.nextID++
	d.queue.Enqueue(call)
	depth := d.queue.Len()
	backlog := d.backlogThreshold > 0 && depth == d.backlogThreshold

	d.mu.Unlock()

	d.recorder.CallSubmitted(call.Priority)
	d.recorder.SetQueueDepth(depth)
	d.logger.Info("Call submitted",
		logger.WithField("call_id", call.ID),
		logger.WithField("priority", call.Priority.String()),
		logger.WithField("queue_size", depth))

	if backlog {
		d.logger.Warn("Queue backlog threshold reached", logger.WithField("queue_size", depth))
		d.notifier.NotifyBacklog(depth)
	}

	return call.ID, nil
}

type dispatched struct {
	agent *agent
	call  types.Call
	wait  time.Duration
}

// Assign hands queued calls to Available agents in id order until either runs out.
// It returns how many calls were dispatched; calling it again with nothing to do is a no-op.
func (d *Dispatcher) Assign() int {
	d.mu.Lock()

	if _, ok := d.queue.Peek(); !ok {
		d.mu.Unlock()
		return 0
	}

	now := time.Now()
	var batch []dispatched
	for _, a := range d.agents {
		if a.status != types.AgentStatusAvailable {
			continue
		}
		call, ok := d.queue.Dequeue()
		if !ok {
			break
		}
		a.becomeBusy(call, now)
		// The slot is empty while the agent is Available, so this never blocks.
		a.assignments <- call
		batch = append(batch, dispatched{agent: a, call: call, wait: now.Sub(call.EnqueuedAt)})
	}
	depth := d.queue.Len()
	busy := d.busyCountLocked()

	d.mu.Unlock()

	if len(batch) == 0 {
		return 0
	}

	d.recorder.SetQueueDepth(depth)
	d.recorder.SetBusyAgents(busy)
	for _, b := range batch {
		d.recorder.CallAssigned(b.call.Priority, b.wait)
		b.agent.logger.Info("Call assigned",
			logger.WithField("call_id", b.call.ID),
			logger.WithField("caller", b.call.CallerName),
			logger.WithField("waited", b.wait.Round(time.Millisecond).String()))
	}

	return len(batch)
}

// Release asks a Busy agent to abandon its call. It only raises the agent's
// preemption flag and never waits for the worker to notice.
func (d *Dispatcher) Release(agentID int) (types.ReleaseOutcome, error) {
	if agentID < 1 || agentID > len(d.agents) {
		return types.ReleaseOutcome{}, fmt.Errorf("%w: agent %d outside 1..%d",
			types.ErrInvalidAgent, agentID, len(d.agents))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	a := d.agents[agentID-1]
	if a.status != types.AgentStatusBusy {
		return types.ReleaseOutcome{Kind: types.ReleaseKindAlreadyAvailable, AgentID: agentID}, nil
	}

	a.preempt.Store(true)
	a.logger.Info("Release requested", logger.WithField("call_id", a.current.ID))

	return types.ReleaseOutcome{
		Kind:    types.ReleaseKindReleased,
		AgentID: agentID,
		CallID:  a.current.ID,
	}, nil
}

// StatusReport returns a consistent view of every agent in id order
func (d *Dispatcher) StatusReport() []types.AgentSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]types.AgentSnapshot, 0, len(d.agents))
	for _, a := range d.agents {
		out = append(out, a.snapshot())
	}
	return out
}

// QueueReport returns the pending calls in dispatch order
func (d *Dispatcher) QueueReport() []types.CallSnapshot {
	d.mu.Lock()
	calls := d.queue.Snapshot()
	d.mu.Unlock()

	out := make([]types.CallSnapshot, 0, len(calls))
	for _, c := range calls {
		out = append(out, types.CallSnapshot{
			ID:          c.ID,
			Priority:    c.Priority,
			CallerName:  c.CallerName,
			PhoneNumber: c.PhoneNumber,
			Duration:    c.Duration,
			EnqueuedAt:  c.EnqueuedAt,
		})
	}
	return out
}

// Snapshot captures the queue, agent records and id counter for the ledger
func (d *Dispatcher) Snapshot() ledger.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	records := make([]types.AgentRecord, 0, len(d.agents))
	for _, a := range d.agents {
		records = append(records, a.record())
	}

	return ledger.Snapshot{
		NextID: d.nextID,
		Calls:  d.queue.Snapshot(),
		Agents: records,
	}
}

// Restore replaces the queue and agent counters with a saved snapshot.
// It fails with types.ErrAgentsBusy while any agent is handling a call.
// Agents saved as Busy come back Available; their in-flight call is dropped.
func (d *Dispatcher) Restore(s ledger.Snapshot) error {
	for _, c := range s.Calls {
		if !c.Priority.IsValid() {
			return fmt.Errorf("%w: call %d has unknown priority %d", types.ErrCorruptLedger, c.ID, int(c.Priority))
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if busy := d.busyCountLocked(); busy > 0 {
		return fmt.Errorf("%w: %d agent(s) handling calls", types.ErrAgentsBusy, busy)
	}

	if len(s.Calls) == 0 {
		d.queue.Clear()
	} else {
		d.queue.Replace(s.Calls)
	}

	for _, a := range d.agents {
		a.callsHandled = 0
		a.timeSpent = 0
	}
	for _, rec := range s.Agents {
		if rec.ID < 1 || rec.ID > len(d.agents) {
			d.logger.Warn("Skipping saved agent outside pool",
				logger.WithField("agent_id", rec.ID),
				logger.WithField("agents", len(d.agents)))
			continue
		}
		a := d.agents[rec.ID-1]
		a.callsHandled = rec.CallsHandled
		a.timeSpent = rec.TimeSpent
		if rec.Status == types.AgentStatusBusy {
			a.logger.Warn("Saved in-flight call not resumed",
				logger.WithField("call_id", rec.CurrentCallID),
				logger.WithField("caller", rec.CurrentCaller))
		}
	}

	next := d.nextID
	if s.NextID > next {
		next = s.NextID
	}
	if m := s.MaxCallID() + 1; m > next {
		next = m
	}
	d.nextID = next

	d.recorder.SetQueueDepth(d.queue.Len())
	d.recorder.SetBusyAgents(0)

	return nil
}

// Start launches one worker per agent. Calls assigned before Start wait in
// their agent's slot until the worker runs.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.lifeMu.Lock()
	defer d.lifeMu.Unlock()

	if d.running {
		return ErrAlreadyRunning
	}

	wctx, cancel := context.WithCancel(ctx)
	group, gctx := NewSafeGroup(wctx, d.logger)
	group.SetLimit(len(d.agents))

	for _, a := range d.agents {
		a := a
		group.Go(func() error {
			return d.run(gctx, a)
		})
	}

	d.cancel = cancel
	d.group = group
	d.running = true

	d.logger.Info("Dispatcher started",
		logger.WithField("agents", len(d.agents)),
		logger.WithField("time_unit", d.timeUnit.String()))

	return nil
}

// Running reports whether workers are active
func (d *Dispatcher) Running() bool {
	d.lifeMu.Lock()
	defer d.lifeMu.Unlock()
	return d.running
}

// Stop cancels the workers and waits for them. Calls cut short are not credited;
// calls assigned but never picked up are requeued ahead of waiting calls of the same priority.
func (d *Dispatcher) Stop() error {
	d.lifeMu.Lock()
	defer d.lifeMu.Unlock()

	if !d.running {
		return nil
	}

	d.cancel()
	err := d.group.Wait()
	d.running = false
	d.cancel = nil
	d.group = nil

	d.mu.Lock()
	var undelivered []types.Call
	for _, a := range d.agents {
		select {
		case call := <-a.assignments:
			undelivered = append(undelivered, call)
			a.becomeAvailable(call, false)
		default:
		}
	}
	if len(undelivered) > 0 {
		d.queue.Replace(append(undelivered, d.queue.Snapshot()...))
	}
	depth := d.queue.Len()
	d.mu.Unlock()

	d.recorder.SetBusyAgents(0)
	d.recorder.SetQueueDepth(depth)

	if len(undelivered) > 0 {
		d.logger.Info("Requeued calls not yet picked up", logger.WithField("count", len(undelivered)))
	}
	d.logger.Info("Dispatcher stopped")

	return err
}

func (d *Dispatcher) busyCountLocked() int {
	busy := 0
	for _, a := range d.agents {
		if a.status == types.AgentStatusBusy {
			busy++
		}
	}
	return busy
}
