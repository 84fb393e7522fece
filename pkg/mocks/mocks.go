// Package mocks provides test doubles for the dispatcher's collaborators.
// MockStore is generated by mockgen; the event recorders below are hand-written.
package mocks

import (
	"sync"
	"time"

	"github.com/poltergeist/callcenter/pkg/types"
)

// PreemptedEvent is one NotifyPreempted call
type PreemptedEvent struct {
	AgentID int
	CallID  int64
}

// MockNotifier records dispatcher notifications
type MockNotifier struct {
	mu        sync.Mutex
	preempted []PreemptedEvent
	backlogs  []int
}

// NewMockNotifier creates an empty notifier recorder
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// NotifyPreempted records a preemption
func (m *MockNotifier) NotifyPreempted(agentID int, call types.Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preempted = append(m.preempted, PreemptedEvent{AgentID: agentID, CallID: call.ID})
}

// NotifyBacklog records a backlog alert
func (m *MockNotifier) NotifyBacklog(queued int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backlogs = append(m.backlogs, queued)
}

// Preempted returns the recorded preemptions
func (m *MockNotifier) Preempted() []PreemptedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PreemptedEvent(nil), m.preempted...)
}

// Backlogs returns the recorded backlog depths
func (m *MockNotifier) Backlogs() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.backlogs...)
}

// MockRecorder counts dispatcher measurements
type MockRecorder struct {
	mu         sync.Mutex
	submitted  int
	assigned   int
	completed  int
	preempted  int
	queueDepth int
	busyAgents int
	waits      []time.Duration
}

// NewMockRecorder creates an empty measurement recorder
func NewMockRecorder() *MockRecorder {
	return &MockRecorder{}
}

func (m *MockRecorder) CallSubmitted(types.Priority) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted++
}

func (m *MockRecorder) CallAssigned(_ types.Priority, wait time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assigned++
	m.waits = append(m.waits, wait)
}

func (m *MockRecorder) CallCompleted(types.Priority, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed++
}

func (m *MockRecorder) CallPreempted(types.Priority) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preempted++
}

func (m *MockRecorder) SetQueueDepth(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueDepth = depth
}

func (m *MockRecorder) SetBusyAgents(busy int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busyAgents = busy
}

// Counts returns submitted, assigned, completed and preempted totals
func (m *MockRecorder) Counts() (submitted, assigned, completed, preempted int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submitted, m.assigned, m.completed, m.preempted
}

// QueueDepth returns the last reported queue depth
func (m *MockRecorder) QueueDepth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queueDepth
}

// BusyAgents returns the last reported busy agent count
func (m *MockRecorder) BusyAgents() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busyAgents
}
