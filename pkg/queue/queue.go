// Package queue provides the priority-ordered pending call queue
package queue

import (
	"slices"
	"sort"
	"sync"

	"github.com/poltergeist/callcenter/pkg/logger"
	"github.com/poltergeist/callcenter/pkg/types"
)

// CallQueue keeps pending calls sorted by ascending priority value,
// FIFO within a tier. Calls are stored by value; ownership moves in on
// Enqueue and out on Dequeue.
type CallQueue struct {
	logger logger.Logger
	calls  []types.Call
	mu     sync.RWMutex
}

// NewCallQueue creates an empty call queue. log may be nil.
func NewCallQueue(log logger.Logger) *CallQueue {
	return &CallQueue{logger: log}
}

// Enqueue inserts a call after every queued call of the same or higher precedence
func (q *CallQueue) Enqueue(call types.Call) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pos := q.insertPosition(call.Priority)
	q.calls = slices.Insert(q.calls, pos, call)

	if q.logger != nil {
		q.logger.Debug("Queued call",
			logger.WithField("call_id", call.ID),
			logger.WithField("priority", call.Priority.String()),
			logger.WithField("position", pos+1),
			logger.WithField("queue_size", len(q.calls)))
	}
}

// Dequeue removes and returns the head of the queue
func (q *CallQueue) Dequeue() (types.Call, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.calls) == 0 {
		return types.Call{}, false
	}

	call := q.calls[0]
	q.calls[0] = types.Call{}
	q.calls = q.calls[1:]
	if len(q.calls) == 0 {
		q.calls = nil
	}

	return call, true
}

// Peek returns the head of the queue without removing it
func (q *CallQueue) Peek() (types.Call, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if len(q.calls) == 0 {
		return types.Call{}, false
	}
	return q.calls[0], true
}

// Snapshot returns a copy of the queue in dispatch order
func (q *CallQueue) Snapshot() []types.Call {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return slices.Clone(q.calls)
}

// Len returns the queue size
func (q *CallQueue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.calls)
}

// Clear clears the queue
func (q *CallQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls = nil
}

// Replace swaps the queue content for calls, re-sorting them stably.
func (q *CallQueue) Replace(calls []types.Call) {
	sorted := slices.Clone(calls)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})

	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls = sorted
}

// insertPosition finds the first index holding a lower-precedence tier.
func (q *CallQueue) insertPosition(p types.Priority) int {
	return sort.Search(len(q.calls), func(i int) bool {
		return q.calls[i].Priority > p
	})
}
