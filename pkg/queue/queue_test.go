package queue_test

import (
	"bytes"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poltergeist/callcenter/pkg/logger"
	"github.com/poltergeist/callcenter/pkg/queue"
	"github.com/poltergeist/callcenter/pkg/types"
)

func newCall(id int64, p types.Priority) types.Call {
	return types.Call{
		ID:          id,
		Priority:    p,
		Duration:    5,
		CallerName:  "caller",
		PhoneNumber: "555",
		EnqueuedAt:  time.Now(),
	}
}

func ids(calls []types.Call) []int64 {
	out := make([]int64, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.ID)
	}
	return out
}

func assertSorted(t *testing.T, calls []types.Call) {
	t.Helper()
	for i := 1; i < len(calls); i++ {
		prev, cur := calls[i-1], calls[i]
		if prev.Priority > cur.Priority {
			t.Fatalf("priority order violated at %d: %s before %s", i, prev.Priority, cur.Priority)
		}
		if prev.Priority == cur.Priority && prev.ID > cur.ID {
			t.Fatalf("FIFO order violated at %d: call %d before call %d", i, prev.ID, cur.ID)
		}
	}
}

func TestCallQueue_Enqueue(t *testing.T) {
	q := queue.NewCallQueue(nil)

	q.Enqueue(newCall(1, types.PriorityMedium))

	if q.Len() != 1 {
		t.Errorf("expected queue size 1, got %d", q.Len())
	}
}

func TestCallQueue_DequeueOrder(t *testing.T) {
	q := queue.NewCallQueue(nil)

	// VIP, then Low, then VIP
	q.Enqueue(newCall(1, types.PriorityVIP))
	q.Enqueue(newCall(2, types.PriorityLow))
	q.Enqueue(newCall(3, types.PriorityVIP))

	want := []int64{1, 3, 2}
	for i, id := range want {
		call, ok := q.Dequeue()
		if !ok {
			t.Fatalf("dequeue %d: queue unexpectedly empty", i)
		}
		if call.ID != id {
			t.Errorf("dequeue %d: expected call %d, got %d", i, id, call.ID)
		}
	}

	if _, ok := q.Dequeue(); ok {
		t.Error("expected empty queue")
	}
}

func TestCallQueue_LaterHigherPriorityJumpsAhead(t *testing.T) {
	q := queue.NewCallQueue(nil)

	q.Enqueue(newCall(1, types.PriorityHigh))
	q.Enqueue(newCall(2, types.PriorityVIP))

	got := ids(q.Snapshot())
	if len(got) != 2 || got[0] != 2 || got[1] != 1 {
		t.Errorf("expected [2 1], got %v", got)
	}
}

func TestCallQueue_RandomSequencesStaySorted(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 20; round++ {
		q := queue.NewCallQueue(nil)
		for id := int64(1); id <= 200; id++ {
			q.Enqueue(newCall(id, types.Priorities[rng.Intn(len(types.Priorities))]))
			if rng.Intn(5) == 0 {
				q.Dequeue()
			}
		}
		assertSorted(t, q.Snapshot())
	}
}

func TestCallQueue_Peek(t *testing.T) {
	q := queue.NewCallQueue(nil)

	if _, ok := q.Peek(); ok {
		t.Fatal("expected no head on empty queue")
	}

	q.Enqueue(newCall(1, types.PriorityLow))
	q.Enqueue(newCall(2, types.PriorityHigh))

	head, ok := q.Peek()
	if !ok || head.ID != 2 {
		t.Errorf("expected head call 2, got %d (ok=%v)", head.ID, ok)
	}
	if q.Len() != 2 {
		t.Errorf("peek must not remove, size is %d", q.Len())
	}
}

func TestCallQueue_SnapshotIsCopy(t *testing.T) {
	q := queue.NewCallQueue(nil)
	q.Enqueue(newCall(1, types.PriorityLow))

	snap := q.Snapshot()
	snap[0].CallerName = "mutated"
	snap = append(snap, newCall(99, types.PriorityVIP))

	again := q.Snapshot()
	if len(again) != 1 {
		t.Fatalf("expected 1 queued call, got %d", len(again))
	}
	if again[0].CallerName != "caller" {
		t.Errorf("snapshot mutation leaked into queue: %q", again[0].CallerName)
	}
}

func TestCallQueue_Clear(t *testing.T) {
	q := queue.NewCallQueue(nil)

	for i := int64(0); i < 5; i++ {
		q.Enqueue(newCall(i, types.Priority(i%4)))
	}

	if q.Len() != 5 {
		t.Errorf("expected size 5, got %d", q.Len())
	}

	q.Clear()

	if q.Len() != 0 {
		t.Errorf("expected size 0 after clear, got %d", q.Len())
	}
}

func TestCallQueue_ReplaceKeepsSavedOrder(t *testing.T) {
	q := queue.NewCallQueue(nil)
	q.Enqueue(newCall(50, types.PriorityVIP))

	q.Replace([]types.Call{
		newCall(7, types.PriorityHigh),
		newCall(3, types.PriorityHigh),
		newCall(9, types.PriorityLow),
	})

	got := ids(q.Snapshot())
	want := []int64{7, 3, 9}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestCallQueue_ConcurrentAccess(t *testing.T) {
	q := queue.NewCallQueue(nil)

	const producers = 8
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(newCall(int64(p*perProducer+i), types.Priority(i%4)))
			}
		}(p)
	}
	wg.Wait()

	seen := make(map[int64]bool)
	var mu sync.Mutex
	for c := 0; c < 4; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				call, ok := q.Dequeue()
				if !ok {
					return
				}
				mu.Lock()
				if seen[call.ID] {
					t.Errorf("call %d dequeued twice", call.ID)
				}
				seen[call.ID] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != producers*perProducer {
		t.Errorf("expected %d calls dequeued, got %d", producers*perProducer, len(seen))
	}
}

func TestCallQueue_LogsEnqueue(t *testing.T) {
	var buf bytes.Buffer
	log := logger.CreateLoggerWithOutput("", "debug", &buf)

	q := queue.NewCallQueue(log)
	q.Enqueue(newCall(12, types.PriorityVIP))

	if !strings.Contains(buf.String(), "Queued call") {
		t.Errorf("expected enqueue to be logged, got %q", buf.String())
	}
}

func BenchmarkCallQueue_Enqueue(b *testing.B) {
	q := queue.NewCallQueue(nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Enqueue(newCall(int64(i), types.Priority(i%4)))
	}
}

func BenchmarkCallQueue_Dequeue(b *testing.B) {
	q := queue.NewCallQueue(nil)

	for i := 0; i < b.N; i++ {
		q.Enqueue(newCall(int64(i), types.Priority(i%4)))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Dequeue()
	}
}
