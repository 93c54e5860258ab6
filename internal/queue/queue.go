// Package queue holds workloads pending dispatch in full priority order.
package queue

import (
	"sort"
	"sync"
	"time"

	"github.com/lthuynh/NeuralNGenAI/internal/observability"
	"github.com/lthuynh/NeuralNGenAI/internal/workload"
)

type entry struct {
	w   workload.Workload
	seq uint64
}

// Statistics is a consistent point-in-time summary of the queue contents.
type Statistics struct {
	Total        int                         `json:"total"`
	ByPriority   map[workload.Priority]int   `json:"by_priority"`
	ByType       map[workload.Type]int       `json:"by_type"`
	ByComplexity map[workload.Complexity]int `json:"by_complexity"`
	AverageAge   time.Duration               `json:"average_age"`
}

// Queue is a mutex-protected priority queue. Higher priority dequeues
// first; within one priority tier entries keep arrival order. The queue
// exclusively owns entries until they are dequeued.
type Queue struct {
	mu       sync.Mutex
	items    []entry
	seq      uint64
	onChange func(total int)
}

func New() *Queue {
	return &Queue{items: make([]entry, 0, 64)}
}

// OnChange registers a callback invoked with the new total after every
// mutating operation. The callback runs outside the queue lock.
func (q *Queue) OnChange(fn func(total int)) {
	q.mu.Lock()
	q.onChange = fn
	q.mu.Unlock()
}

func (q *Queue) Enqueue(w workload.Workload) {
	q.mu.Lock()
	q.seq++
	q.items = append(q.items, entry{w: w, seq: q.seq})
	q.resort()
	total, fn := len(q.items), q.onChange
	q.mu.Unlock()
	observability.Default.SetGauge("queue_depth", nil, float64(total))
	observability.Default.IncCounter("queue_enqueued_total", map[string]string{"priority": string(w.Priority)}, 1)
	if fn != nil {
		fn(total)
	}
}

// EnqueueBatch inserts all workloads and re-sorts once; the observable
// ordering is the same as sequential Enqueue calls.
func (q *Queue) EnqueueBatch(ws []workload.Workload) {
	if len(ws) == 0 {
		return
	}
	q.mu.Lock()
	for _, w := range ws {
		q.seq++
		q.items = append(q.items, entry{w: w, seq: q.seq})
	}
	q.resort()
	total, fn := len(q.items), q.onChange
	q.mu.Unlock()
	observability.Default.SetGauge("queue_depth", nil, float64(total))
	observability.Default.IncCounter("queue_enqueued_total", map[string]string{"priority": "batch"}, float64(len(ws)))
	if fn != nil {
		fn(total)
	}
}

// Dequeue removes and returns the highest-priority, earliest-arrived
// workload. An empty queue returns ok=false; that is a valid terminal
// state, not an error.
func (q *Queue) Dequeue() (workload.Workload, bool) {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return workload.Workload{}, false
	}
	w := q.items[0].w
	q.items = q.items[1:]
	total, fn := len(q.items), q.onChange
	q.mu.Unlock()
	observability.Default.SetGauge("queue_depth", nil, float64(total))
	if fn != nil {
		fn(total)
	}
	return w, true
}

// Clear discards all queued entries atomically.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.items = q.items[:0]
	fn := q.onChange
	q.mu.Unlock()
	observability.Default.SetGauge("queue_depth", nil, 0)
	if fn != nil {
		fn(0)
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) Statistics() Statistics {
	q.mu.Lock()
	defer q.mu.Unlock()
	stats := Statistics{
		Total:        len(q.items),
		ByPriority:   make(map[workload.Priority]int),
		ByType:       make(map[workload.Type]int),
		ByComplexity: make(map[workload.Complexity]int),
	}
	if len(q.items) == 0 {
		return stats
	}
	now := time.Now().UTC()
	var ageSum time.Duration
	for _, e := range q.items {
		stats.ByPriority[e.w.Priority]++
		stats.ByType[e.w.Type]++
		stats.ByComplexity[e.w.Complexity]++
		ageSum += now.Sub(e.w.CreatedAt)
	}
	stats.AverageAge = ageSum / time.Duration(len(q.items))
	return stats
}

// resort keeps the slice ordered by priority rank descending, then arrival
// sequence ascending. Stable within a tier because seq strictly increases.
// Caller holds the lock.
func (q *Queue) resort() {
	sort.SliceStable(q.items, func(i, j int) bool {
		ri, rj := q.items[i].w.Priority.Rank(), q.items[j].w.Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		return q.items[i].seq < q.items[j].seq
	})
}
