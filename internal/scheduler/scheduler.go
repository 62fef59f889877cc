package scheduler

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tapegraph/neuralmachine/internal/device"
)

// State is a stream's position in the Unreached -> Spawned -> Joined
// state machine of spec.md 4.H.
type State int

const (
	Unreached State = iota
	Spawned
	Joined
)

func (s State) String() string {
	switch s {
	case Unreached:
		return "Unreached"
	case Spawned:
		return "Spawned"
	case Joined:
		return "Joined"
	default:
		return "Unknown"
	}
}

var (
	streamsSpawned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "neuralmachine_scheduler_streams_spawned_total",
		Help: "Streams dispatched to an execution unit.",
	})
	streamsJoined = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "neuralmachine_scheduler_streams_joined_total",
		Help: "Streams whose execution completed and whose result was observed.",
	})
)

func init() {
	prometheus.MustRegister(streamsSpawned, streamsJoined)
}

// Scheduler runs a Plan's streams across a fixed number of execution
// units, honoring every DependsOn edge and never running more than
// Units streams at once. When a new stream is ready to spawn and every
// unit is busy, the scheduler joins the oldest still-active stream
// before spawning — spec.md's chosen backpressure policy, favoring
// forward progress of long-running streams over strict FIFO admission.
type Scheduler struct {
	Backend device.Backend
	Units   int
}

// New returns a Scheduler with the given number of concurrent execution
// units; units <= 0 is treated as 1.
func New(backend device.Backend, units int) *Scheduler {
	if units <= 0 {
		units = 1
	}
	return &Scheduler{Backend: backend, Units: units}
}

type result struct {
	index int
	err   error
}

// Run executes every stream in plan to completion, respecting
// DependsOn ordering, and returns the first error encountered (if any).
// All streams still return ordering-correct results even on error: Run
// drains in-flight streams before returning so no goroutine outlives
// the call.
func (s *Scheduler) Run(plan *Plan) error {
	n := len(plan.Streams)
	if n == 0 {
		return nil
	}

	states := make([]State, n)
	done := make(chan result, n)

	active := make(map[int]chan struct{})
	var mu sync.Mutex
	var wg sync.WaitGroup

	joined := make([]bool, n)
	joinStream := func(idx int) {
		mu.Lock()
		ch, ok := active[idx]
		mu.Unlock()
		if !ok || joined[idx] {
			return
		}
		<-ch
		joined[idx] = true
		states[idx] = Joined
		streamsJoined.Inc()
	}

	ready := func(idx int) bool {
		for _, dep := range plan.Streams[idx].DependsOn {
			if states[dep] != Joined {
				return false
			}
		}
		return true
	}

	// spawnOrder records stream indices in the order they were spawned,
	// so the oldest active stream is the first entry still Spawned.
	spawnOrder := make([]int, 0, n)
	spawn := func(idx int) {
		spawnOrder = append(spawnOrder, idx)
		ch := make(chan struct{})
		mu.Lock()
		active[idx] = ch
		mu.Unlock()
		states[idx] = Spawned
		streamsSpawned.Inc()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(ch)
			var err error
			for _, in := range plan.Streams[idx].Instructions {
				if e := device.Execute(s.Backend, in); e != nil {
					err = e
					break
				}
			}
			done <- result{index: idx, err: err}
		}()
	}

	var firstErr error
	remaining := n
	oldestActive := func() (int, bool) {
		for _, idx := range spawnOrder {
			if states[idx] == Spawned {
				return idx, true
			}
		}
		return -1, false
	}

	for remaining > 0 {
		spawnedCount := 0
		for _, st := range states {
			if st == Spawned {
				spawnedCount++
			}
		}
		progressed := false
		for idx := 0; idx < n; idx++ {
			if states[idx] != Unreached || !ready(idx) {
				continue
			}
			if spawnedCount >= s.Units {
				if old, ok := oldestActive(); ok {
					joinStream(old)
					spawnedCount--
				} else {
					break
				}
			}
			spawn(idx)
			spawnedCount++
			progressed = true
		}
		if !progressed && spawnedCount == 0 {
			return fmt.Errorf("scheduler: unreachable dependency in stream plan")
		}

		r := <-done
		remaining--
		if states[r.index] == Spawned {
			joinStream(r.index)
		}
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
	}
	wg.Wait()
	return firstErr
}
