// Package scheduler implements the out-of-order instruction scheduler
// of spec.md 4.G/4.H: a dependency-driven stream planner that groups an
// instruction-category's instructions into Streams, then a Scheduler
// that runs those streams across a fixed pool of execution units while
// preserving every cross-operand ordering the dependency graph
// requires. Grounded in the goroutine/WaitGroup/atomic idiom of
// pkg/tensor/scheduler.go, generalized from data-parallel loop
// splitting to dependency-aware instruction scheduling.
package scheduler

import "github.com/tapegraph/neuralmachine/internal/instruction"

// Stream is a maximal chain of instructions that must execute in
// program order relative to each other — a sole-producer/sole-consumer
// dependency chain the planner folds into one sequential unit of work.
type Stream struct {
	Instructions []instruction.Instruction
	// DependsOn lists the indices (into Plan.Streams) of streams that
	// must finish before this stream may start.
	DependsOn []int
}

// Plan is the output of Build: a program's instructions grouped into
// streams plus their inter-stream dependency edges.
type Plan struct {
	Streams []*Stream
}

// Build partitions instructions into dependency-chained streams. Two
// instructions conflict when they share a tensor operand with at least
// one of the two accesses being a write (read-after-write,
// write-after-write or write-after-read); Build scans backward from
// each instruction to find its most recent conflicting predecessor per
// operand, per spec.md 4.G, and chains an instruction into its
// predecessor's stream only when that predecessor is its single
// dependency and has no other dependent — an instruction with zero or
// several dependencies (a merge point) starts a new stream, and so does
// every dependent of a predecessor with more than one (a branch point).
// A stream therefore depends only on streams that started before it.
func Build(instructions []instruction.Instruction) *Plan {
	n := len(instructions)
	if n == 0 {
		return &Plan{}
	}

	lastWriter := make(map[int64]int)
	lastReaders := make(map[int64][]int)
	deps := make([][]int, n)

	for i, in := range instructions {
		seen := make(map[int]bool)
		addDep := func(j int) {
			if j >= 0 && !seen[j] {
				seen[j] = true
				deps[i] = append(deps[i], j)
			}
		}
		for _, t := range in.Inputs {
			name := t.Name()
			if w, ok := lastWriter[name]; ok {
				addDep(w)
			}
		}
		for _, t := range in.Outputs {
			name := t.Name()
			if w, ok := lastWriter[name]; ok {
				addDep(w)
			}
			for _, r := range lastReaders[name] {
				addDep(r)
			}
		}
		for _, t := range in.Inputs {
			name := t.Name()
			lastReaders[name] = append(lastReaders[name], i)
		}
		for _, t := range in.Outputs {
			name := t.Name()
			lastWriter[name] = i
			lastReaders[name] = nil
		}
	}

	// primary[i] is i's most recent dependency — the candidate to chain
	// into the same stream.
	primary := make([]int, n)
	for i := range primary {
		primary[i] = -1
		for _, j := range deps[i] {
			if j > primary[i] {
				primary[i] = j
			}
		}
	}
	// dependents counts how many instructions name j as their primary
	// predecessor; only a unique dependent can merge into j's stream.
	dependents := make(map[int]int)
	for i := range primary {
		if primary[i] >= 0 {
			dependents[primary[i]]++
		}
	}

	streamOf := make([]int, n)
	for i := range streamOf {
		streamOf[i] = -1
	}
	plan := &Plan{}

	for i := 0; i < n; i++ {
		p := primary[i]
		if len(deps[i]) == 1 && p >= 0 && dependents[p] == 1 && streamOf[p] >= 0 {
			s := plan.Streams[streamOf[p]]
			s.Instructions = append(s.Instructions, instructions[i])
			streamOf[i] = streamOf[p]
			continue
		}
		s := &Stream{Instructions: []instruction.Instruction{instructions[i]}}
		plan.Streams = append(plan.Streams, s)
		streamOf[i] = len(plan.Streams) - 1
	}

	for i := 0; i < n; i++ {
		si := streamOf[i]
		for _, j := range deps[i] {
			sj := streamOf[j]
			if sj == si {
				continue
			}
			s := plan.Streams[si]
			found := false
			for _, d := range s.DependsOn {
				if d == sj {
					found = true
					break
				}
			}
			if !found {
				s.DependsOn = append(s.DependsOn, sj)
			}
		}
	}
	return plan
}
