package schedule

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Scheduler runs a Plan's tasks with a bounded worker pool. Tasks
// become runnable the moment every dependency has committed; workers
// pull runnable tasks from a shared queue, but a single committer loop
// is the only thing that ever writes into the result slot table, so
// the table's final contents never depend on worker scheduling order --
// only on the plan's dependency structure.
type Scheduler struct {
	plan    *Plan
	workers int
}

// New returns a Scheduler for plan using up to workers concurrent
// goroutines. workers <= 1 runs the plan serially in TaskID order,
// which is also what a Parallel=false Config selects upstream.
func New(plan *Plan, workers int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{plan: plan, workers: workers}
}

type completion struct {
	id     TaskID
	result any
	err    error
}

// Run executes every task in plan and returns their results indexed by
// TaskID. A task whose dependency failed is never run; it is skipped
// and its slot left nil. Run returns the first error committed, once
// every task has either completed or been skipped.
func (s *Scheduler) Run(ctx context.Context) ([]any, error) {
	n := s.plan.Len()
	slots := make([]any, n)
	remaining := make([]int, n)
	dependents := make([][]TaskID, n)
	for _, t := range s.plan.tasks {
		remaining[t.id] = len(t.deps)
		for _, d := range t.deps {
			dependents[d] = append(dependents[d], t.id)
		}
	}

	ready := make(chan TaskID, n)
	done := make(chan completion, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, t := range s.plan.tasks {
		if remaining[t.id] == 0 {
			ready <- t.id
		}
	}

	dispatch := func(id TaskID) {
		t := s.plan.tasks[id]
		deps := make([]any, len(t.deps))
		for i, d := range t.deps {
			deps[i] = slots[d]
		}
		g.Go(func() error {
			result, err := t.run(gctx, deps)
			done <- completion{id: id, result: result, err: err}
			return nil
		})
	}

	// The committer loop: the only writer of slots, the only reader of
	// ready/done, and the only place dependency bookkeeping is mutated.
	// This keeps the slot table's final state independent of worker
	// interleaving.
	var firstErr error
	pending := n
	inFlight := map[TaskID]bool{}
	var failed []TaskID

	drainReady := func() {
		for {
			select {
			case id := <-ready:
				inFlight[id] = true
				dispatch(id)
			default:
				return
			}
		}
	}

	for pending > 0 {
		drainReady()
		if len(failed) > 0 {
			id := failed[0]
			failed = failed[1:]
			pending--
			for _, dep := range dependents[id] {
				if remaining[dep] >= 0 {
					remaining[dep] = -1 // poisoned: never becomes ready
					failed = append(failed, dep)
				}
			}
			continue
		}

		c := <-done
		delete(inFlight, c.id)
		slots[c.id] = c.result
		pending--
		if c.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("schedule: task %d: %w", c.id, c.err)
			}
			for _, dep := range dependents[c.id] {
				if remaining[dep] >= 0 {
					remaining[dep] = -1
					failed = append(failed, dep)
				}
			}
			continue
		}
		for _, dep := range dependents[c.id] {
			if remaining[dep] < 0 {
				continue
			}
			remaining[dep]--
			if remaining[dep] == 0 {
				ready <- dep
			}
		}
	}

	_ = g.Wait()
	return slots, firstErr
}
