// Package schedule implements the deterministic parallel execution
// scheduler (component H): a dependency-aware task graph built
// serially, executed by a bounded worker pool, and drained by a single
// committer so that the final result order never depends on which
// worker finished first.
package schedule

import "context"

// TaskID identifies a task within a Plan. IDs are assigned in the order
// tasks are added, starting at 0, and double as the committer's
// draining order.
type TaskID uint32

// TaskFunc is the work a task performs. It receives the already-
// committed results of its dependencies, in the same order they were
// passed to AddTask.
type TaskFunc func(ctx context.Context, deps []any) (any, error)

type taskNode struct {
	id   TaskID
	deps []TaskID
	run  TaskFunc
}

// Plan is a dependency-aware task graph, built serially before any
// execution starts. Plan is not safe for concurrent construction; build
// the whole graph on one goroutine, then hand it to a Scheduler.
type Plan struct {
	tasks []taskNode
}

// NewPlan returns an empty Plan.
func NewPlan() *Plan {
	return &Plan{}
}

// AddTask appends a task depending on the given (already-added) task
// IDs and returns its own new TaskID. Passing a TaskID not yet added is
// a programming error (panics), since the plan must be acyclic and
// fully known before execution begins.
func (p *Plan) AddTask(run TaskFunc, deps ...TaskID) TaskID {
	id := TaskID(len(p.tasks))
	for _, d := range deps {
		if d >= id {
			panic("schedule: task depends on a task added at or after itself")
		}
	}
	p.tasks = append(p.tasks, taskNode{id: id, deps: deps, run: run})
	return id
}

// Len returns the number of tasks in the plan.
func (p *Plan) Len() int { return len(p.tasks) }
