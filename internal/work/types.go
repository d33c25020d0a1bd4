package work

import (
	"context"
	"time"
)

// TaskFunc performs one scheduled step.
type TaskFunc func(ctx context.Context)

// Task is one queued unit of work.
type Task struct {
	// ID identifies the task in logs (e.g. "<order-id>:slice:3").
	ID string

	// At is the earliest time the task may run.
	At time.Time

	// Run performs the work.
	Run TaskFunc

	seq   uint64
	index int
}

// taskQueue is a min-heap of tasks ordered by At, then by submission order.
type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].At.Equal(q[j].At) {
		return q[i].seq < q[j].seq
	}
	return q[i].At.Before(q[j].At)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*Task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
