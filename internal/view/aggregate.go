package view

import (
	"time"

	"twinflow/internal/task"
	"twinflow/internal/urgency"
)

// Counts feeds the filter badges.
type Counts struct {
	All        int
	Pending    int
	InProgress int
	// Completed counts tasks whose Completed() is true.
	Completed int
	ByStatus  map[task.Status]int
}

// For returns the badge count for a filter tab.
func (c Counts) For(f StatusFilter) int {
	switch f {
	case "", FilterAll:
		return c.All
	case StatusFilter(task.StatusCompleted):
		return c.Completed
	}
	return c.ByStatus[task.Status(f)]
}

// CountByStatus tallies tasks per status in one pass.
func CountByStatus(tasks []task.Task) Counts {
	c := Counts{
		All:      len(tasks),
		ByStatus: make(map[task.Status]int, len(task.Statuses())),
	}
	for _, s := range task.Statuses() {
		c.ByStatus[s] = 0
	}
	for _, t := range tasks {
		c.ByStatus[t.Status]++
		if t.Completed() {
			c.Completed++
		}
	}
	c.Pending = c.ByStatus[task.StatusPending]
	c.InProgress = c.ByStatus[task.StatusInProgress]
	return c
}

// Badges are the priority and urgency markers over open (not completed) tasks.
type Badges struct {
	ByPriority map[task.Priority]int
	Urgent     int
	Overdue    int
}

// BadgesFor counts open tasks per priority and how many are due soon or overdue at now.
func BadgesFor(tasks []task.Task, now time.Time) Badges {
	b := Badges{ByPriority: make(map[task.Priority]int, len(task.Priorities()))}
	for _, p := range task.Priorities() {
		b.ByPriority[p] = 0
	}
	for _, t := range tasks {
		if t.Completed() {
			continue
		}
		b.ByPriority[t.Priority]++
		if t.DueDate.IsZero() {
			continue
		}
		sig := urgency.At(t.DueDate, now)
		if sig.Urgent {
			b.Urgent++
		}
		if sig.Overdue() {
			b.Overdue++
		}
	}
	return b
}

// Model is everything the task list screen renders.
type Model struct {
	Query   Query
	Visible []task.Task
	Counts  Counts
	Badges  Badges
}

// Build derives the view model. Counts and badges cover all tasks, not only the visible ones.
func Build(tasks []task.Task, q Query, now time.Time) Model {
	return Model{
		Query:   q,
		Visible: Filter(tasks, q),
		Counts:  CountByStatus(tasks),
		Badges:  BadgesFor(tasks, now),
	}
}
