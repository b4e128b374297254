// Package view derives what the dashboard shows from the current task list.
//
// Everything here is a pure function of its inputs: the task slice is never
// modified and calling twice with the same arguments gives the same answer.
package view

import (
	"strings"

	"twinflow/internal/task"
)

// StatusFilter selects tasks by status. FilterAll selects every task.
type StatusFilter string

const FilterAll StatusFilter = "all"

// Filters lists the filter tabs in display order.
func Filters() []StatusFilter {
	out := []StatusFilter{FilterAll}
	for _, s := range task.Statuses() {
		out = append(out, StatusFilter(s))
	}
	return out
}

// ParseStatusFilter accepts "all", the empty string, or any status spelling.
func ParseStatusFilter(v string) (StatusFilter, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", string(FilterAll):
		return FilterAll, nil
	}
	s, err := task.ParseStatus(v)
	if err != nil {
		return "", err
	}
	return StatusFilter(s), nil
}

// Label is the badge text for the filter.
func (f StatusFilter) Label() string {
	if f == "" || f == FilterAll {
		return "All"
	}
	return task.Status(f).Label()
}

// Next returns the filter after f, wrapping around.
func (f StatusFilter) Next() StatusFilter {
	all := Filters()
	for i, v := range all {
		if v == f {
			return all[(i+1)%len(all)]
		}
	}
	return FilterAll
}

func (f StatusFilter) matches(t task.Task) bool {
	if f == "" || f == FilterAll {
		return true
	}
	return t.Status == task.Status(f)
}

// Query is what the user asked to see.
type Query struct {
	Status StatusFilter
	Search string
}

// Filter returns the tasks matching both the status filter and the search text,
// in their original order.
//
// Search is a case-insensitive substring match on title or description.
func Filter(tasks []task.Task, q Query) []task.Task {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if !q.Status.matches(t) {
			continue
		}
		if needle != "" && !matchesText(t, needle) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchesText(t task.Task, needle string) bool {
	return strings.Contains(strings.ToLower(t.Title), needle) ||
		strings.Contains(strings.ToLower(t.Description), needle)
}
