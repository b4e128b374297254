package task

import (
	"fmt"
	"strings"
)

// Store is the ordered in-memory task collection and the only place tasks change.
//
// Insertion order is display order. A Store is driven by a single event loop and
// is not safe for concurrent use.
type Store struct {
	tasks []Task
	index map[string]int
	seen  map[string]struct{}
}

// NewStore returns a store seeded with tasks in the given order.
func NewStore(tasks ...Task) (*Store, error) {
	s := &Store{
		index: make(map[string]int, len(tasks)),
		seen:  make(map[string]struct{}, len(tasks)),
	}
	for _, t := range tasks {
		if err := s.Add(t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends t. Titles may repeat; ids may not.
func (s *Store) Add(t Task) error {
	if t.ID == "" {
		return invalidf("id", "task has no id")
	}
	if _, ok := s.seen[t.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateID, t.ID)
	}
	if s.index == nil {
		s.index = map[string]int{}
		s.seen = map[string]struct{}{}
	}
	s.seen[t.ID] = struct{}{}
	s.index[t.ID] = len(s.tasks)
	s.tasks = append(s.tasks, t)
	return nil
}

// ToggleCompletion flips the completion of the task with the given id and returns it.
//
// Completing sets status completed from any state. Un-completing always lands on
// pending: an earlier in-progress status is not restored.
func (s *Store) ToggleCompletion(id string) (Task, error) {
	i, ok := s.index[id]
	if !ok {
		return Task{}, &NotFoundError{ID: id}
	}
	t := s.tasks[i]
	if t.Completed() {
		t.Status = StatusPending
	} else {
		t.Status = StatusCompleted
	}
	s.tasks[i] = t
	return t, nil
}

// Replace swaps in a whole new record for an existing id, keeping its position.
func (s *Store) Replace(t Task) error {
	i, ok := s.index[t.ID]
	if !ok {
		return &NotFoundError{ID: t.ID}
	}
	if strings.TrimSpace(t.Title) == "" {
		return invalidf("title", "title cannot be empty")
	}
	s.tasks[i] = t
	return nil
}

// Get returns the task with the given id.
func (s *Store) Get(id string) (Task, error) {
	i, ok := s.index[id]
	if !ok {
		return Task{}, &NotFoundError{ID: id}
	}
	return s.tasks[i], nil
}

// List returns a snapshot of every task in insertion order.
func (s *Store) List() []Task {
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Len reports how many tasks the store holds.
func (s *Store) Len() int {
	return len(s.tasks)
}
