// Package task holds the task entity and the in-memory store that owns it.
package task

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Priority ranks how much attention a task needs.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Status is the workflow stage of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// DefaultAssignee is used when a task is created without an owner.
const DefaultAssignee = "Unassigned"

const dateLayout = "2006-01-02"

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusCompleted}
}

// Priorities lists every priority from lowest to highest.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh}
}

// ParsePriority maps user input onto a Priority. Empty input means medium.
func ParsePriority(v string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	}
	return "", invalidf("priority", "unknown priority %q", v)
}

// ParseStatus maps user input onto a Status. Empty input means pending.
func ParseStatus(v string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return StatusPending, nil
	case "pending":
		return StatusPending, nil
	case "in-progress", "in_progress", "inprogress":
		return StatusInProgress, nil
	case "completed":
		return StatusCompleted, nil
	}
	return "", invalidf("status", "unknown status %q", v)
}

// Label is the human form used on badges.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	}
	return string(s)
}

// Task is a unit of trackable project work.
//
// Status is the single source of truth for completion; Completed derives from it.
type Task struct {
	ID          string
	Title       string
	Description string
	Priority    Priority
	Status      Status
	Assignee    string
	DueDate     time.Time
	CreatedAt   time.Time
}

// Completed reports whether the task is done.
func (t Task) Completed() bool {
	return t.Status == StatusCompleted
}

// DueString renders the due date as YYYY-MM-DD.
func (t Task) DueString() string {
	if t.DueDate.IsZero() {
		return ""
	}
	return t.DueDate.Format(dateLayout)
}

// Draft is the user supplied part of a task. Zero fields take defaults.
type Draft struct {
	Title       string
	Description string
	Priority    Priority
	Status      Status
	Assignee    string
	DueDate     time.Time
}

// New validates d and builds a task with a fresh ID.
func New(d Draft, now time.Time) (Task, error) {
	t, err := d.build(now)
	if err != nil {
		return Task{}, err
	}
	t.ID = NewID()
	t.CreatedAt = now.UTC()
	return t, nil
}

// WithEdits replaces every editable field of t with d, keeping ID and CreatedAt.
func (t Task) WithEdits(d Draft, now time.Time) (Task, error) {
	next, err := d.build(now)
	if err != nil {
		return Task{}, err
	}
	next.ID = t.ID
	next.CreatedAt = t.CreatedAt
	return next, nil
}

func (d Draft) build(now time.Time) (Task, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return Task{}, invalidf("title", "title cannot be empty")
	}
	priority, err := ParsePriority(string(d.Priority))
	if err != nil {
		return Task{}, err
	}
	status, err := ParseStatus(string(d.Status))
	if err != nil {
		return Task{}, err
	}
	t := Task{
		Title:       title,
		Description: strings.TrimSpace(d.Description),
		Priority:    priority,
		Status:      status,
		Assignee:    strings.TrimSpace(d.Assignee),
		DueDate:     d.DueDate,
	}
	if t.Assignee == "" {
		t.Assignee = DefaultAssignee
	}
	if t.DueDate.IsZero() {
		t.DueDate = Date(now)
	} else {
		t.DueDate = Date(t.DueDate)
	}
	return t, nil
}

// NewID returns a time ordered identifier, so later tasks sort after earlier ones.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Date truncates t to midnight in its own location.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate reads a YYYY-MM-DD date in the local location. Empty input yields the zero time.
func ParseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, v, time.Local)
	if err != nil {
		return time.Time{}, invalidf("due date", "expected YYYY-MM-DD, got %q", v)
	}
	return t, nil
}
