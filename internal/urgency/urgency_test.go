package urgency

import (
	"testing"
	"time"
)

var now = time.Date(2024, 1, 25, 10, 0, 0, 0, time.UTC)

func TestDaysRemaining(t *testing.T) {
	tests := []struct {
		name string
		due  time.Time
		want int
	}{
		{"three days ahead", now.Add(3 * 24 * time.Hour), 3},
		{"two days behind", now.Add(-2 * 24 * time.Hour), -2},
		{"same instant", now, 0},
		{"partial day rounds up", now.Add(25 * time.Hour), 2},
		{"one hour ahead", now.Add(time.Hour), 1},
		{"one hour behind", now.Add(-time.Hour), 0},
		{"just over a day behind", now.Add(-25 * time.Hour), -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysRemaining(tt.due, now); got != tt.want {
				t.Errorf("DaysRemaining: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsUrgent(t *testing.T) {
	tests := []struct {
		days int
		want bool
	}{
		{7, true},
		{8, false},
		{-1, true},
		{0, true},
		{30, false},
	}
	for _, tt := range tests {
		if got := IsUrgent(tt.days); got != tt.want {
			t.Errorf("IsUrgent(%d): got %v, want %v", tt.days, got, tt.want)
		}
	}
}

func TestEvaluateUsesInjectedClock(t *testing.T) {
	due := now.Add(10 * 24 * time.Hour)
	s := Evaluate(due, FixedClock(now))
	if s.Days != 10 || s.Urgent {
		t.Errorf("got %+v, want 10 days, not urgent", s)
	}
	s = Evaluate(due, FixedClock(now.Add(4*24*time.Hour)))
	if s.Days != 6 || !s.Urgent {
		t.Errorf("got %+v, want 6 days, urgent", s)
	}
}

func TestSignalLabel(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{0, "Due today"},
		{1, "Due in 1 day"},
		{12, "Due in 12 days"},
		{-1, "Overdue by 1 day"},
		{-4, "Overdue by 4 days"},
	}
	for _, tt := range tests {
		if got := (Signal{Days: tt.days}).Label(); got != tt.want {
			t.Errorf("Label(%d): got %q, want %q", tt.days, got, tt.want)
		}
	}
	if !(Signal{Days: -3}).Overdue() {
		t.Error("expected -3 days to be overdue")
	}
}
