package models

import (
	"testing"
	"time"
)

func TestPriorityRank(t *testing.T) {
	t.Parallel()

	ordered := []string{PriorityUrgent, PriorityHigh, PriorityMedium, PriorityLow}
	for i := 1; i < len(ordered); i++ {
		if PriorityRank(ordered[i-1]) >= PriorityRank(ordered[i]) {
			t.Fatalf("%s must rank before %s", ordered[i-1], ordered[i])
		}
	}
	if PriorityRank("bogus") <= PriorityRank(PriorityLow) {
		t.Fatal("unknown priority must sort last")
	}
}

func TestTask_IsOverdue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	due := func(y int, m time.Month, d int) *time.Time {
		v := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		return &v
	}

	cases := []struct {
		name string
		task Task
		want bool
	}{
		{"no_due_date", Task{Status: StatusPending}, false},
		{"due_yesterday", Task{Status: StatusPending, DueDate: due(2026, 8, 27)}, true},
		{"due_today", Task{Status: StatusPending, DueDate: due(2026, 8, 28)}, false},
		{"due_tomorrow", Task{Status: StatusInProgress, DueDate: due(2026, 8, 29)}, false},
		{"completed_never_overdue", Task{Status: StatusCompleted, DueDate: due(2026, 1, 1)}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := tc.task.IsOverdue(now); got != tc.want {
				t.Fatalf("IsOverdue = %v, want %v", got, tc.want)
			}
		})
	}
}
