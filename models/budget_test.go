package models

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBudgetCoversDate_InclusiveBounds(t *testing.T) {
	budget := &Budget{
		StartDate: day(2024, time.March, 1),
		EndDate:   day(2024, time.March, 31),
	}

	cases := []struct {
		name string
		date time.Time
		want bool
	}{
		{"start day", day(2024, time.March, 1), true},
		{"end day", day(2024, time.March, 31), true},
		{"inside", day(2024, time.March, 15), true},
		{"day before start", day(2024, time.February, 29), false},
		{"day after end", day(2024, time.April, 1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := budget.CoversDate(tc.date); got != tc.want {
				t.Fatalf("CoversDate(%s) = %v, want %v", tc.date.Format("2006-01-02"), got, tc.want)
			}
		})
	}
}

func TestBudgetCategoryDerivedAmounts(t *testing.T) {
	c := &BudgetCategory{Allocated: 500_000, CarryOver: 300_000, Spent: 900_000}

	if c.TotalAllocated() != 800_000 {
		t.Fatalf("TotalAllocated = %d, want 800000", c.TotalAllocated())
	}
	if c.Remaining() != -100_000 {
		t.Fatalf("Remaining = %d, want -100000", c.Remaining())
	}
	if c.OverspentAmount() != 100_000 {
		t.Fatalf("OverspentAmount = %d, want 100000", c.OverspentAmount())
	}

	c.Spent = 100_000
	if c.OverspentAmount() != 0 {
		t.Fatalf("OverspentAmount = %d, want 0 when under allowance", c.OverspentAmount())
	}
}
