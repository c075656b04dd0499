package workflow

import (
	"strings"
	"testing"
	"time"

	"github.com/duitrumah/household_backend/models"
	"github.com/duitrumah/household_backend/utils"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validMonthlyBudget() *NewBudget {
	return &NewBudget{
		Name:      "Groceries January",
		Period:    models.BudgetPeriodMonthly,
		Currency:  "IDR",
		StartDate: date(2024, time.January, 1),
		EndDate:   date(2024, time.January, 31),
		Categories: []NewBudgetCategory{
			{CategoryId: 1, CategoryName: "Groceries", Allocated: 5_000_000},
			{CategoryId: 2, CategoryName: "Transport", Allocated: 2_000_000},
		},
	}
}

func TestValidateNewBudget_ValidPasses(t *testing.T) {
	if err := ValidateNewBudget(validMonthlyBudget(), nil); err != nil {
		t.Fatalf("valid budget rejected: %v", err)
	}
}

func TestValidateNewBudget_StartMustPrecedeEnd(t *testing.T) {
	input := validMonthlyBudget()
	input.StartDate, input.EndDate = input.EndDate, input.StartDate

	err := ValidateNewBudget(input, nil)
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateNewBudget_PeriodSpanBounds(t *testing.T) {
	cases := []struct {
		name   string
		period models.BudgetPeriod
		start  time.Time
		end    time.Time
		wantOk bool
	}{
		{"weekly 7 days", models.BudgetPeriodWeekly, date(2024, time.March, 4), date(2024, time.March, 11), true},
		{"weekly 10 days", models.BudgetPeriodWeekly, date(2024, time.March, 4), date(2024, time.March, 14), false},
		{"monthly 31 days", models.BudgetPeriodMonthly, date(2024, time.January, 1), date(2024, time.February, 1), true},
		{"monthly 14 days", models.BudgetPeriodMonthly, date(2024, time.January, 1), date(2024, time.January, 15), false},
		{"yearly 366 days (leap)", models.BudgetPeriodYearly, date(2024, time.January, 1), date(2025, time.January, 1), true},
		{"yearly 200 days", models.BudgetPeriodYearly, date(2024, time.January, 1), date(2024, time.July, 19), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validMonthlyBudget()
			input.Period = tc.period
			input.StartDate = tc.start
			input.EndDate = tc.end

			err := ValidateNewBudget(input, nil)
			if tc.wantOk && err != nil {
				t.Fatalf("expected span to be accepted, got %v", err)
			}
			if !tc.wantOk && !utils.IsValidationError(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestValidateNewBudget_RequiresAtLeastOneCategory(t *testing.T) {
	input := validMonthlyBudget()
	input.Categories = nil

	if err := ValidateNewBudget(input, nil); !utils.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateNewBudget_RejectsDuplicateCategory(t *testing.T) {
	input := validMonthlyBudget()
	input.Categories = append(input.Categories, NewBudgetCategory{CategoryId: 1, Allocated: 1_000_000})

	err := ValidateNewBudget(input, nil)
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestValidateNewBudget_CategoryAmountBounds(t *testing.T) {
	t.Run("negative allocation", func(t *testing.T) {
		input := validMonthlyBudget()
		input.Categories[0].Allocated = -1
		if err := ValidateNewBudget(input, nil); !utils.IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("above per-category ceiling", func(t *testing.T) {
		input := validMonthlyBudget()
		input.Categories[0].Allocated = CategoryAllocationCeiling + 1
		if err := ValidateNewBudget(input, nil); !utils.IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("at per-category ceiling", func(t *testing.T) {
		input := validMonthlyBudget()
		input.Categories[0].Allocated = CategoryAllocationCeiling
		input.Categories[1].Allocated = 0
		if err := ValidateNewBudget(input, nil); err != nil {
			t.Fatalf("ceiling value must be accepted: %v", err)
		}
	})

	t.Run("negative carry-over", func(t *testing.T) {
		input := validMonthlyBudget()
		input.Categories[0].CarryOver = -500
		if err := ValidateNewBudget(input, nil); !utils.IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestValidateNewBudget_TotalBounds(t *testing.T) {
	t.Run("below floor", func(t *testing.T) {
		input := validMonthlyBudget()
		input.Categories = []NewBudgetCategory{{CategoryId: 1, Allocated: BudgetTotalFloor - 1}}
		if err := ValidateNewBudget(input, nil); !utils.IsValidationError(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("carry-over counts toward total", func(t *testing.T) {
		input := validMonthlyBudget()
		input.Categories = []NewBudgetCategory{{CategoryId: 1, Allocated: BudgetTotalFloor - 500, CarryOver: 500}}
		if err := ValidateNewBudget(input, nil); err != nil {
			t.Fatalf("carry-over must count toward the floor: %v", err)
		}
	})
}

func TestValidateNewBudget_AdmitsSingleCategoryMonthlyTotals(t *testing.T) {
	// A one-category monthly budget and the next-period budget it rolls into
	// must both clear the aggregate floor.
	input := validMonthlyBudget()
	input.Categories = []NewBudgetCategory{
		{CategoryId: 1, CategoryName: "Groceries", Allocated: 500_000},
	}
	if err := ValidateNewBudget(input, nil); err != nil {
		t.Fatalf("500000 total rejected: %v", err)
	}

	input.Categories[0].CarryOver = 300_000
	if err := ValidateNewBudget(input, nil); err != nil {
		t.Fatalf("800000 total rejected: %v", err)
	}
}

func TestValidateNewBudget_RejectsOverlapWithActiveBudget(t *testing.T) {
	existing := []models.Budget{
		{
			Name:      "January",
			StartDate: date(2024, time.January, 10),
			EndDate:   date(2024, time.January, 20),
		},
	}

	input := validMonthlyBudget()
	input.StartDate = date(2024, time.January, 15)
	input.EndDate = date(2024, time.February, 15)

	err := ValidateNewBudget(input, existing)
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "overlap") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestValidateNewBudget_AdjacentBudgetsDoNotOverlap(t *testing.T) {
	existing := []models.Budget{
		{
			Name:      "January",
			StartDate: date(2024, time.January, 1),
			EndDate:   date(2024, time.January, 31),
		},
	}

	input := validMonthlyBudget()
	input.Name = "February"
	input.StartDate = date(2024, time.February, 1)
	input.EndDate = date(2024, time.February, 29)

	if err := ValidateNewBudget(input, existing); err != nil {
		t.Fatalf("back-to-back budgets rejected: %v", err)
	}
}

func TestIntervalsOverlap_InclusiveBounds(t *testing.T) {
	jan1 := date(2024, time.January, 1)
	jan31 := date(2024, time.January, 31)
	feb29 := date(2024, time.February, 29)

	if !IntervalsOverlap(jan1, jan31, jan31, feb29) {
		t.Fatal("shared endpoint must count as overlap")
	}
	if IntervalsOverlap(jan1, jan31, date(2024, time.February, 1), feb29) {
		t.Fatal("disjoint intervals must not overlap")
	}
	if !IntervalsOverlap(jan1, feb29, jan31, date(2024, time.February, 10)) {
		t.Fatal("containment must count as overlap")
	}
}

func TestBudgetSpanDays(t *testing.T) {
	if got := BudgetSpanDays(date(2024, time.January, 1), date(2024, time.January, 31)); got != 30 {
		t.Fatalf("span = %d, want 30", got)
	}
	// Partial days round up.
	start := time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC)
	if got := BudgetSpanDays(start, end); got != 8 {
		t.Fatalf("span = %d, want 8", got)
	}
}
