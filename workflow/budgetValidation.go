package workflow

import (
	"fmt"
	"math"
	"time"

	"github.com/duitrumah/household_backend/models"
	"github.com/duitrumah/household_backend/utils"
	"github.com/go-playground/validator/v10"
)

const (
	// Per-category allocation ceiling, minor currency units.
	CategoryAllocationCeiling int64 = 100_000_000
	// Household-level sanity bounds on the total allocation. The floor must
	// stay below typical single-category monthly totals: carry-over budgets
	// route through full validation, so a floor above them would reject
	// legitimate next-period budgets.
	BudgetTotalFloor   int64 = 100_000
	BudgetTotalCeiling int64 = 100_000_000_000
)

// Whole-day span bounds per period. The tolerance absorbs month-length
// variation and daylight-saving artifacts.
var periodSpanBounds = map[models.BudgetPeriod][2]int{
	models.BudgetPeriodWeekly:  {6, 8},
	models.BudgetPeriodMonthly: {28, 32},
	models.BudgetPeriodYearly:  {360, 370},
}

var validate = validator.New()

type NewBudgetCategory struct {
	CategoryId   int    `json:"category_id" validate:"required"`
	CategoryName string `json:"category_name"`
	Allocated    int64  `json:"allocated"`
	CarryOver    int64  `json:"carry_over"`
}

type NewBudget struct {
	Name       string              `json:"name" validate:"required"`
	Period     models.BudgetPeriod `json:"period" validate:"required"`
	Currency   string              `json:"currency" validate:"required,iso4217"`
	StartDate  time.Time           `json:"start_date" validate:"required"`
	EndDate    time.Time           `json:"end_date" validate:"required"`
	Categories []NewBudgetCategory `json:"categories" validate:"dive"`
}

func (input *NewBudget) totalAllocated() int64 {
	var total int64
	for _, c := range input.Categories {
		total += c.Allocated + c.CarryOver
	}
	return total
}

// BudgetSpanDays is the whole-day span between start and end: ceiling of the
// millisecond difference divided by one day.
func BudgetSpanDays(start, end time.Time) int {
	ms := end.Sub(start).Milliseconds()
	return int(math.Ceil(float64(ms) / float64(24*time.Hour/time.Millisecond)))
}

// IntervalsOverlap uses inclusive-bounds semantics: two intervals intersect
// if either endpoint of one falls within the other, or one contains the other.
func IntervalsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}

// ValidateNewBudget runs every creation/update rule against the candidate.
// existingActive must hold the household's other active budgets (the budget
// being modified excluded); pass nil to skip the overlap check when dates are
// unchanged on update. Any failing rule aborts the whole operation.
func ValidateNewBudget(input *NewBudget, existingActive []models.Budget) error {
	if err := validate.Struct(input); err != nil {
		if fields, ok := err.(validator.ValidationErrors); ok && len(fields) > 0 {
			return utils.NewValidationError(fmt.Sprintf("invalid budget: field %s failed rule %s", fields[0].Field(), fields[0].Tag()))
		}
		return utils.NewValidationError("invalid budget: " + err.Error())
	}

	if !input.Period.Valid() {
		return utils.NewValidationError("period must be WEEKLY, MONTHLY or YEARLY")
	}

	if !input.StartDate.Before(input.EndDate) {
		return utils.NewValidationError("start date must be before end date")
	}

	bounds := periodSpanBounds[input.Period]
	span := BudgetSpanDays(input.StartDate, input.EndDate)
	if span < bounds[0] || span > bounds[1] {
		return utils.NewValidationError(fmt.Sprintf("%s budget must span %d-%d days, got %d", input.Period, bounds[0], bounds[1], span))
	}

	if len(input.Categories) == 0 {
		return utils.NewValidationError("budget must have at least one category allocation")
	}

	seen := make(map[int]bool, len(input.Categories))
	for _, c := range input.Categories {
		if seen[c.CategoryId] {
			return utils.NewValidationError(fmt.Sprintf("duplicate allocation for category %d", c.CategoryId))
		}
		seen[c.CategoryId] = true

		if c.Allocated < 0 {
			return utils.NewValidationError(fmt.Sprintf("allocated amount for category %d must not be negative", c.CategoryId))
		}
		if c.Allocated > CategoryAllocationCeiling {
			return utils.NewValidationError(fmt.Sprintf("allocated amount for category %d exceeds the per-category ceiling", c.CategoryId))
		}
		if c.CarryOver < 0 {
			return utils.NewValidationError(fmt.Sprintf("carry-over amount for category %d must not be negative", c.CategoryId))
		}
	}

	total := input.totalAllocated()
	if total < BudgetTotalFloor || total > BudgetTotalCeiling {
		return utils.NewValidationError(fmt.Sprintf("total allocation %d is outside the allowed range [%d, %d]", total, BudgetTotalFloor, BudgetTotalCeiling))
	}

	for i := range existingActive {
		other := &existingActive[i]
		if IntervalsOverlap(input.StartDate, input.EndDate, other.StartDate, other.EndDate) {
			return utils.NewValidationError(fmt.Sprintf("budget period overlaps active budget %q (%s - %s)",
				other.Name, other.StartDate.Format("2006-01-02"), other.EndDate.Format("2006-01-02")))
		}
	}

	return nil
}
