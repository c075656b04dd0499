package reports

import (
	"context"
	"errors"
	"fmt"

	"github.com/duitrumah/household_backend/models"
	"github.com/duitrumah/household_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type BudgetSummaryDetail struct {
	CategoryId   int             `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Allocated    int64           `json:"allocated"`
	CarryOver    int64           `json:"carry_over"`
	Spent        int64           `json:"spent"`
	Remaining    int64           `json:"remaining"`
	Utilization  decimal.Decimal `json:"utilization"`
}

type BudgetSummaryResponse struct {
	BudgetId            int                   `json:"budget_id"`
	BudgetName          string                `json:"budget_name"`
	Period              models.BudgetPeriod   `json:"period"`
	Currency            string                `json:"currency"`
	StartDate           string                `json:"start_date"`
	EndDate             string                `json:"end_date"`
	TotalAllocated      int64                 `json:"total_allocated"`
	TotalSpent          int64                 `json:"total_spent"`
	TotalRemaining      int64                 `json:"total_remaining"`
	BudgetSummaryDetail []BudgetSummaryDetail `json:"budget_summary_detail"`
}

func GetBudgetSummary(ctx context.Context, db *gorm.DB, budgetId int) (*BudgetSummaryResponse, error) {
	householdId, ok := utils.GetHouseholdIdFromContext(ctx)
	if !ok || householdId == "" {
		return nil, errors.New("household id is required")
	}

	budget, err := models.GetBudget(ctx, db, budgetId)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT
	    category_id,
	    category_name,
	    allocated,
	    carry_over,
	    spent,
	    (allocated + carry_over - spent) AS remaining
	FROM
	    budget_categories
	WHERE
	    budget_id = ?
	        AND household_id = ?
	ORDER BY
	    category_name;
	`

	var details []BudgetSummaryDetail
	if err := db.WithContext(ctx).Raw(query, budget.ID, householdId).Scan(&details).Error; err != nil {
		return nil, err
	}

	response := &BudgetSummaryResponse{
		BudgetId:   budget.ID,
		BudgetName: budget.Name,
		Period:     budget.Period,
		Currency:   budget.Currency,
		StartDate:  budget.StartDate.Format("2006-01-02"),
		EndDate:    budget.EndDate.Format("2006-01-02"),
	}
	for i := range details {
		d := &details[i]
		total := d.Allocated + d.CarryOver
		if total > 0 {
			d.Utilization = decimal.NewFromInt(d.Spent).
				Mul(decimal.NewFromInt(100)).
				Div(decimal.NewFromInt(total)).
				Round(2)
		} else {
			d.Utilization = decimal.Zero
		}
		response.TotalAllocated += total
		response.TotalSpent += d.Spent
		response.TotalRemaining += total - d.Spent
	}
	response.BudgetSummaryDetail = details

	return response, nil
}

// ExportBudgetSummaryExcel writes the summary to an xlsx file.
func ExportBudgetSummaryExcel(summary *BudgetSummaryResponse, filename string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	f.SetCellValue(sheet, "A1", "Budget")
	f.SetCellValue(sheet, "B1", summary.BudgetName)
	f.SetCellValue(sheet, "A2", "Period")
	f.SetCellValue(sheet, "B2", fmt.Sprintf("%s (%s - %s)", summary.Period, summary.StartDate, summary.EndDate))

	f.SetCellValue(sheet, "A4", "Category")
	f.SetCellValue(sheet, "B4", "Allocated")
	f.SetCellValue(sheet, "C4", "CarryOver")
	f.SetCellValue(sheet, "D4", "Spent")
	f.SetCellValue(sheet, "E4", "Remaining")
	f.SetCellValue(sheet, "F4", "Utilization%")

	row := 5
	for _, d := range summary.BudgetSummaryDetail {
		f.SetCellValue(sheet, "A"+fmt.Sprint(row), d.CategoryName)
		f.SetCellValue(sheet, "B"+fmt.Sprint(row), d.Allocated)
		f.SetCellValue(sheet, "C"+fmt.Sprint(row), d.CarryOver)
		f.SetCellValue(sheet, "D"+fmt.Sprint(row), d.Spent)
		f.SetCellValue(sheet, "E"+fmt.Sprint(row), d.Remaining)
		f.SetCellValue(sheet, "F"+fmt.Sprint(row), d.Utilization.InexactFloat64())
		row++
	}

	row++
	f.SetCellValue(sheet, "A"+fmt.Sprint(row), "Total")
	f.SetCellValue(sheet, "B"+fmt.Sprint(row), summary.TotalAllocated)
	f.SetCellValue(sheet, "D"+fmt.Sprint(row), summary.TotalSpent)
	f.SetCellValue(sheet, "E"+fmt.Sprint(row), summary.TotalRemaining)

	return f.SaveAs(filename)
}
