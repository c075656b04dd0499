package models

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Transaction is the event source for the spend tracker. Amount is signed:
// negative = outflow/expense, non-negative = inflow/income. Only strictly
// negative amounts count as spend.
type Transaction struct {
	ID          int       `gorm:"primary_key" json:"id"`
	HouseholdId string    `gorm:"size:64;index;not null;index:idx_txn_household_date,priority:1" json:"household_id"`
	CategoryId  *int      `gorm:"index" json:"category_id"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Date        time.Time `gorm:"index;not null;index:idx_txn_household_date,priority:2" json:"date"`
	Currency    string    `gorm:"size:3;not null" json:"currency"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// SumSpentByCategory re-derives spend per category over a period from the
// transaction store. It is the authoritative input for recalculation.
func SumSpentByCategory(ctx context.Context, db *gorm.DB, householdId string, start time.Time, end time.Time) (map[int]int64, error) {

	type row struct {
		CategoryId int
		Spent      int64
	}

	sql := `
	SELECT
	    category_id,
	    SUM(-amount) AS spent
	FROM
	    transactions
	WHERE
	    household_id = ?
	        AND category_id IS NOT NULL
	        AND amount < 0
	        AND date >= ?
	        AND date <= ?
	GROUP BY category_id
	`

	var rows []row
	if err := db.WithContext(ctx).Raw(sql, householdId, start, end).Scan(&rows).Error; err != nil {
		return nil, err
	}

	sums := make(map[int]int64, len(rows))
	for _, r := range rows {
		sums[r.CategoryId] = r.Spent
	}
	return sums, nil
}
