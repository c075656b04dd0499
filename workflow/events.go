package workflow

import (
	"encoding/json"
	"time"

	"github.com/duitrumah/household_backend/models"
	"gorm.io/gorm"
)

// One payload type per event name. The bus envelope (config.EventMessage)
// carries the JSON encoding of exactly one of these, selected by EventName.

type BudgetSnapshot struct {
	Name           string              `json:"name"`
	TotalAllocated int64               `json:"total_allocated"`
	Period         models.BudgetPeriod `json:"period"`
	StartDate      time.Time           `json:"start_date"`
	EndDate        time.Time           `json:"end_date"`
}

type BudgetCreatedEvent struct {
	BudgetId       int                 `json:"budget_id"`
	Name           string              `json:"name"`
	TotalAllocated int64               `json:"total_allocated"`
	Period         models.BudgetPeriod `json:"period"`
	StartDate      time.Time           `json:"start_date"`
	EndDate        time.Time           `json:"end_date"`
}

type BudgetUpdatedEvent struct {
	BudgetId int            `json:"budget_id"`
	Previous BudgetSnapshot `json:"previous"`
	Current  BudgetSnapshot `json:"current"`
}

type BudgetDeletedEvent struct {
	BudgetId int    `json:"budget_id"`
	Name     string `json:"name"`
}

type BudgetOverspentEvent struct {
	BudgetId        int    `json:"budget_id"`
	CategoryId      int    `json:"category_id"`
	CategoryName    string `json:"category_name"`
	OverspentAmount int64  `json:"overspent_amount"`
}

type BudgetThresholdEvent struct {
	BudgetId     int               `json:"budget_id"`
	CategoryId   int               `json:"category_id"`
	CategoryName string            `json:"category_name"`
	Level        models.AlertLevel `json:"level"`
	Utilization  float64           `json:"utilization"`
	Remaining    int64             `json:"remaining"`
}

type BudgetPeriodEndedEvent struct {
	BudgetId int       `json:"budget_id"`
	Name     string    `json:"name"`
	EndDate  time.Time `json:"end_date"`
}

type BudgetCarryOverCreatedEvent struct {
	SourceBudgetId int   `json:"source_budget_id"`
	BudgetId       int   `json:"budget_id"`
	TotalCarryOver int64 `json:"total_carry_over"`
}

// TransactionSnapshot is the minimal transaction contract the spend tracker
// needs: category, signed amount in minor units, date.
type TransactionSnapshot struct {
	CategoryId *int      `json:"category_id"`
	Amount     int64     `json:"amount"`
	Date       time.Time `json:"date"`
	Currency   string    `json:"currency"`
}

// TransactionEvent covers the three transaction lifecycle events. Old is set
// for updated/deleted, New for created/updated.
type TransactionEvent struct {
	TransactionId int                  `json:"transaction_id"`
	HouseholdId   string               `json:"household_id"`
	Action        models.EventAction   `json:"action"`
	Old           *TransactionSnapshot `json:"old"`
	New           *TransactionSnapshot `json:"new"`
}

// insertEventRecord writes an outbox row inside the caller's DB transaction
// so the event commits atomically with the state change it describes.
func insertEventRecord(tx *gorm.DB, householdId string, eventName string, payload any, correlationId string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	record := models.EventRecord{
		HouseholdId:   householdId,
		EventName:     eventName,
		OccurredAt:    time.Now().UTC(),
		Payload:       data,
		PublishStatus: models.OutboxPublishStatusPending,
		CorrelationId: correlationId,
	}
	return tx.Create(&record).Error
}
