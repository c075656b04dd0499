package models

import (
	"context"
	"errors"
	"time"

	"github.com/duitrumah/household_backend/utils"
	"gorm.io/gorm"
)

type LedgerEntry struct {
	ID          int       `gorm:"primary_key" json:"id"`
	HouseholdId string    `gorm:"size:64;index;not null" json:"household_id"`
	AccountId   int       `gorm:"index;not null;index:idx_le_account,priority:1" json:"account_id" binding:"required"`
	EntryType   EntryType `gorm:"type:enum('DEBIT','CREDIT');size:10;not null" json:"entry_type" binding:"required"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Currency    string    `gorm:"size:3;not null" json:"currency"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index:idx_le_account,priority:2" json:"created_at"`
}

// Ledger immutability guardrails:
// - ledger_entries are append-only (no updates/deletes).
// - Transactions are reversed by new entries, never edited in place.

func (e *LedgerEntry) BeforeUpdate(tx *gorm.DB) error {
	return errors.New("immutable ledger: ledger_entries cannot be updated")
}

func (e *LedgerEntry) BeforeDelete(tx *gorm.DB) error {
	return errors.New("immutable ledger: ledger_entries cannot be deleted")
}

func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.Amount < 0 {
		return utils.NewValidationError("ledger entry amount must not be negative")
	}
	if !e.EntryType.Valid() {
		return utils.NewValidationError("ledger entry type must be DEBIT or CREDIT")
	}
	return nil
}

func GetLedgerEntries(ctx context.Context, db *gorm.DB, accountId int) ([]LedgerEntry, error) {
	var entries []LedgerEntry
	err := db.WithContext(ctx).
		Where("account_id = ?", accountId).
		Order("id").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
