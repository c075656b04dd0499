package workflow

import (
	"context"

	"github.com/duitrumah/household_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LedgerService derives account balances from the ledger. The stored balance
// on the account row is a cache: it may lag until SyncBalance is called, and
// the divergence is resolved only by that explicit, opt-in operation.
type LedgerService struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewLedgerService(db *gorm.DB, logger *logrus.Logger) *LedgerService {
	return &LedgerService{DB: db, Logger: logger}
}

// FoldLedgerEntries folds entries by double-entry polarity: assets increase
// on the debit side, liabilities on the credit side.
func FoldLedgerEntries(accountType models.AccountType, entries []models.LedgerEntry) int64 {
	var balance int64
	for _, entry := range entries {
		sign := int64(1)
		if entry.EntryType == models.EntryTypeCredit {
			sign = -1
		}
		if accountType == models.AccountTypeLiability {
			sign = -sign
		}
		balance += sign * entry.Amount
	}
	return balance
}

// CalculateBalance is the authoritative (slow) balance in minor currency units.
func (s *LedgerService) CalculateBalance(ctx context.Context, accountId int) (int64, error) {
	account, err := models.GetAccount(ctx, s.DB, accountId)
	if err != nil {
		return 0, err
	}
	entries, err := models.GetLedgerEntries(ctx, s.DB, account.ID)
	if err != nil {
		return 0, err
	}
	return FoldLedgerEntries(account.Type, entries), nil
}

// StoredBalance is the cached (fast, possibly stale) balance.
func (s *LedgerService) StoredBalance(ctx context.Context, accountId int) (int64, error) {
	account, err := models.GetAccount(ctx, s.DB, accountId)
	if err != nil {
		return 0, err
	}
	return account.StoredBalance, nil
}

// ValidateIntegrity reports whether stored and calculated balances agree.
// A mismatch is a consistency warning, not an error.
func (s *LedgerService) ValidateIntegrity(ctx context.Context, accountId int) (bool, error) {
	account, err := models.GetAccount(ctx, s.DB, accountId)
	if err != nil {
		return false, err
	}
	entries, err := models.GetLedgerEntries(ctx, s.DB, account.ID)
	if err != nil {
		return false, err
	}
	return FoldLedgerEntries(account.Type, entries) == account.StoredBalance, nil
}

// SyncBalance writes the calculated balance into the stored balance field.
// Never called automatically.
func (s *LedgerService) SyncBalance(ctx context.Context, accountId int) (int64, error) {
	account, err := models.GetAccount(ctx, s.DB, accountId)
	if err != nil {
		return 0, err
	}
	entries, err := models.GetLedgerEntries(ctx, s.DB, account.ID)
	if err != nil {
		return 0, err
	}
	balance := FoldLedgerEntries(account.Type, entries)
	err = s.DB.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", account.ID).
		Update("stored_balance", balance).Error
	if err != nil {
		return 0, err
	}
	return balance, nil
}
