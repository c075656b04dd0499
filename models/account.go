package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/duitrumah/household_backend/utils"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var validate = validator.New()

type Account struct {
	ID          int            `gorm:"primary_key" json:"id"`
	HouseholdId string         `gorm:"size:64;index;not null" json:"household_id"`
	Type        AccountType    `gorm:"type:enum('ASSET','LIABILITY');index;size:10;not null" json:"type" binding:"required"`
	Subtype     AccountSubtype `gorm:"size:50;index" json:"subtype"`
	Name        string         `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Currency    string         `gorm:"size:3;not null" json:"currency" binding:"required"`
	// StoredBalance is a cached view of the ledger in minor currency units.
	// It may lag the calculated balance until an explicit sync (see workflow.LedgerService).
	StoredBalance int64     `gorm:"not null;default:0" json:"stored_balance"`
	IsActive      *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAccount struct {
	Type           AccountType    `json:"type" validate:"required"`
	Subtype        AccountSubtype `json:"subtype" validate:"required"`
	Name           string         `json:"name" validate:"required"`
	Currency       string         `json:"currency" validate:"required,iso4217"`
	OpeningBalance int64          `json:"opening_balance"`
}

func (input *NewAccount) validate() error {
	if err := validate.Struct(input); err != nil {
		if fields, ok := err.(validator.ValidationErrors); ok && len(fields) > 0 {
			return utils.NewValidationError(fmt.Sprintf("invalid account: field %s failed rule %s", fields[0].Field(), fields[0].Tag()))
		}
		return utils.NewValidationError("invalid account: " + err.Error())
	}
	if !input.Type.Valid() {
		return utils.NewValidationError("account type must be ASSET or LIABILITY")
	}
	if !input.Subtype.ValidFor(input.Type) {
		return utils.NewValidationError("subtype " + string(input.Subtype) + " is not valid for " + string(input.Type) + " accounts")
	}
	if input.OpeningBalance < 0 {
		return utils.NewValidationError("opening balance must not be negative")
	}
	return nil
}

// CreateAccount creates the account and, when an opening balance is given,
// the opening ledger entry that backs it (debit for assets, credit for liabilities).
func CreateAccount(ctx context.Context, db *gorm.DB, input *NewAccount) (*Account, error) {

	householdId, ok := utils.GetHouseholdIdFromContext(ctx)
	if !ok || householdId == "" {
		return nil, errors.New("household id is required")
	}

	if err := input.validate(); err != nil {
		return nil, err
	}

	account := Account{
		HouseholdId:   householdId,
		Type:          input.Type,
		Subtype:       input.Subtype,
		Name:          input.Name,
		Currency:      input.Currency,
		StoredBalance: input.OpeningBalance,
		IsActive:      utils.NewTrue(),
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&account).Error; err != nil {
			return err
		}
		if input.OpeningBalance > 0 {
			entryType := EntryTypeDebit
			if input.Type == AccountTypeLiability {
				entryType = EntryTypeCredit
			}
			entry := LedgerEntry{
				HouseholdId: householdId,
				AccountId:   account.ID,
				EntryType:   entryType,
				Amount:      input.OpeningBalance,
				Currency:    input.Currency,
			}
			return tx.Create(&entry).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func GetAccount(ctx context.Context, db *gorm.DB, id int) (*Account, error) {

	householdId, ok := utils.GetHouseholdIdFromContext(ctx)
	if !ok || householdId == "" {
		return nil, errors.New("household id is required")
	}

	var account Account
	err := db.WithContext(ctx).
		Where("household_id = ?", householdId).
		First(&account, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &account, nil
}

func GetAccounts(ctx context.Context, db *gorm.DB, accountType *AccountType) ([]*Account, error) {

	householdId, ok := utils.GetHouseholdIdFromContext(ctx)
	if !ok || householdId == "" {
		return nil, errors.New("household id is required")
	}

	var results []*Account
	dbCtx := db.WithContext(ctx).Where("household_id = ?", householdId)
	if accountType != nil {
		dbCtx = dbCtx.Where("type = ?", *accountType)
	}
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteAccount hard-deletes an account without ledger activity and
// soft-deactivates one that has entries.
func DeleteAccount(ctx context.Context, db *gorm.DB, id int) (*Account, error) {

	account, err := GetAccount(ctx, db, id)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := db.WithContext(ctx).Model(&LedgerEntry{}).
		Where("account_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}

	if count > 0 {
		err = db.WithContext(ctx).Model(account).Update("is_active", false).Error
		if err != nil {
			return nil, err
		}
		account.IsActive = utils.NewFalse()
		return account, nil
	}

	err = db.WithContext(ctx).Delete(account).Error
	if err != nil {
		return nil, err
	}
	return account, nil
}
