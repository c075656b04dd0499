package models

type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
)

func (t AccountType) Valid() bool {
	return t == AccountTypeAsset || t == AccountTypeLiability
}

// AccountSubtype is type-dependent: asset subtypes are only valid on ASSET
// accounts and liability subtypes on LIABILITY accounts.
type AccountSubtype string

const (
	AccountSubtypeCash       AccountSubtype = "Cash"
	AccountSubtypeBank       AccountSubtype = "Bank"
	AccountSubtypeEWallet    AccountSubtype = "EWallet"
	AccountSubtypeInvestment AccountSubtype = "Investment"
	AccountSubtypeProperty   AccountSubtype = "Property"

	AccountSubtypeCreditCard AccountSubtype = "CreditCard"
	AccountSubtypeLoan       AccountSubtype = "Loan"
	AccountSubtypeMortgage   AccountSubtype = "Mortgage"
	AccountSubtypePayLater   AccountSubtype = "PayLater"
)

var assetSubtypes = map[AccountSubtype]bool{
	AccountSubtypeCash:       true,
	AccountSubtypeBank:       true,
	AccountSubtypeEWallet:    true,
	AccountSubtypeInvestment: true,
	AccountSubtypeProperty:   true,
}

var liabilitySubtypes = map[AccountSubtype]bool{
	AccountSubtypeCreditCard: true,
	AccountSubtypeLoan:       true,
	AccountSubtypeMortgage:   true,
	AccountSubtypePayLater:   true,
}

func (s AccountSubtype) ValidFor(t AccountType) bool {
	switch t {
	case AccountTypeAsset:
		return assetSubtypes[s]
	case AccountTypeLiability:
		return liabilitySubtypes[s]
	}
	return false
}

type EntryType string

const (
	EntryTypeDebit  EntryType = "DEBIT"
	EntryTypeCredit EntryType = "CREDIT"
)

func (t EntryType) Valid() bool {
	return t == EntryTypeDebit || t == EntryTypeCredit
}

type BudgetPeriod string

const (
	BudgetPeriodWeekly  BudgetPeriod = "WEEKLY"
	BudgetPeriodMonthly BudgetPeriod = "MONTHLY"
	BudgetPeriodYearly  BudgetPeriod = "YEARLY"
)

func (p BudgetPeriod) Valid() bool {
	switch p {
	case BudgetPeriodWeekly, BudgetPeriodMonthly, BudgetPeriodYearly:
		return true
	}
	return false
}

type AlertLevel string

const (
	AlertLevelInfo     AlertLevel = "INFO"
	AlertLevelWarning  AlertLevel = "WARNING"
	AlertLevelCritical AlertLevel = "CRITICAL"
)

// EventAction mirrors the transaction lifecycle actions carried on the bus.
type EventAction string

const (
	EventActionCreate EventAction = "C"
	EventActionUpdate EventAction = "U"
	EventActionDelete EventAction = "D"
)

// Event names published/consumed by this core.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionUpdated = "transaction.updated"
	EventTransactionDeleted = "transaction.deleted"

	EventBudgetCreated          = "budget.created"
	EventBudgetUpdated          = "budget.updated"
	EventBudgetDeleted          = "budget.deleted"
	EventBudgetOverspent        = "budget.overspent"
	EventBudgetThresholdReached = "budget.threshold.reached"
	EventBudgetPeriodEnded      = "budget.period.ended"
	EventBudgetCarryOverCreated = "budget.carryover.created"
)

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)
