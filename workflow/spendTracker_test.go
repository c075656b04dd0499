package workflow

import (
	"sync"
	"testing"
	"time"

	"github.com/duitrumah/household_backend/models"
)

// NOTE: These tests are intentionally DB-free. They validate the intended
// spend-tracking semantics:
// - lifecycle events map to signed deltas (create +, update revert+reapply, delete -)
// - at-least-once delivery is safe via durable idempotency
// - recalculation replaces spent amounts and is idempotent by construction
//
// Full DB+PubSub integration tests should be added in an environment that can
// run MySQL + the Pub/Sub emulator.

// fakeSpendLedger mirrors the tracker's category-spent bookkeeping in memory:
// signed transaction amounts, spend iff amount < 0, deltas keyed by category.
type fakeSpendLedger struct {
	mu    sync.Mutex
	spent map[int]int64
	seen  map[string]bool
}

func newFakeSpendLedger() *fakeSpendLedger {
	return &fakeSpendLedger{spent: map[int]int64{}, seen: map[string]bool{}}
}

func (l *fakeSpendLedger) apply(snap *TransactionSnapshot, sign int64) {
	amount, tracked := SpendDelta(snap)
	if !tracked {
		return
	}
	l.spent[*snap.CategoryId] += sign * amount
}

func (l *fakeSpendLedger) process(messageID string, ev TransactionEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen[messageID] {
		return
	}
	l.seen[messageID] = true

	switch ev.Action {
	case models.EventActionCreate:
		l.apply(ev.New, +1)
	case models.EventActionUpdate:
		l.apply(ev.Old, -1)
		l.apply(ev.New, +1)
	case models.EventActionDelete:
		l.apply(ev.Old, -1)
	}
}

func snapshot(categoryId int, amount int64) *TransactionSnapshot {
	return &TransactionSnapshot{
		CategoryId: &categoryId,
		Amount:     amount,
		Date:       time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
		Currency:   "IDR",
	}
}

func TestSpendDelta_Gating(t *testing.T) {
	cases := []struct {
		name    string
		snap    *TransactionSnapshot
		want    int64
		tracked bool
	}{
		{"expense", snapshot(1, -50_000), 50_000, true},
		{"income", snapshot(1, 50_000), 0, false},
		{"zero", snapshot(1, 0), 0, false},
		{"uncategorized", &TransactionSnapshot{Amount: -50_000, Currency: "IDR"}, 0, false},
		{"nil snapshot", nil, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, tracked := SpendDelta(tc.snap)
			if got != tc.want || tracked != tc.tracked {
				t.Fatalf("SpendDelta = (%d, %v), want (%d, %v)", got, tracked, tc.want, tc.tracked)
			}
		})
	}
}

func TestMatchCategory(t *testing.T) {
	budget := &models.Budget{
		Categories: []models.BudgetCategory{
			{CategoryId: 1, CategoryName: "Groceries"},
			{CategoryId: 2, CategoryName: "Transport"},
		},
	}

	if got := matchCategory(budget, 2); got == nil || got.CategoryName != "Transport" {
		t.Fatalf("matchCategory(2) = %+v, want Transport", got)
	}
	if got := matchCategory(budget, 9); got != nil {
		t.Fatalf("matchCategory(9) = %+v, want nil", got)
	}
}

func TestSpendTracking_CreateAddsMagnitude(t *testing.T) {
	l := newFakeSpendLedger()
	l.process("m1", TransactionEvent{Action: models.EventActionCreate, New: snapshot(1, -50_000)})

	if l.spent[1] != 50_000 {
		t.Fatalf("spent = %d, want 50000", l.spent[1])
	}
}

func TestSpendTracking_PositiveAmountIsIgnored(t *testing.T) {
	l := newFakeSpendLedger()
	l.process("m1", TransactionEvent{Action: models.EventActionCreate, New: snapshot(1, 50_000)})
	l.process("m2", TransactionEvent{Action: models.EventActionCreate, New: snapshot(1, 0)})

	if l.spent[1] != 0 {
		t.Fatalf("income/zero amounts must not affect spent, got %d", l.spent[1])
	}
}

func TestSpendTracking_UncategorizedIsIgnored(t *testing.T) {
	l := newFakeSpendLedger()
	l.process("m1", TransactionEvent{
		Action: models.EventActionCreate,
		New:    &TransactionSnapshot{Amount: -50_000, Currency: "IDR"},
	})

	if len(l.spent) != 0 {
		t.Fatalf("uncategorized transaction must be a no-op, got %v", l.spent)
	}
}

func TestSpendTracking_UpdateRevertsThenReapplies(t *testing.T) {
	l := newFakeSpendLedger()
	l.process("m1", TransactionEvent{Action: models.EventActionCreate, New: snapshot(1, -50_000)})

	// Amount changed and the transaction moved to another category.
	l.process("m2", TransactionEvent{
		Action: models.EventActionUpdate,
		Old:    snapshot(1, -50_000),
		New:    snapshot(2, -80_000),
	})

	if l.spent[1] != 0 {
		t.Fatalf("old category spent = %d, want 0", l.spent[1])
	}
	if l.spent[2] != 80_000 {
		t.Fatalf("new category spent = %d, want 80000", l.spent[2])
	}
}

func TestSpendTracking_UpdateFromIncomeToSpend(t *testing.T) {
	l := newFakeSpendLedger()
	l.process("m1", TransactionEvent{Action: models.EventActionCreate, New: snapshot(1, 50_000)})
	l.process("m2", TransactionEvent{
		Action: models.EventActionUpdate,
		Old:    snapshot(1, 50_000),
		New:    snapshot(1, -30_000),
	})

	if l.spent[1] != 30_000 {
		t.Fatalf("spent = %d, want 30000", l.spent[1])
	}
}

func TestSpendTracking_DeleteRemovesEffect(t *testing.T) {
	l := newFakeSpendLedger()
	l.process("m1", TransactionEvent{Action: models.EventActionCreate, New: snapshot(1, -50_000)})
	l.process("m2", TransactionEvent{Action: models.EventActionDelete, Old: snapshot(1, -50_000)})

	if l.spent[1] != 0 {
		t.Fatalf("spent = %d, want 0 after delete", l.spent[1])
	}
}

func TestSpendTracking_DuplicateDelivery_IsProcessedOnce(t *testing.T) {
	l := newFakeSpendLedger()
	ev := TransactionEvent{Action: models.EventActionCreate, New: snapshot(1, -50_000)}

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.process("m1", ev)
		}()
	}
	wg.Wait()

	if l.spent[1] != 50_000 {
		t.Fatalf("spent = %d, want 50000 (duplicate deliveries must be applied once)", l.spent[1])
	}
}

func TestSpendTracking_RecalculateReplacesDrift(t *testing.T) {
	l := newFakeSpendLedger()
	// Incremental state drifted (some events lost, some double-applied).
	l.spent[1] = 90_000
	l.spent[2] = 10_000

	// Recalculate rebuilds from the raw transaction sums: a pure replace.
	authoritative := map[int]int64{1: 50_000, 2: 30_000}
	recalc := func() {
		for id := range l.spent {
			l.spent[id] = authoritative[id]
		}
	}

	recalc()
	first := map[int]int64{1: l.spent[1], 2: l.spent[2]}
	recalc()

	if l.spent[1] != 50_000 || l.spent[2] != 30_000 {
		t.Fatalf("recalculated spent = %v, want map[1:50000 2:30000]", l.spent)
	}
	if l.spent[1] != first[1] || l.spent[2] != first[2] {
		t.Fatal("recalculation must be idempotent")
	}
}

func TestAlertRank_CrossingDetection(t *testing.T) {
	// Events fire only on upward rank changes.
	before := alertRank(70_000, 100_000)
	after := alertRank(76_000, 100_000)
	if !(after > before) {
		t.Fatal("70% -> 76% must be an upward crossing")
	}

	// Moving within a band does not.
	if alertRank(76_000, 100_000) != alertRank(80_000, 100_000) {
		t.Fatal("76% -> 80% stays in the warning band")
	}

	// A revert drops the rank; no alert is due.
	if !(alertRank(74_000, 100_000) < alertRank(76_000, 100_000)) {
		t.Fatal("revert below 75% must lower the rank")
	}
}
