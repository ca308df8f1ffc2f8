package recategorize

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/spendwise/internal/model"
	"github.com/Veraticus/spendwise/internal/service"
	"github.com/Veraticus/spendwise/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	food      = 1
	transport = 2
	shopping  = 3
)

func TestCountMatching(t *testing.T) {
	db := testutil.SetupEmptyRulesDB(t)
	db.MustInsertTransaction("SWIGGY BANGALORE", "250.00")
	db.MustInsertTransaction("swiggy instamart", "90.00")
	db.MustInsertTransaction("UBER TRIP", "180.00")

	svc := NewService(db.Storage, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		pattern   string
		matchType model.MatchType
		want      int
	}{
		{name: "contains is case-insensitive", pattern: "swiggy", matchType: model.MatchContains, want: 2},
		{name: "starts with", pattern: "UBER", matchType: model.MatchStartsWith, want: 1},
		{name: "regex", pattern: `^(swiggy|uber)\b`, matchType: model.MatchRegex, want: 3},
		{name: "no match", pattern: "ZOMATO", matchType: model.MatchExact, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.CountMatching(ctx, tt.pattern, tt.matchType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecategorizeMatching_ClearsManualFlag(t *testing.T) {
	db := testutil.SetupEmptyRulesDB(t)
	manual := db.MustInsertTransaction("AMAZON PRIME", "299.00", testutil.WithCategory(transport), testutil.WithManualEdit())
	plain := db.MustInsertTransaction("AMAZON RETAIL", "1299.00")
	other := db.MustInsertTransaction("UBER", "99.00")

	svc := NewService(db.Storage, nil)
	ctx := context.Background()

	count, err := svc.RecategorizeMatching(ctx, model.Rule{
		CategoryID: shopping, Pattern: "AMAZON", MatchType: model.MatchContains,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, id := range []int64{manual.ID, plain.ID} {
		got, err := db.Storage.GetTransaction(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, shopping, *got.CategoryID)
		assert.False(t, got.IsManuallyEdited)
	}
	assert.Equal(t, model.OthersCategoryID, db.MustCategoryOf(other.ID))
}

func TestRecategorizeAll_RespectsManualEdits(t *testing.T) {
	db := testutil.SetupEmptyRulesDB(t)
	db.MustInsertRule(food, "SWIGGY", model.MatchContains, 100)

	manual := db.MustInsertTransaction("SWIGGY", "250.00", testutil.WithCategory(shopping), testutil.WithManualEdit())
	auto := db.MustInsertTransaction("SWIGGY", "300.00", testutil.WithCategory(shopping))
	already := db.MustInsertTransaction("SWIGGY", "120.00", testutil.WithCategory(food))
	unknown := db.MustInsertTransaction("CORNER SHOP", "40.00", testutil.WithCategory(transport))

	svc := NewService(db.Storage, nil)
	updated, err := svc.RecategorizeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	assert.Equal(t, shopping, db.MustCategoryOf(manual.ID))
	assert.Equal(t, food, db.MustCategoryOf(auto.ID))
	assert.Equal(t, food, db.MustCategoryOf(already.ID))
	assert.Equal(t, model.OthersCategoryID, db.MustCategoryOf(unknown.ID))

	again, err := svc.RecategorizeAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestAddRule(t *testing.T) {
	db := testutil.SetupEmptyRulesDB(t)
	txn := db.MustInsertTransaction("RAPIDO BIKE", "60.00")
	svc := NewService(db.Storage, nil)
	ctx := context.Background()

	rule := &model.Rule{CategoryID: transport, Pattern: "RAPIDO", MatchType: model.MatchStartsWith, Priority: 100, IsActive: true}
	count, err := svc.AddRule(ctx, rule, false)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NotZero(t, rule.ID)
	assert.Equal(t, model.OthersCategoryID, db.MustCategoryOf(txn.ID))

	second := &model.Rule{CategoryID: transport, Pattern: "BIKE", MatchType: model.MatchEndsWith, Priority: 50, IsActive: true}
	count, err = svc.AddRule(ctx, second, true)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, transport, db.MustCategoryOf(txn.ID))

	_, err = svc.AddRule(ctx, &model.Rule{CategoryID: 99, Pattern: "X", MatchType: model.MatchContains}, true)
	assert.Error(t, err)
}

func TestDeleteRuleAndReapply(t *testing.T) {
	db := testutil.SetupEmptyRulesDB(t)
	specific := db.MustInsertRule(shopping, "AMAZON FRESH", model.MatchContains, 200)
	db.MustInsertRule(food, "FRESH", model.MatchContains, 100)

	txn := db.MustInsertTransaction("AMAZON FRESH", "540.00", testutil.WithCategory(shopping))
	svc := NewService(db.Storage, nil)

	updated, err := svc.DeleteRuleAndReapply(context.Background(), specific.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Equal(t, food, db.MustCategoryOf(txn.ID))

	_, err = svc.DeleteRuleAndReapply(context.Background(), specific.ID)
	assert.Error(t, err)
}

func TestRuleEditFlow(t *testing.T) {
	db := testutil.SetupEmptyRulesDB(t)
	rule := db.MustInsertRule(food, "STARBUCKS", model.MatchContains, 100)
	txn := db.MustInsertTransaction("STARBUCKS MG ROAD", "420.00", testutil.WithCategory(food))
	svc := NewService(db.Storage, nil)
	ctx := context.Background()

	t.Run("priority only change skips counting", func(t *testing.T) {
		updated := rule
		updated.Priority = 10
		plan, err := svc.PlanRuleEdit(ctx, rule, updated)
		require.NoError(t, err)
		assert.False(t, plan.CategoryChanged())
		assert.Equal(t, StepApplyUpdate, plan.Next)

		moved, err := svc.ApplyRuleEdit(ctx, plan, true)
		require.NoError(t, err)
		assert.Zero(t, moved)

		stored, err := db.Storage.GetRule(ctx, rule.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, stored.Priority)
		rule = *stored
	})

	t.Run("declined confirmation saves rule only", func(t *testing.T) {
		updated := rule
		updated.CategoryID = shopping
		plan, err := svc.PlanRuleEdit(ctx, rule, updated)
		require.NoError(t, err)
		assert.True(t, plan.NeedsConfirmation())
		assert.Equal(t, 1, plan.MatchCount)

		moved, err := svc.ApplyRuleEdit(ctx, plan, false)
		require.NoError(t, err)
		assert.Zero(t, moved)
		assert.Equal(t, food, db.MustCategoryOf(txn.ID))
		rule = updated
	})

	t.Run("confirmed change moves matches", func(t *testing.T) {
		updated := rule
		updated.CategoryID = transport
		plan, err := svc.PlanRuleEdit(ctx, rule, updated)
		require.NoError(t, err)
		require.Equal(t, StepConfirmRecategorize, plan.Next)

		moved, err := svc.ApplyRuleEdit(ctx, plan, true)
		require.NoError(t, err)
		assert.Equal(t, 1, moved)
		assert.Equal(t, transport, db.MustCategoryOf(txn.ID))
	})

	t.Run("no matches goes straight to update", func(t *testing.T) {
		updated := rule
		updated.Pattern = "COSTA"
		updated.CategoryID = food
		plan, err := svc.PlanRuleEdit(ctx, rule, updated)
		require.NoError(t, err)
		assert.Equal(t, StepApplyUpdate, plan.Next)
		assert.Zero(t, plan.MatchCount)
	})
}

type failingTx struct {
	service.Tx
	rolledBack bool
}

func (f *failingTx) UpdateTransactionCategory(context.Context, int64, int, bool) error {
	return errors.New("disk I/O error")
}

func (f *failingTx) Rollback() error {
	f.rolledBack = true
	return nil
}

type failingStore struct {
	Store
	tx *failingTx
}

func (f *failingStore) BeginTx(context.Context) (service.Tx, error) {
	return f.tx, nil
}

func TestRecategorizeMatching_RollsBackOnFailure(t *testing.T) {
	db := testutil.SetupEmptyRulesDB(t)
	db.MustInsertTransaction("NETFLIX", "649.00")

	tx := &failingTx{}
	svc := NewService(&failingStore{Store: db.Storage, tx: tx}, nil)

	_, err := svc.RecategorizeMatching(context.Background(), model.Rule{
		CategoryID: 5, Pattern: "NETFLIX", MatchType: model.MatchExact,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.True(t, tx.rolledBack)
}
