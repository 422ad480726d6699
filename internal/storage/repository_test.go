package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"divvy/internal/core"
	"divvy/internal/ledger"
)

var (
	_ ledger.Store          = (*SQLiteRepository)(nil)
	_ ledger.ExportQueue    = (*SQLiteRepository)(nil)
	_ ledger.RecurringStore = (*SQLiteRepository)(nil)
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedRepo(t *testing.T, repo *SQLiteRepository) (core.User, core.User) {
	t.Helper()
	ctx := context.Background()
	alice := core.User{ID: "a", Name: "Alice", Email: "alice@example.com"}
	bob := core.User{ID: "b", Name: "Bob"}
	for _, u := range []core.User{alice, bob} {
		if err := repo.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser %s: %v", u.ID, err)
		}
	}
	g := core.Group{
		ID:        "g1",
		Name:      "Trip",
		Members:   []core.User{alice, bob},
		CreatedAt: time.Now(),
	}
	act := core.Activity{ID: "act-g1", Kind: core.ActivityGroupCreated, Description: `You created group "Trip"`, User: alice}
	if err := repo.CreateGroup(ctx, g, act); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	return alice, bob
}

func testExpense(id string, paidBy core.User, shares []core.Share, total int64, createdAt time.Time) core.Expense {
	return core.Expense{
		ID:          id,
		GroupID:     "g1",
		Description: "expense " + id,
		Amount:      core.Money{Cents: total},
		PaidBy:      paidBy,
		SplitType:   core.SplitEqual,
		Shares:      shares,
		Category:    "food",
		Date:        createdAt,
		CreatedAt:   createdAt,
	}
}

func TestRepositoryUsers(t *testing.T) {
	repo := newTestRepo(t)
	alice, _ := seedRepo(t, repo)
	ctx := context.Background()

	got, err := repo.UserByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("UserByID: %v", err)
	}
	if got.Name != "Alice" || got.Email != "alice@example.com" {
		t.Fatalf("got %+v", got)
	}

	if _, err := repo.UserByID(ctx, "ghost"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	users, err := repo.Users(ctx)
	if err != nil || len(users) != 2 {
		t.Fatalf("Users = %v, %v", users, err)
	}
}

func TestRepositoryGroup(t *testing.T) {
	repo := newTestRepo(t)
	seedRepo(t, repo)
	ctx := context.Background()

	g, err := repo.GroupByID(ctx, "g1")
	if err != nil {
		t.Fatalf("GroupByID: %v", err)
	}
	if len(g.Members) != 2 || g.Members[0].ID != "a" || g.Members[1].ID != "b" {
		t.Fatalf("member order = %+v", g.Members)
	}
	if g.TotalExpenses.Cents != 0 {
		t.Fatalf("fresh group total = %d", g.TotalExpenses.Cents)
	}

	// Group creation activity landed in the same transaction.
	acts, err := repo.RecentActivities(ctx, 10)
	if err != nil || len(acts) != 1 {
		t.Fatalf("RecentActivities = %v, %v", acts, err)
	}
	if acts[0].Kind != core.ActivityGroupCreated {
		t.Fatalf("kind = %s", acts[0].Kind)
	}

	if _, err := repo.GroupByID(ctx, "ghost"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRepositoryAppendExpense(t *testing.T) {
	repo := newTestRepo(t)
	alice, bob := seedRepo(t, repo)
	ctx := context.Background()

	shares := []core.Share{
		{User: alice, Amount: core.Money{Cents: 2000}},
		{User: bob, Amount: core.Money{Cents: 2000}},
	}
	e := testExpense("e1", alice, shares, 4000, time.Now())
	act := core.Activity{ID: "act-e1", Kind: core.ActivityExpenseAdded, Amount: e.Amount, User: alice}
	if err := repo.AppendExpense(ctx, e, act); err != nil {
		t.Fatalf("AppendExpense: %v", err)
	}

	got, err := repo.ExpenseByID(ctx, "e1")
	if err != nil {
		t.Fatalf("ExpenseByID: %v", err)
	}
	if got.PaidBy.Name != "Alice" || got.SplitType != core.SplitEqual {
		t.Fatalf("got %+v", got)
	}
	if len(got.Shares) != 2 || got.Shares[0].User.ID != "a" || got.Shares[1].Amount.Cents != 2000 {
		t.Fatalf("shares = %+v", got.Shares)
	}

	g, err := repo.GroupByID(ctx, "g1")
	if err != nil {
		t.Fatalf("GroupByID: %v", err)
	}
	if g.TotalExpenses.Cents != 4000 {
		t.Fatalf("group total = %d, want 4000", g.TotalExpenses.Cents)
	}

	// Unknown group must not leave partial rows behind.
	bad := testExpense("e2", alice, shares, 4000, time.Now())
	bad.GroupID = "ghost"
	if err := repo.AppendExpense(ctx, bad, core.Activity{ID: "act-e2"}); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := repo.ExpenseByID(ctx, "e2"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("partial expense row survived rollback: %v", err)
	}
}

func TestRepositoryExpensesForGroupNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	alice, bob := seedRepo(t, repo)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	shares := []core.Share{
		{User: alice, Amount: core.Money{Cents: 500}},
		{User: bob, Amount: core.Money{Cents: 500}},
	}
	for i, id := range []string{"first", "second", "third"} {
		e := testExpense(id, alice, shares, 1000, base.Add(time.Duration(i)*time.Minute))
		if err := repo.AppendExpense(ctx, e, core.Activity{ID: "act-" + id}); err != nil {
			t.Fatalf("AppendExpense %s: %v", id, err)
		}
	}

	got, err := repo.ExpensesForGroup(ctx, "g1")
	if err != nil {
		t.Fatalf("ExpensesForGroup: %v", err)
	}
	if len(got) != 3 || got[0].ID != "third" || got[2].ID != "first" {
		t.Fatalf("order = %+v", got)
	}

	all, err := repo.AllExpenses(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("AllExpenses = %v, %v", all, err)
	}
}

func TestRepositoryExportQueue(t *testing.T) {
	repo := newTestRepo(t)
	alice, bob := seedRepo(t, repo)
	ctx := context.Background()

	shares := []core.Share{
		{User: alice, Amount: core.Money{Cents: 500}},
		{User: bob, Amount: core.Money{Cents: 500}},
	}
	for _, id := range []string{"e1", "e2"} {
		e := testExpense(id, alice, shares, 1000, time.Now())
		if err := repo.AppendExpense(ctx, e, core.Activity{ID: "act-" + id}); err != nil {
			t.Fatalf("AppendExpense: %v", err)
		}
	}

	pending, err := repo.PendingExportExpenses(ctx, 10)
	if err != nil || len(pending) != 2 {
		t.Fatalf("pending = %v, %v", pending, err)
	}

	if err := repo.MarkExported(ctx, "e1"); err != nil {
		t.Fatalf("MarkExported: %v", err)
	}
	if err := repo.MarkExportError(ctx, "e2"); err != nil {
		t.Fatalf("MarkExportError: %v", err)
	}

	// Exported drops out; errored stays in the queue for retry.
	pending, err = repo.PendingExportExpenses(ctx, 10)
	if err != nil || len(pending) != 1 || pending[0].ID != "e2" {
		t.Fatalf("pending after marks = %v, %v", pending, err)
	}

	if err := repo.MarkExported(ctx, "ghost"); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRepositoryRecurringExpenses(t *testing.T) {
	repo := newTestRepo(t)
	seedRepo(t, repo)
	ctx := context.Background()

	start := time.Now().Add(-48 * time.Hour)
	id, err := repo.CreateRecurringExpense(ctx, core.RecurringExpense{
		GroupID:     "g1",
		Description: "rent",
		Amount:      core.Money{Cents: 120000},
		PaidByID:    "a",
		Every:       core.Monthly,
		StartDate:   start,
	})
	if err != nil {
		t.Fatalf("CreateRecurringExpense: %v", err)
	}

	// A template whose window has not opened yet must not be returned.
	if _, err := repo.CreateRecurringExpense(ctx, core.RecurringExpense{
		GroupID:     "g1",
		Description: "future",
		Amount:      core.Money{Cents: 100},
		PaidByID:    "a",
		Every:       core.Daily,
		StartDate:   time.Now().Add(24 * time.Hour),
	}); err != nil {
		t.Fatalf("CreateRecurringExpense: %v", err)
	}

	active, err := repo.ActiveRecurringExpenses(ctx, time.Now())
	if err != nil {
		t.Fatalf("ActiveRecurringExpenses: %v", err)
	}
	if len(active) != 1 || active[0].Template.ID != id {
		t.Fatalf("active = %+v", active)
	}
	if !active[0].LastExecution.IsZero() {
		t.Fatalf("fresh template has last execution %v", active[0].LastExecution)
	}

	ranAt := time.Now()
	if err := repo.UpdateLastExecution(ctx, id, ranAt); err != nil {
		t.Fatalf("UpdateLastExecution: %v", err)
	}
	active, err = repo.ActiveRecurringExpenses(ctx, time.Now())
	if err != nil || len(active) != 1 {
		t.Fatalf("ActiveRecurringExpenses: %v, %v", active, err)
	}
	if active[0].LastExecution.Unix() != ranAt.Unix() {
		t.Fatalf("last execution = %v, want %v", active[0].LastExecution, ranAt)
	}
}
