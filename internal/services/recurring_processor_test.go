package services

import (
	"context"
	"testing"
	"time"

	"divvy/internal/core"
	"divvy/internal/ledger"
	"divvy/internal/memory"
)

type fakeRecurringStore struct {
	executions []ledger.RecurringExecution
	updated    map[int64]time.Time
}

func (f *fakeRecurringStore) CreateRecurringExpense(_ context.Context, re core.RecurringExpense) (int64, error) {
	id := int64(len(f.executions) + 1)
	re.ID = id
	f.executions = append(f.executions, ledger.RecurringExecution{Template: re})
	return id, nil
}

func (f *fakeRecurringStore) ActiveRecurringExpenses(_ context.Context, _ time.Time) ([]ledger.RecurringExecution, error) {
	return f.executions, nil
}

func (f *fakeRecurringStore) UpdateLastExecution(_ context.Context, id int64, executedAt time.Time) error {
	if f.updated == nil {
		f.updated = make(map[int64]time.Time)
	}
	f.updated[id] = executedAt
	return nil
}

func TestProcessDue(t *testing.T) {
	store := memory.New([]core.User{
		{ID: "a", Name: "Alice"},
		{ID: "b", Name: "Bob"},
	})
	ledgerSvc := NewLedgerService(store, nil)
	ctx := context.Background()

	group, err := ledgerSvc.CreateGroup(ctx, "Flat", "", []string{"a", "b"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	recurring := &fakeRecurringStore{
		executions: []ledger.RecurringExecution{
			{
				// Never executed, due now.
				Template: core.RecurringExpense{
					ID: 1, GroupID: group.ID, Description: "rent",
					Amount: core.Money{Cents: 120000}, PaidByID: "a",
					Every: core.Monthly, StartDate: now.AddDate(0, -3, 0),
				},
			},
			{
				// Already ran today, not due.
				Template: core.RecurringExpense{
					ID: 2, GroupID: group.ID, Description: "coffee fund",
					Amount: core.Money{Cents: 500}, PaidByID: "b",
					Every: core.Daily, StartDate: now.AddDate(0, -1, 0),
				},
				LastExecution: now.Add(-time.Hour),
			},
			{
				// Payer left the roster; must be skipped without stalling.
				Template: core.RecurringExpense{
					ID: 3, GroupID: group.ID, Description: "orphan",
					Amount: core.Money{Cents: 100}, PaidByID: "ghost",
					Every: core.Daily, StartDate: now.AddDate(0, -1, 0),
				},
			},
		},
	}

	processor := NewRecurringProcessor(recurring, ledgerSvc)
	processed, err := processor.ProcessDue(ctx, now)
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d, want 1", processed)
	}

	expenses, err := store.ExpensesForGroup(ctx, group.ID)
	if err != nil || len(expenses) != 1 {
		t.Fatalf("expenses = %v, %v", expenses, err)
	}
	e := expenses[0]
	if e.Description != "rent" || e.SplitType != core.SplitEqual || len(e.Shares) != 2 {
		t.Fatalf("materialized expense = %+v", e)
	}
	if e.Shares[0].Amount.Cents+e.Shares[1].Amount.Cents != 120000 {
		t.Fatalf("shares do not sum to total: %+v", e.Shares)
	}

	if _, ok := recurring.updated[1]; !ok {
		t.Fatal("last execution not updated for processed template")
	}
	if _, ok := recurring.updated[2]; ok {
		t.Fatal("last execution updated for template that was not due")
	}
}
