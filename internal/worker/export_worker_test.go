package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"divvy/internal/amqp"
	"divvy/internal/core"
	sheetsmem "divvy/internal/sheets/memory"
	"divvy/internal/storage"
)

func newWorkerFixture(t *testing.T) (*ExportWorker, *storage.SQLiteRepository, *sheetsmem.Exporter) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	alice := core.User{ID: "a", Name: "Alice"}
	bob := core.User{ID: "b", Name: "Bob"}
	for _, u := range []core.User{alice, bob} {
		if err := repo.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}
	g := core.Group{ID: "g1", Name: "Trip", Members: []core.User{alice, bob}, CreatedAt: time.Now()}
	if err := repo.CreateGroup(ctx, g, core.Activity{ID: "act-g1", Kind: core.ActivityGroupCreated}); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	e := core.Expense{
		ID:          "e1",
		GroupID:     "g1",
		Description: "dinner",
		Amount:      core.Money{Cents: 4000},
		PaidBy:      alice,
		SplitType:   core.SplitEqual,
		Shares: []core.Share{
			{User: alice, Amount: core.Money{Cents: 2000}},
			{User: bob, Amount: core.Money{Cents: 2000}},
		},
		Date:      time.Now(),
		CreatedAt: time.Now(),
	}
	if err := repo.AppendExpense(ctx, e, core.Activity{ID: "act-e1", Kind: core.ActivityExpenseAdded}); err != nil {
		t.Fatalf("AppendExpense: %v", err)
	}

	exporter := sheetsmem.New()
	return NewExportWorker(repo, exporter, 10), repo, exporter
}

func TestHandleExportMessage(t *testing.T) {
	w, repo, exporter := newWorkerFixture(t)
	ctx := context.Background()

	msg := amqp.NewExpenseExportMessage("e1", "g1")
	if err := w.HandleExportMessage(ctx, msg); err != nil {
		t.Fatalf("HandleExportMessage: %v", err)
	}

	rows := exporter.Rows()
	if len(rows) != 1 || rows[0].ID != "e1" {
		t.Fatalf("rows = %+v", rows)
	}

	pending, err := repo.PendingExportExpenses(ctx, 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("pending after export = %v, %v", pending, err)
	}
}

func TestHandleExportMessageUnknownExpense(t *testing.T) {
	w, _, _ := newWorkerFixture(t)
	msg := amqp.NewExpenseExportMessage("ghost", "g1")
	if err := w.HandleExportMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error for unknown expense")
	}
}

func TestProcessPendingMarksErrors(t *testing.T) {
	w, repo, exporter := newWorkerFixture(t)
	ctx := context.Background()

	exporter.FailWith(errors.New("quota exceeded"))
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}

	// Still pending, now in the error state, and retryable.
	pending, err := repo.PendingExportExpenses(ctx, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending = %v, %v", pending, err)
	}

	exporter.FailWith(nil)
	if err := w.StartupCheck(ctx); err != nil {
		t.Fatalf("StartupCheck: %v", err)
	}
	pending, err = repo.PendingExportExpenses(ctx, 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("pending after retry = %v, %v", pending, err)
	}
	if len(exporter.Rows()) != 1 {
		t.Fatalf("rows = %+v", exporter.Rows())
	}
}
