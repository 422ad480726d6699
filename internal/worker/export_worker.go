// Package worker exports recorded expenses from the sqlite ledger to a
// spreadsheet. AMQP messages drive the fast path; a periodic scan over the
// durable export queue catches anything the broker dropped.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"divvy/internal/amqp"
	"divvy/internal/core"
	"divvy/internal/ledger"
	"divvy/internal/sheets"
)

// Stores is the storage surface the worker needs: expense reads plus export
// bookkeeping. The sqlite repository satisfies it.
type Stores interface {
	ledger.ExportQueue
	ExpenseByID(ctx context.Context, id string) (core.Expense, error)
}

type ExportWorker struct {
	storage   Stores
	exporter  sheets.ExpenseExporter
	batchSize int
}

func NewExportWorker(storage Stores, exporter sheets.ExpenseExporter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleExportMessage processes one export message from AMQP. Returning an
// error nacks the delivery back onto the queue.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ExpenseExportMessage) error {
	slog.InfoContext(ctx, "Processing export message", "expense_id", msg.ExpenseID)

	expense, err := w.storage.ExpenseByID(ctx, msg.ExpenseID)
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}

	return w.exportExpense(ctx, expense)
}

// ProcessPending exports any expenses the AMQP path missed. Per-expense
// failures are marked and skipped.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.PendingExportExpenses(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))
	for _, expense := range pending {
		if err := w.exportExpense(ctx, expense); err != nil {
			slog.ErrorContext(ctx, "Failed to export expense",
				"expense_id", expense.ID, "error", err)
		}
	}
	return nil
}

// StartupCheck drains the pending queue with a larger batch, recovering from
// missed messages or worker downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.storage.PendingExportExpenses(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending expenses for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...",
		"count", len(pending))

	exported, failed := 0, 0
	for _, expense := range pending {
		if err := w.exportExpense(ctx, expense); err != nil {
			slog.ErrorContext(ctx, "Failed to export expense during startup",
				"expense_id", expense.ID, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Startup export check completed",
		"total", len(pending),
		"exported", exported,
		"errors", failed)
	return nil
}

func (w *ExportWorker) exportExpense(ctx context.Context, expense core.Expense) error {
	ref, err := w.exporter.Append(ctx, expense)
	if err != nil {
		if markErr := w.storage.MarkExportError(ctx, expense.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error",
				"expense_id", expense.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.storage.MarkExported(ctx, expense.ID); err != nil {
		// The export itself worked; a retry may duplicate the sheet row,
		// which is preferable to losing the expense.
		slog.ErrorContext(ctx, "Failed to mark as exported",
			"expense_id", expense.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported expense",
		"expense_id", expense.ID,
		"sheets_ref", ref,
		"amount_cents", expense.Amount.Cents)
	return nil
}
