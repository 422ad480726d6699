package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"divvy/internal/core"
	"divvy/internal/ledger"
)

// RecurringProcessor materializes due recurring templates into real expenses
// through the normal recording path, so each one gets shares, an activity
// entry, and an export message like any hand-entered expense.
type RecurringProcessor struct {
	recurring ledger.RecurringStore
	ledger    *LedgerService
}

func NewRecurringProcessor(recurring ledger.RecurringStore, ledgerService *LedgerService) *RecurringProcessor {
	return &RecurringProcessor{recurring: recurring, ledger: ledgerService}
}

// ProcessDue creates expenses for every active template that is due at now
// and returns how many were created. Individual template failures are logged
// and skipped so one broken template cannot stall the rest.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.recurring == nil || p.ledger == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	executions, err := p.recurring.ActiveRecurringExpenses(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("get active recurring expenses: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring expenses",
		"total_active", len(executions),
		"processing_date", now.Format("2006-01-02"))

	processed := 0
	for _, exec := range executions {
		re := exec.Template

		checker, err := GetDuenessChecker(re.Every)
		if err != nil {
			slog.ErrorContext(ctx, "Unknown frequency on recurring template",
				"recurring_id", re.ID, "frequency", string(re.Every))
			continue
		}
		if !checker.IsDue(exec.LastExecution, now, re.StartDate) {
			continue
		}

		// Split equally among the group's current members.
		_, err = p.ledger.RecordExpense(ctx, RecordExpenseInput{
			GroupID:     re.GroupID,
			Description: re.Description,
			Amount:      re.Amount,
			PaidByID:    re.PaidByID,
			SplitType:   core.SplitEqual,
			Category:    re.Category,
			Date:        now,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Failed to create expense from recurring template",
				"recurring_id", re.ID,
				"description", re.Description,
				"error", err)
			continue
		}

		if err := p.recurring.UpdateLastExecution(ctx, re.ID, now); err != nil {
			slog.ErrorContext(ctx, "Failed to update last execution",
				"recurring_id", re.ID, "error", err)
			// Expense was created; the next run may double-process this
			// template, which the dueness check window makes unlikely.
		}

		processed++
		slog.InfoContext(ctx, "Created expense from recurring template",
			"recurring_id", re.ID,
			"description", re.Description,
			"amount_cents", re.Amount.Cents,
			"frequency", string(re.Every))
	}

	slog.InfoContext(ctx, "Recurring expense processing complete",
		"processed", processed,
		"total_checked", len(executions))
	return processed, nil
}
