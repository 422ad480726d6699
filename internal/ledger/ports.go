// Package ledger defines the storage ports the rest of the application is
// written against. Backends (in-memory, sqlite) implement Store; the export
// worker additionally needs ExportQueue and the recurring processor needs
// RecurringStore, both of which only the sqlite backend provides.
package ledger

import (
	"context"
	"errors"
	"time"

	"divvy/internal/core"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotMember is returned when an expense names a payer or participant
// outside the group's membership.
var ErrNotMember = errors.New("user is not a member of the group")

type (
	// UserStore manages the user registry. Users are immutable once
	// created.
	UserStore interface {
		CreateUser(ctx context.Context, user core.User) error
		UserByID(ctx context.Context, id string) (core.User, error)
		Users(ctx context.Context) ([]core.User, error)
	}

	// GroupStore manages groups. CreateGroup persists the group and its
	// creation activity atomically.
	GroupStore interface {
		CreateGroup(ctx context.Context, group core.Group, activity core.Activity) error
		GroupByID(ctx context.Context, id string) (core.Group, error)
		Groups(ctx context.Context) ([]core.Group, error)
	}

	// ExpenseStore is the append-only expense ledger. AppendExpense
	// persists the expense, its shares, the group-total update, and the
	// derived activity in one atomic step. ExpensesForGroup returns
	// entries most recent first.
	ExpenseStore interface {
		AppendExpense(ctx context.Context, expense core.Expense, activity core.Activity) error
		ExpenseByID(ctx context.Context, id string) (core.Expense, error)
		ExpensesForGroup(ctx context.Context, groupID string) ([]core.Expense, error)
		AllExpenses(ctx context.Context) ([]core.Expense, error)
	}

	// ActivityStore is the append-only activity feed. Recent returns the
	// newest entries first, capped at limit.
	ActivityStore interface {
		AppendActivity(ctx context.Context, activity core.Activity) error
		RecentActivities(ctx context.Context, limit int) ([]core.Activity, error)
	}

	// Store is the full ledger surface a backend must provide.
	Store interface {
		UserStore
		GroupStore
		ExpenseStore
		ActivityStore
		Close() error
	}

	// ExportQueue is the durable export bookkeeping used by the sheet
	// export worker. Pending returns expenses never exported or whose
	// last attempt failed.
	ExportQueue interface {
		PendingExportExpenses(ctx context.Context, limit int) ([]core.Expense, error)
		MarkExported(ctx context.Context, expenseID string) error
		MarkExportError(ctx context.Context, expenseID string) error
	}

	// RecurringStore manages recurring expense templates and their
	// execution bookkeeping.
	RecurringStore interface {
		CreateRecurringExpense(ctx context.Context, re core.RecurringExpense) (int64, error)
		ActiveRecurringExpenses(ctx context.Context, now time.Time) ([]RecurringExecution, error)
		UpdateLastExecution(ctx context.Context, id int64, executedAt time.Time) error
	}

	// RecurringExecution pairs a template with its last materialization
	// time, zero if it has never run.
	RecurringExecution struct {
		Template      core.RecurringExpense
		LastExecution time.Time
	}
)
