// Package storage is the sqlite ledger backend. It is the only backend with
// durable export bookkeeping, so the sheet export worker and the recurring
// processor require it.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"divvy/internal/core"
	"divvy/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, user core.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, avatar, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.Avatar, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, avatar FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) Users(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, avatar FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Avatar); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateGroup persists the group, its member list, and the creation activity
// in a single transaction.
func (r *SQLiteRepository) CreateGroup(ctx context.Context, group core.Group, activity core.Activity) error {
	if err := group.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	createdAt := group.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO groups (id, name, description, total_cents, created_at) VALUES (?, ?, ?, 0, ?)`,
		group.ID, group.Name, group.Description, createdAt.Unix())
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}

	for i, m := range group.Members {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO group_members (group_id, user_id, position) VALUES (?, ?, ?)`,
			group.ID, m.ID, i)
		if err != nil {
			return fmt.Errorf("insert group member %s: %w", m.ID, err)
		}
	}

	if err := insertActivity(ctx, tx, activity); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit group: %w", err)
	}

	slog.InfoContext(ctx, "Group created",
		"group_id", group.ID,
		"name", group.Name,
		"members", len(group.Members))
	return nil
}

func (r *SQLiteRepository) GroupByID(ctx context.Context, id string) (core.Group, error) {
	var (
		g       core.Group
		created int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, total_cents, created_at FROM groups WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &g.Description, &g.TotalExpenses.Cents, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Group{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Group{}, fmt.Errorf("get group: %w", err)
	}
	g.CreatedAt = time.Unix(created, 0)

	g.Members, err = r.groupMembers(ctx, id)
	if err != nil {
		return core.Group{}, err
	}
	return g, nil
}

func (r *SQLiteRepository) Groups(ctx context.Context) ([]core.Group, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, total_cents, created_at FROM groups ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []core.Group
	for rows.Next() {
		var (
			g       core.Group
			created int64
		)
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.TotalExpenses.Cents, &created); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		g.CreatedAt = time.Unix(created, 0)
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		groups[i].Members, err = r.groupMembers(ctx, groups[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (r *SQLiteRepository) groupMembers(ctx context.Context, groupID string) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.name, u.email, u.avatar
		 FROM group_members gm JOIN users u ON u.id = gm.user_id
		 WHERE gm.group_id = ? ORDER BY gm.position`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	defer rows.Close()

	var members []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Avatar); err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		members = append(members, u)
	}
	return members, rows.Err()
}

// AppendExpense persists the expense, its shares, the group total update, and
// the derived activity atomically. The expense starts in export_state
// 'pending' for the export worker to pick up.
func (r *SQLiteRepository) AppendExpense(ctx context.Context, expense core.Expense, activity core.Activity) error {
	if err := expense.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE groups SET total_cents = total_cents + ? WHERE id = ?`,
		expense.Amount.Cents, expense.GroupID)
	if err != nil {
		return fmt.Errorf("update group total: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ledger.ErrNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses
		 (id, group_id, description, amount_cents, paid_by, split_type, category, spent_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, expense.Description, expense.Amount.Cents,
		expense.PaidBy.ID, string(expense.SplitType), expense.Category,
		expense.Date.Unix(), expense.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	for i, s := range expense.Shares {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO expense_shares (expense_id, user_id, amount_cents, position) VALUES (?, ?, ?, ?)`,
			expense.ID, s.User.ID, s.Amount.Cents, i)
		if err != nil {
			return fmt.Errorf("insert share for %s: %w", s.User.ID, err)
		}
	}

	if err := insertActivity(ctx, tx, activity); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense recorded",
		"expense_id", expense.ID,
		"group_id", expense.GroupID,
		"amount_cents", expense.Amount.Cents,
		"split_type", string(expense.SplitType))
	return nil
}

const expenseColumns = `
	e.id, e.group_id, e.description, e.amount_cents, e.split_type,
	e.category, e.spent_at, e.created_at,
	u.id, u.name, u.email, u.avatar`

func (r *SQLiteRepository) ExpenseByID(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses e JOIN users u ON u.id = e.paid_by
		 WHERE e.id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	e.Shares, err = r.expenseShares(ctx, e.ID)
	if err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (r *SQLiteRepository) ExpensesForGroup(ctx context.Context, groupID string) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses e JOIN users u ON u.id = e.paid_by
		 WHERE e.group_id = ? ORDER BY e.created_at DESC, e.id DESC`, groupID)
}

func (r *SQLiteRepository) AllExpenses(ctx context.Context) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses e JOIN users u ON u.id = e.paid_by
		 ORDER BY e.created_at DESC, e.id DESC`)
}

func (r *SQLiteRepository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range expenses {
		expenses[i].Shares, err = r.expenseShares(ctx, expenses[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return expenses, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e                  core.Expense
		splitType          string
		spentAt, createdAt int64
	)
	err := row.Scan(&e.ID, &e.GroupID, &e.Description, &e.Amount.Cents, &splitType,
		&e.Category, &spentAt, &createdAt,
		&e.PaidBy.ID, &e.PaidBy.Name, &e.PaidBy.Email, &e.PaidBy.Avatar)
	if err != nil {
		return core.Expense{}, err
	}
	e.SplitType = core.SplitType(splitType)
	e.Date = time.Unix(spentAt, 0)
	e.CreatedAt = time.Unix(createdAt, 0)
	return e, nil
}

func (r *SQLiteRepository) expenseShares(ctx context.Context, expenseID string) ([]core.Share, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.name, u.email, u.avatar, s.amount_cents
		 FROM expense_shares s JOIN users u ON u.id = s.user_id
		 WHERE s.expense_id = ? ORDER BY s.position`, expenseID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	var shares []core.Share
	for rows.Next() {
		var s core.Share
		if err := rows.Scan(&s.User.ID, &s.User.Name, &s.User.Email, &s.User.Avatar, &s.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		shares = append(shares, s)
	}
	return shares, rows.Err()
}

func (r *SQLiteRepository) AppendActivity(ctx context.Context, activity core.Activity) error {
	return insertActivity(ctx, r.db, activity)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertActivity(ctx context.Context, db execer, activity core.Activity) error {
	ts := activity.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO activities (id, kind, description, amount_cents, user_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		activity.ID, string(activity.Kind), activity.Description,
		activity.Amount.Cents, activity.User.ID, ts.Unix())
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RecentActivities(ctx context.Context, limit int) ([]core.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.kind, a.description, a.amount_cents, a.user_id,
		        COALESCE(u.name, ''), COALESCE(u.email, ''), COALESCE(u.avatar, ''),
		        a.created_at
		 FROM activities a LEFT JOIN users u ON u.id = a.user_id
		 ORDER BY a.created_at DESC, a.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var activities []core.Activity
	for rows.Next() {
		var (
			a       core.Activity
			kind    string
			created int64
		)
		if err := rows.Scan(&a.ID, &kind, &a.Description, &a.Amount.Cents,
			&a.User.ID, &a.User.Name, &a.User.Email, &a.User.Avatar, &created); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Kind = core.ActivityKind(kind)
		a.Timestamp = time.Unix(created, 0)
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// PendingExportExpenses returns expenses never exported or whose last export
// attempt failed, oldest first.
func (r *SQLiteRepository) PendingExportExpenses(ctx context.Context, limit int) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT `+expenseColumns+`
		 FROM expenses e JOIN users u ON u.id = e.paid_by
		 WHERE e.export_state IN ('pending', 'error')
		 ORDER BY e.created_at, e.id LIMIT ?`, limit)
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, expenseID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET export_state = 'exported' WHERE id = ?`, expenseID)
	if err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ledger.ErrNotFound
	}
	slog.InfoContext(ctx, "Expense marked as exported", "expense_id", expenseID)
	return nil
}

func (r *SQLiteRepository) MarkExportError(ctx context.Context, expenseID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET export_state = 'error', export_attempts = export_attempts + 1 WHERE id = ?`,
		expenseID)
	if err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ledger.ErrNotFound
	}
	slog.WarnContext(ctx, "Expense marked with export error", "expense_id", expenseID)
	return nil
}

func (r *SQLiteRepository) CreateRecurringExpense(ctx context.Context, re core.RecurringExpense) (int64, error) {
	if err := re.Validate(); err != nil {
		return 0, err
	}
	var end sql.NullInt64
	if !re.EndDate.IsZero() {
		end = sql.NullInt64{Int64: re.EndDate.Unix(), Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_expenses
		 (group_id, description, amount_cents, paid_by, category, frequency, start_date, end_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		re.GroupID, re.Description, re.Amount.Cents, re.PaidByID, re.Category,
		string(re.Every), re.StartDate.Unix(), end)
	if err != nil {
		return 0, fmt.Errorf("create recurring expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("recurring expense id: %w", err)
	}
	return id, nil
}

// ActiveRecurringExpenses returns templates that are active and inside their
// start/end window at the given instant.
func (r *SQLiteRepository) ActiveRecurringExpenses(ctx context.Context, now time.Time) ([]ledger.RecurringExecution, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, group_id, description, amount_cents, paid_by, category,
		        frequency, start_date, end_date, last_execution
		 FROM recurring_expenses
		 WHERE active = 1 AND start_date <= ? AND (end_date IS NULL OR end_date >= ?)
		 ORDER BY id`, now.Unix(), now.Unix())
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}
	defer rows.Close()

	var out []ledger.RecurringExecution
	for rows.Next() {
		var (
			re        core.RecurringExpense
			freq      string
			start     int64
			end, last sql.NullInt64
		)
		if err := rows.Scan(&re.ID, &re.GroupID, &re.Description, &re.Amount.Cents,
			&re.PaidByID, &re.Category, &freq, &start, &end, &last); err != nil {
			return nil, fmt.Errorf("scan recurring expense: %w", err)
		}
		re.Every = core.Frequency(freq)
		re.StartDate = time.Unix(start, 0)
		if end.Valid {
			re.EndDate = time.Unix(end.Int64, 0)
		}
		exec := ledger.RecurringExecution{Template: re}
		if last.Valid {
			exec.LastExecution = time.Unix(last.Int64, 0)
		}
		out = append(out, exec)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateLastExecution(ctx context.Context, id int64, executedAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_expenses SET last_execution = ? WHERE id = ?`,
		executedAt.Unix(), id)
	if err != nil {
		return fmt.Errorf("update last execution: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}
