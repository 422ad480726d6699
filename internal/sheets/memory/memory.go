// Package memory is an in-process stand-in for the sheet exporter, used in
// tests and when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"divvy/internal/core"
	"divvy/internal/sheets"
)

type Exporter struct {
	mu   sync.Mutex
	rows []core.Expense
	fail error
}

var _ sheets.ExpenseExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// Append records the expense and returns a synthetic row reference.
func (e *Exporter) Append(_ context.Context, expense core.Expense) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail != nil {
		return "", e.fail
	}
	if err := expense.Validate(); err != nil {
		return "", err
	}
	e.rows = append(e.rows, expense)
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (e *Exporter) Rows() []core.Expense {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.Expense(nil), e.rows...)
}

// FailWith makes subsequent Append calls return err. Pass nil to recover.
func (e *Exporter) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail = err
}
