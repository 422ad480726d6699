// Package sheets defines the outbound port for exporting recorded expenses to
// a spreadsheet.
package sheets

import (
	"context"

	"divvy/internal/core"
)

// ExpenseExporter appends one expense as a spreadsheet row and returns a
// reference to where it landed.
type ExpenseExporter interface {
	Append(ctx context.Context, e core.Expense) (rowRef string, err error)
}
