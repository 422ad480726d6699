package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ExpenseExportMessage tells the export worker that an expense is ready to be
// pushed to the spreadsheet. It carries only the id; the worker fetches the
// full expense from the database so the queue never holds stale data.
type ExpenseExportMessage struct {
	ExpenseID string    `json:"expense_id"`
	GroupID   string    `json:"group_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseExportMessage(expenseID, groupID string) *ExpenseExportMessage {
	return &ExpenseExportMessage{
		ExpenseID: expenseID,
		GroupID:   groupID,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseExportMessageFromJSON(data []byte) (*ExpenseExportMessage, error) {
	var msg ExpenseExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ExpenseID == "" {
		return nil, errors.New("export message missing expense id")
	}
	return &msg, nil
}
