package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

type (
	// Frequency is how often a recurring expense materializes.
	Frequency string

	// RecurringExpense is a template for expenses that repeat on a
	// schedule (rent, utilities, subscriptions shared by a group). Each
	// materialization is split equally among the group's members at that
	// moment and flows through the normal expense-recording path.
	RecurringExpense struct {
		ID          int64 // database id, assigned by storage
		GroupID     string
		Description string
		Amount      Money
		PaidByID    string
		Category    string
		Every       Frequency
		StartDate   time.Time
		EndDate     time.Time // zero means no end
	}
)

func (re RecurringExpense) Validate() error {
	if strings.TrimSpace(re.GroupID) == "" {
		return errors.New("group id cannot be empty")
	}
	if len(strings.TrimSpace(re.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(re.Description) > maxDescriptionLen {
		return errors.New("description too long (max 200 characters)")
	}
	if err := re.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(re.PaidByID) == "" {
		return errors.New("payer id cannot be empty")
	}
	switch re.Every {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return errors.New("invalid frequency")
	}
	if re.StartDate.IsZero() {
		return errors.New("start date cannot be zero")
	}
	if !re.EndDate.IsZero() && re.EndDate.Before(re.StartDate) {
		return errors.New("end date must be after start date")
	}
	return nil
}
