package core

import (
	"errors"
	"strings"
	"time"
)

const (
	SplitEqual  SplitType = "equal"
	SplitCustom SplitType = "custom"
)

const (
	ActivityExpenseAdded ActivityKind = "expense_added"
	ActivityGroupCreated ActivityKind = "group_created"
	ActivityPaymentMade  ActivityKind = "payment_made"
)

type (
	// SplitType selects how an expense total is divided into shares.
	SplitType string

	// ActivityKind tags an entry in the activity feed.
	ActivityKind string

	// User is a registered participant. Immutable once created.
	User struct {
		ID     string
		Name   string
		Email  string
		Avatar string
	}

	// Group is a named set of users who share expenses. Members keep
	// insertion order; TotalExpenses is a running sum maintained by
	// expense recording and derivable from the ledger at any time.
	Group struct {
		ID            string
		Name          string
		Description   string
		Members       []User
		CreatedAt     time.Time
		TotalExpenses Money
	}

	// Share is one user's portion of a single expense.
	Share struct {
		User   User
		Amount Money
	}

	// Expense is an immutable ledger entry. The sum of its shares always
	// reconciles with Amount within one cent.
	Expense struct {
		ID          string
		GroupID     string
		Description string
		Amount      Money
		PaidBy      User
		SplitType   SplitType
		Shares      []Share
		Category    string
		Date        time.Time
		CreatedAt   time.Time
	}

	// Activity is an append-only audit record of a domain mutation.
	Activity struct {
		ID          string
		Kind        ActivityKind
		Description string
		Amount      Money // zero when the activity carries no amount
		User        User
		Timestamp   time.Time
	}
)

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyDescription     = errors.New("empty description")
	ErrEmptyName            = errors.New("empty name")
	ErrNoParticipants       = errors.New("no participants")
	ErrDuplicateParticipant = errors.New("duplicate participant")
	ErrUnknownSplitType     = errors.New("unknown split type")
)

const maxDescriptionLen = 200

func (u User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return errors.New("user id cannot be empty")
	}
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (g Group) Validate() error {
	if strings.TrimSpace(g.ID) == "" {
		return errors.New("group id cannot be empty")
	}
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	seen := make(map[string]struct{}, len(g.Members))
	for _, m := range g.Members {
		if _, dup := seen[m.ID]; dup {
			return ErrDuplicateParticipant
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}

// MemberIDs returns the member identifiers in display order.
func (g Group) MemberIDs() []string {
	ids := make([]string, len(g.Members))
	for i, m := range g.Members {
		ids[i] = m.ID
	}
	return ids
}

// Member returns the member with the given id, if present.
func (g Group) Member(id string) (User, bool) {
	for _, m := range g.Members {
		if m.ID == id {
			return m, true
		}
	}
	return User{}, false
}

func (t SplitType) Validate() error {
	switch t {
	case SplitEqual, SplitCustom:
		return nil
	default:
		return ErrUnknownSplitType
	}
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.GroupID) == "" {
		return errors.New("group id cannot be empty")
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > maxDescriptionLen {
		return errors.New("description too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.SplitType.Validate(); err != nil {
		return err
	}
	if err := e.PaidBy.Validate(); err != nil {
		return err
	}
	if len(e.Shares) == 0 {
		return ErrNoParticipants
	}
	seen := make(map[string]struct{}, len(e.Shares))
	var sum int64
	for _, s := range e.Shares {
		if _, dup := seen[s.User.ID]; dup {
			return ErrDuplicateParticipant
		}
		seen[s.User.ID] = struct{}{}
		if s.Amount.Cents < 0 {
			return ErrInvalidAmount
		}
		sum += s.Amount.Cents
	}
	if delta := sum - e.Amount.Cents; delta > shareToleranceCents || delta < -shareToleranceCents {
		return &SplitMismatchError{Total: e.Amount, ShareSum: Money{Cents: sum}}
	}
	return nil
}
