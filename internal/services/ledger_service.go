// Package services orchestrates the domain over the storage ports: recording
// expenses, creating groups, settlement marks, and the recurring pipeline.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"divvy/internal/core"
	"divvy/internal/ledger"
)

// ExportPublisher is the outbound queue for freshly recorded expenses. The
// AMQP client implements it; a nil publisher disables export notifications.
type ExportPublisher interface {
	PublishExpenseExport(ctx context.Context, expenseID, groupID string) error
}

// LedgerService owns every write path of the ledger plus the per-viewer
// settlement marks.
type LedgerService struct {
	store     ledger.Store
	publisher ExportPublisher

	mu          sync.Mutex
	settlements map[string]*core.SettlementSet // keyed by viewer id
}

func NewLedgerService(store ledger.Store, publisher ExportPublisher) *LedgerService {
	return &LedgerService{
		store:       store,
		publisher:   publisher,
		settlements: make(map[string]*core.SettlementSet),
	}
}

func (s *LedgerService) CreateUser(ctx context.Context, name, email, avatar string) (core.User, error) {
	user := core.User{
		ID:     uuid.NewString(),
		Name:   name,
		Email:  email,
		Avatar: avatar,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// CreateGroup resolves the member ids, persists the group, and records the
// creation in the activity feed in the same transaction. Membership is a
// set: repeated ids collapse to one member, keeping first-mention order. The
// first member is treated as the creator.
func (s *LedgerService) CreateGroup(ctx context.Context, name, description string, memberIDs []string) (core.Group, error) {
	if len(memberIDs) == 0 {
		return core.Group{}, core.ErrNoParticipants
	}

	members := make([]core.User, 0, len(memberIDs))
	seen := make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		u, err := s.store.UserByID(ctx, id)
		if err != nil {
			return core.Group{}, fmt.Errorf("resolve member %s: %w", id, err)
		}
		members = append(members, u)
	}

	group := core.Group{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Members:     members,
		CreatedAt:   time.Now(),
	}
	if err := group.Validate(); err != nil {
		return core.Group{}, err
	}

	activity := core.Activity{
		ID:          uuid.NewString(),
		Kind:        core.ActivityGroupCreated,
		Description: fmt.Sprintf("You created group %q", group.Name),
		User:        members[0],
		Timestamp:   group.CreatedAt,
	}
	if err := s.store.CreateGroup(ctx, group, activity); err != nil {
		return core.Group{}, fmt.Errorf("create group: %w", err)
	}
	return group, nil
}

// RecordExpenseInput carries everything needed to append one expense.
// Empty ParticipantIDs means the whole group splits the expense.
type RecordExpenseInput struct {
	GroupID        string
	Description    string
	Amount         core.Money
	PaidByID       string
	SplitType      core.SplitType
	ParticipantIDs []string
	CustomShares   map[string]core.Money
	Category       string
	Date           time.Time
}

// RecordExpense validates membership, computes shares, and appends the
// expense with its activity atomically. The export message is best effort:
// a publish failure is logged, never surfaced, because the durable pending
// scan will pick the expense up later.
func (s *LedgerService) RecordExpense(ctx context.Context, in RecordExpenseInput) (core.Expense, error) {
	group, err := s.store.GroupByID(ctx, in.GroupID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("resolve group: %w", err)
	}

	payer, ok := group.Member(in.PaidByID)
	if !ok {
		return core.Expense{}, fmt.Errorf("payer %s: %w", in.PaidByID, ledger.ErrNotMember)
	}

	participants := group.Members
	if len(in.ParticipantIDs) > 0 {
		participants = make([]core.User, 0, len(in.ParticipantIDs))
		for _, id := range in.ParticipantIDs {
			m, ok := group.Member(id)
			if !ok {
				return core.Expense{}, fmt.Errorf("participant %s: %w", id, ledger.ErrNotMember)
			}
			participants = append(participants, m)
		}
	}

	shares, err := core.ComputeShares(in.Amount, in.SplitType, participants, in.CustomShares)
	if err != nil {
		return core.Expense{}, err
	}

	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}
	expense := core.Expense{
		ID:          uuid.NewString(),
		GroupID:     group.ID,
		Description: in.Description,
		Amount:      in.Amount,
		PaidBy:      payer,
		SplitType:   in.SplitType,
		Shares:      shares,
		Category:    in.Category,
		Date:        date,
		CreatedAt:   time.Now(),
	}
	if err := expense.Validate(); err != nil {
		return core.Expense{}, err
	}

	activity := core.Activity{
		ID:          uuid.NewString(),
		Kind:        core.ActivityExpenseAdded,
		Description: fmt.Sprintf("%s added %q in %s", payer.Name, expense.Description, group.Name),
		Amount:      expense.Amount,
		User:        payer,
		Timestamp:   expense.CreatedAt,
	}
	if err := s.store.AppendExpense(ctx, expense, activity); err != nil {
		return core.Expense{}, fmt.Errorf("append expense: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishExpenseExport(ctx, expense.ID, expense.GroupID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish export message",
				"expense_id", expense.ID, "error", err)
		}
	}

	return expense, nil
}

// MarkSettled flags the counterparty as settled for the viewer and records a
// payment in the activity feed. The mark itself never touches the ledger.
func (s *LedgerService) MarkSettled(ctx context.Context, viewerID, counterpartyID string) error {
	viewer, err := s.store.UserByID(ctx, viewerID)
	if err != nil {
		return fmt.Errorf("resolve viewer: %w", err)
	}
	counterparty, err := s.store.UserByID(ctx, counterpartyID)
	if err != nil {
		return fmt.Errorf("resolve counterparty: %w", err)
	}

	s.settlementSet(viewerID).MarkSettled(counterpartyID)

	activity := core.Activity{
		ID:          uuid.NewString(),
		Kind:        core.ActivityPaymentMade,
		Description: fmt.Sprintf("%s settled up with %s", viewer.Name, counterparty.Name),
		User:        viewer,
		Timestamp:   time.Now(),
	}
	if err := s.store.AppendActivity(ctx, activity); err != nil {
		return fmt.Errorf("record settlement activity: %w", err)
	}
	return nil
}

// IsSettled reports whether the viewer has flagged the counterparty.
func (s *LedgerService) IsSettled(viewerID, counterpartyID string) bool {
	return s.settlementSet(viewerID).IsSettled(counterpartyID)
}

// SettledCounterparties returns the viewer's flagged counterparty ids.
func (s *LedgerService) SettledCounterparties(viewerID string) []string {
	return s.settlementSet(viewerID).Settled()
}

// ResetSettlements clears all of the viewer's marks.
func (s *LedgerService) ResetSettlements(viewerID string) {
	s.settlementSet(viewerID).Reset()
}

func (s *LedgerService) settlementSet(viewerID string) *core.SettlementSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.settlements[viewerID]
	if !ok {
		set = core.NewSettlementSet()
		s.settlements[viewerID] = set
	}
	return set
}

// RecentActivity returns the newest feed entries, capped at limit.
func (s *LedgerService) RecentActivity(ctx context.Context, limit int) ([]core.Activity, error) {
	return s.store.RecentActivities(ctx, limit)
}
