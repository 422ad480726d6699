package services

import (
	"context"
	"errors"
	"fmt"

	"divvy/internal/core"
	"divvy/internal/ledger"
)

// BalanceService derives balances from the ledger on every call. Nothing is
// cached here; recorded expenses are visible to the next query immediately.
type BalanceService struct {
	store ledger.Store
}

func NewBalanceService(store ledger.Store) *BalanceService {
	return &BalanceService{store: store}
}

// Balances returns the viewer's outstanding directional balances. An empty
// groupID means all expenses; a groupID that does not exist yields an empty
// result rather than an error, matching a viewer with no history.
func (s *BalanceService) Balances(ctx context.Context, viewerID, groupID string) ([]core.Balance, error) {
	expenses, err := s.scopedExpenses(ctx, groupID)
	if err != nil {
		return nil, err
	}

	nets := core.NetBalances(viewerID, expenses)
	balances := make([]core.Balance, 0, len(nets))
	for _, n := range nets {
		counterparty, err := s.store.UserByID(ctx, n.CounterpartyID)
		if errors.Is(err, ledger.ErrNotFound) {
			counterparty = core.User{ID: n.CounterpartyID}
		} else if err != nil {
			return nil, fmt.Errorf("resolve counterparty %s: %w", n.CounterpartyID, err)
		}
		balances = append(balances, n.Balance(counterparty))
	}
	return balances, nil
}

// GroupTotals returns the viewer's gross owed/owing sums inside one group.
func (s *BalanceService) GroupTotals(ctx context.Context, viewerID, groupID string) (owedByViewer, owedToViewer core.Money, err error) {
	expenses, err := s.scopedExpenses(ctx, groupID)
	if err != nil {
		return core.Money{}, core.Money{}, err
	}
	owedByViewer, owedToViewer = core.GroupTotals(viewerID, expenses)
	return owedByViewer, owedToViewer, nil
}

func (s *BalanceService) scopedExpenses(ctx context.Context, groupID string) ([]core.Expense, error) {
	if groupID == "" {
		expenses, err := s.store.AllExpenses(ctx)
		if err != nil {
			return nil, fmt.Errorf("load expenses: %w", err)
		}
		return expenses, nil
	}
	expenses, err := s.store.ExpensesForGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load group expenses: %w", err)
	}
	return expenses, nil
}
