package core

const (
	// DirectionOwe means the viewer owes the counterparty.
	DirectionOwe BalanceDirection = "owe"
	// DirectionOwed means the counterparty owes the viewer.
	DirectionOwed BalanceDirection = "owed"
)

type (
	// BalanceDirection tags which way a net balance points.
	BalanceDirection string

	// Balance is a derived, directional net position between the viewer
	// and one counterparty. Amount is always positive; net-zero
	// counterparties are never emitted.
	Balance struct {
		User      User
		Amount    Money
		Direction BalanceDirection
	}

	// Net is the raw signed accumulator for one counterparty. Positive
	// cents mean the viewer owes the counterparty.
	Net struct {
		CounterpartyID string
		Cents          int64
	}
)

// NetBalances accumulates the viewer's signed net position against every
// counterparty over the given expenses, in first-seen counterparty order.
//
// For each share s of an expense paid by p:
//   - s.user == viewer and p != viewer: the viewer owes p the share amount.
//   - p == viewer and s.user != viewer: s.user owes the viewer the share
//     amount.
//   - otherwise the viewer is not a party to the transfer.
//
// Counterparties whose accumulator nets to zero are dropped: the engine
// reports outstanding relationships, not historical activity.
func NetBalances(viewer string, expenses []Expense) []Net {
	cents := make(map[string]int64)
	var order []string

	accumulate := func(counterparty string, amount int64) {
		if _, ok := cents[counterparty]; !ok {
			order = append(order, counterparty)
		}
		cents[counterparty] += amount
	}

	for _, e := range expenses {
		for _, s := range e.Shares {
			switch {
			case s.User.ID == viewer && e.PaidBy.ID != viewer:
				accumulate(e.PaidBy.ID, s.Amount.Cents)
			case e.PaidBy.ID == viewer && s.User.ID != viewer:
				accumulate(s.User.ID, -s.Amount.Cents)
			}
		}
	}

	nets := make([]Net, 0, len(order))
	for _, id := range order {
		if cents[id] == 0 {
			continue
		}
		nets = append(nets, Net{CounterpartyID: id, Cents: cents[id]})
	}
	return nets
}

// Balance converts the raw accumulator into a directional balance for the
// given counterparty.
func (n Net) Balance(counterparty User) Balance {
	if n.Cents > 0 {
		return Balance{User: counterparty, Amount: Money{Cents: n.Cents}, Direction: DirectionOwe}
	}
	return Balance{User: counterparty, Amount: Money{Cents: -n.Cents}, Direction: DirectionOwed}
}

// GroupTotals sums the viewer's gross position over the given expenses into
// two scalars: what the viewer owes others and what others owe the viewer.
func GroupTotals(viewer string, expenses []Expense) (owedByViewer, owedToViewer Money) {
	for _, e := range expenses {
		for _, s := range e.Shares {
			switch {
			case s.User.ID == viewer && e.PaidBy.ID != viewer:
				owedByViewer = owedByViewer.Add(s.Amount)
			case e.PaidBy.ID == viewer && s.User.ID != viewer:
				owedToViewer = owedToViewer.Add(s.Amount)
			}
		}
	}
	return owedByViewer, owedToViewer
}
