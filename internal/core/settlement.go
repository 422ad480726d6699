package core

import "sync"

// SettlementSet tracks which counterparties the viewer has manually flagged
// as settled. It is session state, deliberately independent of the ledger:
// recording a new expense does not clear a mark, and marks never influence
// balance computation.
type SettlementSet struct {
	mu      sync.Mutex
	settled map[string]struct{}
}

// NewSettlementSet returns an empty settlement set.
func NewSettlementSet() *SettlementSet {
	return &SettlementSet{settled: make(map[string]struct{})}
}

// MarkSettled flags the counterparty as settled. Marking twice is a no-op.
func (s *SettlementSet) MarkSettled(counterpartyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settled[counterpartyID] = struct{}{}
}

// IsSettled reports whether the counterparty has been flagged.
func (s *SettlementSet) IsSettled(counterpartyID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.settled[counterpartyID]
	return ok
}

// Settled returns all flagged counterparty ids, in no particular order.
func (s *SettlementSet) Settled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.settled))
	for id := range s.settled {
		ids = append(ids, id)
	}
	return ids
}

// Reset discards every mark.
func (s *SettlementSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settled = make(map[string]struct{})
}
