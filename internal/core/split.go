package core

import "fmt"

// shareToleranceCents is the absolute reconciliation tolerance between an
// expense total and the sum of its shares: one cent.
const shareToleranceCents = 1

// SplitMismatchError reports custom share amounts that do not reconcile with
// the expense total. Delta is share sum minus total, in cents, so callers can
// tell the user exactly how far off the input is.
type SplitMismatchError struct {
	Total    Money
	ShareSum Money
}

func (e *SplitMismatchError) Error() string {
	return fmt.Sprintf("shares sum to %s but total is %s (delta %s)",
		e.ShareSum, e.Total, e.Delta())
}

// Delta returns the signed difference between the share sum and the total.
func (e *SplitMismatchError) Delta() Money {
	return Money{Cents: e.ShareSum.Cents - e.Total.Cents}
}

// ComputeShares divides total among participants according to the split
// type. It is a pure function with no side effects.
//
// Equal split divides the cent amount per head and assigns the rounding
// residue one cent at a time to the earliest participants in list order, so
// the shares always sum to total exactly. Splitting 100.00 three ways yields
// 33.34, 33.33, 33.33.
//
// Custom split takes each participant's amount from custom; missing entries
// default to zero. The amounts must reconcile with total within one cent or
// a *SplitMismatchError is returned.
func ComputeShares(total Money, splitType SplitType, participants []User, custom map[string]Money) ([]Share, error) {
	if err := total.Validate(); err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}
	seen := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		if _, dup := seen[p.ID]; dup {
			return nil, ErrDuplicateParticipant
		}
		seen[p.ID] = struct{}{}
	}

	switch splitType {
	case SplitEqual:
		return equalShares(total, participants), nil
	case SplitCustom:
		return customShares(total, participants, custom)
	default:
		return nil, ErrUnknownSplitType
	}
}

func equalShares(total Money, participants []User) []Share {
	n := int64(len(participants))
	base := total.Cents / n
	residue := total.Cents - base*n

	shares := make([]Share, len(participants))
	for i, p := range participants {
		cents := base
		// Leftover cents go to the first participants in list order.
		if int64(i) < residue {
			cents++
		}
		shares[i] = Share{User: p, Amount: Money{Cents: cents}}
	}
	return shares
}

func customShares(total Money, participants []User, custom map[string]Money) ([]Share, error) {
	shares := make([]Share, len(participants))
	var sum int64
	for i, p := range participants {
		amount := custom[p.ID] // missing entries stay zero
		if amount.Cents < 0 {
			return nil, ErrInvalidAmount
		}
		shares[i] = Share{User: p, Amount: amount}
		sum += amount.Cents
	}
	if delta := sum - total.Cents; delta > shareToleranceCents || delta < -shareToleranceCents {
		return nil, &SplitMismatchError{Total: total, ShareSum: Money{Cents: sum}}
	}
	return shares, nil
}
