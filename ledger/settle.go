package ledger

import (
	"sort"
)

// settleEpsilon suppresses rounding-noise transactions: residuals smaller
// than one cent count as settled.
const settleEpsilon = 0.01

// SuggestSettlements returns a list of transfers that, if all executed, would
// bring every member's balance in the group to zero. It uses greedy
// two-pointer matching of the largest debtor against the largest creditor,
// which emits at most one transaction fewer than the number of members with a
// non-zero balance.
//
// The result is a suggestion only; recording actual payments is up to the
// caller.
func (l Ledger) SuggestSettlements(groupID string) []SuggestedPayment {
	balances := l.ComputeGroupBalances(groupID)

	debtors := make([]UserBalance, 0)
	creditors := make([]UserBalance, 0)
	for _, b := range balances {
		switch {
		case b.Amount < 0:
			debtors = append(debtors, b)
		case b.Amount > 0:
			creditors = append(creditors, b)
		}
	}

	// Most negative debtor and most owed creditor first, user ID as the
	// tie-break so equal amounts always pair up the same way
	sort.Slice(debtors, func(i, j int) bool {
		if debtors[i].Amount != debtors[j].Amount {
			return debtors[i].Amount < debtors[j].Amount
		}
		return debtors[i].UserID < debtors[j].UserID
	})
	sort.Slice(creditors, func(i, j int) bool {
		if creditors[i].Amount != creditors[j].Amount {
			return creditors[i].Amount > creditors[j].Amount
		}
		return creditors[i].UserID < creditors[j].UserID
	})

	suggestions := make([]SuggestedPayment, 0)
	i, j := 0, 0 // i walks creditors, j walks debtors
	for i < len(creditors) && j < len(debtors) {
		creditor := &creditors[i]
		debtor := &debtors[j]

		amount := creditor.Amount
		if -debtor.Amount < amount {
			amount = -debtor.Amount
		}

		if amount > settleEpsilon {
			suggestions = append(suggestions, SuggestedPayment{
				From:     debtor.UserID,
				FromName: debtor.UserName,
				To:       creditor.UserID,
				ToName:   creditor.UserName,
				Amount:   round2(amount),
			})
		}

		creditor.Amount -= amount
		debtor.Amount += amount

		// Either or both parties may be done in the same step
		if creditor.Amount < settleEpsilon {
			i++
		}
		if -debtor.Amount < settleEpsilon {
			j++
		}
	}

	return suggestions
}
