package ledger

import (
	"math"
)

// round2 rounds a currency amount to 2 decimal places. Rounding happens once,
// at the public boundary, never inside the summation.
func round2(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// ComputeGroupBalances calculates the net balance of every member of a group.
// This is the heart of the application.
//
// Every expense and payment is an order-insensitive signed adjustment to a
// single accumulator per member: the payer of an expense is credited the full
// amount, each participant is debited their share (so a payer who also took
// part nets amount minus their own share), and a payment credits the sender
// and debits the receiver. Members with no activity appear with balance 0.
//
// Inconsistent data, such as participant shares that don't sum to the expense
// amount, is not detected here; the write path enforces that invariant and
// the arithmetic consequences of pre-existing bad rows simply flow through.
func (l Ledger) ComputeGroupBalances(groupID string) []UserBalance {
	members := l.MembersOfGroup(groupID)

	// Every member gets an accumulator, even without any ledger activity
	accumulators := make(map[string]float64, len(members))
	for _, m := range members {
		accumulators[m.ID] = 0
	}

	for _, expense := range l.ExpensesOfGroup(groupID) {
		accumulators[expense.PaidBy] += expense.Amount
		for _, p := range l.ParticipantsOfExpense(expense.ID) {
			accumulators[p.UserID] -= p.Share
		}
	}

	for _, payment := range l.PaymentsOfGroup(groupID) {
		accumulators[payment.FromUser] += payment.Amount
		accumulators[payment.ToUser] -= payment.Amount
	}

	// Membership order keeps repeated calls bit-for-bit identical
	balances := make([]UserBalance, len(members))
	for i, m := range members {
		balances[i] = UserBalance{
			UserID:   m.ID,
			UserName: m.Name,
			Amount:   round2(accumulators[m.ID]),
		}
	}
	return balances
}
