package ledger

// balanceInGroup returns a user's net balance within one group, 0 if the user
// has no balance entry there.
func (l Ledger) balanceInGroup(userID, groupID string) float64 {
	for _, b := range l.ComputeGroupBalances(groupID) {
		if b.UserID == userID {
			return b.Amount
		}
	}
	return 0
}

// TotalOwedToUser sums the user's positive balances across every group they
// belong to. Debts in other groups never offset what the user is owed
// elsewhere; the result is always >= 0.
func (l Ledger) TotalOwedToUser(userID string) float64 {
	var total float64
	for _, g := range l.GroupsOfUser(userID) {
		if balance := l.balanceInGroup(userID, g.ID); balance > 0 {
			total += balance
		}
	}
	return round2(total)
}

// TotalUserOwes sums the absolute values of the user's negative balances
// across every group they belong to. The result is always >= 0.
func (l Ledger) TotalUserOwes(userID string) float64 {
	var total float64
	for _, g := range l.GroupsOfUser(userID) {
		if balance := l.balanceInGroup(userID, g.ID); balance < 0 {
			total += -balance
		}
	}
	return round2(total)
}

// UserNetBalance sums the user's signed balance across every group they
// belong to. Unlike the owed/owes pair this nets positives against negatives;
// it answers "am I up or down overall".
func (l Ledger) UserNetBalance(userID string) float64 {
	var total float64
	for _, g := range l.GroupsOfUser(userID) {
		total += l.balanceInGroup(userID, g.ID)
	}
	return round2(total)
}
