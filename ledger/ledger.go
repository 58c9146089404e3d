package ledger

import (
	"time"
)

// User is a registered user. Avatar is an opaque display reference, the
// ledger never interprets it.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// Group is a circle of users that share expenses. Membership is stored
// separately in GroupMember rows.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// GroupMember links a user to a group. At most one row exists per
// (UserID, GroupID) pair.
type GroupMember struct {
	UserID  string `json:"user_id"`
	GroupID string `json:"group_id"`
}

// Expense is a single expense fronted by one member on behalf of some subset
// of the group. The per-member shares are stored in Participant rows.
type Expense struct {
	ID          string    `json:"id"`
	GroupID     string    `json:"group_id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	PaidBy      string    `json:"paid_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Participant is one member's share of one expense. Shares of an expense sum
// to the expense amount; a zero share means the member is excluded.
type Participant struct {
	ExpenseID string  `json:"expense_id"`
	UserID    string  `json:"user_id"`
	Share     float64 `json:"share"`
}

// Payment is a direct settlement: FromUser gives Amount to ToUser.
type Payment struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	FromUser  string    `json:"from_user"`
	ToUser    string    `json:"to_user"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// UserBalance is a member's net position within a group. Positive means the
// member is owed money, negative means they owe.
type UserBalance struct {
	UserID   string  `json:"user_id"`
	UserName string  `json:"user_name"`
	Amount   float64 `json:"amount"`
}

// SuggestedPayment is a recommended transfer that reduces outstanding debt.
// It is never applied by the ledger, only suggested.
type SuggestedPayment struct {
	From     string  `json:"from"`
	FromName string  `json:"from_name"`
	To       string  `json:"to"`
	ToName   string  `json:"to_name"`
	Amount   float64 `json:"amount"`
}

// Ledger is a complete in-memory snapshot of the entity collections. All
// calculations are pure reads over a snapshot; whoever materialized it (the
// database layer) remains the source of truth.
type Ledger struct {
	Users        []User        `json:"users"`
	Groups       []Group       `json:"groups"`
	Members      []GroupMember `json:"members"`
	Expenses     []Expense     `json:"expenses"`
	Participants []Participant `json:"participants"`
	Payments     []Payment     `json:"payments"`
}

// ExpensesOfGroup returns all expenses belonging to a group. An unknown group
// yields an empty slice.
func (l Ledger) ExpensesOfGroup(groupID string) []Expense {
	expenses := make([]Expense, 0)
	for _, e := range l.Expenses {
		if e.GroupID == groupID {
			expenses = append(expenses, e)
		}
	}
	return expenses
}

// MembersOfGroup returns the users that are members of a group, in membership
// order.
func (l Ledger) MembersOfGroup(groupID string) []User {
	users := make([]User, 0)
	for _, m := range l.Members {
		if m.GroupID != groupID {
			continue
		}
		if u, ok := l.UserByID(m.UserID); ok {
			users = append(users, u)
		}
	}
	return users
}

// ParticipantsOfExpense returns all participant rows of an expense.
func (l Ledger) ParticipantsOfExpense(expenseID string) []Participant {
	participants := make([]Participant, 0)
	for _, p := range l.Participants {
		if p.ExpenseID == expenseID {
			participants = append(participants, p)
		}
	}
	return participants
}

// PaymentsOfGroup returns all payments recorded in a group.
func (l Ledger) PaymentsOfGroup(groupID string) []Payment {
	payments := make([]Payment, 0)
	for _, p := range l.Payments {
		if p.GroupID == groupID {
			payments = append(payments, p)
		}
	}
	return payments
}

// GroupsOfUser returns the groups a user belongs to, in membership order.
func (l Ledger) GroupsOfUser(userID string) []Group {
	groups := make([]Group, 0)
	for _, m := range l.Members {
		if m.UserID != userID {
			continue
		}
		for _, g := range l.Groups {
			if g.ID == m.GroupID {
				groups = append(groups, g)
				break
			}
		}
	}
	return groups
}

// UserByID looks up a user. The second return value is false if the user is
// not in the snapshot.
func (l Ledger) UserByID(userID string) (User, bool) {
	for _, u := range l.Users {
		if u.ID == userID {
			return u, true
		}
	}
	return User{}, false
}
