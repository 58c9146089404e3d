package cache

import (
	"testing"
	"time"

	"github.com/mvessel/divvy/database"
	"github.com/mvessel/divvy/ledger"
)

// seedGroup creates three users in a group with one equally split expense of
// 90 paid by the first user, returning the user ids and group id
func seedGroup(t *testing.T, db database.Database) ([]string, string) {
	t.Helper()

	dbh := db.Connect()
	defer dbh.Close()

	users := make([]string, 3)
	for i, name := range []string{"alice", "bob", "carol"} {
		id, err := dbh.CreateUser(name, name+"@example.com", "secret", "")
		if err != nil {
			t.Fatalf("unable to create user: %v", err)
		}
		users[i] = id
	}

	groupID, err := dbh.CreateGroup("Flat", "", users[0])
	if err != nil {
		t.Fatalf("unable to create group: %v", err)
	}
	for _, u := range users[1:] {
		if err := dbh.AddMember(groupID, u); err != nil {
			t.Fatalf("unable to add member: %v", err)
		}
	}

	_, err = dbh.CreateExpense(ledger.Expense{GroupID: groupID, Description: "Dinner", Amount: 90, PaidBy: users[0]},
		[]ledger.Participant{
			{UserID: users[0], Share: 30},
			{UserID: users[1], Share: 30},
			{UserID: users[2], Share: 30},
		})
	if err != nil {
		t.Fatalf("unable to create expense: %v", err)
	}

	return users, groupID
}

func balanceOf(balances []ledger.UserBalance, userID string) float64 {
	for _, b := range balances {
		if b.UserID == userID {
			return b.Amount
		}
	}
	return 0
}

func TestInMemoryCacheServesStaleWithinWindow(t *testing.T) {
	db := database.NewInMemoryDatabase()
	users, groupID := seedGroup(t, db)

	now := time.Now()
	c := NewInMemoryCache()
	c.now = func() time.Time { return now }

	if got := balanceOf(c.GroupBalances(db, groupID), users[0]); got != 60 {
		t.Fatalf("expected balance 60, got %f", got)
	}

	// A ledger write without invalidation isn't visible within the window
	dbh := db.Connect()
	if _, err := dbh.CreatePayment(ledger.Payment{GroupID: groupID, FromUser: users[1], ToUser: users[0], Amount: 30}); err != nil {
		t.Fatalf("unable to create payment: %v", err)
	}
	dbh.Close()

	if got := balanceOf(c.GroupBalances(db, groupID), users[0]); got != 60 {
		t.Errorf("expected cached balance 60 within freshness window, got %f", got)
	}

	// Once the window has passed the value is recomputed
	now = now.Add(freshnessWindow + time.Millisecond)
	if got := balanceOf(c.GroupBalances(db, groupID), users[0]); got != 30 {
		t.Errorf("expected recomputed balance 30 after window, got %f", got)
	}
}

func TestInMemoryCacheInvalidate(t *testing.T) {
	db := database.NewInMemoryDatabase()
	users, groupID := seedGroup(t, db)

	c := NewInMemoryCache()
	if got := balanceOf(c.GroupBalances(db, groupID), users[0]); got != 60 {
		t.Fatalf("expected balance 60, got %f", got)
	}

	dbh := db.Connect()
	if _, err := dbh.CreatePayment(ledger.Payment{GroupID: groupID, FromUser: users[1], ToUser: users[0], Amount: 30}); err != nil {
		t.Fatalf("unable to create payment: %v", err)
	}
	dbh.Close()

	// Invalidation makes the write visible immediately
	c.Invalidate()
	if got := balanceOf(c.GroupBalances(db, groupID), users[0]); got != 30 {
		t.Errorf("expected balance 30 after invalidation, got %f", got)
	}
}

func TestInMemoryCacheNetBalance(t *testing.T) {
	db := database.NewInMemoryDatabase()
	users, _ := seedGroup(t, db)

	c := NewInMemoryCache()
	if got := c.NetBalance(db, users[0]); got != 60 {
		t.Errorf("expected net balance 60, got %f", got)
	}
	if got := c.NetBalance(db, users[1]); got != -30 {
		t.Errorf("expected net balance -30, got %f", got)
	}
}
