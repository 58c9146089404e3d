package database

import (
	"testing"

	"github.com/mvessel/divvy/ledger"
)

func TestCreateUserDuplicateEmail(t *testing.T) {
	dbh := NewInMemoryDatabase().Connect()
	defer dbh.Close()

	if _, err := dbh.CreateUser("Alice", "alice@example.com", "secret", ""); err != nil {
		t.Fatalf("unable to create user: %v", err)
	}
	if _, err := dbh.CreateUser("Alice Again", "alice@example.com", "secret", ""); err != ErrDuplicate {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestAuthenticateUser(t *testing.T) {
	dbh := NewInMemoryDatabase().Connect()
	defer dbh.Close()

	id, err := dbh.CreateUser("Alice", "alice@example.com", "secret", "")
	if err != nil {
		t.Fatalf("unable to create user: %v", err)
	}

	got, err := dbh.AuthenticateUser("alice@example.com", "secret")
	if err != nil || got != id {
		t.Errorf("expected (%s, nil), got (%s, %v)", id, got, err)
	}

	if _, err := dbh.AuthenticateUser("alice@example.com", "wrong"); err != ErrPasswordMismatch {
		t.Errorf("expected ErrPasswordMismatch, got %v", err)
	}
	if _, err := dbh.AuthenticateUser("nobody@example.com", "secret"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMembershipRules(t *testing.T) {
	dbh := NewInMemoryDatabase().Connect()
	defer dbh.Close()

	aliceID, _ := dbh.CreateUser("Alice", "alice@example.com", "secret", "")
	bobID, _ := dbh.CreateUser("Bob", "bob@example.com", "secret", "")

	groupID, err := dbh.CreateGroup("Flat", "the flat", aliceID)
	if err != nil {
		t.Fatalf("unable to create group: %v", err)
	}

	// The creator joined automatically
	if !dbh.IsMember(groupID, aliceID) {
		t.Error("expected creator to be a member")
	}

	if err := dbh.AddMember(groupID, bobID); err != nil {
		t.Fatalf("unable to add member: %v", err)
	}

	// No duplicate memberships
	if err := dbh.AddMember(groupID, bobID); err != ErrDuplicate {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	// Unknown users and groups
	if err := dbh.AddMember(groupID, "no-such-user"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := dbh.AddMember("no-such-group", bobID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// The creator cannot leave, other members can
	if err := dbh.RemoveMember(groupID, aliceID); err != ErrIsCreator {
		t.Errorf("expected ErrIsCreator, got %v", err)
	}
	if err := dbh.RemoveMember(groupID, bobID); err != nil {
		t.Errorf("unable to remove member: %v", err)
	}
	if dbh.IsMember(groupID, bobID) {
		t.Error("expected bob to be removed")
	}
	if err := dbh.RemoveMember(groupID, bobID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	dbh := NewInMemoryDatabase().Connect()
	defer dbh.Close()

	aliceID, _ := dbh.CreateUser("Alice", "alice@example.com", "secret", "")
	bobID, _ := dbh.CreateUser("Bob", "bob@example.com", "secret", "")
	groupID, _ := dbh.CreateGroup("Flat", "", aliceID)
	_ = dbh.AddMember(groupID, bobID)

	expenseID, err := dbh.CreateExpense(
		ledger.Expense{GroupID: groupID, Description: "Coffee", Amount: 8, PaidBy: aliceID},
		[]ledger.Participant{{UserID: aliceID, Share: 4}, {UserID: bobID, Share: 4}},
	)
	if err != nil {
		t.Fatalf("unable to create expense: %v", err)
	}

	if _, err := dbh.CreatePayment(ledger.Payment{GroupID: groupID, FromUser: bobID, ToUser: aliceID, Amount: 4, Method: "cash"}); err != nil {
		t.Fatalf("unable to create payment: %v", err)
	}

	snapshot := dbh.Snapshot()
	if len(snapshot.Users) != 2 || len(snapshot.Groups) != 1 || len(snapshot.Members) != 2 {
		t.Errorf("unexpected snapshot sizes: %d users, %d groups, %d members",
			len(snapshot.Users), len(snapshot.Groups), len(snapshot.Members))
	}
	if len(snapshot.Expenses) != 1 || len(snapshot.Participants) != 2 || len(snapshot.Payments) != 1 {
		t.Errorf("unexpected snapshot sizes: %d expenses, %d participants, %d payments",
			len(snapshot.Expenses), len(snapshot.Participants), len(snapshot.Payments))
	}

	// Participant rows were stamped with the generated expense id
	for _, p := range snapshot.Participants {
		if p.ExpenseID != expenseID {
			t.Errorf("participant not linked to expense: %+v", p)
		}
	}

	// The snapshot feeds straight into the calculations; everyone is settled
	for _, b := range snapshot.ComputeGroupBalances(groupID) {
		if b.Amount != 0 {
			t.Errorf("expected settled balance for %s, got %f", b.UserID, b.Amount)
		}
	}
}
