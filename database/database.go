package database

import (
	"errors"

	"github.com/mvessel/divvy/ledger"
)

// ErrDuplicate is returned when a create request fails due to a duplicate entry
var ErrDuplicate = errors.New("duplicate")

// ErrNotFound is returned when an entry could not be found
var ErrNotFound = errors.New("not found")

// ErrPasswordMismatch is returned when authentication fails due to a bad password
var ErrPasswordMismatch = errors.New("password mismatch")

// ErrIsCreator is returned when attempting to remove a group's creator from
// their own group
var ErrIsCreator = errors.New("user is the group creator")

// Database is an interface that does nothing more than return a database
// handle. It is used to configure different types of databases.
type Database interface {
	Connect() Handle
}

// Handle is an interface containing methods to manage a database handle and
// perform user, group, expense and payment queries on it. Mutating methods
// are the write boundary: they are where data integrity (unique memberships,
// share sums, member references) is enforced, so the ledger calculations can
// stay permissive.
type Handle interface {
	Close()        // Close the database handle
	CreateSchema() // Create the database schema

	CreateUser(name, email, password, avatar string) (string, error) // Create a user, returning its id
	AuthenticateUser(email, password string) (string, error)         // Authenticate a user, returning its id
	GetUsers() []ledger.User                                         // Get a slice of all users

	CreateGroup(name, description, createdBy string) (string, error) // Create a group; the creator joins automatically
	GetGroups(userID string) []ledger.Group                          // Get the groups a user belongs to
	AddMember(groupID, userID string) error                          // Add a user to a group
	RemoveMember(groupID, userID string) error                       // Remove a user from a group
	IsMember(groupID, userID string) bool                            // Report whether a user is in a group

	CreateExpense(e ledger.Expense, participants []ledger.Participant) (string, error) // Create an expense with its participant rows
	CreatePayment(p ledger.Payment) (string, error)                                    // Create a payment entry

	Snapshot() ledger.Ledger // Materialize the full ledger for calculations
}
