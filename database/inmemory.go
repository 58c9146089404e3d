package database

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mvessel/divvy/ledger"
)

// userWithPassword is a database entry for a user
type userWithPassword struct {
	user     ledger.User
	password string
}

// InMemoryDatabase implements the Database interface for an in memory
// database. It backs tests and development runs; passwords are stored as
// given, without hashing.
type InMemoryDatabase struct {
	mtx          sync.Mutex
	users        []userWithPassword
	groups       []ledger.Group
	members      []ledger.GroupMember
	expenses     []ledger.Expense
	participants []ledger.Participant
	payments     []ledger.Payment
}

// InMemoryHandle implements the Handle interface for an in memory database
type InMemoryHandle struct {
	db *InMemoryDatabase
}

// NewInMemoryDatabase creates an instance of InMemoryDatabase
func NewInMemoryDatabase() Database {
	return new(InMemoryDatabase)
}

// Connect creates a handle for the in memory database
func (d *InMemoryDatabase) Connect() Handle {
	return &InMemoryHandle{db: d}
}

// Close is a noop
func (h *InMemoryHandle) Close() {}

// CreateSchema is a noop
func (h *InMemoryHandle) CreateSchema() {}

// CreateUser adds a user. ErrDuplicate is returned if another user with the
// same email already exists.
func (h *InMemoryHandle) CreateUser(name, email, password, avatar string) (string, error) {
	h.db.mtx.Lock()
	defer h.db.mtx.Unlock()

	for _, u := range h.db.users {
		if u.user.Email == email {
			return "", ErrDuplicate
		}
	}

	user := ledger.User{ID: uuid.New().String(), Name: name, Email: email, Avatar: avatar}
	h.db.users = append(h.db.users, userWithPassword{user: user, password: password})
	return user.ID, nil
}

// AuthenticateUser checks the email/password pair against the stored users
func (h *InMemoryHandle) AuthenticateUser(email, password string) (string, error) {
	h.db.mtx.Lock()
	defer h.db.mtx.Unlock()

	for _, u := range h.db.users {
		if u.user.Email != email {
			continue
		}
		if u.password != password {
			return "", ErrPasswordMismatch
		}
		return u.user.ID, nil
	}
	return "", ErrNotFound
}

// GetUsers returns a list of all users
func (h *InMemoryHandle) GetUsers() []ledger.User {
	h.db.mtx.Lock()
	defer h.db.mtx.Unlock()

	users := make([]ledger.User, len(h.db.users))
	for i, u := range h.db.users {
		users[i] = u.user
	}
	return users
}

// CreateGroup creates a group and adds the creator as its first member
func (h *InMemoryHandle) CreateGroup(name, description, createdBy string) (string, error) {
	h.db.mtx.Lock()
	defer h.db.mtx.Unlock()

	if !h.userExists(createdBy) {
		return "", ErrNotFound
	}

	group := ledger.Group{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
	}
	h.db.groups = append(h.db.groups, group)
	h.db.members = append(h.db.members, ledger.GroupMember{UserID: createdBy, GroupID: group.ID})
	return group.ID, nil
}

// GetGroups returns the groups a user is a member of
func (h *InMemoryHandle) GetGroups(userID string) []ledger.Group {
	h.db.mtx.Lock()
	defer h.db.mtx.Unlock()

	return h.snapshotLocked().GroupsOfUser(userID)
}

// AddMember adds a user to a group. ErrNotFound is returned if either side
// doesn't exist, ErrDuplicate if the membership already exists.
func (h *InMemoryHandle) AddMember(groupID, userID string) error {
	h.db.mtx.Lock()
	defer h.db.mtx.Unlock()

	if !h.groupExists(groupID) || !h.userExists(userID) {
		return ErrNotFound
	}

	for _, m := range h.db.members {
		if m.GroupID == groupID && m.UserID == userID {
			return ErrDuplicate
		}
	}

	h.db.members = append(h.db.members, ledger.GroupMember{UserID: userID, GroupID: groupID})
	return nil
}

// RemoveMember removes a user from a group. The creator cannot leave their
// own group.
func (h *InMemoryHandle) RemoveMember(groupID, userID string) error {
	h.db.mtx.Lock()
	defer h.db.mtx.Unlock()

	for _, g := range h.db.groups {
		if g.ID == groupID && g.CreatedBy == userID {
			return ErrIsCreator
		}
	}

	for i, m := range h.db.members {
		if m.GroupID == groupID && m.UserID == userID {
			h.db.members = append(h.db.members[:i], h.db.members[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// IsMember reports whether a user belongs to a group
func (h *InMemoryHandle) IsMember(groupID, userID string) bool {
	h.db.mtx.Lock()
	defer h.db.mtx.Unlock()

	for _, m := range h.db.members {
		if m.GroupID == groupID && m.UserID == userID {
			return true
		}
	}
	return false
}

// CreateExpense creates an expense and its participant rows
func (h *InMemoryHandle) CreateExpense(e ledger.Expense, participants []ledger.Participant) (string, error) {
	h.db.mtx.Lock()
	defer h.db.mtx.Unlock()

	if !h.groupExists(e.GroupID) {
		return "", ErrNotFound
	}

	e.ID = uuid.New().String()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	h.db.expenses = append(h.db.expenses, e)

	for _, p := range participants {
		p.ExpenseID = e.ID
		h.db.participants = append(h.db.participants, p)
	}
	return e.ID, nil
}

// CreatePayment creates a payment entry
func (h *InMemoryHandle) CreatePayment(p ledger.Payment) (string, error) {
	h.db.mtx.Lock()
	defer h.db.mtx.Unlock()

	if !h.groupExists(p.GroupID) {
		return "", ErrNotFound
	}

	p.ID = uuid.New().String()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	h.db.payments = append(h.db.payments, p)
	return p.ID, nil
}

// Snapshot returns a copy of all collections as a ledger
func (h *InMemoryHandle) Snapshot() ledger.Ledger {
	h.db.mtx.Lock()
	defer h.db.mtx.Unlock()

	return h.snapshotLocked()
}

func (h *InMemoryHandle) snapshotLocked() ledger.Ledger {
	users := make([]ledger.User, len(h.db.users))
	for i, u := range h.db.users {
		users[i] = u.user
	}

	return ledger.Ledger{
		Users:        users,
		Groups:       append([]ledger.Group(nil), h.db.groups...),
		Members:      append([]ledger.GroupMember(nil), h.db.members...),
		Expenses:     append([]ledger.Expense(nil), h.db.expenses...),
		Participants: append([]ledger.Participant(nil), h.db.participants...),
		Payments:     append([]ledger.Payment(nil), h.db.payments...),
	}
}

func (h *InMemoryHandle) userExists(userID string) bool {
	for _, u := range h.db.users {
		if u.user.ID == userID {
			return true
		}
	}
	return false
}

func (h *InMemoryHandle) groupExists(groupID string) bool {
	for _, g := range h.db.groups {
		if g.ID == groupID {
			return true
		}
	}
	return false
}
