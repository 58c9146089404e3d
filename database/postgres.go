package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/mvessel/divvy/ledger"
)

// Database schema, to be run once
const schema = `
CREATE TABLE users (
	id 		UUID PRIMARY KEY,
	name 	TEXT NOT NULL,
	email 	TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	avatar 	TEXT NOT NULL DEFAULT ''
);

CREATE TABLE groups (
	id 			UUID PRIMARY KEY,
	name 		TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_by 	UUID NOT NULL REFERENCES users,
	created_at 	TIMESTAMPTZ NOT NULL
);

CREATE TABLE group_members (
	user_id 	UUID NOT NULL REFERENCES users,
	group_id 	UUID NOT NULL REFERENCES groups
);

CREATE UNIQUE INDEX group_members_unique_id ON group_members(group_id, user_id);

CREATE TABLE expenses (
	id 			UUID PRIMARY KEY,
	group_id 	UUID NOT NULL REFERENCES groups,
	description TEXT NOT NULL,
	amount 		DOUBLE PRECISION NOT NULL,
	paid_by 	UUID NOT NULL REFERENCES users,
	created_at 	TIMESTAMPTZ NOT NULL
);

CREATE INDEX expenses_group_id ON expenses(group_id);

CREATE TABLE expense_participants (
	expense_id 	UUID NOT NULL REFERENCES expenses,
	user_id 	UUID NOT NULL REFERENCES users,
	share 		DOUBLE PRECISION NOT NULL
);

CREATE INDEX expense_participants_expense_id ON expense_participants(expense_id);
CREATE UNIQUE INDEX expense_participants_unique_id ON expense_participants(expense_id, user_id);

CREATE TABLE payments (
	id 			UUID PRIMARY KEY,
	group_id 	UUID NOT NULL REFERENCES groups,
	from_user 	UUID NOT NULL REFERENCES users,
	to_user 	UUID NOT NULL REFERENCES users,
	amount 		DOUBLE PRECISION NOT NULL,
	method 		TEXT NOT NULL DEFAULT '',
	notes 		TEXT NOT NULL DEFAULT '',
	created_at 	TIMESTAMPTZ NOT NULL
);

CREATE INDEX payments_group_id ON payments(group_id);
`

// Config holds the configuration for the postgresql database
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// PgDatabase implements the Database interface for postgresql
type PgDatabase struct {
	config Config
}

// PgHandle implements the Handle interface for postgresql
type PgHandle struct {
	db *sql.DB
}

// NewPgDatabase creates an instance of PgDatabase
func NewPgDatabase(config Config) PgDatabase {
	return PgDatabase{config: config}
}

// Connect creates a connection to the postgres database
func (d PgDatabase) Connect() Handle {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s "+
		"password=%s dbname=%s sslmode=disable",
		d.config.Host, d.config.Port, d.config.User, d.config.Password, d.config.Name)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		panic(err)
	}

	if err = db.Ping(); err != nil {
		panic(err)
	}

	return &PgHandle{db: db}
}

// Close closes the database handle
func (p *PgHandle) Close() {
	p.db.Close()
}

// CreateSchema runs the SQL to create the schema. This is required to
// bootstrap the database.
func (p *PgHandle) CreateSchema() {
	slog.Info("Creating database schema")
	if _, err := p.db.Exec(schema); err != nil {
		panic(err)
	}
}

// isUniqueViolation returns true if err is a postgres unique constraint error
func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code.Name() == "unique_violation"
}

// CreateUser inserts a new user into the database. ErrDuplicate is returned
// if another user with the same email already exists.
func (p *PgHandle) CreateUser(name, email, password, avatar string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), 8)
	if err != nil {
		panic(err)
	}

	id := uuid.New().String()
	_, err = p.db.Exec(`
        INSERT INTO users (id, name, email, password, avatar)
        VALUES($1, $2, $3, $4, $5)
    `, id, name, email, hashedPassword, avatar)
	if err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicate
		}
		panic(err)
	}

	return id, nil
}

// AuthenticateUser checks if the user with email/password exists in the
// database and the password matches. ErrNotFound is returned if the user
// doesn't exist, ErrPasswordMismatch if the password mismatches.
func (p *PgHandle) AuthenticateUser(email, password string) (string, error) {
	var dbID string
	var dbPassword string
	err := p.db.QueryRow("SELECT id, password FROM users WHERE email=$1", email).Scan(&dbID, &dbPassword)
	if err != nil {
		slog.Info("Unknown user", "email", email)
		return "", ErrNotFound
	}

	if err = bcrypt.CompareHashAndPassword([]byte(dbPassword), []byte(password)); err != nil {
		return "", ErrPasswordMismatch
	}

	return dbID, nil
}

// GetUsers returns all users in the database, ordered by email
func (p *PgHandle) GetUsers() []ledger.User {
	rows, err := p.db.Query("SELECT id, name, email, avatar FROM users ORDER BY email")
	if err != nil {
		panic(err)
	}
	defer rows.Close()

	users := make([]ledger.User, 0)
	for rows.Next() {
		var u ledger.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Avatar); err != nil {
			panic(err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		panic(err)
	}

	return users
}

// CreateGroup creates a group and its creator's membership in a transaction
func (p *PgHandle) CreateGroup(name, description, createdBy string) (string, error) {
	txn, err := p.db.Begin()
	if err != nil {
		panic(err)
	}
	defer txn.Rollback()

	id := uuid.New().String()
	_, err = txn.Exec(`
        INSERT INTO groups (id, name, description, created_by, created_at)
        VALUES($1, $2, $3, $4, NOW())
    `, id, name, description, createdBy)
	if err != nil {
		return "", ErrNotFound
	}

	_, err = txn.Exec(`
        INSERT INTO group_members (user_id, group_id)
        VALUES($1, $2)
    `, createdBy, id)
	if err != nil {
		panic(err)
	}

	if err = txn.Commit(); err != nil {
		panic(err)
	}
	return id, nil
}

// GetGroups returns the groups a user is a member of
func (p *PgHandle) GetGroups(userID string) []ledger.Group {
	rows, err := p.db.Query(`
        SELECT g.id, g.name, g.description, g.created_by, g.created_at
        FROM groups g JOIN group_members m ON (g.id = m.group_id)
        WHERE m.user_id = $1
        ORDER BY g.created_at
    `, userID)
	if err != nil {
		panic(err)
	}
	defer rows.Close()

	groups := make([]ledger.Group, 0)
	for rows.Next() {
		var g ledger.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt); err != nil {
			panic(err)
		}
		groups = append(groups, g)
	}

	if err := rows.Err(); err != nil {
		panic(err)
	}

	return groups
}

// AddMember adds a user to a group. ErrDuplicate is returned when the
// membership already exists, ErrNotFound when the group or user doesn't.
func (p *PgHandle) AddMember(groupID, userID string) error {
	_, err := p.db.Exec(`
        INSERT INTO group_members (user_id, group_id)
        VALUES($1, $2)
    `, userID, groupID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return ErrNotFound
	}
	return nil
}

// RemoveMember removes a user from a group. The creator cannot leave their
// own group.
func (p *PgHandle) RemoveMember(groupID, userID string) error {
	var createdBy string
	err := p.db.QueryRow("SELECT created_by FROM groups WHERE id=$1", groupID).Scan(&createdBy)
	if err != nil {
		return ErrNotFound
	}
	if createdBy == userID {
		return ErrIsCreator
	}

	result, err := p.db.Exec(`
        DELETE FROM group_members WHERE group_id=$1 AND user_id=$2
    `, groupID, userID)
	if err != nil {
		panic(err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		panic(err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// IsMember reports whether a user belongs to a group
func (p *PgHandle) IsMember(groupID, userID string) bool {
	var exists bool
	err := p.db.QueryRow(`
        SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id=$1 AND user_id=$2)
    `, groupID, userID).Scan(&exists)
	if err != nil {
		panic(err)
	}
	return exists
}

// CreateExpense creates entries in the expenses and expense_participants
// tables in a transaction to ensure consistency
func (p *PgHandle) CreateExpense(e ledger.Expense, participants []ledger.Participant) (string, error) {
	txn, err := p.db.Begin()
	if err != nil {
		panic(err)
	}
	defer txn.Rollback()

	id := uuid.New().String()
	_, err = txn.Exec(`
        INSERT INTO expenses (id, group_id, description, amount, paid_by, created_at)
        VALUES($1, $2, $3, $4, $5, NOW())
    `, id, e.GroupID, e.Description, e.Amount, e.PaidBy)
	if err != nil {
		return "", ErrNotFound
	}

	stmt, err := txn.Prepare(`
        INSERT INTO expense_participants (expense_id, user_id, share)
        VALUES($1, $2, $3)
    `)
	if err != nil {
		panic(err)
	}

	for _, participant := range participants {
		if _, err = stmt.Exec(id, participant.UserID, participant.Share); err != nil {
			panic(err)
		}
	}

	if err = txn.Commit(); err != nil {
		panic(err)
	}
	return id, nil
}

// CreatePayment creates a payment entry
func (p *PgHandle) CreatePayment(payment ledger.Payment) (string, error) {
	id := uuid.New().String()
	_, err := p.db.Exec(`
        INSERT INTO payments (id, group_id, from_user, to_user, amount, method, notes, created_at)
        VALUES($1, $2, $3, $4, $5, $6, $7, NOW())
    `, id, payment.GroupID, payment.FromUser, payment.ToUser, payment.Amount, payment.Method, payment.Notes)
	if err != nil {
		return "", ErrNotFound
	}
	return id, nil
}

// Snapshot reads all collections into a ledger. Recomputation is linear in
// ledger size, so the whole thing is read rather than per-group slices.
func (p *PgHandle) Snapshot() ledger.Ledger {
	l := ledger.Ledger{
		Users:        p.GetUsers(),
		Groups:       make([]ledger.Group, 0),
		Members:      make([]ledger.GroupMember, 0),
		Expenses:     make([]ledger.Expense, 0),
		Participants: make([]ledger.Participant, 0),
		Payments:     make([]ledger.Payment, 0),
	}

	rows, err := p.db.Query("SELECT id, name, description, created_by, created_at FROM groups ORDER BY created_at")
	if err != nil {
		panic(err)
	}
	for rows.Next() {
		var g ledger.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt); err != nil {
			panic(err)
		}
		l.Groups = append(l.Groups, g)
	}
	if err := rows.Err(); err != nil {
		panic(err)
	}
	rows.Close()

	rows, err = p.db.Query("SELECT user_id, group_id FROM group_members")
	if err != nil {
		panic(err)
	}
	for rows.Next() {
		var m ledger.GroupMember
		if err := rows.Scan(&m.UserID, &m.GroupID); err != nil {
			panic(err)
		}
		l.Members = append(l.Members, m)
	}
	if err := rows.Err(); err != nil {
		panic(err)
	}
	rows.Close()

	rows, err = p.db.Query("SELECT id, group_id, description, amount, paid_by, created_at FROM expenses ORDER BY created_at")
	if err != nil {
		panic(err)
	}
	for rows.Next() {
		var e ledger.Expense
		if err := rows.Scan(&e.ID, &e.GroupID, &e.Description, &e.Amount, &e.PaidBy, &e.CreatedAt); err != nil {
			panic(err)
		}
		l.Expenses = append(l.Expenses, e)
	}
	if err := rows.Err(); err != nil {
		panic(err)
	}
	rows.Close()

	rows, err = p.db.Query("SELECT expense_id, user_id, share FROM expense_participants")
	if err != nil {
		panic(err)
	}
	for rows.Next() {
		var part ledger.Participant
		if err := rows.Scan(&part.ExpenseID, &part.UserID, &part.Share); err != nil {
			panic(err)
		}
		l.Participants = append(l.Participants, part)
	}
	if err := rows.Err(); err != nil {
		panic(err)
	}
	rows.Close()

	rows, err = p.db.Query("SELECT id, group_id, from_user, to_user, amount, method, notes, created_at FROM payments ORDER BY created_at")
	if err != nil {
		panic(err)
	}
	for rows.Next() {
		var payment ledger.Payment
		if err := rows.Scan(&payment.ID, &payment.GroupID, &payment.FromUser, &payment.ToUser,
			&payment.Amount, &payment.Method, &payment.Notes, &payment.CreatedAt); err != nil {
			panic(err)
		}
		l.Payments = append(l.Payments, payment)
	}
	if err := rows.Err(); err != nil {
		panic(err)
	}
	rows.Close()

	return l
}
