package api

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"

	"github.com/mvessel/divvy/ledger"
)

type participantRequest struct {
	UserID string  `json:"user_id"`
	Share  float64 `json:"share"`
}

type createExpenseRequest struct {
	Description  string               `json:"description"`
	Amount       float64              `json:"amount"`
	PaidBy       string               `json:"paid_by"` // defaults to the authenticated user
	Participants []participantRequest `json:"participants"`
}

type expensesResponse struct {
	Expenses []ledger.Expense `json:"expenses"`
}

// postExpenses adds an expense with arbitrary split shares. The shares must
// sum to the amount within shareTolerance; the payer and every participant
// must be a member of the group. Enforcing this here keeps the ledger
// calculations free of validation.
func (api *API) postExpenses(w http.ResponseWriter, r *http.Request, userID string) {
	groupID, ok := api.requireMembership(w, r, userID)
	if !ok {
		return
	}

	dbh := api.db.Connect()
	defer dbh.Close()

	// Decode request
	var e createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		slog.Info("Unable to decode and parse json")
		writeError(w, http.StatusBadRequest, "unable to decode and parse json")
		return
	}

	// Validate description and amount
	if e.Description == "" {
		writeError(w, http.StatusBadRequest, "description must not be empty")
		return
	}

	if e.Amount <= 0 {
		slog.Info("Invalid amount", "amount", e.Amount)
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	// The payer defaults to the authenticated user and must be a member
	paidBy := e.PaidBy
	if paidBy == "" {
		paidBy = userID
	}
	if !dbh.IsMember(groupID, paidBy) {
		writeError(w, http.StatusBadRequest, "payer is not a member of the group")
		return
	}

	// Validate participants: present, unique, members, non-negative shares
	// summing to the amount
	if len(e.Participants) == 0 {
		writeError(w, http.StatusBadRequest, "at least one participant is required")
		return
	}

	seen := make(map[string]bool, len(e.Participants))
	var shareSum float64
	for _, p := range e.Participants {
		if seen[p.UserID] {
			slog.Info("Duplicate participant", "user_id", p.UserID)
			writeError(w, http.StatusBadRequest, "duplicate participant")
			return
		}
		seen[p.UserID] = true

		if p.Share < 0 {
			writeError(w, http.StatusBadRequest, "shares must not be negative")
			return
		}
		if !dbh.IsMember(groupID, p.UserID) {
			writeError(w, http.StatusBadRequest, "participant is not a member of the group")
			return
		}
		shareSum += p.Share
	}

	if math.Abs(shareSum-e.Amount) > shareTolerance {
		slog.Info("Shares don't sum to amount", "shares", shareSum, "amount", e.Amount)
		writeError(w, http.StatusBadRequest, "participant shares must sum to the amount")
		return
	}

	// Create the entries in the database
	slog.Info("Adding expense",
		"group_id", groupID,
		"paid_by", paidBy,
		"description", e.Description,
		"amount", e.Amount,
		"participants", len(e.Participants),
	)

	participants := make([]ledger.Participant, len(e.Participants))
	for i, p := range e.Participants {
		participants[i] = ledger.Participant{UserID: p.UserID, Share: p.Share}
	}

	id, err := dbh.CreateExpense(ledger.Expense{
		GroupID:     groupID,
		Description: e.Description,
		Amount:      e.Amount,
		PaidBy:      paidBy,
	}, participants)
	if err != nil {
		panic(err)
	}

	// The ledger changed, all cached balances are stale
	api.cache.Invalidate()

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]string{"id": id})
}

// getExpenses returns all expenses of a group
func (api *API) getExpenses(w http.ResponseWriter, r *http.Request, userID string) {
	groupID, ok := api.requireMembership(w, r, userID)
	if !ok {
		return
	}

	dbh := api.db.Connect()
	defer dbh.Close()

	writeJSON(w, expensesResponse{Expenses: dbh.Snapshot().ExpensesOfGroup(groupID)})
}
