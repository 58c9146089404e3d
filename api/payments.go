package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mvessel/divvy/ledger"
)

type createPaymentRequest struct {
	ToUser string  `json:"to_user"`
	Amount float64 `json:"amount"`
	Method string  `json:"method"`
	Notes  string  `json:"notes"`
}

type paymentsResponse struct {
	Payments []ledger.Payment `json:"payments"`
}

// postPayments records a direct settlement from the authenticated user to
// another group member
func (api *API) postPayments(w http.ResponseWriter, r *http.Request, userID string) {
	groupID, ok := api.requireMembership(w, r, userID)
	if !ok {
		return
	}

	dbh := api.db.Connect()
	defer dbh.Close()

	var p createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		slog.Info("Unable to decode and parse json")
		writeError(w, http.StatusBadRequest, "unable to decode and parse json")
		return
	}

	if p.Amount <= 0 {
		slog.Info("Invalid amount", "amount", p.Amount)
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	if p.ToUser == userID {
		writeError(w, http.StatusBadRequest, "cannot pay yourself")
		return
	}

	if !dbh.IsMember(groupID, p.ToUser) {
		writeError(w, http.StatusBadRequest, "receiver is not a member of the group")
		return
	}

	slog.Info("Adding payment",
		"group_id", groupID,
		"from_user", userID,
		"to_user", p.ToUser,
		"amount", p.Amount,
	)

	id, err := dbh.CreatePayment(ledger.Payment{
		GroupID:  groupID,
		FromUser: userID,
		ToUser:   p.ToUser,
		Amount:   p.Amount,
		Method:   p.Method,
		Notes:    p.Notes,
	})
	if err != nil {
		panic(err)
	}

	api.cache.Invalidate()

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]string{"id": id})
}

// getPayments returns all payments recorded in a group
func (api *API) getPayments(w http.ResponseWriter, r *http.Request, userID string) {
	groupID, ok := api.requireMembership(w, r, userID)
	if !ok {
		return
	}

	dbh := api.db.Connect()
	defer dbh.Close()

	writeJSON(w, paymentsResponse{Payments: dbh.Snapshot().PaymentsOfGroup(groupID)})
}
