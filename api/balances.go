package api

import (
	"log/slog"
	"net/http"

	"github.com/mvessel/divvy/ledger"
)

type groupBalancesResponse struct {
	Balances []ledger.UserBalance `json:"balances"`
}

type settlementsResponse struct {
	Settlements []ledger.SuggestedPayment `json:"settlements"`
}

type balanceSummaryResponse struct {
	Owed float64 `json:"owed"` // total others owe the user, across groups
	Owes float64 `json:"owes"` // total the user owes others, across groups
	Net  float64 `json:"net"`  // signed sum: owed - owes
}

// getGroupBalances returns the net balance of every member of a group, served
// through the cache
func (api *API) getGroupBalances(w http.ResponseWriter, r *http.Request, userID string) {
	groupID, ok := api.requireMembership(w, r, userID)
	if !ok {
		return
	}

	balances := api.cache.GroupBalances(api.db, groupID)
	slog.Debug("Balances calculated", "group_id", groupID, "members", len(balances))
	writeJSON(w, groupBalancesResponse{Balances: balances})
}

// getSettlements returns the suggested payments that would settle all debts
// in a group. Nothing is recorded; clients create actual payments explicitly.
func (api *API) getSettlements(w http.ResponseWriter, r *http.Request, userID string) {
	groupID, ok := api.requireMembership(w, r, userID)
	if !ok {
		return
	}

	dbh := api.db.Connect()
	defer dbh.Close()

	settlements := dbh.Snapshot().SuggestSettlements(groupID)
	slog.Debug("Settlements suggested", "group_id", groupID, "count", len(settlements))
	writeJSON(w, settlementsResponse{Settlements: settlements})
}

// getBalance returns the authenticated user's aggregate position across all
// their groups
func (api *API) getBalance(w http.ResponseWriter, r *http.Request, userID string) {
	dbh := api.db.Connect()
	snapshot := dbh.Snapshot()
	dbh.Close()

	summary := balanceSummaryResponse{
		Owed: snapshot.TotalOwedToUser(userID),
		Owes: snapshot.TotalUserOwes(userID),
		Net:  api.cache.NetBalance(api.db, userID),
	}
	slog.Debug("Balance summary", "user_id", userID, "net", summary.Net)
	writeJSON(w, summary)
}
