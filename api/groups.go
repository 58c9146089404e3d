package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mvessel/divvy/database"
	"github.com/mvessel/divvy/ledger"
)

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type groupResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedBy   string `json:"created_by"`
}

type groupsResponse struct {
	Groups []groupResponse `json:"groups"`
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
}

// postGroups creates a group. The creator automatically becomes its first
// member.
func (api *API) postGroups(w http.ResponseWriter, r *http.Request, userID string) {
	dbh := api.db.Connect()
	defer dbh.Close()

	var g createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		slog.Info("Unable to decode and parse json")
		writeError(w, http.StatusBadRequest, "unable to decode and parse json")
		return
	}

	if g.Name == "" {
		writeError(w, http.StatusBadRequest, "name must not be empty")
		return
	}

	slog.Info("Adding group", "name", g.Name, "created_by", userID)

	id, err := dbh.CreateGroup(g.Name, g.Description, userID)
	if err != nil {
		panic(err)
	}

	api.cache.Invalidate()

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, groupResponse{ID: id, Name: g.Name, Description: g.Description, CreatedBy: userID})
}

// getGroups returns the groups the authenticated user belongs to
func (api *API) getGroups(w http.ResponseWriter, r *http.Request, userID string) {
	dbh := api.db.Connect()
	defer dbh.Close()

	dbGroups := dbh.GetGroups(userID)
	groups := groupsResponse{Groups: make([]groupResponse, len(dbGroups))}
	for i, g := range dbGroups {
		groups.Groups[i] = groupResponse{ID: g.ID, Name: g.Name, Description: g.Description, CreatedBy: g.CreatedBy}
	}

	writeJSON(w, groups)
}

// postMembers adds a user to a group. Only existing members may add others.
func (api *API) postMembers(w http.ResponseWriter, r *http.Request, userID string) {
	groupID, ok := api.requireMembership(w, r, userID)
	if !ok {
		return
	}

	dbh := api.db.Connect()
	defer dbh.Close()

	var m addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		slog.Info("Unable to decode and parse json")
		writeError(w, http.StatusBadRequest, "unable to decode and parse json")
		return
	}

	slog.Info("Adding group member", "group_id", groupID, "user_id", m.UserID)

	if err := dbh.AddMember(groupID, m.UserID); err != nil {
		switch err {
		case database.ErrDuplicate:
			writeError(w, http.StatusConflict, "user is already a member")
			return
		case database.ErrNotFound:
			writeError(w, http.StatusNotFound, "no such user or group")
			return
		default:
			panic(err)
		}
	}

	api.cache.Invalidate()
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, ledger.GroupMember{UserID: m.UserID, GroupID: groupID})
}

// deleteMember removes a user from a group. Members may leave or remove
// others, but the group's creator can never be removed.
func (api *API) deleteMember(w http.ResponseWriter, r *http.Request, userID string) {
	groupID, ok := api.requireMembership(w, r, userID)
	if !ok {
		return
	}

	dbh := api.db.Connect()
	defer dbh.Close()

	target := mux.Vars(r)["userID"]
	slog.Info("Removing group member", "group_id", groupID, "user_id", target)

	if err := dbh.RemoveMember(groupID, target); err != nil {
		switch err {
		case database.ErrIsCreator:
			writeError(w, http.StatusForbidden, "the group creator cannot leave")
			return
		case database.ErrNotFound:
			writeError(w, http.StatusNotFound, "no such membership")
			return
		default:
			panic(err)
		}
	}

	api.cache.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}
