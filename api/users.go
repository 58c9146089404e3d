package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/mvessel/divvy/database"
	"github.com/mvessel/divvy/jwt"
)

type userResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

type usersResponse struct {
	Users []userResponse `json:"users"`
}

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

var emailRegex = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+\\/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")

// isEmailValid checks if the email provided passes the required structure and
// length.
func isEmailValid(e string) bool {
	if len(e) < 3 || len(e) > 254 {
		return false
	}
	return emailRegex.MatchString(e)
}

// signin handles user authentication. If the user authenticates successfully,
// a JWT token is set in a cookie.
func (api *API) signin(w http.ResponseWriter, r *http.Request) {
	dbh := api.db.Connect()
	defer dbh.Close()

	var a authRequest
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		slog.Info("Unable to decode and parse json")
		writeError(w, http.StatusBadRequest, "unable to decode and parse json")
		return
	}

	id, err := dbh.AuthenticateUser(a.Email, a.Password)
	if err != nil {
		switch err {
		case database.ErrNotFound, database.ErrPasswordMismatch:
			slog.Info("Authentication failed", "email", a.Email)
			writeError(w, http.StatusUnauthorized, "authorization failed")
			return
		default:
			panic(err)
		}
	}

	cookie := jwt.CreateCookie(id, jwtCookieName)
	http.SetCookie(w, &cookie)
}

// postUsers is the user registration endpoint. Some validation is done, then
// the user is added to the database. A 409 (conflict) is returned if the user
// already exists.
func (api *API) postUsers(w http.ResponseWriter, r *http.Request) {
	dbh := api.db.Connect()
	defer dbh.Close()

	// Decode request
	var u createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		slog.Info("Unable to decode and parse json")
		writeError(w, http.StatusBadRequest, "unable to decode and parse json")
		return
	}

	// Validate name, email and password
	if u.Name == "" {
		writeError(w, http.StatusBadRequest, "name must not be empty")
		return
	}

	if len(u.Password) < 6 {
		slog.Info("Invalid password")
		writeError(w, http.StatusBadRequest, "invalid password: it must be at least 6 characters")
		return
	}

	if !isEmailValid(u.Email) {
		slog.Info("Invalid email", "email", u.Email)
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}

	// Add the user to the database
	slog.Info("Adding user", "email", u.Email)

	id, err := dbh.CreateUser(u.Name, u.Email, u.Password, u.Avatar)
	if err != nil {
		switch err {
		case database.ErrDuplicate:
			slog.Info("User uniqueness failed", "email", u.Email)
			writeError(w, http.StatusConflict, "a user with that email already exists")
			return
		default:
			panic(err)
		}
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, userResponse{ID: id, Name: u.Name, Email: u.Email, Avatar: u.Avatar})
}

// getUsers returns all users in the database
func (api *API) getUsers(w http.ResponseWriter, r *http.Request, userID string) {
	dbh := api.db.Connect()
	defer dbh.Close()

	dbUsers := dbh.GetUsers()
	users := usersResponse{Users: make([]userResponse, len(dbUsers))}
	for i, u := range dbUsers {
		users.Users[i] = userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
	}

	writeJSON(w, users)
}
