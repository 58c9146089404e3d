package api

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/mvessel/divvy/cache"
	"github.com/mvessel/divvy/database"
	"github.com/mvessel/divvy/jwt"
	"github.com/mvessel/divvy/metrics"
)

const jwtCookieName = "jwt-token"

// shareTolerance is how far participant shares may drift from the expense
// amount before the write is rejected
const shareTolerance = 0.01

type authenticatedHandler func(w http.ResponseWriter, r *http.Request, userID string)

type errorResponse struct {
	Error string `json:"error"`
}

// API holds the config and functionality for the HTTP REST/JSON API for the
// application
type API struct {
	db    database.Database // The authoritative data store
	cache cache.Cache       // Cache for balance calculations
}

// serverPort is the TCP port the API listens on
var serverPort = flag.Int("server-port", 8080, "web server port")

// NewAPI creates a new instance of the HTTP REST/JSON API for the application
func NewAPI(db database.Database, cache cache.Cache) *API {
	return &API{db: db, cache: cache}
}

// writeJSON marshalls data into a response with content-type application/json
func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	result, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	io.WriteString(w, string(result))
}

// writeError writes a status code and error message
func writeError(w http.ResponseWriter, code int, message string) {
	w.WriteHeader(code)
	writeJSON(w, errorResponse{message})
}

// requireAuth is a handler wrapper that ensures a user is authenticated. The
// userID is passed on to the next handler in the chain.
func (api *API) requireAuth(pass authenticatedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(jwtCookieName)
		if err != nil {
			if err == http.ErrNoCookie {
				slog.Info("Missing jwt cookie")
				writeError(w, http.StatusUnauthorized, "authorization failed")
				return
			}
			panic(err)
		}

		userID, ok := jwt.VerifyToken(c.Value)
		if !ok {
			writeError(w, http.StatusUnauthorized, "authorization failed")
			return
		}

		pass(w, r, userID)
	}
}

// requireMembership checks the authenticated user belongs to the group in the
// request path, returning the group id. Writes a 403 and returns false when
// they don't.
func (api *API) requireMembership(w http.ResponseWriter, r *http.Request, userID string) (string, bool) {
	groupID := mux.Vars(r)["groupID"]

	dbh := api.db.Connect()
	defer dbh.Close()

	if !dbh.IsMember(groupID, userID) {
		slog.Info("User is not a group member", "user_id", userID, "group_id", groupID)
		writeError(w, http.StatusForbidden, "not a member of this group")
		return "", false
	}
	return groupID, true
}

// router assembles all routes
func (api *API) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/signin", api.signin).Methods("POST")
	r.HandleFunc("/users", api.postUsers).Methods("POST")
	r.HandleFunc("/users", api.requireAuth(api.getUsers)).Methods("GET")

	r.HandleFunc("/groups", api.requireAuth(api.postGroups)).Methods("POST")
	r.HandleFunc("/groups", api.requireAuth(api.getGroups)).Methods("GET")
	r.HandleFunc("/groups/{groupID}/members", api.requireAuth(api.postMembers)).Methods("POST")
	r.HandleFunc("/groups/{groupID}/members/{userID}", api.requireAuth(api.deleteMember)).Methods("DELETE")

	r.HandleFunc("/groups/{groupID}/expenses", api.requireAuth(api.postExpenses)).Methods("POST")
	r.HandleFunc("/groups/{groupID}/expenses", api.requireAuth(api.getExpenses)).Methods("GET")
	r.HandleFunc("/groups/{groupID}/payments", api.requireAuth(api.postPayments)).Methods("POST")
	r.HandleFunc("/groups/{groupID}/payments", api.requireAuth(api.getPayments)).Methods("GET")

	r.HandleFunc("/groups/{groupID}/balances", api.requireAuth(api.getGroupBalances)).Methods("GET")
	r.HandleFunc("/groups/{groupID}/settlements", api.requireAuth(api.getSettlements)).Methods("GET")
	r.HandleFunc("/balance", api.requireAuth(api.getBalance)).Methods("GET")

	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	return r
}

// logRequests logs every request with its duration
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Info("Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// Serve starts up the API on serverPort
func (api *API) Serve() {
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
	})

	handler := metrics.Middleware(logRequests(corsHandler.Handler(api.router())))

	slog.Info("Listening", "port", *serverPort)
	panic(http.ListenAndServe(fmt.Sprintf(":%d", *serverPort), handler))
}
