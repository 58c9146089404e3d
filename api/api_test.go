package api

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mvessel/divvy/cache"
	"github.com/mvessel/divvy/database"
	"github.com/mvessel/divvy/jwt"
	"github.com/mvessel/divvy/ledger"
)

// newTestAPI builds an API over the in memory backends
func newTestAPI() *API {
	return NewAPI(database.NewInMemoryDatabase(), cache.NewInMemoryCache())
}

// do runs a request through the full router, authenticated as userID when it
// is non-empty
func do(t *testing.T, api *API, method, path string, body interface{}, userID string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("unable to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if userID != "" {
		cookie := jwt.CreateCookie(userID, jwtCookieName)
		request.AddCookie(&cookie)
	}

	response := httptest.NewRecorder()
	api.router().ServeHTTP(response, request)
	return response
}

// decode parses a JSON response body into out
func decode(t *testing.T, response *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		t.Fatalf("unable to parse response from server '%v'", err)
	}
}

// seedUsers registers three users directly in the database
func seedUsers(t *testing.T, api *API) (string, string, string) {
	t.Helper()

	dbh := api.db.Connect()
	defer dbh.Close()

	aliceID, _ := dbh.CreateUser("Alice", "alice@example.com", "secret", "")
	bobID, _ := dbh.CreateUser("Bob", "bob@example.com", "secret", "")
	carolID, _ := dbh.CreateUser("Carol", "carol@example.com", "secret", "")
	return aliceID, bobID, carolID
}

// seedGroup creates a group owned by the first user with all three as members
func seedGroup(t *testing.T, api *API, aliceID, bobID, carolID string) string {
	t.Helper()

	response := do(t, api, http.MethodPost, "/groups", createGroupRequest{Name: "Flat"}, aliceID)
	if response.Code != http.StatusCreated {
		t.Fatalf("unable to create group: %d %s", response.Code, response.Body.String())
	}
	var group groupResponse
	decode(t, response, &group)

	for _, userID := range []string{bobID, carolID} {
		response = do(t, api, http.MethodPost, "/groups/"+group.ID+"/members", addMemberRequest{UserID: userID}, aliceID)
		if response.Code != http.StatusCreated {
			t.Fatalf("unable to add member: %d %s", response.Code, response.Body.String())
		}
	}
	return group.ID
}

func TestSignupAndSignin(t *testing.T) {
	api := newTestAPI()

	// Register
	response := do(t, api, http.MethodPost, "/users", createUserRequest{
		Name: "Alice", Email: "alice@example.com", Password: "secret",
	}, "")
	if response.Code != http.StatusCreated {
		t.Fatalf("unable to create user: %d %s", response.Code, response.Body.String())
	}

	// Duplicate email conflicts
	response = do(t, api, http.MethodPost, "/users", createUserRequest{
		Name: "Alice Again", Email: "alice@example.com", Password: "secret",
	}, "")
	if response.Code != http.StatusConflict {
		t.Errorf("expected 409 on duplicate email, got %d", response.Code)
	}

	// Sign in sets the jwt cookie
	response = do(t, api, http.MethodPost, "/signin", authRequest{Email: "alice@example.com", Password: "secret"}, "")
	if response.Code != http.StatusOK {
		t.Fatalf("signin failed: %d", response.Code)
	}
	cookies := response.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != jwtCookieName {
		t.Errorf("expected a %s cookie, got %v", jwtCookieName, cookies)
	}

	// Bad password is rejected
	response = do(t, api, http.MethodPost, "/signin", authRequest{Email: "alice@example.com", Password: "wrong"}, "")
	if response.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 on bad password, got %d", response.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	api := newTestAPI()
	aliceID, bobID, carolID := seedUsers(t, api)
	groupID := seedGroup(t, api, aliceID, bobID, carolID)

	// No cookie
	response := do(t, api, http.MethodGet, "/users", nil, "")
	if response.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a cookie, got %d", response.Code)
	}

	// A non-member can't read group balances
	dbh := api.db.Connect()
	strangerID, _ := dbh.CreateUser("Mallory", "mallory@example.com", "secret", "")
	dbh.Close()

	response = do(t, api, http.MethodGet, "/groups/"+groupID+"/balances", nil, strangerID)
	if response.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-member, got %d", response.Code)
	}
}

func TestExpenseFlow(t *testing.T) {
	// Drive the whole flow through the API: group, expense, payment,
	// balances and settlement suggestions

	api := newTestAPI()
	aliceID, bobID, carolID := seedUsers(t, api)
	groupID := seedGroup(t, api, aliceID, bobID, carolID)

	// Alice pays 90 for dinner, split equally
	response := do(t, api, http.MethodPost, "/groups/"+groupID+"/expenses", createExpenseRequest{
		Description: "Dinner",
		Amount:      90,
		Participants: []participantRequest{
			{UserID: aliceID, Share: 30},
			{UserID: bobID, Share: 30},
			{UserID: carolID, Share: 30},
		},
	}, aliceID)
	if response.Code != http.StatusCreated {
		t.Fatalf("unable to create expense: %d %s", response.Code, response.Body.String())
	}

	var balances groupBalancesResponse
	decode(t, do(t, api, http.MethodGet, "/groups/"+groupID+"/balances", nil, aliceID), &balances)
	want := map[string]float64{aliceID: 60, bobID: -30, carolID: -30}
	for _, b := range balances.Balances {
		if math.Abs(b.Amount-want[b.UserID]) > 1e-9 {
			t.Errorf("balance mismatch for %s: expected %f, got %f", b.UserID, want[b.UserID], b.Amount)
		}
	}

	// Bob settles up with Alice; the cache is invalidated by the write, so
	// the new balances are visible immediately
	response = do(t, api, http.MethodPost, "/groups/"+groupID+"/payments", createPaymentRequest{
		ToUser: aliceID, Amount: 30, Method: "cash",
	}, bobID)
	if response.Code != http.StatusCreated {
		t.Fatalf("unable to create payment: %d %s", response.Code, response.Body.String())
	}

	decode(t, do(t, api, http.MethodGet, "/groups/"+groupID+"/balances", nil, aliceID), &balances)
	want = map[string]float64{aliceID: 30, bobID: 0, carolID: -30}
	for _, b := range balances.Balances {
		if math.Abs(b.Amount-want[b.UserID]) > 1e-9 {
			t.Errorf("balance mismatch for %s: expected %f, got %f", b.UserID, want[b.UserID], b.Amount)
		}
	}

	// One transfer settles the remaining debt
	var settlements settlementsResponse
	decode(t, do(t, api, http.MethodGet, "/groups/"+groupID+"/settlements", nil, aliceID), &settlements)
	wantSettlement := ledger.SuggestedPayment{From: carolID, FromName: "Carol", To: aliceID, ToName: "Alice", Amount: 30}
	if len(settlements.Settlements) != 1 || settlements.Settlements[0] != wantSettlement {
		t.Errorf("expected [%+v], got %+v", wantSettlement, settlements.Settlements)
	}

	// Alice's aggregate position
	var summary balanceSummaryResponse
	decode(t, do(t, api, http.MethodGet, "/balance", nil, aliceID), &summary)
	if summary.Owed != 30 || summary.Owes != 0 || summary.Net != 30 {
		t.Errorf("unexpected balance summary: %+v", summary)
	}
}

func TestExpenseValidation(t *testing.T) {
	api := newTestAPI()
	aliceID, bobID, carolID := seedUsers(t, api)
	groupID := seedGroup(t, api, aliceID, bobID, carolID)

	tests := []struct {
		name    string
		request createExpenseRequest
	}{
		{
			"shares don't sum to amount",
			createExpenseRequest{Description: "Dinner", Amount: 90, Participants: []participantRequest{
				{UserID: aliceID, Share: 30}, {UserID: bobID, Share: 30},
			}},
		},
		{
			"negative share",
			createExpenseRequest{Description: "Dinner", Amount: 10, Participants: []participantRequest{
				{UserID: aliceID, Share: 20}, {UserID: bobID, Share: -10},
			}},
		},
		{
			"duplicate participant",
			createExpenseRequest{Description: "Dinner", Amount: 60, Participants: []participantRequest{
				{UserID: aliceID, Share: 30}, {UserID: aliceID, Share: 30},
			}},
		},
		{
			"participant not a member",
			createExpenseRequest{Description: "Dinner", Amount: 60, Participants: []participantRequest{
				{UserID: aliceID, Share: 30}, {UserID: "no-such-user", Share: 30},
			}},
		},
		{
			"no participants",
			createExpenseRequest{Description: "Dinner", Amount: 60},
		},
		{
			"non-positive amount",
			createExpenseRequest{Description: "Dinner", Amount: 0, Participants: []participantRequest{
				{UserID: aliceID, Share: 0},
			}},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			response := do(t, api, http.MethodPost, "/groups/"+groupID+"/expenses", test.request, aliceID)
			if response.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d %s", response.Code, response.Body.String())
			}
		})
	}

	// Payments to self are rejected
	response := do(t, api, http.MethodPost, "/groups/"+groupID+"/payments", createPaymentRequest{
		ToUser: aliceID, Amount: 10,
	}, aliceID)
	if response.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for self-payment, got %d", response.Code)
	}
}

func TestMemberLifecycle(t *testing.T) {
	api := newTestAPI()
	aliceID, bobID, carolID := seedUsers(t, api)
	groupID := seedGroup(t, api, aliceID, bobID, carolID)

	// Bob leaves
	response := do(t, api, http.MethodDelete, "/groups/"+groupID+"/members/"+bobID, nil, bobID)
	if response.Code != http.StatusNoContent {
		t.Fatalf("unable to leave group: %d %s", response.Code, response.Body.String())
	}

	// The creator cannot leave
	response = do(t, api, http.MethodDelete, "/groups/"+groupID+"/members/"+aliceID, nil, aliceID)
	if response.Code != http.StatusForbidden {
		t.Errorf("expected 403 for creator leaving, got %d", response.Code)
	}

	// Bob is no longer a member and the balances reflect only two members
	var balances groupBalancesResponse
	decode(t, do(t, api, http.MethodGet, "/groups/"+groupID+"/balances", nil, aliceID), &balances)
	if len(balances.Balances) != 2 {
		t.Errorf("expected 2 balances after bob left, got %d", len(balances.Balances))
	}
}
