package cache

import (
	"time"

	"github.com/mvessel/divvy/database"
	"github.com/mvessel/divvy/ledger"
)

// freshnessWindow is how long a computed value may be served without
// recomputing. Recomputation is linear in ledger size and cheap, so the
// window only needs to cover a render cycle's worth of repeated reads.
const freshnessWindow = 2 * time.Second

// Cache is an interface used for memoizing balance calculations. Entries
// expire after freshnessWindow; Invalidate drops everything at once and is
// called by the write path after any ledger mutation. The cache is never the
// source of truth, a cold read always recomputes from the database.
type Cache interface {
	GroupBalances(db database.Database, groupID string) []ledger.UserBalance
	NetBalance(db database.Database, userID string) float64
	Invalidate()
}

// computeGroupBalances reads a fresh snapshot and calculates a group's balances
func computeGroupBalances(db database.Database, groupID string) []ledger.UserBalance {
	dbh := db.Connect()
	defer dbh.Close()

	return dbh.Snapshot().ComputeGroupBalances(groupID)
}

// computeNetBalance reads a fresh snapshot and calculates a user's cross-group
// net balance
func computeNetBalance(db database.Database, userID string) float64 {
	dbh := db.Connect()
	defer dbh.Close()

	return dbh.Snapshot().UserNetBalance(userID)
}
