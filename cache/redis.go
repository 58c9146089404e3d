package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	redis "github.com/go-redis/redis/v8"

	"github.com/mvessel/divvy/database"
	"github.com/mvessel/divvy/ledger"
)

// Config is the redis configuration
type Config struct {
	Addr     string
	Password string
	Db       int
}

var ctx = context.Background()

// RedisCache implements the Cache interface for redis. Invalidation works by
// bumping a generation counter that is part of every key; superseded entries
// simply expire through their TTL.
type RedisCache struct {
	config     Config
	generation uint64
}

// NewRedisCache creates an instance of RedisCache
func NewRedisCache(config Config) *RedisCache {
	return &RedisCache{config: config}
}

// connect returns a Redis client
func (r *RedisCache) connect() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     r.config.Addr,
		Password: r.config.Password,
		DB:       r.config.Db,
	})
}

// makeKey makes a generation-prefixed key
func (r *RedisCache) makeKey(kind, id string) string {
	return fmt.Sprintf("divvy:%d:%s:%s", atomic.LoadUint64(&r.generation), kind, id)
}

// set writes a JSON value to redis with the freshness window as TTL
func (r *RedisCache) set(rdb *redis.Client, key string, value interface{}) {
	encoded, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}

	if err = rdb.Set(ctx, key, encoded, freshnessWindow).Err(); err != nil {
		panic(err)
	}
}

// GroupBalances gets a group's balances from redis. If the key doesn't exist,
// the ledger is read from the database, the balances calculated and then
// written to the cache. The TTL ensures data doesn't remain stale in case of
// race conditions writing the data concurrently.
func (r *RedisCache) GroupBalances(db database.Database, groupID string) []ledger.UserBalance {
	rdb := r.connect()
	defer rdb.Close()

	key := r.makeKey("group", groupID)
	val, err := rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		balances := computeGroupBalances(db, groupID)
		r.set(rdb, key, balances)
		return balances
	} else if err != nil {
		panic(err)
	}

	var balances []ledger.UserBalance
	if err := json.Unmarshal([]byte(val), &balances); err != nil {
		slog.Error("Unable to decode cached balances", "key", key, "error", err)
		return computeGroupBalances(db, groupID)
	}
	return balances
}

// NetBalance gets a user's cross-group net balance from redis, computing and
// storing it on a miss
func (r *RedisCache) NetBalance(db database.Database, userID string) float64 {
	rdb := r.connect()
	defer rdb.Close()

	key := r.makeKey("net", userID)
	val, err := rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		net := computeNetBalance(db, userID)
		r.set(rdb, key, net)
		return net
	} else if err != nil {
		panic(err)
	}

	var net float64
	if err := json.Unmarshal([]byte(val), &net); err != nil {
		slog.Error("Unable to decode cached net balance", "key", key, "error", err)
		return computeNetBalance(db, userID)
	}
	return net
}

// Invalidate moves to the next key generation, orphaning all current entries
func (r *RedisCache) Invalidate() {
	atomic.AddUint64(&r.generation, 1)
}
