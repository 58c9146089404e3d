package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/mvessel/divvy/api"
	"github.com/mvessel/divvy/cache"
	"github.com/mvessel/divvy/database"
	"github.com/mvessel/divvy/jwt"
	"github.com/mvessel/divvy/logging"
)

// General flags
var createSchema = flag.Bool("create-schema", false, "create schema")
var inMemory = flag.Bool("in-memory", false, "run with in-memory database and cache")

// Postgresql flags
var dbHost = flag.String("db-host", "localhost", "database host")
var dbPort = flag.Int("db-port", 5432, "database port")
var dbUser = flag.String("db-user", "postgres", "database user")
var dbName = flag.String("db-name", "divvy", "database name")

// Redis flags
var cacheAddr = flag.String("cache-addr", "localhost:6379", "redis cache address")
var cacheDb = flag.Int("cache-db", 0, "redis cache db")

func main() {
	// Secrets come from the environment, optionally via a .env file
	_ = godotenv.Load()

	logging.Setup()
	flag.Parse()

	if key := os.Getenv("JWT_SECRET"); key != "" {
		jwt.SetKey(key)
	}

	if *inMemory {
		slog.Info("Using in-memory database and cache")
		api.NewAPI(database.NewInMemoryDatabase(), cache.NewInMemoryCache()).Serve()
		return
	}

	// Configure Postgresql
	dbConfig := database.Config{
		Host:     *dbHost,
		Port:     *dbPort,
		User:     *dbUser,
		Password: os.Getenv("DB_PASSWORD"),
		Name:     *dbName,
	}
	db := database.NewPgDatabase(dbConfig)

	// Create the schema if desired
	if *createSchema {
		dbh := db.Connect()
		dbh.CreateSchema()
		dbh.Close()
		slog.Info("Database schema has been created")
		return
	}

	// Configure Redis
	cacheConfig := cache.Config{
		Addr:     *cacheAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		Db:       *cacheDb,
	}
	balanceCache := cache.NewRedisCache(cacheConfig)

	// All systems are go
	api.NewAPI(db, balanceCache).Serve()
}
