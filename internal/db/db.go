// Package db provides database connection, schema migration and transaction helpers.
package db

import (
	"database/sql"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver for PostgreSQL
	_ "modernc.org/sqlite"             // register sqlite driver for local runs and tests

	"eventtrack-api/internal/config"
	"eventtrack-api/internal/logx"
)

var dbLogger = logx.GetScope("db")

var baseDB *sql.DB

// Open opens a DB connection for the configured driver and wraps it in an Ent SQL driver.
func Open(cfg *config.Config) (*entsql.Driver, func(), error) {
	name, dlct, err := driverFor(cfg.DB.Driver)
	if err != nil {
		return nil, func() {}, err
	}
	sqldb, err := sql.Open(name, cfg.DB.URL)
	if err != nil {
		return nil, func() {}, err
	}
	sqldb.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	baseDB = sqldb

	drv := entsql.OpenDB(dlct, sqldb)
	closer := func() {
		baseDB = nil
		if err := drv.Close(); err != nil {
			dbLogger.Sugar().Errorf("close db: %v", err)
		}
	}
	return drv, closer, nil
}

func driverFor(name string) (string, string, error) {
	switch strings.ToLower(name) {
	case "", "postgres", "pg", "pgx":
		return "pgx", dialect.Postgres, nil
	case "sqlite", "sqlite3":
		return "sqlite", dialect.SQLite, nil
	default:
		return "", "", fmt.Errorf("unsupported DB_DRIVER %q", name)
	}
}

// UpdatePool updates DB pool settings at runtime.
func UpdatePool(maxOpen, maxIdle int) {
	if baseDB == nil {
		return
	}
	if maxOpen > 0 {
		baseDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle >= 0 {
		baseDB.SetMaxIdleConns(maxIdle)
	}
}
