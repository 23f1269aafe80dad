//go:build integration
// +build integration

package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"eventtrack-api/internal/config"
)

func Test_Migrate_And_Tx_With_PostgresContainer(t *testing.T) {
	ctx := context.Background()

	pg, err := postgres.RunContainer(ctx,
		postgres.WithDatabase("app"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.WithSQLDriver("pgx"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	host, err := pg.Host(ctx)
	if err != nil {
		t.Fatalf("get container host: %v", err)
	}
	port, err := pg.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("get container port: %v", err)
	}

	cfg := &config.Config{}
	cfg.DB.Driver = "postgres"
	cfg.DB.URL = fmt.Sprintf("postgres://postgres:postgres@%s:%s/app?sslmode=disable", host, port.Port())
	cfg.DB.MaxOpenConns = 5
	cfg.DB.MaxIdleConns = 2

	drv, closeFn, err := Open(cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer closeFn()

	ctx2, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := Migrate(ctx2, drv); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// second run must be a no-op
	if err := Migrate(ctx2, drv); err != nil {
		t.Fatalf("re-migrate: %v", err)
	}

	b := entsql.Dialect(dialect.Postgres)
	channelID := uuid.NewString()
	insert := func(c Conn, status string) error {
		_, err := Exec(ctx2, c, b.Insert("api_keys").
			Columns("id", "channel_id", "status", "created_at").
			Values(uuid.NewString(), channelID, status, time.Now().UTC()))
		return err
	}

	if err := WithTx(ctx2, drv, func(tx dialect.Tx) error { return insert(tx, "ACTIVE") }); err != nil {
		t.Fatalf("tx insert: %v", err)
	}
	if err := insert(drv, "ACTIVE"); err == nil {
		t.Fatalf("partial unique index should reject a second ACTIVE key")
	}

	n, err := Count(ctx2, drv, b.Select().Count().From(b.Table("api_keys")).Where(entsql.EQ("channel_id", channelID)))
	if err != nil {
		t.Fatalf("count keys: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 key, got %d", n)
	}
}
