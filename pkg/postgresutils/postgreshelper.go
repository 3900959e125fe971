package postgresutils

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/avast/retry-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"k8s.io/klog"

	"github.com/Emriqurrizal/MyFinny-End-to-End-Data-Pipeline-Project-for-Personal-Financial-Analysis/pkg/config"
)

const pingTimeout = 5 * time.Second

// CreatePostgresClient opens the warehouse database described by the current
// secrets and pings it, retrying per the warehouse config.
func CreatePostgresClient(ctx context.Context) (*bun.DB, error) {
	attempts, delay, err := retrySettings()
	if err != nil {
		return nil, err
	}

	return Connect(ctx, config.CurrentSecrets().ConnectionString(), attempts, delay)
}

// Connect opens a bun.DB for dsn and waits until it answers a ping.
func Connect(ctx context.Context, dsn string, attempts uint, delay time.Duration) (*bun.DB, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}

	err = retry.Do(
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			defer cancel()
			return db.PingContext(pingCtx)
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			klog.Warningf("Postgres ping attempt %d failed: %v", n+1, err)
		}),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to postgres DB: %w", err)
	}

	return db, nil
}

// Open builds a bun.DB without connecting. database/sql only dials on first
// use, so this never touches the network.
func Open(dsn string) (*bun.DB, error) {
	// pgdriver.WithDSN panics on a malformed DSN
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return nil, fmt.Errorf("invalid database url scheme %q", u.Scheme)
	}

	pgconn := pgdriver.NewConnector(pgdriver.WithDSN(dsn))
	return bun.NewDB(sql.OpenDB(pgconn), pgdialect.New()), nil
}

// EnsureDatabase creates the warehouse database when it does not exist yet.
// It is skipped when DATABASE_URL is set since the database is then managed
// elsewhere.
func EnsureDatabase(ctx context.Context) error {
	secrets := config.CurrentSecrets()
	if secrets.DatabaseURL != "" {
		klog.Infof("DATABASE_URL is set, not checking for database %s", secrets.SQL.SqlDatabase)
		return nil
	}

	attempts, delay, err := retrySettings()
	if err != nil {
		return err
	}

	db, err := Connect(ctx, secrets.MaintenanceConnectionString(), attempts, delay)
	if err != nil {
		return err
	}
	defer db.Close()

	return ensureDBExistsInPostgres(ctx, db, secrets.SQL.SqlDatabase)
}

func ensureDBExistsInPostgres(ctx context.Context, db *bun.DB, name string) error {
	var exists bool
	err := db.NewRaw("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = ?)", name).Scan(ctx, &exists)
	if err != nil {
		return fmt.Errorf("failed to get list of databases: %w", err)
	}

	if exists {
		return nil
	}

	klog.Infof("Creating database %s in postgres", name)
	_, err = db.NewRaw("CREATE DATABASE ?", bun.Ident(name)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create database %s: %w", name, err)
	}

	return nil
}

func retrySettings() (uint, time.Duration, error) {
	warehouseConfig := config.CurrentWarehouseConfig()

	delay, err := warehouseConfig.RetryDelayDuration()
	if err != nil {
		return 0, 0, err
	}

	attempts := warehouseConfig.ConnectRetries
	if attempts == 0 {
		attempts = 1
	}

	return attempts, delay, nil
}
