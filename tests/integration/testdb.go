// Package integration runs the persistence layer against a real PostgreSQL
// instance started with testcontainers. The container is shared by the whole
// package and every test starts from truncated tables. Run with -short to
// skip these tests on machines without Docker.
package integration

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	pgOnce sync.Once
	pgDSN  string
	pgErr  error
)

// TestDB hands a migrated, empty database to a single test.
type TestDB struct {
	DB *gorm.DB
	t  *testing.T
}

// OpenTestDB starts the shared PostgreSQL container on first use, opens a
// fresh connection and truncates all domain tables so the test begins from
// a known state. Sequence counters restart at 1.
func OpenTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test requires Docker")
	}

	pgOnce.Do(startPostgres)
	require.NoError(t, pgErr, "PostgreSQL container unavailable")

	db, err := gorm.Open(gormpostgres.Open(pgDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "connect to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(4)
	t.Cleanup(func() { sqlDB.Close() })

	tdb := &TestDB{DB: db, t: t}
	tdb.reset()
	return tdb
}

func startPostgres() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("tesoreria_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	if err != nil {
		pgErr = fmt.Errorf("start container: %w", err)
		return
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		pgErr = fmt.Errorf("connection string: %w", err)
		return
	}
	pgDSN = dsn
	pgErr = applyMigrations(dsn)
}

// applyMigrations runs the real migration files so the test schema never
// drifts from production.
func applyMigrations(dsn string) error {
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("open for migrations: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir(), "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// migrationsDir resolves the migrations directory relative to this file, so
// tests work no matter which directory go test runs from.
func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

// reset truncates the domain tables and restarts their sequence counters.
func (tdb *TestDB) reset() {
	tdb.t.Helper()
	err := tdb.DB.Exec(`
		TRUNCATE expense_records, income_records, agreements, counterparties
		RESTART IDENTITY CASCADE
	`).Error
	require.NoError(tdb.t, err, "truncate tables")
}

// SeedAgreement inserts an agreement row. Records denormalize the agreement
// code, so most tests only need the code to exist.
func (tdb *TestDB) SeedAgreement(code, name string) {
	tdb.t.Helper()
	err := tdb.DB.Exec(`
		INSERT INTO agreements (id, created_at, updated_at, code, name, active)
		VALUES (gen_random_uuid(), NOW(), NOW(), ?, ?, TRUE)
	`, code, name).Error
	require.NoError(tdb.t, err, "seed agreement %s", code)
}

// SeedCounterparty inserts a counterparty row. Records reference
// counterparties through a nullable foreign key.
func (tdb *TestDB) SeedCounterparty(identifier, name string) {
	tdb.t.Helper()
	err := tdb.DB.Exec(`
		INSERT INTO counterparties (id, created_at, updated_at, identifier, name)
		VALUES (gen_random_uuid(), NOW(), NOW(), ?, ?)
	`, identifier, name).Error
	require.NoError(tdb.t, err, "seed counterparty %s", identifier)
}
