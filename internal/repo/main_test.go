package repo_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/pressly/goose/v3"

	"github.com/pkordes/fleet-logbook/backend/migrations"
	"github.com/pkordes/fleet-logbook/backend/testutil"
)

// TestMain migrates the test database once when TEST_DATABASE_URL is set.
// The pgxmock tests run either way.
func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		os.Exit(m.Run())
	}

	db := testutil.MustOpenSQLDB(dsn)
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		log.Fatalf("TestMain: goose provider: %v", err)
	}
	if _, err := provider.Up(context.Background()); err != nil {
		log.Fatalf("TestMain: migrate: %v", err)
	}
	db.Close()

	os.Exit(m.Run())
}
