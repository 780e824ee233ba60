// Package test provides store fixtures for tests across the module.
package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hrygo/secretary/internal/profile"
	"github.com/hrygo/secretary/store"
	"github.com/hrygo/secretary/store/db"
)

// NewTestingStore opens a migrated store. It uses a throwaway sqlite file unless
// DRIVER=postgres and POSTGRES_TEST_DSN are set.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	p := getTestingProfile(t)
	driver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}
	s := store.New(driver, p)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func getTestingProfile(t *testing.T) *profile.Profile {
	if getDriverFromEnv() == "postgres" {
		return &profile.Profile{Mode: "dev", Driver: "postgres", DSN: os.Getenv("POSTGRES_TEST_DSN")}
	}
	dir := t.TempDir()
	return &profile.Profile{Mode: "dev", Data: dir, Driver: "sqlite", DSN: filepath.Join(dir, "secretary_test.db")}
}

func getDriverFromEnv() string {
	if os.Getenv("DRIVER") == "postgres" && os.Getenv("POSTGRES_TEST_DSN") != "" {
		return "postgres"
	}
	return "sqlite"
}
