package db

import (
	"context"
	"testing"

	"github.com/angelmondragon/techstore-checkout/pkg/config"
	"github.com/angelmondragon/techstore-checkout/pkg/db/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNewFromConnMigratesSlots(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	client := NewFromConn(conn)
	ctx := context.Background()

	if err := client.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !conn.Migrator().HasTable(&models.StorageSlot{}) {
		t.Fatalf("expected storage_slots table")
	}
	if err := client.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestDialectorForRejectsIncompleteConfig(t *testing.T) {
	cases := []config.StorageConfig{
		{Driver: config.StorageSQLite},
		{Driver: config.StoragePostgres},
		{Driver: config.StorageRedis},
	}
	for _, cfg := range cases {
		if _, err := dialectorFor(cfg); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
	if d, err := dialectorFor(config.StorageConfig{Driver: config.StorageSQLite, SQLitePath: ":memory:"}); err != nil || d == nil {
		t.Fatalf("expected sqlite dialector, got %v", err)
	}
}
