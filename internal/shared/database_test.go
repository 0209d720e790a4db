package shared

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestNewDatabase(t *testing.T) {
	t.Run("Applies Pragmas", func(t *testing.T) {
		db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		var mode string
		if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
			t.Fatalf("failed to read journal mode: %v", err)
		}
		if !strings.EqualFold(mode, "wal") {
			t.Errorf("expected WAL journal mode, got %s", mode)
		}

		var fk int
		if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
			t.Fatalf("failed to read foreign_keys: %v", err)
		}
		if fk != 1 {
			t.Errorf("expected foreign keys to be enforced, got %d", fk)
		}

		if got := db.Stats().MaxOpenConnections; got != 1 {
			t.Errorf("expected a single connection, got %d", got)
		}
	})

	t.Run("In Memory", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if _, err := db.Exec("CREATE TABLE t (id INTEGER)"); err != nil {
			t.Fatalf("failed to create table: %v", err)
		}
		if _, err := db.Exec("INSERT INTO t (id) VALUES (1)"); err != nil {
			t.Errorf("expected table to be visible on the same connection: %v", err)
		}
	})
}
