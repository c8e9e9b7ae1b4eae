package database

import "testing"

func TestNewMigrator_InvalidURL_ReturnsError(t *testing.T) {
	if _, err := NewMigrator("not-a-database-url"); err == nil {
		t.Fatal("expected error for invalid database URL, got nil")
	}
}
