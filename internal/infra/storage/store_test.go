package storage

import (
	"context"
	"testing"

	"github.com/bryanwahyu/mediaexplain/internal/config"
)

func TestOpenWithoutDriver(t *testing.T) {
	st, err := Open(context.Background(), config.Default())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if st != nil {
		t.Fatalf("expected no store, got %T", st)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "ftp"
	if _, err := Open(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
