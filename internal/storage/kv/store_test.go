package kv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/redis/go-redis/v9"
)

// exerciseStore runs the behaviour every backend must share
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := store.Set(ctx, "app_courses", []byte(`[1]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, "app_courses", []byte(`[1,2]`)); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	got, err := store.Get(ctx, "app_courses")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `[1,2]` {
		t.Fatalf("Get = %s, want [1,2]", got)
	}

	if err := store.Set(ctx, "app_settings", []byte(`{}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, "other_courses", []byte(`[]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	removed, err := store.DeletePrefix(ctx, "app_")
	if err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if removed != 2 {
		t.Fatalf("DeletePrefix removed %d, want 2", removed)
	}
	if _, err := store.Get(ctx, "app_settings"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("app_settings survived prefix delete: %v", err)
	}
	if _, err := store.Get(ctx, "other_courses"); err != nil {
		t.Fatalf("other_courses should survive: %v", err)
	}

	if err := store.Delete(ctx, "other_courses"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "other_courses"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after Delete error = %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()
	exerciseStore(t, store)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	ctx := context.Background()

	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := store.Set(ctx, "2gether_user_id", []byte("user-1")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	store.Close()

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get(ctx, "2gether_user_id")
	if err != nil || string(got) != "user-1" {
		t.Fatalf("Get after reopen = %q, %v", got, err)
	}
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	if _, err := OpenSQLite("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestNamespaceScopesKeys(t *testing.T) {
	ctx := context.Background()
	base := NewMemoryStore()
	ns := WithNamespace(base, "2gether")

	if err := ns.Set(ctx, "courses", []byte("[]")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := base.Get(ctx, "2gether_courses"); err != nil {
		t.Fatalf("namespaced key not written: %v", err)
	}
	if err := base.Set(ctx, "elsewhere_courses", []byte("[]")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	removed, err := ns.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 1 {
		t.Fatalf("Clear removed %d, want 1", removed)
	}
	if _, err := base.Get(ctx, "elsewhere_courses"); err != nil {
		t.Fatalf("Clear touched another namespace: %v", err)
	}
}

func TestRedisStoreIntegration(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	store, err := OpenRedis(context.Background(), &redis.Options{Addr: addr})
	if err != nil {
		t.Fatalf("OpenRedis: %v", err)
	}
	defer store.Close()
	_, _ = store.DeletePrefix(context.Background(), "")
	exerciseStore(t, store)
}

func TestPostgresStoreIntegration(t *testing.T) {
	dbURL := os.Getenv("TEST_DB_URL")
	if dbURL == "" {
		t.Skip("TEST_DB_URL not set")
	}
	store, err := OpenPostgres(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer store.Close()
	_, _ = store.DeletePrefix(context.Background(), "")
	exerciseStore(t, store)
}
