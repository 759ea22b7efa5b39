package storage

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

func backends(t *testing.T) map[string]KV {
	t.Helper()
	ctx := context.Background()

	sq, err := NewSQLiteStore(":memory:", testLogger())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := sq.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { sq.Close() })

	fs, err := NewFileStore(filepath.Join(t.TempDir(), "storage.json"), testLogger())
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}

	out := map[string]KV{
		"memory": NewMemoryStore(),
		"file":   fs,
		"sqlite": sq,
	}

	if addr := os.Getenv("JEJAKLIQO_TEST_REDIS_ADDR"); addr != "" {
		rs, err := NewRedisStore(ctx, RedisOptions{Addr: addr, Prefix: "jejakliqo-test:" + t.Name() + ":"})
		if err != nil {
			t.Fatalf("open redis: %v", err)
		}
		t.Cleanup(func() { rs.Close() })
		out["redis"] = rs
	}
	return out
}

func TestKV_Conformance(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, ok, err := kv.Get(ctx, "missing"); err != nil || ok {
				t.Fatalf("Get(missing) = ok %v, err %v; want false, nil", ok, err)
			}

			if err := kv.Set(ctx, "token", "abc"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if v, ok, err := kv.Get(ctx, "token"); err != nil || !ok || v != "abc" {
				t.Fatalf("Get(token) = %q, %v, %v; want abc, true, nil", v, ok, err)
			}

			// Last write wins.
			if err := kv.Set(ctx, "token", "def"); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if v, _, _ := kv.Get(ctx, "token"); v != "def" {
				t.Errorf("Get(token) = %q, want def", v)
			}

			if err := kv.Remove(ctx, "token"); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			if _, ok, _ := kv.Get(ctx, "token"); ok {
				t.Error("expected token to be removed")
			}
			if err := kv.Remove(ctx, "token"); err != nil {
				t.Errorf("Remove of missing key returned %v", err)
			}
		})
	}
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "storage.json")

	a, _ := NewFileStore(path, nil)
	if err := a.Set(ctx, "theme", "dark"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	b, _ := NewFileStore(path, nil)
	v, ok, err := b.Get(ctx, "theme")
	if err != nil || !ok || v != "dark" {
		t.Fatalf("Get(theme) = %q, %v, %v; want dark", v, ok, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 600", perm)
	}
}

func TestFileStore_CorruptFileIsMovedAside(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	st, _ := NewFileStore(path, testLogger())

	v, ok, err := st.Get(ctx, "token")
	if err != nil || ok || v != "" {
		t.Fatalf("Get(token) = %q, %v, %v; want absent", v, ok, err)
	}
	if raw, err := os.ReadFile(path + ".corrupt"); err != nil || string(raw) != "{not json" {
		t.Errorf("corrupt copy = %q, %v", raw, err)
	}

	if err := st.Set(ctx, "theme", "dark"); err != nil {
		t.Fatalf("Set after corruption: %v", err)
	}
	if v, ok, err := st.Get(ctx, "theme"); err != nil || !ok || v != "dark" {
		t.Errorf("Get(theme) = %q, %v, %v; want dark", v, ok, err)
	}
	if err := st.Remove(ctx, "token"); err != nil {
		t.Errorf("Remove: %v", err)
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	kv, closer, err := Open(ctx, Options{Backend: BackendMemory}, nil)
	if err != nil {
		t.Fatalf("Open(memory): %v", err)
	}
	if _, ok := kv.(*MemoryStore); !ok {
		t.Errorf("Open(memory) returned %T", kv)
	}
	closer.Close()

	kv, closer, err = Open(ctx, Options{Backend: BackendSQLite, Path: ":memory:"}, testLogger())
	if err != nil {
		t.Fatalf("Open(sqlite): %v", err)
	}
	if err := kv.Set(ctx, "k", "v"); err != nil {
		t.Errorf("sqlite Set after Open: %v", err)
	}
	closer.Close()

	_, _, err = Open(ctx, Options{Backend: "etcd"}, nil)
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Open(etcd) error = %v, want ErrUnknownBackend", err)
	}
}
