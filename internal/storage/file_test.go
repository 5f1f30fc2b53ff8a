package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	logx "campusflow/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil || st != nil {
			t.Fatalf("Open(%q) = %v, %v; want nil, nil", driver, st, err)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver accepted")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "store")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	until := time.Now().Add(time.Hour).Truncate(time.Millisecond)
	if err := st.PutDedup(ctx, "fp-1", until); err != nil {
		t.Fatal(err)
	}

	got, ok, err := st.GetDedup(ctx, "fp-1")
	if err != nil || !ok {
		t.Fatalf("GetDedup = %v, %v, %v", got, ok, err)
	}
	if !got.Equal(until) {
		t.Fatalf("until = %v, want %v", got, until)
	}

	if _, ok, _ := st.GetDedup(ctx, "missing"); ok {
		t.Fatal("GetDedup(missing) hit")
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestFileStoreReplayAfterReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "store")
	ctx := context.Background()

	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	live := time.Now().Add(time.Hour).Truncate(time.Millisecond)
	dead := time.Now().Add(-time.Hour).Truncate(time.Millisecond)
	if err := st.PutDedup(ctx, "live", live); err != nil {
		t.Fatal(err)
	}
	if err := st.PutDedup(ctx, "dead", dead); err != nil {
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen: journal replays live keys, expired keys are pruned.
	st2, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st2.Close()

	got, ok, err := st2.GetDedup(ctx, "live")
	if err != nil || !ok || !got.Equal(live) {
		t.Fatalf("live after reopen = %v, %v, %v", got, ok, err)
	}
	if _, ok, _ := st2.GetDedup(ctx, "dead"); ok {
		t.Fatal("expired key survived reopen")
	}
}

func TestFileStorePutAfterClose(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "store")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}
	if err := st.PutDedup(context.Background(), "fp", time.Now()); err == nil {
		t.Fatal("PutDedup after Close succeeded")
	}
}

func TestFileStoreRequiresPath(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("file driver without path accepted")
	}
}
