package securebuf_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"slate/internal/securebuf"
)

func newStore(t *testing.T, opts ...securebuf.Option) *securebuf.Store {
	t.Helper()
	store, err := securebuf.New("test-secret", 1024, time.Hour, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := newStore(t)
	payload := []byte("INT. OFFICE - DAY\nA quiet morning.")

	key, err := store.Put(payload, 0)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !strings.HasPrefix(key, "buf:") {
		t.Fatalf("unexpected key format: %q", key)
	}

	got, err := store.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: %q", got)
	}
}

func TestOversizeRejected(t *testing.T) {
	store := newStore(t)
	_, err := store.Put(make([]byte, 2048), 0)
	if !errors.Is(err, securebuf.ErrOversize) {
		t.Fatalf("expected ErrOversize, got %v", err)
	}
}

func TestExpiredKeyIndistinguishableFromUnknown(t *testing.T) {
	current := time.Now()
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	store := newStore(t, securebuf.WithClock(now))

	key, err := store.Put([]byte("payload"), time.Minute)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	mu.Lock()
	current = current.Add(2 * time.Minute)
	mu.Unlock()

	_, expiredErr := store.Get(key)
	_, unknownErr := store.Get("buf:00000000-0000-0000-0000-000000000000")

	if !errors.Is(expiredErr, securebuf.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired key, got %v", expiredErr)
	}
	if expiredErr.Error() != unknownErr.Error() {
		t.Fatalf("expired and unknown keys must be indistinguishable: %q vs %q", expiredErr, unknownErr)
	}
}

func TestGetDoesNotExtendTTL(t *testing.T) {
	current := time.Now()
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	store := newStore(t, securebuf.WithClock(now))

	key, _ := store.Put([]byte("payload"), time.Minute)

	mu.Lock()
	current = current.Add(50 * time.Second)
	mu.Unlock()
	if _, err := store.Get(key); err != nil {
		t.Fatalf("Get before expiry failed: %v", err)
	}

	mu.Lock()
	current = current.Add(20 * time.Second)
	mu.Unlock()
	if _, err := store.Get(key); !errors.Is(err, securebuf.ErrNotFound) {
		t.Fatalf("expected expiry despite interim read, got %v", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	store := newStore(t)
	key, _ := store.Put([]byte("payload"), 0)

	if removed := store.Delete(key); removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if removed := store.Delete(key, "buf:never-issued"); removed != 0 {
		t.Fatalf("expected 0 removals on repeat, got %d", removed)
	}
	if _, err := store.Get(key); !errors.Is(err, securebuf.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	current := time.Now()
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	store := newStore(t, securebuf.WithClock(now))

	if _, err := store.Put([]byte("a"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	keep, err := store.Put([]byte("b"), time.Hour)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	mu.Lock()
	current = current.Add(2 * time.Minute)
	mu.Unlock()

	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("expected 1 swept entry, got %d", removed)
	}
	if _, err := store.Get(keep); err != nil {
		t.Fatalf("long-lived entry should survive sweep: %v", err)
	}
}

func TestJanitorSweepsInBackground(t *testing.T) {
	current := time.Now()
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	store := newStore(t, securebuf.WithClock(now))

	if _, err := store.Put([]byte("a"), time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	mu.Lock()
	current = current.Add(2 * time.Minute)
	mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		store.RunJanitor(ctx, time.Millisecond)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && store.Len() != 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if store.Len() != 0 {
		t.Fatalf("expired entry survived the janitor: %d", store.Len())
	}
}
