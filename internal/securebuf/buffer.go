// Package securebuf stages in-flight script content between pipeline stages.
//
// Every entry is AES-256-GCM encrypted in memory and bound to a TTL. Stages
// exchange only opaque reference keys; plaintext never appears in the job
// database, workflow history, logs, or error messages. An expired key is
// indistinguishable from one that never existed, so callers cannot test for
// key liveness. This is a staging area, not a persistence layer: explicit
// Delete by the last consumer is the normal path and TTL expiry is the
// safety net.
package securebuf

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for keys that are missing, deleted, or expired.
	// Callers must not be able to tell those cases apart.
	ErrNotFound = errors.New("buffer key not found")
	// ErrOversize is returned when a payload exceeds the configured cap.
	ErrOversize = errors.New("payload exceeds buffer size cap")
)

const keyPrefix = "buf:"

type entry struct {
	ciphertext []byte
	expiresAt  time.Time
}

// Store is an encrypted, TTL-bounded staging store.
type Store struct {
	aead       cipher.AEAD
	maxBytes   int64
	defaultTTL time.Duration
	now        func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Store. The secret may be any non-empty string; a 256-bit
// AES key is derived from it via SHA-256.
func New(secret string, maxBytes int64, defaultTTL time.Duration, opts ...Option) (*Store, error) {
	if secret == "" {
		return nil, errors.New("securebuf: secret required")
	}
	if maxBytes <= 0 {
		return nil, errors.New("securebuf: size cap must be positive")
	}
	if defaultTTL <= 0 {
		return nil, errors.New("securebuf: default TTL must be positive")
	}

	derived := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(derived[:])
	if err != nil {
		return nil, fmt.Errorf("securebuf: init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("securebuf: init gcm: %w", err)
	}

	store := &Store{
		aead:       aead,
		maxBytes:   maxBytes,
		defaultTTL: defaultTTL,
		now:        time.Now,
		entries:    make(map[string]entry),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// Put encrypts data and stores it under a fresh opaque key. A non-positive
// ttl selects the default. The key is bound to the entry's nonce, so a key
// cannot be replayed against a different entry.
func (s *Store) Put(data []byte, ttl time.Duration) (string, error) {
	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%w (%d > %d bytes)", ErrOversize, len(data), s.maxBytes)
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("securebuf: nonce: %w", err)
	}

	key := keyPrefix + uuid.NewString()
	sealed := s.aead.Seal(nonce, nonce, data, []byte(key))

	s.mu.Lock()
	s.entries[key] = entry{ciphertext: sealed, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()

	return key, nil
}

// Get decrypts and returns the payload for key. Expired entries are removed
// lazily and reported as ErrNotFound. Reads never extend the TTL.
func (s *Store) Get(key string) ([]byte, error) {
	s.mu.RLock()
	ent, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if !ent.expiresAt.After(s.now()) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	nonceSize := s.aead.NonceSize()
	if len(ent.ciphertext) < nonceSize {
		return nil, ErrNotFound
	}
	plaintext, err := s.aead.Open(nil, ent.ciphertext[:nonceSize], ent.ciphertext[nonceSize:], []byte(key))
	if err != nil {
		// Corruption or key mismatch is reported the same as absence.
		return nil, ErrNotFound
	}
	return plaintext, nil
}

// Delete removes entries for the given keys and reports how many existed.
// Deleting a missing or already-deleted key is not an error.
func (s *Store) Delete(keys ...string) int {
	if len(keys) == 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, key := range keys {
		if _, ok := s.entries[key]; ok {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Sweep removes expired entries and returns the count removed.
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, ent := range s.entries {
		if !ent.expiresAt.After(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries (expired entries may be counted
// until the next sweep).
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// RunJanitor sweeps expired entries until the context is cancelled.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
