package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// Digest is the SHA-256 of an API key. Stores only ever see digests.
type Digest [sha256.Size]byte

// DigestKey hashes key after trimming surrounding whitespace.
func DigestKey(key string) Digest {
	return sha256.Sum256([]byte(strings.TrimSpace(key)))
}

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// APIKey is a registered key. ExpiresAt zero means it never expires.
type APIKey struct {
	ID          string
	Digest      Digest
	Permissions []string
	ExpiresAt   time.Time
	Metadata    map[string]any
}

// NewAPIKey registers plaintext under id, keeping only its digest.
func NewAPIKey(plaintext, id string, permissions []string, expiresAt time.Time) *APIKey {
	return &APIKey{
		ID:          id,
		Digest:      DigestKey(plaintext),
		Permissions: permissions,
		ExpiresAt:   expiresAt,
	}
}

// APIKeyStore finds keys by digest. An unknown digest yields (nil, nil).
type APIKeyStore interface {
	Lookup(ctx context.Context, digest Digest) (*APIKey, error)
}

// APIKeyAuthenticator checks the api_key argument against a store.
type APIKeyAuthenticator struct {
	store APIKeyStore
	now   func() time.Time
}

// NewAPIKeyAuthenticator creates an authenticator backed by store.
func NewAPIKeyAuthenticator(store APIKeyStore) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{store: store, now: time.Now}
}

func (a *APIKeyAuthenticator) Name() string { return string(MethodAPIKey) }

func (a *APIKeyAuthenticator) Supports(_ context.Context, creds Credentials) bool {
	return creds.APIKey != ""
}

// Authenticate looks the key up and rejects unknown or expired keys. Key
// metadata becomes identity claims alongside "key_id".
func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, creds Credentials) (*AuthResult, error) {
	method := string(MethodAPIKey)
	if strings.TrimSpace(creds.APIKey) == "" {
		return AuthFailure(ErrMissingCredentials, method), nil
	}

	key, err := a.store.Lookup(ctx, DigestKey(creds.APIKey))
	if err != nil {
		return nil, err
	}
	if key == nil {
		return AuthFailure(ErrInvalidCredentials, method), nil
	}

	id := &Identity{
		Principal:   key.ID,
		Method:      MethodAPIKey,
		Permissions: key.Permissions,
		ExpiresAt:   key.ExpiresAt,
		Claims:      map[string]any{"key_id": key.ID},
	}
	if id.ExpiredAt(a.now()) {
		return AuthFailure(ErrTokenExpired, method), nil
	}
	for k, v := range key.Metadata {
		if k != "key_id" {
			id.Claims[k] = v
		}
	}
	return AuthSuccess(id), nil
}

// MemoryAPIKeyStore holds keys in a map guarded by a RWMutex.
type MemoryAPIKeyStore struct {
	mu   sync.RWMutex
	keys map[Digest]*APIKey
}

// NewMemoryAPIKeyStore creates a store holding keys.
func NewMemoryAPIKeyStore(keys ...*APIKey) *MemoryAPIKeyStore {
	s := &MemoryAPIKeyStore{keys: make(map[Digest]*APIKey, len(keys))}
	for _, k := range keys {
		s.keys[k.Digest] = k
	}
	return s
}

func (s *MemoryAPIKeyStore) Lookup(_ context.Context, digest Digest) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[digest], nil
}

// Put registers key, replacing any key with the same digest.
func (s *MemoryAPIKeyStore) Put(key *APIKey) {
	s.mu.Lock()
	s.keys[key.Digest] = key
	s.mu.Unlock()
}

// Revoke removes every key registered under id and reports how many.
func (s *MemoryAPIKeyStore) Revoke(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for d, k := range s.keys {
		if k.ID == id {
			delete(s.keys, d)
			n++
		}
	}
	return n
}

func (s *MemoryAPIKeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

var (
	_ Authenticator = (*APIKeyAuthenticator)(nil)
	_ APIKeyStore   = (*MemoryAPIKeyStore)(nil)
)
