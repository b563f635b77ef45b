package client

import (
	"errors"
	"sync"

	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
)

const tokenUser = "access-token"

// TokenStore keeps the bearer token used for API calls.
type TokenStore interface {
	Get() (string, error)
	Set(token string) error
	Clear() error
}

// MemoryStore holds the token in memory only.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

// NewMemoryStore returns a store seeded with token.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

// Get implements TokenStore.
func (m *MemoryStore) Get() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

// Set implements TokenStore.
func (m *MemoryStore) Set(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

// Clear implements TokenStore.
func (m *MemoryStore) Clear() error {
	return m.Set("")
}

// KeyringStore keeps the token in the OS keyring and falls back to memory
// when no keyring backend is available.
type KeyringStore struct {
	service  string
	fallback *MemoryStore
	logger   *zap.Logger
	mu       sync.Mutex
	degraded bool
}

// NewKeyringStore creates a keyring-backed store under the given service name.
func NewKeyringStore(service string, logger *zap.Logger) *KeyringStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeyringStore{service: service, fallback: NewMemoryStore(""), logger: logger}
}

// UsingFallback reports whether the keyring was unusable and memory is used instead.
func (k *KeyringStore) UsingFallback() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.degraded
}

func (k *KeyringStore) degrade(op string, err error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.degraded {
		k.logger.Warn("keyring unavailable, keeping token in memory", zap.String("op", op), zap.Error(err))
	}
	k.degraded = true
}

// Get implements TokenStore.
func (k *KeyringStore) Get() (string, error) {
	if k.UsingFallback() {
		return k.fallback.Get()
	}
	token, err := keyring.Get(k.service, tokenUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		k.degrade("get", err)
		return k.fallback.Get()
	}
	return token, nil
}

// Set implements TokenStore.
func (k *KeyringStore) Set(token string) error {
	if token == "" {
		return k.Clear()
	}
	if k.UsingFallback() {
		return k.fallback.Set(token)
	}
	if err := keyring.Set(k.service, tokenUser, token); err != nil {
		k.degrade("set", err)
		return k.fallback.Set(token)
	}
	return nil
}

// Clear implements TokenStore.
func (k *KeyringStore) Clear() error {
	_ = k.fallback.Clear()
	if k.UsingFallback() {
		return nil
	}
	if err := keyring.Delete(k.service, tokenUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		k.degrade("delete", err)
	}
	return nil
}
