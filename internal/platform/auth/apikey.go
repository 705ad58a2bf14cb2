package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

var (
	// ErrKeyNotFound indicates the requested API key does not exist in the store.
	ErrKeyNotFound = errors.New("api key not found")

	// ErrKeyRevoked indicates the API key has been revoked and can no longer be used.
	ErrKeyRevoked = errors.New("api key revoked")

	// ErrInvalidKey indicates the provided raw key does not match any stored hash.
	ErrInvalidKey = errors.New("invalid api key")
)

// APIKey represents a managed key for programmatic access to the public
// intake API. The actual key material is never stored; only a SHA-256
// hash is persisted.
type APIKey struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	KeyHash    string     `json:"-"` // never serialize
	KeyPrefix  string     `json:"key_prefix"`
	RateLimit  int        `json:"rate_limit"` // requests per minute; 0 = server default
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// APIKeyStore defines the contract for persisting and querying API keys.
// Implementations may be backed by in-memory maps or a relational database.
type APIKeyStore interface {
	CreateKey(ctx context.Context, key *APIKey) error
	GetByID(ctx context.Context, id string) (*APIKey, error)
	GetByHash(ctx context.Context, hash string) (*APIKey, error)
	ListKeys(ctx context.Context, limit, offset int) ([]*APIKey, int, error)
	UpdateKey(ctx context.Context, key *APIKey) error
	DeleteKey(ctx context.Context, id string) error
}

// InMemoryAPIKeyStore provides a thread-safe in-memory implementation of
// APIKeyStore. It is suitable for development, testing, and single-node
// deployments.
type InMemoryAPIKeyStore struct {
	mu      sync.RWMutex
	byID    map[string]*APIKey
	byHash  map[string]string // hash -> ID
	ordered []string          // insertion-order IDs for stable pagination
}

// NewInMemoryAPIKeyStore creates a new empty in-memory store.
func NewInMemoryAPIKeyStore() *InMemoryAPIKeyStore {
	return &InMemoryAPIKeyStore{
		byID:   make(map[string]*APIKey),
		byHash: make(map[string]string),
	}
}

// CreateKey implements APIKeyStore.
func (s *InMemoryAPIKeyStore) CreateKey(_ context.Context, key *APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := copyKey(key)
	s.byID[cp.ID] = cp
	if cp.KeyHash != "" {
		s.byHash[cp.KeyHash] = cp.ID
	}
	s.ordered = append(s.ordered, cp.ID)
	return nil
}

// GetByID implements APIKeyStore.
func (s *InMemoryAPIKeyStore) GetByID(_ context.Context, id string) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, ok := s.byID[id]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return copyKey(k), nil
}

// GetByHash implements APIKeyStore.
func (s *InMemoryAPIKeyStore) GetByHash(_ context.Context, hash string) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byHash[hash]
	if !ok {
		return nil, ErrKeyNotFound
	}
	k, ok := s.byID[id]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return copyKey(k), nil
}

// ListKeys implements APIKeyStore.
func (s *InMemoryAPIKeyStore) ListKeys(_ context.Context, limit, offset int) ([]*APIKey, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*APIKey
	for _, id := range s.ordered {
		k, ok := s.byID[id]
		if !ok {
			continue
		}
		all = append(all, k)
	}

	total := len(all)

	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}

	result := make([]*APIKey, len(all))
	for i, k := range all {
		result[i] = copyKey(k)
	}
	return result, total, nil
}

// UpdateKey implements APIKeyStore.
func (s *InMemoryAPIKeyStore) UpdateKey(_ context.Context, key *APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[key.ID]
	if !ok {
		return ErrKeyNotFound
	}

	if existing.KeyHash != key.KeyHash {
		delete(s.byHash, existing.KeyHash)
		if key.KeyHash != "" {
			s.byHash[key.KeyHash] = key.ID
		}
	}

	s.byID[key.ID] = copyKey(key)
	return nil
}

// DeleteKey implements APIKeyStore.
func (s *InMemoryAPIKeyStore) DeleteKey(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[id]
	if !ok {
		return ErrKeyNotFound
	}

	delete(s.byHash, existing.KeyHash)
	delete(s.byID, id)

	for i, oid := range s.ordered {
		if oid == id {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			break
		}
	}
	return nil
}

// copyKey returns a deep copy of an APIKey to prevent mutation through shared pointers.
func copyKey(k *APIKey) *APIKey {
	cp := *k
	if k.RevokedAt != nil {
		t := *k.RevokedAt
		cp.RevokedAt = &t
	}
	if k.LastUsedAt != nil {
		t := *k.LastUsedAt
		cp.LastUsedAt = &t
	}
	return &cp
}

const (
	// apiKeyPrefix is prepended to every generated key for easy identification
	// in logs and configuration files.
	apiKeyPrefix = "cnk_"

	// apiKeyRandomBytes is the number of random bytes used to generate the
	// key material (encoded as hex => 32 hex chars).
	apiKeyRandomBytes = 16
)

// APIKeyManager orchestrates API key lifecycle operations: generation,
// validation, revocation, and rotation.
type APIKeyManager struct {
	store APIKeyStore
	log   zerolog.Logger
}

// NewAPIKeyManager creates a new manager backed by the given store.
func NewAPIKeyManager(store APIKeyStore, log zerolog.Logger) *APIKeyManager {
	return &APIKeyManager{store: store, log: log}
}

// GenerateKey creates a new API key and persists it in the store. It
// returns the APIKey struct and the raw key string. The raw key is only
// available at creation time and must be shown to the caller exactly once.
func (m *APIKeyManager) GenerateKey(ctx context.Context, name string, rateLimit int) (*APIKey, string, error) {
	rawKey, err := generateRawKey()
	if err != nil {
		return nil, "", fmt.Errorf("generating raw key: %w", err)
	}

	key := &APIKey{
		ID:        uuid.New().String(),
		Name:      name,
		KeyHash:   hashKey(rawKey),
		KeyPrefix: rawKey[:8],
		RateLimit: rateLimit,
		Status:    "active",
		CreatedAt: time.Now(),
	}

	if err := m.store.CreateKey(ctx, key); err != nil {
		return nil, "", fmt.Errorf("storing key: %w", err)
	}

	returned, err := m.store.GetByID(ctx, key.ID)
	if err != nil {
		return nil, "", fmt.Errorf("retrieving created key: %w", err)
	}
	return returned, rawKey, nil
}

// ValidateKey hashes the provided raw key, looks it up in the store, and
// verifies the key is active. On success it updates LastUsedAt and returns
// the APIKey.
func (m *APIKeyManager) ValidateKey(ctx context.Context, rawKey string) (*APIKey, error) {
	key, err := m.store.GetByHash(ctx, hashKey(rawKey))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrInvalidKey
		}
		return nil, fmt.Errorf("looking up key: %w", err)
	}

	if key.Status == "revoked" {
		return nil, ErrKeyRevoked
	}

	now := time.Now()
	key.LastUsedAt = &now
	if err := m.store.UpdateKey(ctx, key); err != nil {
		// Non-fatal: the request proceeds even if the usage timestamp
		// could not be recorded.
		m.log.Warn().Err(err).Str("key_id", key.ID).Msg("failed to record api key usage")
	}

	return key, nil
}

// RevokeKey sets the key's status to "revoked" and records the revocation
// timestamp. The operation is idempotent: revoking an already-revoked key
// succeeds silently.
func (m *APIKeyManager) RevokeKey(ctx context.Context, id string) error {
	key, err := m.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if key.Status == "revoked" {
		return nil // idempotent
	}

	now := time.Now()
	key.Status = "revoked"
	key.RevokedAt = &now
	return m.store.UpdateKey(ctx, key)
}

// RotateKey revokes the existing key and creates a new one with the same
// name and rate limit. Returns the new APIKey and the raw key string.
func (m *APIKeyManager) RotateKey(ctx context.Context, id string) (*APIKey, string, error) {
	old, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}

	if err := m.RevokeKey(ctx, id); err != nil {
		return nil, "", fmt.Errorf("revoking old key: %w", err)
	}

	return m.GenerateKey(ctx, old.Name, old.RateLimit)
}

// ListKeys returns API keys with pagination.
func (m *APIKeyManager) ListKeys(ctx context.Context, limit, offset int) ([]*APIKey, int, error) {
	return m.store.ListKeys(ctx, limit, offset)
}

// GetKey returns a single key by ID.
func (m *APIKeyManager) GetKey(ctx context.Context, id string) (*APIKey, error) {
	return m.store.GetByID(ctx, id)
}

// generateRawKey produces a cryptographically random key string with the
// platform prefix: cnk_<32-hex-chars>.
func generateRawKey() (string, error) {
	b := make([]byte, apiKeyRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(b), nil
}

// hashKey returns the hex-encoded SHA-256 hash of the raw key string.
func hashKey(rawKey string) string {
	h := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(h[:])
}

// APIKeyContextKey is the echo context key under which the authenticated
// APIKey is stored by RequireAPIKey.
const APIKeyContextKey = "api_key"

// RequireAPIKey returns an Echo middleware that authenticates requests
// using API keys. The key may be supplied in the X-API-Key header or as
// an Authorization: Bearer token. Requests without a valid key are
// rejected with 401.
func RequireAPIKey(manager *APIKeyManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawKey := extractAPIKey(c)
			if rawKey == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			}

			key, err := manager.ValidateKey(c.Request().Context(), rawKey)
			if err != nil {
				switch {
				case errors.Is(err, ErrInvalidKey):
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
				case errors.Is(err, ErrKeyRevoked):
					return c.JSON(http.StatusUnauthorized, map[string]string{"error": "api key revoked"})
				default:
					return c.JSON(http.StatusInternalServerError, map[string]string{"error": "api key validation error"})
				}
			}

			c.Set(APIKeyContextKey, key)
			return next(c)
		}
	}
}

// extractAPIKey returns the raw API key from the request, checking the
// X-API-Key header first and then the Authorization: Bearer header.
func extractAPIKey(c echo.Context) string {
	if apiKey := c.Request().Header.Get("X-API-Key"); apiKey != "" {
		return apiKey
	}

	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// KeyFromContext returns the authenticated APIKey set by RequireAPIKey,
// or nil if the request was not authenticated with an API key.
func KeyFromContext(c echo.Context) *APIKey {
	key, _ := c.Get(APIKeyContextKey).(*APIKey)
	return key
}
