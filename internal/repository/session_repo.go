package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrLocked indicates another request holds the lock for the same session key.
	ErrLocked = errors.New("session key is locked")
	// ErrLockLost is returned when refreshing a lock that expired or was taken over.
	ErrLockLost = errors.New("session lock lost")
)

// Lease is a lock acquired with TryLock.
type Lease struct {
	refresh func(ctx context.Context, ttl time.Duration) error
	release func(ctx context.Context) error
}

// Refresh extends the lease to ttl from now. It fails with ErrLockLost once the
// lease expired and another request acquired the key.
func (l *Lease) Refresh(ctx context.Context, ttl time.Duration) error {
	return l.refresh(ctx, ttl)
}

// Release drops the lease. Releasing a lease that was taken over is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	return l.release(ctx)
}

// SessionStore keeps per-browser-session page state.
type SessionStore interface {
	Load(ctx context.Context, sessionID, key string, dest interface{}) (bool, error)
	Save(ctx context.Context, sessionID, key string, value interface{}) error
	TryLock(ctx context.Context, sessionID, key string, ttl time.Duration) (*Lease, error)
}

const defaultSessionTTL = 24 * time.Hour

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type redisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSessionStore stores session state in Redis under prefix.
func NewRedisSessionStore(client *redis.Client, prefix string, ttl time.Duration) SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "tutor"
	}
	return &redisSessionStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *redisSessionStore) Load(ctx context.Context, sessionID, key string, dest interface{}) (bool, error) {
	redisKey := s.stateKey(sessionID, key)
	raw, err := s.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load session state: %w", err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode session state: %w", err)
	}
	if err := s.client.Expire(ctx, redisKey, s.ttl).Err(); err != nil {
		return true, fmt.Errorf("refresh session ttl: %w", err)
	}
	return true, nil
}

func (s *redisSessionStore) Save(ctx context.Context, sessionID, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	if err := s.client.Set(ctx, s.stateKey(sessionID, key), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session state: %w", err)
	}
	return nil
}

func (s *redisSessionStore) TryLock(ctx context.Context, sessionID, key string, ttl time.Duration) (*Lease, error) {
	lockKey := s.stateKey(sessionID, key) + ":lock"
	token := uuid.NewString()

	acquired, err := s.client.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !acquired {
		return nil, ErrLocked
	}

	return &Lease{
		refresh: func(ctx context.Context, ttl time.Duration) error {
			extended, err := refreshScript.Run(ctx, s.client, []string{lockKey}, token, ttl.Milliseconds()).Int()
			if err != nil {
				return fmt.Errorf("refresh session lock: %w", err)
			}
			if extended == 0 {
				return ErrLockLost
			}
			return nil
		},
		release: func(ctx context.Context) error {
			if err := unlockScript.Run(ctx, s.client, []string{lockKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				return fmt.Errorf("release session lock: %w", err)
			}
			return nil
		},
	}, nil
}

func (s *redisSessionStore) stateKey(sessionID, key string) string {
	return fmt.Sprintf("%s:session:%s:%s", s.prefix, sessionID, key)
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

type memoryLock struct {
	token     string
	expiresAt time.Time
}

type memorySessionStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	locks   map[string]memoryLock
	now     func() time.Time
}

// NewMemorySessionStore keeps session state in process memory. Used when no
// Redis URL is configured.
func NewMemorySessionStore(ttl time.Duration) SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &memorySessionStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		locks:   make(map[string]memoryLock),
		now:     time.Now,
	}
}

func (s *memorySessionStore) Load(_ context.Context, sessionID, key string, dest interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := memoryKey(sessionID, key)
	entry, ok := s.entries[id]
	if !ok {
		return false, nil
	}
	now := s.now()
	if now.After(entry.expiresAt) {
		delete(s.entries, id)
		return false, nil
	}

	if err := json.Unmarshal(entry.value, dest); err != nil {
		return false, fmt.Errorf("decode session state: %w", err)
	}
	entry.expiresAt = now.Add(s.ttl)
	s.entries[id] = entry
	return true, nil
}

func (s *memorySessionStore) Save(_ context.Context, sessionID, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.entries[memoryKey(sessionID, key)] = memoryEntry{value: raw, expiresAt: now.Add(s.ttl)}
	s.sweepLocked(now)
	return nil
}

func (s *memorySessionStore) TryLock(_ context.Context, sessionID, key string, ttl time.Duration) (*Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := memoryKey(sessionID, key)
	now := s.now()
	if held, ok := s.locks[id]; ok && now.Before(held.expiresAt) {
		return nil, ErrLocked
	}

	token := uuid.NewString()
	s.locks[id] = memoryLock{token: token, expiresAt: now.Add(ttl)}

	return &Lease{
		refresh: func(_ context.Context, ttl time.Duration) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			now := s.now()
			held, ok := s.locks[id]
			if !ok || held.token != token || !now.Before(held.expiresAt) {
				return ErrLockLost
			}
			held.expiresAt = now.Add(ttl)
			s.locks[id] = held
			return nil
		},
		release: func(context.Context) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			if held, ok := s.locks[id]; ok && held.token == token {
				delete(s.locks, id)
			}
			return nil
		},
	}, nil
}

// sweepLocked drops expired entries. Caller holds mu.
func (s *memorySessionStore) sweepLocked(now time.Time) {
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
	for id, lock := range s.locks {
		if now.After(lock.expiresAt) {
			delete(s.locks, id)
		}
	}
}

func memoryKey(sessionID, key string) string {
	return sessionID + "\x00" + key
}
