package delegation

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/listtoshift/internal/model"
)

// StateStore はOAuthのstateとアカウントの対応を一時的に保持する。
// stateは一度しか消費できない。
type StateStore interface {
	// Save はstateにアカウントIDを紐付けて保存する。
	Save(ctx context.Context, state, accountID string, ttl time.Duration) error
	// Consume はstateを取り出して削除する。未登録・期限切れの場合はmodel.ErrInvalidStateを返す。
	Consume(ctx context.Context, state string) (string, error)
}

// NewState は推測不能なstate文字列を生成する。
func NewState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

const redisStateKeyPrefix = "listtoshift:oauth_state:"

// RedisStateStore はRedisにstateを保存する。複数インスタンス構成で使う。
type RedisStateStore struct {
	client *redis.Client
}

// NewRedisStateStore はRedisStateStoreを生成する。
func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

// Save はTTL付きでstateを保存する。
func (s *RedisStateStore) Save(ctx context.Context, state, accountID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, redisStateKeyPrefix+state, accountID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	return nil
}

// Consume はGETDELでstateを原子的に取り出す。
func (s *RedisStateStore) Consume(ctx context.Context, state string) (string, error) {
	if state == "" {
		return "", model.ErrInvalidState
	}
	accountID, err := s.client.GetDel(ctx, redisStateKeyPrefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", model.ErrInvalidState
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume oauth state: %w", err)
	}
	return accountID, nil
}

// MemoryStateStore はプロセス内にstateを保持する。単一インスタンスや開発環境向け。
type MemoryStateStore struct {
	mu      sync.Mutex
	entries map[string]memoryStateEntry
	now     func() time.Time
}

type memoryStateEntry struct {
	accountID string
	expiresAt time.Time
}

// NewMemoryStateStore はMemoryStateStoreを生成する。
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		entries: make(map[string]memoryStateEntry),
		now:     time.Now,
	}
}

// Save はstateを保存し、ついでに期限切れのエントリを掃除する。
func (s *MemoryStateStore) Save(_ context.Context, state, accountID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.entries {
		if !e.expiresAt.After(now) {
			delete(s.entries, k)
		}
	}
	s.entries[state] = memoryStateEntry{accountID: accountID, expiresAt: now.Add(ttl)}
	return nil
}

// Consume はstateを取り出して削除する。
func (s *MemoryStateStore) Consume(_ context.Context, state string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[state]
	if !ok {
		return "", model.ErrInvalidState
	}
	delete(s.entries, state)
	if !e.expiresAt.After(s.now()) {
		return "", model.ErrInvalidState
	}
	return e.accountID, nil
}

var (
	_ StateStore = (*RedisStateStore)(nil)
	_ StateStore = (*MemoryStateStore)(nil)
)
