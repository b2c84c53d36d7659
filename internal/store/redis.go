package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stackvest/dca-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for investment records. Writes go to the primary store and
// invalidate the cache; reads check Redis first then fall back to the
// primary. Purchase history and user listings pass straight through.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (s *CachedStore) CreateInvestment(ctx context.Context, rec *model.InvestmentRecord) error {
	if err := s.primary.CreateInvestment(ctx, rec); err != nil {
		return err
	}
	s.cacheInvestment(ctx, rec)
	return nil
}

func (s *CachedStore) GetInvestment(ctx context.Context, userID string) (*model.InvestmentRecord, error) {
	// Try cache.
	data, err := s.rdb.Get(ctx, investmentKey(userID)).Bytes()
	if err == nil {
		var rec model.InvestmentRecord
		if json.Unmarshal(data, &rec) == nil {
			return &rec, nil
		}
	}

	// Cache miss: read from primary.
	rec, err := s.primary.GetInvestment(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.cacheInvestment(ctx, rec)
	return rec, nil
}

// CommitBatch invalidates every touched user's cache entry after the primary
// commit; the next read re-populates.
func (s *CachedStore) CommitBatch(ctx context.Context, commit *BatchCommit) error {
	if err := s.primary.CommitBatch(ctx, commit); err != nil {
		return err
	}

	keys := make([]string, 0, len(commit.Updates)+len(commit.Removals))
	for i := range commit.Updates {
		keys = append(keys, investmentKey(commit.Updates[i].UserID))
	}
	for _, userID := range commit.Removals {
		keys = append(keys, investmentKey(userID))
	}
	if len(keys) > 0 {
		s.rdb.Del(ctx, keys...)
	}
	return nil
}

func (s *CachedStore) ListActiveUsers(ctx context.Context) ([]string, error) {
	return s.primary.ListActiveUsers(ctx)
}

func (s *CachedStore) GetPurchasesByUser(ctx context.Context, userID string) ([]model.PurchaseEntry, error) {
	return s.primary.GetPurchasesByUser(ctx, userID)
}

func (s *CachedStore) cacheInvestment(ctx context.Context, rec *model.InvestmentRecord) {
	if data, err := json.Marshal(rec); err == nil {
		s.rdb.Set(ctx, investmentKey(rec.UserID), data, s.ttl)
	}
}

func investmentKey(userID string) string { return fmt.Sprintf("investment:%s", userID) }
