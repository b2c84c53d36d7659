package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/stackvest/dca-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu          sync.RWMutex
	investments map[string]*model.InvestmentRecord
	purchases   []model.PurchaseEntry
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		investments: make(map[string]*model.InvestmentRecord),
	}
}

func (s *MemoryStore) CreateInvestment(_ context.Context, rec *model.InvestmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.investments[rec.UserID]; ok {
		return fmt.Errorf("%w: user %s", ErrAlreadyExists, rec.UserID)
	}

	// Store a copy to avoid external mutation.
	cp := *rec
	s.investments[rec.UserID] = &cp
	return nil
}

func (s *MemoryStore) GetInvestment(_ context.Context, userID string) (*model.InvestmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.investments[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) ListActiveUsers(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := make([]*model.InvestmentRecord, 0, len(s.investments))
	for _, rec := range s.investments {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].UserID < recs[j].UserID
		}
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})

	users := make([]string, len(recs))
	for i, rec := range recs {
		users[i] = rec.UserID
	}
	return users, nil
}

// CommitBatch applies all mutations under a single lock acquisition, so
// readers see either the pre-batch or post-batch state, never a mix.
func (s *MemoryStore) CommitBatch(_ context.Context, commit *BatchCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range commit.Updates {
		cp := commit.Updates[i]
		s.investments[cp.UserID] = &cp
	}
	for _, userID := range commit.Removals {
		delete(s.investments, userID)
	}
	s.purchases = append(s.purchases, commit.Purchases...)
	return nil
}

func (s *MemoryStore) GetPurchasesByUser(_ context.Context, userID string) ([]model.PurchaseEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.PurchaseEntry
	for _, p := range s.purchases {
		if p.UserID == userID {
			result = append(result, p)
		}
	}
	return result, nil
}
