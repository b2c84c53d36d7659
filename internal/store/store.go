// Package store defines the persistence interface for the DCA engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/stackvest/dca-engine/internal/model"
)

var (
	// ErrNotFound is returned when no investment record exists for a user.
	ErrNotFound = errors.New("store: investment not found")

	// ErrAlreadyExists is returned when inserting over an active record.
	ErrAlreadyExists = errors.New("store: investment already exists")
)

// BatchCommit is the staged outcome of one batch execution. It is applied
// atomically: either every update, removal, and purchase entry lands, or
// none do.
type BatchCommit struct {
	BatchID   string
	Updates   []model.InvestmentRecord
	Removals  []string
	Purchases []model.PurchaseEntry
}

// Empty reports whether the commit carries no mutations.
func (c *BatchCommit) Empty() bool {
	return len(c.Updates) == 0 && len(c.Removals) == 0 && len(c.Purchases) == 0
}

// Store is the persistence interface. The investments mapping is the only
// mutable state; purchase entries are append-only history.
type Store interface {
	// CreateInvestment inserts a new record, failing with ErrAlreadyExists
	// if the user already has an active one.
	CreateInvestment(ctx context.Context, rec *model.InvestmentRecord) error

	// GetInvestment retrieves a record by user ID, or ErrNotFound.
	GetInvestment(ctx context.Context, userID string) (*model.InvestmentRecord, error)

	// ListActiveUsers returns the IDs of all users with active records,
	// oldest enrollment first.
	ListActiveUsers(ctx context.Context) ([]string, error)

	// CommitBatch applies a batch's staged mutations atomically.
	CommitBatch(ctx context.Context, commit *BatchCommit) error

	// GetPurchasesByUser returns a user's purchase history in time order.
	GetPurchasesByUser(ctx context.Context, userID string) ([]model.PurchaseEntry, error)
}
