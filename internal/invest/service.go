// Package invest provides the HTTP handlers and batch-execution core of the
// recurring-purchase engine: enrollment, per-user eligibility gating, quote
// computation, swap invocation, and the event stream observers use to
// reconcile outcomes.
//
// All monetary values use shopspring/decimal — never float64 for money.
package invest

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stackvest/dca-engine/internal/amm"
	"github.com/stackvest/dca-engine/internal/ledger"
	"github.com/stackvest/dca-engine/internal/metrics"
	"github.com/stackvest/dca-engine/internal/model"
	"github.com/stackvest/dca-engine/internal/oracle"
	"github.com/stackvest/dca-engine/internal/quote"
	"github.com/stackvest/dca-engine/internal/store"
)

var (
	// ErrUnauthorized is returned when the caller is not the batch operator.
	ErrUnauthorized = errors.New("invest: caller is not the batch operator")

	// ErrSwapFailed wraps a failed AMM swap. The whole batch aborts; no
	// ledger mutation from the same call is committed.
	ErrSwapFailed = errors.New("invest: swap execution failed")
)

// Authorizer decides whether a credential may trigger batch execution.
// Modeled as an injected capability so the core stays decoupled from
// identity management.
type Authorizer interface {
	Authorize(ctx context.Context, credential string) error
}

// KeyAuthorizer authorizes callers presenting a fixed operator key.
type KeyAuthorizer struct {
	key string
}

// NewKeyAuthorizer creates an authorizer for the given operator key.
func NewKeyAuthorizer(key string) KeyAuthorizer {
	return KeyAuthorizer{key: key}
}

func (a KeyAuthorizer) Authorize(_ context.Context, credential string) error {
	if subtle.ConstantTimeCompare([]byte(a.key), []byte(credential)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// Assets names the assets a deployment trades between. BaseAsset is what
// users deposit; swaps route through its wrapped form to the target.
type Assets struct {
	BaseAsset   string
	WrappedBase string
	TargetAsset string
}

// Service handles enrollment, queries, and batch execution. A mutex
// serializes batch execution against enrollment (single-instance); for
// horizontal scaling, replace with distributed locking.
type Service struct {
	assets Assets
	ledger *ledger.Ledger
	store  store.Store
	oracle *oracle.Adapter
	quoter *quote.Quoter
	router amm.Router
	auth   Authorizer
	hub    *WSHub // optional WebSocket hub for real-time broadcasts
	mu     sync.Mutex
	now    func() time.Time
}

// NewService wires the service and verifies at construction time that the
// AMM has a liquidity pair for (target, wrapped base). Pass nil for hub if
// WebSocket broadcasting is not needed.
func NewService(ctx context.Context, assets Assets, st store.Store, ora *oracle.Adapter, factory amm.Factory, router amm.Router, auth Authorizer, hub *WSHub) (*Service, error) {
	ok, err := factory.PairExists(ctx, assets.TargetAsset, assets.WrappedBase)
	if err != nil {
		return nil, fmt.Errorf("check pair: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", amm.ErrPairNotCreated, assets.TargetAsset, assets.WrappedBase)
	}

	return &Service{
		assets: assets,
		ledger: ledger.New(st),
		store:  st,
		oracle: ora,
		quoter: quote.NewQuoter(ora),
		router: router,
		auth:   auth,
		hub:    hub,
		now:    time.Now,
	}, nil
}

// ExecuteBatch processes users strictly in caller order. Per user it applies
// the three skip conditions (blank identity, no active record, frequency
// window not yet elapsed), spends min(perPeriod, remaining), bounds the swap
// by the oracle-derived minimum out, and stages the ledger mutation. All
// staged mutations commit through a single store call only after every swap
// has succeeded, so a failure anywhere leaves the ledger untouched.
//
// The staged record is decremented before its swap is invoked: a collaborator
// calling back into the query surface mid-swap can never observe a stale
// spendable balance.
//
// Returns the emitted event stream; skips produce no events.
func (s *Service) ExecuteBatch(ctx context.Context, users []string, now time.Time) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	batchID := uuid.New().String()
	commit := &store.BatchCommit{BatchID: batchID}

	// Staged view of the ledger for this batch. A user listed twice sees
	// the first purchase's effect, exactly as with immediate writes.
	staged := make(map[string]model.InvestmentRecord)
	stagedOrder := make([]string, 0, len(users))
	removed := make(map[string]bool)

	var events []model.Event

	for _, userID := range users {
		if userID == "" {
			metrics.BatchSkipsTotal.WithLabelValues("null_identity").Inc()
			continue
		}
		if removed[userID] {
			metrics.BatchSkipsTotal.WithLabelValues("not_enrolled").Inc()
			continue
		}

		rec, ok := staged[userID]
		if !ok {
			var err error
			rec, err = s.ledger.Get(ctx, userID)
			if err != nil {
				metrics.BatchesTotal.WithLabelValues("error").Inc()
				return nil, err
			}
		}

		if !rec.RemainingToInvest.IsPositive() {
			metrics.BatchSkipsTotal.WithLabelValues("not_enrolled").Inc()
			continue
		}

		interval, err := rec.Frequency.Interval()
		if err != nil {
			metrics.BatchesTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("record %s: %w", userID, err)
		}
		// Strict inequality: a purchase exactly on the boundary is not yet
		// eligible. The zero timestamp (never purchased) is always eligible.
		if !rec.LastPurchaseAt.IsZero() && !now.After(rec.LastPurchaseAt.Add(interval)) {
			metrics.BatchSkipsTotal.WithLabelValues("window").Inc()
			continue
		}

		spend := decimal.Min(rec.PerPeriodAmount, rec.RemainingToInvest)

		minOut, err := s.quoter.MinimumOut(ctx, spend)
		if err != nil {
			metrics.BatchesTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("quote for %s: %w", userID, err)
		}

		rec.RemainingToInvest = rec.RemainingToInvest.Sub(spend)
		rec.LastPurchaseAt = now
		finished := rec.RemainingToInvest.IsZero()
		if finished {
			delete(staged, userID)
			removed[userID] = true
			commit.Removals = append(commit.Removals, userID)
		} else {
			if _, seen := staged[userID]; !seen {
				stagedOrder = append(stagedOrder, userID)
			}
			staged[userID] = rec
		}

		received, err := s.router.SwapExactIn(ctx, amm.SwapRequest{
			Recipient:    userID,
			AmountIn:     spend,
			AmountOutMin: minOut,
			Path:         []string{s.assets.WrappedBase, s.assets.TargetAsset},
			Deadline:     now,
		})
		if err != nil {
			metrics.BatchesTotal.WithLabelValues("swap_failed").Inc()
			return nil, fmt.Errorf("%w: user %s: %v", ErrSwapFailed, userID, err)
		}

		commit.Purchases = append(commit.Purchases, model.PurchaseEntry{
			ID:             uuid.New().String(),
			BatchID:        batchID,
			UserID:         userID,
			TargetAsset:    s.assets.TargetAsset,
			Spend:          spend,
			MinimumOut:     minOut,
			AmountReceived: received,
			Timestamp:      now,
		})

		if finished {
			events = append(events, model.Event{
				Type:        model.EventInvestmentFinished,
				BatchID:     batchID,
				UserID:      userID,
				TargetAsset: s.assets.TargetAsset,
			})
		} else {
			events = append(events, model.Event{
				Type:           model.EventPurchased,
				BatchID:        batchID,
				UserID:         userID,
				TargetAsset:    s.assets.TargetAsset,
				AmountReceived: received,
			})
		}
	}

	for _, userID := range stagedOrder {
		if rec, ok := staged[userID]; ok {
			commit.Updates = append(commit.Updates, rec)
		}
	}

	if !commit.Empty() {
		if err := s.store.CommitBatch(ctx, commit); err != nil {
			metrics.BatchesTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("commit batch %s: %w", batchID, err)
		}
	}

	// Commit succeeded; now publish.
	for _, ev := range events {
		switch ev.Type {
		case model.EventPurchased:
			metrics.PurchasesTotal.Inc()
		case model.EventInvestmentFinished:
			metrics.PurchasesTotal.Inc()
			metrics.InvestmentsFinished.Inc()
		}
		if s.hub != nil {
			s.hub.Broadcast(WSMessage{
				Type:           ev.Type,
				BatchID:        batchID,
				UserID:         ev.UserID,
				TargetAsset:    ev.TargetAsset,
				AmountReceived: ev.AmountReceived.String(),
			})
		}
	}
	if s.hub != nil {
		s.hub.Broadcast(WSMessage{
			Type:      "batch_completed",
			BatchID:   batchID,
			Purchases: len(commit.Purchases),
		})
	}

	metrics.BatchesTotal.WithLabelValues("ok").Inc()
	metrics.BatchDuration.Observe(time.Since(start).Seconds())

	slog.Info("batch executed",
		"batch_id", batchID,
		"listed", len(users),
		"purchases", len(commit.Purchases),
		"finished", len(commit.Removals),
	)

	return events, nil
}

// --- Request/Response types ---

// EnrollRequest is the JSON body for POST /investments.
type EnrollRequest struct {
	UserID          string          `json:"user_id"`
	PerPeriodAmount decimal.Decimal `json:"per_period_amount"`
	DepositAmount   decimal.Decimal `json:"deposit_amount"`
	Frequency       int             `json:"frequency"` // 0=daily 1=weekly 2=monthly
}

// BatchRequest is the JSON body for POST /batch.
type BatchRequest struct {
	Users []string `json:"users"`
}

// BatchResponse echoes the emitted event stream.
type BatchResponse struct {
	Events []model.Event `json:"events"`
}

// --- HTTP Handlers ---

// OperatorKeyHeader carries the batch operator credential.
const OperatorKeyHeader = "X-Operator-Key"

// Enroll handles POST /api/v1/investments
func (s *Service) Enroll(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	freq, err := model.ParseFrequency(req.Frequency)
	if err != nil {
		writeError(w, "frequency must be 0 (daily), 1 (weekly), or 2 (monthly)", http.StatusBadRequest)
		return
	}

	// Enrollment and batch execution share the lock, so neither observes
	// the other's partial progress.
	s.mu.Lock()
	rec, err := s.ledger.Enroll(r.Context(), req.UserID, req.PerPeriodAmount, req.DepositAmount, freq)
	s.mu.Unlock()
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrZeroDeposit), errors.Is(err, ledger.ErrZeroPeriodAmount):
			writeError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ledger.ErrAlreadyEnrolled):
			writeError(w, err.Error(), http.StatusConflict)
		default:
			writeError(w, "enrollment failed", http.StatusInternalServerError)
		}
		return
	}

	metrics.EnrollmentsTotal.Inc()
	slog.Info("user enrolled",
		"user", rec.UserID,
		"deposit", rec.RemainingToInvest.String(),
		"per_period", rec.PerPeriodAmount.String(),
		"frequency", rec.Frequency.String(),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rec)
}

// ViewInvestment handles GET /api/v1/investments/{userID}
// Returns the zero-valued record when the user has no active investment.
func (s *Service) ViewInvestment(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	rec, err := s.ledger.Get(r.Context(), userID)
	if err != nil {
		writeError(w, "failed to load investment", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}

// GetHistory handles GET /api/v1/investments/{userID}/history
func (s *Service) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	entries, err := s.store.GetPurchasesByUser(r.Context(), userID)
	if err != nil {
		writeError(w, "failed to load purchase history", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []model.PurchaseEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// RunBatch handles POST /api/v1/batch, restricted to the operator.
func (s *Service) RunBatch(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Authorize(r.Context(), r.Header.Get(OperatorKeyHeader)); err != nil {
		writeError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	events, err := s.ExecuteBatch(r.Context(), req.Users, s.now().UTC())
	if err != nil {
		slog.Error("batch failed", "err", err)
		switch {
		case errors.Is(err, ErrSwapFailed),
			errors.Is(err, oracle.ErrInvalidOracleAnswer),
			errors.Is(err, oracle.ErrStalePrice):
			writeError(w, err.Error(), http.StatusBadGateway)
		default:
			writeError(w, "batch execution failed", http.StatusInternalServerError)
		}
		return
	}
	if events == nil {
		events = []model.Event{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(BatchResponse{Events: events})
}

// GetOraclePrice handles GET /api/v1/oracle/{selector}
func (s *Service) GetOraclePrice(w http.ResponseWriter, r *http.Request) {
	sel := oracle.Selector(chi.URLParam(r, "selector"))

	price, err := s.oracle.Price(r.Context(), sel)
	if err != nil {
		switch {
		case errors.Is(err, oracle.ErrUnknownFeed):
			writeError(w, err.Error(), http.StatusNotFound)
		default:
			writeError(w, err.Error(), http.StatusBadGateway)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]decimal.Decimal{"price": price})
}

// GetQuote handles GET /api/v1/quote?amount=N
func (s *Service) GetQuote(w http.ResponseWriter, r *http.Request) {
	amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
	if err != nil || !amount.IsPositive() || !amount.IsInteger() {
		writeError(w, "amount must be a positive whole number of base units", http.StatusBadRequest)
		return
	}

	minOut, err := s.quoter.MinimumOut(r.Context(), amount)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]decimal.Decimal{"minimum_out": minOut})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
