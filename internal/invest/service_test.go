package invest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stackvest/dca-engine/internal/amm"
	"github.com/stackvest/dca-engine/internal/invest"
	"github.com/stackvest/dca-engine/internal/model"
	"github.com/stackvest/dca-engine/internal/oracle"
	"github.com/stackvest/dca-engine/internal/store"
)

const operatorKey = "test-operator-key"

// Prices from the 8-decimal feed convention: base ≈ $2094.06, target ≈ $100.97.
const (
	basePriceRaw   = "209405906218"
	targetPriceRaw = "10096894592"
)

func d(i int64) decimal.Decimal {
	return decimal.NewFromInt(i)
}

func ds(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type env struct {
	svc        *invest.Service
	store      *store.MemoryStore
	router     *amm.FixedRateRouter
	targetFeed *oracle.StaticFeed
	mux        chi.Router
}

// newTestEnv wires a Service over the in-memory store, static feeds, and the
// fixed-rate dev router.
func newTestEnv(t *testing.T) *env {
	t.Helper()

	ms := store.NewMemoryStore()
	baseFeed := oracle.NewStaticFeed(ds(basePriceRaw), 8)
	targetFeed := oracle.NewStaticFeed(ds(targetPriceRaw), 8)
	ora := oracle.NewAdapter(baseFeed, targetFeed, 0)
	router := amm.NewFixedRateRouter(ds("20.74"))
	factory := amm.NewStaticFactory([2]string{"WBTC", "WETH"})

	svc, err := invest.NewService(context.Background(),
		invest.Assets{BaseAsset: "ETH", WrappedBase: "WETH", TargetAsset: "WBTC"},
		ms, ora, factory, router, invest.NewKeyAuthorizer(operatorKey), nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	mux := chi.NewRouter()
	mux.Post("/api/v1/investments", svc.Enroll)
	mux.Get("/api/v1/investments/{userID}", svc.ViewInvestment)
	mux.Get("/api/v1/investments/{userID}/history", svc.GetHistory)
	mux.Post("/api/v1/batch", svc.RunBatch)
	mux.Get("/api/v1/oracle/{selector}", svc.GetOraclePrice)
	mux.Get("/api/v1/quote", svc.GetQuote)

	return &env{svc: svc, store: ms, router: router, targetFeed: targetFeed, mux: mux}
}

func (e *env) doEnroll(t *testing.T, req invest.EnrollRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest("POST", "/api/v1/investments", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, httpReq)
	return w
}

func (e *env) mustEnroll(t *testing.T, userID string, perPeriod, deposit int64, freq int) {
	t.Helper()
	w := e.doEnroll(t, invest.EnrollRequest{
		UserID:          userID,
		PerPeriodAmount: d(perPeriod),
		DepositAmount:   d(deposit),
		Frequency:       freq,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("enroll %s: expected 201, got %d: %s", userID, w.Code, w.Body.String())
	}
}

func (e *env) record(t *testing.T, userID string) (*model.InvestmentRecord, bool) {
	t.Helper()
	rec, err := e.store.GetInvestment(context.Background(), userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		t.Fatalf("GetInvestment %s: %v", userID, err)
	}
	return rec, true
}

// --- Batch execution core ---

func TestExecuteBatch_EndToEndWeekly(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	// Deposit 1.0, per-period 0.5, in 8-decimal base units.
	e.mustEnroll(t, "user1", 50000000, 100000000, 1)

	t0 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	// First call: immediately eligible (never purchased).
	events, err := e.svc.ExecuteBatch(ctx, []string{"user1"}, t0)
	if err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if len(events) != 1 || events[0].Type != model.EventPurchased {
		t.Fatalf("expected one purchased event, got %+v", events)
	}
	minOut := ds("987601655") // trunc(trunc(0.5e8 * basePrice / targetPrice) * 10000 / 10500)
	if events[0].AmountReceived.LessThan(minOut) {
		t.Errorf("received %s below minimum out %s", events[0].AmountReceived, minOut)
	}

	rec, ok := e.record(t, "user1")
	if !ok {
		t.Fatal("record should still exist after first purchase")
	}
	if !rec.RemainingToInvest.Equal(d(50000000)) {
		t.Errorf("remaining = %s, want 50000000", rec.RemainingToInvest)
	}
	if !rec.LastPurchaseAt.Equal(t0) {
		t.Errorf("last purchase = %s, want %s", rec.LastPurchaseAt, t0)
	}

	// Six days later: inside the weekly window, defined no-op.
	events, err = e.svc.ExecuteBatch(ctx, []string{"user1"}, t0.Add(6*24*time.Hour))
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events inside the window, got %+v", events)
	}
	rec, _ = e.record(t, "user1")
	if !rec.RemainingToInvest.Equal(d(50000000)) || !rec.LastPurchaseAt.Equal(t0) {
		t.Errorf("no-op batch mutated the record: %+v", rec)
	}

	// Eight days after the first purchase: spends the final 0.5, finishing.
	events, err = e.svc.ExecuteBatch(ctx, []string{"user1"}, t0.Add(8*24*time.Hour))
	if err != nil {
		t.Fatalf("third batch: %v", err)
	}
	if len(events) != 1 || events[0].Type != model.EventInvestmentFinished {
		t.Fatalf("expected one finished event, got %+v", events)
	}
	if _, ok := e.record(t, "user1"); ok {
		t.Error("record should be removed once remaining reaches zero")
	}

	purchases, err := e.store.GetPurchasesByUser(ctx, "user1")
	if err != nil {
		t.Fatalf("GetPurchasesByUser: %v", err)
	}
	if len(purchases) != 2 {
		t.Fatalf("expected 2 purchase entries, got %d", len(purchases))
	}
}

func TestExecuteBatch_StrictWindowBoundary(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.mustEnroll(t, "user1", 10, 100, 0) // daily

	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := e.svc.ExecuteBatch(ctx, []string{"user1"}, t0); err != nil {
		t.Fatalf("first batch: %v", err)
	}

	// Exactly on the boundary: not yet eligible.
	events, err := e.svc.ExecuteBatch(ctx, []string{"user1"}, t0.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("boundary batch: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("purchase exactly on the boundary must not be eligible, got %+v", events)
	}

	// One second past the boundary: eligible.
	events, err = e.svc.ExecuteBatch(ctx, []string{"user1"}, t0.Add(24*time.Hour+time.Second))
	if err != nil {
		t.Fatalf("past-boundary batch: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected purchase past the boundary, got %+v", events)
	}
}

func TestExecuteBatch_ConservationAndFinalPartialPeriod(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.mustEnroll(t, "user1", 50, 70, 0) // daily; final period spends only 20

	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := e.svc.ExecuteBatch(ctx, []string{"user1"}, t0); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	rec, _ := e.record(t, "user1")
	if !rec.RemainingToInvest.Equal(d(20)) {
		t.Errorf("remaining = %s, want 70 - 50 = 20", rec.RemainingToInvest)
	}

	events, err := e.svc.ExecuteBatch(ctx, []string{"user1"}, t0.Add(25*time.Hour))
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if len(events) != 1 || events[0].Type != model.EventInvestmentFinished {
		t.Fatalf("expected finished event, got %+v", events)
	}

	purchases, _ := e.store.GetPurchasesByUser(ctx, "user1")
	if len(purchases) != 2 {
		t.Fatalf("expected 2 purchases, got %d", len(purchases))
	}
	if !purchases[0].Spend.Equal(d(50)) || !purchases[1].Spend.Equal(d(20)) {
		t.Errorf("spends = %s, %s; want 50, 20", purchases[0].Spend, purchases[1].Spend)
	}
}

func TestExecuteBatch_SkipsNullAndUnenrolled(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.mustEnroll(t, "user1", 10, 100, 0)

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	events, err := e.svc.ExecuteBatch(ctx, []string{"", "ghost", "user1", ""}, now)
	if err != nil {
		t.Fatalf("batch with null/unenrolled entries must not fault: %v", err)
	}
	if len(events) != 1 || events[0].UserID != "user1" {
		t.Errorf("expected exactly one event for user1, got %+v", events)
	}
}

func TestExecuteBatch_DuplicateListEntryPurchasesOnce(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.mustEnroll(t, "user1", 10, 100, 0)

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	events, err := e.svc.ExecuteBatch(ctx, []string{"user1", "user1"}, now)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one purchase for duplicated entry, got %+v", events)
	}
	rec, _ := e.record(t, "user1")
	if !rec.RemainingToInvest.Equal(d(90)) {
		t.Errorf("remaining = %s, want 90", rec.RemainingToInvest)
	}
}

func TestExecuteBatch_ProcessesInCallerOrder(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.mustEnroll(t, "alice", 10, 100, 0)
	e.mustEnroll(t, "bob", 10, 100, 0)
	e.mustEnroll(t, "carol", 10, 100, 0)

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := e.svc.ExecuteBatch(ctx, []string{"carol", "alice", "bob"}, now); err != nil {
		t.Fatalf("batch: %v", err)
	}

	swaps := e.router.Swaps()
	if len(swaps) != 3 {
		t.Fatalf("expected 3 swaps, got %d", len(swaps))
	}
	for i, want := range []string{"carol", "alice", "bob"} {
		if swaps[i].Recipient != want {
			t.Errorf("swap %d recipient = %s, want %s", i, swaps[i].Recipient, want)
		}
	}
}

func TestExecuteBatch_SwapParameters(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.mustEnroll(t, "user1", 50000000, 100000000, 1)

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := e.svc.ExecuteBatch(ctx, []string{"user1"}, now); err != nil {
		t.Fatalf("batch: %v", err)
	}

	swaps := e.router.Swaps()
	if len(swaps) != 1 {
		t.Fatalf("expected 1 swap, got %d", len(swaps))
	}
	s := swaps[0]
	if !s.AmountIn.Equal(d(50000000)) {
		t.Errorf("amount in = %s, want 50000000", s.AmountIn)
	}
	if !s.AmountOutMin.Equal(ds("987601655")) {
		t.Errorf("amount out min = %s, want 987601655", s.AmountOutMin)
	}
	if len(s.Path) != 2 || s.Path[0] != "WETH" || s.Path[1] != "WBTC" {
		t.Errorf("path = %v, want [WETH WBTC]", s.Path)
	}
	if !s.Deadline.Equal(now) {
		t.Errorf("deadline = %s, want %s (no deferred settlement)", s.Deadline, now)
	}
}

func TestExecuteBatch_SwapFailureAbortsWholeBatch(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.mustEnroll(t, "alice", 10, 100, 0)
	e.mustEnroll(t, "bob", 10, 100, 0)

	boom := errors.New("pool halted")
	e.router.FailAt(2, boom)

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := e.svc.ExecuteBatch(ctx, []string{"alice", "bob"}, now)
	if !errors.Is(err, invest.ErrSwapFailed) {
		t.Fatalf("got %v, want ErrSwapFailed", err)
	}

	// Alice's swap succeeded before Bob's failed, but nothing may be
	// committed: the batch is atomic.
	for _, user := range []string{"alice", "bob"} {
		rec, ok := e.record(t, user)
		if !ok {
			t.Fatalf("%s record missing", user)
		}
		if !rec.RemainingToInvest.Equal(d(100)) || !rec.LastPurchaseAt.IsZero() {
			t.Errorf("%s record mutated by aborted batch: %+v", user, rec)
		}
		purchases, _ := e.store.GetPurchasesByUser(ctx, user)
		if len(purchases) != 0 {
			t.Errorf("%s has purchase entries from aborted batch", user)
		}
	}
}

func TestExecuteBatch_OracleFaultAbortsWholeBatch(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.mustEnroll(t, "user1", 10, 100, 0)

	e.targetFeed.Set(d(-1))

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := e.svc.ExecuteBatch(ctx, []string{"user1"}, now)
	if !errors.Is(err, oracle.ErrInvalidOracleAnswer) {
		t.Fatalf("got %v, want ErrInvalidOracleAnswer", err)
	}

	rec, _ := e.record(t, "user1")
	if !rec.RemainingToInvest.Equal(d(100)) {
		t.Errorf("record mutated by aborted batch: %+v", rec)
	}
}

func TestExecuteBatch_ReenrollAfterCompletion(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.mustEnroll(t, "user1", 100, 100, 0)

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	events, err := e.svc.ExecuteBatch(ctx, []string{"user1"}, now)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(events) != 1 || events[0].Type != model.EventInvestmentFinished {
		t.Fatalf("expected finished event, got %+v", events)
	}

	// Completion removes the record, so re-enrollment is allowed.
	e.mustEnroll(t, "user1", 10, 50, 1)
}

// --- Construction ---

func TestNewService_PairNotCreated(t *testing.T) {
	ms := store.NewMemoryStore()
	ora := oracle.NewAdapter(
		oracle.NewStaticFeed(ds(basePriceRaw), 8),
		oracle.NewStaticFeed(ds(targetPriceRaw), 8), 0)
	router := amm.NewFixedRateRouter(ds("20.74"))
	factory := amm.NewStaticFactory() // no pairs

	_, err := invest.NewService(context.Background(),
		invest.Assets{BaseAsset: "ETH", WrappedBase: "WETH", TargetAsset: "WBTC"},
		ms, ora, factory, router, invest.NewKeyAuthorizer(operatorKey), nil)
	if !errors.Is(err, amm.ErrPairNotCreated) {
		t.Errorf("got %v, want ErrPairNotCreated", err)
	}
}

// --- HTTP surface ---

func TestEnroll_Valid(t *testing.T) {
	e := newTestEnv(t)

	w := e.doEnroll(t, invest.EnrollRequest{
		UserID:          "user1",
		PerPeriodAmount: d(50),
		DepositAmount:   d(100),
		Frequency:       1,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var rec model.InvestmentRecord
	json.Unmarshal(w.Body.Bytes(), &rec)
	if rec.UserID != "user1" || !rec.RemainingToInvest.Equal(d(100)) {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestEnroll_Rejections(t *testing.T) {
	cases := []struct {
		name string
		req  invest.EnrollRequest
		want int
	}{
		{"zero deposit", invest.EnrollRequest{UserID: "u", PerPeriodAmount: d(50), DepositAmount: d(0), Frequency: 0}, http.StatusBadRequest},
		{"zero per period", invest.EnrollRequest{UserID: "u", PerPeriodAmount: d(0), DepositAmount: d(100), Frequency: 0}, http.StatusBadRequest},
		{"bad frequency", invest.EnrollRequest{UserID: "u", PerPeriodAmount: d(50), DepositAmount: d(100), Frequency: 3}, http.StatusBadRequest},
		{"missing user", invest.EnrollRequest{PerPeriodAmount: d(50), DepositAmount: d(100), Frequency: 0}, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv(t)
			w := e.doEnroll(t, tc.req)
			if w.Code != tc.want {
				t.Errorf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestEnroll_AlreadyEnrolled(t *testing.T) {
	e := newTestEnv(t)
	e.mustEnroll(t, "user1", 50, 100, 1)

	w := e.doEnroll(t, invest.EnrollRequest{
		UserID:          "user1",
		PerPeriodAmount: d(10),
		DepositAmount:   d(999),
		Frequency:       0,
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}

	rec, _ := e.record(t, "user1")
	if !rec.RemainingToInvest.Equal(d(100)) {
		t.Errorf("rejected enrollment mutated record: %+v", rec)
	}
}

func TestViewInvestment_AbsentReturnsZeroRecord(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest("GET", "/api/v1/investments/nobody", nil)
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var rec model.InvestmentRecord
	json.Unmarshal(w.Body.Bytes(), &rec)
	if !rec.RemainingToInvest.IsZero() {
		t.Errorf("expected zero-valued record, got %+v", rec)
	}
}

func TestRunBatch_Unauthorized(t *testing.T) {
	e := newTestEnv(t)
	e.mustEnroll(t, "user1", 10, 100, 0)

	body, _ := json.Marshal(invest.BatchRequest{Users: []string{"user1"}})

	for _, key := range []string{"", "wrong-key"} {
		req := httptest.NewRequest("POST", "/api/v1/batch", bytes.NewReader(body))
		if key != "" {
			req.Header.Set(invest.OperatorKeyHeader, key)
		}
		w := httptest.NewRecorder()
		e.mux.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("key %q: expected 401, got %d", key, w.Code)
		}
	}

	rec, _ := e.record(t, "user1")
	if !rec.RemainingToInvest.Equal(d(100)) {
		t.Errorf("unauthorized call mutated record: %+v", rec)
	}
}

func TestRunBatch_Operator(t *testing.T) {
	e := newTestEnv(t)
	e.mustEnroll(t, "user1", 10, 100, 0)

	body, _ := json.Marshal(invest.BatchRequest{Users: []string{"user1"}})
	req := httptest.NewRequest("POST", "/api/v1/batch", bytes.NewReader(body))
	req.Header.Set(invest.OperatorKeyHeader, operatorKey)
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp invest.BatchResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Events) != 1 || resp.Events[0].Type != model.EventPurchased {
		t.Errorf("unexpected events: %+v", resp.Events)
	}
}

func TestRunBatch_SwapFailureIsBadGateway(t *testing.T) {
	e := newTestEnv(t)
	e.mustEnroll(t, "user1", 10, 100, 0)
	e.router.FailWith(errors.New("pool halted"))

	body, _ := json.Marshal(invest.BatchRequest{Users: []string{"user1"}})
	req := httptest.NewRequest("POST", "/api/v1/batch", bytes.NewReader(body))
	req.Header.Set(invest.OperatorKeyHeader, operatorKey)
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetQuote(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest("GET", "/api/v1/quote?amount=50000000", nil)
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]decimal.Decimal
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp["minimum_out"].Equal(ds("987601655")) {
		t.Errorf("minimum_out = %s, want 987601655", resp["minimum_out"])
	}
}

func TestGetQuote_RejectsBadAmount(t *testing.T) {
	e := newTestEnv(t)

	for _, amount := range []string{"", "0", "-5", "1.5", "abc"} {
		req := httptest.NewRequest("GET", "/api/v1/quote?amount="+amount, nil)
		w := httptest.NewRecorder()
		e.mux.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("amount %q: expected 400, got %d", amount, w.Code)
		}
	}
}

func TestGetOraclePrice(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest("GET", "/api/v1/oracle/base", nil)
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]decimal.Decimal
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp["price"].Equal(ds(basePriceRaw)) {
		t.Errorf("price = %s, want %s", resp["price"], basePriceRaw)
	}

	req = httptest.NewRequest("GET", "/api/v1/oracle/wrapped", nil)
	w = httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown selector: expected 404, got %d", w.Code)
	}
}

func TestGetHistory(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.mustEnroll(t, "user1", 10, 100, 0)

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := e.svc.ExecuteBatch(ctx, []string{"user1"}, now); err != nil {
		t.Fatalf("batch: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/v1/investments/user1/history", nil)
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var entries []model.PurchaseEntry
	json.Unmarshal(w.Body.Bytes(), &entries)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if !entries[0].Spend.Equal(d(10)) || entries[0].TargetAsset != "WBTC" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}
