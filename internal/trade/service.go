// Package trade provides the business logic and HTTP handlers for quoting,
// opening and closing car option positions and reading the portfolio.
//
// All monetary values use shopspring/decimal — never float64 for money.
package trade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/carstonks/options-engine/internal/catalog"
	"github.com/carstonks/options-engine/internal/contract"
	"github.com/carstonks/options-engine/internal/correlation"
	"github.com/carstonks/options-engine/internal/ledger"
	"github.com/carstonks/options-engine/internal/metrics"
	"github.com/carstonks/options-engine/internal/model"
	"github.com/carstonks/options-engine/internal/notification"
	"github.com/carstonks/options-engine/internal/pricing"
	"github.com/carstonks/options-engine/internal/store"
)

// ErrPersistence wraps store failures. The in-memory ledger is left
// unchanged when it is returned.
var ErrPersistence = errors.New("trade: failed to persist ledger")

// Service owns the ledger state. Uses a mutex for serialized trade
// execution (single-instance, single account).
type Service struct {
	store    store.Store
	catalog  catalog.Provider
	limiter  *correlation.PositionLimiter
	notifier notification.Notifier

	startingCash decimal.Decimal
	now          func() time.Time
	newID        func() string

	mu    sync.Mutex
	state ledger.State
}

// Option configures a Service.
type Option func(*Service)

// WithStartingCash sets the cash balance used when the account is seeded.
func WithStartingCash(cash decimal.Decimal) Option {
	return func(s *Service) { s.startingCash = cash }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides the position id source.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a new trade service. limiter and notifier may be nil.
// Call Load before serving requests.
func NewService(st store.Store, cat catalog.Provider, limiter *correlation.PositionLimiter,
	notifier notification.Notifier, opts ...Option) *Service {
	s := &Service{
		store:        st,
		catalog:      cat,
		limiter:      limiter,
		notifier:     notifier,
		startingCash: ledger.DefaultStartingCash,
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = ledger.Seed(s.startingCash)
	return s
}

// Load restores the ledger from the store. The trades and portfolioStats
// records are restored together or not at all: if either is absent, cannot
// be decoded, or disagrees with the other, both are replaced by the
// built-in default and written back.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.restore(ctx)
	if errors.Is(err, ErrPersistence) {
		return err
	}
	seeded := err != nil
	if seeded {
		if errors.Is(err, ledger.ErrMalformedPersistedState) {
			slog.Warn("persisted ledger is malformed, reseeding", "error", err)
		} else {
			slog.Info("no persisted ledger, using defaults", "reason", err)
		}
		next = ledger.Seed(s.startingCash)
		if err := s.persist(ctx, next); err != nil {
			return err
		}
	}
	s.state = next
	s.observe()

	slog.Info("ledger loaded",
		"positions", len(next.Positions),
		"cash", next.Stats.CashBalance.String(),
		"active", next.Stats.ActivePositions,
		"trades", next.Stats.TotalTrades,
		"seeded", seeded,
	)
	return nil
}

// errNoLedger marks a store that holds neither or only one of the records.
var errNoLedger = errors.New("trade: ledger not persisted")

// restore reads and validates both records. Read failures wrap
// ErrPersistence; anything else means the caller should reseed.
func (s *Service) restore(ctx context.Context) (ledger.State, error) {
	trades, err := readRecord(ctx, s.store, ledger.TradesKey)
	if err != nil {
		return ledger.State{}, err
	}
	stats, err := readRecord(ctx, s.store, ledger.StatsKey)
	if err != nil {
		return ledger.State{}, err
	}
	if trades == nil || stats == nil {
		return ledger.State{}, fmt.Errorf("%w: trades present %t, stats present %t",
			errNoLedger, trades != nil, stats != nil)
	}

	var st ledger.State
	if st.Positions, err = ledger.DecodeTrades(trades); err != nil {
		return ledger.State{}, err
	}
	if st.Stats, err = ledger.DecodeStats(stats); err != nil {
		return ledger.State{}, err
	}
	if err := st.CheckConsistent(); err != nil {
		return ledger.State{}, err
	}
	return st, nil
}

// readRecord returns nil for an absent or zero-length record.
func readRecord(ctx context.Context, st store.Store, key string) ([]byte, error) {
	data, err := st.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) || (err == nil && len(data) == 0) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrPersistence, key, err)
	}
	return data, nil
}

// Reset discards all positions and restores the default account.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commit(ctx, ledger.Seed(s.startingCash))
}

// Cars lists the catalog.
func (s *Service) Cars(f catalog.Filter) []model.Car {
	return s.catalog.List(f)
}

// Car returns one car from the catalog.
func (s *Service) Car(id string) (model.Car, error) {
	return s.catalog.Car(id)
}

// Quote prices a prospective trade without changing any state.
func (s *Service) Quote(carID string, p model.TradeParameters) (pricing.Quote, error) {
	car, err := s.catalog.Car(carID)
	if err != nil {
		return pricing.Quote{}, err
	}
	if err := contract.Validate(p); err != nil {
		return pricing.Quote{}, err
	}
	return pricing.NewQuote(car, p), nil
}

// OpenPosition buys contracts on carID and persists the result. On any
// error the ledger is unchanged.
func (s *Service) OpenPosition(ctx context.Context, carID string, p model.TradeParameters) (model.Position, error) {
	start := time.Now()

	car, err := s.catalog.Car(carID)
	if err != nil {
		return model.Position{}, err
	}
	if err := contract.Validate(p); err != nil {
		metrics.Rejections.WithLabelValues("invalid").Inc()
		return model.Position{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.limiter.CheckLimit(car, p.Quantity, s.state.Positions, s.brandOf); err != nil {
		metrics.Rejections.WithLabelValues("limit").Inc()
		s.notify(ctx, notification.Error(limitMessage(err)))
		return model.Position{}, err
	}

	next, pos, err := ledger.Open(s.state, car, p, s.now(), s.newID())
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		metrics.Rejections.WithLabelValues("funds").Inc()
		total := pricing.NewQuote(car, p).TotalPremium
		s.notify(ctx, notification.Error(
			fmt.Sprintf("Insufficient funds. You need %s to place this trade.", ledger.FormatMoney(total))))
		return model.Position{}, err
	}
	if err != nil {
		return model.Position{}, err
	}

	if err := s.commit(ctx, next); err != nil {
		s.notify(ctx, notification.Error("Failed to place option trade. Please try again."))
		return model.Position{}, err
	}

	metrics.PositionsOpened.WithLabelValues(string(pos.Type)).Inc()
	metrics.PremiumCollected.WithLabelValues(string(pos.Type)).Add(pos.Premium.InexactFloat64())
	metrics.TradeLatency.WithLabelValues("open").Observe(time.Since(start).Seconds())

	slog.Info("position opened",
		"id", pos.ID,
		"car", car.ID,
		"type", string(pos.Type),
		"expiry_months", p.ExpiryMonths,
		"target_pct", pos.TargetPercentage,
		"qty", pos.Quantity,
		"premium", pos.Premium.String(),
		"cash", next.Stats.CashBalance.String(),
	)

	s.notify(ctx, notification.Success(fmt.Sprintf("Successfully placed %s option on %s!", pos.Type, car.Name)))
	return pos, nil
}

// ClosePosition sells an open position at its current value. The returned
// portfolio is the state right after this close.
func (s *Service) ClosePosition(ctx context.Context, id string) (model.Position, model.Portfolio, error) {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	next, pos, err := ledger.Close(s.state, id)
	if err != nil {
		return model.Position{}, model.Portfolio{}, err
	}

	if err := s.commit(ctx, next); err != nil {
		s.notify(ctx, notification.Error("Failed to close position. Please try again."))
		return model.Position{}, model.Portfolio{}, err
	}

	metrics.PositionsClosed.WithLabelValues(string(pos.Type)).Inc()
	metrics.TradeLatency.WithLabelValues("close").Observe(time.Since(start).Seconds())

	slog.Info("position closed",
		"id", pos.ID,
		"car", pos.CarID,
		"proceeds", pos.CurrentValue.String(),
		"pnl", pos.ProfitLoss().String(),
		"cash", next.Stats.CashBalance.String(),
	)

	name := pos.CarID
	if car, err := s.catalog.Car(pos.CarID); err == nil {
		name = car.Name
	}
	s.notify(ctx, notification.Info(fmt.Sprintf("Closed %s position on %s for %s",
		pos.Type, name, ledger.FormatMoney(pos.CurrentValue))))
	return pos, ledger.Portfolio(next), nil
}

// Portfolio returns the current read model.
func (s *Service) Portfolio() model.Portfolio {
	s.mu.Lock()
	defer s.mu.Unlock()

	return ledger.Portfolio(s.state)
}

// commit persists next and, only if that succeeds, makes it current.
// Callers must hold s.mu.
func (s *Service) commit(ctx context.Context, next ledger.State) error {
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.state = next
	s.observe()
	return nil
}

func (s *Service) persist(ctx context.Context, st ledger.State) error {
	trades, err := ledger.EncodeTrades(st.Positions)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	stats, err := ledger.EncodeStats(st.Stats, st.Positions)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if err := s.store.PutAll(ctx, map[string][]byte{
		ledger.TradesKey: trades,
		ledger.StatsKey:  stats,
	}); err != nil {
		metrics.StoreErrors.Inc()
		slog.Error("ledger write failed", "error", err)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

func (s *Service) observe() {
	metrics.CashBalance.Set(s.state.Stats.CashBalance.InexactFloat64())
	metrics.ActivePositions.Set(float64(s.state.Stats.ActivePositions))
}

func (s *Service) brandOf(carID string) (string, bool) {
	car, err := s.catalog.Car(carID)
	if err != nil {
		return "", false
	}
	return car.Brand, true
}

func (s *Service) notify(ctx context.Context, t notification.Toast) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, t); err != nil {
		slog.Warn("notification failed", "error", err)
	}
}

func limitMessage(err error) string {
	if errors.Is(err, correlation.ErrBrandLimitExceeded) {
		return "Position limit reached for this brand."
	}
	return "Position limit reached for this car."
}
