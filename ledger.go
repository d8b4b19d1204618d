package points

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/xraph/points/account"
	"github.com/xraph/points/id"
	"github.com/xraph/points/identity"
	"github.com/xraph/points/plugin"
	"github.com/xraph/points/status"
	"github.com/xraph/points/store"
)

// Defaults for a new Ledger.
const (
	DefaultCooldown   = 24 * time.Hour
	DefaultDailyGrant = int64(10)
	DefaultStatusKey  = "points"
)

// Operation names used in status, logs and plugin events.
const (
	OpLoad  = "load"
	OpAdd   = "add"
	OpSpend = "spend"
	OpClaim = "claim"
)

// Ledger mirrors one user's points balance and keeps it in step with the
// document store. Mutating operations are serialized per Ledger; reads never
// wait on the store.
type Ledger struct {
	store    store.Store
	identity identity.Provider
	status   status.Sink
	plugins  *plugin.Registry
	logger   *slog.Logger
	clock    clockwork.Clock

	// Configuration
	cooldown   time.Duration
	dailyGrant int64
	statusKey  string
	messages   Messages
	migrate    bool

	// opMu serializes Load/AddPoints/SpendPoints/ClaimDailyPoints.
	// opEpoch is the mirror generation the running operation writes to.
	opMu    sync.Mutex
	opEpoch uint64

	// mu guards the mirror and subscribers. Reset bumps epoch.
	mu          sync.RWMutex
	epoch       uint64
	purchased   int64
	free        int64
	lastClaimAt *time.Time
	loading     bool
	subs        map[int]func(Snapshot)
	nextSub     int
}

// New creates a Ledger backed by s for the user reported by p.
func New(s store.Store, p identity.Provider, opts ...Option) *Ledger {
	l := &Ledger{
		store:      s,
		identity:   p,
		status:     status.Nop{},
		plugins:    plugin.NewRegistry(),
		logger:     slog.Default(),
		clock:      clockwork.NewRealClock(),
		cooldown:   DefaultCooldown,
		dailyGrant: DefaultDailyGrant,
		statusKey:  DefaultStatusKey,
		messages:   DefaultMessages(),
		migrate:    true,
		subs:       make(map[int]func(Snapshot)),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.identity == nil {
		l.identity = identity.Static("")
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithStatusSink sets the UI status collaborator.
func WithStatusSink(s status.Sink) Option {
	return func(l *Ledger) {
		if s != nil {
			l.status = s
		}
	}
}

// WithStatusKey sets the key status signals are reported under.
func WithStatusKey(key string) Option {
	return func(l *Ledger) { l.statusKey = key }
}

// WithMessages sets the user-facing status messages.
func WithMessages(m Messages) Option {
	return func(l *Ledger) { l.messages = m.withDefaults() }
}

// WithCooldown sets the minimum time between daily claims.
func WithCooldown(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.cooldown = d
		}
	}
}

// WithDailyGrant sets the free points added by a daily claim.
func WithDailyGrant(n int64) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.dailyGrant = n
		}
	}
}

// WithClock sets the local clock used for cooldown checks.
func WithClock(c clockwork.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithAutoMigrate controls whether Start runs store migrations.
func WithAutoMigrate(enabled bool) Option {
	return func(l *Ledger) { l.migrate = enabled }
}

// WithHookTimeout bounds each plugin hook call.
func WithHookTimeout(d time.Duration) Option {
	return func(l *Ledger) { l.plugins.WithTimeout(d) }
}

// Start migrates the store unless disabled and initializes plugins. When a
// user is already signed in it also loads their balance.
func (l *Ledger) Start(ctx context.Context) error {
	if l.store == nil {
		return ErrStoreUnavailable
	}
	if l.migrate {
		if err := l.store.Migrate(ctx); err != nil {
			return err
		}
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("points ledger started",
		"cooldown", l.cooldown,
		"daily_grant", l.dailyGrant,
		"status_key", l.statusKey,
	)

	if l.identity.IsAuthenticated() {
		if err := l.Load(ctx); err != nil {
			l.logger.Warn("initial points load failed",
				"user_id", l.identity.UserID(),
				"error", err,
			)
		}
	}

	return nil
}

// Stop shuts down plugins and closes the store.
func (l *Ledger) Stop() error {
	l.plugins.EmitShutdown(context.Background())

	if l.store == nil {
		return nil
	}
	return l.store.Close()
}

// ──────────────────────────────────────────────────
// Operations
// ──────────────────────────────────────────────────

// Load fetches the current user's account and replaces the mirror with it.
// A record without a last-claim timestamp is backfilled with the server
// time in one write.
func (l *Ledger) Load(ctx context.Context) error {
	l.lock()
	defer l.opMu.Unlock()

	userID, err := l.requireUser()
	if err != nil {
		return l.reject(ctx, OpLoad, "", err)
	}
	if err := l.requireStore(ctx); err != nil {
		return l.reject(ctx, OpLoad, userID, err)
	}

	return l.run(ctx, OpLoad, userID, l.messages.Loaded, func(ctx context.Context, evt *plugin.Event) error {
		if err := l.load(ctx, userID); err != nil {
			return err
		}
		l.fillBalances(evt)
		l.plugins.EmitPointsLoaded(ctx, evt)
		return nil
	})
}

// AddPoints increments the purchased balance, or the free balance when
// free is set. The mirror changes only after the store confirms the write.
func (l *Ledger) AddPoints(ctx context.Context, amount int64, free bool) error {
	if amount <= 0 {
		return l.reject(ctx, OpAdd, l.identity.UserID(), invalidAmount(amount))
	}

	l.lock()
	defer l.opMu.Unlock()

	userID, err := l.requireUser()
	if err != nil {
		return l.reject(ctx, OpAdd, "", err)
	}
	if err := l.requireStore(ctx); err != nil {
		return l.reject(ctx, OpAdd, userID, err)
	}

	field := account.FieldPurchasedPoints
	if free {
		field = account.FieldFreePoints
	}

	return l.run(ctx, OpAdd, userID, l.messages.Added, func(ctx context.Context, evt *plugin.Event) error {
		evt.Amount = amount
		if _, err := l.store.Apply(ctx, userID, account.NewMutation().Increment(field, amount)); err != nil {
			return writeFailed(err)
		}

		l.commit(func() {
			if free {
				l.free += amount
			} else {
				l.purchased += amount
			}
		})

		if free {
			evt.FreeDelta = amount
		} else {
			evt.PurchasedDelta = amount
		}
		l.fillBalances(evt)
		l.plugins.EmitPointsAdded(ctx, evt)
		return nil
	})
}

// SpendPoints consumes amount points, free points first. It is a no-op when
// no user is signed in, whatever the amount. If any store write fails the
// mirror is reloaded from the store before the error is returned.
func (l *Ledger) SpendPoints(ctx context.Context, amount int64) error {
	l.lock()
	defer l.opMu.Unlock()

	userID, err := l.requireUser()
	if err != nil {
		return nil
	}
	if amount <= 0 {
		return l.reject(ctx, OpSpend, userID, invalidAmount(amount))
	}

	snap := l.Snapshot()
	if snap.TotalPoints < amount {
		return l.reject(ctx, OpSpend, userID, ErrInsufficientPoints)
	}
	if err := l.requireStore(ctx); err != nil {
		return l.reject(ctx, OpSpend, userID, err)
	}

	fromFree := min(snap.FreePoints, amount)
	fromPurchased := amount - fromFree

	return l.run(ctx, OpSpend, userID, l.messages.Spent, func(ctx context.Context, evt *plugin.Event) error {
		evt.Amount = amount

		err := l.decrement(ctx, userID, account.FieldFreePoints, fromFree, evt)
		if err == nil {
			err = l.decrement(ctx, userID, account.FieldPurchasedPoints, fromPurchased, evt)
		}
		if err != nil {
			if rerr := l.load(ctx, userID); rerr != nil {
				l.logger.Warn("points reconciliation after failed spend did not complete",
					"user_id", userID,
					"error", rerr,
				)
			}
			return writeFailed(err)
		}

		l.fillBalances(evt)
		l.plugins.EmitPointsSpent(ctx, evt)
		return nil
	})
}

// ClaimDailyPoints grants the daily free points. Eligibility is re-checked
// against the store right before the write, and the write itself is
// conditional on the stored claim time still being older than the cooldown,
// so a claim committed elsewhere in between makes this one fail with
// ErrClaimNotAvailable. The grant and the new claim timestamp are committed
// together.
func (l *Ledger) ClaimDailyPoints(ctx context.Context) error {
	l.lock()
	defer l.opMu.Unlock()

	userID, err := l.requireUser()
	if err != nil {
		return l.reject(ctx, OpClaim, "", err)
	}
	if err := l.requireStore(ctx); err != nil {
		return l.reject(ctx, OpClaim, userID, err)
	}

	return l.run(ctx, OpClaim, userID, l.messages.Claimed, func(ctx context.Context, evt *plugin.Event) error {
		evt.Amount = l.dailyGrant

		if !l.checkDaily(ctx, userID) {
			l.plugins.EmitClaimRejected(ctx, userID)
			return ErrClaimNotAvailable
		}

		m := account.NewMutation().
			Increment(account.FieldFreePoints, l.dailyGrant).
			ServerTimestamp(account.FieldLastClaimAt).
			RequireNotAfter(account.FieldLastClaimAt, l.clock.Now().Add(-l.cooldown))
		committed, err := l.store.Apply(ctx, userID, m)
		if errors.Is(err, ErrConditionFailed) {
			l.plugins.EmitClaimRejected(ctx, userID)
			return errors.Join(ErrClaimNotAvailable, err)
		}
		if err != nil {
			return writeFailed(err)
		}

		ts := l.serverTime(committed)
		l.commit(func() {
			l.free += l.dailyGrant
			l.advanceClaim(ts)
		})

		evt.FreeDelta = l.dailyGrant
		l.fillBalances(evt)
		l.plugins.EmitDailyClaimed(ctx, evt)
		return nil
	})
}

// CheckDailyPoints reports whether the store's record allows a claim now.
// It never fails: any read error is logged and reported as false.
func (l *Ledger) CheckDailyPoints(ctx context.Context) bool {
	userID, err := l.requireUser()
	if err != nil || l.store == nil {
		return false
	}
	return l.checkDaily(ctx, userID)
}

// Reset restores the zero mirror, as on sign-out. The store is untouched.
// Results of operations still in flight are discarded rather than mirrored.
func (l *Ledger) Reset() {
	l.update(func() {
		l.epoch++
		l.purchased = 0
		l.free = 0
		l.lastClaimAt = nil
	})
}

// Follow keeps the mirror in step with s, which should be the ledger's own
// identity provider. A sign-in replaces the mirror with the new user's
// balance; a sign-out resets it.
func (l *Ledger) Follow(ctx context.Context, s *identity.Session) {
	s.OnChange(func(userID string) {
		l.Reset()
		if userID == "" {
			return
		}
		if err := l.Load(ctx); err != nil {
			l.logger.Warn("points load after sign-in failed",
				"user_id", userID,
				"error", err,
			)
		}
	})
}

// ──────────────────────────────────────────────────
// Internals
// ──────────────────────────────────────────────────

// run wraps an operation body in the Pending phase: the loading flag is set
// for its duration and cleared on every exit path.
func (l *Ledger) run(
	ctx context.Context,
	op, userID, successMsg string,
	body func(ctx context.Context, evt *plugin.Event) error,
) error {
	evt := &plugin.Event{
		OperationID: id.NewOperationID().String(),
		Operation:   op,
		UserID:      userID,
	}
	start := l.clock.Now()

	l.setLoading(true)
	defer l.setLoading(false)

	err := body(ctx, evt)
	evt.Elapsed = l.clock.Since(start)

	if err != nil {
		l.status.SetError(l.statusKey, l.messages.For(err))
		l.fillBalances(evt)
		l.plugins.EmitOperationFailed(ctx, evt, err)
		l.logger.Warn("points operation failed",
			"op", op,
			"operation_id", evt.OperationID,
			"user_id", userID,
			"error", err,
		)
		return err
	}

	l.status.SetSuccess(l.statusKey, successMsg)
	l.logger.Debug("points operation completed",
		"op", op,
		"operation_id", evt.OperationID,
		"user_id", userID,
		"elapsed_ms", evt.Elapsed.Milliseconds(),
	)
	return nil
}

// reject reports a failed precondition. No store call was made, so the
// loading flag is never raised.
func (l *Ledger) reject(ctx context.Context, op, userID string, err error) error {
	l.status.SetError(l.statusKey, l.messages.For(err))
	evt := &plugin.Event{
		OperationID: id.NewOperationID().String(),
		Operation:   op,
		UserID:      userID,
	}
	l.fillBalances(evt)
	l.plugins.EmitOperationFailed(ctx, evt, err)
	return err
}

// load reads the account and replaces the mirror. Callers hold opMu.
func (l *Ledger) load(ctx context.Context, userID string) error {
	acct, err := l.store.GetAccount(ctx, userID)
	if err != nil {
		return readFailed(err)
	}

	mirrored := l.commit(func() {
		l.purchased = acct.PurchasedPoints
		l.free = acct.FreePoints
		l.lastClaimAt = nil
		if acct.HasClaimed() {
			ts := *acct.LastClaimAt
			l.lastClaimAt = &ts
		}
	})
	if !mirrored {
		l.logger.Debug("points load discarded after reset", "user_id", userID)
		return nil
	}

	if acct.HasClaimed() {
		return nil
	}

	committed, err := l.store.Apply(ctx, userID, account.NewMutation().ServerTimestamp(account.FieldLastClaimAt))
	if err != nil {
		return writeFailed(err)
	}

	ts := l.serverTime(committed)
	l.commit(func() { l.advanceClaim(ts) })
	return nil
}

// decrement removes n from field and mirrors the confirmed change.
func (l *Ledger) decrement(ctx context.Context, userID string, field account.Field, n int64, evt *plugin.Event) error {
	if n <= 0 {
		return nil
	}
	if _, err := l.store.Apply(ctx, userID, account.NewMutation().Increment(field, -n)); err != nil {
		return err
	}

	l.commit(func() {
		if field == account.FieldFreePoints {
			l.free -= n
		} else {
			l.purchased -= n
		}
	})

	if field == account.FieldFreePoints {
		evt.FreeDelta = -n
	} else {
		evt.PurchasedDelta = -n
	}
	return nil
}

func (l *Ledger) checkDaily(ctx context.Context, userID string) bool {
	acct, err := l.store.GetAccount(ctx, userID)
	if err != nil {
		l.logger.Warn("checking daily points failed",
			"user_id", userID,
			"error", err,
		)
		return false
	}

	// A record that has never been stamped counts as claimable.
	var last time.Time
	if acct.HasClaimed() {
		last = *acct.LastClaimAt
	}
	return l.clock.Since(last) >= l.cooldown
}

func (l *Ledger) requireUser() (string, error) {
	if !l.identity.IsAuthenticated() {
		return "", ErrNotAuthenticated
	}
	userID := l.identity.UserID()
	if userID == "" {
		return "", ErrNotAuthenticated
	}
	return userID, nil
}

func (l *Ledger) requireStore(ctx context.Context) error {
	if l.store == nil {
		return ErrStoreUnavailable
	}
	if err := l.store.Ping(ctx); err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return err
		}
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

// serverTime picks the authoritative claim timestamp out of a committed
// record, falling back to the local clock when the store returned none.
func (l *Ledger) serverTime(committed *account.Account) time.Time {
	if committed != nil && committed.HasClaimed() {
		return *committed.LastClaimAt
	}
	return l.clock.Now()
}

// advanceClaim moves lastClaimAt forward, never back. Callers hold mu.
func (l *Ledger) advanceClaim(ts time.Time) {
	if l.lastClaimAt != nil && !ts.After(*l.lastClaimAt) {
		return
	}
	l.lastClaimAt = &ts
}

// lock takes opMu and pins the mirror generation the operation may write.
// It runs before the identity check so a sign-out racing the operation is
// either seen by requireUser or caught by commit.
func (l *Ledger) lock() {
	l.opMu.Lock()
	l.mu.RLock()
	l.opEpoch = l.epoch
	l.mu.RUnlock()
}

func (l *Ledger) setLoading(v bool) {
	l.update(func() { l.loading = v })
	l.status.SetLoading(l.statusKey, v)
}

// update applies fn to the mirror under mu and then notifies subscribers.
func (l *Ledger) update(fn func()) {
	l.mu.Lock()
	fn()
	l.notifyUnlock()
}

// commit is update for operation results: fn is dropped if the mirror was
// reset since the running operation took opMu. Callers hold opMu.
func (l *Ledger) commit(fn func()) bool {
	l.mu.Lock()
	if l.epoch != l.opEpoch {
		l.mu.Unlock()
		return false
	}
	fn()
	l.notifyUnlock()
	return true
}

// notifyUnlock releases mu and sends the current snapshot to subscribers.
func (l *Ledger) notifyUnlock() {
	snap := l.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(l.subs))
	for _, s := range l.subs {
		subs = append(subs, s)
	}
	l.mu.Unlock()

	for _, s := range subs {
		s(snap)
	}
}

func (l *Ledger) fillBalances(evt *plugin.Event) {
	snap := l.Snapshot()
	evt.FreePoints = snap.FreePoints
	evt.PurchasedPoints = snap.PurchasedPoints
	evt.LastClaimAt = snap.LastClaimAt
}

func invalidAmount(amount int64) error {
	return ValidationError{
		Field:   "amount",
		Message: "must be positive, got " + strconv.FormatInt(amount, 10),
		Err:     ErrInvalidAmount,
	}
}
