package points

import "time"

// Snapshot is a point-in-time copy of the mirror with derived values
// computed at read time.
type Snapshot struct {
	PurchasedPoints int64      `json:"purchased_points"`
	FreePoints      int64      `json:"free_points"`
	TotalPoints     int64      `json:"total_points"`
	LastClaimAt     *time.Time `json:"last_claim_at,omitempty"`
	ClaimEligible   bool       `json:"claim_eligible"`
	Loading         bool       `json:"loading"`
}

// Snapshot returns the current mirror.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

// PurchasedPoints returns the mirrored purchased balance.
func (l *Ledger) PurchasedPoints() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.purchased
}

// FreePoints returns the mirrored free balance.
func (l *Ledger) FreePoints() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.free
}

// TotalPoints returns purchased plus free points.
func (l *Ledger) TotalPoints() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.purchased + l.free
}

// LastClaimAt returns the mirrored last-claim time, or nil.
func (l *Ledger) LastClaimAt() *time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return copyTime(l.lastClaimAt)
}

// ClaimEligible reports whether a signed-in user's cooldown has elapsed
// according to the mirror. ClaimDailyPoints re-checks against the store.
func (l *Ledger) ClaimEligible() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.claimEligibleLocked()
}

// Loading reports whether an operation is in its Pending phase.
func (l *Ledger) Loading() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loading
}

// Cooldown returns the configured time between daily claims.
func (l *Ledger) Cooldown() time.Duration { return l.cooldown }

// DailyGrant returns the free points added by one daily claim.
func (l *Ledger) DailyGrant() int64 { return l.dailyGrant }

// NextClaimAt returns when the mirror's cooldown elapses, or nil when no
// claim time is known.
func (l *Ledger) NextClaimAt() *time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.lastClaimAt == nil {
		return nil
	}
	next := l.lastClaimAt.Add(l.cooldown)
	return &next
}

// Subscribe registers fn to receive a Snapshot after every mirror change.
// The returned function removes the subscription.
//
// fn runs synchronously on the goroutine that changed the mirror, usually
// while that goroutine is inside Load, AddPoints, SpendPoints or
// ClaimDailyPoints. It may call the read methods, but calling one of those
// operations from fn deadlocks; start a goroutine for that instead.
func (l *Ledger) Subscribe(fn func(Snapshot)) (cancel func()) {
	l.mu.Lock()
	key := l.nextSub
	l.nextSub++
	l.subs[key] = fn
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.subs, key)
		l.mu.Unlock()
	}
}

func (l *Ledger) snapshotLocked() Snapshot {
	return Snapshot{
		PurchasedPoints: l.purchased,
		FreePoints:      l.free,
		TotalPoints:     l.purchased + l.free,
		LastClaimAt:     copyTime(l.lastClaimAt),
		ClaimEligible:   l.claimEligibleLocked(),
		Loading:         l.loading,
	}
}

func (l *Ledger) claimEligibleLocked() bool {
	if l.lastClaimAt == nil || !l.identity.IsAuthenticated() {
		return false
	}
	return l.clock.Since(*l.lastClaimAt) >= l.cooldown
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
