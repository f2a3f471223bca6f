// Package balance implements the read-through balance cache that sits in
// front of the transaction store. It serves per-user transaction lists and
// balance summaries from memory while they are fresh, falls through to the
// store on a miss, and keeps entries consistent with writes by patching
// them incrementally.
package balance

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"fintrack/internal/core"
)

// DefaultTTL is the freshness window applied when no duration is configured.
const DefaultTTL = 10 * time.Minute

// Store is the persistence contract the cache reads through to. List
// results must be ordered by date descending (newest first, ties broken by
// id descending).
type Store interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64, userID string) (core.Transaction, error)
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	SumAmounts(ctx context.Context, userID string, t core.TransactionType) (int64, error)
}

// Revalidator receives a signal after every successful write so externally
// cached rendered output for the user can be recomputed.
type Revalidator interface {
	Revalidate(ctx context.Context, userID string)
}

// RevalidateFunc adapts a plain function to the Revalidator interface.
type RevalidateFunc func(ctx context.Context, userID string)

func (f RevalidateFunc) Revalidate(ctx context.Context, userID string) { f(ctx, userID) }

// entry is one user's cached snapshot. transactions is nil when only the
// balance has been populated; slices are replaced wholesale, never mutated
// in place, so a returned snapshot stays stable.
type entry struct {
	transactions []core.Transaction
	balance      core.BalanceSummary
	hasBalance   bool
	fetchedAt    time.Time
}

// Cache is the per-user balance cache. All map access is serialized by mu;
// store calls run outside the lock and concurrent misses for the same user
// collapse into a single fetch.
type Cache struct {
	store      Store
	revalidate Revalidator
	ttl        time.Duration
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	// gen is bumped on every write or clear for a user. A read-through
	// fetch records the generation before calling the store and only
	// installs its result if no write landed in between.
	gen map[string]uint64

	group singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithRevalidator sets the hook signalled after successful writes.
func WithRevalidator(r Revalidator) Option {
	return func(c *Cache) { c.revalidate = r }
}

// New creates a cache over the given store. A non-positive ttl falls back
// to DefaultTTL.
func New(store Store, ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		store:   store,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*entry),
		gen:     make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) fresh(e *entry) bool {
	return c.now().Sub(e.fetchedAt) <= c.ttl
}

// GetTransactions returns the user's transactions ordered by date
// descending. Fresh entries are served from memory; otherwise the store is
// consulted and the entry repopulated. A store failure is logged and the
// last-known-good snapshot is served if one exists, an empty list if not.
func (c *Cache) GetTransactions(ctx context.Context, userID string) []core.Transaction {
	c.mu.Lock()
	if e, ok := c.entries[userID]; ok && e.transactions != nil && c.fresh(e) {
		txs := e.transactions
		c.mu.Unlock()
		c.hits.Add(1)
		return txs
	}
	g := c.gen[userID]
	c.mu.Unlock()
	c.misses.Add(1)

	v, err, _ := c.group.Do("tx:"+userID, func() (any, error) {
		txs, err := c.store.ListTransactions(ctx, userID)
		if err != nil {
			return nil, err
		}
		if txs == nil {
			txs = []core.Transaction{}
		}
		c.install(userID, g, func(e *entry) {
			e.transactions = txs
			e.hasBalance = false
		})
		return txs, nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "Transaction fetch failed, serving last known snapshot",
			"user_id", userID, "error", err)
		c.mu.Lock()
		defer c.mu.Unlock()
		if e, ok := c.entries[userID]; ok && e.transactions != nil {
			return e.transactions
		}
		return []core.Transaction{}
	}
	return v.([]core.Transaction)
}

// GetBalanceSummary returns the user's balance. A fresh cached balance is
// served directly; fresh cached transactions are summed without a store
// round trip; otherwise two aggregate queries populate the entry. Store
// failures degrade to the last-known-good balance, or a zeroed summary.
func (c *Cache) GetBalanceSummary(ctx context.Context, userID string) core.BalanceSummary {
	c.mu.Lock()
	if e, ok := c.entries[userID]; ok && c.fresh(e) {
		if e.hasBalance {
			bal := e.balance
			c.mu.Unlock()
			c.hits.Add(1)
			return bal
		}
		if e.transactions != nil {
			bal := core.Summarize(e.transactions)
			e.balance = bal
			e.hasBalance = true
			e.fetchedAt = c.now()
			c.mu.Unlock()
			c.hits.Add(1)
			return bal
		}
	}
	g := c.gen[userID]
	c.mu.Unlock()
	c.misses.Add(1)

	v, err, _ := c.group.Do("bal:"+userID, func() (any, error) {
		income, err := c.store.SumAmounts(ctx, userID, core.Income)
		if err != nil {
			return nil, err
		}
		expense, err := c.store.SumAmounts(ctx, userID, core.Expense)
		if err != nil {
			return nil, err
		}
		bal := core.BalanceSummary{
			TotalBalance: core.Money{Cents: income - expense},
			TotalIncome:  core.Money{Cents: income},
			TotalExpense: core.Money{Cents: expense},
		}
		c.install(userID, g, func(e *entry) {
			// Any stale transaction list must not ride along on the new
			// timestamp, or it would look fresh without having been fetched.
			e.transactions = nil
			e.balance = bal
			e.hasBalance = true
		})
		return bal, nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "Balance fetch failed, serving last known summary",
			"user_id", userID, "error", err)
		c.mu.Lock()
		defer c.mu.Unlock()
		if e, ok := c.entries[userID]; ok && e.hasBalance {
			return e.balance
		}
		return core.BalanceSummary{}
	}
	return v.(core.BalanceSummary)
}

// forget drops any in-flight fetches for the user. Called on every write
// and clear so that a reader arriving afterwards starts a fresh flight
// instead of joining one whose store read predates the write.
func (c *Cache) forget(userID string) {
	c.group.Forget("tx:" + userID)
	c.group.Forget("bal:" + userID)
}

// install replaces the user's entry with a freshly fetched snapshot unless
// a write landed while the fetch was in flight.
func (c *Cache) install(userID string, g uint64, fill func(*entry)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen[userID] != g {
		return
	}
	e := &entry{fetchedAt: c.now()}
	fill(e)
	c.entries[userID] = e
}

// AddTransaction creates the transaction at the store and splices it into
// the user's cache entry. The cache is untouched when the store rejects
// the write.
func (c *Cache) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	created, err := c.store.CreateTransaction(ctx, t)
	if err != nil {
		slog.ErrorContext(ctx, "Add transaction failed",
			"user_id", t.UserID, "error", err)
		return core.Transaction{}, err
	}

	c.mu.Lock()
	c.gen[created.UserID]++
	c.forget(created.UserID)
	if e, ok := c.entries[created.UserID]; ok {
		if e.transactions != nil {
			e.transactions = spliceIn(e.transactions, created)
		}
		if e.hasBalance {
			e.balance = applyDelta(e.balance, created, +1)
		}
		e.fetchedAt = c.now()
	}
	c.mu.Unlock()

	c.signal(ctx, created.UserID)
	return created, nil
}

// UpdateTransaction updates the row at the store and patches the cache
// entry in place, reversing the prior amount's contribution before
// applying the new one.
func (c *Cache) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	updated, err := c.store.UpdateTransaction(ctx, t)
	if err != nil {
		slog.ErrorContext(ctx, "Update transaction failed",
			"transaction_id", t.ID, "user_id", t.UserID, "error", err)
		return core.Transaction{}, err
	}

	c.mu.Lock()
	c.gen[updated.UserID]++
	c.forget(updated.UserID)
	if e, ok := c.entries[updated.UserID]; ok {
		prev, found := findByID(e.transactions, updated.ID)
		if !found {
			// The prior contribution is unknown to this snapshot; drop the
			// entry rather than patch blindly.
			delete(c.entries, updated.UserID)
		} else {
			e.transactions = spliceIn(spliceOut(e.transactions, updated.ID), updated)
			if e.hasBalance {
				e.balance = applyDelta(e.balance, prev, -1)
				e.balance = applyDelta(e.balance, updated, +1)
			}
			e.fetchedAt = c.now()
		}
	}
	c.mu.Unlock()

	c.signal(ctx, updated.UserID)
	return updated, nil
}

// DeleteTransaction removes the row at the store and reverses its
// contribution in the cache entry.
func (c *Cache) DeleteTransaction(ctx context.Context, id int64, userID string) (core.Transaction, error) {
	deleted, err := c.store.DeleteTransaction(ctx, id, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Delete transaction failed",
			"transaction_id", id, "user_id", userID, "error", err)
		return core.Transaction{}, err
	}

	c.mu.Lock()
	c.gen[userID]++
	c.forget(userID)
	if e, ok := c.entries[userID]; ok {
		if _, found := findByID(e.transactions, deleted.ID); e.transactions != nil && !found {
			delete(c.entries, userID)
		} else {
			if e.transactions != nil {
				e.transactions = spliceOut(e.transactions, deleted.ID)
			}
			if e.hasBalance {
				e.balance = applyDelta(e.balance, deleted, -1)
			}
			e.fetchedAt = c.now()
		}
	}
	c.mu.Unlock()

	c.signal(ctx, userID)
	return deleted, nil
}

// ClearUser drops one user's entry. Clearing an absent entry is a no-op.
func (c *Cache) ClearUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	c.gen[userID]++
	c.forget(userID)
}

// Clear drops every entry. Used on logout-all and for test isolation.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for userID := range c.entries {
		delete(c.entries, userID)
		c.gen[userID]++
		c.forget(userID)
	}
}

// Size returns the current number of cached entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cumulative hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) signal(ctx context.Context, userID string) {
	if c.revalidate != nil {
		c.revalidate.Revalidate(ctx, userID)
	}
}

// spliceIn inserts t into a date-descending list, building a new slice.
// On equal dates the new row goes first, matching store ordering where the
// higher (newer) id wins.
func spliceIn(txs []core.Transaction, t core.Transaction) []core.Transaction {
	i := 0
	for i < len(txs) && txs[i].Date.After(t.Date) {
		i++
	}
	out := make([]core.Transaction, 0, len(txs)+1)
	out = append(out, txs[:i]...)
	out = append(out, t)
	return append(out, txs[i:]...)
}

// spliceOut removes the row with the given id, building a new slice.
func spliceOut(txs []core.Transaction, id int64) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

func findByID(txs []core.Transaction, id int64) (core.Transaction, bool) {
	for _, t := range txs {
		if t.ID == id {
			return t, true
		}
	}
	return core.Transaction{}, false
}

// applyDelta adds (sign=+1) or reverses (sign=-1) one transaction's
// contribution to a balance summary.
func applyDelta(b core.BalanceSummary, t core.Transaction, sign int64) core.BalanceSummary {
	amount := t.Amount.Cents * sign
	if t.Type == core.Income {
		b.TotalIncome.Cents += amount
		b.TotalBalance.Cents += amount
	} else {
		b.TotalExpense.Cents += amount
		b.TotalBalance.Cents -= amount
	}
	return b
}
