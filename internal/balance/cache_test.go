package balance

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
)

var errNotFound = errors.New("transaction not found")

// fakeStore is an in-memory Store that counts calls and can be forced to
// fail reads or writes.
type fakeStore struct {
	mu     sync.Mutex
	txs    map[int64]core.Transaction
	nextID int64

	listCalls   int
	sumCalls    int
	createCalls int

	failReads  bool
	failWrites bool

	// onList and onSum run inside the read methods, after the snapshot is
	// taken and the lock is released.
	onList func()
	onSum  func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{txs: make(map[int64]core.Transaction)}
}

func (s *fakeStore) seed(t core.Transaction) core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	s.txs[t.ID] = t
	return t
}

func (s *fakeStore) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.failWrites {
		return core.Transaction{}, errors.New("store down")
	}
	s.nextID++
	t.ID = s.nextID
	s.txs[t.ID] = t
	return t, nil
}

func (s *fakeStore) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return core.Transaction{}, errors.New("store down")
	}
	existing, ok := s.txs[t.ID]
	if !ok || existing.UserID != t.UserID {
		return core.Transaction{}, errNotFound
	}
	s.txs[t.ID] = t
	return t, nil
}

func (s *fakeStore) DeleteTransaction(_ context.Context, id int64, userID string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return core.Transaction{}, errors.New("store down")
	}
	existing, ok := s.txs[id]
	if !ok || existing.UserID != userID {
		return core.Transaction{}, errNotFound
	}
	delete(s.txs, id)
	return existing, nil
}

func (s *fakeStore) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.Lock()
	s.listCalls++
	if s.failReads {
		s.mu.Unlock()
		return nil, errors.New("store down")
	}
	out := []core.Transaction{}
	for _, t := range s.txs {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	hook := s.onList
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	if hook != nil {
		hook()
	}
	return out, nil
}

func (s *fakeStore) SumAmounts(_ context.Context, userID string, typ core.TransactionType) (int64, error) {
	s.mu.Lock()
	s.sumCalls++
	if s.failReads {
		s.mu.Unlock()
		return 0, errors.New("store down")
	}
	var total int64
	for _, t := range s.txs {
		if t.UserID == userID && t.Type == typ {
			total += t.Amount.Cents
		}
	}
	hook := s.onSum
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return total, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func tx(userID string, typ core.TransactionType, category string, cents int64, date string) core.Transaction {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{
		Type:     typ,
		Category: category,
		Amount:   core.Money{Cents: cents},
		Date:     d,
		UserID:   userID,
	}
}

func newTestCache(store Store, ttl time.Duration, clock *fakeClock, opts ...Option) *Cache {
	return New(store, ttl, append([]Option{WithClock(clock.Now)}, opts...)...)
}

func TestGetTransactionsServesFromCacheWithinTTL(t *testing.T) {
	store := newFakeStore()
	store.seed(tx("alice", core.Income, "Salary", 100000, "2025-05-01"))
	clock := newFakeClock()
	cache := newTestCache(store, 10*time.Minute, clock)

	first := cache.GetTransactions(context.Background(), "alice")
	if len(first) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(first))
	}
	if store.listCalls != 1 {
		t.Fatalf("expected 1 list call, got %d", store.listCalls)
	}

	clock.Advance(5 * time.Minute)
	second := cache.GetTransactions(context.Background(), "alice")
	if store.listCalls != 1 {
		t.Fatalf("expected cached read, got %d list calls", store.listCalls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("cached read returned different data")
	}
}

func TestTTLBoundary(t *testing.T) {
	store := newFakeStore()
	store.seed(tx("alice", core.Income, "Salary", 100000, "2025-05-01"))
	clock := newFakeClock()
	ttl := 10 * time.Minute
	cache := newTestCache(store, ttl, clock)

	cache.GetTransactions(context.Background(), "alice")

	// Exactly at the TTL the entry is still fresh.
	clock.Advance(ttl)
	cache.GetTransactions(context.Background(), "alice")
	if store.listCalls != 1 {
		t.Fatalf("entry at exactly ttl should be fresh, got %d list calls", store.listCalls)
	}

	// One tick past the TTL it is stale.
	clock.Advance(time.Nanosecond)
	cache.GetTransactions(context.Background(), "alice")
	if store.listCalls != 2 {
		t.Fatalf("entry past ttl should refetch, got %d list calls", store.listCalls)
	}
}

func TestBalanceDerivedFromCachedTransactions(t *testing.T) {
	store := newFakeStore()
	store.seed(tx("alice", core.Income, "Salary", 100000, "2025-05-01"))
	store.seed(tx("alice", core.Expense, "Rent", 30000, "2025-05-02"))
	clock := newFakeClock()
	cache := newTestCache(store, 10*time.Minute, clock)

	cache.GetTransactions(context.Background(), "alice")
	bal := cache.GetBalanceSummary(context.Background(), "alice")

	if store.sumCalls != 0 {
		t.Fatalf("balance should derive from cached list, got %d sum calls", store.sumCalls)
	}
	want := core.BalanceSummary{
		TotalBalance: core.Money{Cents: 70000},
		TotalIncome:  core.Money{Cents: 100000},
		TotalExpense: core.Money{Cents: 30000},
	}
	if bal != want {
		t.Fatalf("balance = %+v, want %+v", bal, want)
	}
	if bal.TotalBalance.Cents != bal.TotalIncome.Cents-bal.TotalExpense.Cents {
		t.Fatal("balance does not reconcile with income and expense")
	}
}

func TestBalanceFetchedOnFullMiss(t *testing.T) {
	store := newFakeStore()
	store.seed(tx("alice", core.Income, "Salary", 50000, "2025-05-01"))
	clock := newFakeClock()
	cache := newTestCache(store, 10*time.Minute, clock)

	bal := cache.GetBalanceSummary(context.Background(), "alice")
	if store.sumCalls != 2 {
		t.Fatalf("expected 2 sum calls on full miss, got %d", store.sumCalls)
	}
	if bal.TotalIncome.Cents != 50000 || bal.TotalBalance.Cents != 50000 {
		t.Fatalf("unexpected balance %+v", bal)
	}

	// The cached balance serves follow-up reads.
	cache.GetBalanceSummary(context.Background(), "alice")
	if store.sumCalls != 2 {
		t.Fatalf("expected cached balance read, got %d sum calls", store.sumCalls)
	}

	// A balance-only entry must not satisfy a transaction read.
	cache.GetTransactions(context.Background(), "alice")
	if store.listCalls != 1 {
		t.Fatalf("transaction read should hit the store, got %d list calls", store.listCalls)
	}
}

func TestAddTransactionVisibleImmediately(t *testing.T) {
	store := newFakeStore()
	store.seed(tx("alice", core.Income, "Salary", 100000, "2025-05-01"))
	clock := newFakeClock()
	cache := newTestCache(store, 10*time.Minute, clock)

	cache.GetTransactions(context.Background(), "alice")
	cache.GetBalanceSummary(context.Background(), "alice")
	listCallsBefore := store.listCalls

	created, err := cache.AddTransaction(context.Background(),
		tx("alice", core.Expense, "Groceries", 4500, "2025-05-10"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	txs := cache.GetTransactions(context.Background(), "alice")
	if store.listCalls != listCallsBefore {
		t.Fatalf("read after write should be served from patched cache, got %d extra list calls",
			store.listCalls-listCallsBefore)
	}
	if len(txs) != 2 || txs[0].ID != created.ID {
		t.Fatalf("new transaction not at head of list: %+v", txs)
	}

	bal := cache.GetBalanceSummary(context.Background(), "alice")
	if bal.TotalBalance.Cents != 95500 || bal.TotalExpense.Cents != 4500 {
		t.Fatalf("balance not patched: %+v", bal)
	}
}

func TestUpdateTransactionPatchesCache(t *testing.T) {
	store := newFakeStore()
	seeded := store.seed(tx("alice", core.Expense, "Rent", 30000, "2025-05-01"))
	store.seed(tx("alice", core.Income, "Salary", 100000, "2025-05-02"))
	clock := newFakeClock()
	cache := newTestCache(store, 10*time.Minute, clock)

	cache.GetTransactions(context.Background(), "alice")
	cache.GetBalanceSummary(context.Background(), "alice")

	changed := seeded
	changed.Amount = core.Money{Cents: 35000}
	if _, err := cache.UpdateTransaction(context.Background(), changed); err != nil {
		t.Fatalf("update: %v", err)
	}

	bal := cache.GetBalanceSummary(context.Background(), "alice")
	if bal.TotalExpense.Cents != 35000 || bal.TotalBalance.Cents != 65000 {
		t.Fatalf("balance not repatched: %+v", bal)
	}

	txs := cache.GetTransactions(context.Background(), "alice")
	for _, got := range txs {
		if got.ID == seeded.ID && got.Amount.Cents != 35000 {
			t.Fatalf("list still carries the old amount: %+v", got)
		}
	}
	if store.listCalls != 1 {
		t.Fatalf("reads after update should stay cached, got %d list calls", store.listCalls)
	}
}

func TestDeleteTransactionPatchesCache(t *testing.T) {
	store := newFakeStore()
	store.seed(tx("alice", core.Income, "Salary", 100000, "2025-05-01"))
	victim := store.seed(tx("alice", core.Expense, "Rent", 30000, "2025-05-02"))
	clock := newFakeClock()
	cache := newTestCache(store, 10*time.Minute, clock)

	cache.GetTransactions(context.Background(), "alice")
	cache.GetBalanceSummary(context.Background(), "alice")

	if _, err := cache.DeleteTransaction(context.Background(), victim.ID, "alice"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	txs := cache.GetTransactions(context.Background(), "alice")
	if len(txs) != 1 || txs[0].ID == victim.ID {
		t.Fatalf("deleted row still cached: %+v", txs)
	}
	bal := cache.GetBalanceSummary(context.Background(), "alice")
	if bal.TotalExpense.Cents != 0 || bal.TotalBalance.Cents != 100000 {
		t.Fatalf("balance not repatched after delete: %+v", bal)
	}
	if store.listCalls != 1 {
		t.Fatalf("reads after delete should stay cached, got %d list calls", store.listCalls)
	}
}

func TestFuelExpenseScenario(t *testing.T) {
	store := newFakeStore()
	store.seed(tx("alice", core.Income, "Salary", 100000, "2025-05-01"))
	store.seed(tx("alice", core.Expense, "Rent", 30000, "2025-05-02"))
	clock := newFakeClock()
	cache := newTestCache(store, 10*time.Minute, clock)

	before := cache.GetBalanceSummary(context.Background(), "alice")
	want := core.BalanceSummary{
		TotalBalance: core.Money{Cents: 70000},
		TotalIncome:  core.Money{Cents: 100000},
		TotalExpense: core.Money{Cents: 30000},
	}
	if before != want {
		t.Fatalf("starting balance = %+v, want %+v", before, want)
	}
	cache.GetTransactions(context.Background(), "alice")

	fuel, err := cache.AddTransaction(context.Background(),
		tx("alice", core.Expense, "Fuel", 50000, "2025-05-20"))
	if err != nil {
		t.Fatalf("add fuel expense: %v", err)
	}

	after := cache.GetBalanceSummary(context.Background(), "alice")
	want = core.BalanceSummary{
		TotalBalance: core.Money{Cents: 20000},
		TotalIncome:  core.Money{Cents: 100000},
		TotalExpense: core.Money{Cents: 80000},
	}
	if after != want {
		t.Fatalf("balance after fuel expense = %+v, want %+v", after, want)
	}

	txs := cache.GetTransactions(context.Background(), "alice")
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}
	if txs[0].ID != fuel.ID || txs[0].Category != "Fuel" {
		t.Fatalf("fuel expense not at head of list: %+v", txs[0])
	}
}

func TestUpdateNotFoundLeavesCacheUntouched(t *testing.T) {
	store := newFakeStore()
	store.seed(tx("alice", core.Income, "Salary", 100000, "2025-05-01"))
	clock := newFakeClock()
	cache := newTestCache(store, 10*time.Minute, clock)

	beforeTxs := cache.GetTransactions(context.Background(), "alice")
	beforeBal := cache.GetBalanceSummary(context.Background(), "alice")

	ghost := tx("alice", core.Expense, "Rent", 5000, "2025-05-03")
	ghost.ID = 999
	if _, err := cache.UpdateTransaction(context.Background(), ghost); err == nil {
		t.Fatal("expected update of unknown id to fail")
	}

	afterTxs := cache.GetTransactions(context.Background(), "alice")
	afterBal := cache.GetBalanceSummary(context.Background(), "alice")
	if !reflect.DeepEqual(beforeTxs, afterTxs) {
		t.Fatal("failed update changed the cached transaction list")
	}
	if beforeBal != afterBal {
		t.Fatal("failed update changed the cached balance")
	}
	if store.listCalls != 1 || store.sumCalls != 0 {
		t.Fatalf("failed update invalidated the cache: list=%d sum=%d", store.listCalls, store.sumCalls)
	}
}

func TestPerUserIsolation(t *testing.T) {
	store := newFakeStore()
	store.seed(tx("alice", core.Income, "Salary", 100000, "2025-05-01"))
	store.seed(tx("bob", core.Income, "Salary", 200000, "2025-05-01"))
	clock := newFakeClock()
	cache := newTestCache(store, 10*time.Minute, clock)

	cache.GetTransactions(context.Background(), "alice")
	cache.GetTransactions(context.Background(), "bob")
	listCallsBefore := store.listCalls

	if _, err := cache.AddTransaction(context.Background(),
		tx("alice", core.Expense, "Rent", 10000, "2025-05-05")); err != nil {
		t.Fatalf("add: %v", err)
	}

	bobTxs := cache.GetTransactions(context.Background(), "bob")
	if store.listCalls != listCallsBefore {
		t.Fatalf("write for alice invalidated bob's entry")
	}
	if len(bobTxs) != 1 || bobTxs[0].UserID != "bob" {
		t.Fatalf("bob's snapshot corrupted: %+v", bobTxs)
	}

	cache.ClearUser("alice")
	cache.GetTransactions(context.Background(), "bob")
	if store.listCalls != listCallsBefore {
		t.Fatal("clearing alice evicted bob's entry")
	}
}

func TestClearIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.seed(tx("alice", core.Income, "Salary", 100000, "2025-05-01"))
	clock := newFakeClock()
	cache := newTestCache(store, 10*time.Minute, clock)

	cache.GetTransactions(context.Background(), "alice")
	if cache.Size() != 1 {
		t.Fatalf("expected 1 entry, got %d", cache.Size())
	}

	cache.ClearUser("alice")
	cache.ClearUser("alice")
	cache.ClearUser("nobody")
	if cache.Size() != 0 {
		t.Fatalf("expected empty cache, got %d entries", cache.Size())
	}

	cache.Clear()
	cache.Clear()
	if cache.Size() != 0 {
		t.Fatalf("expected empty cache, got %d entries", cache.Size())
	}

	cache.GetTransactions(context.Background(), "alice")
	if store.listCalls != 2 {
		t.Fatalf("read after clear should refetch, got %d list calls", store.listCalls)
	}
}

func TestReadFailureServesLastKnownGood(t *testing.T) {
	store := newFakeStore()
	store.seed(tx("alice", core.Income, "Salary", 100000, "2025-05-01"))
	clock := newFakeClock()
	cache := newTestCache(store, 10*time.Minute, clock)

	good := cache.GetTransactions(context.Background(), "alice")
	goodBal := cache.GetBalanceSummary(context.Background(), "alice")

	clock.Advance(11 * time.Minute)
	store.failReads = true

	degraded := cache.GetTransactions(context.Background(), "alice")
	if !reflect.DeepEqual(good, degraded) {
		t.Fatal("store failure did not fall back to the last known snapshot")
	}
	if bal := cache.GetBalanceSummary(context.Background(), "alice"); bal != goodBal {
		t.Fatalf("store failure did not fall back to the last known balance: %+v", bal)
	}
}

func TestReadFailureWithoutSnapshotDegradesToEmpty(t *testing.T) {
	store := newFakeStore()
	store.failReads = true
	clock := newFakeClock()
	cache := newTestCache(store, 10*time.Minute, clock)

	txs := cache.GetTransactions(context.Background(), "alice")
	if txs == nil || len(txs) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", txs)
	}
	if bal := cache.GetBalanceSummary(context.Background(), "alice"); bal != (core.BalanceSummary{}) {
		t.Fatalf("expected zeroed balance, got %+v", bal)
	}
}

func TestWriteFailureLeavesCacheUntouched(t *testing.T) {
	store := newFakeStore()
	store.seed(tx("alice", core.Income, "Salary", 100000, "2025-05-01"))
	clock := newFakeClock()
	cache := newTestCache(store, 10*time.Minute, clock)

	before := cache.GetTransactions(context.Background(), "alice")
	store.failWrites = true

	if _, err := cache.AddTransaction(context.Background(),
		tx("alice", core.Expense, "Rent", 5000, "2025-05-02")); err == nil {
		t.Fatal("expected write failure")
	}

	after := cache.GetTransactions(context.Background(), "alice")
	if !reflect.DeepEqual(before, after) {
		t.Fatal("failed write changed the cached snapshot")
	}
	if store.listCalls != 1 {
		t.Fatalf("failed write invalidated the entry, got %d list calls", store.listCalls)
	}
}

func TestWriteDuringFetchIsNotOverwritten(t *testing.T) {
	store := newFakeStore()
	store.seed(tx("alice", core.Income, "Salary", 100000, "2025-05-01"))
	clock := newFakeClock()
	cache := newTestCache(store, 10*time.Minute, clock)

	// While the first fetch is in flight a write lands. The fetched (older)
	// snapshot must not be installed over it.
	store.onList = func() {
		store.onList = nil
		if _, err := cache.AddTransaction(context.Background(),
			tx("alice", core.Expense, "Rent", 5000, "2025-05-02")); err != nil {
			t.Errorf("add during fetch: %v", err)
		}
	}

	cache.GetTransactions(context.Background(), "alice")

	txs := cache.GetTransactions(context.Background(), "alice")
	if len(txs) != 2 {
		t.Fatalf("stale fetch shadowed a concurrent write: %+v", txs)
	}
}

func TestReadBegunAfterWriteDoesNotJoinStaleFlight(t *testing.T) {
	store := newFakeStore()
	store.seed(tx("alice", core.Income, "Salary", 100000, "2025-05-01"))
	clock := newFakeClock()
	cache := newTestCache(store, 10*time.Minute, clock)

	// The first fetch snapshots the list and then blocks, simulating a slow
	// store read.
	fetchStarted := make(chan struct{})
	releaseFetch := make(chan struct{})
	store.onList = func() {
		store.mu.Lock()
		store.onList = nil
		store.mu.Unlock()
		close(fetchStarted)
		<-releaseFetch
	}

	staleDone := make(chan []core.Transaction, 1)
	go func() {
		staleDone <- cache.GetTransactions(context.Background(), "alice")
	}()
	<-fetchStarted

	// The write completes fully while the old fetch is still blocked.
	if _, err := cache.AddTransaction(context.Background(),
		tx("alice", core.Expense, "Rent", 5000, "2025-05-02")); err != nil {
		t.Fatalf("add: %v", err)
	}

	freshDone := make(chan []core.Transaction, 1)
	go func() {
		freshDone <- cache.GetTransactions(context.Background(), "alice")
	}()
	close(releaseFetch)

	fresh := <-freshDone
	if len(fresh) != 2 {
		t.Fatalf("read begun after the write saw %d transactions, want 2", len(fresh))
	}
	<-staleDone
}

func TestBalanceReadBegunAfterWriteDoesNotJoinStaleFlight(t *testing.T) {
	store := newFakeStore()
	store.seed(tx("alice", core.Income, "Salary", 100000, "2025-05-01"))
	clock := newFakeClock()
	cache := newTestCache(store, 10*time.Minute, clock)

	fetchStarted := make(chan struct{})
	releaseFetch := make(chan struct{})
	store.onSum = func() {
		store.mu.Lock()
		store.onSum = nil
		store.mu.Unlock()
		close(fetchStarted)
		<-releaseFetch
	}

	staleDone := make(chan core.BalanceSummary, 1)
	go func() {
		staleDone <- cache.GetBalanceSummary(context.Background(), "alice")
	}()
	<-fetchStarted

	// The blocked flight already snapshotted the income sum, so a new
	// income row is exactly what it would under-report.
	if _, err := cache.AddTransaction(context.Background(),
		tx("alice", core.Income, "Freelance", 50000, "2025-05-02")); err != nil {
		t.Fatalf("add: %v", err)
	}

	freshDone := make(chan core.BalanceSummary, 1)
	go func() {
		freshDone <- cache.GetBalanceSummary(context.Background(), "alice")
	}()
	close(releaseFetch)

	fresh := <-freshDone
	if fresh.TotalIncome.Cents != 150000 || fresh.TotalBalance.Cents != 150000 {
		t.Fatalf("read begun after the write saw stale balance %+v", fresh)
	}
	<-staleDone
}

func TestReadBegunAfterClearDoesNotJoinStaleFlight(t *testing.T) {
	store := newFakeStore()
	seeded := store.seed(tx("alice", core.Income, "Salary", 100000, "2025-05-01"))
	clock := newFakeClock()
	cache := newTestCache(store, 10*time.Minute, clock)

	cache.GetTransactions(context.Background(), "alice")
	clock.Advance(11 * time.Minute)

	// A stale refresh is in flight when the entry is cleared and the row
	// deleted underneath it.
	fetchStarted := make(chan struct{})
	releaseFetch := make(chan struct{})
	store.onList = func() {
		store.mu.Lock()
		store.onList = nil
		store.mu.Unlock()
		close(fetchStarted)
		<-releaseFetch
	}

	staleDone := make(chan []core.Transaction, 1)
	go func() {
		staleDone <- cache.GetTransactions(context.Background(), "alice")
	}()
	<-fetchStarted

	if _, err := cache.DeleteTransaction(context.Background(), seeded.ID, "alice"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	cache.ClearUser("alice")

	freshDone := make(chan []core.Transaction, 1)
	go func() {
		freshDone <- cache.GetTransactions(context.Background(), "alice")
	}()
	close(releaseFetch)

	fresh := <-freshDone
	if len(fresh) != 0 {
		t.Fatalf("read begun after delete and clear saw %d transactions, want 0", len(fresh))
	}
	<-staleDone
}

func TestRevalidatorSignalledAfterWrites(t *testing.T) {
	store := newFakeStore()
	seeded := store.seed(tx("alice", core.Income, "Salary", 100000, "2025-05-01"))
	clock := newFakeClock()

	var signalled []string
	cache := newTestCache(store, 10*time.Minute, clock,
		WithRevalidator(RevalidateFunc(func(_ context.Context, userID string) {
			signalled = append(signalled, userID)
		})))

	if _, err := cache.AddTransaction(context.Background(),
		tx("alice", core.Expense, "Rent", 5000, "2025-05-02")); err != nil {
		t.Fatalf("add: %v", err)
	}
	changed := seeded
	changed.Amount = core.Money{Cents: 120000}
	if _, err := cache.UpdateTransaction(context.Background(), changed); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := cache.DeleteTransaction(context.Background(), seeded.ID, "alice"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(signalled) != 3 {
		t.Fatalf("expected 3 revalidation signals, got %d", len(signalled))
	}
	for _, userID := range signalled {
		if userID != "alice" {
			t.Fatalf("signal for wrong user %q", userID)
		}
	}

	// Failed writes must not signal.
	store.failWrites = true
	cache.AddTransaction(context.Background(), tx("alice", core.Expense, "Rent", 100, "2025-05-03"))
	if len(signalled) != 3 {
		t.Fatalf("failed write emitted a revalidation signal")
	}
}

func TestStatsCountHitsAndMisses(t *testing.T) {
	store := newFakeStore()
	store.seed(tx("alice", core.Income, "Salary", 100000, "2025-05-01"))
	clock := newFakeClock()
	cache := newTestCache(store, 10*time.Minute, clock)

	cache.GetTransactions(context.Background(), "alice")
	cache.GetTransactions(context.Background(), "alice")
	cache.GetTransactions(context.Background(), "alice")

	hits, misses := cache.Stats()
	if hits != 2 || misses != 1 {
		t.Fatalf("hits=%d misses=%d, want 2/1", hits, misses)
	}
}
