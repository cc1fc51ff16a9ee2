package application_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"grateful.app/notifier/internal/application"
	"grateful.app/notifier/internal/domain"
	"grateful.app/notifier/internal/syncbus"
)

func TestLoad_ComputesUnread(t *testing.T) {
	store := application.NewStore(newFakeAPI(), nil, nil)
	defer store.Dispose()

	store.Load([]*domain.Notification{root("1", false), root("2", false), root("3", true)})
	if got := store.Unread(); got != 2 {
		t.Fatalf("expected unread 2, got %d", got)
	}
}

func TestMarkRead_DecrementsOnce(t *testing.T) {
	api := newFakeAPI()
	store := application.NewStore(api, nil, nil)

	store.Load([]*domain.Notification{root("1", false), root("2", false)})
	if err := store.MarkRead("1"); err != nil {
		t.Fatal(err)
	}
	if got := store.Unread(); got != 1 {
		t.Fatalf("expected unread 1, got %d", got)
	}
	n, ok := store.Get("1")
	if !ok || !n.Read {
		t.Fatal("notification 1 should be read")
	}

	if err := store.MarkRead("1"); err != nil {
		t.Fatal(err)
	}
	if got := store.Unread(); got != 1 {
		t.Fatalf("second MarkRead changed unread to %d", got)
	}

	store.Dispose()
	if len(api.markRead) != 1 || api.markRead[0] != "1" {
		t.Fatalf("expected exactly one sync for id 1, got %v", api.markRead)
	}
}

func TestMarkRead_UnknownID(t *testing.T) {
	store := application.NewStore(newFakeAPI(), nil, nil)
	defer store.Dispose()

	err := store.MarkRead("missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkRead_SyncFailureKeepsLocalState(t *testing.T) {
	api := newFakeAPI()
	api.syncErr = errNetwork
	store := application.NewStore(api, nil, nil)

	store.Load([]*domain.Notification{root("1", false)})
	if err := store.MarkRead("1"); err != nil {
		t.Fatalf("sync failure must not surface: %v", err)
	}
	store.Dispose()

	if n, _ := store.Get("1"); !n.Read {
		t.Fatal("local read state was rolled back")
	}
	if store.Unread() != 0 {
		t.Fatal("unread should stay 0")
	}
}

func TestMarkRead_CachedChild(t *testing.T) {
	api := newFakeAPI()
	api.children["b1"] = []*domain.Notification{root("c1", false), root("c2", false)}
	store := application.NewStore(api, nil, nil)
	defer store.Dispose()

	store.Load([]*domain.Notification{batch("b1", 2), root("r1", false)})
	if _, err := store.Toggle(context.Background(), "b1"); err != nil {
		t.Fatal(err)
	}
	before := store.Unread()

	if err := store.MarkRead("c1"); err != nil {
		t.Fatal(err)
	}
	kids, _ := store.Children("b1")
	if !kids[0].Read || kids[1].Read {
		t.Fatalf("only c1 should be read: %v %v", kids[0].Read, kids[1].Read)
	}
	if store.Unread() != before {
		t.Fatal("children do not count towards the root unread counter")
	}
}

func TestMarkAllRead(t *testing.T) {
	api := newFakeAPI()
	api.children["b1"] = []*domain.Notification{root("c1", false)}
	store := application.NewStore(api, nil, nil)

	store.Load([]*domain.Notification{batch("b1", 1), root("r1", false), root("r2", true)})
	if _, err := store.Toggle(context.Background(), "b1"); err != nil {
		t.Fatal(err)
	}

	store.MarkAllRead()
	store.MarkAllRead()
	if store.Unread() != 0 {
		t.Fatalf("expected 0 unread, got %d", store.Unread())
	}
	for _, n := range store.Roots() {
		if !n.Read {
			t.Fatalf("root %s still unread", n.ID)
		}
	}
	kids, _ := store.Children("b1")
	if !kids[0].Read {
		t.Fatal("cached child should be read")
	}

	store.Dispose()
	if api.markAllCalls != 2 {
		t.Fatalf("expected 2 read-all syncs, got %d", api.markAllCalls)
	}
}

func TestUnreadConsistency(t *testing.T) {
	store := application.NewStore(newFakeAPI(), nil, nil)
	defer store.Dispose()

	check := func(step string) {
		t.Helper()
		if got, want := store.Unread(), countUnread(store.Roots()); got != want {
			t.Fatalf("%s: unread %d, store holds %d unread", step, got, want)
		}
	}

	store.Load([]*domain.Notification{root("1", false), root("2", false), root("3", false)})
	check("load")
	_ = store.MarkRead("2")
	check("mark 2")
	_ = store.MarkRead("2")
	check("mark 2 again")
	store.Load([]*domain.Notification{root("4", false), root("2", false), root("1", true)})
	check("reload")
	store.MarkAllRead()
	check("mark all")
	store.Load([]*domain.Notification{root("5", false), root("4", false)})
	check("reload after mark all")
	if store.Unread() != 1 {
		t.Fatalf("only the new notification 5 should be unread, got %d", store.Unread())
	}
}

func TestLoad_LocalReadsAreMonotonic(t *testing.T) {
	store := application.NewStore(newFakeAPI(), nil, nil)
	defer store.Dispose()

	store.Load([]*domain.Notification{root("1", false)})
	_ = store.MarkRead("1")

	// Server has not caught up yet.
	store.Load([]*domain.Notification{root("1", false)})
	if n, _ := store.Get("1"); !n.Read {
		t.Fatal("poll flipped a locally read notification back to unread")
	}
	if store.Unread() != 0 {
		t.Fatalf("expected 0 unread, got %d", store.Unread())
	}
}

func TestLoad_UpdatedBatchIsUnreadAgain(t *testing.T) {
	store := application.NewStore(newFakeAPI(), nil, nil)
	defer store.Dispose()

	store.Load([]*domain.Notification{batch("b1", 3)})
	if err := store.MarkRead("b1"); err != nil {
		t.Fatal(err)
	}

	// Same id, but the server folded a new event in after the local read.
	time.Sleep(time.Millisecond)
	grown := batch("b1", 4)
	later := time.Now()
	grown.LastUpdatedAt = &later
	time.Sleep(time.Millisecond)
	store.Load([]*domain.Notification{grown})

	if n, _ := store.Get("b1"); n.Read {
		t.Fatal("a batch updated after the local read should be unread")
	}
	if store.Unread() != 1 {
		t.Fatalf("expected 1 unread, got %d", store.Unread())
	}

	// Reading it again sticks until the next change.
	_ = store.MarkRead("b1")
	store.Load([]*domain.Notification{grown})
	if store.Unread() != 0 {
		t.Fatalf("expected 0 unread after re-reading, got %d", store.Unread())
	}
}

func TestRestore_UpdatedSinceLedgerReadIsUnread(t *testing.T) {
	ledger := application.NewMemoryLedger()
	ctx := context.Background()
	readAt := time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC)
	_ = ledger.Record(ctx, readAt, "b1", "1")

	store := application.NewStore(newFakeAPI(), ledger, nil)
	defer store.Dispose()
	if err := store.Restore(ctx); err != nil {
		t.Fatal(err)
	}

	grown := batch("b1", 4)
	later := readAt.Add(time.Hour)
	grown.LastUpdatedAt = &later
	store.Load([]*domain.Notification{grown, root("1", false)})

	if store.Unread() != 1 {
		t.Fatalf("only the updated batch should be unread, got %d", store.Unread())
	}
	if n, _ := store.Get("1"); !n.Read {
		t.Fatal("unchanged notification should stay read from the ledger")
	}
}

func TestApply_DropsStaleResult(t *testing.T) {
	store := application.NewStore(newFakeAPI(), nil, nil)
	defer store.Dispose()

	slow := store.BeginFetch()
	fast := store.BeginFetch()

	if !store.Apply(fast, []*domain.Notification{root("new", false)}) {
		t.Fatal("newer fetch should apply")
	}
	if store.Apply(slow, []*domain.Notification{root("old", false)}) {
		t.Fatal("older fetch resolving late should be dropped")
	}
	roots := store.Roots()
	if len(roots) != 1 || roots[0].ID != "new" {
		t.Fatalf("unexpected roots after stale apply: %+v", roots)
	}
}

func TestLoad_KeepsExpansionCache(t *testing.T) {
	api := newFakeAPI()
	api.children["b1"] = []*domain.Notification{root("c1", false)}
	store := application.NewStore(api, nil, nil)
	defer store.Dispose()

	store.Load([]*domain.Notification{batch("b1", 1)})
	if _, err := store.Toggle(context.Background(), "b1"); err != nil {
		t.Fatal(err)
	}
	store.Load([]*domain.Notification{root("r9", false), batch("b1", 1)})

	if !store.Expanded("b1") {
		t.Fatal("reload must not close a batch that is still listed")
	}
	if _, ok := store.Children("b1"); !ok {
		t.Fatal("reload must not evict the cache")
	}
}

func TestRestore_SeedsReadState(t *testing.T) {
	ledger := application.NewMemoryLedger()
	first := application.NewStore(newFakeAPI(), ledger, nil)
	first.Load([]*domain.Notification{root("1", false)})
	_ = first.MarkRead("1")
	first.Dispose()

	second := application.NewStore(newFakeAPI(), ledger, nil)
	defer second.Dispose()
	if err := second.Restore(context.Background()); err != nil {
		t.Fatal(err)
	}
	second.Load([]*domain.Notification{root("1", false), root("2", false)})
	if second.Unread() != 1 {
		t.Fatalf("expected ledger to keep 1 read, unread=%d", second.Unread())
	}
}

func TestAttach_MergesProfilePatch(t *testing.T) {
	api := newFakeAPI()
	api.children["b1"] = []*domain.Notification{root("c1", false)}
	bus := syncbus.New()
	store := application.NewStore(api, nil, nil)
	store.Attach(bus)

	store.Load([]*domain.Notification{root("1", false), batch("b1", 1)})
	if _, err := store.Toggle(context.Background(), "b1"); err != nil {
		t.Fatal(err)
	}

	bus.Publish("u-1", domain.ProfilePatch{Name: domain.StringPtr("Alice")})
	bus.Publish("u-c1", domain.ProfilePatch{Image: domain.StringPtr("new.png")})

	n, _ := store.Get("1")
	if n.FromUser.Name != "Alice" || n.FromUser.Image != "img-1" {
		t.Fatalf("root patch not merged: %+v", n.FromUser)
	}
	c, _ := store.Get("c1")
	if c.FromUser.Image != "new.png" || c.FromUser.Name != "User c1" {
		t.Fatalf("child patch not merged: %+v", c.FromUser)
	}

	store.Dispose()
	if bus.Len() != 0 {
		t.Fatal("Dispose should detach from the bus")
	}
}

func TestOnChange_ReceivesSnapshots(t *testing.T) {
	store := application.NewStore(newFakeAPI(), nil, nil)
	defer store.Dispose()

	var last application.Snapshot
	calls := 0
	unsubscribe := store.OnChange(func(s application.Snapshot) {
		calls++
		last = s
	})

	store.Load([]*domain.Notification{root("1", false)})
	_ = store.MarkRead("1")
	if calls != 2 {
		t.Fatalf("expected 2 snapshots, got %d", calls)
	}
	if last.Unread != 0 || !last.Roots[0].Read {
		t.Fatalf("stale snapshot: %+v", last)
	}

	unsubscribe()
	store.Load(nil)
	if calls != 2 {
		t.Fatal("listener called after unsubscribe")
	}
}

func TestOnChange_LastSnapshotIsCurrent(t *testing.T) {
	store := application.NewStore(newFakeAPI(), nil, nil)
	defer store.Dispose()

	const n = 64
	list := make([]*domain.Notification, n)
	for i := range list {
		list[i] = root(strconv.Itoa(i), false)
	}
	store.Load(list)

	var (
		mu   sync.Mutex
		last application.Snapshot
	)
	store.OnChange(func(s application.Snapshot) {
		mu.Lock()
		last = s
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_ = store.MarkRead(id)
		}(strconv.Itoa(i))
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if last.Unread != 0 {
		t.Fatalf("last delivered snapshot is stale: unread=%d", last.Unread)
	}
}

func TestDispose_IgnoresLaterMutations(t *testing.T) {
	store := application.NewStore(newFakeAPI(), nil, nil)
	store.Load([]*domain.Notification{root("1", false)})
	store.Dispose()

	store.Load([]*domain.Notification{root("1", false), root("2", false)})
	if store.Unread() != 1 {
		t.Fatal("Load after Dispose mutated the store")
	}
}

func TestMemoryLedger_Purge(t *testing.T) {
	ledger := application.NewMemoryLedger()
	ctx := context.Background()
	_ = ledger.Record(ctx, time.Now().AddDate(0, 0, -40), "old")
	_ = ledger.Record(ctx, time.Now(), "new", "new")

	n, err := ledger.PurgeOlderThan(ctx, 30)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 purged, got %d (%v)", n, err)
	}
	ids, _ := ledger.ReadIDs(ctx)
	if _, ok := ids["new"]; !ok || len(ids) != 1 {
		t.Fatalf("unexpected ledger contents: %v", ids)
	}
}

func TestMemoryLedger_KeepsLatestReadTime(t *testing.T) {
	ledger := application.NewMemoryLedger()
	ctx := context.Background()
	first := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	_ = ledger.Record(ctx, second, "1")
	_ = ledger.Record(ctx, first, "1")
	ids, _ := ledger.ReadIDs(ctx)
	if !ids["1"].Equal(second) {
		t.Fatalf("expected latest read time %v, got %v", second, ids["1"])
	}
}
