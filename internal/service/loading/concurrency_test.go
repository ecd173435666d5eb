package loading

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mamadbah2/seedledger/internal/config"
	"github.com/mamadbah2/seedledger/internal/domain/models"
	"github.com/mamadbah2/seedledger/internal/repository"
	"github.com/mamadbah2/seedledger/internal/repository/memory"
)

func TestConcurrentAddsNeverOversell(t *testing.T) {
	// A producer with exactly 10 bags and two racing add(6) calls: exactly
	// one must succeed and the loser must fail on stock, never both.
	for round := 0; round < 50; round++ {
		store := memory.New()
		svc := newTestService(store, 20)
		cycle := seedCycle(t, store, 10)
		shipment := seedShipment(t, store, 100)

		results := make(chan error, 2)
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := svc.Add(context.Background(), shipment.ID, cycle.ID, 6, "agent")
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var successes, stockFailures int
		for err := range results {
			switch {
			case err == nil:
				successes++
			default:
				var stockErr *models.InsufficientStockError
				if !errors.As(err, &stockErr) {
					t.Fatalf("round %d: unexpected error %v", round, err)
				}
				if stockErr.Remaining != 4 {
					t.Fatalf("round %d: loser saw remaining=%d, want 4", round, stockErr.Remaining)
				}
				stockFailures++
			}
		}
		if successes != 1 || stockFailures != 1 {
			t.Fatalf("round %d: want 1 success and 1 stock failure, got %d/%d", round, successes, stockFailures)
		}

		gotCycle, _ := store.GetCycle(context.Background(), cycle.ID)
		if gotCycle.BagsRemainingToLoad != 4 {
			t.Fatalf("round %d: remaining=%d, want 4", round, gotCycle.BagsRemainingToLoad)
		}
	}
}

func TestConcurrentLoadsConserveEveryBag(t *testing.T) {
	store := memory.New()
	cfg := config.LoadingConfig{ToleranceBags: 0, ConflictRetries: 50, BagsPerTonne: 20}
	svc := NewService(store, cfg, nil, nil)

	const (
		workers      = 8
		addsPerAgent = 25
	)

	shipment := seedShipment(t, store, workers*addsPerAgent)
	cycles := make([]*models.ProductionCycle, workers)
	for i := range cycles {
		cycles[i] = seedCycle(t, store, addsPerAgent)
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers*addsPerAgent)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(cycleID string) {
			defer wg.Done()
			for j := 0; j < addsPerAgent; j++ {
				// Callers retry surfaced conflicts; everything else is fatal.
				for {
					_, _, err := svc.Add(context.Background(), shipment.ID, cycleID, 1, "agent")
					if err == nil {
						break
					}
					var conflictErr *models.ConcurrencyConflictError
					if errors.As(err, &conflictErr) {
						continue
					}
					errs <- err
					break
				}
			}
		}(cycles[i].ID)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent add failed: %v", err)
	}

	gotShipment, _ := store.GetShipment(context.Background(), shipment.ID)
	if gotShipment.TotalBags != workers*addsPerAgent {
		t.Fatalf("shipment total: want=%d got=%d", workers*addsPerAgent, gotShipment.TotalBags)
	}

	entries, _ := store.ListEntries(context.Background(), shipment.ID)
	sum := 0
	for _, entry := range entries {
		sum += entry.BagsLoaded
	}
	if sum != gotShipment.TotalBags {
		t.Fatalf("manifest sum: want=%d got=%d", gotShipment.TotalBags, sum)
	}

	for _, cycle := range cycles {
		got, _ := store.GetCycle(context.Background(), cycle.ID)
		if got.BagsRemainingToLoad != 0 {
			t.Fatalf("cycle %s remaining: want=0 got=%d", cycle.ID, got.BagsRemainingToLoad)
		}
	}
}

// conflictingStore forces ApplyLoad to lose the version race a fixed number
// of times before delegating, to pin down the retry loop deterministically.
type conflictingStore struct {
	repository.LedgerStore
	mu        sync.Mutex
	conflicts int
}

func (s *conflictingStore) ApplyLoad(ctx context.Context, shipment *models.Shipment, cycle *models.ProductionCycle, entry *models.ManifestEntry) error {
	s.mu.Lock()
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return repository.ErrVersionConflict
	}
	s.mu.Unlock()
	return s.LedgerStore.ApplyLoad(ctx, shipment, cycle, entry)
}

func TestAddRetriesLostRaces(t *testing.T) {
	inner := memory.New()
	store := &conflictingStore{LedgerStore: inner, conflicts: 2}
	cfg := config.LoadingConfig{ToleranceBags: 20, ConflictRetries: 2, BagsPerTonne: 20}
	svc := NewService(store, cfg, nil, nil)

	cycle := seedCycle(t, inner, 100)
	shipment := seedShipment(t, inner, 200)

	if _, _, err := svc.Add(context.Background(), shipment.ID, cycle.ID, 10, "agent-1"); err != nil {
		t.Fatalf("Add should succeed after retries: %v", err)
	}
}

func TestAddSurfacesExhaustedConflicts(t *testing.T) {
	inner := memory.New()
	store := &conflictingStore{LedgerStore: inner, conflicts: 3}
	cfg := config.LoadingConfig{ToleranceBags: 20, ConflictRetries: 2, BagsPerTonne: 20}
	svc := NewService(store, cfg, nil, nil)

	cycle := seedCycle(t, inner, 100)
	shipment := seedShipment(t, inner, 200)

	_, _, err := svc.Add(context.Background(), shipment.ID, cycle.ID, 10, "agent-1")
	var conflictErr *models.ConcurrencyConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("want ConcurrencyConflictError, got %v", err)
	}

	// The rejected operation left no trace.
	gotCycle, _ := inner.GetCycle(context.Background(), cycle.ID)
	if gotCycle.BagsRemainingToLoad != 100 {
		t.Fatalf("cycle remaining: want=100 got=%d", gotCycle.BagsRemainingToLoad)
	}
	entries, _ := inner.ListEntries(context.Background(), shipment.ID)
	if len(entries) != 0 {
		t.Fatalf("manifest: want empty, got %d entries", len(entries))
	}
}
