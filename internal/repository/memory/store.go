package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mamadbah2/seedledger/internal/domain/models"
	"github.com/mamadbah2/seedledger/internal/repository"
)

// Store is an in-memory LedgerStore for single-instance deployments and
// tests. A single mutex serializes writers; version checks mirror the mongo
// driver exactly so both drivers fail races the same way.
type Store struct {
	mu sync.RWMutex

	cycles    map[string]*models.ProductionCycle
	shipments map[string]*models.Shipment
	entries   map[string]*models.ManifestEntry
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		cycles:    make(map[string]*models.ProductionCycle),
		shipments: make(map[string]*models.Shipment),
		entries:   make(map[string]*models.ManifestEntry),
	}
}

func (s *Store) CreateCycle(_ context.Context, cycle *models.ProductionCycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cycles[cycle.ID]; exists {
		return repository.ErrAlreadyExists
	}
	c := *cycle
	s.cycles[cycle.ID] = &c
	return nil
}

func (s *Store) CreateShipment(_ context.Context, shipment *models.Shipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.shipments[shipment.ID]; exists {
		return repository.ErrAlreadyExists
	}
	sh := *shipment
	s.shipments[shipment.ID] = &sh
	return nil
}

func (s *Store) GetCycle(_ context.Context, id string) (*models.ProductionCycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cycle, ok := s.cycles[id]
	if !ok {
		return nil, repository.ErrCycleNotFound
	}
	c := *cycle
	return &c, nil
}

func (s *Store) GetShipment(_ context.Context, id string) (*models.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shipment, ok := s.shipments[id]
	if !ok {
		return nil, repository.ErrShipmentNotFound
	}
	sh := *shipment
	return &sh, nil
}

func (s *Store) GetEntry(_ context.Context, id string) (*models.ManifestEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, repository.ErrEntryNotFound
	}
	e := *entry
	return &e, nil
}

func (s *Store) LastEntry(_ context.Context, shipmentID string) (*models.ManifestEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *models.ManifestEntry
	for _, entry := range s.entries {
		if entry.ShipmentID != shipmentID {
			continue
		}
		if last == nil || entry.CreatedAt.After(last.CreatedAt) ||
			(entry.CreatedAt.Equal(last.CreatedAt) && entry.ID > last.ID) {
			last = entry
		}
	}
	if last == nil {
		return nil, repository.ErrEntryNotFound
	}
	e := *last
	return &e, nil
}

func (s *Store) ListEntries(_ context.Context, shipmentID string) ([]models.ManifestEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.ManifestEntry
	for _, entry := range s.entries {
		if entry.ShipmentID == shipmentID {
			result = append(result, *entry)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *Store) ListCycles(_ context.Context) ([]models.ProductionCycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.ProductionCycle, 0, len(s.cycles))
	for _, cycle := range s.cycles {
		result = append(result, *cycle)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) ListShipments(_ context.Context) ([]models.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Shipment, 0, len(s.shipments))
	for _, shipment := range s.shipments {
		result = append(result, *shipment)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *Store) ApplyLoad(_ context.Context, shipment *models.Shipment, cycle *models.ProductionCycle, entry *models.ManifestEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkVersions(shipment, cycle); err != nil {
		return err
	}
	if _, exists := s.entries[entry.ID]; exists {
		return repository.ErrAlreadyExists
	}

	s.commitPair(shipment, cycle)
	e := *entry
	s.entries[entry.ID] = &e
	return nil
}

func (s *Store) ApplyUnload(_ context.Context, shipment *models.Shipment, cycle *models.ProductionCycle, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkVersions(shipment, cycle); err != nil {
		return err
	}
	if _, exists := s.entries[entryID]; !exists {
		return repository.ErrEntryNotFound
	}

	s.commitPair(shipment, cycle)
	delete(s.entries, entryID)
	return nil
}

func (s *Store) ApplyDispatch(_ context.Context, shipment *models.Shipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.shipments[shipment.ID]
	if !ok {
		return repository.ErrShipmentNotFound
	}
	if stored.Version != shipment.Version {
		return repository.ErrVersionConflict
	}

	shipment.Version++
	sh := *shipment
	s.shipments[shipment.ID] = &sh
	return nil
}

// checkVersions validates both aggregates against their stored versions
// without mutating anything, so a conflict leaves the store untouched.
func (s *Store) checkVersions(shipment *models.Shipment, cycle *models.ProductionCycle) error {
	storedShipment, ok := s.shipments[shipment.ID]
	if !ok {
		return repository.ErrShipmentNotFound
	}
	storedCycle, ok := s.cycles[cycle.ID]
	if !ok {
		return repository.ErrCycleNotFound
	}
	if storedShipment.Version != shipment.Version || storedCycle.Version != cycle.Version {
		return repository.ErrVersionConflict
	}
	return nil
}

func (s *Store) commitPair(shipment *models.Shipment, cycle *models.ProductionCycle) {
	shipment.Version++
	cycle.Version++
	sh := *shipment
	c := *cycle
	s.shipments[shipment.ID] = &sh
	s.cycles[cycle.ID] = &c
}
