package loading

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/seedledger/internal/config"
	"github.com/mamadbah2/seedledger/internal/domain/models"
	"github.com/mamadbah2/seedledger/internal/repository"
)

// DispatchObserver is notified after a shipment's dispatch has committed.
// Implementations must tolerate failure on their own; the ledger never rolls
// back a dispatch because an observer failed.
type DispatchObserver interface {
	ShipmentDispatched(ctx context.Context, shipment models.Shipment, entries []models.ManifestEntry)
}

// Service orchestrates all load mutations against the shipment/cycle pair.
// It is the only component allowed to mutate BagsRemainingToLoad, TotalBags,
// and manifest entries. Every operation reads both aggregates, validates,
// and applies its effects through one atomic store call; a lost optimistic
// race is re-read and re-validated up to cfg.ConflictRetries times.
type Service struct {
	store    repository.LedgerStore
	cfg      config.LoadingConfig
	observer DispatchObserver
	logger   *zap.Logger
}

// NewService wires a loading service. observer may be nil.
func NewService(store repository.LedgerStore, cfg config.LoadingConfig, observer DispatchObserver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cfg: cfg, observer: observer, logger: logger}
}

// Add allocates quantity bags from the cycle onto the shipment. On success it
// returns the created manifest entry plus any advisory warnings (variety or
// collection-point mismatch); warnings never block the load.
func (s *Service) Add(ctx context.Context, shipmentID, cycleID string, quantity int, actor string) (*models.ManifestEntry, []models.Warning, error) {
	if quantity <= 0 {
		return nil, nil, &models.InvalidQuantityError{Quantity: quantity}
	}

	for attempt := 0; attempt <= s.cfg.ConflictRetries; attempt++ {
		shipment, err := s.store.GetShipment(ctx, shipmentID)
		if errors.Is(err, repository.ErrShipmentNotFound) {
			return nil, nil, &models.UnknownShipmentError{ShipmentID: shipmentID}
		}
		if err != nil {
			return nil, nil, fmt.Errorf("load shipment: %w", err)
		}
		if shipment.Status != models.ShipmentStatusLoading {
			return nil, nil, &models.ShipmentLockedError{ShipmentID: shipmentID}
		}

		cycle, err := s.store.GetCycle(ctx, cycleID)
		if errors.Is(err, repository.ErrCycleNotFound) {
			return nil, nil, &models.UnknownProducerError{CycleID: cycleID}
		}
		if err != nil {
			return nil, nil, fmt.Errorf("load production cycle: %w", err)
		}

		if quantity > cycle.BagsRemainingToLoad {
			return nil, nil, &models.InsufficientStockError{
				CycleID:   cycleID,
				Requested: quantity,
				Remaining: cycle.BagsRemainingToLoad,
			}
		}
		limit := shipment.TargetBagCapacity + s.cfg.ToleranceBags
		if shipment.TotalBags+quantity > limit {
			remaining := limit - shipment.TotalBags
			if remaining < 0 {
				remaining = 0
			}
			return nil, nil, &models.CapacityExceededError{
				ShipmentID:     shipmentID,
				Requested:      quantity,
				RemainingSpace: remaining,
			}
		}

		entry := &models.ManifestEntry{
			ID:         uuid.NewString(),
			ShipmentID: shipmentID,
			CycleID:    cycleID,
			BagsLoaded: quantity,
			LoadedBy:   actor,
			CreatedAt:  time.Now().UTC(),
		}
		shipment.TotalBags += quantity
		cycle.BagsRemainingToLoad -= quantity

		err = s.store.ApplyLoad(ctx, shipment, cycle, entry)
		if errors.Is(err, repository.ErrVersionConflict) {
			s.logger.Debug("load lost version race, re-reading",
				zap.String("shipment_id", shipmentID),
				zap.String("cycle_id", cycleID),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("apply load: %w", err)
		}

		s.logger.Info("bags loaded",
			zap.String("shipment_id", shipmentID),
			zap.String("cycle_id", cycleID),
			zap.Int("bags", quantity),
			zap.Int("shipment_total", shipment.TotalBags),
			zap.Int("cycle_remaining", cycle.BagsRemainingToLoad),
			zap.String("actor", actor))
		return entry, softWarnings(shipment, cycle), nil
	}

	return nil, nil, &models.ConcurrencyConflictError{ShipmentID: shipmentID, CycleID: cycleID}
}

// Remove is the compensating action for an existing manifest entry: it
// deletes the entry and credits the bags back to the cycle atomically. Only
// entries of still-loading shipments can be removed.
func (s *Service) Remove(ctx context.Context, entryID string, actor string) error {
	entry, err := s.store.GetEntry(ctx, entryID)
	if errors.Is(err, repository.ErrEntryNotFound) {
		return &models.EntryNotFoundError{EntryID: entryID}
	}
	if err != nil {
		return fmt.Errorf("load manifest entry: %w", err)
	}

	return s.unload(ctx, entry, actor)
}

// UndoLast removes the most recently created manifest entry of the shipment,
// strict LIFO by creation time with the entry id as tie-break. It exists to
// correct the immediately preceding mistake; arbitrary corrections go through
// Remove against the manifest explicitly.
func (s *Service) UndoLast(ctx context.Context, shipmentID string, actor string) (*models.ManifestEntry, error) {
	shipment, err := s.store.GetShipment(ctx, shipmentID)
	if errors.Is(err, repository.ErrShipmentNotFound) {
		return nil, &models.UnknownShipmentError{ShipmentID: shipmentID}
	}
	if err != nil {
		return nil, fmt.Errorf("load shipment: %w", err)
	}
	if shipment.Status != models.ShipmentStatusLoading {
		return nil, &models.ShipmentLockedError{ShipmentID: shipmentID}
	}

	entry, err := s.store.LastEntry(ctx, shipmentID)
	if errors.Is(err, repository.ErrEntryNotFound) {
		return nil, &models.NothingToUndoError{ShipmentID: shipmentID}
	}
	if err != nil {
		return nil, fmt.Errorf("find last manifest entry: %w", err)
	}

	if err := s.unload(ctx, entry, actor); err != nil {
		return nil, err
	}
	return entry, nil
}

// Finalize transitions the shipment from loading to dispatched, one-way. The
// loaded total must be positive and inside the tolerance band around the
// target capacity. After the commit, the dispatch observer is notified
// best-effort with the frozen manifest.
func (s *Service) Finalize(ctx context.Context, shipmentID string, actor string) (*models.Shipment, error) {
	for attempt := 0; attempt <= s.cfg.ConflictRetries; attempt++ {
		shipment, err := s.store.GetShipment(ctx, shipmentID)
		if errors.Is(err, repository.ErrShipmentNotFound) {
			return nil, &models.UnknownShipmentError{ShipmentID: shipmentID}
		}
		if err != nil {
			return nil, fmt.Errorf("load shipment: %w", err)
		}
		if shipment.Status != models.ShipmentStatusLoading {
			return nil, &models.ShipmentLockedError{ShipmentID: shipmentID}
		}

		delta := shipment.TotalBags - shipment.TargetBagCapacity
		if shipment.TotalBags <= 0 || delta < -s.cfg.ToleranceBags || delta > s.cfg.ToleranceBags {
			return nil, &models.OutOfToleranceError{
				ShipmentID: shipmentID,
				TotalBags:  shipment.TotalBags,
				Target:     shipment.TargetBagCapacity,
				Tolerance:  s.cfg.ToleranceBags,
			}
		}

		now := time.Now().UTC()
		shipment.Status = models.ShipmentStatusDispatched
		shipment.DispatchedAt = &now

		err = s.store.ApplyDispatch(ctx, shipment)
		if errors.Is(err, repository.ErrVersionConflict) {
			s.logger.Debug("dispatch lost version race, re-reading",
				zap.String("shipment_id", shipmentID),
				zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("apply dispatch: %w", err)
		}

		s.logger.Info("shipment dispatched",
			zap.String("shipment_id", shipmentID),
			zap.Int("total_bags", shipment.TotalBags),
			zap.Int("target_capacity", shipment.TargetBagCapacity),
			zap.String("actor", actor))

		s.notifyDispatched(ctx, shipment)
		return shipment, nil
	}

	return nil, &models.ConcurrencyConflictError{ShipmentID: shipmentID}
}

func (s *Service) unload(ctx context.Context, entry *models.ManifestEntry, actor string) error {
	for attempt := 0; attempt <= s.cfg.ConflictRetries; attempt++ {
		shipment, cycle, err := s.loadPair(ctx, entry.ShipmentID, entry.CycleID)
		if err != nil {
			return err
		}
		if shipment.Status != models.ShipmentStatusLoading {
			return &models.ShipmentLockedError{ShipmentID: entry.ShipmentID}
		}

		shipment.TotalBags -= entry.BagsLoaded
		cycle.BagsRemainingToLoad += entry.BagsLoaded

		err = s.store.ApplyUnload(ctx, shipment, cycle, entry.ID)
		if errors.Is(err, repository.ErrVersionConflict) {
			s.logger.Debug("unload lost version race, re-reading",
				zap.String("entry_id", entry.ID),
				zap.Int("attempt", attempt))
			continue
		}
		if errors.Is(err, repository.ErrEntryNotFound) {
			// Deleted underneath us by a concurrent remove/undo.
			return &models.EntryNotFoundError{EntryID: entry.ID}
		}
		if err != nil {
			return fmt.Errorf("apply unload: %w", err)
		}

		s.logger.Info("manifest entry removed",
			zap.String("entry_id", entry.ID),
			zap.String("shipment_id", entry.ShipmentID),
			zap.String("cycle_id", entry.CycleID),
			zap.Int("bags", entry.BagsLoaded),
			zap.String("actor", actor))
		return nil
	}

	return &models.ConcurrencyConflictError{ShipmentID: entry.ShipmentID, CycleID: entry.CycleID}
}

func (s *Service) loadPair(ctx context.Context, shipmentID, cycleID string) (*models.Shipment, *models.ProductionCycle, error) {
	shipment, err := s.store.GetShipment(ctx, shipmentID)
	if errors.Is(err, repository.ErrShipmentNotFound) {
		return nil, nil, &models.UnknownShipmentError{ShipmentID: shipmentID}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load shipment: %w", err)
	}

	cycle, err := s.store.GetCycle(ctx, cycleID)
	if errors.Is(err, repository.ErrCycleNotFound) {
		return nil, nil, &models.UnknownProducerError{CycleID: cycleID}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load production cycle: %w", err)
	}

	return shipment, cycle, nil
}

func (s *Service) notifyDispatched(ctx context.Context, shipment *models.Shipment) {
	if s.observer == nil {
		return
	}
	entries, err := s.store.ListEntries(ctx, shipment.ID)
	if err != nil {
		s.logger.Error("failed to load manifest for dispatch notification",
			zap.String("shipment_id", shipment.ID), zap.Error(err))
		return
	}
	s.observer.ShipmentDispatched(ctx, *shipment, entries)
}

// softWarnings checks the advisory variety/collection-point rules. These are
// deliberately separate from the hard invariants above so they can change
// without touching the conservation guarantees.
func softWarnings(shipment *models.Shipment, cycle *models.ProductionCycle) []models.Warning {
	var warnings []models.Warning

	if len(shipment.AllowedVarieties) > 0 {
		allowed := false
		for _, v := range shipment.AllowedVarieties {
			if v == cycle.Variety {
				allowed = true
				break
			}
		}
		if !allowed {
			warnings = append(warnings, models.Warning{
				Code:    models.WarningVarietyMismatch,
				Message: fmt.Sprintf("variety %s is not in the shipment's allowed set", cycle.Variety),
			})
		}
	}

	if shipment.CollectionPoint != "" && cycle.CollectionPoint != shipment.CollectionPoint {
		warnings = append(warnings, models.Warning{
			Code:    models.WarningCollectionPointMismatch,
			Message: fmt.Sprintf("cycle was collected at %s, shipment is staged at %s", cycle.CollectionPoint, shipment.CollectionPoint),
		})
	}

	return warnings
}
