package manifest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/seedledger/internal/domain/models"
	"github.com/mamadbah2/seedledger/internal/repository"
)

// Query is the read-side projection of a shipment's manifest, used for
// display and for selecting the target of a removal. It never mutates
// anything; callers re-query for freshness.
type Query struct {
	store  repository.LedgerStore
	logger *zap.Logger
}

// NewQuery wires a manifest query service.
func NewQuery(store repository.LedgerStore, logger *zap.Logger) *Query {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Query{store: store, logger: logger}
}

// List returns the shipment's manifest entries ordered oldest first.
func (q *Query) List(ctx context.Context, shipmentID string) ([]models.ManifestEntry, error) {
	if _, err := q.store.GetShipment(ctx, shipmentID); err != nil {
		if errors.Is(err, repository.ErrShipmentNotFound) {
			return nil, &models.UnknownShipmentError{ShipmentID: shipmentID}
		}
		return nil, fmt.Errorf("load shipment: %w", err)
	}

	entries, err := q.store.ListEntries(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("list manifest entries: %w", err)
	}
	return entries, nil
}
