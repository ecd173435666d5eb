package repository

import (
	"context"
	"errors"

	"github.com/mamadbah2/seedledger/internal/domain/models"
)

// Sentinel errors shared by every LedgerStore driver.
var (
	ErrCycleNotFound    = errors.New("production cycle not found")
	ErrShipmentNotFound = errors.New("shipment not found")
	ErrEntryNotFound    = errors.New("manifest entry not found")
	ErrAlreadyExists    = errors.New("record already exists")
	// ErrVersionConflict signals that a conditional write matched no row
	// because another transaction committed first. The caller re-reads and
	// re-validates.
	ErrVersionConflict = errors.New("aggregate version conflict")
)

// LedgerStore persists the loading ledger's aggregates and manifest entries.
//
// The three Apply methods are the transactional boundary: each takes
// aggregates whose Version field holds the value read by the caller, writes
// all documents conditional on those versions still being current, and
// applies its effects all-or-nothing. A lost race surfaces as
// ErrVersionConflict with no partial effects. On success the stored versions
// are incremented.
type LedgerStore interface {
	CreateCycle(ctx context.Context, cycle *models.ProductionCycle) error
	CreateShipment(ctx context.Context, shipment *models.Shipment) error

	GetCycle(ctx context.Context, id string) (*models.ProductionCycle, error)
	GetShipment(ctx context.Context, id string) (*models.Shipment, error)
	GetEntry(ctx context.Context, id string) (*models.ManifestEntry, error)

	// LastEntry returns the most recently created manifest entry for the
	// shipment, ties broken by greatest entry id. ErrEntryNotFound when the
	// manifest is empty.
	LastEntry(ctx context.Context, shipmentID string) (*models.ManifestEntry, error)
	// ListEntries returns the shipment's manifest ordered by creation time
	// ascending, ties broken by entry id.
	ListEntries(ctx context.Context, shipmentID string) ([]models.ManifestEntry, error)

	ListCycles(ctx context.Context) ([]models.ProductionCycle, error)
	ListShipments(ctx context.Context) ([]models.Shipment, error)

	// ApplyLoad inserts entry and writes both aggregates' load fields.
	ApplyLoad(ctx context.Context, shipment *models.Shipment, cycle *models.ProductionCycle, entry *models.ManifestEntry) error
	// ApplyUnload deletes the entry and writes both aggregates' load fields.
	ApplyUnload(ctx context.Context, shipment *models.Shipment, cycle *models.ProductionCycle, entryID string) error
	// ApplyDispatch writes the shipment's status transition.
	ApplyDispatch(ctx context.Context, shipment *models.Shipment) error
}
