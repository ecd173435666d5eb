package models

import "fmt"

// Ledger error kinds, stable identifiers surfaced to API callers.
const (
	KindShipmentLocked      = "shipment_locked"
	KindUnknownShipment     = "unknown_shipment"
	KindUnknownProducer     = "unknown_producer"
	KindEntryNotFound       = "entry_not_found"
	KindInvalidQuantity     = "invalid_quantity"
	KindInsufficientStock   = "insufficient_stock"
	KindCapacityExceeded    = "capacity_exceeded"
	KindOutOfTolerance      = "out_of_tolerance"
	KindNothingToUndo       = "nothing_to_undo"
	KindConcurrencyConflict = "concurrency_conflict"
)

// LedgerError is implemented by every expected, recoverable-by-caller ledger
// failure. Kind is machine-readable; Error carries the numeric context the
// caller needs to explain the rejection to the end user.
type LedgerError interface {
	error
	Kind() string
}

// ShipmentLockedError reports a mutation attempted against a dispatched
// shipment.
type ShipmentLockedError struct {
	ShipmentID string
}

func (e *ShipmentLockedError) Error() string {
	return fmt.Sprintf("shipment %s is dispatched and locked for changes", e.ShipmentID)
}

func (e *ShipmentLockedError) Kind() string { return KindShipmentLocked }

// UnknownShipmentError reports a shipment id that does not exist.
type UnknownShipmentError struct {
	ShipmentID string
}

func (e *UnknownShipmentError) Error() string {
	return fmt.Sprintf("shipment %s does not exist", e.ShipmentID)
}

func (e *UnknownShipmentError) Kind() string { return KindUnknownShipment }

// UnknownProducerError reports a production cycle id that does not exist.
type UnknownProducerError struct {
	CycleID string
}

func (e *UnknownProducerError) Error() string {
	return fmt.Sprintf("production cycle %s does not exist", e.CycleID)
}

func (e *UnknownProducerError) Kind() string { return KindUnknownProducer }

// EntryNotFoundError reports a manifest entry id that does not exist.
type EntryNotFoundError struct {
	EntryID string
}

func (e *EntryNotFoundError) Error() string {
	return fmt.Sprintf("manifest entry %s does not exist", e.EntryID)
}

func (e *EntryNotFoundError) Kind() string { return KindEntryNotFound }

// InvalidQuantityError reports a non-positive requested quantity.
type InvalidQuantityError struct {
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be a positive number of bags, got %d", e.Quantity)
}

func (e *InvalidQuantityError) Kind() string { return KindInvalidQuantity }

// InsufficientStockError reports a load request exceeding the cycle's
// remaining unallocated bags. Remaining is the actual amount still loadable.
type InsufficientStockError struct {
	CycleID   string
	Requested int
	Remaining int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("cycle %s has only %d bags remaining, requested %d", e.CycleID, e.Remaining, e.Requested)
}

func (e *InsufficientStockError) Kind() string { return KindInsufficientStock }

// CapacityExceededError reports a load request that would push the shipment
// past its target capacity plus tolerance. RemainingSpace is never negative.
type CapacityExceededError struct {
	ShipmentID     string
	Requested      int
	RemainingSpace int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("shipment %s has only %d bags of space left, requested %d", e.ShipmentID, e.RemainingSpace, e.Requested)
}

func (e *CapacityExceededError) Kind() string { return KindCapacityExceeded }

// OutOfToleranceError reports a dispatch attempted while the loaded total is
// outside the tolerance band around the target capacity. Delta is signed:
// negative means underloaded, positive overloaded.
type OutOfToleranceError struct {
	ShipmentID string
	TotalBags  int
	Target     int
	Tolerance  int
}

// Delta is the signed distance from the target capacity.
func (e *OutOfToleranceError) Delta() int { return e.TotalBags - e.Target }

func (e *OutOfToleranceError) Error() string {
	delta := e.Delta()
	direction := "under"
	if delta > 0 {
		direction = "over"
	} else {
		delta = -delta
	}
	return fmt.Sprintf("shipment %s is %d bags %s its target of %d (tolerance %d)", e.ShipmentID, delta, direction, e.Target, e.Tolerance)
}

func (e *OutOfToleranceError) Kind() string { return KindOutOfTolerance }

// NothingToUndoError reports an undo against a shipment with an empty
// manifest.
type NothingToUndoError struct {
	ShipmentID string
}

func (e *NothingToUndoError) Error() string {
	return fmt.Sprintf("shipment %s has no manifest entries to undo", e.ShipmentID)
}

func (e *NothingToUndoError) Kind() string { return KindNothingToUndo }

// ConcurrencyConflictError reports an operation that repeatedly lost the
// optimistic-concurrency race. The operation had no effect; the caller
// decides whether to retry.
type ConcurrencyConflictError struct {
	ShipmentID string
	CycleID    string
}

func (e *ConcurrencyConflictError) Error() string {
	if e.CycleID == "" {
		return fmt.Sprintf("shipment %s was modified concurrently, operation not applied", e.ShipmentID)
	}
	return fmt.Sprintf("shipment %s or cycle %s was modified concurrently, operation not applied", e.ShipmentID, e.CycleID)
}

func (e *ConcurrencyConflictError) Kind() string { return KindConcurrencyConflict }
