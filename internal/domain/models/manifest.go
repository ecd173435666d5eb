package models

import "time"

// ManifestEntry records one allocation of bags from a production cycle onto a
// shipment. Entries are immutable once created; corrections hard-delete the
// entry and credit the bags back to the cycle in the same atomic operation.
type ManifestEntry struct {
	ID         string    `bson:"_id" json:"id"`
	ShipmentID string    `bson:"shipment_id" json:"shipment_id"`
	CycleID    string    `bson:"cycle_id" json:"cycle_id"`
	BagsLoaded int       `bson:"bags_loaded" json:"bags_loaded"`
	LoadedBy   string    `bson:"loaded_by" json:"loaded_by"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

// Warning codes returned alongside a successful load. Advisory only; they
// never block the operation.
const (
	WarningVarietyMismatch         = "variety_mismatch"
	WarningCollectionPointMismatch = "collection_point_mismatch"
)

// Warning is a non-blocking advisory returned with a successful load, for the
// caller's own UI purposes.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
