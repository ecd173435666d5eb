package models

import "time"

// ShipmentStatus enumerates the shipment lifecycle states.
type ShipmentStatus string

const (
	// ShipmentStatusLoading is the only state in which load mutations succeed.
	ShipmentStatusLoading ShipmentStatus = "loading"
	// ShipmentStatusDispatched is terminal; the manifest is frozen.
	ShipmentStatusDispatched ShipmentStatus = "dispatched"
)

// Shipment represents one vehicle's outbound load. TargetBagCapacity is
// derived at registration from the declared tonnage and never recomputed.
// TotalBags must equal the sum of the shipment's manifest entries at all
// times and is only ever mutated by the loading service.
type Shipment struct {
	ID                string         `bson:"_id" json:"id"`
	VehicleNumber     string         `bson:"vehicle_number" json:"vehicle_number"`
	TransporterName   string         `bson:"transporter_name" json:"transporter_name"`
	DeclaredTonnes    float64        `bson:"declared_tonnes" json:"declared_tonnes"`
	TargetBagCapacity int            `bson:"target_bag_capacity" json:"target_bag_capacity"`
	TotalBags         int            `bson:"total_bags" json:"total_bags"`
	Status            ShipmentStatus `bson:"status" json:"status"`
	AllowedVarieties  []string       `bson:"allowed_varieties,omitempty" json:"allowed_varieties,omitempty"`
	CollectionPoint   string         `bson:"collection_point,omitempty" json:"collection_point,omitempty"`
	Version           int            `bson:"version" json:"-"`
	CreatedAt         time.Time      `bson:"created_at" json:"created_at"`
	DispatchedAt      *time.Time     `bson:"dispatched_at,omitempty" json:"dispatched_at,omitempty"`
}
