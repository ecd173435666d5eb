package models

// AddLoadRequest is the payload for loading bags onto a shipment. Quantity
// and QuantityConfirm implement the double-entry confirmation agents perform
// on their devices; the handler rejects mismatches before the ledger is
// touched.
type AddLoadRequest struct {
	CycleID         string `json:"cycle_id" binding:"required"`
	Quantity        int    `json:"quantity" binding:"required"`
	QuantityConfirm int    `json:"quantity_confirm" binding:"required"`
	LoadedBy        string `json:"loaded_by" binding:"required"`
}

// ActorRequest carries the acting agent for remove/undo/dispatch calls.
type ActorRequest struct {
	RequestedBy string `json:"requested_by" binding:"required"`
}

// RecordHarvestRequest is the payload for recording a harvested lot.
type RecordHarvestRequest struct {
	FarmerID        string `json:"farmer_id" binding:"required"`
	Variety         string `json:"variety" binding:"required"`
	CollectionPoint string `json:"collection_point" binding:"required"`
	TotalBags       int    `json:"total_bags" binding:"required,gt=0"`
}

// RegisterVehicleRequest is the payload for registering a vehicle for
// loading. DeclaredTonnes drives the derived bag capacity.
type RegisterVehicleRequest struct {
	VehicleNumber    string   `json:"vehicle_number" binding:"required"`
	TransporterName  string   `json:"transporter_name" binding:"required"`
	DeclaredTonnes   float64  `json:"declared_tonnes" binding:"required,gt=0"`
	AllowedVarieties []string `json:"allowed_varieties"`
	CollectionPoint  string   `json:"collection_point"`
}
