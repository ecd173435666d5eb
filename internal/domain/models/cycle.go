package models

import "time"

// ProductionCycle represents one farmer's harvested lot awaiting shipment.
// TotalBagsHarvested is supplied by harvest recording and never recomputed
// here; BagsRemainingToLoad is only ever mutated by the loading service.
type ProductionCycle struct {
	ID                  string    `bson:"_id" json:"id"`
	FarmerID            string    `bson:"farmer_id" json:"farmer_id"`
	Variety             string    `bson:"variety" json:"variety"`
	CollectionPoint     string    `bson:"collection_point" json:"collection_point"`
	TotalBagsHarvested  int       `bson:"total_bags_harvested" json:"total_bags_harvested"`
	BagsRemainingToLoad int       `bson:"bags_remaining_to_load" json:"bags_remaining_to_load"`
	Version             int       `bson:"version" json:"-"`
	CreatedAt           time.Time `bson:"created_at" json:"created_at"`
}
