package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/mamadbah2/seedledger/internal/config"
	"github.com/mamadbah2/seedledger/internal/domain/models"
	"github.com/mamadbah2/seedledger/internal/repository/memory"
)

func newTestService(store *memory.Store) *Service {
	cfg := config.LoadingConfig{ToleranceBags: 20, ConflictRetries: 2, BagsPerTonne: 20}
	return NewService(store, cfg, nil)
}

func TestRecordHarvestStartsFullyUnallocated(t *testing.T) {
	store := memory.New()
	svc := newTestService(store)

	cycle, err := svc.RecordHarvest(context.Background(), models.RecordHarvestRequest{
		FarmerID:        "farmer-1",
		Variety:         "sahel-108",
		CollectionPoint: "kolda",
		TotalBags:       120,
	})
	if err != nil {
		t.Fatalf("RecordHarvest: %v", err)
	}
	if cycle.TotalBagsHarvested != 120 || cycle.BagsRemainingToLoad != 120 {
		t.Fatalf("cycle bags: want 120/120, got %d/%d", cycle.TotalBagsHarvested, cycle.BagsRemainingToLoad)
	}

	stored, err := store.GetCycle(context.Background(), cycle.ID)
	if err != nil {
		t.Fatalf("GetCycle: %v", err)
	}
	if stored.BagsRemainingToLoad != 120 {
		t.Fatalf("stored remaining: want=120 got=%d", stored.BagsRemainingToLoad)
	}
}

func TestRecordHarvestRejectsNonPositiveBags(t *testing.T) {
	svc := newTestService(memory.New())

	_, err := svc.RecordHarvest(context.Background(), models.RecordHarvestRequest{
		FarmerID:  "farmer-1",
		TotalBags: 0,
	})
	var invalidErr *models.InvalidQuantityError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("want InvalidQuantityError, got %v", err)
	}
}

func TestRegisterVehicleDerivesCapacityFromTonnage(t *testing.T) {
	store := memory.New()
	svc := newTestService(store)

	shipment, err := svc.RegisterVehicle(context.Background(), models.RegisterVehicleRequest{
		VehicleNumber:   "DK-1234-AA",
		TransporterName: "Transports Ndiaye",
		DeclaredTonnes:  2.5,
	})
	if err != nil {
		t.Fatalf("RegisterVehicle: %v", err)
	}
	if shipment.TargetBagCapacity != 50 {
		t.Fatalf("capacity: want=50 got=%d", shipment.TargetBagCapacity)
	}
	if shipment.Status != models.ShipmentStatusLoading {
		t.Fatalf("status: want=loading got=%s", shipment.Status)
	}
	if shipment.TotalBags != 0 {
		t.Fatalf("total bags: want=0 got=%d", shipment.TotalBags)
	}
}

func TestRegisterVehicleRejectsNonPositiveTonnage(t *testing.T) {
	svc := newTestService(memory.New())

	if _, err := svc.RegisterVehicle(context.Background(), models.RegisterVehicleRequest{
		VehicleNumber:  "DK-1234-AA",
		DeclaredTonnes: 0,
	}); err == nil {
		t.Fatal("want error for zero tonnage")
	}
}
