package registry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/seedledger/internal/config"
	"github.com/mamadbah2/seedledger/internal/domain/models"
	"github.com/mamadbah2/seedledger/internal/repository"
)

// Service records harvested lots and registers vehicles for loading. The
// ledger itself never recomputes harvested totals or target capacities; they
// are fixed here at intake.
type Service struct {
	store  repository.LedgerStore
	cfg    config.LoadingConfig
	logger *zap.Logger
}

// NewService wires an intake service.
func NewService(store repository.LedgerStore, cfg config.LoadingConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cfg: cfg, logger: logger}
}

// RecordHarvest creates a production cycle with all harvested bags still
// unallocated.
func (s *Service) RecordHarvest(ctx context.Context, req models.RecordHarvestRequest) (*models.ProductionCycle, error) {
	if req.TotalBags <= 0 {
		return nil, &models.InvalidQuantityError{Quantity: req.TotalBags}
	}

	cycle := &models.ProductionCycle{
		ID:                  uuid.NewString(),
		FarmerID:            req.FarmerID,
		Variety:             req.Variety,
		CollectionPoint:     req.CollectionPoint,
		TotalBagsHarvested:  req.TotalBags,
		BagsRemainingToLoad: req.TotalBags,
		CreatedAt:           time.Now().UTC(),
	}

	if err := s.store.CreateCycle(ctx, cycle); err != nil {
		return nil, fmt.Errorf("create production cycle: %w", err)
	}

	s.logger.Info("harvest recorded",
		zap.String("cycle_id", cycle.ID),
		zap.String("farmer_id", cycle.FarmerID),
		zap.String("variety", cycle.Variety),
		zap.Int("total_bags", cycle.TotalBagsHarvested))
	return cycle, nil
}

// RegisterVehicle creates a shipment in the loading state with its target
// bag capacity derived from the declared tonnage.
func (s *Service) RegisterVehicle(ctx context.Context, req models.RegisterVehicleRequest) (*models.Shipment, error) {
	if req.DeclaredTonnes <= 0 {
		return nil, fmt.Errorf("declared tonnage must be positive, got %v", req.DeclaredTonnes)
	}

	shipment := &models.Shipment{
		ID:                uuid.NewString(),
		VehicleNumber:     req.VehicleNumber,
		TransporterName:   req.TransporterName,
		DeclaredTonnes:    req.DeclaredTonnes,
		TargetBagCapacity: int(math.Round(req.DeclaredTonnes * float64(s.cfg.BagsPerTonne))),
		Status:            models.ShipmentStatusLoading,
		AllowedVarieties:  req.AllowedVarieties,
		CollectionPoint:   req.CollectionPoint,
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.store.CreateShipment(ctx, shipment); err != nil {
		return nil, fmt.Errorf("create shipment: %w", err)
	}

	s.logger.Info("vehicle registered for loading",
		zap.String("shipment_id", shipment.ID),
		zap.String("vehicle", shipment.VehicleNumber),
		zap.Float64("declared_tonnes", shipment.DeclaredTonnes),
		zap.Int("target_capacity", shipment.TargetBagCapacity))
	return shipment, nil
}
