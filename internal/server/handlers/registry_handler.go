package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/seedledger/internal/domain/models"
	"github.com/mamadbah2/seedledger/internal/repository"
	"github.com/mamadbah2/seedledger/internal/service/audit"
	"github.com/mamadbah2/seedledger/internal/service/registry"
)

// RegistryHandler exposes intake (harvest recording, vehicle registration),
// aggregate reads, and the on-demand conservation audit.
type RegistryHandler struct {
	svc      *registry.Service
	auditSvc *audit.Service
	store    repository.LedgerStore
	logger   *zap.Logger
}

// NewRegistryHandler constructs the HTTP handler adapter.
func NewRegistryHandler(svc *registry.Service, auditSvc *audit.Service, store repository.LedgerStore, logger *zap.Logger) *RegistryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistryHandler{svc: svc, auditSvc: auditSvc, store: store, logger: logger}
}

// RecordHarvest creates a production cycle from a recorded harvest.
func (h *RegistryHandler) RecordHarvest(c *gin.Context) {
	var req models.RecordHarvestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid harvest payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	cycle, err := h.svc.RecordHarvest(c.Request.Context(), req)
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"cycle": cycle})
}

// RegisterVehicle creates a shipment open for loading.
func (h *RegistryHandler) RegisterVehicle(c *gin.Context) {
	var req models.RegisterVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid vehicle payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	shipment, err := h.svc.RegisterVehicle(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("failed registering vehicle", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"shipment": shipment})
}

// GetCycle returns one production cycle's current state.
func (h *RegistryHandler) GetCycle(c *gin.Context) {
	cycle, err := h.store.GetCycle(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrCycleNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "production cycle not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed loading cycle", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cycle": cycle})
}

// GetShipment returns one shipment's current state.
func (h *RegistryHandler) GetShipment(c *gin.Context) {
	shipment, err := h.store.GetShipment(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrShipmentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "shipment not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed loading shipment", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"shipment": shipment})
}

// RunAudit executes an on-demand conservation sweep.
func (h *RegistryHandler) RunAudit(c *gin.Context) {
	findings, err := h.auditSvc.Run(c.Request.Context())
	if err != nil {
		h.logger.Error("conservation audit failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "audit failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"balanced": len(findings) == 0, "findings": findings})
}
