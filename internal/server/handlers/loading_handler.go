package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/seedledger/internal/domain/models"
	"github.com/mamadbah2/seedledger/internal/service/loading"
	"github.com/mamadbah2/seedledger/internal/service/manifest"
)

// LoadingHandler exposes the loading ledger operations over HTTP.
type LoadingHandler struct {
	svc      *loading.Service
	manifest *manifest.Query
	logger   *zap.Logger
}

// NewLoadingHandler constructs the HTTP handler adapter.
func NewLoadingHandler(svc *loading.Service, manifestQuery *manifest.Query, logger *zap.Logger) *LoadingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoadingHandler{svc: svc, manifest: manifestQuery, logger: logger}
}

// AddLoad records a load of bags from a cycle onto a shipment. The
// entered/confirm quantity match is the caller-side double-entry check; the
// ledger re-validates positivity and the stock and capacity constraints.
func (h *LoadingHandler) AddLoad(c *gin.Context) {
	var req models.AddLoadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid load payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if req.Quantity != req.QuantityConfirm {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "quantity and quantity_confirm do not match",
			"kind":  "quantity_confirm_mismatch",
		})
		return
	}

	entry, warnings, err := h.svc.Add(c.Request.Context(), c.Param("id"), req.CycleID, req.Quantity, req.LoadedBy)
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"entry": entry, "warnings": warnings})
}

// RemoveLoad deletes a manifest entry and credits the bags back to its cycle.
func (h *LoadingHandler) RemoveLoad(c *gin.Context) {
	var req models.ActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid remove payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.svc.Remove(c.Request.Context(), c.Param("entryId"), req.RequestedBy); err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// UndoLast removes the most recently created entry of the shipment.
func (h *LoadingHandler) UndoLast(c *gin.Context) {
	var req models.ActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid undo payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	entry, err := h.svc.UndoLast(c.Request.Context(), c.Param("id"), req.RequestedBy)
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed_entry": entry})
}

// Dispatch finalizes the shipment, freezing its manifest.
func (h *LoadingHandler) Dispatch(c *gin.Context) {
	var req models.ActorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid dispatch payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	shipment, err := h.svc.Finalize(c.Request.Context(), c.Param("id"), req.RequestedBy)
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"shipment": shipment})
}

// Manifest returns the shipment's manifest ordered oldest first.
func (h *LoadingHandler) Manifest(c *gin.Context) {
	entries, err := h.manifest.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondLedgerError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
