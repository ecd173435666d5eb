package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/seedledger/internal/domain/models"
)

// respondLedgerError translates a ledger error into an HTTP response with a
// machine-readable kind and the numeric context the caller needs to explain
// the rejection. Unexpected errors become an opaque 500.
func respondLedgerError(c *gin.Context, logger *zap.Logger, err error) {
	var ledgerErr models.LedgerError
	if !errors.As(err, &ledgerErr) {
		logger.Error("ledger operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	body := gin.H{
		"error": ledgerErr.Error(),
		"kind":  ledgerErr.Kind(),
	}

	status := http.StatusConflict
	switch e := ledgerErr.(type) {
	case *models.UnknownShipmentError, *models.UnknownProducerError, *models.EntryNotFoundError:
		status = http.StatusNotFound
	case *models.InvalidQuantityError:
		status = http.StatusBadRequest
	case *models.InsufficientStockError:
		body["remaining"] = e.Remaining
	case *models.CapacityExceededError:
		body["remaining_space"] = e.RemainingSpace
	case *models.OutOfToleranceError:
		body["delta"] = e.Delta()
		body["total_bags"] = e.TotalBags
		body["target_capacity"] = e.Target
		body["tolerance"] = e.Tolerance
	}

	c.JSON(status, body)
}
