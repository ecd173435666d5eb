package dispatch

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/seedledger/internal/domain/models"
	"github.com/mamadbah2/seedledger/internal/repository/sheets"
	"github.com/mamadbah2/seedledger/pkg/clients/whatsapp"
)

const timeLayout = "2006-01-02 15:04"

// Notifier fans a committed dispatch out to the ops channels: a WhatsApp
// alert to the loading group and register rows in the gate-pass spreadsheet.
// Both targets are optional and best-effort; failures are logged and never
// propagate back into the ledger.
type Notifier struct {
	messenger     whatsapp.Client
	opsGroupID    string
	register      sheets.Repository
	registerRange string
	logger        *zap.Logger
}

// NewNotifier wires a dispatch notifier. messenger and register may each be
// nil to disable that channel.
func NewNotifier(messenger whatsapp.Client, opsGroupID string, register sheets.Repository, registerRange string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		messenger:     messenger,
		opsGroupID:    opsGroupID,
		register:      register,
		registerRange: registerRange,
		logger:        logger,
	}
}

// ShipmentDispatched implements loading.DispatchObserver.
func (n *Notifier) ShipmentDispatched(ctx context.Context, shipment models.Shipment, entries []models.ManifestEntry) {
	if n.register != nil {
		if err := n.register.AppendRows(ctx, n.registerRange, registerRows(shipment, entries)); err != nil {
			n.logger.Error("failed to append dispatch register rows",
				zap.String("shipment_id", shipment.ID), zap.Error(err))
		}
	}

	if n.messenger != nil && n.opsGroupID != "" {
		if err := n.messenger.SendText(ctx, n.opsGroupID, alertText(shipment, entries)); err != nil {
			n.logger.Error("failed to send dispatch alert",
				zap.String("shipment_id", shipment.ID), zap.Error(err))
		}
	}
}

func registerRows(shipment models.Shipment, entries []models.ManifestEntry) [][]interface{} {
	dispatchedAt := ""
	if shipment.DispatchedAt != nil {
		dispatchedAt = shipment.DispatchedAt.UTC().Format(timeLayout)
	}

	rows := make([][]interface{}, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []interface{}{
			dispatchedAt,
			shipment.VehicleNumber,
			shipment.TransporterName,
			shipment.ID,
			entry.CycleID,
			entry.BagsLoaded,
			entry.LoadedBy,
			entry.CreatedAt.UTC().Format(timeLayout),
		})
	}
	return rows
}

func alertText(shipment models.Shipment, entries []models.ManifestEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Vehicle %s (%s) dispatched with %d bags against a target of %d.\n",
		shipment.VehicleNumber, shipment.TransporterName, shipment.TotalBags, shipment.TargetBagCapacity)
	fmt.Fprintf(&b, "Manifest: %d entries.", len(entries))
	if shipment.DispatchedAt != nil {
		fmt.Fprintf(&b, " Dispatched at %s.", shipment.DispatchedAt.UTC().Format(timeLayout))
	}
	return b.String()
}
