package dispatch

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mamadbah2/seedledger/internal/domain/models"
)

type fakeMessenger struct {
	to   []string
	body []string
}

func (m *fakeMessenger) SendText(_ context.Context, to string, body string) error {
	m.to = append(m.to, to)
	m.body = append(m.body, body)
	return nil
}

type fakeSheets struct {
	ranges []string
	rows   [][][]interface{}
}

func (s *fakeSheets) AppendRows(_ context.Context, sheetRange string, rows [][]interface{}) error {
	s.ranges = append(s.ranges, sheetRange)
	s.rows = append(s.rows, rows)
	return nil
}

func (s *fakeSheets) ReadRange(context.Context, string) ([][]interface{}, error) {
	return nil, nil
}

func dispatchedShipment() (models.Shipment, []models.ManifestEntry) {
	now := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	shipment := models.Shipment{
		ID:                "ship-1",
		VehicleNumber:     "DK-1234-AA",
		TransporterName:   "Transports Ndiaye",
		TargetBagCapacity: 200,
		TotalBags:         190,
		Status:            models.ShipmentStatusDispatched,
		DispatchedAt:      &now,
	}
	entries := []models.ManifestEntry{
		{ID: "e1", ShipmentID: "ship-1", CycleID: "c1", BagsLoaded: 100, LoadedBy: "agent-1", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "e2", ShipmentID: "ship-1", CycleID: "c2", BagsLoaded: 90, LoadedBy: "agent-2", CreatedAt: now.Add(-time.Hour)},
	}
	return shipment, entries
}

func TestShipmentDispatchedFansOut(t *testing.T) {
	messenger := &fakeMessenger{}
	register := &fakeSheets{}
	notifier := NewNotifier(messenger, "ops-group", register, "Dispatches!A:H", nil)

	shipment, entries := dispatchedShipment()
	notifier.ShipmentDispatched(context.Background(), shipment, entries)

	if len(messenger.to) != 1 || messenger.to[0] != "ops-group" {
		t.Fatalf("alert recipients: got %v", messenger.to)
	}
	if !strings.Contains(messenger.body[0], "DK-1234-AA") || !strings.Contains(messenger.body[0], "190") {
		t.Fatalf("alert body missing vehicle or total: %q", messenger.body[0])
	}

	if len(register.rows) != 1 {
		t.Fatalf("register appends: want=1 got=%d", len(register.rows))
	}
	if register.ranges[0] != "Dispatches!A:H" {
		t.Fatalf("register range: got %s", register.ranges[0])
	}
	rows := register.rows[0]
	if len(rows) != 2 {
		t.Fatalf("register rows: want one per entry (2), got %d", len(rows))
	}
	if rows[0][4] != "c1" || rows[0][5] != 100 {
		t.Fatalf("first register row: got %v", rows[0])
	}
}

func TestShipmentDispatchedToleratesMissingChannels(t *testing.T) {
	notifier := NewNotifier(nil, "", nil, "", nil)
	shipment, entries := dispatchedShipment()

	// Must not panic with both channels disabled.
	notifier.ShipmentDispatched(context.Background(), shipment, entries)
}
