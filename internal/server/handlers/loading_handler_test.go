package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/seedledger/internal/config"
	"github.com/mamadbah2/seedledger/internal/repository/memory"
	"github.com/mamadbah2/seedledger/internal/server/handlers"
	"github.com/mamadbah2/seedledger/internal/server/router"
	auditsvc "github.com/mamadbah2/seedledger/internal/service/audit"
	loadingsvc "github.com/mamadbah2/seedledger/internal/service/loading"
	manifestsvc "github.com/mamadbah2/seedledger/internal/service/manifest"
	registrysvc "github.com/mamadbah2/seedledger/internal/service/registry"
)

func newTestRouter() *gin.Engine {
	store := memory.New()
	cfg := config.LoadingConfig{ToleranceBags: 20, ConflictRetries: 2, BagsPerTonne: 20}

	loadingSvc := loadingsvc.NewService(store, cfg, nil, nil)
	manifestQuery := manifestsvc.NewQuery(store, nil)
	registrySvc := registrysvc.NewService(store, cfg, nil)
	auditSvc := auditsvc.NewService(store, nil)

	loadingHandler := handlers.NewLoadingHandler(loadingSvc, manifestQuery, nil)
	registryHandler := handlers.NewRegistryHandler(registrySvc, auditSvc, store, nil)
	return router.New(loadingHandler, registryHandler, nil)
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func createCycle(t *testing.T, engine *gin.Engine, bags int) string {
	t.Helper()
	rec, body := doJSON(t, engine, http.MethodPost, "/api/v1/cycles", map[string]any{
		"farmer_id":        "farmer-1",
		"variety":          "sahel-108",
		"collection_point": "kolda",
		"total_bags":       bags,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create cycle: status=%d body=%v", rec.Code, body)
	}
	return body["cycle"].(map[string]any)["id"].(string)
}

func createShipment(t *testing.T, engine *gin.Engine, tonnes float64) string {
	t.Helper()
	rec, body := doJSON(t, engine, http.MethodPost, "/api/v1/shipments", map[string]any{
		"vehicle_number":   "DK-1234-AA",
		"transporter_name": "Transports Ndiaye",
		"declared_tonnes":  tonnes,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create shipment: status=%d body=%v", rec.Code, body)
	}
	return body["shipment"].(map[string]any)["id"].(string)
}

func addLoad(t *testing.T, engine *gin.Engine, shipmentID, cycleID string, quantity int) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	return doJSON(t, engine, http.MethodPost, fmt.Sprintf("/api/v1/shipments/%s/loads", shipmentID), map[string]any{
		"cycle_id":         cycleID,
		"quantity":         quantity,
		"quantity_confirm": quantity,
		"loaded_by":        "agent-1",
	})
}

func TestAddLoadRejectsConfirmMismatch(t *testing.T) {
	engine := newTestRouter()
	cycleID := createCycle(t, engine, 100)
	shipmentID := createShipment(t, engine, 10)

	rec, body := doJSON(t, engine, http.MethodPost, fmt.Sprintf("/api/v1/shipments/%s/loads", shipmentID), map[string]any{
		"cycle_id":         cycleID,
		"quantity":         50,
		"quantity_confirm": 55,
		"loaded_by":        "agent-1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", rec.Code)
	}
	if body["kind"] != "quantity_confirm_mismatch" {
		t.Fatalf("kind: got %v", body["kind"])
	}
}

func TestAddLoadReportsInsufficientStock(t *testing.T) {
	engine := newTestRouter()
	cycleID := createCycle(t, engine, 30)
	shipmentID := createShipment(t, engine, 10) // 200 bag target

	rec, body := addLoad(t, engine, shipmentID, cycleID, 40)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status: want=409 got=%d body=%v", rec.Code, body)
	}
	if body["kind"] != "insufficient_stock" {
		t.Fatalf("kind: got %v", body["kind"])
	}
	if body["remaining"] != float64(30) {
		t.Fatalf("remaining: got %v", body["remaining"])
	}
}

func TestLoadingFlowOverHTTP(t *testing.T) {
	engine := newTestRouter()
	cycleID := createCycle(t, engine, 100)
	shipmentID := createShipment(t, engine, 5) // 100 bag target

	rec, body := addLoad(t, engine, shipmentID, cycleID, 90)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add: status=%d body=%v", rec.Code, body)
	}

	// Within tolerance (90 vs target 100, tolerance 20): dispatch succeeds.
	rec, body = doJSON(t, engine, http.MethodPost, fmt.Sprintf("/api/v1/shipments/%s/dispatch", shipmentID), map[string]any{
		"requested_by": "supervisor-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("dispatch: status=%d body=%v", rec.Code, body)
	}
	if body["shipment"].(map[string]any)["status"] != "dispatched" {
		t.Fatalf("status after dispatch: %v", body["shipment"])
	}

	// Ledger is frozen.
	rec, body = addLoad(t, engine, shipmentID, cycleID, 5)
	if rec.Code != http.StatusConflict {
		t.Fatalf("add after dispatch: status=%d", rec.Code)
	}
	if body["kind"] != "shipment_locked" {
		t.Fatalf("kind: got %v", body["kind"])
	}

	// The audit still balances.
	rec, body = doJSON(t, engine, http.MethodGet, "/api/v1/audit", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit: status=%d", rec.Code)
	}
	if body["balanced"] != true {
		t.Fatalf("audit balanced: got %v", body)
	}
}

func TestUndoLastOverHTTP(t *testing.T) {
	engine := newTestRouter()
	cycleID := createCycle(t, engine, 100)
	shipmentID := createShipment(t, engine, 10)

	if rec, body := addLoad(t, engine, shipmentID, cycleID, 40); rec.Code != http.StatusCreated {
		t.Fatalf("add: status=%d body=%v", rec.Code, body)
	}

	rec, body := doJSON(t, engine, http.MethodPost, fmt.Sprintf("/api/v1/shipments/%s/undo-last", shipmentID), map[string]any{
		"requested_by": "agent-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("undo: status=%d body=%v", rec.Code, body)
	}

	rec, body = doJSON(t, engine, http.MethodGet, fmt.Sprintf("/api/v1/shipments/%s/manifest", shipmentID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("manifest: status=%d", rec.Code)
	}
	if entries, ok := body["entries"].([]any); ok && len(entries) != 0 {
		t.Fatalf("manifest after undo: want empty, got %v", entries)
	}

	// A second undo has nothing left to target.
	rec, body = doJSON(t, engine, http.MethodPost, fmt.Sprintf("/api/v1/shipments/%s/undo-last", shipmentID), map[string]any{
		"requested_by": "agent-1",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("second undo: status=%d", rec.Code)
	}
	if body["kind"] != "nothing_to_undo" {
		t.Fatalf("kind: got %v", body["kind"])
	}
}

func TestManifestUnknownShipmentIs404(t *testing.T) {
	engine := newTestRouter()

	rec, body := doJSON(t, engine, http.MethodGet, "/api/v1/shipments/missing/manifest", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: want=404 got=%d body=%v", rec.Code, body)
	}
	if body["kind"] != "unknown_shipment" {
		t.Fatalf("kind: got %v", body["kind"])
	}
}
