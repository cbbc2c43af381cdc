package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/wasteledger/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/wasteledger/internal/domain"
	"github.com/seu-repo/wasteledger/internal/mocks"
	"github.com/seu-repo/wasteledger/internal/ports"
)

func newTestApp(txs ports.TransactionService, billing ports.BillingService) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(zap.NewNop())})
	api := app.Group("/api/v1")
	NewTransactionHandler(txs, zap.NewNop()).Register(api)
	NewBillingHandler(billing, zap.NewNop()).Register(api)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode body %s: %v", raw, err)
		}
	}
	return resp, out
}

func TestCreateTransaction(t *testing.T) {
	var got ports.CreateTransactionInput
	svc := &mocks.MockTransactionService{
		CreateTransactionFunc: func(ctx context.Context, in ports.CreateTransactionInput) (*domain.Transaction, error) {
			got = in
			return &domain.Transaction{TransactionID: "ST0114102026-01", State: domain.StateCreated}, nil
		},
	}
	app := newTestApp(svc, &mocks.MockBillingService{})

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/transactions", map[string]string{
		"store_id": "ST01", "store_name": "Green Mart", "store_location": "Pune",
		"manager_name": "Asha", "vendor_name": "Ravi Scrap",
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if body["transaction_id"] != "ST0114102026-01" {
		t.Errorf("unexpected body %v", body)
	}
	if got.StoreID != "ST01" || got.VendorName != "Ravi Scrap" {
		t.Errorf("input not forwarded: %+v", got)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		check  func(t *testing.T, body map[string]interface{})
	}{
		{"validation", &domain.ValidationError{Field: "vendor_name", Reason: "required"}, 400, func(t *testing.T, body map[string]interface{}) {
			if body["field"] != "vendor_name" {
				t.Errorf("expected field in body, got %v", body)
			}
		}},
		{"not found", domain.ErrTransactionNotFound, 404, nil},
		{"transition", &domain.TransitionError{From: domain.StateCreated, Event: domain.EventAddItem}, 409, func(t *testing.T, body map[string]interface{}) {
			if body["state"] != string(domain.StateCreated) {
				t.Errorf("expected state in body, got %v", body)
			}
		}},
		{"duplicate", domain.ErrDuplicateTransactionID, 409, nil},
		{"mismatch", &domain.CalibrationMismatchError{Fetched: 10, Entered: 10.2, Tolerance: 0.1}, 422, func(t *testing.T, body map[string]interface{}) {
			if body["tolerance"] != 0.1 {
				t.Errorf("expected tolerance in body, got %v", body)
			}
		}},
		{"credential", domain.ErrCredentialRejected, 403, nil},
		{"internal", io.ErrUnexpectedEOF, 500, func(t *testing.T, body map[string]interface{}) {
			if body["error"] != "internal server error" {
				t.Errorf("internal error leaked: %v", body)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mocks.MockTransactionService{
				SubmitCalibrationFunc: func(ctx context.Context, id string, in ports.CalibrationInput) (*domain.Transaction, error) {
					return nil, tt.err
				},
			}
			app := newTestApp(svc, &mocks.MockBillingService{})

			resp, body := doJSON(t, app, http.MethodPost, "/api/v1/transactions/ST0114102026-01/calibration",
				ports.CalibrationInput{Image: "x", FetchWeight: 10, EnterWeight: 10.2})
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestAddItem_ReturnsNewestFirst(t *testing.T) {
	svc := &mocks.MockTransactionService{
		AddItemFunc: func(ctx context.Context, id string, in ports.AddItemInput) ([]domain.Item, error) {
			return []domain.Item{
				{ItemNo: 1, MaterialType: domain.MaterialGlass, Weight: 1.5},
				{ItemNo: 2, MaterialType: in.MaterialType, Weight: in.Weight},
			}, nil
		},
	}
	app := newTestApp(svc, &mocks.MockBillingService{})

	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/transactions/ST0114102026-01/items", ports.AddItemInput{
		MaterialType: domain.MaterialCardboard, Weight: 2.25, WeightSource: domain.WeightSourceManual,
	})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	items := body["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	first := items[0].(map[string]interface{})
	if first["item_no"].(float64) != 2 {
		t.Errorf("expected newest item first, got %v", first)
	}
	if body["total_weight"].(float64) != 3.75 {
		t.Errorf("expected total 3.75, got %v", body["total_weight"])
	}
}

func TestCaptureWeight_JSON(t *testing.T) {
	var gotRaw []byte
	svc := &mocks.MockTransactionService{
		GetTransactionFunc: func(ctx context.Context, id string) (*domain.Transaction, error) {
			return &domain.Transaction{TransactionID: id}, nil
		},
		CaptureWeightFunc: func(ctx context.Context, raw []byte) (domain.Reading, error) {
			gotRaw = raw
			return domain.Reading{Weight: 72.4, Provider: "vision"}, nil
		},
	}
	app := newTestApp(svc, &mocks.MockBillingService{})

	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/transactions/ST0114102026-01/weight", map[string]string{"image": payload})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["weight"].(float64) != 72.4 || body["provider"] != "vision" {
		t.Errorf("unexpected body %v", body)
	}
	if string(gotRaw) != "png-bytes" {
		t.Errorf("expected decoded bytes, got %q", gotRaw)
	}
}

func TestCaptureWeight_StopsAtRequestDeadline(t *testing.T) {
	cancelled := make(chan error, 1)
	svc := &mocks.MockTransactionService{
		GetTransactionFunc: func(ctx context.Context, id string) (*domain.Transaction, error) {
			return &domain.Transaction{TransactionID: id}, nil
		},
		CaptureWeightFunc: func(ctx context.Context, raw []byte) (domain.Reading, error) {
			select {
			case <-ctx.Done():
				cancelled <- ctx.Err()
				return domain.Reading{}, ctx.Err()
			case <-time.After(2 * time.Second):
				return domain.Reading{Weight: 1, Provider: "vision"}, nil
			}
		},
	}
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(zap.NewNop())})
	app.Use(middleware.RequestContext(30 * time.Millisecond))
	NewTransactionHandler(svc, zap.NewNop()).Register(app.Group("/api/v1"))

	payload := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/transactions/ST0114102026-01/weight", map[string]string{"image": payload})
	if resp.StatusCode == fiber.StatusOK {
		t.Fatal("expected the capture to be abandoned")
	}
	select {
	case err := <-cancelled:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	default:
		t.Error("service context was never cancelled")
	}
}

func TestCaptureWeight_Multipart(t *testing.T) {
	var gotRaw []byte
	svc := &mocks.MockTransactionService{
		GetTransactionFunc: func(ctx context.Context, id string) (*domain.Transaction, error) {
			return &domain.Transaction{TransactionID: id}, nil
		},
		CaptureWeightFunc: func(ctx context.Context, raw []byte) (domain.Reading, error) {
			gotRaw = raw
			return domain.Reading{Weight: 5, Provider: "ocr"}, nil
		},
	}
	app := newTestApp(svc, &mocks.MockBillingService{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("image", "scale.jpg")
	part.Write([]byte("jpeg-bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/ST0114102026-01/weight", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if string(gotRaw) != "jpeg-bytes" {
		t.Errorf("expected uploaded bytes, got %q", gotRaw)
	}
}

func TestCaptureWeight_NotDetected(t *testing.T) {
	svc := &mocks.MockTransactionService{
		GetTransactionFunc: func(ctx context.Context, id string) (*domain.Transaction, error) {
			return &domain.Transaction{TransactionID: id}, nil
		},
	}
	app := newTestApp(svc, &mocks.MockBillingService{})

	payload := base64.StdEncoding.EncodeToString([]byte("blurry"))
	resp, body := doJSON(t, app, http.MethodPost, "/api/v1/transactions/ST0114102026-01/weight", map[string]string{"image": payload})
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if body["manual_entry_required"] != true {
		t.Errorf("expected manual_entry_required flag, got %v", body)
	}
}

func TestCaptureWeight_BadBase64(t *testing.T) {
	svc := &mocks.MockTransactionService{
		GetTransactionFunc: func(ctx context.Context, id string) (*domain.Transaction, error) {
			return &domain.Transaction{TransactionID: id}, nil
		},
	}
	app := newTestApp(svc, &mocks.MockBillingService{})

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/transactions/ST0114102026-01/weight", map[string]string{"image": "%%%"})
	if resp.StatusCode != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for undecodable image, got %d", resp.StatusCode)
	}
}

func TestListByStore(t *testing.T) {
	svc := &mocks.MockTransactionService{
		ListTransactionsByStoreFunc: func(ctx context.Context, storeID string) ([]domain.Transaction, error) {
			return []domain.Transaction{{TransactionID: storeID + "14102026-02"}, {TransactionID: storeID + "14102026-01"}}, nil
		},
	}
	app := newTestApp(svc, &mocks.MockBillingService{})

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/stores/ST01/transactions", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(body["transactions"].([]interface{})) != 2 {
		t.Errorf("unexpected body %v", body)
	}
}

func TestBillingRoutes(t *testing.T) {
	billing := &mocks.MockBillingService{
		GenerateBillFunc: func(ctx context.Context, id string) (*domain.Bill, error) {
			return &domain.Bill{TransactionID: id, Currency: "INR", Summary: domain.Summary{GrandTotalAmount: 55}}, nil
		},
		FinalizeTransactionFunc: func(ctx context.Context, id string) (*domain.Bill, error) {
			return nil, &domain.TransitionError{From: domain.StateFinalized, Event: domain.EventFinalize}
		},
	}
	app := newTestApp(&mocks.MockTransactionService{}, billing)

	resp, body := doJSON(t, app, http.MethodGet, "/api/v1/transactions/ST0114102026-01/bill", nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["currency"] != "INR" {
		t.Errorf("unexpected bill %v", body)
	}

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/transactions/ST0114102026-01/finalize", nil)
	if resp.StatusCode != fiber.StatusConflict {
		t.Errorf("expected 409 for second finalize, got %d", resp.StatusCode)
	}
}
