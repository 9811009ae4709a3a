package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/vqcheckout/wardrate/internal/cache"
	"github.com/vqcheckout/wardrate/internal/models"
	"github.com/vqcheckout/wardrate/internal/ratelimit"
	"github.com/vqcheckout/wardrate/internal/rates"
	"github.com/vqcheckout/wardrate/internal/security"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if sqlDB, errDB := conn.DB(); errDB == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if errMigrate := conn.AutoMigrate(
		&models.Rate{},
		&models.RateLocation{},
		&models.CacheEntry{},
		&models.Address{},
		&models.SecurityLog{},
	); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func postJSON(t *testing.T, engine *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, errMarshal := json.Marshal(body)
	if errMarshal != nil {
		t.Fatalf("marshal: %v", errMarshal)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if errDecode := json.Unmarshal(recorder.Body.Bytes(), &out); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	return out
}

func newQuoteEngine(t *testing.T, conn *gorm.DB, limit int) (*gin.Engine, *rates.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c := cache.New("test", cache.NewRuntimeTier(), cache.NewStoreTier(conn))
	store := rates.NewStore(conn, c)
	resolver := rates.NewResolver(store, c)
	limiter := ratelimit.NewManager(nil, "", limit, 10*time.Minute)
	auditor := security.NewLogger(conn)

	engine := gin.New()
	handler := NewQuoteHandler(resolver, limiter, auditor)
	engine.POST("/v1/quote", handler.Quote)
	return engine, store
}

func TestQuote_ResolvesDecision(t *testing.T) {
	conn := openTestDB(t)
	engine, store := newQuoteEngine(t, conn, 100)

	id, errCreate := store.CreateRate(context.Background(), rates.Rule{
		InstanceID: 1, Label: "Standard", BaseCost: 25000,
		StopAfterMatch: true, WardCodes: []string{"26734"},
	})
	if errCreate != nil {
		t.Fatalf("create: %v", errCreate)
	}

	recorder := postJSON(t, engine, "/v1/quote", gin.H{
		"carrier_instance_id": 1,
		"ward_code":           "26734",
		"subtotal":            150000,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	if uint64(body["rate_id"].(float64)) != id {
		t.Fatalf("unexpected rate_id: %v", body)
	}
	if body["cost"].(float64) != 25000 {
		t.Fatalf("unexpected cost: %v", body)
	}
}

func TestQuote_FallbackForUnknownWard(t *testing.T) {
	conn := openTestDB(t)
	engine, _ := newQuoteEngine(t, conn, 100)

	recorder := postJSON(t, engine, "/v1/quote", gin.H{
		"carrier_instance_id": 1,
		"ward_code":           "99999",
		"subtotal":            150000,
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	body := decodeBody(t, recorder)
	if body["rate_id"].(float64) != 0 {
		t.Fatalf("expected fallback decision, got %v", body)
	}
}

func TestQuote_ValidatesInput(t *testing.T) {
	conn := openTestDB(t)
	engine, _ := newQuoteEngine(t, conn, 100)

	if recorder := postJSON(t, engine, "/v1/quote", gin.H{"subtotal": 100}); recorder.Code != http.StatusBadRequest {
		t.Fatalf("missing ward_code: status = %d", recorder.Code)
	}
	if recorder := postJSON(t, engine, "/v1/quote", gin.H{"ward_code": "26734", "subtotal": -1}); recorder.Code != http.StatusBadRequest {
		t.Fatalf("negative subtotal: status = %d", recorder.Code)
	}
}

func TestQuote_RateLimited(t *testing.T) {
	conn := openTestDB(t)
	engine, _ := newQuoteEngine(t, conn, 2)

	payload := gin.H{"carrier_instance_id": 1, "ward_code": "26734", "subtotal": 100}
	for i := 0; i < 2; i++ {
		if recorder := postJSON(t, engine, "/v1/quote", payload); recorder.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, recorder.Code)
		}
	}
	recorder := postJSON(t, engine, "/v1/quote", payload)
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", recorder.Code)
	}

	var blocked models.SecurityLog
	if errFind := conn.Where("action = ? AND decision = ?", "quote", models.SecurityDecisionBlocked).
		Take(&blocked).Error; errFind != nil {
		t.Fatalf("expected blocked audit row: %v", errFind)
	}
}

func newPhoneEngine(t *testing.T, conn *gorm.DB, enabled bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	limiter := ratelimit.NewManager(nil, "", 100, 10*time.Minute)
	auditor := security.NewLogger(conn)

	engine := gin.New()
	handler := NewPhoneHandler(conn, limiter, auditor, enabled)
	engine.POST("/v1/phone/lookup", handler.Lookup)
	return engine
}

func TestPhoneLookup_ReturnsMostRecentAddress(t *testing.T) {
	conn := openTestDB(t)
	engine := newPhoneEngine(t, conn, true)

	rows := []models.Address{
		{Phone: "0912345678", FirstName: "Minh", Email: "old@example.com", WardCode: "26734"},
		{Phone: "0912345678", FirstName: "Minh", Email: "nguyenminh@example.com", WardCode: "26737"},
	}
	for i := range rows {
		if errCreate := conn.Create(&rows[i]).Error; errCreate != nil {
			t.Fatalf("seed: %v", errCreate)
		}
	}

	recorder := postJSON(t, engine, "/v1/phone/lookup", gin.H{"phone": "091 234 5678"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", recorder.Code, recorder.Body.String())
	}
	body := decodeBody(t, recorder)
	if body["found"] != true {
		t.Fatalf("expected found, got %v", body)
	}
	address := body["address"].(map[string]any)
	if address["ward_code"] != "26737" {
		t.Fatalf("expected most recent row, got %v", address)
	}
	if address["email"] != "ng********@example.com" {
		t.Fatalf("email must be masked, got %v", address["email"])
	}
}

func TestPhoneLookup_UnknownPhone(t *testing.T) {
	conn := openTestDB(t)
	engine := newPhoneEngine(t, conn, true)

	recorder := postJSON(t, engine, "/v1/phone/lookup", gin.H{"phone": "0912345678"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
	if body := decodeBody(t, recorder); body["found"] != false {
		t.Fatalf("expected found=false, got %v", body)
	}
}

func TestPhoneLookup_InvalidPhone(t *testing.T) {
	conn := openTestDB(t)
	engine := newPhoneEngine(t, conn, true)

	recorder := postJSON(t, engine, "/v1/phone/lookup", gin.H{"phone": "12345"})
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", recorder.Code)
	}
}

func TestPhoneLookup_Disabled(t *testing.T) {
	conn := openTestDB(t)
	engine := newPhoneEngine(t, conn, false)

	recorder := postJSON(t, engine, "/v1/phone/lookup", gin.H{"phone": "0912345678"})
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("status = %d", recorder.Code)
	}
}
