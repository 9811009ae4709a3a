package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/vqcheckout/wardrate/internal/cache"
	"github.com/vqcheckout/wardrate/internal/config"
	"github.com/vqcheckout/wardrate/internal/locations"
	"github.com/vqcheckout/wardrate/internal/models"
	"github.com/vqcheckout/wardrate/internal/rates"
	"github.com/vqcheckout/wardrate/internal/security"
	"gorm.io/gorm"
)

var testJWT = config.JWTConfig{Secret: "test-secret", Expiry: time.Hour}

func newTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if sqlDB, errDB := conn.DB(); errDB == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if errMigrate := conn.AutoMigrate(
		&models.Admin{},
		&models.Rate{},
		&models.RateLocation{},
		&models.Location{},
		&models.CacheEntry{},
		&models.SecurityLog{},
	); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	hash, errHash := security.HashPassword("hunter2")
	if errHash != nil {
		t.Fatalf("hash: %v", errHash)
	}
	admin := models.Admin{Username: "root", PasswordHash: hash, IsEnabled: true}
	if errCreate := conn.Create(&admin).Error; errCreate != nil {
		t.Fatalf("seed admin: %v", errCreate)
	}

	c := cache.New("test", cache.NewRuntimeTier(), cache.NewStoreTier(conn))
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	RegisterAdminRoutes(engine, Deps{
		DB:     conn,
		JWT:    testJWT,
		Rates:  rates.NewStore(conn, c),
		Seeder: locations.NewSeeder(conn),
	})
	return engine, conn
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal: %v", errMarshal)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	return recorder
}

func login(t *testing.T, engine *gin.Engine) string {
	t.Helper()
	recorder := doJSON(t, engine, http.MethodPost, "/v0/admin/login", "", gin.H{
		"username": "root",
		"password": "hunter2",
	})
	if recorder.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", recorder.Code, recorder.Body.String())
	}
	var body struct {
		Token string `json:"token"`
	}
	if errDecode := json.Unmarshal(recorder.Body.Bytes(), &body); errDecode != nil {
		t.Fatalf("decode login: %v", errDecode)
	}
	if body.Token == "" {
		t.Fatalf("empty token")
	}
	return body.Token
}

func TestLogin_WrongPassword(t *testing.T) {
	engine, _ := newTestServer(t)
	recorder := doJSON(t, engine, http.MethodPost, "/v0/admin/login", "", gin.H{
		"username": "root",
		"password": "wrong",
	})
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", recorder.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	engine, _ := newTestServer(t)

	if recorder := doJSON(t, engine, http.MethodGet, "/v0/admin/rates", "", nil); recorder.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d", recorder.Code)
	}
	if recorder := doJSON(t, engine, http.MethodGet, "/v0/admin/rates", "bogus", nil); recorder.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d", recorder.Code)
	}
}

func TestRateCRUDOverHTTP(t *testing.T) {
	engine, _ := newTestServer(t)
	token := login(t, engine)

	created := doJSON(t, engine, http.MethodPost, "/v0/admin/rates", token, gin.H{
		"carrier_instance_id": 1,
		"label":               "Nội thành",
		"base_cost":           20000,
		"ward_codes":          []string{"26734"},
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", created.Code, created.Body.String())
	}
	var rule rates.Rule
	if errDecode := json.Unmarshal(created.Body.Bytes(), &rule); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if rule.ID == 0 || rule.Label != "Nội thành" {
		t.Fatalf("unexpected created rule: %+v", rule)
	}

	idPath := "/v0/admin/rates/" + jsonNumber(rule.ID)

	updated := doJSON(t, engine, http.MethodPut, idPath, token, gin.H{"base_cost": 30000})
	if updated.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", updated.Code, updated.Body.String())
	}
	var after rates.Rule
	if errDecode := json.Unmarshal(updated.Body.Bytes(), &after); errDecode != nil {
		t.Fatalf("decode: %v", errDecode)
	}
	if after.BaseCost != 30000 {
		t.Fatalf("update not applied: %+v", after)
	}

	listed := doJSON(t, engine, http.MethodGet, "/v0/admin/rates?instance=1", token, nil)
	if listed.Code != http.StatusOK {
		t.Fatalf("list status = %d", listed.Code)
	}

	deleted := doJSON(t, engine, http.MethodDelete, idPath, token, nil)
	if deleted.Code != http.StatusOK {
		t.Fatalf("delete status = %d", deleted.Code)
	}

	missing := doJSON(t, engine, http.MethodGet, idPath, token, nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", missing.Code)
	}
}

func TestRateValidation(t *testing.T) {
	engine, _ := newTestServer(t)
	token := login(t, engine)

	noLabel := doJSON(t, engine, http.MethodPost, "/v0/admin/rates", token, gin.H{
		"carrier_instance_id": 1,
		"base_cost":           20000,
	})
	if noLabel.Code != http.StatusBadRequest {
		t.Fatalf("missing label status = %d", noLabel.Code)
	}

	negative := doJSON(t, engine, http.MethodPost, "/v0/admin/rates", token, gin.H{
		"carrier_instance_id": 1,
		"label":               "x",
		"base_cost":           -5,
	})
	if negative.Code != http.StatusBadRequest {
		t.Fatalf("negative cost status = %d", negative.Code)
	}
}

func TestHealthzIsPublic(t *testing.T) {
	engine, _ := newTestServer(t)
	recorder := doJSON(t, engine, http.MethodGet, "/healthz", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d", recorder.Code)
	}
}

func jsonNumber(id uint64) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}
