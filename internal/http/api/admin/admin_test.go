package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/loyaltyworks/loyaltyhub/internal/config"
	"github.com/loyaltyworks/loyaltyhub/internal/db"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"github.com/loyaltyworks/loyaltyhub/internal/security"
	"gorm.io/gorm"
)

type adminFixture struct {
	t          *testing.T
	router     *gin.Engine
	db         *gorm.DB
	tenant     *models.Tenant
	adminToken string
}

func setupAdminAPI(t *testing.T) *adminFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:adminapi_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}

	tenant := models.Tenant{Slug: "demo", Name: "Demo Coffee"}
	if errCreate := conn.Create(&tenant).Error; errCreate != nil {
		t.Fatalf("create tenant: %v", errCreate)
	}
	adminUser := models.User{TenantID: tenant.ID, Email: "owner@demo.test", PasswordHash: "x", Role: models.RoleAdmin}
	if errCreate := conn.Create(&adminUser).Error; errCreate != nil {
		t.Fatalf("create admin: %v", errCreate)
	}

	cfg := config.Default()
	cfg.JWT.Secret = "test-secret"

	router := gin.New()
	RegisterAdminRoutes(router, conn, cfg, nil, time.UTC)

	token, errToken := security.GenerateSessionToken(cfg.JWT.Secret, &adminUser, time.Hour)
	if errToken != nil {
		t.Fatalf("generate admin token: %v", errToken)
	}

	return &adminFixture{t: t, router: router, db: conn, tenant: &tenant, adminToken: token}
}

func (fx *adminFixture) do(method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	fx.t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if errEncode := json.NewEncoder(&payload).Encode(body); errEncode != nil {
			fx.t.Fatalf("encode body: %v", errEncode)
		}
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+fx.adminToken)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	parsed := map[string]any{}
	if rec.Body.Len() > 0 {
		if errDecode := json.Unmarshal(rec.Body.Bytes(), &parsed); errDecode != nil {
			fx.t.Fatalf("decode response %q: %v", rec.Body.String(), errDecode)
		}
	}
	return rec, parsed
}

func TestRuleLifecycle(t *testing.T) {
	fx := setupAdminAPI(t)

	rec, body := fx.do(http.MethodPost, "/v0/demo/admin/rules", gin.H{
		"earn_percent":  "5",
		"rounding_mode": "round",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create rule = %d, body %s", rec.Code, rec.Body.String())
	}
	ruleID := body["id"]

	rec, _ = fx.do(http.MethodPost, "/v0/demo/admin/rules", gin.H{
		"earn_percent":  "5",
		"rounding_mode": "banker",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad rounding mode = %d", rec.Code)
	}

	rec, body = fx.do(http.MethodGet, "/v0/demo/admin/rules", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list rules = %d", rec.Code)
	}
	listed, _ := body["rules"].([]any)
	if len(listed) != 1 {
		t.Fatalf("rules listed = %d, want 1", len(listed))
	}
	first, _ := listed[0].(map[string]any)
	if first["rounding_mode"] != "ROUND" || first["silver_threshold"] != float64(500) {
		t.Fatalf("rule = %v", first)
	}

	rec, _ = fx.do(http.MethodDelete, fmt.Sprintf("/v0/demo/admin/rules/%v", ruleID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete rule = %d", rec.Code)
	}
	rec, _ = fx.do(http.MethodDelete, fmt.Sprintf("/v0/demo/admin/rules/%v", ruleID), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete missing rule = %d, want 404", rec.Code)
	}
}

func TestTargetedOfferScope(t *testing.T) {
	fx := setupAdminAPI(t)

	client := models.User{TenantID: fx.tenant.ID, Email: "alice@example.com", PasswordHash: "x"}
	if errCreate := fx.db.Create(&client).Error; errCreate != nil {
		t.Fatalf("create client: %v", errCreate)
	}

	rec, body := fx.do(http.MethodPost, "/v0/demo/admin/offers", gin.H{
		"title":        "VIP bonus",
		"type":         "bonus",
		"bonus_points": 100,
		"user_ids":     []uint64{client.ID},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create targeted offer = %d, body %s", rec.Code, rec.Body.String())
	}

	// The false scope flag must survive the insert; stored as true, the
	// offer would surface to every client, not just its targets.
	var stored models.Offer
	if errFind := fx.db.First(&stored, uint64(body["id"].(float64))).Error; errFind != nil {
		t.Fatalf("reload offer: %v", errFind)
	}
	if stored.AppliesToAll {
		t.Fatal("targeted offer stored as applies-to-all")
	}
	if !stored.IsActive {
		t.Fatal("new offer stored inactive")
	}

	rec, body = fx.do(http.MethodPost, "/v0/demo/admin/offers", gin.H{
		"title": "Everyone",
		"type":  "bonus",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create open offer = %d", rec.Code)
	}
	stored = models.Offer{}
	if errFind := fx.db.First(&stored, uint64(body["id"].(float64))).Error; errFind != nil {
		t.Fatalf("reload offer: %v", errFind)
	}
	if !stored.AppliesToAll {
		t.Fatal("open offer stored as targeted")
	}
}

func TestCardBlockUnblock(t *testing.T) {
	fx := setupAdminAPI(t)

	client := models.User{TenantID: fx.tenant.ID, Email: "alice@example.com", PasswordHash: "x"}
	if errCreate := fx.db.Create(&client).Error; errCreate != nil {
		t.Fatalf("create client: %v", errCreate)
	}
	card := models.Card{TenantID: fx.tenant.ID, UserID: client.ID, Status: models.CardActive, Tier: models.TierBronze}
	if errCreate := fx.db.Create(&card).Error; errCreate != nil {
		t.Fatalf("create card: %v", errCreate)
	}

	rec, _ := fx.do(http.MethodPost, fmt.Sprintf("/v0/demo/admin/cards/%d/block", card.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("block = %d, body %s", rec.Code, rec.Body.String())
	}
	var reloaded models.Card
	if errFind := fx.db.First(&reloaded, card.ID).Error; errFind != nil {
		t.Fatalf("reload card: %v", errFind)
	}
	if reloaded.Status != models.CardBlocked {
		t.Fatalf("status after block = %s", reloaded.Status)
	}

	rec, _ = fx.do(http.MethodPost, fmt.Sprintf("/v0/demo/admin/cards/%d/unblock", card.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unblock = %d", rec.Code)
	}
	if errFind := fx.db.First(&reloaded, card.ID).Error; errFind != nil {
		t.Fatalf("reload card: %v", errFind)
	}
	if reloaded.Status != models.CardActive {
		t.Fatalf("status after unblock = %s", reloaded.Status)
	}
}

func TestAdminRoleGuard(t *testing.T) {
	fx := setupAdminAPI(t)

	cashier := models.User{TenantID: fx.tenant.ID, Email: "cashier@demo.test", PasswordHash: "x", Role: models.RoleCashier}
	if errCreate := fx.db.Create(&cashier).Error; errCreate != nil {
		t.Fatalf("create cashier: %v", errCreate)
	}
	token, errToken := security.GenerateSessionToken("test-secret", &cashier, time.Hour)
	if errToken != nil {
		t.Fatalf("generate token: %v", errToken)
	}

	req := httptest.NewRequest(http.MethodGet, "/v0/demo/admin/rules", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cashier on admin surface = %d, want 403", rec.Code)
	}
}
