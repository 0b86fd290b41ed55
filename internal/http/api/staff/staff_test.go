package staff

import (
	"bytes"
	"context"
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
	"github.com/loyaltyworks/loyaltyhub/internal/ledger"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"github.com/loyaltyworks/loyaltyhub/internal/qrtoken"
	"github.com/loyaltyworks/loyaltyhub/internal/ratelimit"
	"github.com/loyaltyworks/loyaltyhub/internal/rules"
	"github.com/loyaltyworks/loyaltyhub/internal/security"
	"gorm.io/gorm"
)

type staffFixture struct {
	t          *testing.T
	router     *gin.Engine
	db         *gorm.DB
	tokens     *qrtoken.Service
	cfg        config.Config
	tenant     *models.Tenant
	staffToken string
	clientCard *models.Card
}

func setupStaffAPI(t *testing.T) *staffFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:staffapi_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	staffUser := models.User{TenantID: tenant.ID, Email: "cashier@demo.test", PasswordHash: "x", Role: models.RoleCashier}
	if errCreate := conn.Create(&staffUser).Error; errCreate != nil {
		t.Fatalf("create staff user: %v", errCreate)
	}
	profile := models.StaffProfile{UserID: staffUser.ID, TenantID: tenant.ID, IsActive: true}
	if errCreate := conn.Create(&profile).Error; errCreate != nil {
		t.Fatalf("create staff profile: %v", errCreate)
	}

	clientUser := models.User{TenantID: tenant.ID, Email: "alice@example.com", Phone: "+15551234567", PasswordHash: "x"}
	if errCreate := conn.Create(&clientUser).Error; errCreate != nil {
		t.Fatalf("create client user: %v", errCreate)
	}
	card := models.Card{TenantID: tenant.ID, UserID: clientUser.ID, Status: models.CardActive, Tier: models.TierBronze}
	if errCreate := conn.Create(&card).Error; errCreate != nil {
		t.Fatalf("create card: %v", errCreate)
	}

	cfg := config.Default()
	cfg.JWT.Secret = "test-secret"

	tokens := qrtoken.NewService(conn)
	engine := ledger.NewEngine(conn, tokens, rules.NewResolver(conn), ratelimit.NewMemoryLimiter(), nil, ledger.Config{
		MaxEarnPerDayPerCard:  cfg.Limits.MaxEarnPerDayPerCard,
		MaxOpsPerHourPerStaff: cfg.Limits.MaxOpsPerHourPerStaff,
	})

	router := gin.New()
	RegisterStaffRoutes(router, conn, cfg, engine, tokens)

	token, errToken := security.GenerateSessionToken(cfg.JWT.Secret, &staffUser, time.Hour)
	if errToken != nil {
		t.Fatalf("generate staff token: %v", errToken)
	}

	return &staffFixture{
		t:          t,
		router:     router,
		db:         conn,
		tokens:     tokens,
		cfg:        cfg,
		tenant:     &tenant,
		staffToken: token,
		clientCard: &card,
	}
}

func (fx *staffFixture) post(path, idemKey string, body any) (*httptest.ResponseRecorder, map[string]any) {
	fx.t.Helper()
	var payload bytes.Buffer
	if errEncode := json.NewEncoder(&payload).Encode(body); errEncode != nil {
		fx.t.Fatalf("encode body: %v", errEncode)
	}
	req := httptest.NewRequest(http.MethodPost, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+fx.staffToken)
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
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

func (fx *staffFixture) issueQR() string {
	fx.t.Helper()
	token, err := fx.tokens.Issue(context.Background(), fx.clientCard)
	if err != nil {
		fx.t.Fatalf("issue qr: %v", err)
	}
	return token.Token
}

func TestStaffEarnFlow(t *testing.T) {
	fx := setupStaffAPI(t)
	qr := fx.issueQR()

	rec, body := fx.post("/v0/demo/staff/qr/validate", "", gin.H{"token": qr})
	if rec.Code != http.StatusOK {
		t.Fatalf("validate status = %d, body %s", rec.Code, rec.Body.String())
	}
	if body["email"] != "a****@example.com" {
		t.Fatalf("masked email = %v", body["email"])
	}

	rec, body = fx.post("/v0/demo/staff/earn", "e1", gin.H{
		"token":      qr,
		"amount":     "199.99",
		"receipt_id": "r-100",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("earn status = %d, body %s", rec.Code, rec.Body.String())
	}
	if body["status"] != "ok" || body["points"] != float64(5) {
		t.Fatalf("earn body = %v", body)
	}

	// Same key replays without touching the balance.
	rec, body = fx.post("/v0/demo/staff/earn", "e1", gin.H{
		"token":      fx.issueQR(),
		"amount":     "10000",
		"receipt_id": "r-100",
	})
	if rec.Code != http.StatusOK || body["replayed"] != true {
		t.Fatalf("replay = %d %v", rec.Code, body)
	}

	// Missing key is rejected before anything happens.
	rec, body = fx.post("/v0/demo/staff/earn", "", gin.H{
		"token":  fx.issueQR(),
		"amount": "50",
	})
	if rec.Code != http.StatusBadRequest || body["reason"] != string(ledger.CodeIdempotencyRequired) {
		t.Fatalf("missing key = %d %v", rec.Code, body)
	}
}

func TestStaffRedeemAndRefund(t *testing.T) {
	fx := setupStaffAPI(t)

	rec, body := fx.post("/v0/demo/staff/redeem", "r1", gin.H{
		"token":  fx.issueQR(),
		"amount": "10",
	})
	if rec.Code != http.StatusBadRequest || body["reason"] != string(ledger.CodeInsufficientPoints) {
		t.Fatalf("empty-card redeem = %d %v", rec.Code, body)
	}

	rec, body = fx.post("/v0/demo/staff/earn", "e1", gin.H{
		"token":      fx.issueQR(),
		"amount":     "1000",
		"receipt_id": "r-200",
	})
	if rec.Code != http.StatusOK || body["points"] != float64(30) {
		t.Fatalf("earn = %d %v", rec.Code, body)
	}

	rec, body = fx.post("/v0/demo/staff/refund", "rf1", gin.H{"receipt_id": "r-200"})
	if rec.Code != http.StatusOK || body["balance"] != float64(0) {
		t.Fatalf("refund = %d %v", rec.Code, body)
	}

	rec, body = fx.post("/v0/demo/staff/refund", "rf2", gin.H{"receipt_id": "r-200"})
	if rec.Code != http.StatusBadRequest || body["reason"] != string(ledger.CodeAlreadyRefunded) {
		t.Fatalf("double refund = %d %v", rec.Code, body)
	}

	rec, body = fx.post("/v0/demo/staff/refund", "rf3", gin.H{"receipt_id": "missing"})
	if rec.Code != http.StatusNotFound || body["reason"] != string(ledger.CodeReceiptNotFound) {
		t.Fatalf("unknown receipt = %d %v", rec.Code, body)
	}
}

func TestStaffRouteGuards(t *testing.T) {
	fx := setupStaffAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/v0/demo/staff/earn", bytes.NewBufferString("{}"))
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}

	// A client session must not reach the staff surface.
	var clientUser models.User
	if errFind := fx.db.Where("role = ?", models.RoleClient).First(&clientUser).Error; errFind != nil {
		t.Fatalf("load client user: %v", errFind)
	}
	clientToken, errToken := security.GenerateSessionToken(fx.cfg.JWT.Secret, &clientUser, time.Hour)
	if errToken != nil {
		t.Fatalf("generate client token: %v", errToken)
	}
	req = httptest.NewRequest(http.MethodPost, "/v0/demo/staff/earn", bytes.NewBufferString("{}"))
	req.Header.Set("Authorization", "Bearer "+clientToken)
	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("client-role status = %d, want 403", rec.Code)
	}
}
