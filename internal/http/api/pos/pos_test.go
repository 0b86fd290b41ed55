package pos

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
	"github.com/loyaltyworks/loyaltyhub/internal/db"
	"github.com/loyaltyworks/loyaltyhub/internal/ledger"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"github.com/loyaltyworks/loyaltyhub/internal/qrtoken"
	"github.com/loyaltyworks/loyaltyhub/internal/ratelimit"
	"github.com/loyaltyworks/loyaltyhub/internal/rules"
	"gorm.io/gorm"
)

const testPOSKey = "pos_test_key"

func setupPOSAPI(t *testing.T) (*gin.Engine, *qrtoken.Service, *models.Card) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:posapi_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}

	tenant := models.Tenant{Slug: "demo", Name: "Demo Coffee", POSAPIKey: testPOSKey}
	if errCreate := conn.Create(&tenant).Error; errCreate != nil {
		t.Fatalf("create tenant: %v", errCreate)
	}
	user := models.User{TenantID: tenant.ID, Email: "alice@example.com", PasswordHash: "x"}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	card := models.Card{TenantID: tenant.ID, UserID: user.ID, Status: models.CardActive, Tier: models.TierBronze}
	if errCreate := conn.Create(&card).Error; errCreate != nil {
		t.Fatalf("create card: %v", errCreate)
	}

	tokens := qrtoken.NewService(conn)
	engine := ledger.NewEngine(conn, tokens, rules.NewResolver(conn), ratelimit.NewMemoryLimiter(), nil, ledger.Config{})

	router := gin.New()
	RegisterPOSRoutes(router, conn, engine)
	return router, tokens, &card
}

func postPOS(t *testing.T, router *gin.Engine, key string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var payload bytes.Buffer
	if errEncode := json.NewEncoder(&payload).Encode(body); errEncode != nil {
		t.Fatalf("encode body: %v", errEncode)
	}
	req := httptest.NewRequest(http.MethodPost, "/v0/demo/pos/earn", &payload)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-POS-API-Key", key)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	parsed := map[string]any{}
	if rec.Body.Len() > 0 {
		if errDecode := json.Unmarshal(rec.Body.Bytes(), &parsed); errDecode != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), errDecode)
		}
	}
	return rec, parsed
}

func TestPOSEarn(t *testing.T) {
	router, tokens, card := setupPOSAPI(t)
	qr, errIssue := tokens.Issue(context.Background(), card)
	if errIssue != nil {
		t.Fatalf("issue qr: %v", errIssue)
	}

	rec, body := postPOS(t, router, testPOSKey, gin.H{
		"token":      qr.Token,
		"amount":     "100",
		"receipt_id": "pos-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("earn status = %d, body %s", rec.Code, rec.Body.String())
	}
	if body["points"] != float64(3) {
		t.Fatalf("points = %v, want 3", body["points"])
	}

	// Terminal retry with the same receipt: replayed, not double-credited.
	retryQR, errRetry := tokens.Issue(context.Background(), card)
	if errRetry != nil {
		t.Fatalf("issue retry qr: %v", errRetry)
	}
	rec, body = postPOS(t, router, testPOSKey, gin.H{
		"token":      retryQR.Token,
		"amount":     "100",
		"receipt_id": "pos-1",
	})
	if rec.Code != http.StatusOK || body["replayed"] != true {
		t.Fatalf("retry = %d %v", rec.Code, body)
	}
}

func TestPOSEarnRejections(t *testing.T) {
	router, tokens, card := setupPOSAPI(t)
	qr, errIssue := tokens.Issue(context.Background(), card)
	if errIssue != nil {
		t.Fatalf("issue qr: %v", errIssue)
	}

	rec, _ := postPOS(t, router, "", gin.H{"token": qr.Token, "amount": "100", "receipt_id": "pos-2"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing key status = %d, want 401", rec.Code)
	}

	rec, _ = postPOS(t, router, "wrong-key", gin.H{"token": qr.Token, "amount": "100", "receipt_id": "pos-2"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key status = %d, want 401", rec.Code)
	}

	rec, body := postPOS(t, router, testPOSKey, gin.H{"token": qr.Token, "amount": "100"})
	if rec.Code != http.StatusBadRequest || body["reason"] != string(ledger.CodeIdempotencyRequired) {
		t.Fatalf("missing receipt = %d %v", rec.Code, body)
	}

	rec, body = postPOS(t, router, testPOSKey, gin.H{
		"token": qr.Token, "amount": "100", "receipt_id": "pos-3", "location_id": 9999,
	})
	if rec.Code != http.StatusNotFound || body["reason"] != "LOCATION_NOT_FOUND" {
		t.Fatalf("bad location = %d %v", rec.Code, body)
	}
}
