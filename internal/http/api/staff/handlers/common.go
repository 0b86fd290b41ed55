package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/loyaltyworks/loyaltyhub/internal/ledger"
)

// respondResult writes a ledger outcome in the wire shape shared by the
// staff and POS surfaces: {"status":"ok",...} or {"status":"failed",
// "reason":CODE}.
func respondResult(c *gin.Context, res *ledger.Result) {
	if res.OK() {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"points":   res.Points,
			"balance":  res.Balance,
			"replayed": res.Replayed,
		})
		return
	}
	c.JSON(statusForCode(res.Code), gin.H{
		"status": "failed",
		"reason": res.Code,
	})
}

// statusForCode maps reason codes to HTTP statuses.
func statusForCode(code ledger.Code) int {
	switch code {
	case ledger.CodeQRNotFound, ledger.CodeReceiptNotFound:
		return http.StatusNotFound
	case ledger.CodeCardBusy:
		return http.StatusConflict
	case ledger.CodeMaxEarnPerDay, ledger.CodeMaxOpsPerHour:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}

// idempotencyKey reads the at-most-once key from the request header, falling
// back to the body field for older staff app builds.
func idempotencyKey(c *gin.Context, bodyKey string) string {
	if key := strings.TrimSpace(c.GetHeader("Idempotency-Key")); key != "" {
		return key
	}
	return strings.TrimSpace(bodyKey)
}

// maskEmail hides the local part except its first character.
func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 1 {
		return email
	}
	return email[:1] + strings.Repeat("*", at-1) + email[at:]
}

// maskPhone keeps only the last two digits.
func maskPhone(phone string) string {
	if len(phone) <= 2 {
		return phone
	}
	return strings.Repeat("*", len(phone)-2) + phone[len(phone)-2:]
}
