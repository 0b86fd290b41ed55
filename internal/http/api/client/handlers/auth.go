package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loyaltyworks/loyaltyhub/internal/config"
	httpapi "github.com/loyaltyworks/loyaltyhub/internal/http"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"github.com/loyaltyworks/loyaltyhub/internal/notify"
	"github.com/loyaltyworks/loyaltyhub/internal/ratelimit"
	"github.com/loyaltyworks/loyaltyhub/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	emailCodeTTL     = 15 * time.Minute
	otpTTL           = 5 * time.Minute
	maxCodeAttempts  = 5
	verificationSize = 6
)

// AuthHandler handles client registration, login and verification.
type AuthHandler struct {
	db       *gorm.DB
	jwtCfg   config.JWTConfig
	limits   config.LimitsConfig
	limiter  ratelimit.Limiter
	notifier notify.Notifier
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig, limits config.LimitsConfig, limiter ratelimit.Limiter, notifier notify.Notifier) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg, limits: limits, limiter: limiter, notifier: notifier}
}

// registerRequest defines the request body for client registration.
type registerRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Register creates a client account with its loyalty card and sends an
// email verification code.
func (h *AuthHandler) Register(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)

	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	password := strings.TrimSpace(body.Password)
	if email == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing email or password"})
		return
	}
	if len(password) < 8 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password too short"})
		return
	}

	var exists models.User
	errCheck := h.db.WithContext(c.Request.Context()).
		Where("tenant_id = ? AND email = ?", tenantID, email).
		First(&exists).Error
	if errCheck == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	} else if !errors.Is(errCheck, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	user := models.User{
		TenantID:     tenantID,
		Email:        email,
		Phone:        strings.TrimSpace(body.Phone),
		PasswordHash: hash,
		Role:         models.RoleClient,
	}
	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(&user).Error; errCreate != nil {
			return errCreate
		}
		card := models.Card{
			TenantID: tenantID,
			UserID:   user.ID,
			Status:   models.CardActive,
			Tier:     models.TierBronze,
		}
		return tx.Create(&card).Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create account failed"})
		return
	}

	if errSend := h.sendEmailCode(c, &user); errSend != nil {
		// The account exists; the client can request another code.
		log.WithError(errSend).Warn("client register: send verification code failed")
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":    user.ID,
		"email": user.Email,
	})
}

// loginRequest defines the request body for login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a client and issues a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)

	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	password := strings.TrimSpace(body.Password)
	if email == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing email or password"})
		return
	}

	key := ratelimit.Key("login", strconv.FormatUint(tenantID, 10), email)
	limited, errLimit := h.limiter.CheckAndIncrement(c.Request.Context(), key, h.limits.LoginPerHour)
	if errLimit != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rate limit check failed"})
		return
	}
	if limited {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "RATE_LIMIT"})
		return
	}

	var user models.User
	errFind := h.db.WithContext(c.Request.Context()).
		Where("tenant_id = ? AND email = ?", tenantID, email).
		First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if !security.CheckPassword(user.PasswordHash, password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, errToken := security.GenerateSessionToken(h.jwtCfg.Secret, &user, h.jwtCfg.Expiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate token failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":          token,
		"role":           user.Role,
		"email_verified": user.EmailVerified,
	})
}

// verifyEmailRequest defines the request body for email verification.
type verifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyEmail checks a delivered code against the latest open challenge.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)

	var body verifyEmailRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	code := strings.TrimSpace(body.Code)
	if email == "" || code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing email or code"})
		return
	}

	var user models.User
	errFind := h.db.WithContext(c.Request.Context()).
		Where("tenant_id = ? AND email = ?", tenantID, email).
		First(&user).Error
	if errFind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid code"})
		return
	}

	var challenge models.VerificationCode
	errChallenge := h.db.WithContext(c.Request.Context()).
		Where("tenant_id = ? AND user_id = ? AND is_used = ?", tenantID, user.ID, false).
		Order("id DESC").
		First(&challenge).Error
	if errChallenge != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid code"})
		return
	}
	if time.Now().After(challenge.ExpiresAt) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code expired"})
		return
	}
	if challenge.Attempts >= maxCodeAttempts {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many attempts"})
		return
	}
	if challenge.CodeHash != security.HashCode(h.jwtCfg.Secret, code) {
		h.db.WithContext(c.Request.Context()).
			Model(&challenge).
			Update("attempts", gorm.Expr("attempts + 1"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid code"})
		return
	}

	errTx := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if errUpdate := tx.Model(&challenge).Update("is_used", true).Error; errUpdate != nil {
			return errUpdate
		}
		return tx.Model(&user).Update("email_verified", true).Error
	})
	if errTx != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"email_verified": true})
}

// resendCodeRequest defines the request body for code resend.
type resendCodeRequest struct {
	Email string `json:"email"`
}

// ResendCode issues a fresh email verification code.
func (h *AuthHandler) ResendCode(c *gin.Context) {
	tenantID := httpapi.TenantIDFrom(c)

	var body resendCodeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing email"})
		return
	}

	var user models.User
	errFind := h.db.WithContext(c.Request.Context()).
		Where("tenant_id = ? AND email = ?", tenantID, email).
		First(&user).Error
	if errFind != nil {
		// Do not reveal whether the account exists.
		c.JSON(http.StatusOK, gin.H{"sent": true})
		return
	}
	if user.EmailVerified {
		c.JSON(http.StatusOK, gin.H{"sent": false, "email_verified": true})
		return
	}

	if errSend := h.sendEmailCode(c, &user); errSend != nil {
		if errors.Is(errSend, errRateLimited) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "RATE_LIMIT"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "send code failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}

var errRateLimited = errors.New("rate limited")

// sendEmailCode mints, stores and delivers a verification code, enforcing
// the per-user hourly ceiling.
func (h *AuthHandler) sendEmailCode(c *gin.Context, user *models.User) error {
	key := ratelimit.Key("emailcode", strconv.FormatUint(user.TenantID, 10), strconv.FormatUint(user.ID, 10))
	limited, errLimit := h.limiter.CheckAndIncrement(c.Request.Context(), key, h.limits.EmailCodesPerHour)
	if errLimit != nil {
		return errLimit
	}
	if limited {
		return errRateLimited
	}

	code, errCode := security.GenerateNumericCode(verificationSize)
	if errCode != nil {
		return errCode
	}
	now := time.Now()
	challenge := models.VerificationCode{
		TenantID:   user.TenantID,
		UserID:     user.ID,
		CodeHash:   security.HashCode(h.jwtCfg.Secret, code),
		ExpiresAt:  now.Add(emailCodeTTL),
		LastSentAt: &now,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&challenge).Error; errCreate != nil {
		return errCreate
	}
	return h.notifier.SendEmailCode(user.Email, code)
}

// RequestOTP sends a phone verification code to the session user.
func (h *AuthHandler) RequestOTP(c *gin.Context) {
	user := httpapi.UserFrom(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if strings.TrimSpace(user.Phone) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no phone on file"})
		return
	}

	key := ratelimit.Key("otp", strconv.FormatUint(user.TenantID, 10), strconv.FormatUint(user.ID, 10))
	limited, errLimit := h.limiter.CheckAndIncrement(c.Request.Context(), key, h.limits.OTPPerHour)
	if errLimit != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rate limit check failed"})
		return
	}
	if limited {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "RATE_LIMIT"})
		return
	}

	code, errCode := security.GenerateNumericCode(verificationSize)
	if errCode != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate code failed"})
		return
	}
	now := time.Now()
	expires := now.Add(otpTTL)
	errUpdate := h.db.WithContext(c.Request.Context()).
		Model(user).
		Updates(map[string]any{
			"otp_hash":         security.HashCode(h.jwtCfg.Secret, code),
			"otp_expires_at":   expires,
			"otp_requested_at": now,
			"otp_attempts":     0,
		}).Error
	if errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store code failed"})
		return
	}
	if errSend := h.notifier.SendPhoneCode(user.Phone, code); errSend != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "send code failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": true})
}

// verifyOTPRequest defines the request body for OTP verification.
type verifyOTPRequest struct {
	Code string `json:"code"`
}

// VerifyOTP checks the delivered phone code and marks the phone verified.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	user := httpapi.UserFrom(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body verifyOTPRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}
	if user.OTPAttempts >= maxCodeAttempts {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many attempts"})
		return
	}

	if !user.OTPValid(security.HashCode(h.jwtCfg.Secret, code), time.Now()) {
		h.db.WithContext(c.Request.Context()).
			Model(user).
			Update("otp_attempts", gorm.Expr("otp_attempts + 1"))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid code"})
		return
	}

	errUpdate := h.db.WithContext(c.Request.Context()).
		Model(user).
		Updates(map[string]any{
			"phone_verified": true,
			"otp_hash":       "",
			"otp_expires_at": nil,
			"otp_attempts":   0,
		}).Error
	if errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"phone_verified": true})
}
