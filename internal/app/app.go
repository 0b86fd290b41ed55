// Package app wires configuration, storage, the ledger engine and the HTTP
// surfaces into a running process.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/loyaltyworks/loyaltyhub/internal/audit"
	"github.com/loyaltyworks/loyaltyhub/internal/config"
	"github.com/loyaltyworks/loyaltyhub/internal/db"
	"github.com/loyaltyworks/loyaltyhub/internal/http/api/admin"
	"github.com/loyaltyworks/loyaltyhub/internal/http/api/client"
	"github.com/loyaltyworks/loyaltyhub/internal/http/api/pos"
	"github.com/loyaltyworks/loyaltyhub/internal/http/api/staff"
	"github.com/loyaltyworks/loyaltyhub/internal/ledger"
	"github.com/loyaltyworks/loyaltyhub/internal/logging"
	"github.com/loyaltyworks/loyaltyhub/internal/notify"
	"github.com/loyaltyworks/loyaltyhub/internal/qrtoken"
	"github.com/loyaltyworks/loyaltyhub/internal/ratelimit"
	"github.com/loyaltyworks/loyaltyhub/internal/rules"
)

const shutdownTimeout = 10 * time.Second

// Run boots the server and blocks until ctx is cancelled or the listener
// fails.
func Run(ctx context.Context, configPath string) error {
	cfg, errCfg := config.Load(configPath)
	if errCfg != nil {
		return errCfg
	}
	logging.Setup(cfg.Logging)

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	limiter := buildLimiter(cfg)
	sink := audit.NewSink(conn)
	defer sink.Close()

	tokens := qrtoken.NewService(conn)
	resolver := rules.NewResolver(conn)
	reportingLoc := cfg.ReportingLocation()
	engine := ledger.NewEngine(conn, tokens, resolver, limiter, sink, ledger.Config{
		MaxEarnPerDayPerCard:  cfg.Limits.MaxEarnPerDayPerCard,
		MaxOpsPerHourPerStaff: cfg.Limits.MaxOpsPerHourPerStaff,
		ReportingLocation:     reportingLoc,
	})

	sweeper := qrtoken.NewSweeper(conn)
	sweeper.Start(ctx)

	var notifier notify.Notifier = notify.LogNotifier{}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	client.RegisterClientRoutes(router, conn, cfg, limiter, tokens, notifier)
	staff.RegisterStaffRoutes(router, conn, cfg, engine, tokens)
	pos.RegisterPOSRoutes(router, conn, engine)
	admin.RegisterAdminRoutes(router, conn, cfg, sink, reportingLoc)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			log.WithError(errShutdown).Warn("server shutdown")
		}
	}()

	log.Infof("listening on %s", cfg.Server.Addr)
	if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
		return errServe
	}
	return nil
}

// buildLimiter returns the redis-backed limiter when configured, otherwise
// the in-process fallback. Counters must be shared across replicas for the
// ceilings to hold globally; single-process deployments do not care.
func buildLimiter(cfg config.Config) ratelimit.Limiter {
	if cfg.Redis.Addr == "" {
		log.Info("rate limits: using in-process counters")
		return ratelimit.NewMemoryLimiter()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	log.Infof("rate limits: using redis at %s", cfg.Redis.Addr)
	return ratelimit.NewRedisLimiter(rdb)
}
