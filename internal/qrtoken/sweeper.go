package qrtoken

import (
	"context"
	"time"

	"github.com/loyaltyworks/loyaltyhub/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	defaultSweepInterval = time.Minute
	// sweepGrace keeps just-expired tokens around long enough for staff to
	// receive a QR_EXPIRED rather than QR_NOT_FOUND on a slow scan.
	sweepGrace = time.Minute
)

// Sweeper deletes expired unused QR tokens in the background. Used tokens
// are kept: used_at is part of the audit story for consumed scans.
type Sweeper struct {
	db       *gorm.DB
	interval time.Duration
	now      func() time.Time
}

// NewSweeper constructs a sweeper with the default interval.
func NewSweeper(db *gorm.DB) *Sweeper {
	if db == nil {
		return nil
	}
	return &Sweeper{db: db, interval: defaultSweepInterval, now: time.Now}
}

// Start launches the sweep loop in a background goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	if s == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go s.run(ctx)
	log.Infof("qr token sweeper started (interval=%s)", s.interval)
}

func (s *Sweeper) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if deleted, err := s.SweepOnce(ctx); err != nil {
			log.WithError(err).Warn("qr token sweep failed")
		} else if deleted > 0 {
			log.Debugf("qr token sweep deleted %d expired tokens", deleted)
		}

		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return
		case <-timer.C:
		}
	}
}

// SweepOnce deletes expired unused tokens older than the grace window and
// returns the number of rows removed.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-sweepGrace)
	res := s.db.WithContext(ctx).
		Where("used_at IS NULL AND expires_at < ?", cutoff).
		Delete(&models.QRToken{})
	return res.RowsAffected, res.Error
}
