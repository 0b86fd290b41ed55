// Package audit persists the per-tenant audit trail. Events are written
// asynchronously: the emitting request never blocks on, or fails because
// of, the audit store.
package audit

import (
	"context"
	"time"

	"github.com/loyaltyworks/loyaltyhub/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	queueSize    = 1024
	writeTimeout = 5 * time.Second
)

// Event is one audit fact.
type Event struct {
	TenantID uint64
	UserID   *uint64
	Action   string
	Metadata map[string]any
}

// Sink accepts events and writes them in the background. When the queue is
// full events are dropped with a warning rather than applying backpressure.
type Sink struct {
	db     *gorm.DB
	events chan Event
	done   chan struct{}
}

// NewSink constructs and starts a sink.
func NewSink(db *gorm.DB) *Sink {
	s := &Sink{
		db:     db,
		events: make(chan Event, queueSize),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Emit enqueues an event. Never blocks.
func (s *Sink) Emit(event Event) {
	if s == nil {
		return
	}
	select {
	case s.events <- event:
	default:
		log.Warnf("audit: queue full, dropping event action=%s tenant=%d", event.Action, event.TenantID)
	}
}

// Close drains pending events and stops the worker.
func (s *Sink) Close() {
	if s == nil {
		return
	}
	close(s.events)
	<-s.done
}

func (s *Sink) run() {
	defer close(s.done)
	for event := range s.events {
		s.write(event)
	}
}

func (s *Sink) write(event Event) {
	// Detached from any request context: the request that emitted the
	// event may already be gone.
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	row := models.AuditLog{
		TenantID: event.TenantID,
		UserID:   event.UserID,
		Action:   event.Action,
		Metadata: event.Metadata,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		log.WithError(err).Warnf("audit: write failed action=%s tenant=%d", event.Action, event.TenantID)
	}
}
