// Package audit records security-relevant events.
package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/barrybecker4/applets-sub001/internal/db"
	"github.com/barrybecker4/applets-sub001/internal/middleware"
)

// Event types for audit logging
const (
	EventTokenIssued   = "token_issued"
	EventTokenRejected = "token_rejected"
)

// AuditEvent represents a security-relevant event.
type AuditEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	EventType string             `bson:"eventType"`
	ClientID  string             `bson:"clientId,omitempty"`
	IP        string             `bson:"ip"`
	UserAgent string             `bson:"userAgent"`
	Details   string             `bson:"details,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// Logger writes audit events to the log and, when a database is
// configured, to the audit_log collection.
type Logger struct {
	database *db.MongoDB
}

// NewLogger accepts a nil database for log-only auditing.
func NewLogger(database *db.MongoDB) *Logger {
	return &Logger{database: database}
}

func newEvent(eventType, clientID string, r *http.Request, details string) AuditEvent {
	return AuditEvent{
		EventType: eventType,
		ClientID:  clientID,
		IP:        middleware.GetClientIP(r),
		UserAgent: r.UserAgent(),
		Details:   details,
		CreatedAt: time.Now(),
	}
}

// LogEvent records an event (fire-and-forget).
func (l *Logger) LogEvent(eventType, clientID string, r *http.Request, details string) {
	event := newEvent(eventType, clientID, r, details)

	log.Info().
		Str("component", "audit").
		Str("event", event.EventType).
		Str("client", event.ClientID).
		Str("ip", event.IP).
		Str("details", event.Details).
		Msg("audit")

	if l == nil || l.database == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := l.database.AuditLog().InsertOne(ctx, event); err != nil {
			log.Warn().Str("component", "audit").Err(err).Msg("audit log write failed")
		}
	}()
}
