package models

import (
	"time"

	"github.com/google/uuid"
)

// EffectType distinguishes the deferred side-effect channels.
type EffectType string

const (
	// EffectNotify is delivered to the notification dispatcher.
	EffectNotify EffectType = "notify"
	// EffectActivity is appended to the activity/audit log.
	EffectActivity EffectType = "activity"
)

// Effect is a deferred side effect emitted by a successful operation. Effects
// are collected by the service layer and processed by a dispatcher outside the
// primary transaction; their delivery never influences the operation's outcome.
type Effect struct {
	ID         string         `json:"id"`
	Type       EffectType     `json:"type"`
	TenantID   int64          `json:"tenantId"`
	Event      string         `json:"event"`
	Subject    string         `json:"subject"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// NewNotification builds a notification effect.
func NewNotification(tenantID int64, event, subject string, payload map[string]any) Effect {
	return newEffect(EffectNotify, tenantID, event, subject, payload)
}

// NewActivity builds an activity-log effect.
func NewActivity(tenantID int64, event, subject string, payload map[string]any) Effect {
	return newEffect(EffectActivity, tenantID, event, subject, payload)
}

func newEffect(kind EffectType, tenantID int64, event, subject string, payload map[string]any) Effect {
	return Effect{
		ID:         uuid.New().String(),
		Type:       kind,
		TenantID:   tenantID,
		Event:      event,
		Subject:    subject,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}
