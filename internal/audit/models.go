// Package audit records compliance-relevant events in an append-only log.
// Every entry carries an HMAC integrity hash over its canonical fields, so
// tampering with stored entries is detectable even by someone with write
// access to the store.
package audit

import (
	"time"

	"github.com/google/uuid"

	"varsityhub/internal/integrity"
)

// ActionType classifies what the actor did.
type ActionType string

const (
	ActionDataAccess       ActionType = "data_access"
	ActionDataModification ActionType = "data_modification"
	ActionExport           ActionType = "export"
	ActionView             ActionType = "view"
	ActionLogin            ActionType = "login"
	ActionPermissionChange ActionType = "permission_change"
)

// ResourceType classifies what the action touched.
type ResourceType string

const (
	ResourceStudentData        ResourceType = "student_data"
	ResourceHealthData         ResourceType = "health_data"
	ResourceTournamentData     ResourceType = "tournament_data"
	ResourceAdministrativeData ResourceType = "administrative_data"
)

// Entry is one compliance event. Constructed at the moment of the event and
// immutable afterwards; the integrity hash covers the entry's own fields so
// later edits to the stored row invalidate it.
type Entry struct {
	ID            uuid.UUID
	ActorID       string
	ActionType    ActionType
	ResourceType  ResourceType
	ResourceID    string
	NetworkOrigin string
	ClientAgent   string
	Notes         string
	CreatedAt     time.Time
	IntegrityHash string
}

// Fields returns the canonical subset covered by the integrity stamp.
func (e Entry) Fields() integrity.EntryFields {
	return integrity.EntryFields{
		ActorID:       e.ActorID,
		ActionType:    string(e.ActionType),
		ResourceType:  string(e.ResourceType),
		ResourceID:    e.ResourceID,
		Timestamp:     e.CreatedAt,
		NetworkOrigin: e.NetworkOrigin,
		ClientAgent:   e.ClientAgent,
	}
}
