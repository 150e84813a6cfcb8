package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actor types
const (
	ActorSystem   = "system"
	ActorOperator = "operator"
	ActorChain    = "chain"
	ActorProvider = "provider"
)

// AuditLog records status transitions and deployment outcomes.
type AuditLog struct {
	ID         uuid.UUID  `json:"id"`
	ActorType  string     `json:"actor_type"` // system / operator / chain / provider
	Action     string     `json:"action"`
	EntityType string     `json:"entity_type"`
	EntityID   *uuid.UUID `json:"entity_id,omitempty"`
	Meta       any        `json:"meta,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
