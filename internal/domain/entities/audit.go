package entities

import "time"

// Audit actions recorded for relationship mutations.
const (
	AuditRelationshipCreated = "relationship.created"
	AuditRelationshipUpdated = "relationship.updated"
	AuditRelationshipDeleted = "relationship.deleted"
	AuditTermRelationsPurged = "term.relationships_purged"
)

// AuditEntry represents a logged action in the system.
type AuditEntry struct {
	ID             int64          `json:"id"`
	Action         string         `json:"action"`
	RelationshipID string         `json:"relationship_id,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
