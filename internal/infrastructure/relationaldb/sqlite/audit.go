package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ersonp/termgraph/internal/domain/entities"
)

// LogAction logs an action to the audit log.
func (r *Repository) LogAction(ctx context.Context, action string, relationshipID string, details map[string]any) error {
	var detailsJSON sql.NullString
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshaling details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(data), Valid: true}
	}

	var relID sql.NullString
	if relationshipID != "" {
		relID = sql.NullString{String: relationshipID, Valid: true}
	}

	query := `INSERT INTO audit_log (action, relationship_id, details, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, action, relID, detailsJSON, formatTime(timeNow()))
	if err != nil {
		return fmt.Errorf("logging action: %w", err)
	}
	return nil
}

// FindAuditLog finds audit log entries for a relationship, oldest first.
func (r *Repository) FindAuditLog(ctx context.Context, relationshipID string) ([]entities.AuditEntry, error) {
	query := `
		SELECT id, action, relationship_id, details, created_at
		FROM audit_log
		WHERE relationship_id = ?
		ORDER BY id ASC
	`
	return r.queryAuditLog(ctx, query, relationshipID)
}

// FindAuditLogByAction finds the most recent audit entries for an action.
func (r *Repository) FindAuditLogByAction(ctx context.Context, action string, limit int) ([]entities.AuditEntry, error) {
	query := `
		SELECT id, action, relationship_id, details, created_at
		FROM audit_log
		WHERE action = ?
		ORDER BY id DESC
		LIMIT ?
	`
	return r.queryAuditLog(ctx, query, action, limit)
}

// queryAuditLog is a helper to execute audit log queries.
func (r *Repository) queryAuditLog(ctx context.Context, query string, args ...any) ([]entities.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var entries []entities.AuditEntry
	for rows.Next() {
		var entry entities.AuditEntry
		var relID, details sql.NullString
		var createdAt string

		if err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&relID,
			&details,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		entry.RelationshipID = relID.String
		if entry.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}

		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &entry.Details); err != nil {
				return nil, fmt.Errorf("unmarshaling details: %w", err)
			}
		}

		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
