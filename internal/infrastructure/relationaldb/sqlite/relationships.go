package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/entities"
)

const relationshipColumns = `id, source_term_id, target_term_id, type, description, created_by, created_at, updated_at`

// Insert stores a new relationship.
func (r *Repository) Insert(ctx context.Context, rel *entities.Relationship) error {
	query := `
		INSERT INTO relationships (` + relationshipColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		rel.ID,
		rel.SourceTermID,
		rel.TargetTermID,
		string(rel.Type),
		rel.Description,
		rel.CreatedBy,
		formatTime(rel.CreatedAt),
		formatTime(rel.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("relationship %s --%s--> %s already exists: %w",
			rel.SourceTermID, rel.Type, rel.TargetTermID, apperrors.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("saving relationship: %w", err)
	}
	return nil
}

// FindByID finds a relationship by ID.
func (r *Repository) FindByID(ctx context.Context, id string) (*entities.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM relationships WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	rel, err := scanRelationship(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("relationship %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rel, nil
}

// FindByEndpoint finds relationships touching the term from the given side.
func (r *Repository) FindByEndpoint(ctx context.Context, termID string, dir entities.Direction) ([]entities.Relationship, error) {
	var where string
	args := []any{termID}
	switch dir {
	case entities.DirectionOutgoing:
		where = "source_term_id = ?"
	case entities.DirectionIncoming:
		where = "target_term_id = ?"
	default:
		where = "source_term_id = ? OR target_term_id = ?"
		args = append(args, termID)
	}

	query := `SELECT ` + relationshipColumns + ` FROM relationships WHERE ` + where + ` ORDER BY created_at, id`
	return r.queryRelationships(ctx, query, args...)
}

// FindByType finds all relationships of a given type.
func (r *Repository) FindByType(ctx context.Context, relType entities.RelationType) ([]entities.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM relationships WHERE type = ? ORDER BY created_at, id`
	return r.queryRelationships(ctx, query, string(relType))
}

// FindAmong finds relationships whose endpoints are both in termIDs.
func (r *Repository) FindAmong(ctx context.Context, termIDs []string) ([]entities.Relationship, error) {
	if len(termIDs) == 0 {
		return []entities.Relationship{}, nil
	}

	in := placeholders(len(termIDs))
	query := `SELECT ` + relationshipColumns + ` FROM relationships
		WHERE source_term_id IN (` + in + `) AND target_term_id IN (` + in + `)
		ORDER BY created_at, id`

	args := stringArgs(termIDs)
	return r.queryRelationships(ctx, query, append(args, args...)...)
}

// Update persists the mutable fields of a relationship.
func (r *Repository) Update(ctx context.Context, rel *entities.Relationship) error {
	query := `UPDATE relationships SET type = ?, description = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.ExecContext(ctx, query,
		string(rel.Type),
		rel.Description,
		formatTime(rel.UpdatedAt),
		rel.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("relationship %s --%s--> %s already exists: %w",
			rel.SourceTermID, rel.Type, rel.TargetTermID, apperrors.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("updating relationship: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("relationship %s: %w", rel.ID, apperrors.ErrNotFound)
	}
	return nil
}

// Delete deletes a relationship by ID.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM relationships WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting relationship: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("relationship %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// DeleteByEndpoint deletes every relationship touching the term.
func (r *Repository) DeleteByEndpoint(ctx context.Context, termID string) (int, error) {
	query := `DELETE FROM relationships WHERE source_term_id = ? OR target_term_id = ?`
	return r.deleteRelationships(ctx, query, termID, termID)
}

// DeleteByPair deletes every relationship from source to target.
func (r *Repository) DeleteByPair(ctx context.Context, sourceTermID, targetTermID string) (int, error) {
	query := `DELETE FROM relationships WHERE source_term_id = ? AND target_term_id = ?`
	return r.deleteRelationships(ctx, query, sourceTermID, targetTermID)
}

// Count returns the total number of relationships.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM relationships`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting relationships: %w", err)
	}
	return count, nil
}

func (r *Repository) deleteRelationships(ctx context.Context, query string, args ...any) (int, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting relationships: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted relationships: %w", err)
	}
	return int(rows), nil
}

// queryRelationships is a helper to execute relationship queries.
func (r *Repository) queryRelationships(ctx context.Context, query string, args ...any) ([]entities.Relationship, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying relationships: %w", err)
	}
	defer rows.Close()

	rels := make([]entities.Relationship, 0, 16)
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		rels = append(rels, *rel)
	}
	return rels, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRelationship(row rowScanner) (*entities.Relationship, error) {
	var rel entities.Relationship
	var relType, createdAt, updatedAt string

	err := row.Scan(
		&rel.ID,
		&rel.SourceTermID,
		&rel.TargetTermID,
		&relType,
		&rel.Description,
		&rel.CreatedBy,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning relationship: %w", err)
	}

	rel.Type = entities.RelationType(relType)
	if rel.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rel.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &rel, nil
}
