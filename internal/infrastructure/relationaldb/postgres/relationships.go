package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/entities"
)

const relationshipColumns = `id, source_term_id, target_term_id, type, description, created_by, created_at, updated_at`

// Insert stores a new relationship.
func (s *Store) Insert(ctx context.Context, rel *entities.Relationship) error {
	query := `
		INSERT INTO relationships (` + relationshipColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.pool.Exec(ctx, query,
		rel.ID, rel.SourceTermID, rel.TargetTermID, string(rel.Type),
		rel.Description, rel.CreatedBy, rel.CreatedAt, rel.UpdatedAt)
	if hasCode(err, codeUniqueViolation) {
		return fmt.Errorf("relationship %s --%s--> %s already exists: %w",
			rel.SourceTermID, rel.Type, rel.TargetTermID, apperrors.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert relationship: %w", err)
	}
	return nil
}

// FindByID finds a relationship by ID.
func (s *Store) FindByID(ctx context.Context, id string) (*entities.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM relationships WHERE id = $1`

	rel, err := scanRelationship(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("relationship %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rel, nil
}

// FindByEndpoint finds relationships touching the term from the given side.
func (s *Store) FindByEndpoint(ctx context.Context, termID string, dir entities.Direction) ([]entities.Relationship, error) {
	var where string
	switch dir {
	case entities.DirectionOutgoing:
		where = "source_term_id = $1"
	case entities.DirectionIncoming:
		where = "target_term_id = $1"
	default:
		where = "source_term_id = $1 OR target_term_id = $1"
	}

	query := `SELECT ` + relationshipColumns + ` FROM relationships WHERE ` + where + ` ORDER BY created_at, id`
	return s.queryRelationships(ctx, query, termID)
}

// FindByType finds all relationships of a given type.
func (s *Store) FindByType(ctx context.Context, relType entities.RelationType) ([]entities.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM relationships WHERE type = $1 ORDER BY created_at, id`
	return s.queryRelationships(ctx, query, string(relType))
}

// FindAmong finds relationships whose endpoints are both in termIDs.
func (s *Store) FindAmong(ctx context.Context, termIDs []string) ([]entities.Relationship, error) {
	if len(termIDs) == 0 {
		return []entities.Relationship{}, nil
	}
	query := `SELECT ` + relationshipColumns + ` FROM relationships
		WHERE source_term_id = ANY($1) AND target_term_id = ANY($1)
		ORDER BY created_at, id`
	return s.queryRelationships(ctx, query, termIDs)
}

// Update persists the mutable fields of a relationship.
func (s *Store) Update(ctx context.Context, rel *entities.Relationship) error {
	query := `UPDATE relationships SET type = $1, description = $2, updated_at = $3 WHERE id = $4`

	tag, err := s.pool.Exec(ctx, query, string(rel.Type), rel.Description, rel.UpdatedAt, rel.ID)
	if hasCode(err, codeUniqueViolation) {
		return fmt.Errorf("relationship %s --%s--> %s already exists: %w",
			rel.SourceTermID, rel.Type, rel.TargetTermID, apperrors.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to update relationship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("relationship %s: %w", rel.ID, apperrors.ErrNotFound)
	}
	return nil
}

// Delete deletes a relationship by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM relationships WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete relationship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("relationship %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// DeleteByEndpoint deletes every relationship touching the term.
func (s *Store) DeleteByEndpoint(ctx context.Context, termID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM relationships WHERE source_term_id = $1 OR target_term_id = $1`, termID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete relationships: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteByPair deletes every relationship from source to target.
func (s *Store) DeleteByPair(ctx context.Context, sourceTermID, targetTermID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM relationships WHERE source_term_id = $1 AND target_term_id = $2`,
		sourceTermID, targetTermID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete relationships: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Count returns the total number of relationships.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM relationships`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count relationships: %w", err)
	}
	return count, nil
}

func (s *Store) queryRelationships(ctx context.Context, query string, args ...any) ([]entities.Relationship, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating relationships: %w", err)
	}
	return rels, nil
}

func scanRelationship(row pgx.Row) (*entities.Relationship, error) {
	var rel entities.Relationship
	var relType string

	err := row.Scan(
		&rel.ID, &rel.SourceTermID, &rel.TargetTermID, &relType,
		&rel.Description, &rel.CreatedBy, &rel.CreatedAt, &rel.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan relationship: %w", err)
	}
	rel.Type = entities.RelationType(relType)
	return &rel, nil
}
