package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/entities"
)

const termColumns = `id, name, context_id, definition, status, essential, created_at`

// SaveTerm saves or updates a term.
func (s *Store) SaveTerm(ctx context.Context, term *entities.Term) error {
	query := `
		INSERT INTO terms (` + termColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			context_id = EXCLUDED.context_id,
			definition = EXCLUDED.definition,
			status = EXCLUDED.status,
			essential = EXCLUDED.essential`

	_, err := s.pool.Exec(ctx, query,
		term.ID, term.Name, term.ContextID, term.Definition,
		string(term.Status), term.Essential, term.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save term: %w", err)
	}
	return nil
}

// FindTermByID finds a term by ID.
func (s *Store) FindTermByID(ctx context.Context, id string) (*entities.Term, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+termColumns+` FROM terms WHERE id = $1`, id)

	term, err := scanTerm(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("term %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return term, nil
}

// ListTerms lists terms sorted by ID, optionally restricted to a context.
func (s *Store) ListTerms(ctx context.Context, contextID string) ([]entities.Term, error) {
	query := `SELECT ` + termColumns + ` FROM terms WHERE ($1 = '' OR context_id = $1) ORDER BY id`

	rows, err := s.pool.Query(ctx, query, contextID)
	if err != nil {
		return nil, fmt.Errorf("failed to query terms: %w", err)
	}
	defer rows.Close()

	terms := make([]entities.Term, 0, 32)
	for rows.Next() {
		term, err := scanTerm(rows)
		if err != nil {
			return nil, err
		}
		terms = append(terms, *term)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating terms: %w", err)
	}
	return terms, nil
}

// DeleteTerm deletes a term. Learning progress for it cascades.
func (s *Store) DeleteTerm(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM terms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete term: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("term %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// Exists reports whether the term exists.
func (s *Store) Exists(ctx context.Context, termID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM terms WHERE id = $1)`, termID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check term: %w", err)
	}
	return exists, nil
}

// IsEssential reports whether the term is flagged essential.
func (s *Store) IsEssential(ctx context.Context, termID string) (bool, error) {
	var essential bool
	err := s.pool.QueryRow(ctx, `SELECT essential FROM terms WHERE id = $1`, termID).Scan(&essential)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check essential flag: %w", err)
	}
	return essential, nil
}

// FindTerms returns display attributes for the given IDs in input order.
func (s *Store) FindTerms(ctx context.Context, ids []string) ([]entities.TermSummary, error) {
	if len(ids) == 0 {
		return []entities.TermSummary{}, nil
	}

	rows, err := s.pool.Query(ctx, `SELECT id, name, status, essential FROM terms WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query terms: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]entities.TermSummary, len(ids))
	for rows.Next() {
		var t entities.TermSummary
		var status string
		if err := rows.Scan(&t.ID, &t.Name, &status, &t.Essential); err != nil {
			return nil, fmt.Errorf("failed to scan term: %w", err)
		}
		t.Status = entities.TermStatus(status)
		byID[t.ID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating terms: %w", err)
	}

	result := make([]entities.TermSummary, 0, len(byID))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			result = append(result, t)
		}
	}
	return result, nil
}

// ListEssential returns the essential term IDs sorted by ID.
func (s *Store) ListEssential(ctx context.Context) ([]string, error) {
	return s.queryIDs(ctx, `SELECT id FROM terms WHERE essential ORDER BY id`)
}

// ListByContext returns the term IDs of a bounded context sorted by ID.
func (s *Store) ListByContext(ctx context.Context, contextID string) ([]string, error) {
	return s.queryIDs(ctx, `SELECT id FROM terms WHERE context_id = $1 ORDER BY id`, contextID)
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query term ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect term ids: %w", err)
	}
	return ids, nil
}

// LearnedTermIDs returns the set of terms the user has learned.
func (s *Store) LearnedTermIDs(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, `SELECT term_id FROM learned_terms WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query learned terms: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect learned terms: %w", err)
	}

	learned := make(map[string]bool, len(ids))
	for _, id := range ids {
		learned[id] = true
	}
	return learned, nil
}

// MarkLearned records that the user learned the term.
func (s *Store) MarkLearned(ctx context.Context, userID, termID string) error {
	query := `
		INSERT INTO learned_terms (user_id, term_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, term_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query, userID, termID)
	if hasCode(err, codeForeignKeyViolation) {
		return fmt.Errorf("term %s: %w", termID, apperrors.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to mark term learned: %w", err)
	}
	return nil
}

// LogAction logs an action to the audit log.
func (s *Store) LogAction(ctx context.Context, action string, relationshipID string, details map[string]any) error {
	var detailsJSON []byte
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("failed to marshal details: %w", err)
		}
		detailsJSON = data
	}

	var relID *string
	if relationshipID != "" {
		relID = &relationshipID
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_log (action, relationship_id, details) VALUES ($1, $2, $3)`,
		action, relID, detailsJSON)
	if err != nil {
		return fmt.Errorf("failed to log action: %w", err)
	}
	return nil
}

// FindAuditLog finds audit log entries for a relationship, oldest first.
func (s *Store) FindAuditLog(ctx context.Context, relationshipID string) ([]entities.AuditEntry, error) {
	query := `
		SELECT id, action, COALESCE(relationship_id, ''), details, created_at
		FROM audit_log
		WHERE relationship_id = $1
		ORDER BY id`

	rows, err := s.pool.Query(ctx, query, relationshipID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []entities.AuditEntry
	for rows.Next() {
		var entry entities.AuditEntry
		var details []byte
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.RelationshipID, &details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal details: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log: %w", err)
	}
	return entries, nil
}

func scanTerm(row pgx.Row) (*entities.Term, error) {
	var t entities.Term
	var status string

	err := row.Scan(&t.ID, &t.Name, &t.ContextID, &t.Definition, &status, &t.Essential, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan term: %w", err)
	}
	t.Status = entities.TermStatus(status)
	return &t, nil
}
