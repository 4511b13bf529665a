package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
	"github.com/ersonp/termgraph/internal/domain/entities"
)

const termColumns = `id, name, context_id, definition, status, essential, created_at`

// SaveTerm saves or updates a term.
func (r *Repository) SaveTerm(ctx context.Context, term *entities.Term) error {
	query := `
		INSERT INTO terms (` + termColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			context_id = excluded.context_id,
			definition = excluded.definition,
			status = excluded.status,
			essential = excluded.essential
	`
	_, err := r.db.ExecContext(ctx, query,
		term.ID,
		term.Name,
		term.ContextID,
		term.Definition,
		string(term.Status),
		term.Essential,
		formatTime(term.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving term: %w", err)
	}
	return nil
}

// FindTermByID finds a term by ID.
func (r *Repository) FindTermByID(ctx context.Context, id string) (*entities.Term, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+termColumns+` FROM terms WHERE id = ?`, id)

	term, err := scanTerm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("term %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return term, nil
}

// ListTerms lists terms sorted by ID, optionally restricted to a context.
func (r *Repository) ListTerms(ctx context.Context, contextID string) ([]entities.Term, error) {
	query := `SELECT ` + termColumns + ` FROM terms`
	var args []any
	if contextID != "" {
		query += ` WHERE context_id = ?`
		args = append(args, contextID)
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying terms: %w", err)
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
	return terms, rows.Err()
}

// DeleteTerm deletes a term. Learning progress for it cascades.
func (r *Repository) DeleteTerm(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM terms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting term: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("term %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// Exists reports whether the term exists.
func (r *Repository) Exists(ctx context.Context, termID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM terms WHERE id = ?)`, termID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking term: %w", err)
	}
	return exists, nil
}

// IsEssential reports whether the term is flagged essential.
func (r *Repository) IsEssential(ctx context.Context, termID string) (bool, error) {
	var essential bool
	err := r.db.QueryRowContext(ctx, `SELECT essential FROM terms WHERE id = ?`, termID).Scan(&essential)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking essential flag: %w", err)
	}
	return essential, nil
}

// FindTerms returns display attributes for the given IDs in input order.
// Unknown IDs are skipped.
func (r *Repository) FindTerms(ctx context.Context, ids []string) ([]entities.TermSummary, error) {
	if len(ids) == 0 {
		return []entities.TermSummary{}, nil
	}

	query := `SELECT id, name, status, essential FROM terms WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := r.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("querying terms: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]entities.TermSummary, len(ids))
	for rows.Next() {
		var s entities.TermSummary
		var status string
		if err := rows.Scan(&s.ID, &s.Name, &status, &s.Essential); err != nil {
			return nil, fmt.Errorf("scanning term: %w", err)
		}
		s.Status = entities.TermStatus(status)
		byID[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]entities.TermSummary, 0, len(byID))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			result = append(result, s)
		}
	}
	return result, nil
}

// ListEssential returns the essential term IDs sorted by ID.
func (r *Repository) ListEssential(ctx context.Context) ([]string, error) {
	return r.queryIDs(ctx, `SELECT id FROM terms WHERE essential = 1 ORDER BY id`)
}

// ListByContext returns the term IDs of a bounded context sorted by ID.
func (r *Repository) ListByContext(ctx context.Context, contextID string) ([]string, error) {
	return r.queryIDs(ctx, `SELECT id FROM terms WHERE context_id = ? ORDER BY id`, contextID)
}

func (r *Repository) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying term ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning term id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanTerm(row rowScanner) (*entities.Term, error) {
	var t entities.Term
	var status, createdAt string

	err := row.Scan(&t.ID, &t.Name, &t.ContextID, &t.Definition, &status, &t.Essential, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning term: %w", err)
	}

	t.Status = entities.TermStatus(status)
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}
