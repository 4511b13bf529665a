package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// LearnedTermIDs returns the set of terms the user has learned.
func (r *Repository) LearnedTermIDs(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT term_id FROM learned_terms WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying learned terms: %w", err)
	}
	defer rows.Close()

	learned := make(map[string]bool)
	for rows.Next() {
		var termID string
		if err := rows.Scan(&termID); err != nil {
			return nil, fmt.Errorf("scanning learned term: %w", err)
		}
		learned[termID] = true
	}
	return learned, rows.Err()
}

// MarkLearned records that the user learned the term. Marking twice keeps
// the first timestamp.
func (r *Repository) MarkLearned(ctx context.Context, userID, termID string) error {
	query := `
		INSERT INTO learned_terms (user_id, term_id, learned_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, term_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, userID, termID, formatTime(timeNow()))
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("term %s: %w", termID, apperrors.ErrNotFound)
		}
		return fmt.Errorf("marking term learned: %w", err)
	}
	return nil
}
