package repository

import (
	"context"
	"errors"

	"pipeline_board_backend/internal/pipeline/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const reasonColumns = `id, board_id, reason_type, reason_text, is_active, display_order`

func scanReason(s rowScanner) (domain.OutcomeReason, error) {
	var r domain.OutcomeReason
	var reasonType string
	err := s.Scan(&r.ID, &r.BoardID, &reasonType, &r.Text, &r.Active, &r.DisplayOrder)
	r.AppliesTo = domain.Role(reasonType)
	return r, err
}

// ListReasons returns every reason of one outcome, active or not, in display order.
func (r *Repository) ListReasons(ctx context.Context, boardID uuid.UUID, outcome domain.Role) ([]domain.OutcomeReason, error) {
	return r.FindReasons(ctx, ReasonFilter{BoardID: boardID, Outcome: &outcome})
}

// ReasonFilter narrows FindReasons. Nil Outcome means both outcomes.
type ReasonFilter struct {
	BoardID    uuid.UUID
	Outcome    *domain.Role
	ActiveOnly bool
}

// FindReasons lists reasons by filter.
func (r *Repository) FindReasons(ctx context.Context, f ReasonFilter) ([]domain.OutcomeReason, error) {
	var outcome *string
	if f.Outcome != nil {
		o := string(*f.Outcome)
		outcome = &o
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+reasonColumns+`
		FROM pipeline_outcome_reasons
		WHERE board_id = $1
		  AND ($2::text IS NULL OR reason_type = $2)
		  AND (NOT $3 OR is_active)
		ORDER BY reason_type ASC, display_order ASC, reason_text ASC
	`, f.BoardID, outcome, f.ActiveOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reasons := make([]domain.OutcomeReason, 0)
	for rows.Next() {
		reason, err := scanReason(rows)
		if err != nil {
			return nil, err
		}
		reasons = append(reasons, reason)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return reasons, nil
}

// CreateReason appends a reason after the last one of its outcome.
func (r *Repository) CreateReason(ctx context.Context, boardID uuid.UUID, outcome domain.Role, text string) (domain.OutcomeReason, error) {
	return scanReason(r.pool.QueryRow(ctx, `
		INSERT INTO pipeline_outcome_reasons (board_id, reason_type, reason_text, display_order)
		VALUES ($1, $2, $3, (
			SELECT COALESCE(MAX(display_order), 0) + 1
			FROM pipeline_outcome_reasons
			WHERE board_id = $1 AND reason_type = $2
		))
		RETURNING `+reasonColumns,
		boardID, string(outcome), text))
}

// UpdateReason changes the text or active flag of a reason.
func (r *Repository) UpdateReason(ctx context.Context, boardID, reasonID uuid.UUID, text *string, active *bool) (domain.OutcomeReason, error) {
	reason, err := scanReason(r.pool.QueryRow(ctx, `
		UPDATE pipeline_outcome_reasons
		SET reason_text = COALESCE($3, reason_text),
			is_active = COALESCE($4, is_active),
			updated_at = now()
		WHERE id = $1 AND board_id = $2
		RETURNING `+reasonColumns,
		reasonID, boardID, text, active))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OutcomeReason{}, domain.ErrReasonNotFound
	}
	return reason, err
}

// ReorderReasons sets display_order to each id's position, starting at 1.
// Every id must belong to the board.
func (r *Repository) ReorderReasons(ctx context.Context, boardID uuid.UUID, ids []uuid.UUID) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i, id := range ids {
		tag, err := tx.Exec(ctx, `
			UPDATE pipeline_outcome_reasons SET display_order = $3, updated_at = now()
			WHERE id = $1 AND board_id = $2
		`, id, boardID, i+1)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrReasonNotFound.WithDetails(map[string]string{"reasonId": id.String()})
		}
	}
	return tx.Commit(ctx)
}

// InsertReasonsIfMissing adds the given texts for an outcome unless a reason
// with the same text already exists, and returns how many were added.
func (r *Repository) InsertReasonsIfMissing(ctx context.Context, boardID uuid.UUID, outcome domain.Role, texts []string) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	added := 0
	for _, text := range texts {
		tag, err := tx.Exec(ctx, `
			INSERT INTO pipeline_outcome_reasons (board_id, reason_type, reason_text, display_order)
			SELECT $1, $2, $3, COALESCE(MAX(display_order), 0) + 1
			FROM pipeline_outcome_reasons
			WHERE board_id = $1 AND reason_type = $2
			HAVING NOT EXISTS (
				SELECT 1 FROM pipeline_outcome_reasons
				WHERE board_id = $1 AND reason_type = $2 AND lower(reason_text) = lower($3)
			)
		`, boardID, string(outcome), text)
		if err != nil {
			return 0, err
		}
		added += int(tag.RowsAffected())
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return added, nil
}
