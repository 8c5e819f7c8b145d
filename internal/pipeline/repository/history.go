package repository

import (
	"context"
	"encoding/json"
	"time"

	"pipeline_board_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

// Append stores a history entry. Entries are never updated.
func (r *Repository) Append(ctx context.Context, e domain.HistoryEntry) error {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO lead_history (id, lead_id, board_id, action, description, actor_id, old_stage_id, new_stage_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, e.LeadID, e.BoardID, e.Action, e.Description, nullableUUID(e.ActorID),
		nullableUUID(e.OldStageID), nullableUUID(e.NewStageID), metadata, e.Timestamp)
	return err
}

// ListLeadHistory returns a lead's audit trail, oldest first.
func (r *Repository) ListLeadHistory(ctx context.Context, boardID, leadID uuid.UUID) ([]domain.HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, board_id, lead_id, action, description, actor_id, old_stage_id, new_stage_id, metadata, created_at
		FROM lead_history
		WHERE board_id = $1 AND lead_id = $2
		ORDER BY created_at ASC
	`, boardID, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		var e domain.HistoryEntry
		var actorID, oldStageID, newStageID *uuid.UUID
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.BoardID, &e.LeadID, &e.Action, &e.Description, &actorID, &oldStageID, &newStageID, &metadata, &e.Timestamp); err != nil {
			return nil, err
		}
		e.ActorID = derefUUID(actorID)
		e.OldStageID = derefUUID(oldStageID)
		e.NewStageID = derefUUID(newStageID)
		e.Metadata = decodeJSON(metadata, map[string]any{})
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}

// OutcomeRecord is a stored won/lost decision of a lead.
type OutcomeRecord struct {
	ID         uuid.UUID
	LeadID     uuid.UUID
	Outcome    domain.Role
	ReasonID   *uuid.UUID
	ReasonText string
	Notes      *string
	AppliedBy  *uuid.UUID
	CreatedAt  time.Time
}

// ListLeadOutcomes returns a lead's outcome records, newest first.
func (r *Repository) ListLeadOutcomes(ctx context.Context, boardID, leadID uuid.UUID) ([]OutcomeRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, outcome_type, reason_id, reason_text, notes, applied_by, created_at
		FROM lead_outcome_history
		WHERE board_id = $1 AND lead_id = $2
		ORDER BY created_at DESC
	`, boardID, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]OutcomeRecord, 0)
	for rows.Next() {
		var rec OutcomeRecord
		var outcome string
		if err := rows.Scan(&rec.ID, &rec.LeadID, &outcome, &rec.ReasonID, &rec.ReasonText, &rec.Notes, &rec.AppliedBy, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Outcome = domain.Role(outcome)
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}
