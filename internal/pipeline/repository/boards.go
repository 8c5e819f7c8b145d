package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pipeline_board_backend/internal/pipeline/domain"
	"pipeline_board_backend/internal/pipeline/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"
)

// LoadBoard reads the stages and live leads of a board. The three queries run
// in parallel on separate pool connections.
func (r *Repository) LoadBoard(ctx context.Context, boardID uuid.UUID) (ports.BoardData, error) {
	var (
		data   ports.BoardData
		exists bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.pool.QueryRow(gctx, `SELECT EXISTS (SELECT 1 FROM pipeline_boards WHERE id = $1)`, boardID).Scan(&exists)
	})
	g.Go(func() error {
		stages, err := r.listRawStages(gctx, boardID)
		data.Stages = stages
		return err
	})
	g.Go(func() error {
		leads, err := r.listLeads(gctx, boardID)
		data.Leads = leads
		return err
	})
	if err := g.Wait(); err != nil {
		return ports.BoardData{}, err
	}
	if !exists {
		return ports.BoardData{}, domain.ErrBoardNotFound
	}
	return data, nil
}

func (r *Repository) listRawStages(ctx context.Context, boardID uuid.UUID) ([]domain.RawStage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, board_id, name, order_index, stage_type, is_system_stage, color, cadence
		FROM pipeline_stages
		WHERE board_id = $1
		ORDER BY order_index ASC
	`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stages := make([]domain.RawStage, 0)
	for rows.Next() {
		var s domain.RawStage
		var cadence []byte
		if err := rows.Scan(&s.ID, &s.BoardID, &s.Name, &s.OrderIndex, &s.StageType, &s.IsSystemStage, &s.Color, &cadence); err != nil {
			return nil, err
		}
		s.Cadence = decodeJSON(cadence, []domain.CadenceStep{})
		stages = append(stages, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return stages, nil
}

func (r *Repository) listLeads(ctx context.Context, boardID uuid.UUID) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, board_id, stage_id, fields, value_cents, entered_stage_at
		FROM pipeline_leads
		WHERE board_id = $1 AND deleted_at IS NULL
	`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		var l domain.Lead
		var fields []byte
		if err := rows.Scan(&l.ID, &l.BoardID, &l.StageID, &fields, &l.ValueCents, &l.EnteredStageAt); err != nil {
			return nil, err
		}
		l.Fields = decodeJSON(fields, map[string]any{})
		leads = append(leads, l)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return leads, nil
}

// SaveStages upserts every stage of the list and deletes the board's other
// stages, in one transaction.
func (r *Repository) SaveStages(ctx context.Context, boardID uuid.UUID, stages []domain.RawStage) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	keep := make([]uuid.UUID, 0, len(stages))
	for _, s := range stages {
		cadence, err := json.Marshal(s.Cadence)
		if err != nil {
			return fmt.Errorf("encode cadence of stage %s: %w", s.ID, err)
		}
		if s.Cadence == nil {
			cadence = []byte("[]")
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO pipeline_stages (id, board_id, name, order_index, stage_type, is_system_stage, color, cadence)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				order_index = EXCLUDED.order_index,
				stage_type = EXCLUDED.stage_type,
				is_system_stage = EXCLUDED.is_system_stage,
				color = EXCLUDED.color,
				cadence = EXCLUDED.cadence,
				updated_at = now()
			WHERE pipeline_stages.board_id = EXCLUDED.board_id
		`, s.ID, boardID, s.Name, s.OrderIndex, s.StageType, s.IsSystemStage, s.Color, cadence)
		if err != nil {
			return err
		}
		keep = append(keep, s.ID)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM pipeline_stages WHERE board_id = $1 AND NOT (id = ANY($2::uuid[]))
	`, boardID, keep); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// PersistMove writes a committed transition. For won and lost moves the
// outcome record goes into the same transaction as the stage change.
func (r *Repository) PersistMove(ctx context.Context, rec ports.MoveRecord) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE pipeline_leads
		SET stage_id = $3, entered_stage_at = $4, updated_at = now()
		WHERE id = $1 AND board_id = $2 AND deleted_at IS NULL
	`, rec.LeadID, rec.BoardID, rec.ToStageID, rec.EnteredStageAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLeadNotFound
	}

	if rec.Outcome != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO lead_outcome_history (lead_id, board_id, outcome_type, reason_id, reason_text, notes, applied_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, rec.LeadID, rec.BoardID, string(rec.Outcome.Outcome), rec.Outcome.ReasonID, rec.Outcome.Text, nullableString(rec.Outcome.Notes), nullableUUID(rec.ActorID)); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// BoardExists reports whether a board is stored.
func (r *Repository) BoardExists(ctx context.Context, boardID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pipeline_boards WHERE id = $1)`, boardID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return exists, err
}
