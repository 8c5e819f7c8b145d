// Package gate holds terminal transitions until an outcome reason is supplied.
package gate

import (
	"context"
	"fmt"
	"strings"

	"pipeline_board_backend/internal/pipeline/domain"
	"pipeline_board_backend/internal/pipeline/ports"
	"pipeline_board_backend/platform/validator"

	"github.com/google/uuid"
)

// RoleResolver reports the role of a stage. *registry.Registry satisfies it.
type RoleResolver interface {
	RoleOf(stageID uuid.UUID) (domain.Role, bool)
}

// Gate drives transitions through pending -> awaiting-reason -> committed or
// rolled-back. It only decides; persistence is the caller's job.
type Gate struct {
	boardID uuid.UUID
	roles   RoleResolver
	reasons ports.ReasonLookup
	val     *validator.Validator
}

// New creates the gate of one board.
func New(boardID uuid.UUID, roles RoleResolver, reasons ports.ReasonLookup, val *validator.Validator) *Gate {
	if val == nil {
		val = validator.New()
	}
	return &Gate{boardID: boardID, roles: roles, reasons: reasons, val: val}
}

// RequiresGate reports whether moving into stageID needs a reason.
func (g *Gate) RequiresGate(stageID uuid.UUID) bool {
	role, ok := g.roles.RoleOf(stageID)
	return ok && role.IsTerminal()
}

// Evaluate runs the pending step. Non-terminal destinations commit at once and
// are returned with ok set; terminal ones are parked in awaiting-reason.
func (g *Gate) Evaluate(t *domain.Transition) (domain.CommittedTransition, bool, error) {
	if t.Status != domain.TransitionPending {
		return domain.CommittedTransition{}, false, domain.ErrGateNotPending
	}
	role, _ := g.roles.RoleOf(t.ToStageID)
	t.ToRole = role
	if role.IsTerminal() {
		t.Status = domain.TransitionAwaitingReason
		return domain.CommittedTransition{}, false, nil
	}
	t.Status = domain.TransitionCommitted
	return domain.CommittedTransition{Transition: *t}, true, nil
}

// Resolve releases an awaiting transition with a reason. A predefined reason
// must exist, be active and apply to the destination outcome. Freeform text is
// always accepted when it is not blank. On error the transition keeps waiting.
func (g *Gate) Resolve(ctx context.Context, t *domain.Transition, in domain.ReasonInput) (domain.CommittedTransition, error) {
	if t.Status != domain.TransitionAwaitingReason {
		return domain.CommittedTransition{}, domain.ErrGateNotPending
	}

	applied := &domain.AppliedReason{
		Outcome: t.ToRole,
		Text:    strings.TrimSpace(in.Text),
		Notes:   strings.TrimSpace(in.Notes),
	}

	if in.ReasonID != nil {
		reason, err := g.findReason(ctx, *in.ReasonID, t.ToRole)
		if err != nil {
			return domain.CommittedTransition{}, err
		}
		id := reason.ID
		applied.ReasonID = &id
		if applied.Text == "" {
			applied.Text = reason.Text
		}
	}

	if err := g.val.Var(applied.Text, "notblank"); err != nil {
		return domain.CommittedTransition{}, domain.ErrEmptyReason
	}

	t.Status = domain.TransitionCommitted
	return domain.CommittedTransition{Transition: *t, Reason: applied}, nil
}

// Cancel rolls back a transition that has not committed yet.
func (g *Gate) Cancel(t *domain.Transition) error {
	switch t.Status {
	case domain.TransitionPending, domain.TransitionAwaitingReason:
		t.Status = domain.TransitionRolledBack
		return nil
	default:
		return domain.ErrGateNotPending
	}
}

func (g *Gate) findReason(ctx context.Context, id uuid.UUID, outcome domain.Role) (domain.OutcomeReason, error) {
	if g.reasons == nil {
		return domain.OutcomeReason{}, domain.ErrUnknownReason
	}
	reasons, err := g.reasons.ListReasons(ctx, g.boardID, outcome)
	if err != nil {
		return domain.OutcomeReason{}, fmt.Errorf("list outcome reasons: %w", err)
	}
	for _, r := range reasons {
		if r.ID == id && r.Active && r.AppliesTo == outcome {
			return r, nil
		}
	}
	return domain.OutcomeReason{}, domain.ErrUnknownReason.WithDetails(map[string]string{"reasonId": id.String()})
}
