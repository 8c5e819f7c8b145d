// Package domain provides the canonical types and business rules of the
// pipeline board bounded context.
package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Role classifies a stage's place in the board.
type Role string

const (
	RoleIntake Role = "intake"
	RoleCustom Role = "custom"
	RoleWon    Role = "won"
	RoleLost   Role = "lost"
)

// Anchor order indices. Custom stages are numbered 1..n between them.
const (
	IntakeOrderIndex = 0
	WonOrderIndex    = 998
	LostOrderIndex   = 999
)

// IsTerminal reports whether a lead entering this role needs a captured reason.
func (r Role) IsTerminal() bool {
	return r == RoleWon || r == RoleLost
}

// IsAnchor reports whether the role belongs to a fixed, immovable stage.
func (r Role) IsAnchor() bool {
	return r == RoleIntake || r.IsTerminal()
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleIntake, RoleCustom, RoleWon, RoleLost:
		return true
	}
	return false
}

// Cadence channels.
const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
	ChannelCall     = "call"
	ChannelSMS      = "sms"
	ChannelTask     = "task"
	ChannelVisit    = "visit"
)

// CadenceStep is one day-offset activity template attached to a stage.
type CadenceStep struct {
	DayOffset   int    `json:"dayOffset"`
	Order       int    `json:"order"`
	Channel     string `json:"channel"`
	ActionType  string `json:"actionType,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Template    string `json:"template,omitempty"`
	Active      bool   `json:"active"`
}

// Stage is an ordered step of a board.
type Stage struct {
	ID         uuid.UUID
	BoardID    uuid.UUID
	Name       string
	OrderIndex int
	Role       Role
	Color      string
	Cadence    []CadenceStep
}

// Clone returns a copy that shares no slices with s.
func (s Stage) Clone() Stage {
	out := s
	if s.Cadence != nil {
		out.Cadence = append([]CadenceStep(nil), s.Cadence...)
	}
	return out
}

// RawStage is a stage row as stored or received from older clients.
// Field meanings vary by source; NormalizeStage resolves them once.
type RawStage struct {
	ID            uuid.UUID
	BoardID       uuid.UUID
	Name          string
	OrderIndex    int
	StageType     string
	IsSystemStage bool
	Color         string
	Cadence       []CadenceStep
}

var stageTypeRoles = map[string]Role{
	"intake":          RoleIntake,
	"contato_inicial": RoleIntake,
	"lead":            RoleIntake,
	"won":             RoleWon,
	"ganho":           RoleWon,
	"closed_won":      RoleWon,
	"lost":            RoleLost,
	"perdido":         RoleLost,
	"closed_lost":     RoleLost,
	"custom":          RoleCustom,
	"personalizado":   RoleCustom,
}

var systemStageNames = map[string]Role{
	"lead":        RoleIntake,
	"ganho":       RoleWon,
	"won":         RoleWon,
	"closed won":  RoleWon,
	"perdido":     RoleLost,
	"lost":        RoleLost,
	"closed lost": RoleLost,
}

// NormalizeStage maps any known raw shape onto the canonical Stage.
// An explicit stage type wins; system stages without one fall back to their
// well-known names; everything else is custom.
func NormalizeStage(raw RawStage) Stage {
	role, ok := stageTypeRoles[strings.ToLower(strings.TrimSpace(raw.StageType))]
	if !ok || (role == RoleCustom && raw.IsSystemStage) {
		role = RoleCustom
		if raw.IsSystemStage {
			if byName, found := systemStageNames[strings.ToLower(strings.TrimSpace(raw.Name))]; found {
				role = byName
			}
		}
	}

	cadence := make([]CadenceStep, 0, len(raw.Cadence))
	for _, step := range raw.Cadence {
		step.Channel = strings.ToLower(strings.TrimSpace(step.Channel))
		if step.DayOffset < 0 {
			step.DayOffset = 0
		}
		cadence = append(cadence, step)
	}

	return Stage{
		ID:         raw.ID,
		BoardID:    raw.BoardID,
		Name:       strings.TrimSpace(raw.Name),
		OrderIndex: raw.OrderIndex,
		Role:       role,
		Color:      raw.Color,
		Cadence:    cadence,
	}
}

// Denormalize produces the storage shape for a canonical stage.
func Denormalize(s Stage) RawStage {
	return RawStage{
		ID:            s.ID,
		BoardID:       s.BoardID,
		Name:          s.Name,
		OrderIndex:    s.OrderIndex,
		StageType:     string(s.Role),
		IsSystemStage: s.Role.IsAnchor(),
		Color:         s.Color,
		Cadence:       s.Cadence,
	}
}
