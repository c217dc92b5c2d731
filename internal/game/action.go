package game

import "encoding/json"

// ActionType is the domain an action belongs to.
type ActionType string

const (
	ActionEconomic  ActionType = "economic"
	ActionMilitary  ActionType = "military"
	ActionResearch  ActionType = "research"
	ActionDiplomacy ActionType = "diplomacy"
)

// ActionStatus tracks the action state machine: pending is the only
// non-terminal state.
type ActionStatus string

const (
	ActionPending  ActionStatus = "pending"
	ActionExecuted ActionStatus = "executed"
	ActionRejected ActionStatus = "rejected"
)

// Action is a single pending change submitted by a player or an AI decision
// step. It is consumed exactly once by the turn processor.
type Action struct {
	ID        string          `json:"id"`
	GameID    string          `json:"game_id"`
	CountryID string          `json:"country_id"`
	Turn      int             `json:"turn"`
	Type      ActionType      `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Status    ActionStatus    `json:"status"`
	PlanStep  string          `json:"plan_step,omitempty"` // originating plan step, when AI-generated
}
