// Package actions validates, types, and resolves pending actions. Payloads
// arrive as loose JSON from players and the plan generator; they are
// schema-checked once at the boundary and handled as typed variants from
// then on.
package actions

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/talgya/statecraft/internal/game"
)

// Action subtypes.
const (
	SubInfrastructure = "infrastructure"
	SubRecruit        = "recruit"
	SubAttack         = "attack"
)

// EconomicPayload is the typed form of an economic action.
type EconomicPayload struct {
	SubType     string `json:"subType"`
	TargetLevel int    `json:"targetLevel"`
}

// ResearchPayload is the typed form of a research action.
type ResearchPayload struct {
	TargetLevel int `json:"targetLevel"`
}

// MilitaryPayload covers both military subtypes; the schema guarantees the
// fields the chosen subtype needs are present.
type MilitaryPayload struct {
	SubType           string `json:"subType"`
	Amount            int    `json:"amount,omitempty"`            // recruit
	DefenderID        string `json:"defenderId,omitempty"`        // attack
	CityID            string `json:"cityId,omitempty"`            // attack
	AllocatedStrength int    `json:"allocatedStrength,omitempty"` // attack
	DefenseAllocation int    `json:"defenseAllocation,omitempty"` // set by defender pre-resolution
}

// DiplomacyPayload is the typed form of a diplomacy action.
type DiplomacyPayload struct {
	TargetCountryID string `json:"targetCountryId"`
	AffinityDelta   int    `json:"affinityDelta"`
}

var economicSchema = jsonschema.MustCompileString("economic.json", `{
	"type": "object",
	"required": ["subType", "targetLevel"],
	"properties": {
		"subType": {"enum": ["infrastructure"]},
		"targetLevel": {"type": "integer", "minimum": 1}
	}
}`)

var researchSchema = jsonschema.MustCompileString("research.json", `{
	"type": "object",
	"required": ["targetLevel"],
	"properties": {
		"targetLevel": {"type": "integer", "minimum": 1}
	}
}`)

var militarySchema = jsonschema.MustCompileString("military.json", `{
	"type": "object",
	"required": ["subType"],
	"properties": {
		"subType": {"enum": ["recruit", "attack"]},
		"amount": {"type": "integer", "minimum": 1},
		"defenderId": {"type": "string", "minLength": 1},
		"cityId": {"type": "string", "minLength": 1},
		"allocatedStrength": {"type": "integer", "minimum": 1},
		"defenseAllocation": {"type": "integer", "minimum": 0}
	},
	"allOf": [
		{
			"if": {"properties": {"subType": {"const": "recruit"}}},
			"then": {"required": ["amount"]}
		},
		{
			"if": {"properties": {"subType": {"const": "attack"}}},
			"then": {"required": ["defenderId", "cityId", "allocatedStrength"]}
		}
	]
}`)

var diplomacySchema = jsonschema.MustCompileString("diplomacy.json", `{
	"type": "object",
	"required": ["targetCountryId", "affinityDelta"],
	"properties": {
		"targetCountryId": {"type": "string", "minLength": 1},
		"affinityDelta": {"type": "integer"}
	}
}`)

func schemaFor(t game.ActionType) *jsonschema.Schema {
	switch t {
	case game.ActionEconomic:
		return economicSchema
	case game.ActionResearch:
		return researchSchema
	case game.ActionMilitary:
		return militarySchema
	case game.ActionDiplomacy:
		return diplomacySchema
	}
	return nil
}

// ValidatePayload checks a raw payload against its domain schema. This is
// the single boundary check; typed decoding after a passing validation
// cannot fail in a way that matters.
func ValidatePayload(t game.ActionType, raw json.RawMessage) error {
	schema := schemaFor(t)
	if schema == nil {
		return fmt.Errorf("unknown action type %q", t)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("payload not valid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("payload schema: %w", err)
	}
	return nil
}

// PayloadSubType extracts the subType discriminator without full decoding.
// Empty for domains that have none.
func PayloadSubType(raw json.RawMessage) string {
	var probe struct {
		SubType string `json:"subType"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	return probe.SubType
}

func decode[T any](t game.ActionType, raw json.RawMessage) (T, error) {
	var out T
	if err := ValidatePayload(t, raw); err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

// DecodeEconomic validates and decodes an economic payload.
func DecodeEconomic(raw json.RawMessage) (EconomicPayload, error) {
	return decode[EconomicPayload](game.ActionEconomic, raw)
}

// DecodeResearch validates and decodes a research payload.
func DecodeResearch(raw json.RawMessage) (ResearchPayload, error) {
	return decode[ResearchPayload](game.ActionResearch, raw)
}

// DecodeMilitary validates and decodes a military payload.
func DecodeMilitary(raw json.RawMessage) (MilitaryPayload, error) {
	return decode[MilitaryPayload](game.ActionMilitary, raw)
}

// DecodeDiplomacy validates and decodes a diplomacy payload.
func DecodeDiplomacy(raw json.RawMessage) (DiplomacyPayload, error) {
	return decode[DiplomacyPayload](game.ActionDiplomacy, raw)
}
