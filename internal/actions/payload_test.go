package actions

import (
	"encoding/json"
	"testing"

	"github.com/talgya/statecraft/internal/game"
)

func TestValidatePayload(t *testing.T) {
	cases := []struct {
		name    string
		typ     game.ActionType
		payload string
		wantErr bool
	}{
		{"economic ok", game.ActionEconomic, `{"subType":"infrastructure","targetLevel":2}`, false},
		{"economic missing level", game.ActionEconomic, `{"subType":"infrastructure"}`, true},
		{"economic bad subtype", game.ActionEconomic, `{"subType":"farming","targetLevel":2}`, true},
		{"research ok", game.ActionResearch, `{"targetLevel":3}`, false},
		{"research zero level", game.ActionResearch, `{"targetLevel":0}`, true},
		{"recruit ok", game.ActionMilitary, `{"subType":"recruit","amount":10}`, false},
		{"recruit missing amount", game.ActionMilitary, `{"subType":"recruit"}`, true},
		{"attack ok", game.ActionMilitary, `{"subType":"attack","defenderId":"b","cityId":"c1","allocatedStrength":20}`, false},
		{"attack missing city", game.ActionMilitary, `{"subType":"attack","defenderId":"b","allocatedStrength":20}`, true},
		{"diplomacy ok", game.ActionDiplomacy, `{"targetCountryId":"b","affinityDelta":-5}`, false},
		{"diplomacy empty target", game.ActionDiplomacy, `{"targetCountryId":"","affinityDelta":5}`, true},
		{"not json", game.ActionEconomic, `{{`, true},
		{"unknown type", game.ActionType("naval"), `{}`, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePayload(tc.typ, json.RawMessage(tc.payload))
			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidatePayload = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestPayloadSubType(t *testing.T) {
	if got := PayloadSubType(json.RawMessage(`{"subType":"attack"}`)); got != "attack" {
		t.Errorf("got %q", got)
	}
	if got := PayloadSubType(json.RawMessage(`{"targetLevel":2}`)); got != "" {
		t.Errorf("domain without subtype: got %q", got)
	}
	if got := PayloadSubType(json.RawMessage(`bad`)); got != "" {
		t.Errorf("bad json: got %q", got)
	}
}

func TestDecodeMilitary(t *testing.T) {
	p, err := DecodeMilitary(json.RawMessage(`{"subType":"attack","defenderId":"b","cityId":"c1","allocatedStrength":20,"defenseAllocation":8}`))
	if err != nil {
		t.Fatal(err)
	}
	if p.SubType != SubAttack || p.DefenderID != "b" || p.CityID != "c1" || p.AllocatedStrength != 20 || p.DefenseAllocation != 8 {
		t.Fatalf("decoded wrong: %+v", p)
	}

	if _, err := DecodeMilitary(json.RawMessage(`{"subType":"attack"}`)); err == nil {
		t.Fatal("incomplete attack payload should not decode")
	}
}
