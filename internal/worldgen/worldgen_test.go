package worldgen

import (
	"reflect"
	"testing"

	"github.com/talgya/statecraft/internal/config"
)

func TestGenerateDeterministic(t *testing.T) {
	cfg := DefaultConfig(42)
	a := Generate(cfg)
	b := Generate(cfg)

	if a.Game.ID != b.Game.ID {
		t.Fatalf("game IDs diverged: %s vs %s", a.Game.ID, b.Game.ID)
	}
	if len(a.Countries) != len(b.Countries) {
		t.Fatalf("country counts diverged")
	}
	for i := range a.Countries {
		if !reflect.DeepEqual(a.Countries[i], b.Countries[i]) {
			t.Errorf("country %d diverged", i)
		}
		if !reflect.DeepEqual(a.Stats[i], b.Stats[i]) {
			t.Errorf("stats %d diverged", i)
		}
	}
	if !reflect.DeepEqual(a.Prices, b.Prices) {
		t.Errorf("prices diverged: %v vs %v", a.Prices, b.Prices)
	}
}

func TestGenerateSeedsDiffer(t *testing.T) {
	a := Generate(DefaultConfig(1))
	b := Generate(DefaultConfig(2))
	if a.Game.ID == b.Game.ID {
		t.Error("different seeds produced the same game ID")
	}
	if reflect.DeepEqual(a.Stats, b.Stats) {
		t.Error("different seeds produced identical stats")
	}
}

func TestGenerateShape(t *testing.T) {
	cfg := DefaultConfig(7)
	cfg.Countries = 4
	cfg.PlayerCountries = 1
	cfg.CitiesPerCountry = 2
	b := Generate(cfg)

	if len(b.Countries) != 4 || len(b.Stats) != 4 {
		t.Fatalf("countries %d stats %d", len(b.Countries), len(b.Stats))
	}
	if len(b.Cities) != 8 {
		t.Fatalf("cities: %d", len(b.Cities))
	}

	players := 0
	for _, c := range b.Countries {
		if c.IsPlayerControlled {
			players++
		}
		if c.Profile == nil || len(c.Profile.Modifiers) == 0 {
			t.Errorf("country %s has no profile specialty", c.Name)
		}
	}
	if players != 1 {
		t.Errorf("players: %d", players)
	}

	for _, s := range b.Stats {
		if s.Turn != 1 {
			t.Errorf("stats turn: %d", s.Turn)
		}
		if s.Population < 1 || s.Budget < 1 {
			t.Errorf("degenerate stats: %+v", s)
		}
		for id, amt := range s.Resources {
			if amt < 0 {
				t.Errorf("negative %s stock: %d", id, amt)
			}
		}
		// Relations start neutral and cover every other country.
		if len(s.DiplomaticRelations) != 3 {
			t.Errorf("relations: %+v", s.DiplomaticRelations)
		}
	}

	for id, price := range b.Prices {
		if price <= 0 {
			t.Errorf("price %s: %v", id, price)
		}
	}
}

func TestDefaultConfigTracksTunedBiasFloor(t *testing.T) {
	got := DefaultConfig(1).BiasFloor
	want := config.DefaultTuning().Fairness.BiasFloor
	if got != want {
		t.Errorf("bias floor: %v, want %v", got, want)
	}
}

func TestGenerateWithOverriddenBiasFloor(t *testing.T) {
	cfg := DefaultConfig(9)
	cfg.BiasFloor = 0.5
	a := Generate(cfg)
	b := Generate(cfg)
	for i, c := range a.Countries {
		if len(c.Profile.Modifiers) == 0 {
			t.Errorf("country %s has no specialty", c.Name)
		}
		if !reflect.DeepEqual(c.Profile, b.Countries[i].Profile) {
			t.Errorf("profiles diverged for %s", c.Name)
		}
	}
}

func TestGenerateClampsConfig(t *testing.T) {
	cfg := DefaultConfig(3)
	cfg.Countries = 1 // below minimum
	cfg.CitiesPerCountry = 0
	b := Generate(cfg)
	if len(b.Countries) != 2 {
		t.Errorf("countries: %d, want clamped minimum 2", len(b.Countries))
	}
	if len(b.Cities) != 2 {
		t.Errorf("cities: %d, want one per country", len(b.Cities))
	}
}
