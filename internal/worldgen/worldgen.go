// Package worldgen builds the starting state of a new game: countries with
// profile-biased resource stocks, their cities, and the opening market
// prices. Everything derives from the seed, so the same seed always yields
// the same world.
package worldgen

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/statecraft/internal/config"
	"github.com/talgya/statecraft/internal/economy"
	"github.com/talgya/statecraft/internal/entropy"
	"github.com/talgya/statecraft/internal/game"
	"github.com/talgya/statecraft/internal/store"
)

// Config holds world generation parameters.
type Config struct {
	Seed             int64
	Name             string
	Countries        int
	PlayerCountries  int
	CitiesPerCountry int
	BiasFloor        float64 // weight floor for specialty selection
}

// DefaultConfig returns a standard six-nation setup with one player seat.
// The bias floor tracks the tuning default; callers loading a tuning file
// should overwrite it with the loaded value.
func DefaultConfig(seed int64) Config {
	return Config{
		Seed:             seed,
		Name:             "New Game",
		Countries:        6,
		PlayerCountries:  1,
		CitiesPerCountry: 3,
		BiasFloor:        config.DefaultTuning().Fairness.BiasFloor,
	}
}

var countryNames = []string{
	"Veldonia", "Kestrelmark", "Ostrava", "Tallenreach",
	"Murovia", "Calderon", "Ironhold", "Seraphine",
	"Norvik", "Ashmere", "Drevska", "Port Halland",
}

var countryColors = []string{
	"#c0392b", "#2980b9", "#27ae60", "#8e44ad",
	"#d35400", "#16a085", "#7f8c8d", "#f39c12",
	"#2c3e50", "#e74c3c", "#1abc9c", "#9b59b6",
}

var cityNames = []string{
	"Harrowgate", "Eastmoor", "Fenwick", "Duskport", "Greyfield",
	"Aldershot", "Marrow Bend", "Thornhollow", "Winchfall", "Ravenstill",
	"Oakhaven", "Silvermere", "Coldwater", "Highcroft", "Lanefort",
	"Brackenvale", "Stoneham", "Merrowdale",
}

// Starting stat baselines. Noise and profiles push individual countries
// around these centers.
const (
	basePopulation = 80000
	baseBudget     = 500
	baseStrength   = 40
	baseEquipment  = 30
)

// Generate creates a complete, deterministic starting state from the seed.
func Generate(cfg Config) *store.Bootstrap {
	if cfg.Countries < 2 {
		cfg.Countries = 2
	}
	if cfg.Countries > len(countryNames) {
		cfg.Countries = len(countryNames)
	}
	if cfg.CitiesPerCountry < 1 {
		cfg.CitiesPerCountry = 1
	}

	src := entropy.NewSource(cfg.Seed)
	stockNoise := opensimplex.NewNormalized(cfg.Seed)
	cityNoise := opensimplex.NewNormalized(cfg.Seed + 1)
	priceNoise := opensimplex.NewNormalized(cfg.Seed + 2)

	gameID := stableID(cfg.Seed, "game", 0)
	b := &store.Bootstrap{
		Game: &store.Game{
			ID:   gameID,
			Name: cfg.Name,
			Seed: cfg.Seed,
			Turn: 1,
		},
	}

	cityIdx := 0
	for i := 0; i < cfg.Countries; i++ {
		profile := rollProfile(src, cfg.BiasFloor)
		country := &game.Country{
			ID:                 stableID(cfg.Seed, "country", i),
			GameID:             gameID,
			Name:               countryNames[i],
			Color:              countryColors[i%len(countryColors)],
			IsPlayerControlled: i < cfg.PlayerCountries,
			Profile:            &profile,
		}
		b.Countries = append(b.Countries, country)

		// Each country samples noise at its own coordinate so stocks vary
		// smoothly with the seed rather than independently at random.
		cx, cy := float64(i)*3.7, float64(i)*1.9
		stats := &game.CountryStats{
			CountryID:           country.ID,
			Turn:                1,
			Population:          scaled(basePopulation, stockNoise.Eval2(cx, cy), 0.3),
			Budget:              scaled(baseBudget, stockNoise.Eval2(cx+11, cy), 0.25),
			TechnologyLevel:     1,
			InfrastructureLevel: 1 + int(stockNoise.Eval2(cx+23, cy)*2),
			MilitaryStrength:    scaled(baseStrength, stockNoise.Eval2(cx+31, cy), 0.4),
			MilitaryEquipment:   scaled(baseEquipment, stockNoise.Eval2(cx+43, cy), 0.4),
			Resources:           startingResources(profile, stockNoise, cx, cy),
			DiplomaticRelations: map[string]int{},
		}
		b.Stats = append(b.Stats, stats)

		for j := 0; j < cfg.CitiesPerCountry; j++ {
			name := cityNames[cityIdx%len(cityNames)]
			cityIdx++
			px, py := cx+float64(j)*0.7, cy+float64(j)*1.3
			pop := stats.Population / cfg.CitiesPerCountry
			// Capital concentrates population.
			if j == 0 {
				pop = pop * 3 / 2
			}
			b.Cities = append(b.Cities, &game.City{
				ID:         stableID(cfg.Seed, "city", cityIdx),
				GameID:     gameID,
				CountryID:  country.ID,
				Name:       name,
				Population: pop,
				Yields:     cityYields(cityNoise, px, py),
			})
		}
	}

	// Neutral starting relations, symmetric by construction.
	for _, s := range b.Stats {
		for _, other := range b.Countries {
			if other.ID != s.CountryID {
				s.DiplomaticRelations[other.ID] = 0
			}
		}
	}

	b.Prices = startingPrices(priceNoise)
	return b
}

// rollProfile assigns one or two production specialties plus mild cost
// modifiers. Specialty odds follow base production volume, so common
// resources stay the common specialty. Already-granted specialties are
// biased strongly downward rather than excluded; the floor keeps them
// selectable, and a repeat pick is skipped.
func rollProfile(src *entropy.Source, biasFloor float64) game.ResourceProfile {
	opts := make([]entropy.Option, 0, len(economy.Registry))
	for _, id := range economy.ResourceIDs() {
		opts = append(opts, entropy.Option{ID: id, Weight: float64(economy.Registry[id].BaseProduction)})
	}

	n := 1
	if src.Float() < 0.35 {
		n = 2
	}
	profile := game.ResourceProfile{MilitaryBonus: 1.0}
	picked := map[string]bool{}
	bias := map[string]float64{}
	for attempts := 0; len(profile.Modifiers) < n && attempts < 8; attempts++ {
		id, err := entropy.WeightedPick(src, opts, bias, biasFloor)
		if err != nil {
			break
		}
		if picked[id] {
			continue
		}
		picked[id] = true
		bias[id] = -5.0
		profile.Modifiers = append(profile.Modifiers, game.ResourceModifier{
			ResourceID:           id,
			ProductionMultiplier: 1.2 + src.Float()*0.4,
			StartingBonus:        20 + src.Intn(40),
		})
	}

	profile.CostModifiers.Technology = jitter(src, 0.15)
	profile.CostModifiers.Infrastructure = jitter(src, 0.15)
	profile.CostModifiers.Military = jitter(src, 0.15)
	profile.CostModifiers.TradeEfficiency = jitter(src, 0.10)
	if src.Float() < 0.2 {
		profile.MilitaryBonus = 1.1 + src.Float()*0.2
	}
	return profile
}

func startingResources(profile game.ResourceProfile, noise opensimplex.Noise, cx, cy float64) map[string]int {
	res := make(map[string]int, len(economy.Registry))
	off := 0.0
	for _, id := range economy.ResourceIDs() {
		info := economy.Registry[id]
		base := info.BaseProduction * 5
		amt := scaled(base, noise.Eval2(cx+off, cy+off), 0.5)
		off += 5.1
		for _, m := range profile.Modifiers {
			if m.ResourceID == id {
				amt = int(float64(amt)*m.ProductionMultiplier) + m.StartingBonus
			}
		}
		res[id] = amt
	}
	return res
}

func cityYields(noise opensimplex.Noise, x, y float64) map[string]int {
	yields := make(map[string]int)
	off := 0.0
	for _, id := range economy.ResourceIDs() {
		v := noise.Eval2(x+off, y+off)
		off += 3.3
		if v > 0.6 {
			yields[id] = 1 + int((v-0.6)*10)
		}
	}
	return yields
}

func startingPrices(noise opensimplex.Noise) map[string]float64 {
	prices := make(map[string]float64, len(economy.Registry))
	off := 0.0
	for _, id := range economy.ResourceIDs() {
		info := economy.Registry[id]
		// Jitter base prices by up to ±20%.
		v := noise.Eval2(off, off*1.7)
		prices[id] = math.Round(info.BasePrice*(0.8+v*0.4)*100) / 100
		off += 2.9
	}
	return prices
}

// scaled centers an amount on base and swings it by up to ±spread, driven
// by a normalized noise sample.
func scaled(base int, sample, spread float64) int {
	factor := 1.0 + (sample*2-1)*spread
	v := int(float64(base) * factor)
	if v < 1 {
		v = 1
	}
	return v
}

func jitter(src *entropy.Source, spread float64) float64 {
	return 1.0 + (src.Float()*2-1)*spread
}

// stableID derives a reproducible UUID from the seed and an entity label,
// keeping generation deterministic end to end.
func stableID(seed int64, kind string, n int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%d/%s/%d", seed, kind, n))).String()
}
