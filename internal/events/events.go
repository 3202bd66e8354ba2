// Package events matches scene/location identifiers against the
// theme's trigger table and yields probabilistic effect+narrative
// pairs.
package events

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/tatianab/ironskeleton/internal/models"
)

// Rand is the source of randomness for probabilistic trigger firing.
// *math/rand.Rand satisfies it; tests inject a seeded or fixed source.
type Rand interface {
	Float64() float64
}

// Fired is one trigger that fired for a location this turn.
type Fired struct {
	EventID   string
	Narrative string
	Effect    map[string]int
}

// Engine holds the loaded trigger table. Triggers are checked in
// insertion order, so fired effects and narratives come back in the
// order the theme declares them.
type Engine struct {
	triggers []models.Trigger
	rng      Rand
}

// NewEngine builds an engine over a trigger table with an injected
// random source.
func NewEngine(triggers []models.Trigger, rng Rand) *Engine {
	return &Engine{triggers: triggers, rng: rng}
}

// LoadTriggers parses a trigger config: a JSON array of trigger
// definitions. Malformed entries fail the whole load.
func LoadTriggers(r io.Reader) ([]models.Trigger, error) {
	var triggers []models.Trigger
	if err := json.NewDecoder(r).Decode(&triggers); err != nil {
		return nil, fmt.Errorf("parsing triggers: %w", err)
	}
	for i, t := range triggers {
		if t.EventID == "" {
			return nil, fmt.Errorf("trigger %d: missing eventId", i)
		}
		if t.Probability < 0 || t.Probability > 1 {
			return nil, fmt.Errorf("trigger %q: probability %v out of [0,1]", t.EventID, t.Probability)
		}
	}
	return triggers, nil
}

// LoadTriggersFile loads a trigger config from disk. A missing file is
// not an error; a theme without events simply has no triggers.
func LoadTriggersFile(path string) ([]models.Trigger, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening triggers: %w", err)
	}
	defer f.Close()
	return LoadTriggers(f)
}

// CheckTriggers draws for every location_enter trigger targeting the
// given location and returns the ones that fired, in trigger-table
// order. Probability 1.0 triggers always fire.
func (e *Engine) CheckTriggers(locationID string) []Fired {
	var fired []Fired
	for _, t := range e.triggers {
		if t.ConditionType != models.ConditionLocationEnter || t.TargetID != locationID {
			continue
		}
		if e.rng.Float64() <= t.Probability {
			fired = append(fired, Fired{
				EventID:   t.EventID,
				Narrative: t.Narrative,
				Effect:    t.Effect,
			})
		}
	}
	return fired
}
