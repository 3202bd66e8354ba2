package generate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tatianab/ironskeleton/internal/models"
)

// StripFences removes markdown code fences and surrounding prose from
// a model response, leaving the innermost JSON object. Models wrap
// their output often enough that this runs on every response.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	// Prose around the object: cut to the outermost braces.
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}
	return s
}

type rawOption struct {
	ID          *int    `json:"id"`
	Text        *string `json:"text"`
	NextSceneID *string `json:"nextSceneId"`
}

type rawResult struct {
	ID                  *string        `json:"id"`
	Text                *string        `json:"text"`
	IsEnd               *bool          `json:"isEnd"`
	Options             *[]rawOption   `json:"options"`
	ReachedTargetAnchor *bool          `json:"reachedTargetAnchor"`
	StatDelta           map[string]int `json:"statDelta"`
}

// Decode parses a raw model payload into a fully-typed
// GenerationResult. Missing required fields, wrong types and unknown
// stat keys all fail the decode; partially-typed data never flows into
// the state-mutation path.
func Decode(payload string) (*models.GenerationResult, error) {
	var raw rawResult
	if err := json.Unmarshal([]byte(StripFences(payload)), &raw); err != nil {
		return nil, fmt.Errorf("%w: unparsable payload: %v", ErrGenerationFailed, err)
	}

	switch {
	case raw.ID == nil || *raw.ID == "":
		return nil, fmt.Errorf("%w: missing id", ErrGenerationFailed)
	case raw.Text == nil || *raw.Text == "":
		return nil, fmt.Errorf("%w: missing text", ErrGenerationFailed)
	case raw.IsEnd == nil:
		return nil, fmt.Errorf("%w: missing isEnd", ErrGenerationFailed)
	case raw.Options == nil:
		return nil, fmt.Errorf("%w: missing options", ErrGenerationFailed)
	}

	options := make([]models.Option, 0, len(*raw.Options))
	seen := make(map[int]bool, len(*raw.Options))
	for i, opt := range *raw.Options {
		if opt.ID == nil || opt.Text == nil || *opt.Text == "" || opt.NextSceneID == nil {
			return nil, fmt.Errorf("%w: option %d incomplete", ErrGenerationFailed, i)
		}
		if seen[*opt.ID] {
			return nil, fmt.Errorf("%w: duplicate option id %d", ErrGenerationFailed, *opt.ID)
		}
		seen[*opt.ID] = true
		options = append(options, models.Option{ID: *opt.ID, Text: *opt.Text, NextSceneID: *opt.NextSceneID})
	}

	for key := range raw.StatDelta {
		switch key {
		case models.StatHP, models.StatMana, models.StatBullets, models.StatCredits:
		default:
			return nil, fmt.Errorf("%w: unknown stat %q in statDelta", ErrGenerationFailed, key)
		}
	}

	result := &models.GenerationResult{
		ID:        *raw.ID,
		Text:      *raw.Text,
		IsEnd:     *raw.IsEnd,
		Options:   options,
		StatDelta: raw.StatDelta,
	}
	if raw.ReachedTargetAnchor != nil {
		result.ReachedTargetAnchor = *raw.ReachedTargetAnchor
	}
	return result, nil
}
