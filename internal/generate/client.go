// Package generate defines the generation client contract: given
// session context, produce a structurally valid narrative node or
// signal failure. The orchestrator converts every failure into its
// fallback scene; nothing in this package is allowed to panic across
// that boundary.
package generate

import (
	"context"
	"errors"

	"github.com/tatianab/ironskeleton/internal/models"
)

// ErrGenerationFailed wraps every transport, timeout or validation
// failure of a generation call.
var ErrGenerationFailed = errors.New("generation failed")

// Request carries the full context of one generation call.
type Request struct {
	WorldSummary  string
	HistoryWindow []models.HistoryEntry
	Stats         models.Player
	LastInput     string
	TurnCount     int
	MaxTurns      int
	AnchorID      string
	AnchorText    string

	// Conclude forces a terminal scene regardless of player input;
	// set when the turn budget is exhausted.
	Conclude bool
}

// Client produces narrative continuations. Implementations must treat
// any deviation from the expected response shape as failure, never as
// partial success.
type Client interface {
	Generate(ctx context.Context, req Request) (*models.GenerationResult, error)
}
