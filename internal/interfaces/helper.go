package interfaces

import (
	"context"

	"github.com/mstrack/mstrack/internal/models"
)

// StrategyResult is the structured output of an out-of-process
// alternate-strategy helper: a status plus the image paths it produced.
type StrategyResult struct {
	Status        string   `json:"status"`
	ArtifactPaths []string `json:"images"`
}

// StrategyRunner invokes a per-portal helper process that performs the
// status check with its own automation strategy. The wire contract is a
// single JSON object on the final non-empty line of stdout; a non-zero
// exit or an unparsable final line is a hard failure for the job.
type StrategyRunner interface {
	Supports(portal models.PortalID) bool
	Run(ctx context.Context, portal models.PortalID, url, username, password string) (*StrategyResult, error)
}
