package helper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mstrack/mstrack/internal/interfaces"
	"github.com/mstrack/mstrack/internal/models"
	"github.com/ternarybob/arbor"
)

// ErrHelperFailed wraps every failure mode of an alternate-strategy
// helper: spawn failure, non-zero exit, or an unusable final line.
var ErrHelperFailed = errors.New("alternate strategy helper failed")

// Runner executes configured per-portal helper commands. It implements
// interfaces.StrategyRunner.
//
// Helpers receive the portal URL, username and password as three trailing
// arguments and must print a single JSON object on the final non-empty
// stdout line: {"status": "...", "images": ["...", ...]}.
type Runner struct {
	commands map[models.PortalID]string
	logger   arbor.ILogger
}

// NewRunner creates a runner from the configured portal→command map.
func NewRunner(commands map[string]string, logger arbor.ILogger) *Runner {
	byPortal := make(map[models.PortalID]string, len(commands))
	for portal, cmd := range commands {
		byPortal[models.PortalID(portal)] = cmd
	}
	return &Runner{commands: byPortal, logger: logger}
}

// Supports reports whether a helper command is configured for the portal.
func (r *Runner) Supports(portal models.PortalID) bool {
	_, ok := r.commands[portal]
	return ok
}

// Run invokes the portal's helper and parses its result.
func (r *Runner) Run(ctx context.Context, portal models.PortalID, url, username, password string) (*interfaces.StrategyResult, error) {
	command, ok := r.commands[portal]
	if !ok {
		return nil, fmt.Errorf("%w: no helper configured for portal %s", ErrHelperFailed, portal)
	}

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty helper command for portal %s", ErrHelperFailed, portal)
	}
	args := append(parts[1:], url, username, password)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, parts[0], args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Info().
		Str("portal", string(portal)).
		Str("command", parts[0]).
		Msg("Running alternate strategy helper")

	if err := cmd.Run(); err != nil {
		r.logger.Warn().
			Str("portal", string(portal)).
			Str("stderr", truncate(stderr.String(), 512)).
			Err(err).
			Msg("Helper exited with error")
		return nil, fmt.Errorf("%w: %v", ErrHelperFailed, err)
	}

	result, err := parseFinalLine(stdout.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHelperFailed, err)
	}

	r.logger.Info().
		Str("portal", string(portal)).
		Str("status", result.Status).
		Int("images", len(result.ArtifactPaths)).
		Msg("Helper finished")
	return result, nil
}

// parseFinalLine extracts the JSON object from the final non-empty stdout
// line. Everything before it is helper chatter and ignored.
func parseFinalLine(output string) (*interfaces.StrategyResult, error) {
	lines := strings.Split(output, "\n")
	for n := len(lines) - 1; n >= 0; n-- {
		line := strings.TrimSpace(lines[n])
		if line == "" {
			continue
		}
		var result interfaces.StrategyResult
		if err := json.Unmarshal([]byte(line), &result); err != nil {
			return nil, fmt.Errorf("unparsable final output line: %w", err)
		}
		return &result, nil
	}
	return nil, fmt.Errorf("helper produced no output")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
