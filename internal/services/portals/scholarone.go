package portals

import (
	"context"
	"fmt"
	"strings"

	"github.com/mstrack/mstrack/internal/interfaces"
	"github.com/mstrack/mstrack/internal/services/interpreter"
	"github.com/ternarybob/arbor"
)

// s1TraversalSteps is the fixed number of focus stops the ScholarOne sweep
// walks. The author dashboard layout is stable enough that a fixed count
// covers the queue links without a termination label.
const s1TraversalSteps = 15

// s1Markers are substrings of the dashboard queue links worth capturing.
var s1Markers = []string{
	"Submitted Manuscripts",
	"Manuscripts with Decisions",
	"Unsubmitted and Manuscripts in Draft",
	"Revised Manuscripts in Draft",
}

// ScholarOneRoutine walks a fixed stretch of the author dashboard and
// captures every queue link matching a marker, using the same
// open/capture/close cycle as the Editorial Manager sweep.
type ScholarOneRoutine struct {
	logger arbor.ILogger
}

func NewScholarOneRoutine(logger arbor.ILogger) *ScholarOneRoutine {
	return &ScholarOneRoutine{logger: logger}
}

func (r *ScholarOneRoutine) Run(ctx context.Context, env *interpreter.Env) error {
	home := env.Driver.ActiveWindow()
	captured := 0

	for step := 0; step < s1TraversalSteps; step++ {
		if err := env.Driver.SendKey(ctx, interfaces.KeyTab); err != nil {
			return fmt.Errorf("status sweep key event failed: %w", err)
		}
		text, err := env.Driver.FocusedText(ctx)
		if err != nil {
			return fmt.Errorf("status sweep focus read failed: %w", err)
		}

		if !matchesMarker(text) {
			continue
		}
		if err := r.captureQueue(ctx, env, home, text); err != nil {
			return err
		}
		captured++
	}

	r.logger.Info().
		Str("portal", string(env.Portal)).
		Int("captured", captured).
		Msg("ScholarOne status sweep finished")
	return nil
}

func matchesMarker(text string) bool {
	for _, marker := range s1Markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func (r *ScholarOneRoutine) captureQueue(ctx context.Context, env *interpreter.Env, home, label string) error {
	win, err := env.Driver.OpenFocusedInNewWindow(ctx)
	if err != nil {
		return fmt.Errorf("failed to open queue %q: %w", label, err)
	}

	if _, err := env.Capture(ctx, label); err != nil {
		_ = env.Driver.CloseWindow(ctx, win)
		_ = env.Driver.SwitchWindow(ctx, home)
		return fmt.Errorf("failed to capture queue %q: %w", label, err)
	}

	if err := env.Driver.CloseWindow(ctx, win); err != nil {
		return fmt.Errorf("failed to close queue window %q: %w", label, err)
	}
	if err := env.Driver.SwitchWindow(ctx, home); err != nil {
		return fmt.Errorf("failed to return to dashboard after %q: %w", label, err)
	}
	return nil
}
