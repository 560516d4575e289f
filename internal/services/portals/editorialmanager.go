package portals

import (
	"context"
	"fmt"

	"github.com/mstrack/mstrack/internal/interfaces"
	"github.com/mstrack/mstrack/internal/services/interpreter"
	"github.com/ternarybob/arbor"
)

// emProbeBound caps how many focus stops one sweep may visit.
const emProbeBound = 20

// emFolderLabels is the catalogue of Editorial Manager author main-menu
// folder links. The sweep assumes the folders sit contiguously in the
// page's tab order: it searches for the first catalogue label, then stops
// at the first focused text that falls outside the catalogue.
var emFolderLabels = map[string]bool{
	"Submissions Sent Back to Author":           true,
	"Incomplete Submissions":                    true,
	"Submissions Waiting for Author's Approval": true,
	"Submissions Being Processed":               true,
	"Submissions Needing Revision":              true,
	"Revisions Sent Back to Author":             true,
	"Incomplete Submissions Being Revised":      true,
	"Revisions Waiting for Author's Approval":   true,
	"Revisions Being Processed":                 true,
	"Declined Revisions":                        true,
	"Submissions with a Decision":               true,
	"Submissions with Production Completed":     true,
}

type emState int

const (
	emSearching emState = iota // tabbing toward the first catalogue label
	emSweeping                 // inside the folder block, capturing each
	emDone
)

// EditorialManagerRoutine sweeps the author main menu: for every folder
// link with submissions it opens the folder in a new window, captures a
// screenshot labelled with the folder name, closes the window and returns
// focus to the menu.
type EditorialManagerRoutine struct {
	logger arbor.ILogger
}

func NewEditorialManagerRoutine(logger arbor.ILogger) *EditorialManagerRoutine {
	return &EditorialManagerRoutine{logger: logger}
}

func (r *EditorialManagerRoutine) Run(ctx context.Context, env *interpreter.Env) error {
	home := env.Driver.ActiveWindow()
	state := emSearching
	recorded := make(map[string]bool)

	for probe := 0; probe < emProbeBound && state != emDone; probe++ {
		if err := env.Driver.SendKey(ctx, interfaces.KeyTab); err != nil {
			return fmt.Errorf("status sweep key event failed: %w", err)
		}
		text, err := env.Driver.FocusedText(ctx)
		if err != nil {
			return fmt.Errorf("status sweep focus read failed: %w", err)
		}

		inCatalogue := emFolderLabels[text]

		switch state {
		case emSearching:
			if !inCatalogue {
				continue
			}
			state = emSweeping
			fallthrough

		case emSweeping:
			if !inCatalogue {
				// first label past the folder block ends the sweep
				state = emDone
				continue
			}
			if recorded[text] {
				// a folder already captured this run; keep sweeping
				continue
			}
			if err := r.captureFolder(ctx, env, home, text); err != nil {
				return err
			}
			recorded[text] = true
		}
	}

	r.logger.Info().
		Str("portal", string(env.Portal)).
		Int("captured", len(recorded)).
		Msg("Editorial Manager status sweep finished")
	return nil
}

// captureFolder opens the focused folder in a new window, screenshots it,
// then closes the window and restores focus to the menu.
func (r *EditorialManagerRoutine) captureFolder(ctx context.Context, env *interpreter.Env, home, label string) error {
	win, err := env.Driver.OpenFocusedInNewWindow(ctx)
	if err != nil {
		return fmt.Errorf("failed to open folder %q: %w", label, err)
	}

	if _, err := env.Capture(ctx, label); err != nil {
		// close the window before reporting so the menu stays usable
		_ = env.Driver.CloseWindow(ctx, win)
		_ = env.Driver.SwitchWindow(ctx, home)
		return fmt.Errorf("failed to capture folder %q: %w", label, err)
	}

	if err := env.Driver.CloseWindow(ctx, win); err != nil {
		return fmt.Errorf("failed to close folder window %q: %w", label, err)
	}
	if err := env.Driver.SwitchWindow(ctx, home); err != nil {
		return fmt.Errorf("failed to return to menu after %q: %w", label, err)
	}
	return nil
}
