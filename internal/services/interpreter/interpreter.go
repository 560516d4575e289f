package interpreter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mstrack/mstrack/internal/interfaces"
	"github.com/mstrack/mstrack/internal/models"
	"github.com/ternarybob/arbor"
)

// Capturer screenshots the current window and registers the artifact,
// returning its path. Bound to the session manager by the caller.
type Capturer func(ctx context.Context, label string) (string, error)

// StatusChecker runs the portal-specific status sweep for CHECK_STATUS.
type StatusChecker interface {
	// CheckStatus runs the routine registered for env.Portal. A portal
	// with no routine is logged and skipped, not an error.
	CheckStatus(ctx context.Context, env *Env) error
}

// Env carries everything one script run needs: the browser handle, the
// capture hook, the credentials being replayed, and the portal identity.
type Env struct {
	Driver   interfaces.UIDriver
	Capture  Capturer
	Portal   models.PortalID
	Username string
	Password string
}

// surveyProbeLimit bounds the SURVEY_CHECK focus traversal.
const surveyProbeLimit = 6

// surveyRecoveryTabs re-establishes a known focus position after a survey
// prompt window has been discarded.
const surveyRecoveryTabs = 2

// surveyPhrases are the interstitial markers SURVEY_CHECK looks for in
// focused-element text.
var surveyPhrases = []string{"survey", "feedback", "questionnaire"}

// keyForOpcode maps pure key opcodes to driver key events.
var keyForOpcode = map[models.OpcodeKind]interfaces.DriverKey{
	models.OpTab:      interfaces.KeyTab,
	models.OpShiftTab: interfaces.KeyShiftTab,
	models.OpSpace:    interfaces.KeySpace,
	models.OpEscape:   interfaces.KeyEscape,
	models.OpEnter:    interfaces.KeyEnter,
	models.OpFind:     interfaces.KeyFind,
	models.OpPaste:    interfaces.KeyPaste,
}

// clickTargets is the closed map of CLICK operands. Targets are symbolic
// so scripts never carry raw selectors.
var clickTargets = map[string]string{
	"login_button":    `input[type="submit"], button[type="submit"]`,
	"author_login":    `a[href*="author" i]`,
	"main_menu":       `a[href*="default" i]`,
	"logout":          `a[href*="logout" i]`,
	"continue_button": `input[value*="Continue" i]`,
}

// Interpreter replays automation scripts opcode by opcode against a UI
// driver. Execution is sequential and blocking; each opcode completes
// before the next starts, and the first failed opcode aborts the rest of
// the script.
type Interpreter struct {
	status       StatusChecker
	unknownDelay time.Duration
	logger       arbor.ILogger
}

// New creates an interpreter. unknownDelay is the suspension applied after
// each UNKNOWN opcode; zero disables it.
func New(status StatusChecker, unknownDelay time.Duration, logger arbor.ILogger) *Interpreter {
	return &Interpreter{
		status:       status,
		unknownDelay: unknownDelay,
		logger:       logger,
	}
}

// Run executes the script in order. Artifacts captured before a failure
// remain registered with the session; the error only stops further opcodes.
func (i *Interpreter) Run(ctx context.Context, script models.Script, env *Env) error {
	i.logger.Info().
		Str("portal", script.PortalID).
		Int("opcodes", len(script.Opcodes)).
		Msg("Running portal script")

	for _, op := range script.Opcodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := i.execute(ctx, op, env); err != nil {
			return fmt.Errorf("opcode %s (line %d) failed: %w", op.Kind, op.Line, err)
		}
	}
	return nil
}

func (i *Interpreter) execute(ctx context.Context, op models.Opcode, env *Env) error {
	if key, ok := keyForOpcode[op.Kind]; ok {
		return env.Driver.SendKey(ctx, key)
	}

	switch op.Kind {
	case models.OpSleep:
		return sleepCtx(ctx, time.Duration(op.SleepMS)*time.Millisecond)

	case models.OpInputUsername:
		return env.Driver.TypeText(ctx, env.Username)

	case models.OpInputPassword:
		return env.Driver.TypeText(ctx, env.Password)

	case models.OpInputLiteral:
		return env.Driver.TypeText(ctx, op.Operand)

	case models.OpScreenshot:
		_, err := env.Capture(ctx, env.Username)
		return err

	case models.OpClick:
		selector, ok := clickTargets[op.Operand]
		if !ok {
			i.logger.Warn().
				Str("target", op.Operand).
				Int("line", op.Line).
				Msg("Unknown click target, skipping")
			return nil
		}
		return env.Driver.Click(ctx, selector)

	case models.OpSurveyCheck:
		i.surveyCheck(ctx, env)
		return nil

	case models.OpCheckStatus:
		return i.status.CheckStatus(ctx, env)

	case models.OpUnknown:
		i.logger.Warn().
			Str("token", op.Operand).
			Int("line", op.Line).
			Msg("Unknown opcode in script")
		return sleepCtx(ctx, i.unknownDelay)

	default:
		i.logger.Warn().
			Str("kind", string(op.Kind)).
			Int("line", op.Line).
			Msg("Unhandled opcode kind, skipping")
		return nil
	}
}

// surveyCheck probes a bounded focus traversal for a survey interstitial.
// If one is found the prompt is opened in a new window and immediately
// discarded, focus returns to the original window and the page reloads;
// with no interstitial the page still reloads to clear the traversal
// state. Internal errors never propagate: the single fallback is switching
// back to the first window.
func (i *Interpreter) surveyCheck(ctx context.Context, env *Env) {
	home := env.Driver.ActiveWindow()

	if err := i.probeSurvey(ctx, env, home); err != nil {
		i.logger.Warn().Err(err).Msg("Survey check hit an error, falling back to first window")
		if windows, werr := env.Driver.Windows(ctx); werr == nil && len(windows) > 0 {
			if serr := env.Driver.SwitchWindow(ctx, windows[0]); serr != nil {
				i.logger.Warn().Err(serr).Msg("Survey check fallback switch failed")
			}
		}
	}
}

func (i *Interpreter) probeSurvey(ctx context.Context, env *Env, home string) error {
	for n := 0; n < surveyProbeLimit; n++ {
		if err := env.Driver.SendKey(ctx, interfaces.KeyTab); err != nil {
			return err
		}
		text, err := env.Driver.FocusedText(ctx)
		if err != nil {
			return err
		}
		if !containsSurveyPhrase(text) {
			continue
		}

		i.logger.Info().Str("text", text).Msg("Survey interstitial detected, dismissing")
		return i.dismissSurvey(ctx, env, home)
	}
	return env.Driver.Reload(ctx)
}

// dismissSurvey swallows the focused prompt by opening it in a throwaway
// window, then restores the main window to a usable focus position.
func (i *Interpreter) dismissSurvey(ctx context.Context, env *Env, home string) error {
	win, err := env.Driver.OpenFocusedInNewWindow(ctx)
	if err != nil {
		return err
	}
	if err := env.Driver.CloseWindow(ctx, win); err != nil {
		return err
	}
	if err := env.Driver.SwitchWindow(ctx, home); err != nil {
		return err
	}
	for n := 0; n < surveyRecoveryTabs; n++ {
		if err := env.Driver.SendKey(ctx, interfaces.KeyTab); err != nil {
			return err
		}
	}
	return env.Driver.Reload(ctx)
}

func containsSurveyPhrase(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range surveyPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// sleepCtx suspends for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
