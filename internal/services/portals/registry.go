package portals

import (
	"context"

	"github.com/mstrack/mstrack/internal/models"
	"github.com/mstrack/mstrack/internal/services/interpreter"
	"github.com/ternarybob/arbor"
)

// Routine is one portal's status-sweep behavior, invoked by the
// CHECK_STATUS opcode after the script has logged in and positioned focus.
type Routine interface {
	Run(ctx context.Context, env *interpreter.Env) error
}

// Registry maps portal identities to their status routines. It implements
// interpreter.StatusChecker.
type Registry struct {
	routines map[models.PortalID]Routine
	logger   arbor.ILogger
}

// NewRegistry creates a registry with every known portal registered.
func NewRegistry(logger arbor.ILogger) *Registry {
	r := &Registry{
		routines: make(map[models.PortalID]Routine),
		logger:   logger,
	}
	r.Register(models.PortalEditorialManager, NewEditorialManagerRoutine(logger))
	r.Register(models.PortalScholarOne, NewScholarOneRoutine(logger))
	r.Register(models.PortalElsevierEES, newStubRoutine(models.PortalElsevierEES, logger))
	r.Register(models.PortalMDPI, newStubRoutine(models.PortalMDPI, logger))
	r.Register(models.PortalSpringerNature, newStubRoutine(models.PortalSpringerNature, logger))
	return r
}

// Register adds or replaces a portal routine.
func (r *Registry) Register(portal models.PortalID, routine Routine) {
	r.routines[portal] = routine
}

// CheckStatus dispatches the routine for env.Portal. A portal with no
// registered routine is logged and skipped, never an error.
func (r *Registry) CheckStatus(ctx context.Context, env *interpreter.Env) error {
	routine, ok := r.routines[env.Portal]
	if !ok {
		r.logger.Warn().
			Str("portal", string(env.Portal)).
			Msg("No status routine registered for portal")
		return nil
	}
	return routine.Run(ctx, env)
}

// stubRoutine logs and captures nothing. Placeholder for portals whose
// sweep behavior has not been written yet.
type stubRoutine struct {
	portal models.PortalID
	logger arbor.ILogger
}

func newStubRoutine(portal models.PortalID, logger arbor.ILogger) *stubRoutine {
	return &stubRoutine{portal: portal, logger: logger}
}

func (s *stubRoutine) Run(_ context.Context, _ *interpreter.Env) error {
	s.logger.Info().
		Str("portal", string(s.portal)).
		Msg("Status routine not implemented for portal, skipping sweep")
	return nil
}
