package scripts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mstrack/mstrack/internal/models"
)

// ErrUnknownPortal is returned when no matcher row claims a URL. The
// catalogue lookup is total: an unmatched URL is a hard failure for the
// job, never a default no-op.
var ErrUnknownPortal = errors.New("no portal registered for URL")

// defaultMatchers is the ordered resolution table. Rows are checked top to
// bottom; first hostname-substring hit wins, so narrower hosts sit above
// the domains that contain them.
var defaultMatchers = []models.PortalMatcher{
	{Substring: "editorialmanager.com", Portal: models.PortalEditorialManager},
	{Substring: "mc03.manuscriptcentral.com", Portal: models.PortalScholarOne},
	{Substring: "manuscriptcentral.com", Portal: models.PortalScholarOne},
	{Substring: "ees.elsevier.com", Portal: models.PortalElsevierEES},
	{Substring: "susy.mdpi.com", Portal: models.PortalMDPI},
	{Substring: "mts-", Portal: models.PortalSpringerNature},
}

// Resolver maps credential URLs to portal identities.
type Resolver struct {
	matchers []models.PortalMatcher
}

// NewResolver creates a resolver with the built-in matcher table.
func NewResolver() *Resolver {
	return &Resolver{matchers: defaultMatchers}
}

// NewResolverWithTable creates a resolver with a custom ordered table.
func NewResolverWithTable(matchers []models.PortalMatcher) *Resolver {
	return &Resolver{matchers: matchers}
}

// Resolve returns the portal identity for a URL or ErrUnknownPortal.
func (r *Resolver) Resolve(url string) (models.PortalID, error) {
	lowered := strings.ToLower(url)
	for _, m := range r.matchers {
		if strings.Contains(lowered, m.Substring) {
			return m.Portal, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownPortal, url)
}
