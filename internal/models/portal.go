package models

// PortalID identifies one known journal submission portal.
type PortalID string

const (
	PortalEditorialManager PortalID = "editorialmanager"
	PortalScholarOne       PortalID = "scholarone"
	PortalElsevierEES      PortalID = "ees"
	PortalMDPI             PortalID = "mdpi"
	PortalSpringerNature   PortalID = "springernature"
)

// PortalMatcher is one row of the ordered URL-to-portal resolution table:
// a hostname substring plus the portal it selects. First match wins.
type PortalMatcher struct {
	Substring string
	Portal    PortalID
}
