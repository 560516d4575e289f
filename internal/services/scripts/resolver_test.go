package scripts

import (
	"testing"

	"github.com/mstrack/mstrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_KnownPortals(t *testing.T) {
	r := NewResolver()

	tests := []struct {
		url    string
		portal models.PortalID
	}{
		{"https://www.editorialmanager.com/jors/default.aspx", models.PortalEditorialManager},
		{"https://mc.manuscriptcentral.com/aej", models.PortalScholarOne},
		{"https://mc03.manuscriptcentral.com/cjim", models.PortalScholarOne},
		{"https://ees.elsevier.com/jcp/", models.PortalElsevierEES},
		{"https://susy.mdpi.com/user/login", models.PortalMDPI},
		{"https://mts-jmst.nature.com/", models.PortalSpringerNature},
	}

	for _, tt := range tests {
		portal, err := r.Resolve(tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.portal, portal, tt.url)
	}
}

func TestResolver_UnknownPortalIsHardFailure(t *testing.T) {
	r := NewResolver()

	_, err := r.Resolve("https://journals.example.org/submit")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownPortal)
}

func TestResolver_OrderedFirstMatchWins(t *testing.T) {
	r := NewResolverWithTable([]models.PortalMatcher{
		{Substring: "example.com", Portal: models.PortalMDPI},
		{Substring: "sub.example.com", Portal: models.PortalElsevierEES},
	})

	portal, err := r.Resolve("https://sub.example.com/login")
	require.NoError(t, err)
	assert.Equal(t, models.PortalMDPI, portal)
}

func TestResolver_DefaultTableRowsAllReachable(t *testing.T) {
	// a row whose substring contains an earlier row's substring can never
	// match; narrower hosts must sit above the domains containing them
	for i, m := range defaultMatchers {
		for _, earlier := range defaultMatchers[:i] {
			assert.NotContains(t, m.Substring, earlier.Substring,
				"row %q is shadowed by %q", m.Substring, earlier.Substring)
		}
	}
}

func TestResolver_CaseInsensitive(t *testing.T) {
	r := NewResolver()

	portal, err := r.Resolve("https://WWW.EditorialManager.COM/test")
	require.NoError(t, err)
	assert.Equal(t, models.PortalEditorialManager, portal)
}
