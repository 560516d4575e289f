package scripts

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mstrack/mstrack/internal/models"
	"github.com/ternarybob/arbor"
)

// Catalogue serves portal automation scripts from a directory of
// <portal>.script files. Scripts are read fresh on every load so operators
// can change automation behavior without a restart.
type Catalogue struct {
	dir      string
	resolver *Resolver
	logger   arbor.ILogger
}

// NewCatalogue creates a script catalogue over the given directory.
func NewCatalogue(dir string, resolver *Resolver, logger arbor.ILogger) *Catalogue {
	return &Catalogue{
		dir:      dir,
		resolver: resolver,
		logger:   logger,
	}
}

// Resolve maps a credential URL to its portal identity.
func (c *Catalogue) Resolve(url string) (models.PortalID, error) {
	return c.resolver.Resolve(url)
}

// Load reads and parses the script for a portal. A portal with no script
// file is a hard failure, consistent with the total-lookup guarantee.
func (c *Catalogue) Load(portal models.PortalID) (models.Script, error) {
	path := filepath.Join(c.dir, string(portal)+".script")

	content, err := os.ReadFile(path)
	if err != nil {
		return models.Script{}, fmt.Errorf("failed to load script for portal %s: %w", portal, err)
	}

	script := ParseScript(string(portal), string(content))

	c.logger.Debug().
		Str("portal", string(portal)).
		Str("path", path).
		Int("opcodes", len(script.Opcodes)).
		Msg("Loaded portal script")

	return script, nil
}
