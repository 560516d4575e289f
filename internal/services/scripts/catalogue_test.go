package scripts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mstrack/mstrack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestCatalogue_LoadsPortalScript(t *testing.T) {
	dir := t.TempDir()
	content := "# login\nTAB\nINPUT_USERNAME\nENTER\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "editorialmanager.script"), []byte(content), 0644))

	c := NewCatalogue(dir, NewResolver(), arbor.NewLogger())

	script, err := c.Load(models.PortalEditorialManager)
	require.NoError(t, err)
	assert.Equal(t, "editorialmanager", script.PortalID)
	assert.Len(t, script.Opcodes, 3)
}

func TestCatalogue_ReadsFreshOnEveryLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mdpi.script")
	require.NoError(t, os.WriteFile(path, []byte("TAB\n"), 0644))

	c := NewCatalogue(dir, NewResolver(), arbor.NewLogger())

	script, err := c.Load(models.PortalMDPI)
	require.NoError(t, err)
	require.Len(t, script.Opcodes, 1)

	// edits are picked up without a restart
	require.NoError(t, os.WriteFile(path, []byte("TAB\nENTER\n"), 0644))
	script, err = c.Load(models.PortalMDPI)
	require.NoError(t, err)
	assert.Len(t, script.Opcodes, 2)
}

func TestCatalogue_MissingScriptIsHardFailure(t *testing.T) {
	c := NewCatalogue(t.TempDir(), NewResolver(), arbor.NewLogger())

	_, err := c.Load(models.PortalScholarOne)
	require.Error(t, err)
}
