package portals

import (
	"context"
	"fmt"
	"testing"

	"github.com/mstrack/mstrack/internal/interfaces"
	"github.com/mstrack/mstrack/internal/models"
	"github.com/mstrack/mstrack/internal/services/interpreter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

// sweepDriver serves a scripted sequence of focused texts, one per TAB.
type sweepDriver struct {
	focusSeq []string
	tabCount int
	calls    []string
	windows  []string
	active   string
}

func newSweepDriver(focusSeq ...string) *sweepDriver {
	return &sweepDriver{focusSeq: focusSeq, windows: []string{"menu"}, active: "menu"}
}

func (d *sweepDriver) record(format string, args ...any) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

func (d *sweepDriver) Navigate(context.Context, string) error { return nil }
func (d *sweepDriver) Reload(context.Context) error           { return nil }

func (d *sweepDriver) SendKey(_ context.Context, key interfaces.DriverKey) error {
	if key == interfaces.KeyTab {
		d.tabCount++
	}
	return nil
}

func (d *sweepDriver) TypeText(context.Context, string) error { return nil }

func (d *sweepDriver) FocusedText(context.Context) (string, error) {
	if d.tabCount-1 < len(d.focusSeq) {
		return d.focusSeq[d.tabCount-1], nil
	}
	return "", nil
}

func (d *sweepDriver) Click(context.Context, string) error { return nil }

func (d *sweepDriver) OpenFocusedInNewWindow(context.Context) (string, error) {
	id := fmt.Sprintf("win-%d", len(d.windows)+1)
	d.windows = append(d.windows, id)
	d.active = id
	d.record("open:%s", id)
	return id, nil
}

func (d *sweepDriver) Windows(context.Context) ([]string, error) {
	return append([]string(nil), d.windows...), nil
}

func (d *sweepDriver) ActiveWindow() string { return d.active }

func (d *sweepDriver) SwitchWindow(_ context.Context, id string) error {
	d.active = id
	d.record("switch:%s", id)
	return nil
}

func (d *sweepDriver) CloseWindow(_ context.Context, id string) error {
	for n, w := range d.windows {
		if w == id {
			d.windows = append(d.windows[:n], d.windows[n+1:]...)
			break
		}
	}
	d.record("close:%s", id)
	return nil
}

func (d *sweepDriver) Screenshot(context.Context) ([]byte, error) { return []byte{1}, nil }
func (d *sweepDriver) Close() error                               { return nil }

func sweepEnv(d *sweepDriver, portal models.PortalID, captured *[]string) *interpreter.Env {
	return &interpreter.Env{
		Driver: d,
		Portal: portal,
		Capture: func(_ context.Context, label string) (string, error) {
			*captured = append(*captured, label)
			return "/tmp/" + label + ".png", nil
		},
	}
}

func TestEditorialManager_CapturesFolderBlock(t *testing.T) {
	d := newSweepDriver(
		"Home",
		"Main Menu",
		"Submissions Being Processed",
		"Submissions Needing Revision",
		"Submissions with a Decision",
		"Logout",
		"Contact Us",
	)
	var captured []string
	r := NewEditorialManagerRoutine(arbor.NewLogger())

	require.NoError(t, r.Run(context.Background(), sweepEnv(d, models.PortalEditorialManager, &captured)))

	assert.Equal(t, []string{
		"Submissions Being Processed",
		"Submissions Needing Revision",
		"Submissions with a Decision",
	}, captured)
	// sweep stops at "Logout", the first label outside the folder block
	assert.Equal(t, 6, d.tabCount)
}

func TestEditorialManager_RepeatedFolderCapturedOnce(t *testing.T) {
	d := newSweepDriver(
		"Submissions Being Processed",
		"Submissions Being Processed",
		"Submissions Needing Revision",
		"Logout",
	)
	var captured []string
	r := NewEditorialManagerRoutine(arbor.NewLogger())

	require.NoError(t, r.Run(context.Background(), sweepEnv(d, models.PortalEditorialManager, &captured)))

	// the duplicate stop stays in the sweep but yields no second artifact
	assert.Equal(t, []string{
		"Submissions Being Processed",
		"Submissions Needing Revision",
	}, captured)
	assert.Equal(t, 4, d.tabCount)
}

func TestEditorialManager_SweepTerminatesForAnyCatalogueSize(t *testing.T) {
	for size := 0; size <= 5; size++ {
		seq := []string{"Home"}
		var want []string
		labels := []string{
			"Incomplete Submissions",
			"Submissions Being Processed",
			"Revisions Being Processed",
			"Declined Revisions",
			"Submissions with Production Completed",
		}
		for n := 0; n < size; n++ {
			seq = append(seq, labels[n])
			want = append(want, labels[n])
		}
		seq = append(seq, "Logout")

		d := newSweepDriver(seq...)
		var captured []string
		r := NewEditorialManagerRoutine(arbor.NewLogger())

		require.NoError(t, r.Run(context.Background(), sweepEnv(d, models.PortalEditorialManager, &captured)))
		assert.Equal(t, want, captured, "catalogue size %d", size)
		assert.LessOrEqual(t, d.tabCount, emProbeBound)
	}
}

func TestEditorialManager_ProbeBoundWithoutAnyMatch(t *testing.T) {
	d := newSweepDriver() // every focus read returns ""
	var captured []string
	r := NewEditorialManagerRoutine(arbor.NewLogger())

	require.NoError(t, r.Run(context.Background(), sweepEnv(d, models.PortalEditorialManager, &captured)))
	assert.Empty(t, captured)
	assert.Equal(t, emProbeBound, d.tabCount)
}

func TestEditorialManager_CaptureCycleRestoresMenu(t *testing.T) {
	d := newSweepDriver("Submissions Being Processed", "Logout")
	var captured []string
	r := NewEditorialManagerRoutine(arbor.NewLogger())

	require.NoError(t, r.Run(context.Background(), sweepEnv(d, models.PortalEditorialManager, &captured)))
	assert.Equal(t, []string{"open:win-2", "close:win-2", "switch:menu"}, d.calls)
	assert.Equal(t, "menu", d.active)
}

func TestScholarOne_MarkerMatchesCaptured(t *testing.T) {
	d := newSweepDriver(
		"Author Dashboard",
		"3 Submitted Manuscripts",
		"Start New Submission",
		"1 Manuscripts with Decisions",
	)
	var captured []string
	r := NewScholarOneRoutine(arbor.NewLogger())

	require.NoError(t, r.Run(context.Background(), sweepEnv(d, models.PortalScholarOne, &captured)))

	assert.Equal(t, []string{"3 Submitted Manuscripts", "1 Manuscripts with Decisions"}, captured)
	assert.Equal(t, s1TraversalSteps, d.tabCount)
}

func TestRegistry_DispatchAndStubs(t *testing.T) {
	reg := NewRegistry(arbor.NewLogger())

	d := newSweepDriver()
	var captured []string

	// stub portal: no captures, no error
	env := sweepEnv(d, models.PortalMDPI, &captured)
	require.NoError(t, reg.CheckStatus(context.Background(), env))
	assert.Empty(t, captured)

	// unregistered portal: logged, not fatal
	env.Portal = models.PortalID("nonexistent")
	require.NoError(t, reg.CheckStatus(context.Background(), env))
}
