package driver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/mstrack/mstrack/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// focusedTextJS reads the visible text (or form value) of the element
// holding input focus.
const focusedTextJS = `(function() {
	var e = document.activeElement;
	if (!e) { return ""; }
	if (e.value !== undefined && e.value !== "") { return String(e.value); }
	return (e.innerText || e.textContent || "").trim();
})()`

const focusedHrefJS = `(function() {
	var e = document.activeElement;
	return (e && e.href) ? String(e.href) : "";
})()`

// Config controls browser startup and capture behavior.
type Config struct {
	Headless          bool
	NoSandbox         bool
	UserAgent         string
	WindowLoadWait    time.Duration
	ScreenshotQuality int
}

type window struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Driver drives one headless Chrome instance over the DevTools protocol.
// Windows are browser tabs, each backed by its own chromedp context. One
// Driver backs one session; the session service owns it and calls Close
// on every exit path.
type Driver struct {
	config Config
	logger arbor.ILogger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu      sync.Mutex
	windows map[string]*window
	order   []string
	active  string
	rootID  string
	nextID  int
}

// NewFactory returns a DriverFactory producing one browser per session.
func NewFactory(config Config, logger arbor.ILogger) interfaces.DriverFactory {
	return func(ctx context.Context) (interfaces.UIDriver, error) {
		return New(ctx, config, logger)
	}
}

// New starts a browser and verifies it responds before returning.
func New(ctx context.Context, config Config, logger arbor.ILogger) (*Driver, error) {
	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", config.Headless),
		chromedp.Flag("no-sandbox", config.NoSandbox),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if config.UserAgent != "" {
		allocatorOpts = append(allocatorOpts, chromedp.UserAgent(config.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// startup test so a broken Chrome install fails fast
	testCtx, testCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer testCancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("browser failed startup test: %w", err)
	}

	d := &Driver{
		config:        config,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		windows:       make(map[string]*window),
	}
	d.rootID = d.register(browserCtx, browserCancel)

	logger.Debug().Msg("Browser started")
	return d, nil
}

// register adds a tab context under a fresh window ID and makes it active.
// Caller must hold no lock.
func (d *Driver) register(ctx context.Context, cancel context.CancelFunc) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := fmt.Sprintf("win-%d", d.nextID)
	d.windows[id] = &window{ctx: ctx, cancel: cancel}
	d.order = append(d.order, id)
	d.active = id
	return id
}

func (d *Driver) activeCtx() (context.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.windows[d.active]
	if !ok {
		return nil, fmt.Errorf("no active window")
	}
	return w.ctx, nil
}

// run executes chromedp actions on the active tab, honoring the caller's
// context for cancellation and deadline.
func (d *Driver) run(ctx context.Context, actions ...chromedp.Action) error {
	tab, err := d.activeCtx()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func (d *Driver) Navigate(ctx context.Context, url string) error {
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	// settle time for scripts that populate the page after load
	if d.config.WindowLoadWait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.config.WindowLoadWait):
		}
	}
	return nil
}

func (d *Driver) Reload(ctx context.Context) error {
	return d.run(ctx, chromedp.Reload())
}

func (d *Driver) SendKey(ctx context.Context, key interfaces.DriverKey) error {
	var action chromedp.Action
	switch key {
	case interfaces.KeyTab:
		action = chromedp.KeyEvent(kb.Tab)
	case interfaces.KeyShiftTab:
		action = chromedp.KeyEvent(kb.Tab, chromedp.KeyModifiers(input.ModifierShift))
	case interfaces.KeySpace:
		action = chromedp.KeyEvent(" ")
	case interfaces.KeyEscape:
		action = chromedp.KeyEvent(kb.Escape)
	case interfaces.KeyEnter:
		action = chromedp.KeyEvent(kb.Enter)
	case interfaces.KeyFind:
		action = chromedp.KeyEvent("f", chromedp.KeyModifiers(input.ModifierCtrl))
	case interfaces.KeyPaste:
		action = chromedp.KeyEvent("v", chromedp.KeyModifiers(input.ModifierCtrl))
	default:
		return fmt.Errorf("unsupported key %q", key)
	}
	return d.run(ctx, action)
}

func (d *Driver) TypeText(ctx context.Context, text string) error {
	return d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.InsertText(text).Do(ctx)
	}))
}

func (d *Driver) FocusedText(ctx context.Context) (string, error) {
	var text string
	if err := d.run(ctx, chromedp.Evaluate(focusedTextJS, &text)); err != nil {
		return "", fmt.Errorf("focused element read failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (d *Driver) Click(ctx context.Context, selector string) error {
	return d.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

// OpenFocusedInNewWindow reads the focused link's target and opens it in a
// fresh tab, which becomes the active window.
func (d *Driver) OpenFocusedInNewWindow(ctx context.Context) (string, error) {
	var href string
	if err := d.run(ctx, chromedp.Evaluate(focusedHrefJS, &href)); err != nil {
		return "", fmt.Errorf("focused link read failed: %w", err)
	}
	if href == "" {
		return "", fmt.Errorf("focused element has no link target")
	}

	tabCtx, tabCancel := chromedp.NewContext(d.browserCtx)
	id := d.register(tabCtx, tabCancel)

	if err := d.Navigate(ctx, href); err != nil {
		d.removeWindow(id)
		return "", err
	}

	d.logger.Debug().
		Str("window", id).
		Str("url", href).
		Msg("Opened focused link in new window")
	return id, nil
}

func (d *Driver) Windows(_ context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.order...), nil
}

func (d *Driver) ActiveWindow() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *Driver) SwitchWindow(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.windows[id]; !ok {
		return fmt.Errorf("no window %s", id)
	}
	d.active = id
	return nil
}

func (d *Driver) CloseWindow(_ context.Context, id string) error {
	return d.removeWindow(id)
}

// removeWindow cancels a tab and drops it from the registry. The root
// window is refused: its context is the browser context, and cancelling
// it would take every other tab down with it.
func (d *Driver) removeWindow(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id == d.rootID {
		return fmt.Errorf("cannot close root window %s", id)
	}
	w, ok := d.windows[id]
	if !ok {
		return fmt.Errorf("no window %s", id)
	}
	w.cancel()
	delete(d.windows, id)
	for n, o := range d.order {
		if o == id {
			d.order = append(d.order[:n], d.order[n+1:]...)
			break
		}
	}
	if d.active == id {
		d.active = ""
	}
	return nil
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	quality := d.config.ScreenshotQuality
	if quality <= 0 {
		quality = 90
	}
	var buf []byte
	if err := d.run(ctx, chromedp.FullScreenshot(&buf, quality)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}
	return buf, nil
}

// Close tears down every tab and the browser process.
func (d *Driver) Close() error {
	d.mu.Lock()
	for _, w := range d.windows {
		w.cancel()
	}
	d.windows = make(map[string]*window)
	d.order = nil
	d.active = ""
	d.mu.Unlock()

	d.browserCancel()
	d.allocCancel()
	d.logger.Debug().Msg("Browser closed")
	return nil
}
