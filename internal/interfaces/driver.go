package interfaces

import "context"

// DriverKey is a synthetic key or key combination sent to the browser.
type DriverKey string

const (
	KeyTab      DriverKey = "tab"
	KeyShiftTab DriverKey = "shift-tab"
	KeySpace    DriverKey = "space"
	KeyEscape   DriverKey = "escape"
	KeyEnter    DriverKey = "enter"
	KeyFind     DriverKey = "find"  // Ctrl+F
	KeyPaste    DriverKey = "paste" // Ctrl+V
)

// UIDriver is the remote browser capability the automation core replays
// scripts against. One driver instance backs one session; the session
// service owns the handle and calls Close on every exit path.
//
// All methods block until the underlying browser action completes.
type UIDriver interface {
	// Navigate loads a URL in the active window. The caller bounds the
	// context; past the deadline navigation is a hard failure.
	Navigate(ctx context.Context, url string) error

	// Reload reloads the active window.
	Reload(ctx context.Context) error

	// SendKey sends a synthetic key event to the active window.
	SendKey(ctx context.Context, key DriverKey) error

	// TypeText sends text as keystrokes to whatever element currently
	// holds input focus. The driver does not locate the field.
	TypeText(ctx context.Context, text string) error

	// FocusedText returns the visible text (or value) of the currently
	// focused element in the active window.
	FocusedText(ctx context.Context) (string, error)

	// Click clicks the first element matching the selector in the active
	// window.
	Click(ctx context.Context, selector string) error

	// OpenFocusedInNewWindow opens the currently focused entry in a new
	// window, switches to it, and returns the new window ID.
	OpenFocusedInNewWindow(ctx context.Context) (string, error)

	// Windows lists the IDs of all open windows, oldest first.
	Windows(ctx context.Context) ([]string, error)

	// ActiveWindow returns the ID of the window receiving events.
	ActiveWindow() string

	// SwitchWindow makes the given window active.
	SwitchWindow(ctx context.Context, id string) error

	// CloseWindow closes the given window. Closing the active window
	// leaves no window active; callers must switch afterwards.
	CloseWindow(ctx context.Context, id string) error

	// Screenshot captures a full-page image of the active window.
	Screenshot(ctx context.Context) ([]byte, error)

	// Close releases the browser instance and all its windows.
	Close() error
}

// DriverFactory creates a fresh UIDriver for a new session.
type DriverFactory func(ctx context.Context) (UIDriver, error)
