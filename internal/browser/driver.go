package browser

import "context"

// Key is a keyboard key pressed into the focused element.
type Key string

const (
	KeyEnter Key = "enter"
	KeyTab   Key = "tab"
)

// Driver controls one browser page. Every blocking call honours ctx: a call
// that is still waiting when ctx ends returns ctx's error.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	// Type sends text to selector, or to the focused element when selector
	// is empty.
	Type(ctx context.Context, selector, text string) error
	Press(ctx context.Context, key Key) error
	HTML(ctx context.Context) (string, error)
	// Ready reports whether the current document has finished loading.
	Ready(ctx context.Context) (bool, error)
	Close() error
}

// Launcher starts a browser for one attempt. The browser must not outlive
// ctx.
type Launcher interface {
	Launch(ctx context.Context) (Driver, error)
}
