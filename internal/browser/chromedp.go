package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/sirupsen/logrus"
)

// ChromeOptions configure the local Chrome started for each attempt.
type ChromeOptions struct {
	ExecPath  string
	Headless  bool
	UserAgent string
	Logger    *logrus.Logger
}

// ChromeLauncher starts a fresh headless Chrome per attempt through chromedp.
type ChromeLauncher struct {
	opts ChromeOptions
}

// NewChromeLauncher creates a launcher for the given Chrome options.
func NewChromeLauncher(opts ChromeOptions) *ChromeLauncher {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &ChromeLauncher{opts: opts}
}

// Launch derives the browser allocator from ctx, so the browser process is
// killed when ctx ends even if Close is never reached.
func (l *ChromeLauncher) Launch(ctx context.Context) (Driver, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", l.opts.Headless))
	if l.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.ExecPath))
	}
	if l.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx, chromedp.WithErrorf(l.opts.Logger.Debugf))

	// the first Run starts the browser and binds it to taskCtx
	if err := chromedp.Run(taskCtx); err != nil {
		taskCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return &chromeDriver{ctx: taskCtx, cancels: []context.CancelFunc{taskCancel, allocCancel}}, nil
}

type chromeDriver struct {
	ctx     context.Context
	cancels []context.CancelFunc
}

// run executes actions on the page, bounded by both the page and ctx.
func (d *chromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	var runCtx context.Context
	var cancel context.CancelFunc
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(d.ctx, deadline)
	} else {
		runCtx, cancel = context.WithCancel(d.ctx)
	}
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (d *chromeDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *chromeDriver) WaitVisible(ctx context.Context, selector string) error {
	return d.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (d *chromeDriver) Click(ctx context.Context, selector string) error {
	return d.run(ctx, chromedp.Click(selector, chromedp.ByQuery))
}

func (d *chromeDriver) Type(ctx context.Context, selector, text string) error {
	if selector == "" {
		return d.run(ctx, chromedp.KeyEvent(text))
	}
	return d.run(ctx, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

func (d *chromeDriver) Press(ctx context.Context, key Key) error {
	switch key {
	case KeyEnter:
		return d.run(ctx, chromedp.KeyEvent(kb.Enter))
	case KeyTab:
		return d.run(ctx, chromedp.KeyEvent(kb.Tab))
	}
	return fmt.Errorf("unsupported key %q", key)
}

func (d *chromeDriver) HTML(ctx context.Context) (string, error) {
	var html string
	if err := d.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (d *chromeDriver) Ready(ctx context.Context) (bool, error) {
	var state string
	if err := d.run(ctx, chromedp.Evaluate("document.readyState", &state)); err != nil {
		return false, err
	}
	return state == "complete", nil
}

func (d *chromeDriver) Close() error {
	err := chromedp.Cancel(d.ctx)
	for _, cancel := range d.cancels {
		cancel()
	}
	return err
}
