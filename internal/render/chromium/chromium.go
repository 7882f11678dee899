package chromium

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/nahankar/shatika/internal/domain"
	"github.com/nahankar/shatika/internal/render"
)

// Config holds headless browser settings.
type Config struct {
	// BrowserBin is the Chromium binary to launch. Empty lets the launcher
	// locate or download one.
	BrowserBin string

	// ControlURL connects to an already running browser instead of
	// launching one.
	ControlURL string

	// AssetTimeout bounds the best-effort wait for images to load before
	// the capture.
	AssetTimeout time.Duration

	// RenderTimeout bounds one whole render.
	RenderTimeout time.Duration
}

// Renderer implements render.Renderer with a shared headless Chromium.
// Each render gets its own page.
type Renderer struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
}

var _ render.Renderer = (*Renderer)(nil)

// New creates a renderer. The browser is started lazily on first use.
func New(cfg Config, logger *slog.Logger) *Renderer {
	if cfg.AssetTimeout <= 0 {
		cfg.AssetTimeout = 3 * time.Second
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 20 * time.Second
	}
	return &Renderer{cfg: cfg, logger: logger}
}

// Render composes the design into a page and captures the canvas as PNG.
func (r *Renderer) Render(ctx context.Context, design *domain.Design) ([]byte, error) {
	html, err := render.BuildPage(design)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.RenderTimeout)
	defer cancel()

	browser, err := r.ensureBrowser(ctx)
	if err != nil {
		return nil, err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		r.reset()
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			r.logger.Debug("failed to close render page", slog.String("error", cerr.Error()))
		}
	}()

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             design.Width,
		Height:            design.Height,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}).Call(page); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("set page content: %w", err)
	}

	// Missing or slow assets still produce a thumbnail.
	if err := page.Timeout(r.cfg.AssetTimeout).WaitLoad(); err != nil {
		r.logger.WarnContext(ctx, "render assets not ready before capture",
			slog.Duration("asset_timeout", r.cfg.AssetTimeout),
			slog.String("error", err.Error()),
		)
	}

	el, err := page.Element(render.CanvasSelector)
	if err != nil {
		return nil, fmt.Errorf("find canvas: %w", err)
	}

	img, err := el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return nil, fmt.Errorf("capture canvas: %w", err)
	}
	return img, nil
}

// Close shuts the browser down.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *Renderer) ensureBrowser(ctx context.Context) (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	controlURL := r.cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(true).Set("disable-gpu")
		if r.cfg.BrowserBin != "" {
			l = l.Bin(r.cfg.BrowserBin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
		r.launcher = l
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		r.killLauncher()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	r.logger.InfoContext(ctx, "headless browser connected", slog.Bool("launched", r.launcher != nil))
	r.browser = browser
	return browser, nil
}

// reset drops a browser that stopped answering so the next render starts
// a fresh one.
func (r *Renderer) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.closeLocked(); err != nil {
		r.logger.Warn("failed to close browser", slog.String("error", err.Error()))
	}
}

func (r *Renderer) closeLocked() error {
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	r.killLauncher()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (r *Renderer) killLauncher() {
	if r.launcher != nil {
		r.launcher.Kill()
		r.launcher = nil
	}
}
