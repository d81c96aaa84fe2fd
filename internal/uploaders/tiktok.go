package uploaders

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const tiktokUploadURL = "https://www.tiktok.com/upload"

// Caption fields move around between TikTok frontend builds; selectors
// are tried in order and the first match wins.
var tiktokCaptionSelectors = []string{
	`[data-testid="caption-editor"]`,
	`[class*="DraftEditor"]`,
	`[class*="caption"] [contenteditable="true"]`,
	`[contenteditable="true"]`,
}

// TikTokConfig carries the automation timeout budget.
type TikTokConfig struct {
	NavigationTimeout time.Duration
	ProcessingTimeout time.Duration
	StepTimeout       time.Duration
	SettleDelay       time.Duration
	Headless          bool
	ScreenshotDir     string
}

// TikTokUploader drives the TikTok upload page through a headless
// browser, authenticating by injecting the session cookie. Steps fail
// independently; a failed step aborts the attempt with a screenshot.
type TikTokUploader struct {
	sessionCookie string
	cfg           TikTokConfig
	log           zerolog.Logger

	// run, eval, loc and newSession are injectable for tests.
	run        func(ctx context.Context, actions ...chromedp.Action) error
	eval       func(ctx context.Context, js string, res any) error
	loc        func(ctx context.Context) (string, error)
	newSession func(ctx context.Context) (context.Context, context.CancelFunc)
}

func NewTikTokUploader(sessionCookie string, cfg TikTokConfig, log zerolog.Logger) *TikTokUploader {
	t := &TikTokUploader{
		sessionCookie: sessionCookie,
		cfg:           cfg,
		log:           log,
		run:           chromedp.Run,
	}
	t.eval = func(ctx context.Context, js string, res any) error {
		return t.run(ctx, chromedp.Evaluate(js, res))
	}
	t.loc = func(ctx context.Context) (string, error) {
		var location string
		err := t.run(ctx, chromedp.Location(&location))
		return location, err
	}
	t.newSession = t.browserSession
	return t
}

func (t *TikTokUploader) Platform() string { return PlatformTikTok }

// browserSession builds a fresh headless browser context. The returned
// cancel tears down the whole browser.
func (t *TikTokUploader) browserSession(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", t.cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	return browserCtx, func() {
		cancelBrowser()
		cancelAlloc()
	}
}

type automationStep struct {
	name    string
	timeout time.Duration
	run     func(ctx context.Context) error
}

func (t *TikTokUploader) Upload(ctx context.Context, req *Request) (*Result, error) {
	if _, err := os.Stat(req.VideoPath); err != nil {
		return nil, fmt.Errorf("video file not found: %w", err)
	}

	caption := req.Caption
	if caption == "" {
		caption = req.Title
	}

	sessionCtx, cancel := t.newSession(ctx)
	defer cancel()

	if err := t.runSteps(sessionCtx, t.steps(req.VideoPath, caption)); err != nil {
		return nil, err
	}

	return &Result{Message: "video uploaded"}, nil
}

// runSteps executes the steps in order, each under its own timeout. The
// first failure aborts with a StepError carrying a screenshot path.
func (t *TikTokUploader) runSteps(ctx context.Context, steps []automationStep) error {
	for _, step := range steps {
		stepCtx, cancel := context.WithTimeout(ctx, step.timeout)
		err := step.run(stepCtx)
		cancel()
		if err != nil {
			return &StepError{
				Step:       step.name,
				Screenshot: t.captureScreenshot(ctx, step.name),
				Err:        err,
			}
		}
		t.log.Debug().Str("step", step.name).Msg("tiktok: step complete")
	}
	return nil
}

func (t *TikTokUploader) steps(videoPath, caption string) []automationStep {
	return []automationStep{
		{
			name:    "inject_cookie",
			timeout: t.cfg.StepTimeout,
			run: func(ctx context.Context) error {
				return t.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
					return network.SetCookie("sessionid", t.sessionCookie).
						WithDomain(".tiktok.com").
						WithPath("/").
						WithHTTPOnly(true).
						WithSecure(true).
						Do(ctx)
				}))
			},
		},
		{
			name:    "navigate",
			timeout: t.cfg.NavigationTimeout,
			run: func(ctx context.Context) error {
				return t.run(ctx,
					chromedp.Navigate(tiktokUploadURL),
					chromedp.Sleep(3*time.Second),
				)
			},
		},
		{
			name:    "session_check",
			timeout: t.cfg.StepTimeout,
			run: func(ctx context.Context) error {
				location, err := t.loc(ctx)
				if err != nil {
					return err
				}
				if strings.Contains(strings.ToLower(location), "login") {
					return fmt.Errorf("session cookie expired, redirected to %s", location)
				}
				return nil
			},
		},
		{
			name:    "wait_upload_control",
			timeout: t.cfg.StepTimeout,
			run: func(ctx context.Context) error {
				return t.run(ctx, chromedp.WaitReady(`input[type="file"]`, chromedp.ByQuery))
			},
		},
		{
			name:    "attach_video",
			timeout: t.cfg.StepTimeout,
			run: func(ctx context.Context) error {
				return t.run(ctx, chromedp.SetUploadFiles(`input[type="file"]`, []string{videoPath}, chromedp.ByQuery))
			},
		},
		{
			name:    "wait_processing",
			timeout: t.cfg.ProcessingTimeout,
			run: func(ctx context.Context) error {
				// Server-side processing is done when the Post button
				// becomes clickable.
				var ready bool
				return t.run(ctx, chromedp.Poll(tiktokPostButtonReadyJS, &ready,
					chromedp.WithPollingInterval(time.Second)))
			},
		},
		{
			name:    "fill_caption",
			timeout: t.cfg.StepTimeout,
			run: func(ctx context.Context) error {
				if caption == "" {
					return nil
				}
				var matched string
				err := t.eval(ctx, tiktokFillCaptionJS(caption), &matched)
				if err != nil || matched == "" {
					// Best effort only: a missing caption field never
					// fails the upload.
					t.log.Warn().Err(err).Msg("tiktok: caption field not found, continuing without caption")
				}
				return nil
			},
		},
		{
			name:    "click_post",
			timeout: t.cfg.StepTimeout,
			run: func(ctx context.Context) error {
				var clicked bool
				if err := t.eval(ctx, tiktokClickPostJS, &clicked); err != nil {
					return err
				}
				if !clicked {
					return fmt.Errorf("post button not found or disabled")
				}
				return nil
			},
		},
		{
			name:    "settle",
			timeout: t.cfg.SettleDelay + t.cfg.StepTimeout,
			run: func(ctx context.Context) error {
				return t.run(ctx, chromedp.Sleep(t.cfg.SettleDelay))
			},
		},
	}
}

// captureScreenshot saves a diagnostic capture for a failed step and
// returns its path, or "" when the capture itself fails.
func (t *TikTokUploader) captureScreenshot(ctx context.Context, step string) string {
	var buf []byte
	shotCtx, cancel := context.WithTimeout(ctx, t.cfg.StepTimeout)
	defer cancel()
	if err := t.run(shotCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		t.log.Warn().Err(err).Str("step", step).Msg("tiktok: screenshot capture failed")
		return ""
	}

	path := filepath.Join(t.cfg.ScreenshotDir, fmt.Sprintf("tiktok-%s-%s.png", step, uuid.NewString()))
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.log.Warn().Err(err).Str("step", step).Msg("tiktok: screenshot write failed")
		return ""
	}
	return path
}

const tiktokPostButtonReadyJS = `(() => {
	const byTestID = document.querySelector('[data-testid="post-button"]');
	const byText = Array.from(document.querySelectorAll('button'))
		.find(b => b.textContent.trim() === 'Post' || b.textContent.trim() === 'Publish');
	const btn = byTestID || byText;
	return !!btn && !btn.disabled;
})()`

const tiktokClickPostJS = `(() => {
	const byTestID = document.querySelector('[data-testid="post-button"]');
	const byText = Array.from(document.querySelectorAll('button'))
		.find(b => b.textContent.trim() === 'Post' || b.textContent.trim() === 'Publish');
	const btn = byTestID || byText;
	if (!btn || btn.disabled) return false;
	btn.click();
	return true;
})()`

func tiktokFillCaptionJS(caption string) string {
	selectors := `'` + strings.Join(tiktokCaptionSelectors, `','`) + `'`
	return fmt.Sprintf(`(() => {
	const selectors = [%s];
	for (const sel of selectors) {
		const el = document.querySelector(sel);
		if (el) {
			el.focus();
			document.execCommand('insertText', false, %q);
			return sel;
		}
	}
	return '';
})()`, selectors, caption)
}
