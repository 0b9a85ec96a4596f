// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeConfig configures a ChromeController.
type ChromeConfig struct {
	// StartURL is navigated to once when the controller is created.
	StartURL string `yaml:"start_url"`

	// Headless runs Chrome without a visible window. The spec calls
	// for a "headful" browser so a human can watch it act; tests and
	// CI still want Headless true.
	Headless bool `yaml:"headless"`

	// WindowWidth, WindowHeight size the browser viewport.
	WindowWidth  int `yaml:"window_width"`
	WindowHeight int `yaml:"window_height"`
}

// DefaultChromeConfig returns a 1280x800 headful configuration.
func DefaultChromeConfig() ChromeConfig {
	return ChromeConfig{Headless: false, WindowWidth: 1280, WindowHeight: 800}
}

// ChromeController drives a real Chrome tab via the Chrome DevTools
// Protocol.
type ChromeController struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewChromeController launches Chrome and, if cfg.StartURL is set,
// navigates to it before returning.
func NewChromeController(ctx context.Context, cfg ChromeConfig) (*ChromeController, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	cancel := func() {
		browserCancel()
		allocCancel()
	}

	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("browser: starting chrome: %w", err)
	}

	c := &ChromeController{ctx: browserCtx, cancel: cancel}

	if cfg.StartURL != "" {
		if err := chromedp.Run(browserCtx, chromedp.Navigate(cfg.StartURL)); err != nil {
			cancel()
			return nil, fmt.Errorf("browser: navigating to start URL: %w", err)
		}
	}

	return c, nil
}

func (c *ChromeController) Apply(ctx context.Context, action Action) error {
	tasks, err := actionTasks(action)
	if err != nil {
		return err
	}
	if err := chromedp.Run(c.ctx, tasks...); err != nil {
		return fmt.Errorf("browser: applying %s action: %w", action.Kind, err)
	}
	return nil
}

func (c *ChromeController) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := chromedp.Run(c.ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("browser: capturing screenshot: %w", err)
	}
	return buf, nil
}

func (c *ChromeController) Close(ctx context.Context) error {
	c.cancel()
	return nil
}

// actionTasks translates one Action into the chromedp task sequence
// that performs it.
func actionTasks(action Action) (chromedp.Tasks, error) {
	switch action.Kind {
	case ActionClick:
		return chromedp.Tasks{chromedp.MouseClickXY(float64(action.X), float64(action.Y))}, nil
	case ActionDoubleClick:
		return chromedp.Tasks{
			chromedp.MouseClickXY(float64(action.X), float64(action.Y), chromedp.ClickCount(2)),
		}, nil
	case ActionScroll:
		return chromedp.Tasks{chromedp.Evaluate(
			fmt.Sprintf("window.scrollBy(%d, %d)", action.DeltaX, action.DeltaY), nil,
		)}, nil
	case ActionKeypress:
		key, ok := namedKeys[action.Text]
		if !ok {
			return nil, fmt.Errorf("browser: unknown key %q", action.Text)
		}
		return chromedp.Tasks{chromedp.KeyEvent(key)}, nil
	case ActionType:
		return chromedp.Tasks{chromedp.KeyEvent(action.Text)}, nil
	case ActionWait:
		d := time.Duration(action.DeltaX) * time.Millisecond
		if d <= 0 {
			d = 500 * time.Millisecond
		}
		return chromedp.Tasks{chromedp.Sleep(d)}, nil
	default:
		return nil, fmt.Errorf("browser: unknown action kind %q", action.Kind)
	}
}

// namedKeys maps the vision model's key names to the literal
// keystroke chromedp.KeyEvent sends for the handful of non-printable
// keys a browsing agent actually needs.
var namedKeys = map[string]string{
	"Enter":     "\r",
	"Tab":       "\t",
	"Escape":    "\x1b",
	"Backspace": "\x08",
	"Space":     " ",
}

var _ Controller = (*ChromeController)(nil)
