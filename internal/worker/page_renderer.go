package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Renderer turns a self-contained HTML document into a JPEG screenshot.
type Renderer interface {
	Screenshot(ctx context.Context, html string) ([]byte, error)
}

// RodRenderer 每次渲染启动一个独立的无头 Chromium，渲染结束即销毁。
type RodRenderer struct {
	logger  *slog.Logger
	width   int
	height  int
	quality int
}

// NewRodRenderer returns a renderer with a desktop viewport.
func NewRodRenderer(logger *slog.Logger) *RodRenderer {
	return &RodRenderer{logger: logger, width: 1280, height: 800, quality: 80}
}

// Screenshot implements Renderer.
func (r *RodRenderer) Screenshot(ctx context.Context, html string) (_ []byte, err error) {
	launch := launcher.New().
		Headless(true).
		NoSandbox(true)
	defer launch.Cleanup()

	if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	browser := rod.New().ControlURL(browserURL).Context(ctx).Timeout(90 * time.Second)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer func() {
		_ = browser.Close()
	}()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		_ = page.Close()
	}()

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             r.width,
		Height:            r.height,
		DeviceScaleFactor: 1,
	}).Call(page); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("set document content: %w", err)
	}
	if err := page.Timeout(30 * time.Second).WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	// 额外等待 WebFont 就绪，避免截到回退字体
	if _, evalErr := page.Timeout(5 * time.Second).Eval(`() => {
	  if (document && document.fonts && document.fonts.ready) {
	    return Promise.race([
	      document.fonts.ready.then(() => true),
	      new Promise((resolve) => setTimeout(() => resolve(true), 3000))
	    ]);
	  }
	  return true;
	}`); evalErr != nil {
		r.logger.Warn("document.fonts.ready wait failed, continue", slog.Any("error", evalErr))
	}

	// 滚动触发的入场动画默认透明，截图前强制显示
	if err := page.AddStyleTag("", `*, *::before, *::after {
  animation-delay: 0s !important;
  animation-duration: 0s !important;
  transition: none !important;
}
[class*="fade"], [class*="reveal"], [data-aos] {
  opacity: 1 !important;
  transform: none !important;
}`); err != nil {
		r.logger.Warn("inject screenshot css failed, continue", slog.Any("error", err))
	}

	if err := page.Timeout(10 * time.Second).WaitIdle(2 * time.Second); err != nil {
		r.logger.Warn("wait idle failed, continue", slog.Any("error", err))
	}

	quality := r.quality
	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: &quality,
	})
	if err != nil {
		return nil, fmt.Errorf("page screenshot: %w", err)
	}
	return data, nil
}
