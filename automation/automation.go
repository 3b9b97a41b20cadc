// Package automation はヘッドレスブラウザ (rod) によるレポートのPDF化です。
package automation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// ErrBrowserNotFound は Chrome/Chromium が見つからないことを表します。
var ErrBrowserNotFound = errors.New("chrome or chromium executable not found")

const defaultRenderTimeout = 60 * time.Second

// PDFRenderer はHTML文書をPDFに変換します。呼び出しごとにブラウザを起動して閉じます。
type PDFRenderer struct {
	bin     string
	timeout time.Duration
	logger  *zap.Logger
}

// NewPDFRenderer は PDFRenderer を生成します。bin が空なら既定の場所からブラウザを探します。
func NewPDFRenderer(bin string, logger *zap.Logger) *PDFRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFRenderer{bin: bin, timeout: defaultRenderTimeout, logger: logger}
}

func (p *PDFRenderer) browserPath() (string, error) {
	if p.bin != "" {
		return p.bin, nil
	}
	if path, ok := launcher.LookPath(); ok {
		return path, nil
	}
	return "", ErrBrowserNotFound
}

// RenderPDF は html を A4 のPDFにします。
func (p *PDFRenderer) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	bin, err := p.browserPath()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// Leakless(false) でセキュリティソフト対策
	l := launcher.New().Bin(bin).Headless(true).Leakless(false).Context(ctx)
	defer l.Cleanup()
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	defer l.Kill()

	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("set report content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait report load: %w", err)
	}

	stream, err := page.PDF(&proto.PagePrintToPDF{
		PrintBackground:   true,
		PreferCSSPageSize: true,
	})
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf stream: %w", err)
	}
	p.logger.Debug("report rendered to pdf", zap.Int("bytes", len(data)))
	return data, nil
}
