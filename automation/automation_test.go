package automation

import (
	"bytes"
	"os"
	"testing"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBrowserPathPrefersConfiguredBinary(t *testing.T) {
	p := NewPDFRenderer("/opt/chrome/chrome", zap.NewNop())
	path, err := p.browserPath()
	require.NoError(t, err)
	assert.Equal(t, "/opt/chrome/chrome", path)
}

func TestRenderPDF(t *testing.T) {
	if testing.Short() || os.Getenv("SCMDASH_BROWSER_TESTS") == "" {
		t.Skip("set SCMDASH_BROWSER_TESTS=1 to run headless browser tests")
	}
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("no chrome/chromium on this machine")
	}
	p := NewPDFRenderer("", zap.NewNop())
	data, err := p.RenderPDF(t.Context(), `<!DOCTYPE html><html><body><h1>Reporte</h1></body></html>`)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
