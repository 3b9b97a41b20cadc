package gasproxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTargetURL(t *testing.T) {
	assert.Equal(t, "https://gas/exec", TargetURL("https://gas/exec", ""))
	assert.Equal(t, "https://gas/exec?a=1", TargetURL("https://gas/exec", "a=1"))
	assert.Equal(t, "https://gas/exec?k=x&a=1", TargetURL("https://gas/exec?k=x", "a=1"))
}

func TestHandlerForwardsMethodQueryAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "read", r.URL.Query().Get("action"))
		assert.Equal(t, "demanda", r.URL.Query().Get("table"))
		b, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"x":1}`, string(b))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	h := Handler(srv.URL, srv.Client(), zap.NewNop())
	req := httptest.NewRequest(http.MethodPost, "/api/gas-proxy?action=read&table=demanda", strings.NewReader(`{"x":1}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, rr.Body.String())
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandlerMirrorsUpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("no such script"))
	}))
	defer srv.Close()

	rr := httptest.NewRecorder()
	Handler(srv.URL, srv.Client(), zap.NewNop())(rr, httptest.NewRequest(http.MethodGet, "/api/gas-proxy", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "no such script", rr.Body.String())
}

func TestHandlerRejectsCaptchaRegardlessOfStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<!DOCTYPE html><html><body>Please solve the CAPTCHA</body></html>"))
	}))
	defer srv.Close()

	rr := httptest.NewRecorder()
	Handler(srv.URL, srv.Client(), zap.NewNop())(rr, httptest.NewRequest(http.MethodGet, "/api/gas-proxy?action=read", nil))
	require.Equal(t, http.StatusBadGateway, rr.Code)
	assert.JSONEq(t, `{"ok":false,"error":"blocked by upstream captcha page"}`, rr.Body.String())
}

func TestHandlerPreflightAndMissingTarget(t *testing.T) {
	rr := httptest.NewRecorder()
	Handler("http://unused", nil, zap.NewNop())(rr, httptest.NewRequest(http.MethodOptions, "/api/gas-proxy", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	Handler("", nil, zap.NewNop())(rr, httptest.NewRequest(http.MethodGet, "/api/gas-proxy", nil))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestHandlerUnreachableUpstream(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	rr := httptest.NewRecorder()
	Handler(url, nil, zap.NewNop())(rr, httptest.NewRequest(http.MethodGet, "/api/gas-proxy", nil))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "upstream request failed")
}
