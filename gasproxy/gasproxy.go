// Package gasproxy は Apps Script への透過プロキシです。
package gasproxy

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"scmdash/upstream"
)

const maxBodyBytes = 16 << 20

// 転送しないホップバイホップヘッダ
var hopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
	"Host":                true,
	"Content-Length":      true,
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": message})
}

func setCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

// TargetURL はクエリ文字列をそのまま付け替えた転送先URLを返します。
func TargetURL(target, rawQuery string) string {
	if rawQuery == "" {
		return target
	}
	if strings.Contains(target, "?") {
		return target + "&" + rawQuery
	}
	return target + "?" + rawQuery
}

// Handler は任意のメソッドを target (GAS_BASE) に転送します。
// 応答本文がCAPTCHAページであればステータスに関係なく502を返し、それ以外はステータス・Content-Type・本文をそのまま返します。
func Handler(target string, client *http.Client, logger *zap.Logger) http.HandlerFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if target == "" {
			writeJSONError(w, "GAS_BASE is not configured", http.StatusBadGateway)
			return
		}

		var body io.Reader
		if r.Body != nil && r.Method != http.MethodGet && r.Method != http.MethodHead {
			buf, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			if err != nil {
				writeJSONError(w, "failed to read request body", http.StatusBadRequest)
				return
			}
			body = bytes.NewReader(buf)
		}

		req, err := http.NewRequestWithContext(r.Context(), r.Method, TargetURL(target, r.URL.RawQuery), body)
		if err != nil {
			writeJSONError(w, "invalid upstream request", http.StatusBadGateway)
			return
		}
		for k, vs := range r.Header {
			if hopHeaders[http.CanonicalHeaderKey(k)] {
				continue
			}
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			logger.Warn("gas proxy request failed", zap.String("method", r.Method), zap.Error(err))
			writeJSONError(w, "upstream request failed", http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			writeJSONError(w, "failed to read upstream response", http.StatusBadGateway)
			return
		}

		if upstream.IsCaptchaPage(respBody) {
			logger.Warn("gas proxy blocked by captcha page", zap.Int("status", resp.StatusCode))
			writeJSONError(w, upstream.ErrBlocked.Error(), http.StatusBadGateway)
			return
		}

		if ct := resp.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.WriteHeader(resp.StatusCode)
		w.Write(respBody)
	}
}
