package managermas

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"scmdash/upstream"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]any{"ok": false, "error": message})
}

func isDebug(r *http.Request) bool {
	v := r.URL.Query().Get("debug")
	return v == "1" || strings.EqualFold(v, "true")
}

// SalesHandler は GET /api/mm-sales です。
// from/to を省略した場合は直近12か月の締め済み月を対象にします。
func SalesHandler(c *Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSONError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		if !c.Configured() {
			writeJSONError(w, "ManagerMas is not configured", http.StatusServiceUnavailable)
			return
		}
		q := r.URL.Query()
		code := strings.TrimSpace(q.Get("presentation_code"))
		if code == "" {
			writeJSONError(w, "presentation_code is required", http.StatusBadRequest)
			return
		}
		defFrom, defTo := DefaultRange(time.Now())
		query := SalesQuery{
			PresentationCode: code,
			From:             strings.TrimSpace(q.Get("from")),
			To:               strings.TrimSpace(q.Get("to")),
			RUT:              strings.TrimSpace(q.Get("rut")),
			Debug:            isDebug(r),
		}
		if query.From == "" {
			query.From = defFrom
		}
		if query.To == "" {
			query.To = defTo
		}

		series, err := c.SalesSeries(r.Context(), query)
		if err != nil {
			c.logger.Error("sales aggregation failed", zap.String("code", code), zap.Error(err))
			writeJSONError(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusOK, series)
	}
}

// StockHandler は GET /api/mm-proxy です。code で1件、codes (カンマ区切り) で複数件を返します。
func StockHandler(c *Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSONError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		if !c.Configured() {
			writeJSONError(w, "ManagerMas is not configured", http.StatusServiceUnavailable)
			return
		}
		q := r.URL.Query()
		code := strings.TrimSpace(q.Get("code"))
		codes := splitCodes(q.Get("codes"))
		if code == "" && len(codes) == 0 {
			writeJSONError(w, "code or codes is required", http.StatusBadRequest)
			return
		}
		dt := strings.TrimSpace(q.Get("dt"))
		if dt == "" {
			dt = time.Now().Format("20060102")
		}

		if code != "" {
			stock, err := c.Stock(r.Context(), code, dt)
			if err != nil {
				c.logger.Error("stock lookup failed", zap.String("code", code), zap.Error(err))
				writeUpstreamError(w, err, isDebug(r))
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "stock": stock})
			return
		}

		stocks, err := c.Stocks(r.Context(), codes, dt)
		if err != nil {
			c.logger.Error("stock batch lookup failed", zap.Int("codes", len(codes)), zap.Error(err))
			writeUpstreamError(w, err, isDebug(r))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "stocks": stocks})
	}
}

// writeUpstreamError は502を返します。上流本文の断片はデバッグ時のみ含めます。
func writeUpstreamError(w http.ResponseWriter, err error, debug bool) {
	msg := "upstream request failed"
	var se *upstream.StatusError
	switch {
	case debug:
		msg = err.Error()
	case errors.As(err, &se):
		msg = fmt.Sprintf("upstream returned HTTP %d", se.Status)
	case errors.Is(err, upstream.ErrBlocked):
		msg = upstream.ErrBlocked.Error()
	}
	writeJSONError(w, msg, http.StatusBadGateway)
}

func splitCodes(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}
