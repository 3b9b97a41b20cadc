package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"scmdash/managermas"
	"scmdash/model"
)

type salesView struct {
	*model.SalesSeries
	ProductName string `json:"productName"`
}

// SalesHandler は GET /api/dashboard/sales です。
// 問い合わせ全体に SalesTimeout の制限をかけ、超過した場合は途中結果を返さずに504にします。再試行はしません。
func (s *Server) SalesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.sales == nil {
			writeJSONError(w, "ManagerMas is not configured", http.StatusServiceUnavailable)
			return
		}
		q := r.URL.Query()
		code := strings.TrimSpace(q.Get("presentation_code"))
		if code == "" {
			writeJSONError(w, "presentation_code is required", http.StatusBadRequest)
			return
		}
		from, to := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
		defFrom, defTo := managermas.DefaultRange(s.now())
		if from == "" {
			from = defFrom
		}
		if to == "" {
			to = defTo
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.salesTimeout)
		defer cancel()
		series, err := s.sales.SalesSeries(ctx, managermas.SalesQuery{PresentationCode: code, From: from, To: to})
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && r.Context().Err() == nil {
				s.logger.Warn("sales query timed out", zap.String("code", code), zap.Duration("timeout", s.salesTimeout))
				writeJSONError(w, "sales query timed out", http.StatusGatewayTimeout)
				return
			}
			s.logger.Error("sales query failed", zap.String("code", code), zap.Error(err))
			writeJSONError(w, err.Error(), http.StatusBadGateway)
			return
		}

		view := salesView{SalesSeries: series}
		if e, ok := s.loadCatalog(r.Context()).Lookup(code); ok {
			view.ProductName = e.ProductName
		}
		writeJSON(w, http.StatusOK, view)
	}
}
