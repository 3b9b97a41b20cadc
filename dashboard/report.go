package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"scmdash/automation"
	"scmdash/model"
	"scmdash/render"
)

// BuildReport はレポートの内容を組み立てます。
func (s *Server) BuildReport(ctx context.Context) (model.Report, error) {
	summary, demand, err := s.loadDashboard(ctx)
	if err != nil {
		return model.Report{}, err
	}
	return model.Report{
		GeneratedAt: s.now().Format("2006-01-02 15:04"),
		Summary:     summary,
		Demand:      demand,
	}, nil
}

// ReportHTML はレポートを設定言語のHTMLにします。
func (s *Server) ReportHTML(ctx context.Context) (string, error) {
	report, err := s.BuildReport(ctx)
	if err != nil {
		return "", err
	}
	return render.RenderReportHTML(report, s.lang), nil
}

// ReportPDF はレポートをPDFにします。
func (s *Server) ReportPDF(ctx context.Context) ([]byte, error) {
	if s.pdf == nil {
		return nil, automation.ErrBrowserNotFound
	}
	html, err := s.ReportHTML(ctx)
	if err != nil {
		return nil, err
	}
	return s.pdf.RenderPDF(ctx, html)
}

// ReportHandler は GET /api/dashboard/report です。
func (s *Server) ReportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		html, err := s.ReportHTML(r.Context())
		if err != nil {
			s.writeBackendError(w, "report", err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	}
}

// ReportPDFHandler は GET /api/dashboard/report.pdf です。
func (s *Server) ReportPDFHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.pdf == nil {
			writeJSONError(w, automation.ErrBrowserNotFound.Error(), http.StatusServiceUnavailable)
			return
		}
		html, err := s.ReportHTML(r.Context())
		if err != nil {
			s.writeBackendError(w, "report", err)
			return
		}
		pdf, err := s.pdf.RenderPDF(r.Context(), html)
		if err != nil {
			if errors.Is(err, automation.ErrBrowserNotFound) {
				writeJSONError(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			s.logger.Error("report pdf failed", zap.Error(err))
			writeJSONError(w, "failed to render report pdf", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="reporte-%s.pdf"`, s.now().Format("20060102")))
		w.Write(pdf)
	}
}
