// Package dashboard はシートのデータをダッシュボード用のビューモデル(カード・表・グラフ系列)にして返すHTTPハンドラ群です。
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"scmdash/catalog"
	"scmdash/managermas"
	"scmdash/model"
	"scmdash/render"
	"scmdash/sheets"
	"scmdash/upstream"
)

const defaultSalesTimeout = 30 * time.Second

// SalesSource は販売系列の取得元です。managermas.Client が満たします。
type SalesSource interface {
	SalesSeries(ctx context.Context, q managermas.SalesQuery) (*model.SalesSeries, error)
}

// PDFRenderer はHTMLをPDFにします。automation.PDFRenderer が満たします。
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

// Options は Server の依存です。Language は構築時に固定され、ビューから設定を参照し直すことはありません。
type Options struct {
	Backend      sheets.Backend
	Sales        SalesSource
	PDF          PDFRenderer
	Language     render.Language
	SalesTimeout time.Duration
	Logger       *zap.Logger
	Now          func() time.Time
}

// Server はダッシュボードのハンドラを提供します。リクエスト間で共有する可変状態は持ちません。
type Server struct {
	backend      sheets.Backend
	sales        SalesSource
	pdf          PDFRenderer
	lang         render.Language
	salesTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// New は Server を生成します。
func New(opts Options) *Server {
	s := &Server{
		backend:      opts.Backend,
		sales:        opts.Sales,
		pdf:          opts.PDF,
		lang:         opts.Language,
		salesTimeout: opts.SalesTimeout,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if s.lang == "" {
		s.lang = render.Spanish
	}
	if s.salesTimeout <= 0 {
		s.salesTimeout = defaultSalesTimeout
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Language は表示言語です。
func (s *Server) Language() render.Language { return s.lang }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]any{"ok": false, "error": message})
}

// writeBackendError はシート側の失敗を応答に変換します。
func (s *Server) writeBackendError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, sheets.ErrRowNotFound):
		writeJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, context.Canceled):
		// クライアントが切断済み
	default:
		s.logger.Error("sheet backend failed", zap.String("op", op), zap.Error(err))
		msg := "sheet backend request failed"
		var se *upstream.StatusError
		switch {
		case errors.As(err, &se):
			msg = fmt.Sprintf("upstream returned HTTP %d", se.Status)
		case errors.Is(err, upstream.ErrBlocked):
			msg = upstream.ErrBlocked.Error()
		}
		writeJSONError(w, msg, http.StatusBadGateway)
	}
}

// readTables は複数テーブルを並行して読みます。1つでも失敗すれば全体をエラーにします。
func (s *Server) readTables(ctx context.Context, tables ...string) (map[string][]model.Row, error) {
	results := make([][]model.Row, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	for i, table := range tables {
		g.Go(func() error {
			rows, err := s.backend.ReadTable(gctx, table)
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string][]model.Row, len(tables))
	for i, table := range tables {
		out[table] = results[i]
	}
	return out, nil
}

func (s *Server) catalogFrom(rows []model.Row) *catalog.Catalog {
	c := catalog.Build(rows)
	c.LogDuplicates(s.logger)
	return c
}

// loadCatalog はプレゼンテーションマスタから参照表を作ります。読めない場合は警告を出して空の参照表を返します。
func (s *Server) loadCatalog(ctx context.Context) *catalog.Catalog {
	rows, err := s.backend.ReadTable(ctx, model.TablePresentations)
	if err != nil {
		s.logger.Warn("presentation catalog unavailable, records are not enriched", zap.Error(err))
		return catalog.Build(nil)
	}
	return s.catalogFrom(rows)
}
