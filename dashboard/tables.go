package dashboard

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/mux"

	"scmdash/catalog"
	"scmdash/mappers"
	"scmdash/model"
)

const maxRowBytes = 1 << 20

// tableRecord は変換済みの1件と、絞り込みに使う値です。
type tableRecord struct {
	value  any
	search []string
	status string
}

func (r tableRecord) matches(q, status string) bool {
	if status != "" && mappers.Fold(r.status) != mappers.Fold(status) {
		return false
	}
	if q == "" {
		return true
	}
	for _, s := range r.search {
		if mappers.ContainsFold(s, q) {
			return true
		}
	}
	return false
}

// adaptTable はテーブルの種類に応じた変換を行います。発注・入札・輸入と需要は参照表で品名を補います。
func adaptTable(table string, rows []model.Row, cat *catalog.Catalog) []tableRecord {
	out := make([]tableRecord, 0, len(rows))
	switch table {
	case model.TableTenders:
		for _, row := range cat.Enrich(rows) {
			t := mappers.ToTender(row)
			out = append(out, tableRecord{t, []string{t.TenderNumber, t.Title, t.Institution, t.PresentationCode, t.ProductName}, t.Status})
		}
	case model.TablePurchaseOrders:
		for _, row := range cat.Enrich(rows) {
			po := mappers.ToPurchaseOrder(row)
			out = append(out, tableRecord{po, []string{po.OCI, po.PONumber, po.Supplier, po.PresentationCode, po.ProductName}, po.Status})
		}
	case model.TableImports:
		for _, row := range cat.Enrich(rows) {
			im := mappers.ToImport(row)
			out = append(out, tableRecord{im, []string{im.ImportNumber, im.OCI, im.PresentationCode, im.ProductName, im.Port}, im.Status})
		}
	case model.TableDemand:
		for _, d := range cat.EnrichDemand(mappers.ToDemandRows(rows)) {
			out = append(out, tableRecord{d, []string{d.PresentationCode, d.ProductName, d.MonthOfSupply}, ""})
		}
	case model.TableCommunications:
		for _, row := range rows {
			c := mappers.ToCommunication(row)
			search := append([]string{c.Subject, c.Content, c.LinkedID}, c.Participants...)
			out = append(out, tableRecord{c, search, c.Type})
		}
	case model.TablePresentations:
		for _, row := range rows {
			if e, ok := mappers.ToCatalogEntry(row); ok {
				out = append(out, tableRecord{e, []string{e.PresentationCode, e.ProductName}, ""})
			}
		}
	}
	return out
}

func knownTable(table string) bool {
	return slices.Contains(model.AllTables, table)
}

// ListTableHandler は GET /api/tables/{table} です。q で部分一致 (大小文字・アクセント無視)、status で状態を絞り込みます。
func (s *Server) ListTableHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table := mux.Vars(r)["table"]
		if !knownTable(table) {
			writeJSONError(w, "unknown table: "+table, http.StatusNotFound)
			return
		}
		rows, err := s.backend.ReadTable(r.Context(), table)
		if err != nil {
			s.writeBackendError(w, "read "+table, err)
			return
		}
		cat := catalog.Build(nil)
		if table != model.TablePresentations && table != model.TableCommunications {
			cat = s.loadCatalog(r.Context())
		}

		q := strings.TrimSpace(r.URL.Query().Get("q"))
		status := strings.TrimSpace(r.URL.Query().Get("status"))
		records := make([]any, 0, len(rows))
		for _, rec := range adaptTable(table, rows, cat) {
			if rec.matches(q, status) {
				records = append(records, rec.value)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "table": table, "count": len(records), "rows": records})
	}
}

func decodeRow(r *http.Request) (model.Row, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRowBytes))
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var row model.Row
	if err := dec.Decode(&row); err != nil {
		return nil, err
	}
	if row == nil {
		row = model.Row{}
	}
	return row, nil
}

// CreateRowHandler は POST /api/tables/{table} です。
func (s *Server) CreateRowHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table := mux.Vars(r)["table"]
		if !knownTable(table) {
			writeJSONError(w, "unknown table: "+table, http.StatusNotFound)
			return
		}
		row, err := decodeRow(r)
		if err != nil {
			writeJSONError(w, "request body must be a JSON object", http.StatusBadRequest)
			return
		}
		created, err := s.backend.WriteRow(r.Context(), table, row)
		if err != nil {
			s.writeBackendError(w, "create "+table, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "row": created})
	}
}

// UpdateRowHandler は PUT /api/tables/{table}/{id} です。
func (s *Server) UpdateRowHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		table, id := vars["table"], vars["id"]
		if !knownTable(table) {
			writeJSONError(w, "unknown table: "+table, http.StatusNotFound)
			return
		}
		row, err := decodeRow(r)
		if err != nil {
			writeJSONError(w, "request body must be a JSON object", http.StatusBadRequest)
			return
		}
		updated, err := s.backend.UpdateRow(r.Context(), table, id, row)
		if err != nil {
			s.writeBackendError(w, "update "+table, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "row": updated})
	}
}

// DeleteRowHandler は DELETE /api/tables/{table}/{id} です。
func (s *Server) DeleteRowHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		table, id := vars["table"], vars["id"]
		if !knownTable(table) {
			writeJSONError(w, "unknown table: "+table, http.StatusNotFound)
			return
		}
		if err := s.backend.DeleteRow(r.Context(), table, id); err != nil {
			s.writeBackendError(w, "delete "+table, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "id": id})
	}
}
