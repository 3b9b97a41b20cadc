package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"scmdash/managermas"
	"scmdash/model"
	"scmdash/render"
	"scmdash/sheets"
	"scmdash/upstream"
)

var today = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type memoryBackend struct {
	mu     sync.Mutex
	tables map[string][]model.Row
	fail   map[string]error
}

func newMemoryBackend(tables map[string][]model.Row) *memoryBackend {
	return &memoryBackend{tables: tables, fail: map[string]error{}}
}

func (m *memoryBackend) ReadTable(ctx context.Context, table string) ([]model.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[table]; err != nil {
		return nil, err
	}
	return append([]model.Row(nil), m.tables[table]...), nil
}

func (m *memoryBackend) WriteRow(ctx context.Context, table string, row model.Row) (model.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row = sheets.WithID(row)
	m.tables[table] = append(m.tables[table], row)
	return row, nil
}

func (m *memoryBackend) UpdateRow(ctx context.Context, table, id string, row model.Row) (model.Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.tables[table] {
		if sheets.RowID(r) == id {
			row = row.Clone()
			row["id"] = id
			m.tables[table][i] = row
			return row, nil
		}
	}
	return nil, sheets.ErrRowNotFound
}

func (m *memoryBackend) DeleteRow(ctx context.Context, table, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.tables[table]
	for i, r := range rows {
		if sheets.RowID(r) == id {
			m.tables[table] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return sheets.ErrRowNotFound
}

type salesFunc func(ctx context.Context, q managermas.SalesQuery) (*model.SalesSeries, error)

func (f salesFunc) SalesSeries(ctx context.Context, q managermas.SalesQuery) (*model.SalesSeries, error) {
	return f(ctx, q)
}

type pdfFunc func(ctx context.Context, html string) ([]byte, error)

func (f pdfFunc) RenderPDF(ctx context.Context, html string) ([]byte, error) { return f(ctx, html) }

func sampleTables() map[string][]model.Row {
	return map[string][]model.Row{
		model.TablePresentations: {
			{"codigo": "PC1", "producto": "Paracetamol 500mg", "unidades_envase": "20"},
			{"codigo": "PC2", "producto": "Ibuprofeno 400mg"},
		},
		model.TableTenders: {
			{"id": "t1", "numero_licitacion": "LIC-1", "titulo": "Analgésicos Hospital Clínico", "estado": "Adjudicada", "fecha_entrega": "2025-03-10", "codigo": "PC1"},
			{"id": "t2", "numero_licitacion": "LIC-2", "titulo": "Antiinflamatorios", "estado": "Abierta", "fecha_entrega": "2025-06-01", "codigo": "PC2"},
			{"id": "t3", "numero_licitacion": "LIC-3", "titulo": "Vacunas", "estado": "Adjudicada"},
		},
		model.TablePurchaseOrders: {
			{"oci": "OCI-1", "estado": "Emitida", "eta": "2025-03-05", "codigo": "PC1"},
			{"oci": "OCI-2", "estado": "Recibida", "eta": "2025-03-02"},
		},
		model.TableImports: {
			{"id": "i1", "numero_importacion": "IMP-1", "estado": "En Tránsito", "eta": "2025-03-05"},
			{"id": "i2", "numero_importacion": "IMP-2", "estado": "En puerto", "eta": "2025-02-20"},
		},
		model.TableDemand: {
			{"codigo": "PC1", "stock": "50", "demanda": "300", "pronostico": "320", "mes": "2025-01"},
			{"codigo": "PC1", "stock": "20", "demanda": "300", "pronostico": "310", "mes": "2025-02"},
			{"codigo": "PC2", "stock": "900", "demanda": "0", "pronostico": "10", "mes": "2025-02"},
		},
		model.TableCommunications: {
			{"id": "c1", "linked_type": "tender", "linked_id": "t1", "subject": "Consulta", "content": "hola", "fecha": "2025-02-01"},
			{"id": "c2", "linked_type": "tender", "linked_id": "t1", "subject": "Respuesta", "content": "ok", "fecha": "2025-02-03"},
			{"id": "c3", "linked_type": "import", "linked_id": "borrado", "subject": "Aduana", "content": "x", "fecha": "2025-01-15"},
		},
	}
}

func newTestServer(backend sheets.Backend, opts Options) (*Server, *mux.Router) {
	opts.Backend = backend
	opts.Logger = zap.NewNop()
	opts.Now = func() time.Time { return today }
	s := New(opts)
	r := mux.NewRouter()
	r.HandleFunc("/api/tables/{table}", s.ListTableHandler()).Methods(http.MethodGet)
	r.HandleFunc("/api/tables/{table}", s.CreateRowHandler()).Methods(http.MethodPost)
	r.HandleFunc("/api/tables/{table}/{id}", s.UpdateRowHandler()).Methods(http.MethodPut)
	r.HandleFunc("/api/tables/{table}/{id}", s.DeleteRowHandler()).Methods(http.MethodDelete)
	r.HandleFunc("/api/dashboard/summary", s.SummaryHandler()).Methods(http.MethodGet)
	r.HandleFunc("/api/dashboard/demand", s.DemandHandler()).Methods(http.MethodGet)
	r.HandleFunc("/api/dashboard/sales", s.SalesHandler()).Methods(http.MethodGet)
	r.HandleFunc("/api/dashboard/report", s.ReportHandler()).Methods(http.MethodGet)
	r.HandleFunc("/api/dashboard/report.pdf", s.ReportPDFHandler()).Methods(http.MethodGet)
	r.HandleFunc("/api/communications", s.CommunicationsHandler()).Methods(http.MethodGet)
	r.HandleFunc("/api/communications", s.CreateCommunicationHandler()).Methods(http.MethodPost)
	return s, r
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func TestBuildSummary(t *testing.T) {
	in := SummaryInput{
		Tenders: []model.Tender{
			{TenderNumber: "L1", Status: "Adjudicada", DeliveryDate: "2025-03-31"},
			{TenderNumber: "L2", Status: "Adjudicada", DeliveryDate: "2025-04-01"},
			{ID: "L3", Status: "", DeliveryDate: "2025-03-01"},
			{TenderNumber: "L4", Status: "Abierta", DeliveryDate: "2025-02-28"},
		},
		PurchaseOrders: []model.PurchaseOrder{
			{OCI: "O1", Status: "Emitida", ETA: "2025-03-10"},
			{OCI: "O2", Status: "CERRADA", ETA: "2025-03-03"},
			{PONumber: "P3", Status: "", ETA: "no date"},
		},
		Imports: []model.ImportRecord{
			{ImportNumber: "I1", Status: "En tránsito", ETA: "2025-03-10"},
			{ImportNumber: "I2", Status: "Shipped"},
			{ImportNumber: "I3", Status: "Entregado", ETA: "2025-03-04"},
		},
		Communications: 7,
		Alerts: []model.StockAlert{
			{Severity: model.SeverityCritical}, {Severity: model.SeverityLow}, {Severity: model.SeverityCritical},
		},
	}
	s := BuildSummary(in, today)

	assert.Equal(t, 4, s.TotalTenders)
	assert.Equal(t, map[string]int{"Adjudicada": 2, "Abierta": 1, "-": 1}, s.TendersByStatus)
	assert.Equal(t, 2, s.OpenPurchaseOrders)
	assert.Equal(t, 2, s.ImportsInTransit)
	assert.Equal(t, 7, s.Communications)
	assert.Equal(t, 3, s.LowStockAlerts)
	assert.Equal(t, 2, s.CriticalAlerts)

	var refs []string
	for _, d := range s.UpcomingDeliveries {
		refs = append(refs, d.Reference)
	}
	assert.Equal(t, []string{"L3", "I1", "O1", "L1"}, refs, "window is [today, today+30], ascending by date")
	assert.Equal(t, 0, s.UpcomingDeliveries[0].DaysUntil)
	assert.Equal(t, 30, s.UpcomingDeliveries[3].DaysUntil)
}

func TestBuildDemandView(t *testing.T) {
	ds := func(v float64) *float64 { return &v }
	rows := []model.DemandRow{
		{PresentationCode: "A", DaysSupply: ds(5), MonthlyDemandUnits: 10, MonthOfSupply: "2025-01"},
		{PresentationCode: "B", DaysSupply: ds(40), MonthlyDemandUnits: 10, MonthOfSupply: "2025-01"},
		{PresentationCode: "C", DaysSupply: ds(18), MonthlyDemandUnits: 10, MonthOfSupply: "2025-01"},
		{PresentationCode: "D", CurrentStockUnits: 100, MonthlyDemandUnits: 0, MonthOfSupply: "2025-01"},
	}
	v := BuildDemandView(rows)
	require.Len(t, v.Alerts, 2)
	assert.Equal(t, 5.0, v.Alerts[0].DaysSupply)
	assert.Equal(t, 18.0, v.Alerts[1].DaysSupply)
	require.Len(t, v.Trend, 1)
	assert.Equal(t, 30.0, v.Trend[0].Demand)

	empty := BuildDemandView(nil)
	assert.NotNil(t, empty.Trend)
	assert.NotNil(t, empty.Alerts)
}

func TestFilterAndSortCommunications(t *testing.T) {
	comms := []model.Communication{
		{ID: "a", LinkedType: "tender", LinkedID: "1", CreatedDate: "2025-01-01"},
		{ID: "b", LinkedType: "tender", LinkedID: "2", CreatedDate: "sin fecha"},
		{ID: "c", LinkedType: "import", LinkedID: "1", CreatedDate: "2025-02-01"},
		{ID: "d", LinkedType: "tender", LinkedID: "1", CreatedDate: "2025-03-01T10:00:00Z"},
	}
	got := FilterCommunications(comms, "TENDER", "1")
	require.Len(t, got, 2)
	assert.Empty(t, FilterCommunications(comms, "purchase_order", "ghost"))
	assert.Len(t, FilterCommunications(comms, "", ""), 4)

	SortNewestFirst(comms)
	var ids []string
	for _, c := range comms {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"d", "c", "a", "b"}, ids)
}

func TestListTableHandler(t *testing.T) {
	_, r := newTestServer(newMemoryBackend(sampleTables()), Options{})

	rr := do(r, http.MethodGet, "/api/tables/licitaciones?q=clinico", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var res struct {
		Count int            `json:"count"`
		Rows  []model.Tender `json:"rows"`
	}
	decode(t, rr, &res)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "LIC-1", res.Rows[0].TenderNumber)
	assert.Equal(t, "Paracetamol 500mg", res.Rows[0].ProductName)

	rr = do(r, http.MethodGet, "/api/tables/licitaciones?status=adjudicada", "")
	decode(t, rr, &res)
	assert.Equal(t, 2, res.Count)

	rr = do(r, http.MethodGet, "/api/tables/presentaciones", "")
	var cat struct {
		Rows []model.CatalogEntry `json:"rows"`
	}
	decode(t, rr, &cat)
	require.Len(t, cat.Rows, 2)
	require.NotNil(t, cat.Rows[0].PackageUnits)
	assert.Equal(t, 20.0, *cat.Rows[0].PackageUnits)
	assert.Nil(t, cat.Rows[1].PackageUnits)

	rr = do(r, http.MethodGet, "/api/tables/usuarios", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListTableHandlerWithoutCatalog(t *testing.T) {
	backend := newMemoryBackend(sampleTables())
	backend.fail[model.TablePresentations] = errors.New("boom")
	_, r := newTestServer(backend, Options{})

	rr := do(r, http.MethodGet, "/api/tables/ordenes_compra", "")
	require.Equal(t, http.StatusOK, rr.Code, "catalog failure only degrades enrichment")
	var res struct {
		Rows []model.PurchaseOrder `json:"rows"`
	}
	decode(t, rr, &res)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "", res.Rows[0].ProductName)
}

func TestRowMutationHandlers(t *testing.T) {
	backend := newMemoryBackend(sampleTables())
	_, r := newTestServer(backend, Options{})

	rr := do(r, http.MethodPost, "/api/tables/importaciones", `{"numero_importacion":"IMP-9","cantidad":12}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	var created struct {
		Row model.Row `json:"row"`
	}
	decode(t, rr, &created)
	id := sheets.RowID(created.Row)
	require.NotEmpty(t, id)

	rr = do(r, http.MethodPut, "/api/tables/importaciones/"+id, `{"numero_importacion":"IMP-9b"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(r, http.MethodPut, "/api/tables/importaciones/ghost", `{}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(r, http.MethodPost, "/api/tables/importaciones", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(r, http.MethodDelete, "/api/tables/importaciones/"+id, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, backend.tables[model.TableImports], 2)
}

func TestSummaryAndDemandHandlers(t *testing.T) {
	backend := newMemoryBackend(sampleTables())
	_, r := newTestServer(backend, Options{})

	rr := do(r, http.MethodGet, "/api/dashboard/summary", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var sum struct {
		Summary model.SummaryCards `json:"summary"`
	}
	decode(t, rr, &sum)
	assert.Equal(t, 3, sum.Summary.TotalTenders)
	assert.Equal(t, 1, sum.Summary.OpenPurchaseOrders)
	assert.Equal(t, 1, sum.Summary.ImportsInTransit)
	assert.Equal(t, 3, sum.Summary.Communications)
	assert.Equal(t, 1, sum.Summary.LowStockAlerts, "only the latest PC1 row; PC2 has zero demand")
	assert.Equal(t, 1, sum.Summary.CriticalAlerts)

	rr = do(r, http.MethodGet, "/api/dashboard/demand?code=PC1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var dem struct {
		Demand model.DemandView `json:"demand"`
	}
	decode(t, rr, &dem)
	require.Len(t, dem.Demand.Trend, 2)
	assert.Equal(t, "2025-01", dem.Demand.Trend[0].MonthLabel)
	require.Len(t, dem.Demand.Alerts, 1)
	assert.Equal(t, 2.0, dem.Demand.Alerts[0].DaysSupply)
	assert.Equal(t, "Paracetamol 500mg", dem.Demand.Alerts[0].ProductName)
	assert.Equal(t, 375.0, dem.Demand.Alerts[0].MinimumThreshold)

	backend.fail[model.TableDemand] = &upstream.StatusError{Status: 500, Body: "<p>stack trace from apps script</p>"}
	rr = do(r, http.MethodGet, "/api/dashboard/summary", "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.JSONEq(t, `{"ok":false,"error":"upstream returned HTTP 500"}`, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "stack trace")

	backend.fail[model.TableDemand] = fmt.Errorf("read demanda: %w", upstream.ErrBlocked)
	rr = do(r, http.MethodGet, "/api/dashboard/summary", "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.JSONEq(t, `{"ok":false,"error":"blocked by upstream captcha page"}`, rr.Body.String())
}

func TestCommunicationsHandlers(t *testing.T) {
	backend := newMemoryBackend(sampleTables())
	_, r := newTestServer(backend, Options{})

	rr := do(r, http.MethodGet, "/api/communications?linked_type=tender&linked_id=t1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Communications []model.Communication `json:"communications"`
	}
	decode(t, rr, &list)
	require.Len(t, list.Communications, 2)
	assert.Equal(t, "c2", list.Communications[0].ID)

	body := `{"linked_type":"purchase_order","linked_id":"OCI-1","subject":"Despacho","content":"` + strings.Repeat("á", 130) + `","participants":["ana","luis"]}`
	rr = do(r, http.MethodPost, "/api/communications", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created struct {
		Communication model.Communication `json:"communication"`
	}
	decode(t, rr, &created)
	c := created.Communication
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "2025-03-01T09:00:00Z", c.CreatedDate)
	assert.Equal(t, []string{"ana", "luis"}, c.Participants)
	assert.Equal(t, strings.Repeat("á", 120)+"…", c.Preview)

	rr = do(r, http.MethodPost, "/api/communications", `{"linked_type":"cliente","subject":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = do(r, http.MethodPost, "/api/communications", `{"linked_type":"tender"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSalesHandler(t *testing.T) {
	backend := newMemoryBackend(sampleTables())
	var got managermas.SalesQuery
	sales := salesFunc(func(ctx context.Context, q managermas.SalesQuery) (*model.SalesSeries, error) {
		got = q
		return &model.SalesSeries{OK: true, PresentationCode: q.PresentationCode, From: q.From, To: q.To,
			Series: []model.SalesSeriesPoint{{Month: "2025-01", Units: 10}}}, nil
	})
	_, r := newTestServer(backend, Options{Sales: sales})

	rr := do(r, http.MethodGet, "/api/dashboard/sales?presentation_code=PC1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2024-03", got.From)
	assert.Equal(t, "2025-02", got.To)
	assert.JSONEq(t, `{"ok":true,"presentation_code":"PC1","from":"2024-03","to":"2025-02","series":[["2025-01",10]],"productName":"Paracetamol 500mg"}`, rr.Body.String())

	rr = do(r, http.MethodGet, "/api/dashboard/sales", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	_, r = newTestServer(backend, Options{})
	rr = do(r, http.MethodGet, "/api/dashboard/sales?presentation_code=PC1", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestSalesHandlerTimeout(t *testing.T) {
	slow := salesFunc(func(ctx context.Context, q managermas.SalesQuery) (*model.SalesSeries, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	_, r := newTestServer(newMemoryBackend(sampleTables()), Options{Sales: slow, SalesTimeout: 20 * time.Millisecond})

	rr := do(r, http.MethodGet, "/api/dashboard/sales?presentation_code=PC1&from=2025-01&to=2025-02", "")
	assert.Equal(t, http.StatusGatewayTimeout, rr.Code)
	assert.JSONEq(t, `{"ok":false,"error":"sales query timed out"}`, rr.Body.String())
}

func TestReportHandlers(t *testing.T) {
	backend := newMemoryBackend(sampleTables())
	var rendered string
	pdf := pdfFunc(func(ctx context.Context, html string) ([]byte, error) {
		rendered = html
		return []byte("%PDF-1.4 fake"), nil
	})
	_, r := newTestServer(backend, Options{PDF: pdf, Language: render.English})

	rr := do(r, http.MethodGet, "/api/dashboard/report", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "Supply dashboard")
	assert.Contains(t, rr.Body.String(), "IMP-1")

	rr = do(r, http.MethodGet, "/api/dashboard/report.pdf", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "reporte-20250301.pdf")
	assert.Contains(t, rendered, `lang="en"`)

	_, r = newTestServer(backend, Options{})
	rr = do(r, http.MethodGet, "/api/dashboard/report.pdf", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	rr = do(r, http.MethodGet, "/api/dashboard/report", "")
	assert.Contains(t, rr.Body.String(), "Panel de abastecimiento", "spanish is the default language")
}
