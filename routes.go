package main

import (
	"net/http"

	"github.com/gorilla/mux"

	"scmdash/gasproxy"
	"scmdash/loader"
	"scmdash/managermas"
)

// SetupRoutes は全APIを登録します。
// プロキシ系はハンドラ自身がメソッドを検査するため、メソッドを限定せずに登録します。
func SetupRoutes(r *mux.Router, a *app) {
	d := a.dashboardServer()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/tables/{table}", d.ListTableHandler()).Methods(http.MethodGet)
	api.HandleFunc("/tables/{table}", d.CreateRowHandler()).Methods(http.MethodPost)
	api.HandleFunc("/tables/{table}/{id}", d.UpdateRowHandler()).Methods(http.MethodPut)
	api.HandleFunc("/tables/{table}/{id}", d.DeleteRowHandler()).Methods(http.MethodDelete)

	api.HandleFunc("/dashboard/summary", d.SummaryHandler()).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/demand", d.DemandHandler()).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/sales", d.SalesHandler()).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/report", d.ReportHandler()).Methods(http.MethodGet)
	api.HandleFunc("/dashboard/report.pdf", d.ReportPDFHandler()).Methods(http.MethodGet)

	api.HandleFunc("/communications", d.CommunicationsHandler()).Methods(http.MethodGet)
	api.HandleFunc("/communications", d.CreateCommunicationHandler()).Methods(http.MethodPost)

	api.HandleFunc("/config", GetConfigHandler()).Methods(http.MethodGet)
	api.HandleFunc("/config", SaveConfigHandler(a.logger)).Methods(http.MethodPost)

	api.HandleFunc("/mm-proxy", managermas.StockHandler(a.mm))
	api.HandleFunc("/mm-sales", managermas.SalesHandler(a.mm))
	api.HandleFunc("/gas-proxy", gasproxy.Handler(a.env.GASBase, &http.Client{Timeout: upstreamTimeout}, a.logger))

	tables := func() []string { return a.cfg.MirrorTables }
	api.HandleFunc("/mirror/import/{table}", loader.ImportHandler(a.db, a.logger)).Methods(http.MethodPost)
	api.HandleFunc("/mirror/sync", loader.SyncHandler(a.db, a.syncSource(), tables, a.logger)).Methods(http.MethodPost)
	api.HandleFunc("/mirror/status", loader.StatusHandler(a.db)).Methods(http.MethodGet)
}
