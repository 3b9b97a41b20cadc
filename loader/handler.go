package loader

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"scmdash/database"
)

const maxUploadBytes = 32 << 20

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": message})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// ImportHandler は POST /api/mirror/import/{table} です。multipart の file を取り込みます。
func ImportHandler(db *sqlx.DB, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table := mux.Vars(r)["table"]
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeJSONError(w, "multipart form with a file field is required", http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSONError(w, "file is required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		n, err := Import(db, table, header.Filename, file, logger)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, ErrUnknownTable) {
				status = http.StatusNotFound
			}
			logger.Warn("mirror import failed", zap.String("table", table), zap.Error(err))
			writeJSONError(w, err.Error(), status)
			return
		}
		writeJSON(w, map[string]any{"ok": true, "table": table, "rows": n})
	}
}

// SyncHandler は POST /api/mirror/sync です。
func SyncHandler(db *sqlx.DB, src SyncSource, tables func() []string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if src == nil {
			writeJSONError(w, "VITE_SHEETS_API_URL is not configured", http.StatusServiceUnavailable)
			return
		}
		counts, err := Sync(r.Context(), db, src, tables(), logger)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": err.Error(), "rows": counts})
			return
		}
		writeJSON(w, map[string]any{"ok": true, "rows": counts})
	}
}

// StatusHandler は GET /api/mirror/status です。
func StatusHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		infos, err := database.GetSyncLog(db)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if infos == nil {
			infos = []database.SyncInfo{}
		}
		writeJSON(w, map[string]any{"ok": true, "tables": infos})
	}
}
