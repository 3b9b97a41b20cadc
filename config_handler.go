package main

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"scmdash/config"
)

// writeJSONError はエラーを {ok:false, error} で返します。
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": message})
}

// GetConfigHandler は現在の設定を返します。
func GetConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "config": config.GetConfig()})
	}
}

// SaveConfigHandler は設定を保存します。稼働中のサーバには再起動後に反映されます。
func SaveConfigHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var newCfg config.Config
		if err := json.NewDecoder(r.Body).Decode(&newCfg); err != nil {
			writeJSONError(w, "request body must be a JSON object", http.StatusBadRequest)
			return
		}
		if err := newCfg.Validate(); err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}

		saved, err := config.SaveConfig(newCfg)
		if err != nil {
			logger.Error("saving config failed", zap.Error(err))
			writeJSONError(w, "failed to save config", http.StatusInternalServerError)
			return
		}
		logger.Info("config saved", zap.String("language", saved.Language), zap.String("backend", saved.SheetBackend))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "config": saved, "restartRequired": true})
	}
}
