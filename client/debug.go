package client

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// DebugRoutes 本地调试接口
// GET /metrics  运行指标
// GET /config   当前配置
// GET /healthz  存活检查
func DebugRoutes(cfg Config, m *Metrics) http.Handler {
	r := chi.NewRouter()
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, m.Snapshot())
	})
	r.Get("/config", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, cfg)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
