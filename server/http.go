package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// StatusResponse is the GET /status body.
type StatusResponse struct {
	Status   string `json:"status"`
	Tables   int    `json:"tables"`
	Sessions int    `json:"sessions"`
	Uptime   string `json:"uptime"`
}

// NewRouter exposes read-only operational state over HTTP alongside the game
// transport.
func NewRouter(s *Server) http.Handler {
	started := time.Now()

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		sessions := len(s.sessions)
		s.mu.Unlock()

		writeJSON(w, http.StatusOK, StatusResponse{
			Status:   "ok",
			Tables:   s.manager.Count(),
			Sessions: sessions,
			Uptime:   time.Since(started).Truncate(time.Second).String(),
		})
	})

	r.Get("/tables", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, s.manager.ListTables())
	})

	r.Get("/tables/{tableID}", func(w http.ResponseWriter, req *http.Request) {
		table, err := s.manager.GetTable(chi.URLParam(req, "tableID"))
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"table_id": table.TableID(),
			"name":     table.Meta().Name,
			"status":   string(table.Status()),
			"players":  table.Roster(),
			"seq":      table.EventLog().Seq(),
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
