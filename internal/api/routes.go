package api

import (
	"net/http"
)

// NewMux registers every API route and wraps the mux in the shared
// middleware.
func NewMux(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/ai/options", h.HandleAIOptions)

	mux.HandleFunc("POST /api/games", h.HandleCreateGame)
	mux.HandleFunc("GET /api/games/{id}", h.HandleGetGame)
	mux.HandleFunc("POST /api/games/{id}/move", h.HandleMove)
	mux.HandleFunc("POST /api/games/{id}/step", h.HandleStep)
	mux.HandleFunc("GET /api/games/{id}/analysis", h.HandleAnalysis)

	mux.HandleFunc("POST /api/arena/runs", h.HandleSubmitRun)
	mux.HandleFunc("GET /api/arena/runs", h.HandleListRuns)
	mux.HandleFunc("GET /api/arena/runs/{id}", h.HandleGetRun)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return CORS(h.cfg.CORSAllowedOrigins, mux)
}
