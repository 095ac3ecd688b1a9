// Package api exposes the JSON HTTP surface: interactive games, arena
// runs and post-game analysis.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"chessarena/internal/analysis"
	"chessarena/internal/arena"
	"chessarena/internal/config"
	"chessarena/internal/game"
	"chessarena/internal/policy"
	"chessarena/internal/store"
)

// Handler serves all API routes.
type Handler struct {
	cfg       *config.Config
	games     *game.Controller
	scheduler *arena.Scheduler
	store     *store.Store
	analysis  *analysis.Service
}

func NewHandler(cfg *config.Config, games *game.Controller, scheduler *arena.Scheduler, st *store.Store, an *analysis.Service) *Handler {
	return &Handler{cfg: cfg, games: games, scheduler: scheduler, store: st, analysis: an}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, map[string]string{"error": message, "code": code})
}

// HandleAIOptions lists the selectable providers, their allow-listed
// models and the supported move policies.
func (h *Handler) HandleAIOptions(w http.ResponseWriter, r *http.Request) {
	providers := map[string][]string{
		"openai":    h.cfg.LLM.AllowedModels["openai"],
		"anthropic": h.cfg.LLM.AllowedModels["anthropic"],
		"gemini":    h.cfg.LLM.AllowedModels["gemini"],
	}
	if h.cfg.LLM.LocalEnabled {
		providers["local"] = h.cfg.LLM.AllowedModels["local"]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"providers":                     providers,
		"advanced_custom_model_enabled": h.cfg.LLM.CustomModelEnabled,
		"ttc_policies": []string{
			policy.Baseline, policy.SelfConsistency, policy.Verifier, policy.UncertaintyFallback,
		},
	})
}

// HandleCreateGame starts a new game.
func (h *Handler) HandleCreateGame(w http.ResponseWriter, r *http.Request) {
	var params game.CreateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "invalid_body")
		return
	}
	rec, err := h.games.Create(params)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_player_config")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// HandleGetGame returns one game.
func (h *Handler) HandleGetGame(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.games.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Game not found", "game_not_found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleMove applies a human move, then lets the AI answer.
func (h *Handler) HandleMove(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MoveUCI string `json:"move_uci"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.MoveUCI) == "" {
		writeError(w, http.StatusBadRequest, "Invalid UCI format", "invalid_uci")
		return
	}

	rec, err := h.games.HumanMove(r.Context(), r.PathValue("id"), body.MoveUCI)
	var illegal *game.IllegalMoveError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, rec)
	case errors.Is(err, game.ErrNotFound):
		writeError(w, http.StatusNotFound, "Game not found", "game_not_found")
	case errors.Is(err, game.ErrGameOver):
		writeError(w, http.StatusBadRequest, "Game is already over", "game_over")
	case errors.As(err, &illegal):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":       "Illegal move",
			"code":        "illegal_move",
			"move_uci":    illegal.MoveUCI,
			"legal_moves": illegal.LegalMoves,
		})
	default:
		log.Printf("ai_move_error game_id=%s error=%v", r.PathValue("id"), err)
		writeError(w, http.StatusInternalServerError, "Failed to generate AI move", "ai_move_error")
	}
}

// HandleStep advances an AI-vs-AI game by up to max_plies half-moves.
// Stepping a finished game is a no-op that reports zero plies played.
func (h *Handler) HandleStep(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MaxPlies int `json:"max_plies"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	rec, played, err := h.games.Step(r.Context(), r.PathValue("id"), body.MaxPlies)
	if errors.Is(err, game.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Game not found", "game_not_found")
		return
	}
	if err != nil {
		log.Printf("ai_move_error game_id=%s error=%v", r.PathValue("id"), err)
		writeError(w, http.StatusInternalServerError, "Failed to generate AI move", "ai_move_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"game":         rec,
		"played_plies": played,
	})
}

// HandleAnalysis grades a finished game with the engine.
func (h *Handler) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.Analysis.Enabled || h.analysis == nil {
		writeError(w, http.StatusServiceUnavailable, "Analysis engine unavailable", "analysis_unavailable")
		return
	}
	rec, ok := h.games.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Game not found", "game_not_found")
		return
	}

	report, err := h.analysis.AnalyzeGame(rec.ID, rec.PGN)
	var tooShort *analysis.TooShortError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, report)
	case errors.As(err, &tooShort):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":     "Not enough moves to analyze",
			"code":      "analysis_too_short",
			"min_plies": tooShort.MinPlies,
		})
	case errors.Is(err, analysis.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Analysis engine unavailable", "analysis_unavailable")
	default:
		log.Printf("analysis_failed game_id=%s error=%v", rec.ID, err)
		writeError(w, http.StatusInternalServerError, "Failed to analyze game", "analysis_failed")
	}
}

// HandleSubmitRun queues an arena run and returns 202 with the queued
// snapshot.
func (h *Handler) HandleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var cfg arena.RunConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", "invalid_body")
		return
	}
	snap, err := h.scheduler.Submit(cfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_run_config")
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

// HandleListRuns returns recent runs, most recent first, with compact
// results unless include_games=1.
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	includeGames := r.URL.Query().Get("include_games") == "1"
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	snaps := h.scheduler.List(limit)
	runs := make([]arena.Snapshot, 0, len(snaps))
	for _, snap := range snaps {
		if !includeGames {
			snap.Result = snap.Result.WithoutGames()
		}
		runs = append(runs, snap)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// HandleGetRun returns one run snapshot. Runs from earlier process
// lifetimes are served from the store.
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.scheduler.Get(r.PathValue("id"))
	if !ok {
		if rec, found := h.store.GetRun(r.PathValue("id")); found {
			writeJSON(w, http.StatusOK, rec)
			return
		}
		writeError(w, http.StatusNotFound, "Arena run not found", "arena_run_not_found")
		return
	}
	if r.URL.Query().Get("include_games") != "1" {
		snap.Result = snap.Result.WithoutGames()
	}
	writeJSON(w, http.StatusOK, snap)
}
