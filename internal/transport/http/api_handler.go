package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"trivia-live-service/internal/app"
	"trivia-live-service/internal/domain"
)

// APIHandler exposes the non-realtime surface: match creation and lookup,
// and the solo leaderboard.
type APIHandler struct {
	matches *app.MatchService
	solo    *app.SoloService
}

func NewAPIHandler(matches *app.MatchService, solo *app.SoloService) *APIHandler {
	return &APIHandler{matches: matches, solo: solo}
}

// Register attaches the API routes to mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/matches", h.handleMatches)
	mux.HandleFunc("/solo/scores", h.handleSoloScores)
	mux.HandleFunc("/solo/top", h.handleSoloTop)
}

type createMatchRequest struct {
	Code           string              `json:"code"`
	HostPin        string              `json:"hostPin"`
	PackID         string              `json:"packId,omitempty"`
	Questions      []domain.Question   `json:"questions,omitempty"`
	Config         *domain.MatchConfig `json:"config,omitempty"`
	MaxQuestions   int                 `json:"maxQuestions,omitempty"`
	ShuffleOrder   bool                `json:"shuffleOrder,omitempty"`
	ShuffleAnswers bool                `json:"shuffleAnswers,omitempty"`
}

func (h *APIHandler) handleMatches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createMatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		id, err := h.matches.CreateMatch(r.Context(), app.CreateMatchInput{
			Code:           req.Code,
			HostPin:        req.HostPin,
			PackID:         req.PackID,
			Questions:      req.Questions,
			Config:         req.Config,
			MaxQuestions:   req.MaxQuestions,
			ShuffleOrder:   req.ShuffleOrder,
			ShuffleAnswers: req.ShuffleAnswers,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"matchId": id})

	case http.MethodGet:
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		m, err := h.matches.FindMatchByCode(r.Context(), code)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newMatchView(m))

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type soloScoreRequest struct {
	Name       string `json:"name"`
	Score      int    `json:"score"`
	DurationMs int64  `json:"durationMs"`
}

func (h *APIHandler) handleSoloScores(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req soloScoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		entry, err := h.solo.RecordScore(r.Context(), req.Name, req.Score, req.DurationMs)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)

	case http.MethodDelete:
		if err := h.solo.Clear(r.Context(), r.URL.Query().Get("passcode")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *APIHandler) handleSoloTop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	n, _ := strconv.Atoi(r.URL.Query().Get("n"))
	entries, err := h.solo.Top(r.Context(), n)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.SoloScore{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrMatchNotFound), errors.Is(err, domain.ErrPackNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPin):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrDuplicateCode):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrMatchEnded),
		errors.Is(err, domain.ErrQuestionNotOpen),
		errors.Is(err, domain.ErrStaleQuestion),
		errors.Is(err, domain.ErrAlreadyAnswered),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrPackDisabled):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}
