package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"docqa/internal/query"
)

type askRequest struct {
	Question string `json:"question"`
}

type source struct {
	Source string  `json:"source"`
	Title  string  `json:"title"`
	Score  float64 `json:"score"`
}

type askResponse struct {
	Answer  string   `json:"answer"`
	State   string   `json:"state"`
	QueryID string   `json:"query_id"`
	Sources []source `json:"sources"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ans, err := s.asker.Ask(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, query.ErrEmptyQuestion) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("ask failed", zap.String("query_id", ans.QueryID), zap.Error(err))
		var se *query.StageError
		if errors.As(err, &se) {
			s.respondJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error(), "stage": string(se.Stage)})
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := askResponse{
		Answer:  ans.Text,
		State:   string(ans.State),
		QueryID: ans.QueryID,
		Sources: make([]source, len(ans.Candidates)),
	}
	for i, c := range ans.Candidates {
		resp.Sources[i] = source{Source: c.Node.Source, Title: c.Node.Title, Score: c.Score}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.stats.Stats())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
