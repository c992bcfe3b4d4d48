package web

import (
	"bytes"
	"encoding/json"
	"helo/internal/back"
	"helo/internal/util"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

func (s *Server) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	leaderboard, err := s.back.Leaderboard(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}

	s.cache(w, "public", 1*time.Minute)
	s.response(w, http.StatusOK, leaderboard)
}

// entityParam finds the entity named by the {id} URL parameter, either by ID
// or by tag.
func (s *Server) entityParam(r *http.Request) (back.Entity, error) {
	param := chi.URLParam(r, "id")
	if id, err := util.ParseUUIDAsBlob(param); err == nil {
		return s.back.GetEntity(r.Context(), id)
	}

	return s.back.GetEntityByTag(r.Context(), param)
}

func (s *Server) getEntity(w http.ResponseWriter, r *http.Request) {
	entity, err := s.entityParam(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.cache(w, "public", 1*time.Minute)
	s.response(w, http.StatusOK, entity)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	entity, err := s.entityParam(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	history, err := s.back.History(r.Context(), entity.ID)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.cache(w, "public", 1*time.Minute)
	s.response(w, http.StatusOK, history)
}

// getStatistics takes an optional ?map= filter.
func (s *Server) getStatistics(w http.ResponseWriter, r *http.Request) {
	entity, err := s.entityParam(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	stats, err := s.back.Statistics(r.Context(), entity.ID, r.URL.Query().Get("map"))
	if err != nil {
		s.fail(w, err)
		return
	}

	s.cache(w, "public", 1*time.Minute)
	s.response(w, http.StatusOK, stats)
}

func (s *Server) getHistoryChart(w http.ResponseWriter, r *http.Request) {
	entity, err := s.entityParam(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	history, err := s.back.History(r.Context(), entity.ID)
	if err != nil {
		s.fail(w, err)
		return
	}

	var buf bytes.Buffer
	if err := renderHistory(&buf, entity, history, s.back.Ruleset().DefaultRating); err != nil {
		s.fail(w, err)
		return
	}

	s.cache(w, "public", 1*time.Hour)
	w.Header().Set("Content-Type", "image/svg+xml")
	if _, err := buf.WriteTo(w); err != nil {
		s.error(w, err, http.StatusInternalServerError)
	}
}

func (s *Server) createEntity(w http.ResponseWriter, r *http.Request) {
	var req struct{ Tag, Name string }
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, util.ErrPublic("invalid JSON body"))
		return
	}

	entity, err := s.back.CreateEntity(r.Context(), req.Tag, req.Name)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.response(w, http.StatusCreated, entity)
}
