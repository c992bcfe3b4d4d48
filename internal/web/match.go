package web

import (
	"encoding/json"
	"fmt"
	"helo/internal/back"
	"helo/internal/util"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

const maxPatchSize = 64 << 10

func matchParam(r *http.Request) (util.UUIDAsBlob, error) {
	return util.ParseUUIDAsBlob(chi.URLParam(r, "id"))
}

func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	id, err := matchParam(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	m, err := s.back.GetMatch(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.response(w, http.StatusOK, m)
}

// matchRequest designates entities by tag, per-entity player counts are
// indexed like the sides.
type matchRequest struct {
	Reference string
	Date      time.Time
	Map       string
	Event     string

	Side1, Side2       []string
	Players1, Players2 []int

	ObjectivePoints1, ObjectivePoints2 int
	CompetitiveFactor                  float64
	TotalPlayers                       int
}

func (s *Server) createMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, util.ErrPublic("invalid JSON body"))
		return
	}

	side1, err := s.entityIDs(r, req.Side1, req.Players1)
	if err != nil {
		s.fail(w, err)
		return
	}
	side2, err := s.entityIDs(r, req.Side2, req.Players2)
	if err != nil {
		s.fail(w, err)
		return
	}

	m := back.NewMatch(req.Reference, req.Date, side1, side2)
	m.Map = req.Map
	m.Event = req.Event
	m.ObjectivePoints1 = req.ObjectivePoints1
	m.ObjectivePoints2 = req.ObjectivePoints2
	m.TotalPlayers = req.TotalPlayers
	if req.CompetitiveFactor != 0 {
		m.CompetitiveFactor = req.CompetitiveFactor
	}
	setPlayers(&m, back.Side1, req.Players1)
	setPlayers(&m, back.Side2, req.Players2)

	if err := s.back.CreateMatch(r.Context(), m); err != nil {
		s.fail(w, err)
		return
	}

	s.response(w, http.StatusCreated, m)
}

func (s *Server) entityIDs(r *http.Request, tags []string, players []int) ([]util.UUIDAsBlob, error) {
	if players != nil && len(players) != len(tags) {
		return nil, util.ErrPublic("player counts must match the entities of their side")
	}

	ret := make([]util.UUIDAsBlob, 0, len(tags))
	for _, tag := range tags {
		entity, err := s.back.GetEntityByTag(r.Context(), tag)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", tag, err)
		}
		ret = append(ret, entity.ID)
	}

	return ret, nil
}

func setPlayers(m *back.Match, side back.Side, players []int) {
	if players == nil {
		return
	}

	for k, v := range m.Entries {
		if v.Side == side {
			m.Entries[k].Players = players[v.Position]
		}
	}
}

// patchMatch applies a JSON merge patch.
func (s *Server) patchMatch(w http.ResponseWriter, r *http.Request) {
	id, err := matchParam(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	patch, err := io.ReadAll(io.LimitReader(r.Body, maxPatchSize))
	if err != nil {
		s.fail(w, err)
		return
	}

	m, err := s.back.ApplyCorrection(r.Context(), id, patch)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.response(w, http.StatusOK, m)
}

// confirmMatch posts the match, or with ?side=N&by=NAME records the
// confirmation of one side first.
func (s *Server) confirmMatch(w http.ResponseWriter, r *http.Request) {
	id, err := matchParam(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	if str := r.URL.Query().Get("side"); str != "" {
		side, err := strconv.Atoi(str)
		if err != nil {
			s.fail(w, util.ErrPublic("invalid side"))
			return
		}

		by := r.URL.Query().Get("by")
		if by == "" {
			s.fail(w, util.ErrPublic("missing confirmation author"))
			return
		}

		m, err := s.back.ConfirmSide(r.Context(), id, back.Side(side), by)
		if err != nil {
			s.fail(w, err)
			return
		}

		s.response(w, http.StatusOK, m)
		return
	}

	if err := s.back.ConfirmMatch(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}

	m, err := s.back.GetMatch(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.response(w, http.StatusOK, m)
}

func (s *Server) recalculateMatch(w http.ResponseWriter, r *http.Request) {
	id, err := matchParam(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	report, err := s.back.TriggerRecalculation(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.response(w, http.StatusOK, struct {
		Root     util.UUIDAsBlob
		Replayed int
		Affected []util.UUIDAsBlob
		Duration string
	}{report.Root, report.Replayed, report.Affected, report.Duration.String()})
}
