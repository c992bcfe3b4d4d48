package web

import (
	"helo/internal/back"
	"helo/internal/util"
	"net/http"
	"net/url"
	"strconv"
)

// getSimulation previews a match:
// /v1/simulate?side1=A,B&side2=C&points1=5&points2=0[&factor=1.2][&players=50]
func (s *Server) getSimulation(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := back.SimulationRequest{
		Side1: util.SplitList(q.Get("side1")),
		Side2: util.SplitList(q.Get("side2")),
	}

	var err error
	if req.Points1, err = intParam(q, "points1"); err != nil {
		s.fail(w, err)
		return
	}
	if req.Points2, err = intParam(q, "points2"); err != nil {
		s.fail(w, err)
		return
	}
	if req.PlayerCount, err = intParam(q, "players"); err != nil {
		s.fail(w, err)
		return
	}
	if str := q.Get("factor"); str != "" {
		if req.Factor, err = strconv.ParseFloat(str, 64); err != nil {
			s.fail(w, util.ErrPublic("invalid factor"))
			return
		}
	}

	sim, err := s.back.Simulate(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.response(w, http.StatusOK, sim)
}

// intParam returns 0 for a missing parameter.
func intParam(q url.Values, name string) (int, error) {
	str := q.Get(name)
	if str == "" {
		return 0, nil
	}

	v, err := strconv.Atoi(str)
	if err != nil {
		return 0, util.ErrPublic("invalid " + name)
	}

	return v, nil
}
