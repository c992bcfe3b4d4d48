package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"helo/internal/back"
	"helo/internal/rating"
	"helo/internal/util"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/", noContent)

	// No pagination, the whole ladder fits in a response.
	r.Get("/v1/entities", s.getLeaderboard)
	r.Get("/v1/entity/{id}", s.getEntity)
	r.Get("/v1/entity/{id}/history", s.getHistory)
	r.Get("/v1/entity/{id}/history.svg", s.getHistoryChart)
	r.Get("/v1/entity/{id}/stats", s.getStatistics)
	r.Get("/v1/match/{id}", s.getMatch)
	r.Get("/v1/simulate", s.getSimulation)

	r.Group(func(r chi.Router) {
		r.Use(s.limit)
		r.Post("/v1/entities", s.createEntity)
		r.Post("/v1/matches", s.createMatch)
		r.Patch("/v1/match/{id}", s.patchMatch)
		r.Post("/v1/match/{id}/confirm", s.confirmMatch)
		r.Post("/v1/match/{id}/recalculate", s.recalculateMatch)
	})

	return r
}

type Server struct {
	http    *http.Server
	back    *back.Back
	limiter *rate.Limiter
}

func NewServer(back *back.Back, addr string) *Server {
	s := &Server{
		back:    back,
		limiter: rate.NewLimiter(20/10, 5),
	}

	s.http = &http.Server{
		Addr:         addr,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second, // recalculations can take a while
		IdleTimeout:  10 * time.Second,
		Handler:      s.setupRouter(),
	}

	return s
}

// Handler returns the router, for use without Serve.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) Serve(wg *sync.WaitGroup, done <-chan struct{}) {
	log.Infof("starting HTTP server on %s", s.http.Addr)
	wg.Add(1)
	defer wg.Done()

	go func() {
		err := s.http.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("HTTP server closed")
			return
		}

		log.Fatalf("webserver crashed: %s", err)
	}()

	<-done
	if err := s.http.Close(); err != nil {
		log.Warnf("unable to close webserver: %s", err)
	}
}

// limit rejects writes above the server-wide rate.
func (s *Server) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.error(w, util.ErrPublic("too many requests"), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) response(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	response, err := json.Marshal(data)
	if err != nil {
		log.Errorf("unable to marshal response: %s", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(code)

	if _, err := w.Write(response); err != nil {
		log.Errorf("unable to send response: %s", err)
	}
}

// error sends the message of errors the caller can act upon, and only the
// status for the others.
func (s *Server) error(w http.ResponseWriter, err error, code int) {
	if code >= http.StatusInternalServerError {
		log.Errorf("%s", err)
		w.WriteHeader(code)
		return
	}

	log.Debugf("%d: %s", code, err)
	s.response(w, code, struct{ Error string }{err.Error()})
}

// fail maps err to its status code.
func (s *Server) fail(w http.ResponseWriter, err error) {
	s.error(w, err, statusOf(err))
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, back.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, back.ErrNotConfirmed):
		return http.StatusConflict
	case errors.Is(err, util.ErrPublic("")),
		errors.Is(err, rating.ErrInvalidScoreSum),
		errors.Is(err, rating.ErrSelfPlay),
		errors.Is(err, rating.ErrDivergentWeights),
		errors.Is(err, rating.ErrInvalidRating),
		errors.Is(err, rating.ErrInvalidFactor),
		errors.Is(err, rating.ErrInvalidPlayerCount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) cache(w http.ResponseWriter, scope string, d time.Duration) {
	w.Header().Set("Cache-Control", fmt.Sprintf("%s,max-age=%d", scope, d/time.Second))
}
