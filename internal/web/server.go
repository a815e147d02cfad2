// Package web exposes the scheduling engine over a small JSON API: queue
// counts, the session lifecycle, review history, and source management.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/notedeck/notedeck/internal/domain"
	"github.com/notedeck/notedeck/internal/queue"
	"github.com/notedeck/notedeck/internal/session"
	"github.com/notedeck/notedeck/internal/sm2"
	"github.com/notedeck/notedeck/internal/storage"
	vaultsync "github.com/notedeck/notedeck/internal/sync"
)

// Config carries the server's tunables.
type Config struct {
	ReposDir     string
	HistoryLimit int
}

// Server holds the dependencies for the HTTP server. The engine supports one
// active session at a time; the server enforces that rule and serializes
// session access, since net/http handlers run concurrently.
type Server struct {
	db     *storage.DB
	router *http.ServeMux
	cfg    Config
	rng    *rand.Rand

	mu      sync.Mutex
	session *session.Session
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, cfg Config) *Server {
	s := &Server{
		db:     db,
		router: http.NewServeMux(),
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("/api/counts", s.handleCounts())
	s.router.HandleFunc("/api/cards", s.handleCards())
	s.router.HandleFunc("/api/session", s.handleSession())
	s.router.HandleFunc("/api/session/rate", s.handleRate())
	s.router.HandleFunc("/api/history", s.handleHistory())
	s.router.HandleFunc("/api/sources", s.handleSources())
	s.router.HandleFunc("/api/sources/", s.handleDeleteSource())
	s.router.HandleFunc("/api/sync", s.handlePostSync())
}

type cardView struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	State sm2.State `json:"state"`
}

type sessionView struct {
	ID        string        `json:"id"`
	Mode      queue.Mode    `json:"mode"`
	Status    string        `json:"status"`
	Stats     session.Stats `json:"stats"`
	Remaining int           `json:"remaining"`
	Current   *domain.Card  `json:"currentCard,omitempty"`
}

func viewOf(sess *session.Session) sessionView {
	v := sessionView{
		ID:        sess.ID(),
		Mode:      sess.Mode(),
		Status:    sess.Status().String(),
		Stats:     sess.Stats(),
		Remaining: sess.Remaining(),
	}
	if card, ok := sess.CurrentCard(); ok {
		v.Current = &card
	}
	return v
}

// handleCounts reports the classification tally across the whole card set.
func (s *Server) handleCounts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cards, err := s.db.GetAllCards()
		if err != nil {
			s.internalError(w, "getting cards", err)
			return
		}
		counts, err := queue.Count(cards, s.db, time.Now())
		if err != nil {
			s.internalError(w, "counting cards", err)
			return
		}
		respondJSON(w, http.StatusOK, counts)
	}
}

// handleCards lists every card with its current classification.
func (s *Server) handleCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cards, err := s.db.GetAllCards()
		if err != nil {
			s.internalError(w, "getting cards", err)
			return
		}
		now := time.Now()
		views := make([]cardView, 0, len(cards))
		for _, card := range cards {
			p, err := s.db.Get(card.ID)
			if err != nil {
				s.internalError(w, "getting progress", err)
				return
			}
			views = append(views, cardView{
				ID:    card.ID,
				Title: card.Title,
				State: sm2.Classify(p, now),
			})
		}
		respondJSON(w, http.StatusOK, views)
	}
}

// handleSession starts (POST), inspects (GET) or ends (DELETE) the session.
func (s *Server) handleSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			s.handleStartSession(w, r)
		case http.MethodGet:
			s.handleGetSession(w, r)
		case http.MethodDelete:
			s.handleEndSession(w, r)
		default:
			errorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode    queue.Mode `json:"mode"`
		CardIDs []string   `json:"card_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cards, err := s.db.GetAllCards()
	if err != nil {
		s.internalError(w, "getting cards", err)
		return
	}

	var custom []domain.Card
	if req.Mode == queue.ModeCustom {
		byID := make(map[string]domain.Card, len(cards))
		for _, c := range cards {
			byID[c.ID] = c
		}
		for _, id := range req.CardIDs {
			if c, ok := byID[id]; ok {
				custom = append(custom, c)
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil && s.session.Status() == session.Active {
		errorJSON(w, http.StatusConflict, "a session is already active")
		return
	}

	sess, err := session.Start(s.db, session.Config{
		Mode:   req.Mode,
		Cards:  cards,
		Custom: custom,
		Rand:   s.rng,
	}, time.Now())
	switch {
	case errors.Is(err, queue.ErrEmptyQueue):
		errorJSON(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, queue.ErrInvalidMode):
		errorJSON(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.internalError(w, "starting session", err)
		return
	}

	s.session = sess
	respondJSON(w, http.StatusCreated, viewOf(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		errorJSON(w, http.StatusNotFound, "no session")
		return
	}
	respondJSON(w, http.StatusOK, viewOf(s.session))
}

// handleEndSession cancels an active session or clears out a finished one.
// Ratings already persisted are unaffected either way.
func (s *Server) handleEndSession(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		errorJSON(w, http.StatusNotFound, "no session")
		return
	}
	if s.session.Status() == session.Active {
		if err := s.session.Cancel(); err != nil {
			s.internalError(w, "cancelling session", err)
			return
		}
	}
	view := viewOf(s.session)
	s.session = nil
	respondJSON(w, http.StatusOK, view)
}

// handleRate applies a quality rating to the session's current card.
func (s *Server) handleRate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			errorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req struct {
			Quality int `json:"quality"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errorJSON(w, http.StatusBadRequest, "invalid request body")
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.session == nil {
			errorJSON(w, http.StatusNotFound, "no session")
			return
		}

		err := s.session.Rate(domain.Quality(req.Quality), time.Now())
		switch {
		case errors.Is(err, session.ErrInvalidQuality):
			errorJSON(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, session.ErrNotActive), errors.Is(err, session.ErrNoCurrentCard):
			errorJSON(w, http.StatusConflict, err.Error())
			return
		case err != nil:
			// Store failure: the rating did not advance the session, so the
			// client may retry it.
			s.internalError(w, "rating card", err)
			return
		}
		respondJSON(w, http.StatusOK, viewOf(s.session))
	}
}

// handleHistory returns review log entries, newest first.
func (s *Server) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := s.cfg.HistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				errorJSON(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = n
		}
		entries, err := s.db.History(limit)
		if err != nil {
			s.internalError(w, "getting history", err)
			return
		}
		if entries == nil {
			entries = []domain.ReviewHistoryEntry{}
		}
		respondJSON(w, http.StatusOK, entries)
	}
}

// handleSources handles both GET and POST for the sources collection.
func (s *Server) handleSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.respondSourceList(w)
		case http.MethodPost:
			s.handlePostSource(w, r)
		default:
			errorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

func (s *Server) respondSourceList(w http.ResponseWriter) {
	sources, err := s.db.GetAllSources()
	if err != nil {
		s.internalError(w, "getting sources", err)
		return
	}
	if sources == nil {
		sources = []storage.Source{}
	}
	respondJSON(w, http.StatusOK, sources)
}

func (s *Server) handlePostSource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		errorJSON(w, http.StatusBadRequest, "path cannot be empty")
		return
	}

	existing, err := s.db.FindSourceByPath(req.Path)
	if err != nil {
		s.internalError(w, "checking source", err)
		return
	}
	if existing != nil {
		errorJSON(w, http.StatusConflict, "source already registered")
		return
	}

	if _, err := s.db.InsertSource(req.Path, storage.SourceTypeFor(req.Path)); err != nil {
		s.internalError(w, "inserting source", err)
		return
	}
	s.respondSourceList(w)
}

// handleDeleteSource deletes a source and its cards.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			errorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		idStr := strings.TrimPrefix(r.URL.Path, "/api/sources/")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			errorJSON(w, http.StatusBadRequest, "invalid source ID")
			return
		}

		if err := s.db.DeleteSource(id); err != nil {
			s.internalError(w, "deleting source", err)
			return
		}
		s.respondSourceList(w)
	}
}

// handlePostSync triggers a sync of all sources in the foreground.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			errorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := vaultsync.Run(r.Context(), s.db, s.cfg.ReposDir); err != nil {
			s.internalError(w, "syncing sources", err)
			return
		}
		s.respondSourceList(w)
	}
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	errorJSON(w, http.StatusInternalServerError, "internal server error")
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
