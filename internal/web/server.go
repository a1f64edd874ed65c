// Package web serves the deck store, scheduler and source management as a
// JSON API.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/vocadeck/internal/deck"
	"github.com/conorfennell/vocadeck/internal/domain"
	"github.com/conorfennell/vocadeck/internal/importer"
	"github.com/conorfennell/vocadeck/internal/review"
	"github.com/conorfennell/vocadeck/internal/sm2"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Server holds the dependencies for the HTTP server.
type Server struct {
	store     *deck.Store
	scheduler *review.Scheduler
	importer  *importer.Importer
	logger    *slog.Logger
	validate  *validator.Validate
	router    *http.ServeMux
}

// NewServer creates and configures a new server. imp may be nil, in which
// case the source routes answer 503.
func NewServer(store *deck.Store, scheduler *review.Scheduler, imp *importer.Importer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:     store,
		scheduler: scheduler,
		importer:  imp,
		logger:    logger,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		router:    http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /decks", s.handleGetDecks())
	s.router.HandleFunc("POST /decks", s.handlePostDeck())
	s.router.HandleFunc("GET /decks/{id}/cards", s.handleGetCards())
	s.router.HandleFunc("POST /decks/{id}/cards", s.handlePostCard())
	s.router.HandleFunc("DELETE /decks/{id}/cards/{cardID}", s.handleDeleteCard())
	s.router.HandleFunc("GET /decks/{id}/due", s.handleGetDue())
	s.router.HandleFunc("GET /decks/{id}/stats", s.handleGetStats())
	s.router.HandleFunc("POST /decks/{id}/cards/{cardID}/review", s.handlePostReview())

	s.router.HandleFunc("GET /sessions", s.handleGetSessions())
	s.router.HandleFunc("POST /sessions", s.handlePostSession())

	s.router.HandleFunc("GET /sources", s.handleGetSources())
	s.router.HandleFunc("POST /sources", s.handlePostSource())
	s.router.HandleFunc("DELETE /sources/{id}", s.handleDeleteSource())
	s.router.HandleFunc("POST /sync", s.handlePostSync())
}

type createDeckRequest struct {
	Name string `json:"name" validate:"required"`
}

type reviewRequest struct {
	Quality *int `json:"quality" validate:"required"`
}

type addSourceRequest struct {
	Path           string `json:"path" validate:"required"`
	Deck           string `json:"deck" validate:"required"`
	TargetLanguage string `json:"targetLanguage"`
	NativeLanguage string `json:"nativeLanguage"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// decode reads a JSON body into v and validates it. On failure it has
// already written a 400 response.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) handleGetDecks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.store.GetDeckNames())
	}
}

func (s *Server) handlePostDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createDeckRequest
		if !s.decode(w, r, &req) {
			return
		}
		id := s.store.CreateDeck(req.Name)
		s.writeJSON(w, http.StatusCreated, domain.DeckSummary{
			ID:        id,
			Name:      req.Name,
			CardCount: len(s.store.GetDeckCards(id)),
		})
	}
}

func (s *Server) handleGetCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.store.GetDeckCards(r.PathValue("id")))
	}
}

// handlePostCard adds a card, or updates the deck's card with the same word,
// and returns the stored card.
func (s *Server) handlePostCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var fields domain.CardFields
		if !s.decode(w, r, &fields) {
			return
		}
		deckID := r.PathValue("id")
		c := s.store.AddCardToDeck(deckID, fields)
		d, ok := c.Get(deckID)
		if !ok {
			s.writeError(w, http.StatusInternalServerError, "deck vanished after add")
			return
		}
		i := d.FindWord(fields.Word)
		if i < 0 {
			s.writeError(w, http.StatusInternalServerError, "card vanished after add")
			return
		}
		s.writeJSON(w, http.StatusOK, d.Cards[i])
	}
}

func (s *Server) handleDeleteCard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.store.RemoveCardFromDeck(r.PathValue("id"), r.PathValue("cardID"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleGetDue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.store.GetDueCards(r.PathValue("id")))
	}
}

func (s *Server) handleGetStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, ok := s.store.GetDeckStats(r.PathValue("id"))
		if !ok {
			s.writeError(w, http.StatusNotFound, "deck not found")
			return
		}
		s.writeJSON(w, http.StatusOK, stats)
	}
}

// handlePostReview rates a card and returns its new schedule.
func (s *Server) handlePostReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reviewRequest
		if !s.decode(w, r, &req) {
			return
		}
		deckID, cardID := r.PathValue("id"), r.PathValue("cardID")
		card, err := s.scheduler.ReviewCard(deckID, cardID, sm2.Quality(*req.Quality))
		if errors.Is(err, sm2.ErrInvalidQuality) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			s.logger.Error("Error reviewing card", "deck_id", deckID, "card_id", cardID, "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to review card")
			return
		}
		if card == nil {
			s.writeError(w, http.StatusNotFound, "card not found")
			return
		}
		s.writeJSON(w, http.StatusOK, card)
	}
}

func (s *Server) handleGetSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.store.LoadReviewSessions())
	}
}

// handlePostSession records a finished session and returns the stored
// record.
func (s *Server) handlePostSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var summary domain.SessionSummary
		if !s.decode(w, r, &summary) {
			return
		}
		history := s.store.SaveReviewSession(summary)
		if len(history) == 0 {
			s.writeError(w, http.StatusInternalServerError, "session not recorded")
			return
		}
		s.writeJSON(w, http.StatusCreated, history[len(history)-1])
	}
}

func (s *Server) requireImporter(w http.ResponseWriter) bool {
	if s.importer == nil {
		s.writeError(w, http.StatusServiceUnavailable, "source management is disabled")
		return false
	}
	return true
}

func (s *Server) handleGetSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireImporter(w) {
			return
		}
		sources, err := s.importer.Sources()
		if err != nil {
			s.logger.Error("Error getting sources", "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to list sources")
			return
		}
		s.writeJSON(w, http.StatusOK, sources)
	}
}

func (s *Server) handlePostSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireImporter(w) {
			return
		}
		var req addSourceRequest
		if !s.decode(w, r, &req) {
			return
		}
		src, err := s.importer.AddSource(req.Path, req.Deck, req.TargetLanguage, req.NativeLanguage)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusCreated, src)
	}
}

func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireImporter(w) {
			return
		}
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid source ID")
			return
		}
		if err := s.importer.RemoveSource(id); err != nil {
			s.logger.Error("Error deleting source", "source_id", id, "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to delete source")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type syncResult struct {
	importer.Result
	Errors []string `json:"errors,omitempty"`
}

// handlePostSync runs a sync in the foreground and reports each source.
func (s *Server) handlePostSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireImporter(w) {
			return
		}
		results, err := s.importer.RunSync()
		if err != nil {
			s.logger.Error("Error running sync", "error", err)
			s.writeError(w, http.StatusInternalServerError, "sync failed")
			return
		}
		out := make([]syncResult, 0, len(results))
		for _, res := range results {
			sr := syncResult{Result: res}
			for _, e := range res.Errors {
				sr.Errors = append(sr.Errors, e.Error())
			}
			out = append(out, sr)
		}
		s.writeJSON(w, http.StatusOK, out)
	}
}
