package deck

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/conorfennell/vocadeck/internal/domain"
)

func (s *Store) readSessions() ([]domain.ReviewSession, error) {
	data, err := s.blobs.Get(SessionsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read review sessions: %w", err)
	}
	if data == nil {
		return nil, ErrNoData
	}
	var sessions []domain.ReviewSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return sessions, nil
}

func (s *Store) sessionsOrEmpty() []domain.ReviewSession {
	sessions, err := s.readSessions()
	if err != nil {
		if !errors.Is(err, ErrNoData) {
			s.opts.Logger.Warn("Failed to load review sessions", "error", err)
		}
		return []domain.ReviewSession{}
	}
	if sessions == nil {
		return []domain.ReviewSession{}
	}
	return sessions
}

// LoadReviewSessions returns the session history, oldest first.
func (s *Store) LoadReviewSessions() []domain.ReviewSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionsOrEmpty()
}

// SaveReviewSession appends a session record and keeps only the newest
// HistoryLimit entries. The updated history is returned even if it could not
// be persisted.
func (s *Store) SaveReviewSession(summary domain.SessionSummary) []domain.ReviewSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := append(s.sessionsOrEmpty(), domain.ReviewSession{
		ID:             s.opts.NewID(),
		DeckID:         summary.DeckID,
		CardsReviewed:  summary.CardsReviewed,
		CorrectCount:   summary.CorrectCount,
		DurationMillis: summary.DurationMillis,
		Timestamp:      s.now(),
	})
	if over := len(sessions) - s.opts.HistoryLimit; over > 0 {
		sessions = append([]domain.ReviewSession(nil), sessions[over:]...)
	}

	data, err := json.Marshal(sessions)
	if err == nil {
		err = s.blobs.Put(SessionsKey, data)
	}
	if err != nil {
		s.opts.Logger.Error("Review session not persisted", "deck_id", summary.DeckID, "error", err)
	}
	return sessions
}
