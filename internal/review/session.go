package review

import (
	"errors"
	"time"

	"github.com/conorfennell/vocadeck/internal/deck"
	"github.com/conorfennell/vocadeck/internal/domain"
	"github.com/conorfennell/vocadeck/internal/sm2"
)

// ErrSessionDone is returned by Rate once every due card has been rated.
var ErrSessionDone = errors.New("review session has no cards left")

// Session walks a snapshot of a deck's due cards. It is not safe for
// concurrent use.
type Session struct {
	store     *deck.Store
	scheduler *Scheduler
	now       func() time.Time

	deckID   string
	cards    []domain.Card
	index    int
	reviewed int
	correct  int
	started  time.Time
	finished bool
}

// Start snapshots the due cards of deckID. now may be nil.
func Start(store *deck.Store, scheduler *Scheduler, deckID string, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{
		store:     store,
		scheduler: scheduler,
		now:       now,
		deckID:    deckID,
		cards:     store.GetDueCards(deckID),
		started:   now(),
	}
}

// Len is the number of cards in the session.
func (s *Session) Len() int { return len(s.cards) }

// Position is the zero-based index of the current card.
func (s *Session) Position() int { return s.index }

// Remaining is the number of cards not yet rated.
func (s *Session) Remaining() int { return len(s.cards) - s.index }

// Done reports whether every card has been rated.
func (s *Session) Done() bool { return s.index >= len(s.cards) }

// Current returns the card to show next.
func (s *Session) Current() (domain.Card, bool) {
	if s.Done() {
		return domain.Card{}, false
	}
	return s.cards[s.index], true
}

// Rate reviews the current card with q and moves on. A card deleted since
// the session started is skipped but still counted as reviewed.
func (s *Session) Rate(q sm2.Quality) (*domain.Card, error) {
	card, ok := s.Current()
	if !ok {
		return nil, ErrSessionDone
	}
	updated, err := s.scheduler.ReviewCard(s.deckID, card.ID, q)
	if err != nil {
		return nil, err
	}
	s.reviewed++
	if q.Passed() {
		s.correct++
	}
	s.index++
	return updated, nil
}

// Reviewed and Correct are the running tallies.
func (s *Session) Reviewed() int { return s.reviewed }
func (s *Session) Correct() int  { return s.correct }

// Finish records the session in the store's history. A session that
// reviewed nothing, or was already finished, is not recorded; ok reports
// whether a record was saved.
func (s *Session) Finish() (summary domain.SessionSummary, ok bool) {
	summary = domain.SessionSummary{
		DeckID:         s.deckID,
		CardsReviewed:  s.reviewed,
		CorrectCount:   s.correct,
		DurationMillis: s.now().Sub(s.started).Milliseconds(),
	}
	if s.finished || s.reviewed == 0 {
		return summary, false
	}
	s.finished = true
	s.store.SaveReviewSession(summary)
	return summary, true
}
