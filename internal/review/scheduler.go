// Package review applies the SM-2 schedule to stored cards and drives
// review sessions over a deck's due cards.
package review

import (
	"log/slog"
	"time"

	"github.com/conorfennell/vocadeck/internal/deck"
	"github.com/conorfennell/vocadeck/internal/domain"
	"github.com/conorfennell/vocadeck/internal/sm2"
)

// Scheduler updates a card's scheduling fields after each review.
type Scheduler struct {
	store  *deck.Store
	logger *slog.Logger
}

// NewScheduler creates a scheduler writing through store.
func NewScheduler(store *deck.Store, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{store: store, logger: logger}
}

// ReviewCard records a review of the card with quality q and returns the
// updated card. It returns nil, nil when the deck or card does not exist, and
// sm2.ErrInvalidQuality, leaving the card untouched, when q is outside 0..5.
func (s *Scheduler) ReviewCard(deckID, cardID string, q sm2.Quality) (*domain.Card, error) {
	card, err := s.store.UpdateCard(deckID, cardID, func(c *domain.Card, now time.Time) error {
		return Apply(c, q, now)
	})
	if err != nil {
		return nil, err
	}
	if card == nil {
		s.logger.Debug("Review skipped, card not found", "deck_id", deckID, "card_id", cardID)
		return nil, nil
	}
	s.logger.Debug("Card reviewed",
		"deck_id", deckID,
		"card_id", cardID,
		"quality", int(q),
		"interval", card.Interval,
		"ease_factor", card.EaseFactor,
	)
	return card, nil
}

// Apply runs one SM-2 step on c at time now. Fields other than the
// scheduling ones and updatedAt are left as they are.
func Apply(c *domain.Card, q sm2.Quality, now time.Time) error {
	next, err := sm2.Next(sm2.State{
		EaseFactor:  c.EaseFactor,
		Interval:    c.Interval,
		Repetitions: c.Repetitions,
	}, q)
	if err != nil {
		return err
	}

	ms := now.UnixMilli()
	c.EaseFactor = next.EaseFactor
	c.Interval = next.Interval
	c.Repetitions = next.Repetitions
	c.NextReview = sm2.DueAt(ms, next.Interval)
	c.LastReviewed = &ms
	c.UpdatedAt = ms
	return nil
}
