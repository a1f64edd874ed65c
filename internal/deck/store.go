// Package deck is the card store: decks of vocabulary cards and the review
// session history, persisted as two JSON documents.
//
// Every operation loads the persisted state, applies its change and writes
// the whole document back. Storage trouble never reaches the caller: reads
// fall back to an empty default and failed writes are logged.
package deck

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/vocadeck/internal/deckid"
	"github.com/conorfennell/vocadeck/internal/domain"
	"github.com/conorfennell/vocadeck/internal/sm2"
	"github.com/conorfennell/vocadeck/internal/storage"
)

// Keys of the persisted documents.
const (
	DecksKey    = "flashcard_decks"
	SessionsKey = "review_sessions"
)

const (
	DefaultDeckName            = "My Vocabulary"
	DefaultHistoryLimit        = 100
	DefaultMasteredRepetitions = 5
)

var (
	// ErrNoData means nothing has been persisted under the key yet.
	ErrNoData = errors.New("nothing persisted")
	// ErrCorrupt means the persisted document could not be decoded.
	ErrCorrupt = errors.New("persisted data is corrupt")
)

// Options configures a Store. Zero fields take defaults.
type Options struct {
	// Now is the clock used for due checks and timestamps.
	Now func() time.Time
	// NewID generates card and session ids.
	NewID  func() string
	Logger *slog.Logger

	DefaultDeckName     string
	HistoryLimit        int
	MasteredRepetitions int
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.Must(uuid.NewV7()).String() }
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.DefaultDeckName == "" {
		o.DefaultDeckName = DefaultDeckName
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = DefaultHistoryLimit
	}
	if o.MasteredRepetitions <= 0 {
		o.MasteredRepetitions = DefaultMasteredRepetitions
	}
	return o
}

// Store is the card store. All methods are safe for concurrent use; they
// are serialized so each read-modify-write completes before the next starts.
type Store struct {
	mu    sync.Mutex
	blobs storage.Blobs
	opts  Options
}

// New creates a store over blobs.
func New(blobs storage.Blobs, opts Options) *Store {
	return &Store{blobs: blobs, opts: opts.withDefaults()}
}

func (s *Store) now() int64 {
	return s.opts.Now().UnixMilli()
}

func (s *Store) defaultCollection() domain.Collection {
	c := domain.NewCollection()
	c.Put(deckid.Default, domain.Deck{Name: s.opts.DefaultDeckName})
	return c
}

// readDecks returns the persisted collection or ErrNoData, ErrCorrupt or a
// storage error.
func (s *Store) readDecks() (domain.Collection, error) {
	data, err := s.blobs.Get(DecksKey)
	if err != nil {
		return domain.Collection{}, fmt.Errorf("failed to read decks: %w", err)
	}
	if data == nil {
		return domain.Collection{}, ErrNoData
	}
	c, err := domain.DecodeCollection(data)
	if err != nil {
		return domain.Collection{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return c, nil
}

func (s *Store) decksOrDefault() domain.Collection {
	c, err := s.readDecks()
	if err != nil {
		if !errors.Is(err, ErrNoData) {
			s.opts.Logger.Warn("Failed to load decks, using defaults", "error", err)
		}
		return s.defaultCollection()
	}
	return c
}

func (s *Store) writeDecks(c domain.Collection) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode decks: %w", err)
	}
	if err := s.blobs.Put(DecksKey, data); err != nil {
		return fmt.Errorf("failed to save decks: %w", err)
	}
	return nil
}

func (s *Store) persistDecks(c domain.Collection) {
	if err := s.writeDecks(c); err != nil {
		s.opts.Logger.Error("Decks not persisted", "error", err)
	}
}

// LoadDecks returns the persisted decks, or a collection holding only the
// empty default deck when nothing usable is stored.
func (s *Store) LoadDecks() domain.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decksOrDefault()
}

// SaveDecks persists the whole collection. Failures are logged.
func (s *Store) SaveDecks(c domain.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistDecks(c)
}

// CreateDeck adds an empty deck named name unless its id already exists.
// It returns the id either way.
func (s *Store) CreateDeck(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := deckid.Normalize(name)
	c := s.decksOrDefault()
	if _, ok := c.Get(id); !ok {
		c.Put(id, domain.Deck{Name: name})
		s.persistDecks(c)
	}
	return id
}

// AddCardToDeck adds a card, or updates the card with the same word. A
// missing deck is created with deckID as its name.
func (s *Store) AddCardToDeck(deckID string, fields domain.CardFields) domain.Collection {
	return s.AddCardsToDeck(deckID, []domain.CardFields{fields})
}

// AddCardsToDeck is AddCardToDeck for several cards with a single write.
func (s *Store) AddCardsToDeck(deckID string, fields []domain.CardFields) domain.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.decksOrDefault()
	d, ok := c.Get(deckID)
	if !ok {
		d = c.Put(deckID, domain.Deck{Name: deckID})
	}
	now := s.now()
	for _, f := range fields {
		s.upsertCard(d, f, now)
	}
	s.persistDecks(c)
	return c
}

func (s *Store) upsertCard(d *domain.Deck, f domain.CardFields, now int64) {
	if i := d.FindWord(f.Word); i >= 0 {
		d.Cards[i].Merge(f)
		d.Cards[i].UpdatedAt = now
		return
	}

	card := domain.Card{
		ID:          s.opts.NewID(),
		EaseFactor:  sm2.DefaultEaseFactor,
		Interval:    0,
		Repetitions: 0,
		NextReview:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	card.Merge(f)
	card.Word = f.Word
	d.Cards = append(d.Cards, card)
}

// RemoveCardFromDeck deletes the card with cardID. Unknown decks and cards
// are ignored.
func (s *Store) RemoveCardFromDeck(deckID, cardID string) domain.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.decksOrDefault()
	d, ok := c.Get(deckID)
	if !ok {
		return c
	}
	d.Cards = removeCards(d.Cards, func(card domain.Card) bool { return card.ID == cardID })
	s.persistDecks(c)
	return c
}

// PruneDeck deletes every card of the deck matching remove and reports how
// many were deleted. Nothing is written when nothing matches.
func (s *Store) PruneDeck(deckID string, remove func(domain.Card) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.decksOrDefault()
	d, ok := c.Get(deckID)
	if !ok {
		return 0
	}
	before := len(d.Cards)
	d.Cards = removeCards(d.Cards, remove)
	removed := before - len(d.Cards)
	if removed > 0 {
		s.persistDecks(c)
	}
	return removed
}

func removeCards(cards []domain.Card, remove func(domain.Card) bool) []domain.Card {
	kept := make([]domain.Card, 0, len(cards))
	for _, card := range cards {
		if !remove(card) {
			kept = append(kept, card)
		}
	}
	return kept
}

// GetDeckCards returns the cards of a deck, empty if the deck is absent.
func (s *Store) GetDeckCards(deckID string) []domain.Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.decksOrDefault().Get(deckID)
	if !ok {
		return []domain.Card{}
	}
	return append([]domain.Card{}, d.Cards...)
}

// GetDueCards returns the cards of a deck due now, in deck order.
func (s *Store) GetDueCards(deckID string) []domain.Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.decksOrDefault().Get(deckID)
	if !ok {
		return []domain.Card{}
	}
	return dueCards(d.Cards, s.now())
}

func dueCards(cards []domain.Card, now int64) []domain.Card {
	due := []domain.Card{}
	for _, card := range cards {
		if card.IsDue(now) {
			due = append(due, card)
		}
	}
	return due
}

// GetDeckStats summarizes a deck. The second result is false when the deck
// does not exist.
func (s *Store) GetDeckStats(deckID string) (domain.DeckStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.decksOrDefault().Get(deckID)
	if !ok {
		return domain.DeckStats{}, false
	}

	stats := domain.DeckStats{
		Total: len(d.Cards),
		Due:   len(dueCards(d.Cards, s.now())),
	}
	for _, card := range d.Cards {
		if card.Repetitions >= s.opts.MasteredRepetitions {
			stats.Mastered++
		}
	}
	stats.Learning = stats.Total - stats.Mastered
	return stats, true
}

// GetDeckNames lists every deck in store order.
func (s *Store) GetDeckNames() []domain.DeckSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.decksOrDefault()
	names := make([]domain.DeckSummary, 0, c.Len())
	for _, id := range c.IDs() {
		d, _ := c.Get(id)
		names = append(names, domain.DeckSummary{ID: id, Name: d.Name, CardCount: len(d.Cards)})
	}
	return names
}

// UpdateCard applies fn to the stored card and persists the result. It
// returns nil, nil when the deck or card does not exist, and fn's error
// without writing anything when fn fails.
func (s *Store) UpdateCard(deckID, cardID string, fn func(card *domain.Card, now time.Time) error) (*domain.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.decksOrDefault()
	d, ok := c.Get(deckID)
	if !ok {
		return nil, nil
	}
	i := d.FindID(cardID)
	if i < 0 {
		return nil, nil
	}

	card := d.Cards[i]
	if err := fn(&card, s.opts.Now()); err != nil {
		return nil, err
	}
	card.ID = cardID
	d.Cards[i] = card
	s.persistDecks(c)
	return &card, nil
}
