package domain

// Card represents a single vocabulary item under spaced repetition.
// Timestamps are epoch milliseconds.
type Card struct {
	ID             string            `json:"id"`
	Word           string            `json:"word"`
	Translation    string            `json:"translation,omitempty"`
	Phonetic       string            `json:"phonetic,omitempty"`
	TargetLanguage string            `json:"targetLanguage,omitempty"`
	NativeLanguage string            `json:"nativeLanguage,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`

	EaseFactor   float64 `json:"easeFactor"`
	Interval     int     `json:"interval"`
	Repetitions  int     `json:"repetitions"`
	NextReview   int64   `json:"nextReview"`
	LastReviewed *int64  `json:"lastReviewed,omitempty"`

	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt,omitempty"`
}

// CardFields holds the learner-supplied part of a card. Scheduling fields
// are owned by the store and never set through this type.
type CardFields struct {
	Word           string            `json:"word" validate:"required"`
	Translation    string            `json:"translation"`
	Phonetic       string            `json:"phonetic"`
	TargetLanguage string            `json:"targetLanguage"`
	NativeLanguage string            `json:"nativeLanguage"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// Merge copies the non-empty fields onto the card. Extra entries are merged
// key by key.
func (c *Card) Merge(f CardFields) {
	if f.Word != "" {
		c.Word = f.Word
	}
	if f.Translation != "" {
		c.Translation = f.Translation
	}
	if f.Phonetic != "" {
		c.Phonetic = f.Phonetic
	}
	if f.TargetLanguage != "" {
		c.TargetLanguage = f.TargetLanguage
	}
	if f.NativeLanguage != "" {
		c.NativeLanguage = f.NativeLanguage
	}
	if len(f.Extra) > 0 {
		if c.Extra == nil {
			c.Extra = make(map[string]string, len(f.Extra))
		}
		for k, v := range f.Extra {
			c.Extra[k] = v
		}
	}
}

// IsDue reports whether the card is due at now (epoch ms).
func (c Card) IsDue(now int64) bool {
	return c.NextReview <= now
}

// ReviewSession records one completed review session.
type ReviewSession struct {
	ID             string `json:"id"`
	DeckID         string `json:"deckId"`
	CardsReviewed  int    `json:"cardsReviewed"`
	CorrectCount   int    `json:"correctCount"`
	DurationMillis int64  `json:"duration"`
	Timestamp      int64  `json:"timestamp"`
}

// SessionSummary is what a review driver reports when a session ends.
type SessionSummary struct {
	DeckID         string `json:"deckId" validate:"required"`
	CardsReviewed  int    `json:"cardsReviewed" validate:"gte=0"`
	CorrectCount   int    `json:"correctCount" validate:"gte=0,ltefield=CardsReviewed"`
	DurationMillis int64  `json:"duration" validate:"gte=0"`
}

// DeckStats summarizes the scheduling state of a deck.
type DeckStats struct {
	Total    int `json:"total"`
	Due      int `json:"due"`
	Mastered int `json:"mastered"`
	Learning int `json:"learning"`
}

// DeckSummary is one entry of the deck listing.
type DeckSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CardCount int    `json:"cardCount"`
}
