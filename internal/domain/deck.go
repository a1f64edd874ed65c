package domain

import (
	"bytes"
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
)

// Deck is a named, ordered list of cards.
type Deck struct {
	Name  string `json:"name"`
	Cards []Card `json:"cards"`
}

// FindWord returns the index of the card with the given word, or -1.
func (d *Deck) FindWord(word string) int {
	for i := range d.Cards {
		if d.Cards[i].Word == word {
			return i
		}
	}
	return -1
}

// FindID returns the index of the card with the given id, or -1.
func (d *Deck) FindID(id string) int {
	for i := range d.Cards {
		if d.Cards[i].ID == id {
			return i
		}
	}
	return -1
}

// Collection maps deck ids to decks and remembers insertion order. Listing
// and encoding follow IDs.
type Collection struct {
	order []string
	decks map[string]*Deck
}

// NewCollection returns an empty collection.
func NewCollection() Collection {
	return Collection{decks: make(map[string]*Deck)}
}

// Get returns the deck stored under id.
func (c Collection) Get(id string) (*Deck, bool) {
	d, ok := c.decks[id]
	return d, ok
}

// Put stores the deck under id. A new id is appended to the order; an
// existing one keeps its position.
func (c *Collection) Put(id string, d Deck) *Deck {
	if c.decks == nil {
		c.decks = make(map[string]*Deck)
	}
	if d.Cards == nil {
		d.Cards = []Card{}
	}
	if _, ok := c.decks[id]; !ok {
		c.order = append(c.order, id)
	}
	c.decks[id] = &d
	return &d
}

// IDs returns the deck ids in listing order: ids that are array indices
// ("0", "2024", no leading zeros) first in ascending numeric order, then the
// rest in insertion order. Stored decks written by the browser app list
// their keys the same way.
func (c Collection) IDs() []string {
	var indices, names []string
	for _, id := range c.order {
		if _, ok := arrayIndex(id); ok {
			indices = append(indices, id)
		} else {
			names = append(names, id)
		}
	}
	slices.SortFunc(indices, func(a, b string) int {
		x, _ := arrayIndex(a)
		y, _ := arrayIndex(b)
		return cmp.Compare(x, y)
	})
	return append(append(make([]string, 0, len(c.order)), indices...), names...)
}

// arrayIndex reports whether id is the canonical decimal form of an integer
// in [0, 2^32-2].
func arrayIndex(id string) (uint32, bool) {
	n, err := strconv.ParseUint(id, 10, 32)
	if err != nil || n == math.MaxUint32 || strconv.FormatUint(n, 10) != id {
		return 0, false
	}
	return uint32(n), true
}

// Len returns the number of decks.
func (c Collection) Len() int {
	return len(c.order)
}

// MarshalJSON encodes the collection as a JSON object with keys in order.
func (c Collection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range c.IDs() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.decks[id])
		if err != nil {
			return nil, fmt.Errorf("deck %s: %w", id, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the collection, keeping key order.
func (c *Collection) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeCollection(data)
	if err != nil {
		return err
	}
	*c = decoded
	return nil
}

// ErrNotAnObject is returned when a persisted collection is not a JSON object.
var ErrNotAnObject = errors.New("collection is not a JSON object")

// DecodeCollection parses a persisted collection. Anything other than a
// single JSON object of decks is an error, including null.
func DecodeCollection(data []byte) (Collection, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return Collection{}, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return Collection{}, ErrNotAnObject
	}

	c := NewCollection()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Collection{}, err
		}
		id, ok := tok.(string)
		if !ok {
			return Collection{}, fmt.Errorf("unexpected key %v", tok)
		}
		var d Deck
		if err := dec.Decode(&d); err != nil {
			return Collection{}, fmt.Errorf("deck %s: %w", id, err)
		}
		c.Put(id, d)
	}
	if _, err := dec.Token(); err != nil {
		return Collection{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Collection{}, errors.New("trailing data after collection")
	}
	return c, nil
}
