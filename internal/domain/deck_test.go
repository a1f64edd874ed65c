package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestCollectionOrder(t *testing.T) {
	c := NewCollection()
	c.Put("zeta", Deck{Name: "Zeta"})
	c.Put("alpha", Deck{Name: "Alpha"})
	c.Put("zeta", Deck{Name: "Zeta renamed"})

	ids := c.IDs()
	if len(ids) != 2 || ids[0] != "zeta" || ids[1] != "alpha" {
		t.Fatalf("expected [zeta alpha], got %v", ids)
	}
	d, _ := c.Get("zeta")
	if d.Name != "Zeta renamed" {
		t.Errorf("expected replaced deck, got %q", d.Name)
	}
	if d.Cards == nil {
		t.Error("expected non-nil cards slice")
	}
}

func TestCollectionRoundTrip(t *testing.T) {
	last := int64(1700000000123)
	c := NewCollection()
	c.Put("spanish", Deck{Name: "Spanish", Cards: []Card{{
		ID:           "c1",
		Word:         "ocean",
		Translation:  "océano",
		Extra:        map[string]string{"source": "notes.md"},
		EaseFactor:   2.36,
		Interval:     1,
		Repetitions:  1,
		NextReview:   1700086400123,
		LastReviewed: &last,
		CreatedAt:    1699999999999,
	}}})
	c.Put("default", Deck{Name: "My Vocabulary"})

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	got, err := DecodeCollection(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if ids := got.IDs(); ids[0] != "spanish" || ids[1] != "default" {
		t.Fatalf("order not preserved: %v", ids)
	}
	d, _ := got.Get("spanish")
	card := d.Cards[0]
	if card.EaseFactor != 2.36 || card.NextReview != 1700086400123 || *card.LastReviewed != last {
		t.Errorf("scheduling fields not preserved: %+v", card)
	}
	if card.Extra["source"] != "notes.md" {
		t.Errorf("extra not preserved: %v", card.Extra)
	}
}

func TestDecodeCollectionRejectsGarbage(t *testing.T) {
	inputs := map[string]string{
		"null":     "null",
		"array":    "[]",
		"truncate": `{"default": {"name": "x", "cards": [`,
		"trailing": `{} {}`,
		"bad deck": `{"default": 42}`,
		"empty":    "",
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeCollection([]byte(in)); err == nil {
				t.Errorf("expected error for %q", in)
			}
		})
	}

	_, err := DecodeCollection([]byte("null"))
	if !errors.Is(err, ErrNotAnObject) {
		t.Errorf("expected ErrNotAnObject for null, got %v", err)
	}
}

func TestCardMerge(t *testing.T) {
	card := Card{
		ID:          "c1",
		Word:        "ocean",
		Translation: "mar",
		Phonetic:    "/ˈoʊʃən/",
		EaseFactor:  2.1,
		Repetitions: 3,
		Extra:       map[string]string{"a": "1"},
	}
	card.Merge(CardFields{Word: "ocean", Translation: "océano", Extra: map[string]string{"b": "2"}})

	if card.Translation != "océano" {
		t.Errorf("expected translation to be replaced, got %q", card.Translation)
	}
	if card.Phonetic != "/ˈoʊʃən/" {
		t.Errorf("expected empty phonetic to leave old value, got %q", card.Phonetic)
	}
	if card.EaseFactor != 2.1 || card.Repetitions != 3 {
		t.Errorf("merge touched scheduling fields: %+v", card)
	}
	if card.Extra["a"] != "1" || card.Extra["b"] != "2" {
		t.Errorf("expected extra merged key by key, got %v", card.Extra)
	}
}

func TestCollectionIndexKeysFirst(t *testing.T) {
	c := NewCollection()
	for _, id := range []string{"spanish", "2024", "german", "7", "007", "-1", "4294967295", "10"} {
		c.Put(id, Deck{Name: id})
	}

	want := []string{"7", "10", "2024", "spanish", "german", "007", "-1", "4294967295"}
	got := c.IDs()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	decoded, err := DecodeCollection(data)
	if err != nil {
		t.Fatalf("DecodeCollection failed: %v", err)
	}
	for i, id := range decoded.IDs() {
		if id != want[i] {
			t.Fatalf("expected encoded order %v, got %v", want, decoded.IDs())
		}
	}
}
