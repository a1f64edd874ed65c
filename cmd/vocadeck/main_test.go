package main

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conorfennell/vocadeck/internal/config"
	"github.com/conorfennell/vocadeck/internal/domain"
	"github.com/conorfennell/vocadeck/internal/prompt"
	"github.com/conorfennell/vocadeck/internal/review"
	"github.com/conorfennell/vocadeck/internal/storage"
)

// scriptedPrompter answers Confirm with true and Select with the next
// scripted choice.
type scriptedPrompter struct {
	choices []string
	inputs  []string
	err     error
}

func (p *scriptedPrompter) Select(title string, options []string) (string, error) {
	if len(p.choices) == 0 {
		return "", p.err
	}
	c := p.choices[0]
	p.choices = p.choices[1:]
	return c, nil
}

func (p *scriptedPrompter) Input(title string, defaultValue string) (string, error) {
	if len(p.inputs) == 0 {
		return defaultValue, nil
	}
	in := p.inputs[0]
	p.inputs = p.inputs[1:]
	return in, nil
}

func (p *scriptedPrompter) Confirm(title string, defaultValue bool) (bool, error) {
	return true, nil
}

func newTestApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	var out bytes.Buffer
	cfg := config.Default()
	cfg.ReposDir = t.TempDir()
	return newApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), db, &out), &out
}

func TestRunReview(t *testing.T) {
	a, _ := newTestApp(t)
	a.store.AddCardsToDeck("default", []domain.CardFields{
		{Word: "uno", Translation: "one", Phonetic: "/ˈuno/"},
		{Word: "dos", Translation: "two"},
	})

	var out bytes.Buffer
	p := &scriptedPrompter{choices: []string{"Good", "Again"}}
	sess := review.Start(a.store, a.scheduler, "default", nil)
	summary, recorded, err := runReview(&out, p, sess)
	if err != nil {
		t.Fatalf("runReview failed: %v", err)
	}
	if !recorded || summary.CardsReviewed != 2 || summary.CorrectCount != 1 {
		t.Errorf("unexpected summary %+v recorded=%v", summary, recorded)
	}
	for _, want := range []string{"uno", "/ˈuno/", "one", "dos", "two"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected output to contain %q, got %q", want, out.String())
		}
	}

	cards := a.store.GetDeckCards("default")
	if cards[0].Repetitions != 1 || cards[1].Repetitions != 0 || cards[1].LastReviewed == nil {
		t.Errorf("unexpected card states %+v", cards)
	}
	if got := len(a.store.LoadReviewSessions()); got != 1 {
		t.Errorf("expected 1 recorded session, got %d", got)
	}
}

func TestRunReviewStopEarly(t *testing.T) {
	a, _ := newTestApp(t)
	a.store.AddCardsToDeck("default", []domain.CardFields{{Word: "a"}, {Word: "b"}, {Word: "c"}})

	p := &scriptedPrompter{choices: []string{"Easy", stopLabel}}
	summary, recorded, err := runReview(io.Discard, p, review.Start(a.store, a.scheduler, "default", nil))
	if err != nil || !recorded || summary.CardsReviewed != 1 {
		t.Errorf("unexpected result %+v %v %v", summary, recorded, err)
	}
}

func TestRunReviewAbortedBeforeRating(t *testing.T) {
	a, _ := newTestApp(t)
	a.store.AddCardToDeck("default", domain.CardFields{Word: "a"})

	p := &scriptedPrompter{err: prompt.ErrAborted}
	_, recorded, err := runReview(io.Discard, p, review.Start(a.store, a.scheduler, "default", nil))
	if err != nil {
		t.Errorf("expected abort to end quietly, got %v", err)
	}
	if recorded || len(a.store.LoadReviewSessions()) != 0 {
		t.Error("expected an empty session not to be recorded")
	}
}

func TestRunReviewNonInteractive(t *testing.T) {
	a, _ := newTestApp(t)
	a.store.AddCardToDeck("default", domain.CardFields{Word: "a"})

	_, _, err := runReview(io.Discard, &prompt.NoopPrompter{}, review.Start(a.store, a.scheduler, "default", nil))
	if !errors.Is(err, prompt.ErrNonInteractive) {
		t.Errorf("expected ErrNonInteractive, got %v", err)
	}
}

func TestRunReviewNothingDue(t *testing.T) {
	a, _ := newTestApp(t)
	var out bytes.Buffer
	_, recorded, err := runReview(&out, &scriptedPrompter{}, review.Start(a.store, a.scheduler, "default", nil))
	if err != nil || recorded || !strings.Contains(out.String(), "Nothing due") {
		t.Errorf("unexpected result %v %v %q", recorded, err, out.String())
	}
}

func TestAddCommand(t *testing.T) {
	a, out := newTestApp(t)
	if err := a.add([]string{"spanish", "gato", "cat"}, domain.CardFields{TargetLanguage: "es"}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	a.prompter = &scriptedPrompter{inputs: []string{"dog"}}
	if err := a.add([]string{"spanish", "perro"}, domain.CardFields{}); err != nil {
		t.Fatalf("add with prompt failed: %v", err)
	}
	if err := a.add([]string{"spanish"}, domain.CardFields{}); err == nil {
		t.Error("expected usage error")
	}

	cards := a.store.GetDeckCards("spanish")
	if len(cards) != 2 || cards[0].TargetLanguage != "es" || cards[1].Translation != "dog" {
		t.Errorf("unexpected cards %+v", cards)
	}
	if !strings.Contains(out.String(), `Saved "perro" to spanish (2 cards)`) {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestListCommands(t *testing.T) {
	a, out := newTestApp(t)
	a.store.AddCardToDeck("default", domain.CardFields{Word: "a"})
	a.store.SaveReviewSession(domain.SessionSummary{DeckID: "default", CardsReviewed: 3, CorrectCount: 2, DurationMillis: 61_000})

	if err := a.listDecks(); err != nil {
		t.Fatalf("listDecks failed: %v", err)
	}
	if err := a.listSessions(); err != nil {
		t.Fatalf("listSessions failed: %v", err)
	}
	for _, want := range []string{"My Vocabulary", "MASTERED", "1m1s"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected output to contain %q, got %q", want, out.String())
		}
	}
}

func TestAddSourceAndSyncCommands(t *testing.T) {
	a, out := newTestApp(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "w.md"), []byte("W: sol\nT: sun\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := a.addSource([]string{dir, "Spanish"}, "es", "en"); err != nil {
		t.Fatalf("addSource failed: %v", err)
	}
	if err := a.sync(); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if !strings.Contains(out.String(), "-> spanish: 1 entries, 0 removed") {
		t.Errorf("unexpected output %q", out.String())
	}
	if cards := a.store.GetDeckCards("spanish"); len(cards) != 1 || cards[0].NativeLanguage != "en" {
		t.Errorf("unexpected cards %+v", cards)
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	dbPath := filepath.Join(t.TempDir(), "v.db")
	if code := run([]string{"--db.path", dbPath, "frobnicate"}, &stdout, &stderr); code != 2 {
		t.Errorf("expected exit 2, got %d", code)
	}
	if !strings.Contains(stderr.String(), `unknown command "frobnicate"`) {
		t.Errorf("unexpected stderr %q", stderr.String())
	}
	if code := run(nil, &stdout, &stderr); code != 2 {
		t.Errorf("expected exit 2 without a command, got %d", code)
	}
}

func TestRunDecks(t *testing.T) {
	var stdout, stderr bytes.Buffer
	dbPath := filepath.Join(t.TempDir(), "v.db")
	if code := run([]string{"--db.path", dbPath, "add", "french", "chat", "cat"}, &stdout, &stderr); code != 0 {
		t.Fatalf("add exited %d: %s", code, stderr.String())
	}
	stdout.Reset()
	if code := run([]string{"decks", "--db.path", dbPath}, &stdout, &stderr); code != 0 {
		t.Fatalf("decks exited %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "french") {
		t.Errorf("expected the french deck in %q", stdout.String())
	}
}
