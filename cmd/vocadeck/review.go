package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/conorfennell/vocadeck/internal/domain"
	"github.com/conorfennell/vocadeck/internal/prompt"
	"github.com/conorfennell/vocadeck/internal/review"
	"github.com/conorfennell/vocadeck/internal/sm2"
)

const stopLabel = "Stop"

var gradeLabels = []string{"Again", "Hard", "Good", "Easy", stopLabel}

var grades = map[string]sm2.Quality{
	"Again": sm2.Again,
	"Hard":  sm2.Hard,
	"Good":  sm2.Good,
	"Easy":  sm2.Easy,
}

var (
	wordStyle     = lipgloss.NewStyle().Bold(true)
	faintStyle    = lipgloss.NewStyle().Faint(true)
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func renderFront(card domain.Card, pos, total int) string {
	s := progressStyle.Render(fmt.Sprintf("[%d/%d]", pos+1, total)) + " " + wordStyle.Render(card.Word)
	if card.Phonetic != "" {
		s += " " + faintStyle.Render(card.Phonetic)
	}
	return s
}

func renderBack(card domain.Card) string {
	if card.Translation == "" {
		return faintStyle.Render("(no translation)")
	}
	return "  " + card.Translation
}

// runReview walks the session with p until every card is rated or the
// learner stops, then records the session. A cancelled prompt ends the
// session like Stop does.
func runReview(w io.Writer, p prompt.Prompter, sess *review.Session) (domain.SessionSummary, bool, error) {
	if sess.Len() == 0 {
		fmt.Fprintln(w, "Nothing due. Come back later.")
		return domain.SessionSummary{}, false, nil
	}

	err := rateAll(w, p, sess)
	if errors.Is(err, prompt.ErrAborted) {
		err = nil
	}
	summary, recorded := sess.Finish()
	return summary, recorded, err
}

func rateAll(w io.Writer, p prompt.Prompter, sess *review.Session) error {
	for !sess.Done() {
		card, _ := sess.Current()
		fmt.Fprintln(w, renderFront(card, sess.Position(), sess.Len()))

		reveal, err := p.Confirm("Show the translation?", true)
		if err != nil {
			return err
		}
		if reveal {
			fmt.Fprintln(w, renderBack(card))
		}

		choice, err := p.Select("How well did you remember it?", gradeLabels)
		if err != nil {
			return err
		}
		if choice == stopLabel {
			return nil
		}
		q, ok := grades[choice]
		if !ok {
			return fmt.Errorf("unknown grade %q", choice)
		}
		if _, err := sess.Rate(q); err != nil {
			return err
		}
	}
	return nil
}
