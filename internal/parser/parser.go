// Package parser reads vocabulary entries from markdown files.
//
// An entry is a run of prefixed lines:
//
//	W: ocean
//	T: océano
//	P: /ˈoʊʃən/
//	N: also "mar" in poetry
//
// Lines without a prefix continue the previous field. A new W: line or a
// "---" line ends the current entry. Entries without a word are dropped.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/conorfennell/vocadeck/internal/domain"
)

// NoteKey is the CardFields.Extra key N: lines are stored under.
const NoteKey = "note"

// MaxLineBytes is the longest line Parse accepts.
const MaxLineBytes = 1 << 20

type field int

const (
	seeking field = iota
	readingWord
	readingTranslation
	readingPhonetic
	readingNote
)

var prefixes = []struct {
	prefix string
	field  field
}{
	{"W:", readingWord},
	{"T:", readingTranslation},
	{"P:", readingPhonetic},
	{"N:", readingNote},
}

// ParseFile reads a file from the given path and extracts all entries.
func ParseFile(path string) ([]domain.CardFields, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all entries.
func Parse(r io.Reader) ([]domain.CardFields, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineBytes)
	var entries []domain.CardFields
	var current domain.CardFields
	var block []string
	state := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(block, "\n"))
		switch state {
		case readingWord:
			current.Word = content
		case readingTranslation:
			current.Translation = content
		case readingPhonetic:
			current.Phonetic = content
		case readingNote:
			if current.Extra == nil {
				current.Extra = map[string]string{}
			}
			current.Extra[NoteKey] = content
		}
		block = nil
	}

	finishEntry := func() {
		flushBlock()
		if current.Word != "" {
			entries = append(entries, current)
		}
		current = domain.CardFields{}
		state = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "---" {
			finishEntry()
			continue
		}

		next, content, ok := matchPrefix(line)
		if !ok {
			if state != seeking {
				block = append(block, line)
			}
			continue
		}

		if next == readingWord && state != seeking {
			finishEntry() // A new word always starts a new entry
		} else {
			flushBlock()
		}
		state = next
		block = append(block, content)
	}

	finishEntry() // Finish the very last entry in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func matchPrefix(line string) (field, string, bool) {
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(line, p.prefix); ok {
			return p.field, strings.TrimPrefix(rest, " "), true
		}
	}
	return seeking, "", false
}
