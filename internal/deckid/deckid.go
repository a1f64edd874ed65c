// Package deckid derives deck identifiers from display names.
package deckid

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Default is the id of the deck the "add to deck" flow writes to.
const Default = "default"

// Normalize turns a deck name into its id: the name is NFC-normalized and
// lower-cased, and every run of whitespace becomes a single underscore.
// Leading and trailing whitespace is not trimmed, so " a" and "a" differ.
func Normalize(name string) string {
	lowered := strings.ToLower(norm.NFC.String(name))

	var b strings.Builder
	b.Grow(len(lowered))
	inSpace := false
	for _, r := range lowered {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('_')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
