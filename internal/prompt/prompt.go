// Package prompt asks the learner questions on the terminal.
package prompt

import "errors"

// ErrNonInteractive is returned when prompting in non-interactive mode.
var ErrNonInteractive = errors.New("cannot prompt in non-interactive mode")

// ErrAborted is returned when the user cancels a prompt with ctrl+c or esc.
var ErrAborted = errors.New("prompt aborted")

// Prompter asks the learner during add and review. Implementations return
// ErrAborted when the learner cancels and ErrNonInteractive when there is
// no terminal to ask on.
type Prompter interface {
	// Select returns one of options, e.g. a recall grade.
	Select(title string, options []string) (string, error)

	// Input returns a line of text, e.g. a missing translation.
	Input(title string, defaultValue string) (string, error)

	// Confirm returns a yes/no answer, e.g. whether to reveal a card.
	Confirm(title string, defaultValue bool) (bool, error)
}

// NoopPrompter is used when stdin is not a terminal. Every prompt fails
// with ErrNonInteractive.
type NoopPrompter struct{}

// Select fails with ErrNonInteractive.
func (p *NoopPrompter) Select(title string, options []string) (string, error) {
	return "", ErrNonInteractive
}

// Input fails with ErrNonInteractive.
func (p *NoopPrompter) Input(title string, defaultValue string) (string, error) {
	return "", ErrNonInteractive
}

// Confirm fails with ErrNonInteractive.
func (p *NoopPrompter) Confirm(title string, defaultValue bool) (bool, error) {
	return false, ErrNonInteractive
}
