package prompt

import (
	"errors"

	"github.com/charmbracelet/huh"
)

// HuhPrompter asks on the terminal with charmbracelet/huh forms. Each call
// runs one single-field form.
type HuhPrompter struct{}

// NewHuhPrompter creates a new huh-based prompter.
func NewHuhPrompter() *HuhPrompter {
	return &HuhPrompter{}
}

// Select shows options as a list and returns the chosen one.
func (p *HuhPrompter) Select(title string, options []string) (string, error) {
	var result string

	err := huh.NewSelect[string]().
		Title(title).
		Options(huh.NewOptions(options...)...).
		Value(&result).
		Run()

	return result, mapErr(err)
}

// Input reads one line of text, prefilled with defaultValue.
func (p *HuhPrompter) Input(title string, defaultValue string) (string, error) {
	result := defaultValue

	err := huh.NewInput().
		Title(title).
		Value(&result).
		Run()

	return result, mapErr(err)
}

// Confirm asks a yes/no question, starting on defaultValue.
func (p *HuhPrompter) Confirm(title string, defaultValue bool) (bool, error) {
	result := defaultValue

	err := huh.NewConfirm().
		Title(title).
		Value(&result).
		Run()

	return result, mapErr(err)
}

// mapErr converts huh's abort error into ErrAborted.
func mapErr(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return err
}
