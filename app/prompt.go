package app

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/ayoisaiah/codetime/internal/config"
)

func validateUsername(s string) error {
	if config.NormalizeUsername(s) == "" {
		return errors.New("username cannot be empty")
	}

	return nil
}

// promptUsername asks for the account label used when syncing.
func promptUsername() (string, error) {
	var label string

	err := huh.NewInput().
		Title("Username").
		Description("An email address keeps only the part before '@'").
		Value(&label).
		Validate(validateUsername).
		Run()

	return strings.TrimSpace(label), err
}

func confirm(title string) (bool, error) {
	var ok bool

	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()

	return ok, err
}
