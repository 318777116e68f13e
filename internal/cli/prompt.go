package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
)

// ErrCancelled is returned by a Prompter when the user aborts the prompt.
var ErrCancelled = errors.New("cancelled")

// Prompter asks the operator for input.
type Prompter interface {
	Confirm(title, description string) (bool, error)
	Input(title string, validate func(string) error) (string, error)
	// Secret reads a value without echoing it.
	Secret(title string, validate func(string) error) (string, error)
}

// HuhPrompter prompts on the terminal with huh forms.
type HuhPrompter struct{}

func (HuhPrompter) Confirm(title, description string) (bool, error) {
	var ok bool
	err := run(huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok))
	return ok, err
}

func (HuhPrompter) Input(title string, validate func(string) error) (string, error) {
	var value string
	input := huh.NewInput().Title(title).Value(&value)
	if validate != nil {
		input = input.Validate(validate)
	}
	err := run(input)
	return strings.TrimSpace(value), err
}

func (HuhPrompter) Secret(title string, validate func(string) error) (string, error) {
	var value string
	input := huh.NewInput().Title(title).EchoMode(huh.EchoModePassword).Value(&value)
	if validate != nil {
		input = input.Validate(validate)
	}
	err := run(input)
	return value, err
}

func run(field huh.Field) error {
	err := huh.NewForm(huh.NewGroup(field)).WithTheme(huh.ThemeBase()).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrCancelled
	}
	return err
}

func minLength(n int) func(string) error {
	return func(s string) error {
		if len(s) < n {
			return fmt.Errorf("must be at least %d characters", n)
		}
		return nil
	}
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("required")
	}
	return nil
}
