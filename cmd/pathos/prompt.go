package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

// errAborted is returned when the user leaves a prompt with Ctrl+C.
var errAborted = errors.New("aborted")

// shouldPrompt reports whether the command may show interactive prompts.
// Prompts are disabled in CI and when stdin is not a terminal.
func shouldPrompt(cmd *cobra.Command) bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "BUILDKITE"} {
		if os.Getenv(v) != "" {
			return false
		}
	}

	f, ok := cmd.InOrStdin().(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func requireNonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("a value is required")
	}
	return nil
}

func runForm(fields ...huh.Field) error {
	return runHuhForm(huh.NewForm(huh.NewGroup(fields...)))
}

func runHuhForm(form *huh.Form) error {
	err := form.Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return errAborted
	}
	if err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

// promptCredentials fills in whichever of email and password are empty.
func promptCredentials(name *string, email, password *string) error {
	var fields []huh.Field
	if name != nil && *name == "" {
		fields = append(fields, huh.NewInput().
			Title("Name").
			Value(name).
			Validate(requireNonEmpty))
	}
	if *email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Placeholder("you@example.com").
			Value(email).
			Validate(requireNonEmpty))
	}
	if *password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(password).
			Validate(requireNonEmpty))
	}
	if len(fields) == 0 {
		return nil
	}
	return runForm(fields...)
}
