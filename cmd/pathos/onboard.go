package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/pathos-os/pathos/pkg/pathos"
)

var (
	onboardRole     string
	onboardSalary   string
	onboardTimeline string
	onboardHours    string
	onboardSkills   string
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Answer a few questions and generate your roadmap",
	Long: `Walk through the onboarding questions and generate a roadmap.

In a terminal each question is asked in turn; press Esc to return to the
previous one and Ctrl+C to quit. Otherwise every answer must be given as a
flag.`,
	Args: cobra.NoArgs,
	RunE: runOnboard,
}

func init() {
	onboardCmd.Flags().StringVar(&onboardRole, "role", "", "Target role")
	onboardCmd.Flags().StringVar(&onboardSalary, "salary", "", "Compensation target")
	onboardCmd.Flags().StringVar(&onboardTimeline, "timeline", "", "Time horizon, e.g. \"6 months\"")
	onboardCmd.Flags().StringVar(&onboardHours, "hours", "", "Hours per week available")
	onboardCmd.Flags().StringVar(&onboardSkills, "skills", "", "Current skills, comma separated")
}

// onboardFlags maps wizard keys to their flag values and names.
func onboardFlags() []struct{ key, flag, value string } {
	return []struct{ key, flag, value string }{
		{pathos.KeyTargetRole, "role", onboardRole},
		{pathos.KeySalaryRange, "salary", onboardSalary},
		{pathos.KeyTimeline, "timeline", onboardTimeline},
		{pathos.KeyHoursPerWeek, "hours", onboardHours},
		{pathos.KeyCurrentSkills, "skills", onboardSkills},
	}
}

func runOnboard(cmd *cobra.Command, args []string) error {
	return withClient(func(c *pathos.Client) error {
		wiz := c.NewWizard()

		var (
			redirect pathos.Redirect
			err      error
		)
		if shouldPrompt(cmd) && !anyOnboardFlag(cmd) {
			redirect, err = askInteractive(cmd.Context(), cmd, wiz)
		} else {
			redirect, err = answerFromFlags(cmd.Context(), cmd, wiz)
		}
		if errors.Is(err, errAborted) {
			wiz.Cancel()
			fmt.Fprintln(cmd.ErrOrStderr(), "Onboarding cancelled")
			return nil
		}
		return handleSubmit(cmd, c, redirect, err)
	})
}

func anyOnboardFlag(cmd *cobra.Command) bool {
	for _, f := range onboardFlags() {
		if cmd.Flags().Changed(f.flag) {
			return true
		}
	}
	return false
}

// answerFromFlags fills the wizard from flags and submits.
func answerFromFlags(ctx context.Context, cmd *cobra.Command, wiz *pathos.Wizard) (pathos.Redirect, error) {
	values := make(map[string]string)
	for _, f := range onboardFlags() {
		values[f.key] = f.value
	}
	return submitAnswers(ctx, cmd, wiz, values)
}

// submitAnswers records every answer and advances through each question, so
// missing answers hit the same guard as interactive input.
func submitAnswers(ctx context.Context, cmd *cobra.Command, wiz *pathos.Wizard, values map[string]string) (pathos.Redirect, error) {
	for _, q := range pathos.Questions {
		if err := wiz.SetAnswer(q.Key, values[q.Key]); err != nil {
			return pathos.RedirectNone, err
		}
	}

	for range pathos.Questions {
		q := wiz.Current()
		last := wiz.IsLast()
		if last {
			fmt.Fprintln(cmd.ErrOrStderr(), "Generating roadmap...")
		}
		redirect, err := wiz.Advance(ctx)
		if errors.Is(err, pathos.ErrAnswerRequired) {
			return pathos.RedirectNone, fmt.Errorf("%s is required (--%s)", q.Label, flagFor(q.Key))
		}
		if last || err != nil {
			return redirect, err
		}
	}
	return pathos.RedirectNone, nil
}

func flagFor(key string) string {
	for _, f := range onboardFlags() {
		if f.key == key {
			return f.flag
		}
	}
	return key
}

// onboardKeyMap binds Esc to the previous question. Only Ctrl+C quits.
func onboardKeyMap() *huh.KeyMap {
	km := huh.NewDefaultKeyMap()
	km.Quit = key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit"))
	km.Input.Prev = key.NewBinding(key.WithKeys("esc", "shift+tab"), key.WithHelp("esc", "back"))
	return km
}

// questionGroups builds one page per question, bound to values.
func questionGroups(values map[string]*string) []*huh.Group {
	groups := make([]*huh.Group, 0, len(pathos.Questions))
	for i, q := range pathos.Questions {
		groups = append(groups, huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("[%d/%d] %s", i+1, len(pathos.Questions), q.Label)).
				Description(q.Help).
				Placeholder(q.Placeholder).
				Value(values[q.Key]).
				Validate(requireNonEmpty),
		))
	}
	return groups
}

// askInteractive asks one question per page, then submits the answers.
func askInteractive(ctx context.Context, cmd *cobra.Command, wiz *pathos.Wizard) (pathos.Redirect, error) {
	values := make(map[string]*string, len(pathos.Questions))
	for _, q := range pathos.Questions {
		v := wiz.Answer(q.Key)
		values[q.Key] = &v
	}

	form := huh.NewForm(questionGroups(values)...).WithKeyMap(onboardKeyMap())
	if err := runHuhForm(form); err != nil {
		return pathos.RedirectNone, err
	}

	answers := make(map[string]string, len(values))
	for k, v := range values {
		answers[k] = *v
	}
	return submitAnswers(ctx, cmd, wiz, answers)
}

// handleSubmit turns the wizard outcome into user-visible output.
func handleSubmit(cmd *cobra.Command, c *pathos.Client, redirect pathos.Redirect, err error) error {
	switch {
	case errors.Is(err, pathos.ErrTimeout):
		return errors.New("roadmap generation timed out, please try again")
	case err != nil:
		return err
	case redirect == pathos.RedirectLogin:
		return errSessionExpired
	case redirect != pathos.RedirectRoadmap:
		return nil
	}

	rm, err := c.Session().CachedRoadmap(cmd.Context())
	if err != nil {
		return err
	}
	if rm == nil {
		return errors.New("roadmap was generated but could not be read back")
	}
	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), rm)
	}

	renderRoadmap(cmd.OutOrStdout(), rm, nil)
	hint(cmd.OutOrStdout(), "Run `pathos roadmap show --week 1` to start.")
	return nil
}
