package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pathos-os/pathos/pkg/pathos"
)

const progressBarWidth = 30

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(0, 1)
)

// progressBar renders a fixed-width completion bar with the percentage.
func progressBar(st pathos.Stats) string {
	filled := progressBarWidth * st.Percent / 100
	bar := doneStyle.Render(strings.Repeat("█", filled)) +
		labelStyle.Render(strings.Repeat("░", progressBarWidth-filled))
	return fmt.Sprintf("%s %3d%% (%d/%d weeks)", bar, st.Percent, st.Completed, st.Total)
}

func stepLine(s pathos.Step, selected bool) string {
	mark := pendingStyle.Render("[ ]")
	if s.Completed {
		mark = doneStyle.Render("[x]")
	}
	title := fmt.Sprintf("Week %d: %s", s.Week, s.Title)
	if selected {
		return fmt.Sprintf("%s %s", mark, selectedStyle.Render("> "+title))
	}
	return fmt.Sprintf("%s   %s", mark, title)
}

// renderRoadmap writes the step list, progress and the selected step detail.
func renderRoadmap(w io.Writer, rm *pathos.Roadmap, selected *pathos.Step) {
	fmt.Fprintln(w, titleStyle.Render(rm.Role+" roadmap"))
	fmt.Fprintln(w, progressBar(rm.Stats()))
	fmt.Fprintln(w)

	for _, s := range rm.Steps {
		fmt.Fprintln(w, stepLine(s, selected != nil && s.Week == selected.Week))
	}

	if selected != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderStepDetail(*selected))
	}
}

func renderStepDetail(s pathos.Step) string {
	var b strings.Builder
	b.WriteString(selectedStyle.Render(fmt.Sprintf("Week %d: %s", s.Week, s.Title)))
	if s.Description != "" {
		b.WriteString("\n\n" + s.Description)
	}
	if len(s.Resources) > 0 {
		b.WriteString("\n\n" + labelStyle.Render("Resources"))
		for _, r := range s.Resources {
			if r.URL == "" {
				b.WriteString("\n  • " + r.Title)
				continue
			}
			b.WriteString(fmt.Sprintf("\n  • %s %s", r.Title, labelStyle.Render(r.URL)))
		}
	}
	status := pendingStyle.Render("Not started")
	if s.Completed {
		status = doneStyle.Render("Completed")
	}
	b.WriteString("\n\n" + labelStyle.Render("Status: ") + status)
	return detailStyle.Render(b.String())
}

func hint(w io.Writer, msg string) {
	fmt.Fprintln(w, hintStyle.Render(msg))
}
