// Package generator produces career roadmaps for the reference backend.
package generator

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/pathos-os/pathos/pkg/pathos"
)

// DefaultWeeks is the roadmap length when the timeline cannot be parsed.
const DefaultWeeks = 12

// Generator defines the interface contract for roadmap generation.
type Generator interface {
	Generate(ctx context.Context, profile pathos.Profile) (*pathos.Roadmap, error)
	Name() string
}

var firstNumber = regexp.MustCompile(`\d+`)

// WeeksFor converts a free-form timeline such as "6 months" or "10 weeks"
// into a number of weeks. Months count as four weeks.
func WeeksFor(timeline string) int {
	t := strings.ToLower(strings.ReplaceAll(timeline, " ", ""))

	n, err := strconv.Atoi(firstNumber.FindString(t))
	if err != nil || n <= 0 {
		return DefaultWeeks
	}

	switch {
	case strings.Contains(t, "month"):
		return n * 4
	case strings.Contains(t, "week"):
		return n
	default:
		return DefaultWeeks
	}
}
