package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/pathos-os/pathos/pkg/pathos"
)

// Compile-time interface check
var _ Generator = (*Mock)(nil)

// Mock returns a fixed four-week roadmap, plus a job-search week when the
// timeline is given in months. It never fails.
type Mock struct{}

// NewMock creates a Mock generator.
func NewMock() *Mock {
	return &Mock{}
}

// Name returns the generator name
func (m *Mock) Name() string {
	return "mock"
}

// Generate builds the simulated roadmap for profile.
func (m *Mock) Generate(ctx context.Context, profile pathos.Profile) (*pathos.Roadmap, error) {
	role := profile.TargetRole

	steps := []pathos.Step{
		{
			Week:        1,
			Title:       fmt.Sprintf("Foundations of %s", role),
			Description: "Master the core concepts and syntax. [SIMULATION MODE]",
			Resources: []pathos.Resource{
				{Title: "Official Documentation", URL: "https://docs.python.org/3/"},
				{Title: "Full Course for Beginners", URL: "https://www.youtube.com/watch?v=rfscVS0vtbw"},
			},
		},
		{
			Week:        2,
			Title:       "Advanced Topics & Best Practices",
			Description: "Deep dive into memory management, concurrency, or advanced patterns.",
			Resources: []pathos.Resource{
				{Title: "Cosmic Python (Architecture Patterns)", URL: "https://www.cosmicpython.com/book/chapter_01_domain_model.html"},
				{Title: "Real Python Tutorials", URL: "https://realpython.com/"},
			},
		},
		{
			Week:        3,
			Title:       "Build a Portfolio Project",
			Description: "Apply what you learned by building a real-world application.",
			Resources: []pathos.Resource{
				{Title: "Mega Project List", URL: "https://github.com/karan/Projects"},
				{Title: "Deploying Python Apps", URL: "https://vercel.com/docs/functions/serverless-functions/runtimes/python"},
			},
		},
		{
			Week:        4,
			Title:       "Interview Prep & System Design",
			Description: "Prepare for technical interviews.",
			Resources: []pathos.Resource{
				{Title: "Blind 75 LeetCode", URL: "https://leetcode.com/discuss/general-discussion/460599/blind-75-leetcode-questions"},
				{Title: "System Design Primer", URL: "https://github.com/donnemartin/system-design-primer"},
			},
		},
	}

	if strings.Contains(strings.ToLower(profile.Timeline), "month") {
		steps = append(steps, pathos.Step{
			Week:        5,
			Title:       "Job Application Strategy",
			Description: "Job search and outreach.",
			Resources: []pathos.Resource{
				{Title: "Resume Guide", URL: "https://www.levels.fyi/blog/software-engineer-resume-guide.html"},
				{Title: "Tech Interview Handbook", URL: "https://www.techinterviewhandbook.org/"},
			},
		})
	}

	return &pathos.Roadmap{Role: role, Steps: steps}, nil
}
