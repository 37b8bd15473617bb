package pathos

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

type wireStep struct {
	Week        int               `json:"week"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Resources   []json.RawMessage `json:"resources"`
	Completed   bool              `json:"completed"`
}

type wireRoadmap struct {
	Role  string     `json:"role"`
	Steps []wireStep `json:"steps"`
}

// DecodeRoadmap parses a roadmap document. Older documents stored resources
// as plain strings; each one is upgraded to a Resource with an empty URL.
// Step order is preserved and weeks must be unique.
func DecodeRoadmap(data []byte) (*Roadmap, error) {
	var w wireRoadmap
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode roadmap: %w", err)
	}

	rm := &Roadmap{
		Role:  w.Role,
		Steps: make([]Step, 0, len(w.Steps)),
	}
	seen := make(map[int]bool, len(w.Steps))

	for _, ws := range w.Steps {
		if seen[ws.Week] {
			return nil, fmt.Errorf("decode roadmap: week %d: %w", ws.Week, ErrDuplicateWeek)
		}
		seen[ws.Week] = true

		resources := make([]Resource, 0, len(ws.Resources))
		for i, raw := range ws.Resources {
			res, err := upgradeResource(raw)
			if err != nil {
				return nil, fmt.Errorf("decode roadmap: week %d resource %d: %w", ws.Week, i, err)
			}
			resources = append(resources, res)
		}

		rm.Steps = append(rm.Steps, Step{
			Week:        ws.Week,
			Title:       ws.Title,
			Description: ws.Description,
			Resources:   resources,
			Completed:   ws.Completed,
		})
	}

	return rm, nil
}

func upgradeResource(raw json.RawMessage) (Resource, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var title string
		if err := json.Unmarshal(trimmed, &title); err != nil {
			return Resource{}, err
		}
		return Resource{Title: title}, nil
	}

	var res Resource
	if err := json.Unmarshal(trimmed, &res); err != nil {
		return Resource{}, err
	}
	return res, nil
}

// Encode serializes the roadmap in its current (object resource) form.
func (r *Roadmap) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// Clone returns a deep copy.
func (r *Roadmap) Clone() *Roadmap {
	if r == nil {
		return nil
	}
	out := &Roadmap{Role: r.Role, Steps: make([]Step, len(r.Steps))}
	for i, s := range r.Steps {
		s.Resources = append([]Resource(nil), s.Resources...)
		out.Steps[i] = s
	}
	return out
}

// IndexOf returns the position of the step with the given week, or -1.
func (r *Roadmap) IndexOf(week int) int {
	for i, s := range r.Steps {
		if s.Week == week {
			return i
		}
	}
	return -1
}

// Stats computes completion counts. Percent is round(100*completed/total)
// and 0 for an empty roadmap.
func (r *Roadmap) Stats() Stats {
	st := Stats{Total: len(r.Steps)}
	for _, s := range r.Steps {
		if s.Completed {
			st.Completed++
		}
	}
	if st.Total > 0 {
		st.Percent = int(math.Round(100 * float64(st.Completed) / float64(st.Total)))
	}
	return st
}
