package validation

import "fmt"

// Registration is the sign-up request body.
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Profile is the roadmap generation request body.
type Profile struct {
	TargetRole    string   `json:"target_role"`
	SalaryRange   string   `json:"salary_range"`
	Timeline      string   `json:"timeline"`
	HoursPerWeek  int      `json:"hours_per_week"`
	CurrentSkills []string `json:"current_skills"`
}

// ProgressUpdate is the progress request body. Pointers distinguish a
// missing field from its zero value.
type ProgressUpdate struct {
	Week      *int  `json:"week"`
	Completed *bool `json:"completed"`
}

// ValidateRegistration validates a sign-up request.
func ValidateRegistration(r Registration) []ValidationError {
	var c Collector

	c.Add(ValidateRequired("name", r.Name))
	validateText(&c, "name", r.Name, MaxNameLength)

	c.Add(ValidateRequired("email", r.Email))
	if r.Email != "" {
		c.Add(ValidateEmail("email", r.Email))
	}
	c.Add(ValidateMaxLength("email", r.Email, MaxEmailLength))

	c.Add(ValidateMinLength("password", r.Password, MinPasswordLength))
	c.Add(ValidateMaxLength("password", r.Password, MaxPasswordLength))

	return c.Errors()
}

// ValidateCredentials validates a login request.
func ValidateCredentials(r Credentials) []ValidationError {
	var c Collector
	c.Add(ValidateRequired("email", r.Email))
	c.Add(ValidateRequired("password", r.Password))
	c.Add(ValidateMaxLength("password", r.Password, MaxPasswordLength))
	return c.Errors()
}

// ValidateProfile validates a roadmap generation request.
func ValidateProfile(p Profile) []ValidationError {
	var c Collector

	c.Add(ValidateRequired("target_role", p.TargetRole))
	validateText(&c, "target_role", p.TargetRole, MaxAnswerLength)
	validateText(&c, "salary_range", p.SalaryRange, MaxAnswerLength)
	c.Add(ValidateRequired("timeline", p.Timeline))
	validateText(&c, "timeline", p.Timeline, MaxAnswerLength)
	c.Add(ValidateRange("hours_per_week", p.HoursPerWeek, 1, MaxHoursPerWeek))

	if len(p.CurrentSkills) > MaxSkills {
		c.Add(&ValidationError{
			Field:   "current_skills",
			Message: fmt.Sprintf("must contain at most %d entries", MaxSkills),
		})
	}
	for i, s := range p.CurrentSkills {
		validateText(&c, fmt.Sprintf("current_skills[%d]", i), s, MaxAnswerLength)
	}

	return c.Errors()
}

// ValidateProgressUpdate validates a progress request. Whether the week
// exists in the roadmap is checked against storage by the caller.
func ValidateProgressUpdate(u ProgressUpdate) []ValidationError {
	var c Collector
	if u.Week == nil {
		c.Add(&ValidationError{Field: "week", Message: "is required"})
	} else if *u.Week < 1 {
		c.Add(&ValidationError{Field: "week", Message: "must be a positive integer"})
	}
	if u.Completed == nil {
		c.Add(&ValidationError{Field: "completed", Message: "is required"})
	}
	return c.Errors()
}
