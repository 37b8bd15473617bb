package validation

import (
	"strings"
	"testing"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func hasField(errs []ValidationError, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestPrimitiveValidators(t *testing.T) {
	tests := []struct {
		name    string
		err     *ValidationError
		wantErr bool
	}{
		{"utf8 ok", ValidateUTF8("f", "Hello, 世界"), false},
		{"utf8 invalid", ValidateUTF8("f", string([]byte{0xff, 0xfe})), true},
		{"null bytes clean", ValidateNoNullBytes("f", "plain"), false},
		{"null bytes present", ValidateNoNullBytes("f", "a\x00b"), true},
		{"max length at limit", ValidateMaxLength("f", strings.Repeat("a", 10), 10), false},
		{"max length exceeded", ValidateMaxLength("f", strings.Repeat("a", 11), 10), true},
		{"max length counts runes", ValidateMaxLength("f", "世界世界", 4), false},
		{"min length met", ValidateMinLength("f", "secret", 6), false},
		{"min length short", ValidateMinLength("f", "abc", 6), true},
		{"required present", ValidateRequired("f", "x"), false},
		{"required empty", ValidateRequired("f", ""), true},
		{"required whitespace", ValidateRequired("f", " \t\n"), true},
		{"range within", ValidateRange("f", 5, 1, 10), false},
		{"range at bounds", ValidateRange("f", 10, 1, 10), false},
		{"range below", ValidateRange("f", 0, 1, 10), true},
		{"range above", ValidateRange("f", 11, 1, 10), true},
		{"email ok", ValidateEmail("f", "ada@example.com"), false},
		{"email padded", ValidateEmail("f", " ada@example.com "), false},
		{"email missing at", ValidateEmail("f", "ada.example.com"), true},
		{"email empty", ValidateEmail("f", ""), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if (tt.err != nil) != tt.wantErr {
				t.Errorf("got %v, wantErr %v", tt.err, tt.wantErr)
			}
			if tt.err != nil && tt.err.Field != "f" {
				t.Errorf("Field = %q, want f", tt.err.Field)
			}
		})
	}
}

func TestValidateRange_Message(t *testing.T) {
	err := ValidateRange("hours_per_week", 0, 1, 168)
	if err == nil || err.Message != "must be between 1 and 168" {
		t.Errorf("ValidateRange() = %+v", err)
	}
}

func TestCollector(t *testing.T) {
	c := &Collector{}
	if c.HasErrors() {
		t.Error("HasErrors() = true for empty collector")
	}

	c.Add(nil)
	c.Add(&ValidationError{Field: "f1", Message: "m1"})
	c.Add(nil)
	c.Add(&ValidationError{Field: "f2", Message: "m2"})

	errs := c.Errors()
	if len(errs) != 2 || errs[0].Field != "f1" || errs[1].Field != "f2" {
		t.Errorf("Errors() = %+v, want f1 then f2", errs)
	}
	if !c.HasErrors() {
		t.Error("HasErrors() = false with errors")
	}
}

func TestValidateRegistration(t *testing.T) {
	valid := Registration{Name: "Ada", Email: "ada@example.com", Password: "hunter22"}
	if errs := ValidateRegistration(valid); len(errs) != 0 {
		t.Errorf("ValidateRegistration(valid) = %v", errs)
	}

	errs := ValidateRegistration(Registration{Name: " ", Email: "nope", Password: "abc"})
	for _, field := range []string{"name", "email", "password"} {
		if !hasField(errs, field) {
			t.Errorf("missing %s error in %v", field, errs)
		}
	}

	long := valid
	long.Password = strings.Repeat("p", MaxPasswordLength+1)
	if errs := ValidateRegistration(long); !hasField(errs, "password") {
		t.Errorf("expected password length error, got %v", errs)
	}
}

func TestValidateCredentials(t *testing.T) {
	if errs := ValidateCredentials(Credentials{Email: "a@b.c", Password: "x"}); len(errs) != 0 {
		t.Errorf("ValidateCredentials(valid) = %v", errs)
	}
	if errs := ValidateCredentials(Credentials{}); len(errs) != 2 {
		t.Errorf("ValidateCredentials(empty) = %v, want 2 errors", errs)
	}
}

func TestValidateProfile(t *testing.T) {
	valid := Profile{
		TargetRole:    "Backend Engineer",
		SalaryRange:   "$160,000",
		Timeline:      "6 months",
		HoursPerWeek:  20,
		CurrentSkills: []string{"Python", "AWS"},
	}
	if errs := ValidateProfile(valid); len(errs) != 0 {
		t.Errorf("ValidateProfile(valid) = %v", errs)
	}

	tests := []struct {
		name   string
		mutate func(p *Profile)
		field  string
	}{
		{"missing role", func(p *Profile) { p.TargetRole = "" }, "target_role"},
		{"missing timeline", func(p *Profile) { p.Timeline = "  " }, "timeline"},
		{"zero hours", func(p *Profile) { p.HoursPerWeek = 0 }, "hours_per_week"},
		{"too many hours", func(p *Profile) { p.HoursPerWeek = 200 }, "hours_per_week"},
		{"null byte skill", func(p *Profile) { p.CurrentSkills = []string{"Go", "a\x00"} }, "current_skills[1]"},
		{"too many skills", func(p *Profile) { p.CurrentSkills = make([]string, MaxSkills+1) }, "current_skills"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			if errs := ValidateProfile(p); !hasField(errs, tt.field) {
				t.Errorf("expected %s error, got %v", tt.field, errs)
			}
		})
	}
}

func TestValidateProgressUpdate(t *testing.T) {
	tests := []struct {
		name   string
		update ProgressUpdate
		want   []string
	}{
		{"valid", ProgressUpdate{Week: intPtr(3), Completed: boolPtr(false)}, nil},
		{"missing week", ProgressUpdate{Completed: boolPtr(true)}, []string{"week"}},
		{"zero week", ProgressUpdate{Week: intPtr(0), Completed: boolPtr(true)}, []string{"week"}},
		{"missing completed", ProgressUpdate{Week: intPtr(1)}, []string{"completed"}},
		{"empty", ProgressUpdate{}, []string{"week", "completed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateProgressUpdate(tt.update)
			if len(errs) != len(tt.want) {
				t.Fatalf("errors = %v, want fields %v", errs, tt.want)
			}
			for _, f := range tt.want {
				if !hasField(errs, f) {
					t.Errorf("missing %s error", f)
				}
			}
		})
	}
}
