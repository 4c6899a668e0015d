package relevance

import (
	"testing"

	"github.com/jobwatch/job-alerts-service/common/models"
)

func TestMatchesIncludeExclude(t *testing.T) {
	f := NewFilter(models.Constraints{
		Include: []string{"intern"},
		Exclude: []string{"senior"},
	})

	tests := []struct {
		name  string
		title string
		want  bool
	}{
		{"exclude wins over include", "Senior Intern", false},
		{"plain include", "Software Intern", true},
		{"include as stem", "Software Internship Program", true},
		{"no include keyword", "Accountant", false},
		{"case insensitive", "SOFTWARE INTERN", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Matches(tt.title, "", ""); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}

func TestExcludeWordBoundary(t *testing.T) {
	f := NewFilter(models.Constraints{
		Include: []string{"engineer"},
		Exclude: []string{"sr"},
	})

	if f.Matches("Sr Engineer", "", "") {
		t.Error("expected 'Sr Engineer' to be excluded")
	}
	if !f.Matches("Assured Engineer", "", "") {
		t.Error("expected 'sr' not to match inside 'Assured'")
	}
}

func TestLocationConstraint(t *testing.T) {
	f := NewFilter(models.Constraints{
		Include:  []string{"engineer"},
		Location: []string{"remote", "united states"},
	})

	tests := []struct {
		name     string
		location string
		want     bool
	}{
		{"keyword match", "Remote", true},
		{"city comma state", "San Francisco, CA", true},
		{"state with country", "CA, USA", true},
		{"empty location", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Matches("Software Engineer", tt.location, ""); got != tt.want {
				t.Errorf("Matches(location=%q) = %v, want %v", tt.location, got, tt.want)
			}
		})
	}
}

func TestEmptyLocationListIsSatisfied(t *testing.T) {
	f := NewFilter(models.Constraints{Include: []string{"engineer"}})

	if !f.Matches("Software Engineer", "", "") {
		t.Error("empty location constraint list should be satisfied")
	}
}

func TestDescriptionContributesToText(t *testing.T) {
	f := NewFilter(models.Constraints{Include: []string{"golang"}})

	if !f.Matches("Backend Developer", "", "We use Golang and Postgres") {
		t.Error("include keyword in description should match")
	}
}

func TestConstraintNormalization(t *testing.T) {
	f := NewFilter(models.Constraints{
		Include: []string{"  Intern  ", ""},
		Exclude: []string{" SENIOR "},
	})

	if !f.Matches("Software Intern", "", "") {
		t.Error("padded include keyword should still match")
	}
	if f.Matches("Senior Intern", "", "") {
		t.Error("padded exclude keyword should still exclude")
	}
}
