package pageextract

import (
	"net/url"
	"testing"

	"github.com/jobwatch/job-alerts-service/common/models"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestCandidatesFromJSON(t *testing.T) {
	base := mustParse(t, "https://acme.example/careers")
	body := []byte(`{
		"meta": {"total": 2},
		"data": {
			"postings": [
				{"id": 101, "title": "Software Engineer", "location": {"name": "Remote"}},
				{"jobId": "eng-2", "jobTitle": "Engineering Intern", "url": "/jobs/eng-2"}
			]
		}
	}`)

	got := candidatesFromNetworkBody(body, base)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(got), got)
	}

	byID := make(map[string]models.JobRecord)
	for _, c := range got {
		byID[c.ID] = c
	}

	first, ok := byID["101"]
	if !ok {
		t.Fatal("numeric id should be stringified to 101")
	}
	if first.Location != "Remote" {
		t.Errorf("nested location object not unwrapped: %q", first.Location)
	}

	second, ok := byID["eng-2"]
	if !ok {
		t.Fatal("missing candidate eng-2")
	}
	if second.URL != "https://acme.example/jobs/eng-2" {
		t.Errorf("relative url not resolved: %q", second.URL)
	}
}

func TestCandidatesFromJSONIgnoresNonJobObjects(t *testing.T) {
	body := []byte(`{"user": {"id": "u1", "email": "a@b.c"}, "count": 3}`)
	if got := candidatesFromNetworkBody(body, nil); len(got) != 0 {
		t.Fatalf("objects without a title must be ignored, got %+v", got)
	}
}

func TestCandidatesFromHTML(t *testing.T) {
	base := mustParse(t, "https://acme.example/careers")
	html := `
	<html><body>
		<div class="job-card">
			<h3 class="job-title">Backend Engineer</h3>
			<span class="job-location">Austin, TX</span>
			<a href="/jobs/backend-engineer-77">View opening</a>
		</div>
		<a href="/jobs/frontend-intern-12">Frontend Intern</a>
		<a href="/about">About us</a>
	</body></html>`

	got, err := candidatesFromHTML(html, base)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(got), got)
	}

	card := got[0]
	if card.Title != "Backend Engineer" {
		t.Errorf("card title should come from the heading, got %q", card.Title)
	}
	if card.ID != "backend-engineer-77" {
		t.Errorf("id should be the last path segment, got %q", card.ID)
	}
	if card.Location != "Austin, TX" {
		t.Errorf("location class not picked up, got %q", card.Location)
	}

	direct := got[1]
	if direct.Title != "Frontend Intern" {
		t.Errorf("role-like anchor text should be the title, got %q", direct.Title)
	}
}

func TestMergeCandidatesNetworkWins(t *testing.T) {
	network := []models.JobRecord{
		{ID: "77", Title: "Backend Engineer", Location: "Austin, TX"},
	}
	dom := []models.JobRecord{
		{ID: "77", Title: "Backend Engineer"},
		{ID: "12", Title: "Frontend Intern"},
	}

	got := mergeCandidates(network, dom)
	if len(got) != 2 {
		t.Fatalf("expected 2 merged candidates, got %d: %+v", len(got), got)
	}
	if got[0].Location != "Austin, TX" {
		t.Error("the network layer entry should win for duplicates")
	}
	if got[1].ID != "12" {
		t.Errorf("dom-only candidate missing, got %+v", got[1])
	}
}

func TestIDFromURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://acme.example/jobs/eng-2", "eng-2"},
		{"https://acme.example/jobs/eng-2/", "eng-2"},
		{"https://acme.example/jobs/eng-2?src=board", "eng-2"},
		{"https://acme.example/", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := idFromURL(tt.raw); got != tt.want {
			t.Errorf("idFromURL(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestAbsoluteURL(t *testing.T) {
	base := mustParse(t, "https://acme.example/careers/list")

	tests := []struct {
		href string
		want string
	}{
		{"/jobs/1", "https://acme.example/jobs/1"},
		{"https://other.example/jobs/2", "https://other.example/jobs/2"},
		{"javascript:void(0)", ""},
		{"#apply", ""},
	}
	for _, tt := range tests {
		if got := absoluteURL(base, tt.href); got != tt.want {
			t.Errorf("absoluteURL(%q) = %q, want %q", tt.href, got, tt.want)
		}
	}
}
