package pageextract

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobwatch/job-alerts-service/common"
	"github.com/jobwatch/job-alerts-service/common/models"
)

var (
	// Responses worth inspecting during network capture.
	jobRelatedURL = regexp.MustCompile(`(?i)(job|career|posting|search|graphql|requisition)`)

	// Anchors that plausibly lead to an individual posting.
	jobLikeHref = regexp.MustCompile(`(?i)(job|position|careers|opening|vacancy|requisition|posting)`)

	// Anchor text that reads like a role title on its own.
	roleKeyword = regexp.MustCompile(`(?i)\b(engineer|engineering|developer|intern|internship|manager|analyst|designer|scientist|architect|specialist|consultant|marketing|sales|support|lead|director|recruiter|accountant)\b`)
)

var (
	titleKeys = []string{"title", "jobTitle", "job_title", "positionTitle", "position_title", "text"}
	idKeys    = []string{"id", "jobId", "job_id", "jobPostingId", "requisitionId", "requisition_id", "slug"}
	urlKeys   = []string{"url", "absolute_url", "absoluteUrl", "applyUrl", "apply_url", "jobUrl", "job_url", "canonicalPositionUrl", "hostedUrl", "link"}
	locKeys   = []string{"location", "jobLocation", "job_location", "city", "locationsText"}
)

// candidatesFromNetworkBody inspects one captured response body. JSON bodies
// are walked recursively for job-shaped objects; HTML fragments are scanned
// for job-like anchors.
func candidatesFromNetworkBody(body []byte, base *url.URL) []models.JobRecord {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil
	}

	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var root any
		if err := json.Unmarshal([]byte(trimmed), &root); err == nil {
			return candidatesFromJSON(root, base)
		}
	}
	if strings.Contains(trimmed, "<a") {
		candidates, _ := candidatesFromHTML(trimmed, base)
		return candidates
	}
	return nil
}

// candidatesFromJSON walks a decoded JSON tree and collects every object that
// carries a title-like key together with an id or URL. Embedded ATS payloads
// (Greenhouse, Lever, Workday) all reduce to this shape.
func candidatesFromJSON(node any, base *url.URL) []models.JobRecord {
	var out []models.JobRecord

	switch v := node.(type) {
	case map[string]any:
		if c, ok := jobFromObject(v, base); ok {
			out = append(out, c)
		}
		for _, child := range v {
			out = append(out, candidatesFromJSON(child, base)...)
		}
	case []any:
		for _, child := range v {
			out = append(out, candidatesFromJSON(child, base)...)
		}
	}

	return out
}

func jobFromObject(obj map[string]any, base *url.URL) (models.JobRecord, bool) {
	title := firstString(obj, titleKeys)
	if title == "" || len(title) > 200 {
		return models.JobRecord{}, false
	}

	id := firstString(obj, idKeys)
	jobURL := absoluteURL(base, firstString(obj, urlKeys))
	if id == "" {
		id = idFromURL(jobURL)
	}
	if id == "" {
		return models.JobRecord{}, false
	}

	return models.JobRecord{
		Title:    title,
		ID:       id,
		URL:      jobURL,
		Location: locationFromObject(obj),
	}, true
}

func firstString(obj map[string]any, keys []string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
		if n, ok := obj[key].(float64); ok && n == float64(int64(n)) {
			return strconv.FormatInt(int64(n), 10)
		}
	}
	return ""
}

// locationFromObject tolerates both plain strings and nested objects like
// Greenhouse's {"location": {"name": "Remote"}}.
func locationFromObject(obj map[string]any) string {
	for _, key := range locKeys {
		switch v := obj[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case map[string]any:
			if s, ok := v["name"].(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

// candidatesFromHTML scans rendered markup for job-like anchors. The title is
// the anchor text when it reads like a role, otherwise the nearest heading in
// the surrounding card.
func candidatesFromHTML(html string, base *url.URL) ([]models.JobRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrParse, err)
	}

	var out []models.JobRecord
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !jobLikeHref.MatchString(href) {
			return
		}
		abs := absoluteURL(base, href)
		if abs == "" {
			return
		}

		title := cleanText(a.Text())
		if title == "" || !roleKeyword.MatchString(title) {
			title = titleFromCard(a)
		}
		if title == "" || len(title) > 200 {
			return
		}

		id := idFromURL(abs)
		if id == "" {
			return
		}

		out = append(out, models.JobRecord{
			Title:    title,
			ID:       id,
			URL:      abs,
			Location: locationFromCard(a),
		})
	})
	return out, nil
}

// titleFromCard climbs a few ancestors looking for a heading or an element
// with a title-ish class, covering the common card markup of careers pages.
func titleFromCard(a *goquery.Selection) string {
	node := a.Parent()
	for depth := 0; depth < 4 && node.Length() > 0; depth++ {
		heading := node.Find(`h1, h2, h3, h4, h5, h6, [class*="title"]`).First()
		if heading.Length() > 0 {
			if t := cleanText(heading.Text()); t != "" {
				return t
			}
		}
		node = node.Parent()
	}
	return ""
}

func locationFromCard(a *goquery.Selection) string {
	node := a.Parent()
	for depth := 0; depth < 4 && node.Length() > 0; depth++ {
		loc := node.Find(`[class*="location"]`).First()
		if loc.Length() > 0 {
			if t := cleanText(loc.Text()); t != "" && len(t) <= 120 {
				return t
			}
		}
		node = node.Parent()
	}
	return ""
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

func absoluteURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		if ref.IsAbs() {
			return ref.String()
		}
		return ""
	}
	return base.ResolveReference(ref).String()
}

// idFromURL derives a stable job id from the last non-empty path segment.
func idFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(segments[i]); s != "" {
			return s
		}
	}
	return ""
}

// mergeCandidates combines the network and DOM layers. The network layer is
// more precise, so its entries win; duplicates are keyed by (id or URL) plus
// lower-cased title.
func mergeCandidates(network, dom []models.JobRecord) []models.JobRecord {
	seen := make(map[string]struct{})
	var out []models.JobRecord

	add := func(c models.JobRecord) {
		key := c.ID
		if key == "" {
			key = c.URL
		}
		key = strings.ToLower(key) + "|" + strings.ToLower(c.Title)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}

	for _, c := range network {
		add(c)
	}
	for _, c := range dom {
		add(c)
	}
	return out
}
