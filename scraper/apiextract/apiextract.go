// Package apiextract pulls job records out of a company's declaratively
// mapped JSON API.
package apiextract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jobwatch/job-alerts-service/common"
	"github.com/jobwatch/job-alerts-service/common/models"
	"github.com/jobwatch/job-alerts-service/common/utils"
	"github.com/jobwatch/job-alerts-service/scraper/jsonpath"
	"github.com/jobwatch/job-alerts-service/scraper/ledger"
	"github.com/jobwatch/job-alerts-service/scraper/relevance"
)

// Extractor issues one HTTP request per company per run and maps the
// response into candidate job records.
type Extractor struct {
	client    *http.Client
	userAgent string
}

// New creates an Extractor with a bounded request timeout.
func New(timeout time.Duration, userAgent string) *Extractor {
	return &Extractor{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Extract fetches the company's API and returns the candidates that pass the
// relevance filter and are not yet in the ledger. Request-level failures are
// returned wrapped in common.ErrTransport so the orchestrator can skip the
// company without aborting the run.
func (e *Extractor) Extract(ctx context.Context, company models.CompanyConfig, filter *relevance.Filter, dedup *ledger.Deduplicator) ([]models.JobRecord, error) {
	api := company.API
	if api == nil {
		return nil, fmt.Errorf("%w: company %s has no API config", common.ErrConfiguration, company.Name)
	}
	if err := api.Validate(); err != nil {
		return nil, fmt.Errorf("%w: company %s: %v", common.ErrConfiguration, company.Name, err)
	}

	root, err := e.fetch(ctx, api)
	if err != nil {
		return nil, err
	}
	if root == nil {
		// Unparseable payload: zero candidates, not a run failure.
		return nil, nil
	}

	collection, ok := jsonpath.Get(root, api.Mapping.JobsPath).Get()
	if !ok {
		log.Warn().
			Str("company", company.Name).
			Str("jobs_path", api.Mapping.JobsPath).
			Msg("Jobs path resolved to nothing in API response")
		return nil, nil
	}
	elements, ok := collection.([]any)
	if !ok {
		log.Warn().
			Str("company", company.Name).
			Str("jobs_path", api.Mapping.JobsPath).
			Msg("Jobs path did not resolve to an array")
		return nil, nil
	}

	var records []models.JobRecord
	for _, element := range elements {
		title, _ := jsonpath.GetString(element, api.Mapping.Fields.Title)
		id, _ := jsonpath.GetString(element, api.Mapping.Fields.ID)
		title = strings.TrimSpace(title)
		id = strings.TrimSpace(id)
		if title == "" || id == "" {
			log.Debug().Str("company", company.Name).Msg("Skipping job element without title or id")
			continue
		}

		location, _ := jsonpath.GetString(element, api.Mapping.Fields.Location)
		description, _ := jsonpath.GetString(element, api.Mapping.Fields.Description)
		location = strings.TrimSpace(location)
		description = utils.NormalizeDescription(description)

		if !filter.Matches(title, location, description) {
			continue
		}

		exists, err := dedup.Exists(ctx, id, company.Name)
		if err != nil {
			return nil, fmt.Errorf("checking ledger for %s/%s: %w", company.Name, id, err)
		}
		if exists {
			continue
		}

		records = append(records, models.JobRecord{
			Title:         title,
			ID:            id,
			Location:      location,
			Description:   description,
			Company:       company.Name,
			CareerPageURL: company.CareersURL,
		})
	}

	return records, nil
}

// fetch issues the configured request and decodes the response body. A nil
// root with nil error means the payload was unparseable (warned, zero jobs).
func (e *Extractor) fetch(ctx context.Context, api *models.ApiConfig) (any, error) {
	method := strings.ToUpper(strings.TrimSpace(api.Method))
	if method == "" {
		method = http.MethodGet
	}

	endpoint, err := buildURL(api)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfiguration, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %v", common.ErrConfiguration, err)
	}
	req.Header.Set("Accept", "application/json")
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}
	for _, h := range api.Headers {
		key := strings.TrimSpace(h.Key)
		if !h.Enabled || key == "" {
			continue
		}
		req.Header.Set(key, strings.TrimSpace(h.Value))
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %s", common.ErrTransport, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", common.ErrTransport, err)
	}

	return decodeBody(body), nil
}

func buildURL(api *models.ApiConfig) (string, error) {
	u, err := url.Parse(strings.TrimSpace(api.Endpoint))
	if err != nil {
		return "", fmt.Errorf("parsing endpoint: %v", err)
	}

	query := u.Query()
	for _, p := range api.Params {
		key := strings.TrimSpace(p.Key)
		if !p.Enabled || key == "" {
			continue
		}
		query.Set(key, strings.TrimSpace(p.Value))
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// decodeBody parses the response payload. Some misconfigured APIs return a
// JSON document serialized inside a string, or JSON wrapped in extra text;
// both are recovered by locating the first balanced brace-delimited object.
func decodeBody(body []byte) any {
	var root any
	if err := json.Unmarshal(body, &root); err == nil {
		if s, ok := root.(string); ok {
			return parseEmbedded(s)
		}
		return root
	}
	return parseEmbedded(string(body))
}

func parseEmbedded(s string) any {
	fragment, ok := firstJSONObject(s)
	if !ok {
		log.Warn().Msg("API payload contained no parseable JSON object")
		return nil
	}
	var root any
	if err := json.Unmarshal([]byte(fragment), &root); err != nil {
		log.Warn().Err(err).Msg("Failed to parse JSON embedded in API payload")
		return nil
	}
	return root
}

// firstJSONObject returns the first balanced {...} substring, tracking
// string literals and escapes so braces inside values do not confuse the
// scan.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
