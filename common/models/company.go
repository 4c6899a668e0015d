package models

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// CompanyConfig describes how job listings are obtained for one employer.
// It is owned by a tenant and read-only to the scraping core.
type CompanyConfig struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	Name       string     `json:"name" validate:"required"`
	CareersURL string     `json:"careers_url" validate:"required,url"`
	API        *ApiConfig `json:"api,omitempty"`
}

// IsCustomAPI reports whether the company is scraped through a declaratively
// mapped JSON API rather than a rendered careers page.
func (c CompanyConfig) IsCustomAPI() bool {
	return c.API != nil
}

// ApiConfig is the declarative description of a company's jobs API.
type ApiConfig struct {
	Endpoint string          `json:"endpoint" validate:"required,url"`
	Method   string          `json:"method,omitempty"`
	Params   []KeyValue      `json:"params,omitempty"`
	Headers  []KeyValue      `json:"headers,omitempty"`
	Mapping  ResponseMapping `json:"response_mapping"`
}

// KeyValue is one ordered query parameter or header entry. Disabled entries
// are kept in the config for editing but skipped when building requests.
type KeyValue struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

// ResponseMapping locates the jobs collection and the job fields inside an
// API response. JobsPath and the title/id field paths are mandatory; a config
// missing them is unusable and rejected before any request is made.
type ResponseMapping struct {
	JobsPath string       `json:"jobsPath"`
	Fields   FieldMapping `json:"fields"`
}

// FieldMapping holds per-field resolution paths relative to one job element.
type FieldMapping struct {
	Title       string `json:"title"`
	ID          string `json:"id"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// Validate checks that an API config is complete enough to be requested.
func (a *ApiConfig) Validate() error {
	if err := validate.Struct(a); err != nil {
		return err
	}
	if strings.TrimSpace(a.Mapping.JobsPath) == "" {
		return ErrMissingJobsPath
	}
	if strings.TrimSpace(a.Mapping.Fields.Title) == "" {
		return ErrMissingTitlePath
	}
	if strings.TrimSpace(a.Mapping.Fields.ID) == "" {
		return ErrMissingIDPath
	}
	return nil
}
