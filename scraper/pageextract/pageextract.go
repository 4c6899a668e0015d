// Package pageextract discovers job postings on rendered careers pages. It
// combines two layers per page: JSON/HTML bodies captured from the page's own
// network traffic, and anchors scraped from the settled DOM.
package pageextract

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jobwatch/job-alerts-service/common"
	"github.com/jobwatch/job-alerts-service/common/config"
	"github.com/jobwatch/job-alerts-service/common/models"
	"github.com/jobwatch/job-alerts-service/common/storage"
	"github.com/jobwatch/job-alerts-service/scraper/ledger"
	"github.com/jobwatch/job-alerts-service/scraper/relevance"
)

// Session owns one headless browser shared by all page extractions of a run.
type Session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      config.ScrapeConfig
	store    storage.StorageService
	bucket   string
}

// NewSession launches a headless browser. A failed launch is wrapped in
// common.ErrBrowserLaunch; without a browser no page extraction can run.
func NewSession(cfg config.ScrapeConfig, store storage.StorageService, bucket string) (*Session, error) {
	l := launcher.New().
		Headless(true).
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-gpu")

	controlURL, err := l.Launch()
	if err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("%w: %v", common.ErrBrowserLaunch, err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("%w: %v", common.ErrBrowserLaunch, err)
	}

	if store == nil {
		store = storage.NoopStorage{}
	}

	return &Session{
		browser:  browser,
		launcher: l,
		cfg:      cfg,
		store:    store,
		bucket:   bucket,
	}, nil
}

// Close tears down the browser. Safe to call once per session; Extract must
// not be called afterwards.
func (s *Session) Close() {
	if err := s.browser.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing browser")
	}
	s.launcher.Cleanup()
}

// Extract navigates to the company's careers page and returns the candidates
// that pass the relevance filter and are not yet in the ledger. Navigation
// failures are wrapped in common.ErrTransport.
func (s *Session) Extract(ctx context.Context, company models.CompanyConfig, filter *relevance.Filter, dedup *ledger.Deduplicator) ([]models.JobRecord, error) {
	base, err := url.Parse(company.CareersURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing careers url: %v", common.ErrConfiguration, err)
	}

	page, err := s.newPage()
	if err != nil {
		return nil, fmt.Errorf("%w: creating page: %v", common.ErrTransport, err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			log.Error().Str("company", company.Name).Err(err).Msg("Error closing page")
		}
	}()

	capture := newNetworkCapture(page)
	html, err := s.navigate(ctx, page, company.CareersURL)
	if err != nil {
		return nil, err
	}

	s.archiveSnapshot(ctx, company, html)

	networkCandidates := capture.collect(page, base)
	domCandidates, err := candidatesFromHTML(html, base)
	if err != nil {
		log.Warn().Str("company", company.Name).Err(err).Msg("Failed to parse page DOM")
	}

	merged := mergeCandidates(networkCandidates, domCandidates)
	log.Debug().
		Str("company", company.Name).
		Int("network", len(networkCandidates)).
		Int("dom", len(domCandidates)).
		Int("merged", len(merged)).
		Msg("Page extraction layers collected")

	var records []models.JobRecord
	for _, c := range merged {
		if !filter.Matches(c.Title, c.Location, c.Description) {
			continue
		}
		exists, err := dedup.Exists(ctx, c.ID, company.Name)
		if err != nil {
			return nil, fmt.Errorf("checking ledger for %s/%s: %w", company.Name, c.ID, err)
		}
		if exists {
			continue
		}

		c.Company = company.Name
		c.CareerPageURL = company.CareersURL
		records = append(records, c)
	}

	return records, nil
}

func (s *Session) newPage() (*rod.Page, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}
	if s.cfg.UserAgent != "" {
		override := proto.NetworkSetUserAgentOverride{UserAgent: s.cfg.UserAgent}
		if err := override.Call(page); err != nil {
			log.Warn().Err(err).Msg("Failed to override user agent")
		}
	}
	return page, nil
}

// navigate loads the page, waits for it to settle and returns the rendered
// markup. Single-page careers sites render job lists after load, so a short
// idle wait follows WaitLoad.
func (s *Session) navigate(ctx context.Context, page *rod.Page, target string) (string, error) {
	p := page.Context(ctx).Timeout(s.cfg.NavigationTimeout)

	if err := p.Navigate(target); err != nil {
		return "", fmt.Errorf("%w: navigating to %s: %v", common.ErrTransport, target, err)
	}
	if err := p.WaitLoad(); err != nil {
		return "", fmt.Errorf("%w: waiting for load of %s: %v", common.ErrTransport, target, err)
	}
	if err := p.WaitIdle(5 * time.Second); err != nil {
		log.Debug().Str("url", target).Err(err).Msg("Page did not go idle, continuing with current state")
	}

	html, err := p.HTML()
	if err != nil {
		return "", fmt.Errorf("%w: reading page html: %v", common.ErrTransport, err)
	}
	return html, nil
}

// archiveSnapshot stores the rendered markup for later inspection. Archiving
// is best effort and never fails the extraction.
func (s *Session) archiveSnapshot(ctx context.Context, company models.CompanyConfig, html string) {
	if s.bucket == "" {
		return
	}
	objectName := fmt.Sprintf("snapshots/%s/%s/%s.html",
		company.TenantID, company.ID, uuid.New().String())
	if _, err := s.store.Upload(ctx, s.bucket, objectName, []byte(html), "text/html"); err != nil {
		log.Warn().Str("company", company.Name).Err(err).Msg("Failed to archive page snapshot")
	}
}

// networkCapture records job-related responses while the page loads. Bodies
// are fetched after the page settles, while the target is still alive.
type networkCapture struct {
	mu       sync.Mutex
	requests []proto.NetworkRequestID
}

func newNetworkCapture(page *rod.Page) *networkCapture {
	c := &networkCapture{}

	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		log.Warn().Err(err).Msg("Failed to enable network capture")
		return c
	}

	wait := page.EachEvent(func(e *proto.NetworkResponseReceived) {
		if e.Response == nil || !jobRelatedURL.MatchString(e.Response.URL) {
			return
		}
		mime := strings.ToLower(e.Response.MIMEType)
		if !strings.Contains(mime, "json") && !strings.Contains(mime, "html") {
			return
		}
		c.mu.Lock()
		c.requests = append(c.requests, e.RequestID)
		c.mu.Unlock()
	})
	go wait()

	return c
}

// collect fetches the recorded response bodies and extracts job candidates.
func (c *networkCapture) collect(page *rod.Page, base *url.URL) []models.JobRecord {
	c.mu.Lock()
	requests := make([]proto.NetworkRequestID, len(c.requests))
	copy(requests, c.requests)
	c.mu.Unlock()

	var out []models.JobRecord
	for _, id := range requests {
		result, err := proto.NetworkGetResponseBody{RequestID: id}.Call(page)
		if err != nil {
			// The browser evicts bodies it no longer holds; skip those.
			continue
		}
		body := []byte(result.Body)
		if result.Base64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(result.Body)
			if err != nil {
				continue
			}
			body = decoded
		}
		out = append(out, candidatesFromNetworkBody(body, base)...)
	}
	return out
}
