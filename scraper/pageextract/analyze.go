package pageextract

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobwatch/job-alerts-service/common"
)

// PageAnalysis summarizes how scrapeable a careers page looks. It is served
// by the analysis endpoint so operators can judge a page before onboarding a
// company.
type PageAnalysis struct {
	URL                 string `json:"url"`
	Title               string `json:"title"`
	AnchorCount         int    `json:"anchor_count"`
	JobLikeAnchorCount  int    `json:"job_like_anchor_count"`
	NetworkJobResponses int    `json:"network_job_responses"`
	CandidateCount      int    `json:"candidate_count"`
}

// Analyze loads a page once and reports what each extraction layer would see.
// No filtering or ledger checks are applied.
func (s *Session) Analyze(ctx context.Context, target string) (*PageAnalysis, error) {
	base, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing url: %v", common.ErrConfiguration, err)
	}

	page, err := s.newPage()
	if err != nil {
		return nil, fmt.Errorf("%w: creating page: %v", common.ErrTransport, err)
	}
	defer page.Close()

	capture := newNetworkCapture(page)
	html, err := s.navigate(ctx, page, target)
	if err != nil {
		return nil, err
	}

	networkCandidates := capture.collect(page, base)
	domCandidates, _ := candidatesFromHTML(html, base)

	analysis := &PageAnalysis{
		URL:                 target,
		NetworkJobResponses: len(networkCandidates),
		CandidateCount:      len(mergeCandidates(networkCandidates, domCandidates)),
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return analysis, nil
	}
	analysis.Title = cleanText(doc.Find("title").First().Text())
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		analysis.AnchorCount++
		if href, _ := a.Attr("href"); jobLikeHref.MatchString(href) {
			analysis.JobLikeAnchorCount++
		}
	})

	return analysis, nil
}
