package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jobwatch/job-alerts-service/common"
	"github.com/jobwatch/job-alerts-service/common/config"
	"github.com/jobwatch/job-alerts-service/common/models"
	"github.com/jobwatch/job-alerts-service/scraper/ledger"
	"github.com/jobwatch/job-alerts-service/scraper/notify"
	"github.com/jobwatch/job-alerts-service/scraper/relevance"
)

type fakeStore struct {
	companies []models.CompanyConfig
	rows      map[[3]string]models.SentJobRecord
}

func newFakeStore(companies ...models.CompanyConfig) *fakeStore {
	return &fakeStore{
		companies: companies,
		rows:      make(map[[3]string]models.SentJobRecord),
	}
}

func (s *fakeStore) ListCompaniesByTenant(_ context.Context, _ string) ([]models.CompanyConfig, error) {
	return s.companies, nil
}

func (s *fakeStore) SentJobExists(_ context.Context, tenantID, jobID, company string) (bool, error) {
	_, ok := s.rows[[3]string{tenantID, jobID, company}]
	return ok, nil
}

func (s *fakeStore) InsertSentJob(_ context.Context, entry models.SentJobRecord) error {
	key := [3]string{entry.TenantID, entry.JobID, entry.Company}
	if _, ok := s.rows[key]; !ok {
		s.rows[key] = entry
	}
	return nil
}

type fakeLock struct {
	held     bool
	acquired int
	released int
}

func (l *fakeLock) Acquire(_ context.Context, _ string) (func(), bool, error) {
	if l.held {
		return nil, false, nil
	}
	l.acquired++
	return func() { l.released++ }, true, nil
}

type fakeAPI struct {
	extract func(ctx context.Context, company models.CompanyConfig, filter *relevance.Filter, dedup *ledger.Deduplicator) ([]models.JobRecord, error)
}

func (f *fakeAPI) Extract(ctx context.Context, company models.CompanyConfig, filter *relevance.Filter, dedup *ledger.Deduplicator) ([]models.JobRecord, error) {
	return f.extract(ctx, company, filter, dedup)
}

type fakeSession struct {
	extract func(ctx context.Context, company models.CompanyConfig, filter *relevance.Filter, dedup *ledger.Deduplicator) ([]models.JobRecord, error)
	closed  bool
}

func (f *fakeSession) Extract(ctx context.Context, company models.CompanyConfig, filter *relevance.Filter, dedup *ledger.Deduplicator) ([]models.JobRecord, error) {
	return f.extract(ctx, company, filter, dedup)
}

func (f *fakeSession) Close() { f.closed = true }

type fakeNotifier struct {
	webhookURL string
	jobs       []models.JobRecord
	calls      int
}

func (f *fakeNotifier) Send(_ context.Context, webhookURL string, jobs []models.JobRecord) error {
	f.calls++
	f.webhookURL = webhookURL
	f.jobs = jobs
	return nil
}

type recordedFailure struct {
	context string
	cause   error
}

type fakeFailures struct {
	reports []recordedFailure
}

func (f *fakeFailures) NotifyFailure(_ context.Context, failureContext string, cause error) {
	f.reports = append(f.reports, recordedFailure{context: failureContext, cause: cause})
}

func testConfig() config.ScrapeConfig {
	return config.ScrapeConfig{
		NotifyBatchSize: 10,
		RunDeadline:     time.Minute,
	}
}

func testTenant() models.Tenant {
	return models.Tenant{
		ID:         "tenant-1",
		Name:       "Acme Alerts",
		Slug:       "acme-alerts",
		WebhookURL: "https://hooks.example/t1",
		Constraints: models.Constraints{
			Include: []string{"engineer"},
		},
	}
}

func apiCompany(name string) models.CompanyConfig {
	return models.CompanyConfig{
		ID:         name + "-id",
		TenantID:   "tenant-1",
		Name:       name,
		CareersURL: "https://" + name + ".example/careers",
		API: &models.ApiConfig{
			Endpoint: "https://" + name + ".example/api/jobs",
			Mapping: models.ResponseMapping{
				JobsPath: "jobs",
				Fields:   models.FieldMapping{Title: "title", ID: "id"},
			},
		},
	}
}

func pageCompany(name string) models.CompanyConfig {
	return models.CompanyConfig{
		ID:         name + "-id",
		TenantID:   "tenant-1",
		Name:       name,
		CareersURL: "https://" + name + ".example/careers",
	}
}

func TestRunIsolatesCompanyFailures(t *testing.T) {
	store := newFakeStore(apiCompany("Acme"), pageCompany("Globex"))
	lock := &fakeLock{}
	notifier := &fakeNotifier{}
	failures := &fakeFailures{}
	session := &fakeSession{
		extract: func(context.Context, models.CompanyConfig, *relevance.Filter, *ledger.Deduplicator) ([]models.JobRecord, error) {
			return nil, common.ErrTransport
		},
	}

	o := &Orchestrator{
		cfg:   testConfig(),
		store: store,
		lock:  lock,
		api: &fakeAPI{
			extract: func(_ context.Context, company models.CompanyConfig, _ *relevance.Filter, _ *ledger.Deduplicator) ([]models.JobRecord, error) {
				return []models.JobRecord{{
					ID:      "7",
					Title:   "Software Engineer",
					Company: company.Name,
				}}, nil
			},
		},
		newSession:         func() (PageSession, error) { return session, nil },
		newDispatcher:      func(notify.FailureNotifier) Notifier { return notifier },
		newFailureNotifier: func(string) notify.FailureNotifier { return failures },
	}

	if err := o.Run(context.Background(), testTenant()); err != nil {
		t.Fatal(err)
	}

	if _, ok := store.rows[[3]string{"tenant-1", "7", "Acme"}]; !ok {
		t.Error("the successful company's job should be in the ledger")
	}
	if len(store.rows) != 1 {
		t.Errorf("expected 1 ledger row, got %d", len(store.rows))
	}
	if notifier.calls != 1 {
		t.Fatalf("expected 1 notification call, got %d", notifier.calls)
	}
	if notifier.webhookURL != "https://hooks.example/t1" {
		t.Errorf("notification sent to wrong webhook: %q", notifier.webhookURL)
	}
	if len(notifier.jobs) != 1 || notifier.jobs[0].ID != "7" {
		t.Errorf("unexpected notified jobs: %+v", notifier.jobs)
	}
	if len(failures.reports) != 1 {
		t.Fatalf("expected 1 failure report, got %d", len(failures.reports))
	}
	if got := failures.reports[0].context; got != "scraping Globex for Acme Alerts" {
		t.Errorf("unexpected failure context %q", got)
	}
	if !session.closed {
		t.Error("the browser session must be closed at the end of the run")
	}
	if lock.released != 1 {
		t.Error("the run lock must be released")
	}
}

func TestRunSkipsWhenLocked(t *testing.T) {
	o := &Orchestrator{
		cfg:   testConfig(),
		store: newFakeStore(),
		lock:  &fakeLock{held: true},
	}

	err := o.Run(context.Background(), testTenant())
	if !errors.Is(err, common.ErrRunLocked) {
		t.Fatalf("expected ErrRunLocked, got %v", err)
	}
}

func TestRunAPIOnlyTenantNeverLaunchesBrowser(t *testing.T) {
	store := newFakeStore(apiCompany("Acme"))
	notifier := &fakeNotifier{}

	o := &Orchestrator{
		cfg:   testConfig(),
		store: store,
		lock:  &fakeLock{},
		api: &fakeAPI{
			extract: func(context.Context, models.CompanyConfig, *relevance.Filter, *ledger.Deduplicator) ([]models.JobRecord, error) {
				return nil, nil
			},
		},
		newSession: func() (PageSession, error) {
			t.Error("browser must not be launched for an API-only tenant")
			return nil, nil
		},
		newDispatcher:      func(notify.FailureNotifier) Notifier { return notifier },
		newFailureNotifier: func(string) notify.FailureNotifier { return &fakeFailures{} },
	}

	if err := o.Run(context.Background(), testTenant()); err != nil {
		t.Fatal(err)
	}
	if notifier.calls != 0 {
		t.Error("no notification should go out when nothing new was found")
	}
}

func TestRunBrowserLaunchFailureIsFatal(t *testing.T) {
	store := newFakeStore(pageCompany("Globex"), pageCompany("Initech"))
	failures := &fakeFailures{}
	var launchAttempts int

	o := &Orchestrator{
		cfg:   testConfig(),
		store: store,
		lock:  &fakeLock{},
		newSession: func() (PageSession, error) {
			launchAttempts++
			return nil, common.ErrBrowserLaunch
		},
		newDispatcher:      func(notify.FailureNotifier) Notifier { return &fakeNotifier{} },
		newFailureNotifier: func(string) notify.FailureNotifier { return failures },
	}

	err := o.Run(context.Background(), testTenant())
	if !errors.Is(err, common.ErrBrowserLaunch) {
		t.Fatalf("expected ErrBrowserLaunch, got %v", err)
	}
	if launchAttempts != 1 {
		t.Errorf("the run must abort on the first failed launch, got %d attempts", launchAttempts)
	}
	if len(failures.reports) != 1 {
		t.Errorf("expected 1 failure report, got %d", len(failures.reports))
	}
}

func TestRunNotifiesOldestFirst(t *testing.T) {
	store := newFakeStore(apiCompany("Acme"))
	notifier := &fakeNotifier{}

	o := &Orchestrator{
		cfg:   testConfig(),
		store: store,
		lock:  &fakeLock{},
		api: &fakeAPI{
			extract: func(_ context.Context, company models.CompanyConfig, _ *relevance.Filter, _ *ledger.Deduplicator) ([]models.JobRecord, error) {
				// Careers feeds list newest postings first.
				return []models.JobRecord{
					{ID: "newest", Title: "Engineer A", Company: company.Name},
					{ID: "oldest", Title: "Engineer B", Company: company.Name},
				}, nil
			},
		},
		newDispatcher:      func(notify.FailureNotifier) Notifier { return notifier },
		newFailureNotifier: func(string) notify.FailureNotifier { return &fakeFailures{} },
	}

	if err := o.Run(context.Background(), testTenant()); err != nil {
		t.Fatal(err)
	}

	if len(notifier.jobs) != 2 {
		t.Fatalf("expected 2 notified jobs, got %d", len(notifier.jobs))
	}
	if notifier.jobs[0].ID != "oldest" || notifier.jobs[1].ID != "newest" {
		t.Errorf("jobs should be delivered oldest first, got %+v", notifier.jobs)
	}
}

func TestRunReportsMissingWebhook(t *testing.T) {
	store := newFakeStore(apiCompany("Acme"))
	failures := &fakeFailures{}

	o := &Orchestrator{
		cfg:   testConfig(),
		store: store,
		lock:  &fakeLock{},
		api: &fakeAPI{
			extract: func(_ context.Context, company models.CompanyConfig, _ *relevance.Filter, _ *ledger.Deduplicator) ([]models.JobRecord, error) {
				return []models.JobRecord{{
					ID:      "7",
					Title:   "Software Engineer",
					Company: company.Name,
				}}, nil
			},
		},
		newDispatcher: func(f notify.FailureNotifier) Notifier {
			return notify.NewDispatcher(time.Second, 10, 0, f)
		},
		newFailureNotifier: func(string) notify.FailureNotifier { return failures },
	}

	tenant := testTenant()
	tenant.WebhookURL = ""

	err := o.Run(context.Background(), tenant)
	if !errors.Is(err, common.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if len(failures.reports) != 1 {
		t.Fatalf("missing webhook must reach the failure channel, got %d reports", len(failures.reports))
	}
	if !errors.Is(failures.reports[0].cause, common.ErrConfiguration) {
		t.Errorf("failure report should carry the configuration error, got %v", failures.reports[0].cause)
	}
}

func TestRunExcludeOnlyTenantUsesDefaultIncludes(t *testing.T) {
	store := newFakeStore(apiCompany("Acme"))
	var gotFilter *relevance.Filter

	o := &Orchestrator{
		cfg:   testConfig(),
		store: store,
		lock:  &fakeLock{},
		api: &fakeAPI{
			extract: func(_ context.Context, _ models.CompanyConfig, filter *relevance.Filter, _ *ledger.Deduplicator) ([]models.JobRecord, error) {
				gotFilter = filter
				return nil, nil
			},
		},
		newDispatcher:      func(notify.FailureNotifier) Notifier { return &fakeNotifier{} },
		newFailureNotifier: func(string) notify.FailureNotifier { return &fakeFailures{} },
	}

	tenant := testTenant()
	tenant.Constraints = models.Constraints{Exclude: []string{"clearance"}}
	if err := o.Run(context.Background(), tenant); err != nil {
		t.Fatal(err)
	}

	if gotFilter == nil {
		t.Fatal("extractor was never invoked")
	}
	if !gotFilter.Matches("Software Engineering Intern", "Remote", "") {
		t.Error("an exclude-only tenant should inherit the default include list")
	}
	if gotFilter.Matches("Software Engineering Intern, Clearance Required", "Remote", "") {
		t.Error("the tenant's own exclude list must still apply")
	}
}

func TestRunFallsBackToDefaultConstraints(t *testing.T) {
	store := newFakeStore(apiCompany("Acme"))
	var gotFilter *relevance.Filter

	o := &Orchestrator{
		cfg:   testConfig(),
		store: store,
		lock:  &fakeLock{},
		api: &fakeAPI{
			extract: func(_ context.Context, _ models.CompanyConfig, filter *relevance.Filter, _ *ledger.Deduplicator) ([]models.JobRecord, error) {
				gotFilter = filter
				return nil, nil
			},
		},
		newDispatcher:      func(notify.FailureNotifier) Notifier { return &fakeNotifier{} },
		newFailureNotifier: func(string) notify.FailureNotifier { return &fakeFailures{} },
	}

	tenant := testTenant()
	tenant.Constraints = models.Constraints{}
	if err := o.Run(context.Background(), tenant); err != nil {
		t.Fatal(err)
	}

	if gotFilter == nil {
		t.Fatal("extractor was never invoked")
	}
	// The default constraint set targets early-career titles.
	if !gotFilter.Matches("Software Engineering Intern", "Remote", "") {
		t.Error("default constraints should match an intern title")
	}
}
