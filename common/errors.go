package common

import (
	"errors"
)

// Error taxonomy for a scrape run. Per-company errors are wrapped with one of
// these sentinels so the orchestrator can classify them at its boundary.
var (
	// ErrConfiguration marks an unusable tenant or company configuration
	// (missing response mapping, missing webhook URL). The affected step is
	// skipped; the run continues.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrTransport marks an HTTP failure, timeout or navigation failure.
	// The company is skipped; the run continues.
	ErrTransport = errors.New("transport failure")

	// ErrParse marks malformed JSON or HTML. Treated as zero candidates.
	ErrParse = errors.New("parse failure")

	// ErrBrowserLaunch marks a failed headless browser launch. Fatal for the
	// whole run, since no page extraction can proceed without a session.
	ErrBrowserLaunch = errors.New("browser launch failed")

	// ErrRunLocked is returned when another run for the same tenant holds
	// the run lock.
	ErrRunLocked = errors.New("scrape run already in progress for tenant")
)
