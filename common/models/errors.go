package models

import "errors"

// Configuration errors for company API mappings. These are raised before any
// request is made; a company with a broken mapping is skipped, not retried.
var (
	ErrMissingJobsPath  = errors.New("response mapping is missing jobsPath")
	ErrMissingTitlePath = errors.New("response mapping is missing fields.title")
	ErrMissingIDPath    = errors.New("response mapping is missing fields.id")
)
