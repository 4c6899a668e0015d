package models

// Constraints are the tenant-wide keyword lists used for relevance filtering.
// Values are treated as immutable once loaded; matching lower-cases and trims
// every keyword, so the lists may be stored in any casing.
type Constraints struct {
	Include  []string `json:"include"`
	Location []string `json:"location"`
	Exclude  []string `json:"exclude"`
}

// IsZero reports whether no constraint list is configured.
func (c Constraints) IsZero() bool {
	return len(c.Include) == 0 && len(c.Location) == 0 && len(c.Exclude) == 0
}

// DefaultConstraints returns the fallback constraint set applied when a
// tenant has not configured any lists of its own.
func DefaultConstraints() Constraints {
	return Constraints{
		Include:  []string{"intern", "internship", "co-op", "software", "developer", "engineering", "data", "engineer"},
		Location: []string{"remote", "united states", "usa"},
		Exclude:  []string{"senior", "director", "citizen", "sr", "manager", "principle", "principal", "staff"},
	}
}
