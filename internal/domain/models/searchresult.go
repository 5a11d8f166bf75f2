package models

import "time"

type SearchType string

const (
	SearchTypeVector            SearchType = "vector"
	SearchTypeVectorAugmented   SearchType = "vector_augmented"
	SearchTypeFallback          SearchType = "fallback"
	SearchTypeFallbackAugmented SearchType = "fallback_augmented"
)

// JobMatch is the caller-facing view of a matched posting.
type JobMatch struct {
	JobID        string
	Title        string
	Company      string
	SalaryRange  string
	LocationType LocationType
	MatchScore   float64
}

func NewJobMatch(job *Job, matchScore float64) JobMatch {
	return JobMatch{
		JobID:        job.ID,
		Title:        job.Title,
		Company:      job.Company,
		SalaryRange:  job.FormatSalary(),
		LocationType: job.LocationType,
		MatchScore:   matchScore,
	}
}

// Alternative is a near-miss surfaced by criteria relaxation. Relaxed names
// the dimension that was loosened; Note explains the mismatch in plain words.
type Alternative struct {
	JobMatch
	Relaxed       string
	RequiredSkill string
	Note          string
}

// SearchResult is the transient outcome of one orchestrated search. Optional
// fields are populated only on the path that produces them: FilteredOut on
// post-filtered paths, Alternatives/Suggestions/RelaxedCriteria only when the
// strict search came back empty.
type SearchResult struct {
	CandidateID     string
	Matches         []JobMatch
	TotalFound      int
	FilteredOut     int
	SearchType      SearchType
	Note            string
	Alternatives    []Alternative
	Suggestions     []string
	RelaxedCriteria map[string]int
}

// EmbeddingTask is a queued request to refresh a stored embedding. Priority is
// reserved; tasks are processed in arrival order.
type EmbeddingTask struct {
	TaskID     string
	EntityType string
	EntityID   string
	Text       string
	Priority   int
	CreatedAt  time.Time
	Callback   func(taskID string, success bool)
}
