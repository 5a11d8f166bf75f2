package services

import (
	"math"
	"sort"
	"strings"

	"github.com/maxaizer/job-matcher/internal/domain/models"
	"github.com/samber/lo"
)

// Filters is the effective hard-filter set for one search: preference-patch
// overrides where present, the candidate's stored preferences otherwise.
// TitleKeywords is only populated on the augmented path; the plain candidate
// search never filters by title.
type Filters struct {
	MinSalary     int
	LocationTypes []models.LocationType
	Industries    []string
	TitleKeywords []string
	DeclinedIDs   []string
}

func filtersFromCandidate(candidate *models.Candidate) Filters {
	return Filters{
		MinSalary:     candidate.MinSalary,
		LocationTypes: candidate.PreferredLocationTypesAsArray(),
		Industries:    candidate.PreferredIndustriesAsArray(),
		DeclinedIDs:   candidate.DeclinedJobIDsAsArray(),
	}
}

// filtersWithPatch resolves the effective filter values: a present patch
// field overrides the stored preference, an absent one falls back to it.
// A location-type field with an invalid value is ignored wholesale, the same
// policy PreferencePatch.Apply follows, so filtering and persistence never
// disagree on which patch took effect. The augmented path also filters on
// title keywords.
func filtersWithPatch(candidate *models.Candidate, patch models.PreferencePatch) Filters {

	filters := filtersFromCandidate(candidate)
	filters.TitleKeywords = candidate.PreferredTitlesAsArray()

	if patch.MinSalary != nil {
		filters.MinSalary = *patch.MinSalary
	}
	if locationTypes, ok := patch.LocationTypes(); ok {
		filters.LocationTypes = locationTypes
	}
	if patch.PreferredIndustries != nil {
		filters.Industries = patch.PreferredIndustries
	}
	if patch.PreferredTitles != nil {
		filters.TitleKeywords = patch.PreferredTitles
	}

	return filters
}

func (f Filters) allowsLocation(job *models.Job) bool {
	return len(f.LocationTypes) == 0 || lo.Contains(f.LocationTypes, job.LocationType)
}

func (f Filters) allowsSalary(job *models.Job) bool {
	return f.MinSalary <= 0 || job.SalaryMax >= f.MinSalary
}

func (f Filters) allowsTitle(job *models.Job) bool {
	return len(f.TitleKeywords) == 0 || titleMatchesAny(job.Title, f.TitleKeywords)
}

// Allows reports whether the job survives every hard filter. Declined jobs
// are handled separately: they are skipped outright, not counted as filtered.
func (f Filters) Allows(job *models.Job) bool {
	return f.allowsLocation(job) && f.allowsSalary(job) && f.allowsTitle(job)
}

type ScoredJob struct {
	Job   models.Job
	Score float64
}

// ScoreJobs ranks jobs for the fallback path. Hard filters reject before
// scoring; survivors are scored on skill overlap plus salary, industry and
// title bonuses, with ties kept in catalog order.
func ScoreJobs(skills []string, jobs []models.Job, filters Filters) (ranked []ScoredJob, filteredOut int) {

	declined := idSet(filters.DeclinedIDs)
	skillSet := idSet(skills)

	for idx := range jobs {
		job := &jobs[idx]

		if _, isDeclined := declined[job.ID]; isDeclined {
			continue
		}

		if !filters.Allows(job) {
			filteredOut++
			continue
		}

		overlap := 0
		for _, required := range job.RequiredSkillsAsArray() {
			if _, ok := skillSet[required]; ok {
				overlap++
			}
		}

		score := float64(overlap) * 2

		if job.SalaryMin >= filters.MinSalary {
			score += 1.0
		} else {
			score += 0.5
		}

		if lo.Contains(filters.Industries, job.Industry) {
			score += 1.0
		}

		if len(filters.TitleKeywords) > 0 {
			score += 3.0
		}

		ranked = append(ranked, ScoredJob{Job: *job, Score: score})
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Score > ranked[b].Score
	})

	return ranked, filteredOut
}

// MatchScore converts a raw fallback score to the caller-facing [0,1] scale.
func (s ScoredJob) MatchScore() float64 {
	return round2(math.Min(s.Score/10, 1.0))
}

func idSet(ids []string) map[string]struct{} {
	return lo.SliceToMap(ids, func(id string) (string, struct{}) {
		return id, struct{}{}
	})
}

func titleMatchesAny(title string, keywords []string) bool {
	lowered := strings.ToLower(title)
	for _, keyword := range keywords {
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
