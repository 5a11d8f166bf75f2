package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/maxaizer/job-matcher/internal/domain/models"
	"github.com/samber/lo"
)

type softMatchOutcome struct {
	Alternatives    []models.Alternative
	Suggestions     []string
	RelaxedCriteria map[string]int
}

// softMatch finds near-misses after a strict search came back empty. Each
// strategy relaxes exactly one dimension; the first one that surfaces at
// least one job wins and the rest are skipped. Declined jobs never appear.
func softMatch(jobs []models.Job, filters Filters, numResults int) softMatchOutcome {

	outcome := softMatchOutcome{RelaxedCriteria: map[string]int{}}

	declined := lo.SliceToMap(filters.DeclinedIDs, func(id string) (string, struct{}) {
		return id, struct{}{}
	})
	isDeclined := func(job *models.Job) bool {
		_, found := declined[job.ID]
		return found
	}

	titlesLabel := strings.Join(filters.TitleKeywords, "/")

	// Relax location: same role, same salary floor, any work style.
	if len(filters.TitleKeywords) > 0 {
		var relaxed []models.Job
		for idx := range jobs {
			job := &jobs[idx]
			if isDeclined(job) || !filters.allowsSalary(job) || !filters.allowsTitle(job) {
				continue
			}
			relaxed = append(relaxed, *job)
		}

		if len(relaxed) > 0 {
			outcome.RelaxedCriteria["location_relaxed"] = len(relaxed)
			for _, job := range firstN(relaxed, numResults) {
				outcome.Alternatives = append(outcome.Alternatives, models.Alternative{
					JobMatch: models.NewJobMatch(&job, 0),
					Relaxed:  "location",
					Note:     fmt.Sprintf("This role is %v, outside your preferred work style", job.LocationType),
				})
			}
			if len(filters.LocationTypes) > 0 {
				otherLocations := lo.Uniq(lo.Map(relaxed, func(job models.Job, _ int) string {
					return string(job.LocationType)
				}))
				outcome.Suggestions = append(outcome.Suggestions, fmt.Sprintf(
					"Found %d %s jobs but they are %s. Would you consider other work styles?",
					len(relaxed), titlesLabel, strings.Join(otherLocations, ", ")))
			}
		}
	}

	// Relax title: different role, preferred work style and salary kept.
	if len(outcome.Alternatives) == 0 && len(filters.LocationTypes) > 0 {
		var relaxed []models.Job
		for idx := range jobs {
			job := &jobs[idx]
			if isDeclined(job) || !filters.allowsSalary(job) || !filters.allowsLocation(job) {
				continue
			}
			relaxed = append(relaxed, *job)
		}

		if len(relaxed) > 0 {
			outcome.RelaxedCriteria["title_relaxed"] = len(relaxed)
			for _, job := range firstN(relaxed, numResults) {
				outcome.Alternatives = append(outcome.Alternatives, models.Alternative{
					JobMatch: models.NewJobMatch(&job, 0),
					Relaxed:  "title",
					Note:     "Different role but matches your work style and salary",
				})
			}
			roleLabel := titlesLabel
			if roleLabel == "" {
				roleLabel = "matching"
			}
			outcome.Suggestions = append(outcome.Suggestions, fmt.Sprintf(
				"No %s jobs found for your preferred work style, but found %d other matching jobs. "+
					"Would you consider other roles?", roleLabel, len(relaxed)))
		}
	}

	// Relax via skill adjacency: the requested role name shows up inside a
	// job's required skills, suggesting a qualification the candidate could
	// state instead.
	if len(filters.TitleKeywords) > 0 {
		type skillHit struct {
			job   models.Job
			skill string
		}
		var hits []skillHit
		skillSuggestions := map[string]struct{}{}

		for idx := range jobs {
			job := &jobs[idx]
			if isDeclined(job) {
				continue
			}
			for _, skill := range job.RequiredSkillsAsArray() {
				skillLower := strings.ToLower(skill)
				adjacent := lo.SomeBy(filters.TitleKeywords, func(keyword string) bool {
					keywordLower := strings.ToLower(keyword)
					return strings.Contains(skillLower, keywordLower) ||
						strings.Contains(keywordLower, skillLower)
				})
				if adjacent {
					hits = append(hits, skillHit{job: *job, skill: skill})
					skillSuggestions[skill] = struct{}{}
					break
				}
			}
		}

		if len(hits) > 0 && len(outcome.Alternatives) == 0 {
			outcome.RelaxedCriteria["skill_based"] = len(hits)
			for _, hit := range firstN(hits, numResults) {
				outcome.Alternatives = append(outcome.Alternatives, models.Alternative{
					JobMatch:      models.NewJobMatch(&hit.job, 0),
					Relaxed:       "skill_based",
					RequiredSkill: hit.skill,
					Note:          fmt.Sprintf("Requires: %s", hit.skill),
				})
			}

			skills := lo.Keys(skillSuggestions)
			sort.Strings(skills)
			outcome.Suggestions = append(outcome.Suggestions, fmt.Sprintf(
				"Found jobs that require: %s. Do you have any of these qualifications?",
				strings.Join(firstN(skills, 3), ", ")))
		}
	}

	// Relax salary: keep the role if one was asked for, drop the floor, and
	// report the best salary on offer.
	if len(outcome.Alternatives) == 0 {
		var relaxed []models.Job
		for idx := range jobs {
			job := &jobs[idx]
			if isDeclined(job) || !filters.allowsTitle(job) {
				continue
			}
			relaxed = append(relaxed, *job)
		}

		if len(relaxed) > 0 {
			sort.SliceStable(relaxed, func(a, b int) bool {
				return relaxed[a].SalaryMax > relaxed[b].SalaryMax
			})
			outcome.RelaxedCriteria["any_salary"] = len(relaxed)

			for _, job := range firstN(relaxed, numResults) {
				outcome.Alternatives = append(outcome.Alternatives, models.Alternative{
					JobMatch: models.NewJobMatch(&job, 0),
					Relaxed:  "salary",
					Note:     fmt.Sprintf("Salary: %s", job.FormatSalary()),
				})
			}

			roleLabel := ""
			if titlesLabel != "" {
				roleLabel = titlesLabel + " "
			}
			outcome.Suggestions = append(outcome.Suggestions, fmt.Sprintf(
				"The highest paying %sjob offers %s. Would you consider a lower salary?",
				roleLabel, models.FormatUSD(relaxed[0].SalaryMax)))
		}
	}

	return outcome
}

func firstN[T any](items []T, n int) []T {
	if n < len(items) {
		return items[:n]
	}
	return items
}
