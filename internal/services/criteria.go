package services

import (
	"fmt"
	"strings"

	"github.com/maxaizer/job-matcher/internal/domain/models"
	"github.com/samber/lo"
)

const criteriaSeparator = " | "

// BuildPreferenceCriteria renders the candidate's persisted preferences as a
// deterministic criteria string. Building it from stored state on every
// search guarantees the query text reflects the latest preference update,
// even when the caller passes stale free-text criteria.
func BuildPreferenceCriteria(candidate *models.Candidate) string {

	var parts []string

	if candidate.MinSalary > 0 {
		parts = append(parts, fmt.Sprintf("Minimum salary: %s", models.FormatUSD(candidate.MinSalary)))
	}

	if locationTypes := candidate.PreferredLocationTypesAsArray(); len(locationTypes) > 0 {
		joined := strings.Join(lo.Map(locationTypes, func(item models.LocationType, _ int) string {
			return string(item)
		}), ", ")
		parts = append(parts, fmt.Sprintf("Work style: %s", joined))
	}

	if industries := candidate.PreferredIndustriesAsArray(); len(industries) > 0 {
		parts = append(parts, fmt.Sprintf("Industries: %s", strings.Join(industries, ", ")))
	}

	if titles := candidate.PreferredTitlesAsArray(); len(titles) > 0 {
		parts = append(parts, fmt.Sprintf("Roles: %s", strings.Join(titles, ", ")))
	}

	return strings.Join(parts, criteriaSeparator)
}

// BuildAugmentedCriteria renders the preference changes plus any caller
// criteria into the augmentation text appended to the candidate narrative.
func BuildAugmentedCriteria(patch models.PreferencePatch, additionalCriteria string) string {
	return joinCriteria(patch.Describe(), additionalCriteria)
}

func joinCriteria(parts ...string) string {
	return strings.Join(lo.Filter(parts, func(part string, _ int) bool {
		return part != ""
	}), criteriaSeparator)
}
