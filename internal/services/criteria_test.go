package services

import (
	"testing"

	"github.com/maxaizer/job-matcher/internal/domain/models"
	"github.com/stretchr/testify/assert"
)

func Test_BuildPreferenceCriteria_ShouldReflectStoredPreferences(t *testing.T) {

	candidate := models.Candidate{
		MinSalary:              100000,
		PreferredLocationTypes: "remote,hybrid",
		PreferredIndustries:    "Fintech",
		PreferredTitles:        "Backend Engineer",
	}

	criteria := BuildPreferenceCriteria(&candidate)

	assert.Contains(t, criteria, "Minimum salary: $100,000")
	assert.Contains(t, criteria, "Work style: remote, hybrid")
	assert.Contains(t, criteria, "Industries: Fintech")
	assert.Contains(t, criteria, "Roles: Backend Engineer")
}

func Test_BuildPreferenceCriteria_WhenMinSalaryRaised_ShouldChange(t *testing.T) {

	candidate := models.Candidate{MinSalary: 100000, PreferredTitles: "Backend Engineer"}
	before := BuildPreferenceCriteria(&candidate)

	candidate.MinSalary = 150000
	after := BuildPreferenceCriteria(&candidate)

	assert.NotEqual(t, before, after)
	assert.Contains(t, after, "$150,000")
}

func Test_BuildPreferenceCriteria_WhenNoPreferences_ShouldBeEmpty(t *testing.T) {
	assert.Empty(t, BuildPreferenceCriteria(&models.Candidate{}))
}

func Test_BuildAugmentedCriteria_ShouldJoinPatchAndCallerCriteria(t *testing.T) {

	salary := 150000
	patch := models.PreferencePatch{MinSalary: &salary}

	augmented := BuildAugmentedCriteria(patch, "prefer early-stage startups")

	assert.Equal(t,
		"Minimum salary requirement: $150,000 | prefer early-stage startups", augmented)
}

func Test_BuildAugmentedCriteria_WhenPatchEmpty_ShouldKeepCallerCriteriaOnly(t *testing.T) {
	assert.Equal(t, "prefer startups", BuildAugmentedCriteria(models.PreferencePatch{}, "prefer startups"))
}
