package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_AddDeclinedJobs_WhenRepeated_ShouldKeepSingleOccurrence(t *testing.T) {

	candidate := Candidate{ID: "cand-1"}

	assert.True(t, candidate.AddDeclinedJobs([]string{"job-1", "job-2"}))
	assert.False(t, candidate.AddDeclinedJobs([]string{"job-1"}))
	assert.Equal(t, []string{"job-1", "job-2"}, candidate.DeclinedJobIDsAsArray())
}

func Test_AddDeclinedJobs_WhenEmptyID_ShouldIgnore(t *testing.T) {

	candidate := Candidate{ID: "cand-1"}

	assert.False(t, candidate.AddDeclinedJobs([]string{""}))
	assert.Empty(t, candidate.DeclinedJobIDsAsArray())
}

func Test_HasDeclined_ShouldMatchOnlyRecordedIDs(t *testing.T) {

	candidate := Candidate{DeclinedJobIDs: "job-1,job-2"}

	assert.True(t, candidate.HasDeclined("job-2"))
	assert.False(t, candidate.HasDeclined("job-3"))
}

func Test_ExperienceLevelFromYears_ShouldMapBands(t *testing.T) {

	cases := map[int]ExperienceLevel{
		0:  Junior,
		1:  Junior,
		2:  Mid,
		4:  Mid,
		5:  Senior,
		7:  Senior,
		8:  Lead,
		11: Lead,
		12: Principal,
		30: Principal,
	}

	for years, expected := range cases {
		candidate := Candidate{YearsExperience: years}
		assert.Equal(t, expected, candidate.ExperienceLevelFromYears(), "years: %d", years)
	}
}

func Test_PreferredLocationTypesAsArray_WhenInvalidValueStored_ShouldDropIt(t *testing.T) {

	candidate := Candidate{PreferredLocationTypes: "remote,moon,onsite"}

	assert.Equal(t, []LocationType{Remote, Onsite}, candidate.PreferredLocationTypesAsArray())
}

func Test_EmbeddingText_WhenPreferencesEmpty_ShouldUseDefaults(t *testing.T) {

	candidate := Candidate{Summary: "generalist", YearsExperience: 3}

	text := candidate.EmbeddingText()
	assert.Contains(t, text, "Open to opportunities")
	assert.Contains(t, text, "Flexible")
	assert.Contains(t, text, "Open to all industries")
	assert.Contains(t, text, "Not specified")
}
