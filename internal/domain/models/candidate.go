package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Candidate is a job seeker profile with search preferences and decline/accept
// tracking. List fields are stored comma-joined like Job's.
type Candidate struct {
	ID                     string `gorm:"primaryKey"`
	Name                   string
	Email                  string
	Summary                string
	Skills                 string
	YearsExperience        int
	CurrentTitle           string
	PreferredTitles        string
	PreferredLocationTypes string
	PreferredLocations     string
	MinSalary              int
	MaxSalary              *int
	PreferredIndustries    string
	DeclinedJobIDs         string
	AcceptedJobID          string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (c *Candidate) SkillsAsArray() []string {
	return splitList(c.Skills)
}

func (c *Candidate) PreferredTitlesAsArray() []string {
	return splitList(c.PreferredTitles)
}

func (c *Candidate) PreferredLocationsAsArray() []string {
	return splitList(c.PreferredLocations)
}

func (c *Candidate) PreferredIndustriesAsArray() []string {
	return splitList(c.PreferredIndustries)
}

// PreferredLocationTypesAsArray parses the stored location-type set. Unknown
// values are logged and dropped rather than failing the whole read.
func (c *Candidate) PreferredLocationTypesAsArray() []LocationType {
	var types []LocationType
	for _, raw := range splitList(c.PreferredLocationTypes) {
		locationType, err := ToLocationType(raw)
		if err != nil {
			log.Errorf("candidate %v has invalid location type %q", c.ID, raw)
			continue
		}
		types = append(types, locationType)
	}
	return types
}

func (c *Candidate) DeclinedJobIDsAsArray() []string {
	ids := splitList(c.DeclinedJobIDs)
	if len(ids) == 0 {
		return []string{}
	}
	return ids
}

func (c *Candidate) HasDeclined(jobID string) bool {
	return lo.Contains(c.DeclinedJobIDsAsArray(), jobID)
}

// AddDeclinedJobs records declined job IDs with set semantics: repeated
// declines of the same ID leave a single occurrence. Reports whether the
// stored set changed.
func (c *Candidate) AddDeclinedJobs(jobIDs []string) bool {
	declined := c.DeclinedJobIDsAsArray()
	changed := false
	for _, jobID := range jobIDs {
		if jobID == "" || lo.Contains(declined, jobID) {
			continue
		}
		declined = append(declined, jobID)
		changed = true
	}
	if changed {
		c.DeclinedJobIDs = strings.Join(declined, ",")
	}
	return changed
}

func (c *Candidate) SetSkills(skills []string) {
	c.Skills = strings.Join(skills, ",")
}

func (c *Candidate) SetPreferredTitles(titles []string) {
	c.PreferredTitles = strings.Join(titles, ",")
}

func (c *Candidate) SetPreferredLocations(locations []string) {
	c.PreferredLocations = strings.Join(locations, ",")
}

func (c *Candidate) SetPreferredIndustries(industries []string) {
	c.PreferredIndustries = strings.Join(industries, ",")
}

func (c *Candidate) SetPreferredLocationTypes(types []LocationType) {
	joined := lo.Map(types, func(item LocationType, _ int) string {
		return string(item)
	})
	c.PreferredLocationTypes = strings.Join(joined, ",")
}

// ExperienceLevelFromYears derives a seniority band from total years of
// experience.
func (c *Candidate) ExperienceLevelFromYears() ExperienceLevel {
	switch {
	case c.YearsExperience < 2:
		return Junior
	case c.YearsExperience < 5:
		return Mid
	case c.YearsExperience < 8:
		return Senior
	case c.YearsExperience < 12:
		return Lead
	default:
		return Principal
	}
}

// EmbeddingText renders the profile as the narrative fed to the embedding
// gateway when building a query vector.
func (c *Candidate) EmbeddingText() string {
	titles := strings.Join(c.PreferredTitlesAsArray(), ", ")
	if titles == "" {
		titles = "Open to opportunities"
	}

	locationTypes := strings.Join(lo.Map(c.PreferredLocationTypesAsArray(),
		func(item LocationType, _ int) string { return string(item) }), ", ")
	if locationTypes == "" {
		locationTypes = "Flexible"
	}

	industries := strings.Join(c.PreferredIndustriesAsArray(), ", ")
	if industries == "" {
		industries = "Open to all industries"
	}

	currentTitle := c.CurrentTitle
	if currentTitle == "" {
		currentTitle = "Not specified"
	}

	return fmt.Sprintf(
		"Professional Summary: %s\nSkills: %s\nYears of Experience: %d\nCurrent Title: %s\n"+
			"Looking for: %s\nPreferred Work Style: %s\nMinimum Salary: %s\nPreferred Industries: %s",
		c.Summary, strings.Join(c.SkillsAsArray(), ", "), c.YearsExperience, currentTitle,
		titles, locationTypes, FormatUSD(c.MinSalary), industries)
}
