package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

type ExperienceLevel string

const (
	Junior    ExperienceLevel = "junior"
	Mid       ExperienceLevel = "mid"
	Senior    ExperienceLevel = "senior"
	Lead      ExperienceLevel = "lead"
	Principal ExperienceLevel = "principal"
)

func ToExperienceLevel(s string) (ExperienceLevel, error) {
	switch s {
	case string(Junior), string(Mid), string(Senior), string(Lead), string(Principal):
		return ExperienceLevel(s), nil
	default:
		return "", errors.New("invalid experience level")
	}
}

type LocationType string

const (
	Remote LocationType = "remote"
	Hybrid LocationType = "hybrid"
	Onsite LocationType = "onsite"
)

func ToLocationType(s string) (LocationType, error) {
	switch s {
	case string(Remote):
		return Remote, nil
	case string(Hybrid):
		return Hybrid, nil
	case string(Onsite):
		return Onsite, nil
	default:
		return "", errors.New("invalid location type")
	}
}

// Job is a catalog posting. Records are immutable after creation; list fields
// are stored comma-joined so the whole record maps onto a single table row.
type Job struct {
	ID                 string `gorm:"primaryKey"`
	Title              string
	Company            string
	Description        string
	RequiredSkills     string
	PreferredSkills    string
	ExperienceLevel    ExperienceLevel
	MinYearsExperience int
	LocationType       LocationType
	Location           string
	SalaryMin          int
	SalaryMax          int
	Industry           string
	Department         string
	Benefits           string
}

func NewJob(
	id, title, company, description string,
	requiredSkills, preferredSkills []string,
	experienceLevel ExperienceLevel,
	minYearsExperience int,
	locationType LocationType,
	location string,
	salaryMin, salaryMax int,
	industry, department string,
	benefits []string,
) *Job {
	return &Job{
		ID:                 id,
		Title:              title,
		Company:            company,
		Description:        description,
		RequiredSkills:     strings.Join(requiredSkills, ","),
		PreferredSkills:    strings.Join(preferredSkills, ","),
		ExperienceLevel:    experienceLevel,
		MinYearsExperience: minYearsExperience,
		LocationType:       locationType,
		Location:           location,
		SalaryMin:          salaryMin,
		SalaryMax:          salaryMax,
		Industry:           industry,
		Department:         department,
		Benefits:           strings.Join(benefits, ","),
	}
}

func (j *Job) RequiredSkillsAsArray() []string {
	return splitList(j.RequiredSkills)
}

func (j *Job) PreferredSkillsAsArray() []string {
	return splitList(j.PreferredSkills)
}

func (j *Job) BenefitsAsArray() []string {
	return splitList(j.Benefits)
}

func (j *Job) FormatSalary() string {
	return fmt.Sprintf("%s - %s", FormatUSD(j.SalaryMin), FormatUSD(j.SalaryMax))
}

// EmbeddingText renders the posting as the document text fed to the
// embedding gateway.
func (j *Job) EmbeddingText() string {
	skills := strings.Join(append(j.RequiredSkillsAsArray(), j.PreferredSkillsAsArray()...), ", ")
	location := string(j.LocationType)
	if j.Location != "" {
		location += " - " + j.Location
	}

	return fmt.Sprintf(
		"Job Title: %s\nCompany: %s\nDescription: %s\nSkills: %s\nExperience Level: %s\n"+
			"Location: %s\nSalary Range: %s\nIndustry: %s\nDepartment: %s",
		j.Title, j.Company, j.Description, skills, j.ExperienceLevel,
		location, j.FormatSalary(), j.Industry, j.Department)
}

// FormatUSD renders an annual salary as "$1,234,567".
func FormatUSD(amount int) string {
	digits := fmt.Sprintf("%d", amount)
	if amount < 0 {
		digits = digits[1:]
	}

	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)

	formatted := "$" + strings.Join(groups, ",")
	if amount < 0 {
		return "-" + formatted
	}
	return formatted
}

func splitList(joined string) []string {
	if joined == "" {
		return []string{}
	}
	return lo.Map(strings.Split(joined, ","), func(item string, _ int) string {
		return strings.TrimSpace(item)
	})
}
