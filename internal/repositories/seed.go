package repositories

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/maxaizer/job-matcher/internal/domain/models"
	log "github.com/sirupsen/logrus"
)

type jobRecord struct {
	ID                 string   `json:"id" validate:"required"`
	Title              string   `json:"title" validate:"required"`
	Company            string   `json:"company" validate:"required"`
	Description        string   `json:"description"`
	RequiredSkills     []string `json:"required_skills"`
	PreferredSkills    []string `json:"preferred_skills"`
	ExperienceLevel    string   `json:"experience_level" validate:"oneof=junior mid senior lead principal"`
	MinYearsExperience int      `json:"min_years_experience" validate:"gte=0"`
	LocationType       string   `json:"location_type" validate:"oneof=remote hybrid onsite"`
	Location           string   `json:"location"`
	SalaryMin          int      `json:"salary_min" validate:"gte=0"`
	SalaryMax          int      `json:"salary_max" validate:"gtefield=SalaryMin"`
	Industry           string   `json:"industry"`
	Department         string   `json:"department"`
	Benefits           []string `json:"benefits"`
}

type candidateRecord struct {
	ID                     string   `json:"id" validate:"required"`
	Name                   string   `json:"name" validate:"required"`
	Email                  string   `json:"email" validate:"required,email"`
	Summary                string   `json:"summary"`
	Skills                 []string `json:"skills"`
	YearsExperience        int      `json:"years_experience" validate:"gte=0"`
	CurrentTitle           string   `json:"current_title"`
	PreferredTitles        []string `json:"preferred_titles"`
	PreferredLocationTypes []string `json:"preferred_location_types" validate:"dive,oneof=remote hybrid onsite"`
	PreferredLocations     []string `json:"preferred_locations"`
	MinSalary              int      `json:"min_salary" validate:"gte=0"`
	MaxSalary              *int     `json:"max_salary"`
	PreferredIndustries    []string `json:"preferred_industries"`
	DeclinedJobIDs         []string `json:"declined_job_ids"`
	AcceptedJobID          string   `json:"accepted_job_id"`
}

// LoadJobsFile reads catalog seed data. Records that fail validation are
// skipped with a warning so one bad row does not block the whole seed.
func LoadJobsFile(path string) ([]models.Job, error) {

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []jobRecord
	if err = json.Unmarshal(data, &records); err != nil {
		return nil, err
	}

	validate := validator.New()
	var jobs []models.Job

	for _, record := range records {
		if err = validate.Struct(record); err != nil {
			log.Warnf("skipping invalid job record %q: %v", record.ID, err)
			continue
		}

		if record.LocationType != string(models.Remote) && record.Location == "" {
			log.Warnf("job %q is %v but has no location", record.ID, record.LocationType)
		}

		jobs = append(jobs, *models.NewJob(
			record.ID, record.Title, record.Company, record.Description,
			record.RequiredSkills, record.PreferredSkills,
			models.ExperienceLevel(record.ExperienceLevel),
			record.MinYearsExperience,
			models.LocationType(record.LocationType),
			record.Location,
			record.SalaryMin, record.SalaryMax,
			record.Industry, record.Department,
			record.Benefits,
		))
	}

	log.Infof("loaded %d of %d job records from %v", len(jobs), len(records), path)
	return jobs, nil
}

// LoadCandidatesFile reads candidate seed data with the same skip-on-invalid
// policy as LoadJobsFile.
func LoadCandidatesFile(path string) ([]models.Candidate, error) {

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []candidateRecord
	if err = json.Unmarshal(data, &records); err != nil {
		return nil, err
	}

	validate := validator.New()
	var candidates []models.Candidate

	for _, record := range records {
		if err = validate.Struct(record); err != nil {
			log.Warnf("skipping invalid candidate record %q: %v", record.ID, err)
			continue
		}

		candidate := models.Candidate{
			ID:              record.ID,
			Name:            record.Name,
			Email:           record.Email,
			Summary:         record.Summary,
			YearsExperience: record.YearsExperience,
			CurrentTitle:    record.CurrentTitle,
			MinSalary:       record.MinSalary,
			MaxSalary:       record.MaxSalary,
			AcceptedJobID:   record.AcceptedJobID,
			DeclinedJobIDs:  strings.Join(record.DeclinedJobIDs, ","),
		}
		candidate.SetSkills(record.Skills)
		candidate.SetPreferredTitles(record.PreferredTitles)
		candidate.SetPreferredLocations(record.PreferredLocations)
		candidate.SetPreferredIndustries(record.PreferredIndustries)

		var locationTypes []models.LocationType
		for _, raw := range record.PreferredLocationTypes {
			locationType, typeErr := models.ToLocationType(raw)
			if typeErr != nil {
				continue
			}
			locationTypes = append(locationTypes, locationType)
		}
		candidate.SetPreferredLocationTypes(locationTypes)

		candidates = append(candidates, candidate)
	}

	log.Infof("loaded %d of %d candidate records from %v", len(candidates), len(records), path)
	return candidates, nil
}
