package models

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// PreferencePatch is a partial preference update. A nil field means "leave
// unchanged"; a non-nil field overrides the stored value. Empty non-nil
// slices are valid and clear the corresponding preference.
type PreferencePatch struct {
	MinSalary              *int
	PreferredTitles        []string
	PreferredLocationTypes []string
	PreferredLocations     []string
	PreferredIndustries    []string
	Skills                 []string
}

func (p PreferencePatch) IsEmpty() bool {
	return p.MinSalary == nil &&
		p.PreferredTitles == nil &&
		p.PreferredLocationTypes == nil &&
		p.PreferredLocations == nil &&
		p.PreferredIndustries == nil &&
		p.Skills == nil
}

// Apply mutates the candidate with every present field and returns
// descriptions of the fields that were updated. Location-type values that do
// not parse are skipped and the whole location-type field is left untouched;
// the rest of the patch still applies.
func (p PreferencePatch) Apply(candidate *Candidate) []string {
	var updated []string

	if p.MinSalary != nil {
		candidate.MinSalary = *p.MinSalary
		updated = append(updated, fmt.Sprintf("min_salary: %s", FormatUSD(*p.MinSalary)))
	}

	if p.PreferredTitles != nil {
		candidate.SetPreferredTitles(p.PreferredTitles)
		updated = append(updated, fmt.Sprintf("preferred_titles: %v", p.PreferredTitles))
	}

	if types, ok := p.LocationTypes(); ok {
		candidate.SetPreferredLocationTypes(types)
		updated = append(updated, fmt.Sprintf("preferred_location_types: %v", p.PreferredLocationTypes))
	}

	if p.PreferredLocations != nil {
		candidate.SetPreferredLocations(p.PreferredLocations)
		updated = append(updated, fmt.Sprintf("preferred_locations: %v", p.PreferredLocations))
	}

	if p.PreferredIndustries != nil {
		candidate.SetPreferredIndustries(p.PreferredIndustries)
		updated = append(updated, fmt.Sprintf("preferred_industries: %v", p.PreferredIndustries))
	}

	if p.Skills != nil {
		candidate.SetSkills(p.Skills)
		updated = append(updated, fmt.Sprintf("skills: %v", p.Skills))
	}

	return updated
}

// Describe renders the patch as augmentation text appended to the candidate's
// embedding narrative, so a search issued right after an update reflects the
// new preferences before the embedding itself is refreshed.
func (p PreferencePatch) Describe() string {
	var parts []string

	if p.MinSalary != nil {
		parts = append(parts, fmt.Sprintf("Minimum salary requirement: %s", FormatUSD(*p.MinSalary)))
	}
	if p.PreferredLocationTypes != nil {
		parts = append(parts, fmt.Sprintf("Location preference: %s", strings.Join(p.PreferredLocationTypes, ", ")))
	}
	if p.PreferredIndustries != nil {
		parts = append(parts, fmt.Sprintf("Industry preference: %s", strings.Join(p.PreferredIndustries, ", ")))
	}
	if p.PreferredTitles != nil {
		parts = append(parts, fmt.Sprintf("Looking for roles like: %s", strings.Join(p.PreferredTitles, ", ")))
	}
	if p.Skills != nil {
		parts = append(parts, fmt.Sprintf("Key skills: %s", strings.Join(p.Skills, ", ")))
	}

	return strings.Join(parts, " | ")
}

// FieldNames lists the preference fields the patch carries, for change
// notifications.
func (p PreferencePatch) FieldNames() []string {
	var fields []string

	if p.MinSalary != nil {
		fields = append(fields, "min_salary")
	}
	if p.PreferredTitles != nil {
		fields = append(fields, "preferred_titles")
	}
	if p.PreferredLocationTypes != nil {
		fields = append(fields, "preferred_location_types")
	}
	if p.PreferredLocations != nil {
		fields = append(fields, "preferred_locations")
	}
	if p.PreferredIndustries != nil {
		fields = append(fields, "preferred_industries")
	}
	if p.Skills != nil {
		fields = append(fields, "skills")
	}

	return fields
}

// LocationTypes parses the patch's location-type values. ok is false when the
// field is absent or any value does not parse; the whole field is then
// ignored, the same policy Apply follows.
func (p PreferencePatch) LocationTypes() ([]LocationType, bool) {
	if p.PreferredLocationTypes == nil {
		return nil, false
	}
	return parseLocationTypes(p.PreferredLocationTypes)
}

func parseLocationTypes(raw []string) ([]LocationType, bool) {
	types := make([]LocationType, 0, len(raw))
	for _, value := range raw {
		locationType, err := ToLocationType(value)
		if err != nil {
			log.Warnf("skipping preference update with invalid location type %q", value)
			return nil, false
		}
		types = append(types, locationType)
	}
	return types, true
}
