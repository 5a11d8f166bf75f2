package repositories

import (
	"context"
	"errors"

	"github.com/maxaizer/job-matcher/internal/domain/models"
	"gorm.io/gorm"
)

// Candidates is the read/write candidate store. Every mutation goes through a
// full record save, so a crash can never leave a half-written preference set
// beyond what sqlite itself guarantees.
type Candidates struct {
	db *gorm.DB
}

func NewCandidatesRepository(db *gorm.DB) *Candidates {
	return &Candidates{db: db}
}

// GetByID resolves a candidate, returning (nil, nil) when the ID is unknown.
func (repo *Candidates) GetByID(ctx context.Context, id string) (*models.Candidate, error) {

	var candidate models.Candidate
	if err := repo.db.WithContext(ctx).First(&candidate, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &candidate, nil
}

func (repo *Candidates) Exists(ctx context.Context, id string) (bool, error) {

	var count int64
	if err := repo.db.WithContext(ctx).Model(&models.Candidate{}).Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (repo *Candidates) Save(ctx context.Context, candidate *models.Candidate) error {
	return repo.db.WithContext(ctx).Save(candidate).Error
}

// UpdatePreferences applies a partial preference patch and flushes the full
// record. Returns false with no updated fields when the candidate is unknown
// or the patch changes nothing.
func (repo *Candidates) UpdatePreferences(ctx context.Context, id string,
	patch models.PreferencePatch) (bool, []string, error) {

	candidate, err := repo.GetByID(ctx, id)
	if err != nil || candidate == nil {
		return false, nil, err
	}

	updated := patch.Apply(candidate)
	if len(updated) == 0 {
		return false, nil, nil
	}

	if err = repo.Save(ctx, candidate); err != nil {
		return false, nil, err
	}
	return true, updated, nil
}

// DeclineJobs records declined jobs idempotently: re-declining an already
// declined job changes nothing and skips the flush.
func (repo *Candidates) DeclineJobs(ctx context.Context, id string, jobIDs []string) (bool, error) {

	candidate, err := repo.GetByID(ctx, id)
	if err != nil || candidate == nil {
		return false, err
	}

	if !candidate.AddDeclinedJobs(jobIDs) {
		return true, nil
	}

	return true, repo.Save(ctx, candidate)
}

// AcceptJob records an accepted job; a later accept overwrites the earlier one.
func (repo *Candidates) AcceptJob(ctx context.Context, id string, jobID string) (bool, error) {

	candidate, err := repo.GetByID(ctx, id)
	if err != nil || candidate == nil {
		return false, err
	}

	candidate.AcceptedJobID = jobID
	return true, repo.Save(ctx, candidate)
}

func (repo *Candidates) DeclinedJobIDs(ctx context.Context, id string) ([]string, error) {

	candidate, err := repo.GetByID(ctx, id)
	if err != nil || candidate == nil {
		return []string{}, err
	}
	return candidate.DeclinedJobIDsAsArray(), nil
}
