package repositories

import (
	"context"
	"errors"

	"github.com/maxaizer/job-matcher/internal/domain/models"
	"gorm.io/gorm"
)

// Jobs is the read-mostly catalog store. Nothing in the matching paths
// mutates job records after seeding.
type Jobs struct {
	db *gorm.DB
}

func NewJobsRepository(db *gorm.DB) *Jobs {
	return &Jobs{db: db}
}

// GetByID resolves a job, returning (nil, nil) when the ID is unknown.
func (repo *Jobs) GetByID(ctx context.Context, id string) (*models.Job, error) {

	var job models.Job
	if err := repo.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (repo *Jobs) GetByIDs(ctx context.Context, ids []string) ([]models.Job, error) {

	var jobs []models.Job
	if err := repo.db.WithContext(ctx).Find(&jobs, "id IN ?", ids).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (repo *Jobs) GetAll(ctx context.Context) ([]models.Job, error) {

	var jobs []models.Job
	if err := repo.db.WithContext(ctx).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (repo *Jobs) Count(ctx context.Context) (int64, error) {

	var count int64
	if err := repo.db.WithContext(ctx).Model(&models.Job{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
