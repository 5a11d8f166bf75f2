package repositories

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/maxaizer/job-matcher/internal/domain/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DbContext struct {
	DB *gorm.DB
}

func NewDbContext(connectionString string) (*DbContext, error) {
	db, err := gorm.Open(sqlite.Open(connectionString), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}

	return &DbContext{DB: db}, nil
}

func (c *DbContext) Migrate() error {
	err := c.DB.AutoMigrate(models.Job{})
	if err != nil {
		return fmt.Errorf("failed to migrate Job entity: %w", err)
	}

	err = c.DB.AutoMigrate(models.Candidate{})
	if err != nil {
		return fmt.Errorf("failed to migrate Candidate entity: %w", err)
	}

	err = c.DB.AutoMigrate(JobEmbedding{})
	if err != nil {
		return fmt.Errorf("failed to migrate JobEmbedding entity: %w", err)
	}

	return nil
}

// SeedFromFiles populates empty job/candidate tables from the JSON data
// files. Already-populated tables are left alone, so restarts do not clobber
// accumulated preference updates.
func (c *DbContext) SeedFromFiles(jobsFile, candidatesFile string) error {

	var jobsCount int64
	if err := c.DB.Model(models.Job{}).Count(&jobsCount).Error; err != nil {
		return fmt.Errorf("failed to count jobs: %w", err)
	}

	if jobsCount == 0 && jobsFile != "" {
		jobs, err := LoadJobsFile(jobsFile)
		if err != nil {
			return fmt.Errorf("failed to load jobs file: %w", err)
		}
		if len(jobs) > 0 {
			if err = c.DB.Create(jobs).Error; err != nil {
				return fmt.Errorf("failed to seed jobs: %w", err)
			}
		}
	}

	var candidatesCount int64
	if err := c.DB.Model(models.Candidate{}).Count(&candidatesCount).Error; err != nil {
		return fmt.Errorf("failed to count candidates: %w", err)
	}

	if candidatesCount == 0 && candidatesFile != "" {
		candidates, err := LoadCandidatesFile(candidatesFile)
		if err != nil {
			return fmt.Errorf("failed to load candidates file: %w", err)
		}
		if len(candidates) > 0 {
			if err = c.DB.Create(candidates).Error; err != nil {
				return fmt.Errorf("failed to seed candidates: %w", err)
			}
		}
	}

	return nil
}

func (c *DbContext) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
