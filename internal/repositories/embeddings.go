package repositories

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// JobEmbedding is a stored document vector for one catalog job, JSON-encoded
// so sqlite can hold it in a single column.
type JobEmbedding struct {
	JobID     string `gorm:"primaryKey"`
	Vector    []byte
	UpdatedAt time.Time
}

type Embeddings struct {
	db *gorm.DB
}

func NewEmbeddingsRepository(db *gorm.DB) *Embeddings {
	return &Embeddings{db: db}
}

func (repo *Embeddings) Save(ctx context.Context, jobID string, vector []float32) error {

	encoded, err := json.Marshal(vector)
	if err != nil {
		return err
	}

	return repo.db.WithContext(ctx).Save(&JobEmbedding{
		JobID:     jobID,
		Vector:    encoded,
		UpdatedAt: time.Now(),
	}).Error
}

// GetAll returns every stored vector keyed by job ID; rows that fail to
// decode are skipped.
func (repo *Embeddings) GetAll(ctx context.Context) (map[string][]float32, error) {

	var rows []JobEmbedding
	if err := repo.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}

	vectors := make(map[string][]float32, len(rows))
	for _, row := range rows {
		var vector []float32
		if err := json.Unmarshal(row.Vector, &vector); err != nil {
			continue
		}
		vectors[row.JobID] = vector
	}
	return vectors, nil
}

func (repo *Embeddings) EmbeddedJobIDs(ctx context.Context) ([]string, error) {

	var ids []string
	if err := repo.db.WithContext(ctx).Model(&JobEmbedding{}).
		Pluck("job_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (repo *Embeddings) Remove(ctx context.Context, jobIDs []string) error {
	return repo.db.WithContext(ctx).Delete(&JobEmbedding{}, "job_id IN ?", jobIDs).Error
}
