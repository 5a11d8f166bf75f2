package services

import (
	"context"
	"time"

	"github.com/maxaizer/job-matcher/internal/domain/models"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

type embeddingCleanupRepository interface {
	EmbeddedJobIDs(ctx context.Context) ([]string, error)
	Remove(ctx context.Context, jobIDs []string) error
}

type cleanupCatalog interface {
	GetByIDs(ctx context.Context, ids []string) ([]models.Job, error)
}

type vectorRemover interface {
	Remove(ids ...string)
}

// EmbeddingsCleaner prunes stored vectors whose job has left the catalog, both
// from the database and from the live index.
type EmbeddingsCleaner struct {
	embeddings embeddingCleanupRepository
	catalog    cleanupCatalog
	index      vectorRemover
	cron       *cron.Cron
}

func NewEmbeddingsCleaner(embeddings embeddingCleanupRepository, catalog cleanupCatalog,
	index vectorRemover) (*EmbeddingsCleaner, error) {

	cleaner := &EmbeddingsCleaner{
		embeddings: embeddings,
		catalog:    catalog,
		index:      index,
		cron:       cron.New(),
	}

	_, err := cleaner.cron.AddFunc("0 0 * * *", cleaner.cleanOrphanedEmbeddings)
	if err != nil {
		return nil, err
	}

	cleaner.cron.Start()
	log.Info("embeddings cleaner started")
	return cleaner, nil
}

func (ec *EmbeddingsCleaner) Stop() {
	ec.cron.Stop()
}

func (ec *EmbeddingsCleaner) cleanOrphanedEmbeddings() {

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	orphans, err := ec.findOrphans(ctx)
	if err != nil {
		log.Errorf("Failed to find orphaned embeddings: %v", err)
		return
	}
	if len(orphans) == 0 {
		return
	}

	if err = ec.embeddings.Remove(ctx, orphans); err != nil {
		log.Errorf("Failed to clean orphaned embeddings: %v", err)
		return
	}

	ec.index.Remove(orphans...)
	log.Infof("Orphaned embeddings were cleaned at %v, removed: %v", time.Now(), len(orphans))
}

func (ec *EmbeddingsCleaner) findOrphans(ctx context.Context) ([]string, error) {

	stored, err := ec.embeddings.EmbeddedJobIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, nil
	}

	jobs, err := ec.catalog.GetByIDs(ctx, stored)
	if err != nil {
		return nil, err
	}

	known := lo.SliceToMap(jobs, func(job models.Job) (string, struct{}) {
		return job.ID, struct{}{}
	})

	return lo.Filter(stored, func(id string, _ int) bool {
		_, exists := known[id]
		return !exists
	}), nil
}
