package services

import (
	"context"

	"github.com/maxaizer/job-matcher/internal/domain/models"
	"github.com/maxaizer/job-matcher/internal/logger"
	"github.com/maxaizer/job-matcher/internal/metrics"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const embedBatchSize = 50

type syncCatalog interface {
	GetAll(ctx context.Context) ([]models.Job, error)
}

type embeddingStore interface {
	GetAll(ctx context.Context) (map[string][]float32, error)
	Save(ctx context.Context, jobID string, vector []float32) error
}

// BatchEmbedder embeds documents in one request, preserving input order.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type syncIndex interface {
	Upsert(id string, vec []float32) error
	MarkReady()
	Len() int
}

// IndexSyncer brings the in-memory index in line with the catalog on startup:
// stored vectors are loaded as-is, jobs without one are embedded in batches.
// The index is only marked ready once every catalog job has a vector, so a
// partial sync degrades searches to the fallback scorer instead of serving
// from a half-filled index.
type IndexSyncer struct {
	catalog    syncCatalog
	embeddings embeddingStore
	embedder   BatchEmbedder
	index      syncIndex
}

// NewIndexSyncer wires the syncer. A nil embedder restricts Sync to loading
// stored vectors.
func NewIndexSyncer(catalog syncCatalog, embeddings embeddingStore, embedder BatchEmbedder,
	index syncIndex) *IndexSyncer {

	return &IndexSyncer{
		catalog:    catalog,
		embeddings: embeddings,
		embedder:   embedder,
		index:      index,
	}
}

func (s *IndexSyncer) Sync(ctx context.Context) error {

	stored, err := s.embeddings.GetAll(ctx)
	if err != nil {
		metrics.ErrorsCounter.WithLabelValues(logger.ErrorTypeDb).Inc()
		return err
	}

	for jobID, vec := range stored {
		if err = s.index.Upsert(jobID, vec); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeVectorIndex).
				Errorf("failed to load stored vector for job %v: %v", jobID, err)
		}
	}

	jobs, err := s.catalog.GetAll(ctx)
	if err != nil {
		metrics.ErrorsCounter.WithLabelValues(logger.ErrorTypeDb).Inc()
		return err
	}

	missing := lo.Filter(jobs, func(job models.Job, _ int) bool {
		_, exists := stored[job.ID]
		return !exists
	})

	if len(missing) > 0 {
		if s.embedder == nil {
			log.Warnf("%d jobs have no stored embedding and no embedding gateway is configured, "+
				"vector search stays disabled", len(missing))
			return nil
		}
		if err = s.embedMissing(ctx, missing); err != nil {
			return err
		}
	}

	s.index.MarkReady()
	log.Infof("vector index synced: %d vectors for %d catalog jobs", s.index.Len(), len(jobs))
	return nil
}

func (s *IndexSyncer) embedMissing(ctx context.Context, jobs []models.Job) error {

	for _, chunk := range lo.Chunk(jobs, embedBatchSize) {

		texts := lo.Map(chunk, func(job models.Job, _ int) string {
			return job.EmbeddingText()
		})

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			metrics.ErrorsCounter.WithLabelValues(logger.ErrorTypeEmbeddingAPI).Inc()
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeEmbeddingAPI).
				Errorf("failed to embed job batch: %v", err)
			return err
		}

		for idx, job := range chunk {
			if err = s.embeddings.Save(ctx, job.ID, vectors[idx]); err != nil {
				metrics.ErrorsCounter.WithLabelValues(logger.ErrorTypeDb).Inc()
				return err
			}
			if err = s.index.Upsert(job.ID, vectors[idx]); err != nil {
				return err
			}
		}

		log.Infof("embedded %d jobs", len(chunk))
	}
	return nil
}

// CatalogVectorSink applies refreshed vectors: job vectors are persisted and
// upserted into the live index, candidate vectors are acknowledged only since
// query vectors are rebuilt from the stored profile on every search.
type CatalogVectorSink struct {
	embeddings embeddingStore
	index      syncIndex
}

func NewCatalogVectorSink(embeddings embeddingStore, index syncIndex) *CatalogVectorSink {
	return &CatalogVectorSink{embeddings: embeddings, index: index}
}

func (s *CatalogVectorSink) Apply(ctx context.Context, task models.EmbeddingTask, vector []float32) error {

	if task.EntityType != "job" {
		return nil
	}

	if err := s.embeddings.Save(ctx, task.EntityID, vector); err != nil {
		metrics.ErrorsCounter.WithLabelValues(logger.ErrorTypeDb).Inc()
		return err
	}
	return s.index.Upsert(task.EntityID, vector)
}
