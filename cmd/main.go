package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/job-matcher/internal/clients/gemini"
	"github.com/maxaizer/job-matcher/internal/config"
	"github.com/maxaizer/job-matcher/internal/logger"
	"github.com/maxaizer/job-matcher/internal/metrics"
	"github.com/maxaizer/job-matcher/internal/repositories"
	"github.com/maxaizer/job-matcher/internal/services"
	"github.com/maxaizer/job-matcher/internal/vector"
	log "github.com/sirupsen/logrus"
)

const refresherStopTimeout = 30 * time.Second

func newEmbeddingClient(ctx context.Context, cfg *config.Config) *gemini.Client {

	if cfg.Matcher.AIKey == "" {
		log.Warn("no AI key configured, semantic search is disabled")
		return nil
	}

	client, err := gemini.NewClient(ctx, cfg.Matcher.AIKey, gemini.Model(cfg.Matcher.EmbeddingModel))
	if err != nil {
		log.Fatalf("can't create embedding client: %v", err)
	}
	client.SetMinuteRateLimit(cfg.Matcher.AiMaxRequestsPerMinute)
	client.SetDayRateLimit(cfg.Matcher.AiMaxRequestsPerDay)
	return client
}

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()

	logger.Setup(cfg.Logger)
	defer logger.Cleanup()

	metrics.StartMetricsServer(cfg.Matcher.MetricsPort)

	dbContext, err := repositories.NewDbContext(cfg.DB.ConnectionString)
	if err != nil {
		log.Fatalf("can't create db context: %v", err)
	}
	defer dbContext.Close()

	if err = dbContext.Migrate(); err != nil {
		log.Fatalf("can't migrate db context: %v", err)
	}
	if err = dbContext.SeedFromFiles(cfg.Matcher.JobsFile, cfg.Matcher.CandidatesFile); err != nil {
		log.Fatalf("can't seed database: %v", err)
	}

	jobs := repositories.NewJobsRepository(dbContext.DB)
	candidates := repositories.NewCandidatesRepository(dbContext.DB)
	embeddings := repositories.NewEmbeddingsRepository(dbContext.DB)

	if total, countErr := jobs.Count(ctx); countErr == nil {
		log.Infof("job catalog contains %d postings", total)
	}

	bus := EventBus.New()
	embeddingClient := newEmbeddingClient(ctx, cfg)
	index := vector.NewIndex(cfg.Matcher.EmbeddingDimensions)

	var syncerEmbedder services.BatchEmbedder
	var matcherEmbedder services.QueryEmbedder
	var refresherEmbedder services.DocumentEmbedder
	if embeddingClient != nil {
		syncerEmbedder = embeddingClient
		matcherEmbedder = embeddingClient
		refresherEmbedder = embeddingClient
	}

	syncer := services.NewIndexSyncer(jobs, embeddings, syncerEmbedder, index)
	go func() {
		if syncErr := syncer.Sync(ctx); syncErr != nil {
			log.Errorf("vector index sync failed, searches fall back to scoring: %v", syncErr)
		}
	}()

	sink := services.NewCatalogVectorSink(embeddings, index)
	refresher, err := services.NewEmbeddingRefresher(refresherEmbedder, sink, bus,
		cfg.Matcher.EmbeddingWorkers, cfg.Matcher.EmbeddingQueueSize, cfg.Matcher.GatewayTimeout)
	if err != nil {
		log.Fatalf("can't create embedding refresher: %v", err)
	}
	refresher.WithCandidateChecker(repositories.NewCachedCandidateExistence(candidates, cfg.Matcher.CacheTTL))
	if err = refresher.Start(); err != nil {
		log.Fatalf("can't start embedding refresher: %v", err)
	}

	cleaner, err := services.NewEmbeddingsCleaner(embeddings, jobs, index)
	if err != nil {
		log.Fatalf("can't create embeddings cleaner: %v", err)
	}
	defer cleaner.Stop()

	matcher := services.NewMatcher(jobs, candidates, matcherEmbedder, index, bus, cfg.Matcher.GatewayTimeout)
	log.Infof("matcher ready: %v", matcher.Status())

	<-ctx.Done()

	log.Info("Shutting down services...")
	if !refresher.Stop(refresherStopTimeout) {
		log.Warn("embedding refresher stopped with pending tasks")
	}
	log.Info("Services stopped.")
}
