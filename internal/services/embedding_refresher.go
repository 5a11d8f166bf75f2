package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/job-matcher/internal/domain/models"
	"github.com/maxaizer/job-matcher/internal/events"
	"github.com/maxaizer/job-matcher/internal/logger"
	"github.com/maxaizer/job-matcher/internal/metrics"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

const taskStatusRetention = time.Hour

// DocumentEmbedder converts stored-entity text to a vector with document intent.
type DocumentEmbedder interface {
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
}

type candidateChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// EmbeddingSink receives freshly computed vectors. Implementations decide what
// a refresh means for their entity type: persist, upsert into the index, or
// just acknowledge.
type EmbeddingSink interface {
	Apply(ctx context.Context, task models.EmbeddingTask, vector []float32) error
}

// EmbeddingRefresher recomputes embeddings in the background over a bounded
// queue with a fixed worker pool. Enqueueing never blocks a caller: when the
// queue is full the task is dropped and counted. Failed tasks are marked
// failed and not retried; the next preference change enqueues a fresh task
// anyway. A nil embedder is valid and drops every task, matching the mode
// where no embedding gateway is configured.
type EmbeddingRefresher struct {
	embedder     DocumentEmbedder
	sink         EmbeddingSink
	checker      candidateChecker
	bus          EventBus.Bus
	queue        chan models.EmbeddingTask
	statuses     *cache.Cache
	embedTimeout time.Duration
	workers      int

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

func NewEmbeddingRefresher(embedder DocumentEmbedder, sink EmbeddingSink, bus EventBus.Bus,
	workers int, queueSize int, embedTimeout time.Duration) (*EmbeddingRefresher, error) {

	if workers <= 0 {
		return nil, errors.New("workers must be greater than zero")
	}
	if queueSize <= 0 {
		return nil, errors.New("queue size must be greater than zero")
	}

	return &EmbeddingRefresher{
		embedder:     embedder,
		sink:         sink,
		bus:          bus,
		queue:        make(chan models.EmbeddingTask, queueSize),
		statuses:     cache.New(taskStatusRetention, 2*taskStatusRetention),
		embedTimeout: embedTimeout,
		workers:      workers,
	}, nil
}

// WithCandidateChecker guards event-driven refreshes: an event whose
// candidate no longer exists is skipped instead of embedded.
func (r *EmbeddingRefresher) WithCandidateChecker(checker candidateChecker) {
	r.checker = checker
}

func (r *EmbeddingRefresher) Start() error {

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}

	if err := r.bus.SubscribeAsync(events.CandidatePreferencesChangedTopic,
		r.onPreferencesChanged, false); err != nil {
		return err
	}

	log.Infof("embedding refresher started with %d workers", r.workers)
	return nil
}

// Stop drains in-flight work and reports whether every worker finished within
// the timeout. Tasks still queued when the deadline hits are abandoned.
func (r *EmbeddingRefresher) Stop(timeout time.Duration) bool {

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return true
	}
	r.stopped = true
	close(r.queue)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		log.Warnf("embedding refresher did not stop within %v", timeout)
		return false
	}
}

// Enqueue schedules a refresh and returns the task ID. Reports false when no
// embedder is configured, the queue is full, or the refresher has stopped;
// the task is dropped in all three cases.
func (r *EmbeddingRefresher) Enqueue(task models.EmbeddingTask) (string, bool) {

	if task.TaskID == "" {
		task.TaskID = fmt.Sprintf("%s-%s-%d", task.EntityType, task.EntityID, time.Now().UnixNano())
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	if r.embedder == nil {
		metrics.EmbeddingTasksCounter.WithLabelValues("dropped").Inc()
		log.Warnf("no embedding gateway configured, dropping refresh task for %s %v",
			task.EntityType, task.EntityID)
		return task.TaskID, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return task.TaskID, false
	}

	select {
	case r.queue <- task:
		r.setStatus(task.TaskID, TaskStatusQueued)
		metrics.EmbeddingTasksCounter.WithLabelValues(string(TaskStatusQueued)).Inc()
		return task.TaskID, true
	default:
		metrics.EmbeddingTasksCounter.WithLabelValues("dropped").Inc()
		log.Warnf("embedding task queue is full, dropping task for %s %v", task.EntityType, task.EntityID)
		return task.TaskID, false
	}
}

// Status reports the last known state of a task. Statuses expire after an
// hour, so a false return means either an unknown or a long-finished task.
func (r *EmbeddingRefresher) Status(taskID string) (TaskStatus, bool) {
	if status, found := r.statuses.Get(taskID); found {
		return status.(TaskStatus), true
	}
	return "", false
}

func (r *EmbeddingRefresher) onPreferencesChanged(event events.CandidatePreferencesChanged) {

	if r.checker != nil {
		exists, err := r.checker.Exists(context.Background(), event.CandidateID)
		if err == nil && !exists {
			log.Warnf("skipping embedding refresh for unknown candidate %v", event.CandidateID)
			return
		}
	}

	r.Enqueue(models.EmbeddingTask{
		EntityType: "candidate",
		EntityID:   event.CandidateID,
		Text:       event.Text,
	})
}

func (r *EmbeddingRefresher) worker() {
	defer r.wg.Done()
	for task := range r.queue {
		r.process(task)
	}
}

func (r *EmbeddingRefresher) process(task models.EmbeddingTask) {

	r.setStatus(task.TaskID, TaskStatusProcessing)

	ctx, cancel := context.WithTimeout(context.Background(), r.embedTimeout)
	defer cancel()

	vector, err := r.embedder.EmbedDocument(ctx, task.Text)
	if err != nil {
		metrics.ErrorsCounter.WithLabelValues(logger.ErrorTypeEmbeddingAPI).Inc()
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeEmbeddingAPI).
			Errorf("failed to refresh embedding for %s %v: %v", task.EntityType, task.EntityID, err)
		r.finish(task, TaskStatusFailed)
		return
	}

	if r.sink != nil {
		if err = r.sink.Apply(ctx, task, vector); err != nil {
			log.Errorf("failed to apply refreshed embedding for %s %v: %v",
				task.EntityType, task.EntityID, err)
			r.finish(task, TaskStatusFailed)
			return
		}
	}

	log.Debugf("refreshed embedding for %s %v", task.EntityType, task.EntityID)
	r.finish(task, TaskStatusCompleted)
}

func (r *EmbeddingRefresher) finish(task models.EmbeddingTask, status TaskStatus) {
	r.setStatus(task.TaskID, status)
	metrics.EmbeddingTasksCounter.WithLabelValues(string(status)).Inc()
	if task.Callback != nil {
		task.Callback(task.TaskID, status == TaskStatusCompleted)
	}
}

func (r *EmbeddingRefresher) setStatus(taskID string, status TaskStatus) {
	r.statuses.Set(taskID, status, cache.DefaultExpiration)
}
