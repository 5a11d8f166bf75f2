package services

import (
	"context"
	"fmt"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/job-matcher/internal/domain/models"
	"github.com/maxaizer/job-matcher/internal/events"
	"github.com/maxaizer/job-matcher/internal/logger"
	"github.com/maxaizer/job-matcher/internal/metrics"
	"github.com/maxaizer/job-matcher/internal/vector"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrVectorUnavailable = errors.New("vector search unavailable")
)

const DefaultNumResults = 5

type jobRepository interface {
	GetAll(ctx context.Context) ([]models.Job, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Job, error)
}

type candidateRepository interface {
	GetByID(ctx context.Context, id string) (*models.Candidate, error)
}

// QueryEmbedder converts search text to a vector with query intent.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type vectorIndex interface {
	IsConfigured() bool
	Query(vec []float32, k int, excludeIDs []string) ([]vector.Neighbor, error)
}

// vectorOutcome is the result of a vector search attempt. Exactly one variant
// is meaningful: neighbors when the attempt ran, or unavailable with a reason
// when the semantic path could not be used at all. An empty neighbor list with
// unavailable false is a real "nothing matched" answer, not a degradation.
type vectorOutcome struct {
	neighbors   []vector.Neighbor
	unavailable bool
	reason      string
}

// Matcher orchestrates candidate/job matching: the semantic path through the
// embedding gateway and vector index when both are usable, the deterministic
// fallback scorer otherwise.
type Matcher struct {
	jobs           jobRepository
	candidates     candidateRepository
	embedder       QueryEmbedder
	index          vectorIndex
	bus            EventBus.Bus
	gatewayTimeout time.Duration
}

// NewMatcher wires the orchestrator. A nil embedder is valid and pins every
// search to the fallback scorer.
func NewMatcher(jobs jobRepository, candidates candidateRepository, embedder QueryEmbedder,
	index vectorIndex, bus EventBus.Bus, gatewayTimeout time.Duration) *Matcher {

	return &Matcher{
		jobs:           jobs,
		candidates:     candidates,
		embedder:       embedder,
		index:          index,
		bus:            bus,
		gatewayTimeout: gatewayTimeout,
	}
}

// Search matches jobs against the candidate's stored profile and preferences,
// with optional free-text criteria appended to the query. Declined jobs are
// excluded; no post-filters are applied on this path, the semantic ranking
// alone decides.
func (m *Matcher) Search(ctx context.Context, candidateID string, additionalCriteria string,
	numResults int) (*models.SearchResult, error) {

	started := time.Now()
	numResults = normalizeNumResults(numResults)

	candidate, err := m.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, errors.Wrap(ErrCandidateNotFound, candidateID)
	}

	declined := candidate.DeclinedJobIDsAsArray()
	queryText := buildQueryText(candidate, joinCriteria(BuildPreferenceCriteria(candidate), additionalCriteria))

	outcome := m.tryVectorSearch(ctx, queryText, numResults+len(declined), declined)
	if outcome.unavailable {
		log.Debugf("vector search unavailable for candidate %v: %v, using fallback", candidateID, outcome.reason)
		result, fallbackErr := m.fallbackSearch(ctx, candidate, filtersFromCandidate(candidate),
			candidate.SkillsAsArray(), numResults, models.SearchTypeFallback, false)
		return m.finishSearch(started, result, fallbackErr)
	}

	matches, err := m.neighborsToMatches(ctx, outcome.neighbors, declined, numResults)
	if err != nil {
		return nil, err
	}

	return m.finishSearch(started, &models.SearchResult{
		CandidateID: candidateID,
		Matches:     matches,
		TotalFound:  len(matches),
		SearchType:  models.SearchTypeVector,
	}, nil)
}

// SearchWithUpdatedPreferences searches right after a preference update. The
// patch has already been persisted to the candidate store by the caller; here
// it augments the query text with the change description, overrides the
// effective post-filter values, and schedules an embedding refresh through
// the event bus.
func (m *Matcher) SearchWithUpdatedPreferences(ctx context.Context, candidateID string,
	patch models.PreferencePatch, additionalCriteria string, numResults int) (*models.SearchResult, error) {

	started := time.Now()
	numResults = normalizeNumResults(numResults)

	candidate, err := m.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, errors.Wrap(ErrCandidateNotFound, candidateID)
	}

	if !patch.IsEmpty() {
		m.bus.Publish(events.CandidatePreferencesChangedTopic, events.CandidatePreferencesChanged{
			CandidateID:   candidateID,
			Text:          candidate.EmbeddingText(),
			UpdatedFields: patch.FieldNames(),
		})
	}

	declined := candidate.DeclinedJobIDsAsArray()
	filters := filtersWithPatch(candidate, patch)
	queryText := buildQueryText(candidate, BuildAugmentedCriteria(patch, additionalCriteria))

	// Over-fetch: strict post-filters reject aggressively, so the index is
	// asked for far more neighbors than the caller wants back.
	fetchK := (numResults + len(declined)) * 5

	outcome := m.tryVectorSearch(ctx, queryText, fetchK, declined)
	if outcome.unavailable {
		log.Debugf("vector search unavailable for candidate %v: %v, using fallback", candidateID, outcome.reason)
		skills := candidate.SkillsAsArray()
		if patch.Skills != nil {
			skills = patch.Skills
		}
		result, fallbackErr := m.fallbackSearch(ctx, candidate, filters, skills, numResults,
			models.SearchTypeFallbackAugmented, true)
		return m.finishSearch(started, result, fallbackErr)
	}

	result, err := m.postFilterNeighbors(ctx, candidate, outcome.neighbors, filters, numResults)
	if err != nil {
		return nil, err
	}
	return m.finishSearch(started, result, nil)
}

// SearchByText matches jobs against free text with no candidate context.
// excludeIDs drops the given jobs from the results. This is the one path that
// surfaces vector unavailability instead of silently degrading, since there
// is no profile for the fallback scorer to rank with.
func (m *Matcher) SearchByText(ctx context.Context, text string, excludeIDs []string,
	numResults int) (*models.SearchResult, error) {

	started := time.Now()
	numResults = normalizeNumResults(numResults)

	outcome := m.tryVectorSearch(ctx, text, numResults+len(excludeIDs), excludeIDs)
	if outcome.unavailable {
		return nil, errors.Wrap(ErrVectorUnavailable, outcome.reason)
	}

	matches, err := m.neighborsToMatches(ctx, outcome.neighbors, excludeIDs, numResults)
	if err != nil {
		return nil, err
	}

	return m.finishSearch(started, &models.SearchResult{
		Matches:    matches,
		TotalFound: len(matches),
		SearchType: models.SearchTypeVector,
	}, nil)
}

// Status summarizes which search path is live, for startup logging.
func (m *Matcher) Status() string {
	switch {
	case m.embedder == nil:
		return "fallback scoring only: no embedding gateway configured"
	case !m.index.IsConfigured():
		return "fallback scoring active: vector index not ready"
	default:
		return "vector search active"
	}
}

func (m *Matcher) tryVectorSearch(ctx context.Context, text string, k int, excludeIDs []string) vectorOutcome {

	if m.embedder == nil {
		return vectorOutcome{unavailable: true, reason: "no embedding gateway configured"}
	}
	if !m.index.IsConfigured() {
		return vectorOutcome{unavailable: true, reason: "vector index not ready"}
	}

	embedCtx, cancel := context.WithTimeout(ctx, m.gatewayTimeout)
	defer cancel()

	embedStarted := time.Now()
	queryVec, err := m.embedder.EmbedQuery(embedCtx, text)
	observeStep("embed_query", embedStarted)
	if err != nil {
		metrics.ErrorsCounter.WithLabelValues(logger.ErrorTypeEmbeddingAPI).Inc()
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeEmbeddingAPI).
			Errorf("failed to embed query: %v", err)
		return vectorOutcome{unavailable: true, reason: "embedding gateway error"}
	}

	queryStarted := time.Now()
	neighbors, err := m.index.Query(queryVec, k, excludeIDs)
	observeStep("index_query", queryStarted)
	if err != nil {
		metrics.ErrorsCounter.WithLabelValues(logger.ErrorTypeVectorIndex).Inc()
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeVectorIndex).
			Errorf("vector index query failed: %v", err)
		return vectorOutcome{unavailable: true, reason: "vector index error"}
	}

	return vectorOutcome{neighbors: neighbors}
}

// neighborsToMatches resolves neighbor IDs to catalog jobs, preserving the
// index's distance order. IDs the catalog no longer knows are dropped, and so
// are excluded IDs: the index's exclusion hint is best-effort, the walk here
// is what guarantees they never reach the caller.
func (m *Matcher) neighborsToMatches(ctx context.Context, neighbors []vector.Neighbor,
	excludeIDs []string, numResults int) ([]models.JobMatch, error) {

	jobsByID, err := m.loadNeighborJobs(ctx, neighbors)
	if err != nil {
		return nil, err
	}

	excluded := idSet(excludeIDs)
	matches := make([]models.JobMatch, 0, numResults)
	for _, neighbor := range neighbors {
		if _, isExcluded := excluded[neighbor.ID]; isExcluded {
			continue
		}
		job, found := jobsByID[neighbor.ID]
		if !found {
			continue
		}
		matches = append(matches, models.NewJobMatch(&job, matchScoreFromDistance(neighbor.Distance)))
		if len(matches) == numResults {
			break
		}
	}
	return matches, nil
}

func (m *Matcher) postFilterNeighbors(ctx context.Context, candidate *models.Candidate,
	neighbors []vector.Neighbor, filters Filters, numResults int) (*models.SearchResult, error) {

	jobsByID, err := m.loadNeighborJobs(ctx, neighbors)
	if err != nil {
		return nil, err
	}

	filterStarted := time.Now()
	result := &models.SearchResult{
		CandidateID: candidate.ID,
		SearchType:  models.SearchTypeVectorAugmented,
	}

	// declined jobs are skipped outright even when the index's best-effort
	// exclusion leaks them, and not counted as filtered
	declined := idSet(filters.DeclinedIDs)

	for _, neighbor := range neighbors {
		if _, isDeclined := declined[neighbor.ID]; isDeclined {
			continue
		}
		job, found := jobsByID[neighbor.ID]
		if !found {
			continue
		}
		if !filters.Allows(&job) {
			result.FilteredOut++
			continue
		}
		if len(result.Matches) < numResults {
			result.Matches = append(result.Matches,
				models.NewJobMatch(&job, matchScoreFromDistance(neighbor.Distance)))
		}
	}
	observeStep("post_filter", filterStarted)

	result.TotalFound = len(result.Matches)
	if result.FilteredOut > 0 {
		metrics.FilteredJobsCounter.Add(float64(result.FilteredOut))
		result.Note = filteredNote(result.FilteredOut)
	}

	if result.TotalFound == 0 {
		if err = m.addSoftMatches(ctx, result, filters, numResults); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// fallbackSearch ranks the whole catalog with the deterministic scorer.
// withSoftMatch enables criteria relaxation when the strict pass finds
// nothing, which only makes sense on the augmented path where filters carry
// the candidate's explicit wishes.
func (m *Matcher) fallbackSearch(ctx context.Context, candidate *models.Candidate, filters Filters,
	skills []string, numResults int, searchType models.SearchType,
	withSoftMatch bool) (*models.SearchResult, error) {

	jobs, err := m.jobs.GetAll(ctx)
	if err != nil {
		metrics.ErrorsCounter.WithLabelValues(logger.ErrorTypeDb).Inc()
		return nil, err
	}

	scoreStarted := time.Now()
	ranked, filteredOut := ScoreJobs(skills, jobs, filters)
	observeStep("fallback_score", scoreStarted)

	result := &models.SearchResult{
		CandidateID: candidate.ID,
		SearchType:  searchType,
		FilteredOut: filteredOut,
	}

	for _, scored := range ranked {
		if len(result.Matches) == numResults {
			break
		}
		result.Matches = append(result.Matches, models.NewJobMatch(&scored.Job, scored.MatchScore()))
	}
	result.TotalFound = len(result.Matches)

	if filteredOut > 0 {
		metrics.FilteredJobsCounter.Add(float64(filteredOut))
		result.Note = filteredNote(filteredOut)
	}

	if withSoftMatch && result.TotalFound == 0 {
		softStarted := time.Now()
		softened := softMatch(jobs, filters, numResults)
		observeStep("soft_match", softStarted)
		mergeSoftMatches(result, softened)
	}
	return result, nil
}

func (m *Matcher) addSoftMatches(ctx context.Context, result *models.SearchResult,
	filters Filters, numResults int) error {

	jobs, err := m.jobs.GetAll(ctx)
	if err != nil {
		metrics.ErrorsCounter.WithLabelValues(logger.ErrorTypeDb).Inc()
		return err
	}

	softStarted := time.Now()
	softened := softMatch(jobs, filters, numResults)
	observeStep("soft_match", softStarted)
	mergeSoftMatches(result, softened)
	return nil
}

func (m *Matcher) loadNeighborJobs(ctx context.Context, neighbors []vector.Neighbor) (map[string]models.Job, error) {

	ids := make([]string, len(neighbors))
	for idx, neighbor := range neighbors {
		ids[idx] = neighbor.ID
	}

	loadStarted := time.Now()
	jobs, err := m.jobs.GetByIDs(ctx, ids)
	observeStep("load_jobs", loadStarted)
	if err != nil {
		metrics.ErrorsCounter.WithLabelValues(logger.ErrorTypeDb).Inc()
		return nil, err
	}

	jobsByID := make(map[string]models.Job, len(jobs))
	for _, job := range jobs {
		jobsByID[job.ID] = job
	}
	return jobsByID, nil
}

func (m *Matcher) finishSearch(started time.Time, result *models.SearchResult,
	err error) (*models.SearchResult, error) {

	if err != nil {
		return nil, err
	}
	metrics.SearchesCounter.WithLabelValues(string(result.SearchType)).Inc()
	metrics.SearchDuration.Observe(time.Since(started).Seconds())
	return result, nil
}

func mergeSoftMatches(result *models.SearchResult, softened softMatchOutcome) {
	result.Alternatives = softened.Alternatives
	result.Suggestions = softened.Suggestions
	if len(softened.RelaxedCriteria) > 0 {
		result.RelaxedCriteria = softened.RelaxedCriteria
	}
}

func buildQueryText(candidate *models.Candidate, criteria string) string {
	text := candidate.EmbeddingText()
	if criteria != "" {
		text += "\nSearch Criteria: " + criteria
	}
	return text
}

// matchScoreFromDistance converts cosine distance to the caller-facing score.
// It is deliberately not clamped: an anomalous distance above 1 shows up as a
// negative score instead of being hidden.
func matchScoreFromDistance(distance float64) float64 {
	return round2(1 - distance)
}

func filteredNote(filteredOut int) string {
	return fmt.Sprintf("Filtered %d jobs not meeting requirements", filteredOut)
}

func normalizeNumResults(numResults int) int {
	if numResults <= 0 {
		return DefaultNumResults
	}
	return numResults
}

func observeStep(step string, started time.Time) {
	metrics.SearchStepDuration.WithLabelValues(step).Observe(time.Since(started).Seconds())
}
