package tests

import (
	"context"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/job-matcher/internal/domain/models"
	"github.com/maxaizer/job-matcher/internal/events"
	"github.com/maxaizer/job-matcher/internal/repositories"
	"github.com/maxaizer/job-matcher/internal/services"
	"github.com/maxaizer/job-matcher/internal/vector"
	"github.com/stretchr/testify/assert"
)

// newFallbackMatcher builds a matcher with no embedding gateway, so every
// search runs through the deterministic scorer against the seeded catalog.
func newFallbackMatcher(bus EventBus.Bus) *services.Matcher {
	jobs := repositories.NewJobsRepository(dbCtx.DB)
	candidates := repositories.NewCandidatesRepository(dbCtx.DB)
	return services.NewMatcher(jobs, candidates, nil, vector.NewIndex(0), bus, 10*time.Second)
}

func Test_Search_WithoutEmbeddingGateway_ShouldRankSeededCatalogByScore(t *testing.T) {

	matcher := newFallbackMatcher(EventBus.New())

	result, err := matcher.Search(context.Background(), "cand-001", "", 5)

	assert.NoError(t, err)
	assert.Equal(t, models.SearchTypeFallback, result.SearchType)
	// remote Fintech/Healthcare postings survive the filters, non-remote ones do not
	assert.Len(t, result.Matches, 3)
	assert.Equal(t, "job-001", result.Matches[0].JobID)
	assert.Equal(t, "job-006", result.Matches[1].JobID)
	assert.Equal(t, 3, result.FilteredOut)
	assert.Contains(t, result.Note, "Filtered 3 jobs")

	for _, match := range result.Matches {
		assert.GreaterOrEqual(t, match.MatchScore, 0.0)
		assert.LessOrEqual(t, match.MatchScore, 1.0)
	}
}

func Test_SearchWithUpdatedPreferences_AfterStoreUpdate_ShouldOfferAlternatives(t *testing.T) {

	bus := EventBus.New()
	var published *events.CandidatePreferencesChanged
	_ = bus.Subscribe(events.CandidatePreferencesChangedTopic,
		func(event events.CandidatePreferencesChanged) { published = &event })

	matcher := newFallbackMatcher(bus)

	salary := 205000
	patch := models.PreferencePatch{MinSalary: &salary}

	// the caller persists the patch first, the search only works with it
	candidates := repositories.NewCandidatesRepository(dbCtx.DB)
	changed, updatedFields, err := candidates.UpdatePreferences(context.Background(), "cand-002", patch)
	assert.NoError(t, err)
	assert.True(t, changed)
	assert.NotEmpty(t, updatedFields)

	result, err := matcher.SearchWithUpdatedPreferences(context.Background(), "cand-002", patch, "", 5)

	assert.NoError(t, err)
	assert.Equal(t, models.SearchTypeFallbackAugmented, result.SearchType)

	// no ML role pays that much in the catalog, but a different role does
	assert.Zero(t, result.TotalFound)
	assert.NotEmpty(t, result.Alternatives)
	assert.Equal(t, "title", result.Alternatives[0].Relaxed)
	assert.Equal(t, "job-006", result.Alternatives[0].JobID)
	assert.NotEmpty(t, result.Suggestions)

	stored, err := candidates.GetByID(context.Background(), "cand-002")
	assert.NoError(t, err)
	assert.Equal(t, 205000, stored.MinSalary)

	assert.NotNil(t, published)
	assert.Equal(t, "cand-002", published.CandidateID)
	assert.Equal(t, []string{"min_salary"}, published.UpdatedFields)
	assert.NotEmpty(t, published.Text)
}

func Test_DeclineJobs_ShouldBeIdempotentAndExcludeFromResults(t *testing.T) {

	candidates := repositories.NewCandidatesRepository(dbCtx.DB)

	found, err := candidates.DeclineJobs(context.Background(), "cand-003", []string{"job-005"})
	assert.NoError(t, err)
	assert.True(t, found)

	found, err = candidates.DeclineJobs(context.Background(), "cand-003", []string{"job-005"})
	assert.NoError(t, err)
	assert.True(t, found)

	declined, err := candidates.DeclinedJobIDs(context.Background(), "cand-003")
	assert.NoError(t, err)
	assert.Equal(t, []string{"job-005"}, declined)

	matcher := newFallbackMatcher(EventBus.New())
	result, err := matcher.Search(context.Background(), "cand-003", "", 10)
	assert.NoError(t, err)
	for _, match := range result.Matches {
		assert.NotEqual(t, "job-005", match.JobID)
	}
}

func Test_AcceptJob_ShouldOverwritePreviousAcceptance(t *testing.T) {

	candidates := repositories.NewCandidatesRepository(dbCtx.DB)

	found, err := candidates.AcceptJob(context.Background(), "cand-003", "job-005")
	assert.NoError(t, err)
	assert.True(t, found)

	found, err = candidates.AcceptJob(context.Background(), "cand-003", "job-002")
	assert.NoError(t, err)
	assert.True(t, found)

	stored, err := candidates.GetByID(context.Background(), "cand-003")
	assert.NoError(t, err)
	assert.Equal(t, "job-002", stored.AcceptedJobID)
}

func Test_CachedCandidateExistence_ShouldAnswerFromCacheOnRepeat(t *testing.T) {

	candidates := repositories.NewCandidatesRepository(dbCtx.DB)
	cached := repositories.NewCachedCandidateExistence(candidates, time.Minute)

	exists, err := cached.Exists(context.Background(), "cand-001")
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, err = cached.Exists(context.Background(), "cand-001")
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, err = cached.Exists(context.Background(), "ghost")
	assert.NoError(t, err)
	assert.False(t, exists)
}

func Test_JobsRepository_GetByID_WhenUnknown_ShouldReturnNil(t *testing.T) {

	jobs := repositories.NewJobsRepository(dbCtx.DB)

	job, err := jobs.GetByID(context.Background(), "job-999")
	assert.NoError(t, err)
	assert.Nil(t, job)

	job, err = jobs.GetByID(context.Background(), "job-001")
	assert.NoError(t, err)
	assert.Equal(t, "Senior Backend Engineer", job.Title)
}

func Test_Embeddings_ShouldRoundTripVectors(t *testing.T) {

	embeddings := repositories.NewEmbeddingsRepository(dbCtx.DB)

	err := embeddings.Save(context.Background(), "job-001", []float32{0.25, -0.5, 1})
	assert.NoError(t, err)

	vectors, err := embeddings.GetAll(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1}, vectors["job-001"])

	ids, err := embeddings.EmbeddedJobIDs(context.Background())
	assert.NoError(t, err)
	assert.Contains(t, ids, "job-001")

	err = embeddings.Remove(context.Background(), []string{"job-001"})
	assert.NoError(t, err)

	vectors, err = embeddings.GetAll(context.Background())
	assert.NoError(t, err)
	assert.NotContains(t, vectors, "job-001")
}

func Test_SearchByText_WithoutEmbeddingGateway_ShouldReportUnavailable(t *testing.T) {

	matcher := newFallbackMatcher(EventBus.New())

	_, err := matcher.SearchByText(context.Background(), "remote python jobs", nil, 5)
	assert.ErrorIs(t, err, services.ErrVectorUnavailable)
}
