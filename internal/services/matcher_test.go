package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/job-matcher/internal/domain/models"
	"github.com/maxaizer/job-matcher/internal/events"
	"github.com/maxaizer/job-matcher/internal/vector"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockJobs struct {
	mock.Mock
}

func (m *mockJobs) GetAll(ctx context.Context) ([]models.Job, error) {
	args := m.Called(ctx)
	jobs, _ := args.Get(0).([]models.Job)
	return jobs, args.Error(1)
}

func (m *mockJobs) GetByIDs(ctx context.Context, ids []string) ([]models.Job, error) {
	args := m.Called(ctx, ids)
	jobs, _ := args.Get(0).([]models.Job)
	return jobs, args.Error(1)
}

type mockCandidates struct {
	mock.Mock
}

func (m *mockCandidates) GetByID(ctx context.Context, id string) (*models.Candidate, error) {
	args := m.Called(ctx, id)
	candidate, _ := args.Get(0).(*models.Candidate)
	return candidate, args.Error(1)
}

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	vec, _ := args.Get(0).([]float32)
	return vec, args.Error(1)
}

type mockIndex struct {
	mock.Mock
}

func (m *mockIndex) IsConfigured() bool {
	return m.Called().Bool(0)
}

func (m *mockIndex) Query(vec []float32, k int, excludeIDs []string) ([]vector.Neighbor, error) {
	args := m.Called(vec, k, excludeIDs)
	neighbors, _ := args.Get(0).([]vector.Neighbor)
	return neighbors, args.Error(1)
}

func testCandidate() *models.Candidate {
	return &models.Candidate{
		ID:        "cand-1",
		Name:      "Sam",
		Skills:    "Python,AWS,Docker",
		MinSalary: 100000,
	}
}

func Test_Search_WhenCandidateUnknown_ShouldReturnNotFound(t *testing.T) {

	candidates := &mockCandidates{}
	candidates.On("GetByID", mock.Anything, "ghost").Return(nil, nil)

	matcher := NewMatcher(&mockJobs{}, candidates, &mockEmbedder{}, &mockIndex{},
		EventBus.New(), time.Second)

	result, err := matcher.Search(context.Background(), "ghost", "", 5)

	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ErrCandidateNotFound))
}

func Test_Search_WhenVectorPathAvailable_ShouldScoreFromDistance(t *testing.T) {

	candidate := testCandidate()
	candidate.DeclinedJobIDs = "job-declined"

	candidates := &mockCandidates{}
	candidates.On("GetByID", mock.Anything, "cand-1").Return(candidate, nil)

	embedder := &mockEmbedder{}
	embedder.On("EmbedQuery", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)

	index := &mockIndex{}
	index.On("IsConfigured").Return(true)
	index.On("Query", mock.Anything, 3, []string{"job-declined"}).
		Return([]vector.Neighbor{
			{ID: "job-python", Distance: 0.12},
			{ID: "job-java", Distance: 0.3},
		}, nil)

	jobs := &mockJobs{}
	jobs.On("GetByIDs", mock.Anything, []string{"job-python", "job-java"}).
		Return([]models.Job{remotePythonJob(), onsiteJavaJob()}, nil)

	matcher := NewMatcher(jobs, candidates, embedder, index, EventBus.New(), time.Second)

	result, err := matcher.Search(context.Background(), "cand-1", "", 2)

	assert.NoError(t, err)
	assert.Equal(t, models.SearchTypeVector, result.SearchType)
	assert.Len(t, result.Matches, 2)
	assert.Equal(t, "job-python", result.Matches[0].JobID)
	assert.Equal(t, 0.88, result.Matches[0].MatchScore)
	assert.Equal(t, 0.7, result.Matches[1].MatchScore)
	index.AssertExpectations(t)
}

func Test_Search_WhenIndexReturnsDeclinedJob_ShouldExcludeItLocally(t *testing.T) {

	candidate := testCandidate()
	candidate.DeclinedJobIDs = "job-python"

	candidates := &mockCandidates{}
	candidates.On("GetByID", mock.Anything, "cand-1").Return(candidate, nil)

	embedder := &mockEmbedder{}
	embedder.On("EmbedQuery", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)

	// the exclusion hint is ignored and the declined job comes back anyway
	index := &mockIndex{}
	index.On("IsConfigured").Return(true)
	index.On("Query", mock.Anything, 3, []string{"job-python"}).
		Return([]vector.Neighbor{
			{ID: "job-python", Distance: 0.1},
			{ID: "job-java", Distance: 0.3},
		}, nil)

	jobs := &mockJobs{}
	jobs.On("GetByIDs", mock.Anything, []string{"job-python", "job-java"}).
		Return([]models.Job{remotePythonJob(), onsiteJavaJob()}, nil)

	matcher := NewMatcher(jobs, candidates, embedder, index, EventBus.New(), time.Second)

	result, err := matcher.Search(context.Background(), "cand-1", "", 2)

	assert.NoError(t, err)
	assert.Len(t, result.Matches, 1)
	assert.Equal(t, "job-java", result.Matches[0].JobID)
}

func Test_Search_ShouldAppendAdditionalCriteriaToQueryText(t *testing.T) {

	candidates := &mockCandidates{}
	candidates.On("GetByID", mock.Anything, "cand-1").Return(testCandidate(), nil)

	embedder := &mockEmbedder{}
	embedder.On("EmbedQuery", mock.Anything, mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "Minimum salary: $100,000") &&
			strings.Contains(text, "open to contract roles")
	})).Return([]float32{1, 0}, nil)

	index := &mockIndex{}
	index.On("IsConfigured").Return(true)
	index.On("Query", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	jobs := &mockJobs{}
	jobs.On("GetByIDs", mock.Anything, mock.Anything).Return(nil, nil)

	matcher := NewMatcher(jobs, candidates, embedder, index, EventBus.New(), time.Second)

	_, err := matcher.Search(context.Background(), "cand-1", "open to contract roles", 5)

	assert.NoError(t, err)
	embedder.AssertExpectations(t)
}

func Test_Search_WhenIndexNotConfigured_ShouldFallBackSilently(t *testing.T) {

	candidates := &mockCandidates{}
	candidates.On("GetByID", mock.Anything, "cand-1").Return(testCandidate(), nil)

	index := &mockIndex{}
	index.On("IsConfigured").Return(false)

	jobs := &mockJobs{}
	jobs.On("GetAll", mock.Anything).Return([]models.Job{remotePythonJob(), onsiteJavaJob()}, nil)

	matcher := NewMatcher(jobs, candidates, &mockEmbedder{}, index, EventBus.New(), time.Second)

	result, err := matcher.Search(context.Background(), "cand-1", "", 5)

	assert.NoError(t, err)
	assert.Equal(t, models.SearchTypeFallback, result.SearchType)
	assert.NotEmpty(t, result.Matches)
	assert.Equal(t, "job-python", result.Matches[0].JobID)
}

func Test_Search_WhenEmbeddingFails_ShouldFallBackSilently(t *testing.T) {

	candidates := &mockCandidates{}
	candidates.On("GetByID", mock.Anything, "cand-1").Return(testCandidate(), nil)

	embedder := &mockEmbedder{}
	embedder.On("EmbedQuery", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	index := &mockIndex{}
	index.On("IsConfigured").Return(true)

	jobs := &mockJobs{}
	jobs.On("GetAll", mock.Anything).Return([]models.Job{remotePythonJob()}, nil)

	matcher := NewMatcher(jobs, candidates, embedder, index, EventBus.New(), time.Second)

	result, err := matcher.Search(context.Background(), "cand-1", "", 5)

	assert.NoError(t, err)
	assert.Equal(t, models.SearchTypeFallback, result.SearchType)
}

func Test_Search_WhenNoEmbedderConfigured_ShouldFallBackWithoutTouchingIndex(t *testing.T) {

	candidates := &mockCandidates{}
	candidates.On("GetByID", mock.Anything, "cand-1").Return(testCandidate(), nil)

	jobs := &mockJobs{}
	jobs.On("GetAll", mock.Anything).Return([]models.Job{remotePythonJob()}, nil)

	index := &mockIndex{}

	matcher := NewMatcher(jobs, candidates, nil, index, EventBus.New(), time.Second)

	result, err := matcher.Search(context.Background(), "cand-1", "", 5)

	assert.NoError(t, err)
	assert.Equal(t, models.SearchTypeFallback, result.SearchType)
	index.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything)
}

func Test_SearchByText_WhenVectorUnavailable_ShouldSurfaceError(t *testing.T) {

	index := &mockIndex{}
	index.On("IsConfigured").Return(false)

	matcher := NewMatcher(&mockJobs{}, &mockCandidates{}, &mockEmbedder{}, index,
		EventBus.New(), time.Second)

	result, err := matcher.SearchByText(context.Background(), "remote python jobs", nil, 5)

	assert.Nil(t, result)
	assert.True(t, errors.Is(err, ErrVectorUnavailable))
}

func Test_SearchByText_ShouldReturnSemanticMatches(t *testing.T) {

	embedder := &mockEmbedder{}
	embedder.On("EmbedQuery", mock.Anything, "remote python jobs").Return([]float32{1, 0}, nil)

	index := &mockIndex{}
	index.On("IsConfigured").Return(true)
	index.On("Query", mock.Anything, 1, []string(nil)).
		Return([]vector.Neighbor{{ID: "job-python", Distance: 0.2}}, nil)

	jobs := &mockJobs{}
	jobs.On("GetByIDs", mock.Anything, []string{"job-python"}).
		Return([]models.Job{remotePythonJob()}, nil)

	matcher := NewMatcher(jobs, &mockCandidates{}, embedder, index, EventBus.New(), time.Second)

	result, err := matcher.SearchByText(context.Background(), "remote python jobs", nil, 1)

	assert.NoError(t, err)
	assert.Len(t, result.Matches, 1)
	assert.Equal(t, 0.8, result.Matches[0].MatchScore)
}

func Test_SearchByText_ShouldExcludeRequestedIDsEvenWhenIndexReturnsThem(t *testing.T) {

	embedder := &mockEmbedder{}
	embedder.On("EmbedQuery", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)

	index := &mockIndex{}
	index.On("IsConfigured").Return(true)
	index.On("Query", mock.Anything, 3, []string{"job-java"}).
		Return([]vector.Neighbor{
			{ID: "job-java", Distance: 0.1},
			{ID: "job-python", Distance: 0.2},
		}, nil)

	jobs := &mockJobs{}
	jobs.On("GetByIDs", mock.Anything, []string{"job-java", "job-python"}).
		Return([]models.Job{onsiteJavaJob(), remotePythonJob()}, nil)

	matcher := NewMatcher(jobs, &mockCandidates{}, embedder, index, EventBus.New(), time.Second)

	result, err := matcher.SearchByText(context.Background(), "python jobs", []string{"job-java"}, 2)

	assert.NoError(t, err)
	assert.Len(t, result.Matches, 1)
	assert.Equal(t, "job-python", result.Matches[0].JobID)
}

func Test_SearchWithUpdatedPreferences_ShouldEnforceNewSalaryFloor(t *testing.T) {

	candidate := testCandidate()
	candidate.MinSalary = 180000

	candidates := &mockCandidates{}
	candidates.On("GetByID", mock.Anything, "cand-1").Return(candidate, nil)

	wellPaying := remotePythonJob()
	wellPaying.ID = "job-high"
	wellPaying.SalaryMax = 220000
	underPaying := remotePythonJob()
	underPaying.ID = "job-low"
	underPaying.SalaryMax = 190000

	embedder := &mockEmbedder{}
	embedder.On("EmbedQuery", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)

	index := &mockIndex{}
	index.On("IsConfigured").Return(true)
	index.On("Query", mock.Anything, 25, []string{}).
		Return([]vector.Neighbor{
			{ID: "job-low", Distance: 0.1},
			{ID: "job-high", Distance: 0.2},
		}, nil)

	jobs := &mockJobs{}
	jobs.On("GetByIDs", mock.Anything, mock.Anything).
		Return([]models.Job{underPaying, wellPaying}, nil)

	bus := EventBus.New()
	var published *events.CandidatePreferencesChanged
	_ = bus.Subscribe(events.CandidatePreferencesChangedTopic,
		func(event events.CandidatePreferencesChanged) { published = &event })

	matcher := NewMatcher(jobs, candidates, embedder, index, bus, time.Second)

	salary := 200000
	patch := models.PreferencePatch{MinSalary: &salary}

	result, err := matcher.SearchWithUpdatedPreferences(context.Background(), "cand-1", patch, "", 5)

	assert.NoError(t, err)
	assert.Equal(t, models.SearchTypeVectorAugmented, result.SearchType)
	assert.Len(t, result.Matches, 1)
	assert.Equal(t, "job-high", result.Matches[0].JobID)
	assert.Equal(t, 1, result.FilteredOut)
	assert.Contains(t, result.Note, "Filtered 1 jobs")
	assert.NotNil(t, published)
	assert.Equal(t, "cand-1", published.CandidateID)
	assert.Equal(t, []string{"min_salary"}, published.UpdatedFields)
}

func Test_SearchWithUpdatedPreferences_WhenIndexReturnsDeclinedJob_ShouldExcludeItLocally(t *testing.T) {

	candidate := testCandidate()
	candidate.DeclinedJobIDs = "job-python"

	candidates := &mockCandidates{}
	candidates.On("GetByID", mock.Anything, "cand-1").Return(candidate, nil)

	embedder := &mockEmbedder{}
	embedder.On("EmbedQuery", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)

	// the exclusion hint is ignored and the declined job comes back anyway
	index := &mockIndex{}
	index.On("IsConfigured").Return(true)
	index.On("Query", mock.Anything, 30, []string{"job-python"}).
		Return([]vector.Neighbor{
			{ID: "job-python", Distance: 0.1},
			{ID: "job-java", Distance: 0.3},
		}, nil)

	jobs := &mockJobs{}
	jobs.On("GetByIDs", mock.Anything, []string{"job-python", "job-java"}).
		Return([]models.Job{remotePythonJob(), onsiteJavaJob()}, nil)

	matcher := NewMatcher(jobs, candidates, embedder, index, EventBus.New(), time.Second)

	result, err := matcher.SearchWithUpdatedPreferences(context.Background(), "cand-1",
		models.PreferencePatch{}, "", 5)

	assert.NoError(t, err)
	assert.Len(t, result.Matches, 1)
	assert.Equal(t, "job-java", result.Matches[0].JobID)
	assert.Zero(t, result.FilteredOut)
}

func Test_SearchWithUpdatedPreferences_WhenPatchEmpty_ShouldNotPublish(t *testing.T) {

	candidates := &mockCandidates{}
	candidates.On("GetByID", mock.Anything, "cand-1").Return(testCandidate(), nil)

	embedder := &mockEmbedder{}
	embedder.On("EmbedQuery", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)

	index := &mockIndex{}
	index.On("IsConfigured").Return(true)
	index.On("Query", mock.Anything, mock.Anything, mock.Anything).
		Return([]vector.Neighbor{{ID: "job-python", Distance: 0.1}}, nil)

	jobs := &mockJobs{}
	jobs.On("GetByIDs", mock.Anything, mock.Anything).Return([]models.Job{remotePythonJob()}, nil)

	bus := EventBus.New()
	published := false
	_ = bus.Subscribe(events.CandidatePreferencesChangedTopic,
		func(event events.CandidatePreferencesChanged) { published = true })

	matcher := NewMatcher(jobs, candidates, embedder, index, bus, time.Second)

	_, err := matcher.SearchWithUpdatedPreferences(context.Background(), "cand-1",
		models.PreferencePatch{}, "", 5)

	assert.NoError(t, err)
	assert.False(t, published)
}

func Test_SearchWithUpdatedPreferences_WhenEverythingFiltered_ShouldOfferAlternatives(t *testing.T) {

	candidate := testCandidate()

	candidates := &mockCandidates{}
	candidates.On("GetByID", mock.Anything, "cand-1").Return(candidate, nil)

	underPaying := remotePythonJob()
	underPaying.SalaryMax = 90000

	embedder := &mockEmbedder{}
	embedder.On("EmbedQuery", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)

	index := &mockIndex{}
	index.On("IsConfigured").Return(true)
	index.On("Query", mock.Anything, mock.Anything, mock.Anything).
		Return([]vector.Neighbor{{ID: underPaying.ID, Distance: 0.1}}, nil)

	jobs := &mockJobs{}
	jobs.On("GetByIDs", mock.Anything, mock.Anything).Return([]models.Job{underPaying}, nil)
	jobs.On("GetAll", mock.Anything).Return([]models.Job{underPaying}, nil)

	matcher := NewMatcher(jobs, candidates, embedder, index, EventBus.New(), time.Second)

	result, err := matcher.SearchWithUpdatedPreferences(context.Background(), "cand-1",
		models.PreferencePatch{}, "", 5)

	assert.NoError(t, err)
	assert.Zero(t, result.TotalFound)
	assert.NotEmpty(t, result.Alternatives)
	assert.Equal(t, "salary", result.Alternatives[0].Relaxed)
	assert.NotEmpty(t, result.Suggestions)
}
