package repositories

import (
	"context"
	"time"

	"github.com/maxaizer/job-matcher/internal/metrics"
	gocache "github.com/patrickmn/go-cache"
)

type candidateExistenceRepository interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// CachedCandidateExistence fronts existence checks with a TTL cache so the
// chat surface can validate candidate IDs on every turn without hitting the
// database each time. Only positive answers are cached: a missing candidate
// may be created at any moment.
type CachedCandidateExistence struct {
	repo  candidateExistenceRepository
	cache *gocache.Cache
}

func NewCachedCandidateExistence(repo candidateExistenceRepository, ttl time.Duration) *CachedCandidateExistence {
	return &CachedCandidateExistence{repo: repo, cache: gocache.New(ttl, 2*ttl)}
}

func (c *CachedCandidateExistence) Exists(ctx context.Context, id string) (bool, error) {
	if _, found := c.cache.Get(id); found {
		metrics.CacheRequestsCounter.WithLabelValues("candidate_existence", "hit").Inc()
		return true, nil
	}
	metrics.CacheRequestsCounter.WithLabelValues("candidate_existence", "miss").Inc()

	exists, err := c.repo.Exists(ctx, id)
	if err != nil {
		return false, err
	}

	if exists {
		if err = c.cache.Add(id, struct{}{}, gocache.DefaultExpiration); err != nil {
			return exists, err
		}
	}

	return exists, nil
}
