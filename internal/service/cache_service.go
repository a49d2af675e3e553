package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sprs-api/internal/dto"
	"github.com/noah-isme/sprs-api/internal/models"
	appErrors "github.com/noah-isme/sprs-api/pkg/errors"
)

const queueKeyPrefix = "dash:queue:"

// cachedQueues lists the request queues that back a dashboard.
var cachedQueues = map[models.RequestStatus]bool{
	models.RequestStatusPending:  true,
	models.RequestStatusAccepted: true,
}

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService caches the dashboard request queues. A nil or disabled
// service always misses.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

func queueKey(status models.RequestStatus) string {
	return queueKeyPrefix + string(status)
}

// Queue loads the cached head of the status queue. The bool reports a hit.
func (s *CacheService) Queue(ctx context.Context, status models.RequestStatus) (*dto.RequestQueue, bool, error) {
	if !s.Enabled() || !cachedQueues[status] {
		return nil, false, nil
	}
	key := queueKey(status)
	var queue dto.RequestQueue
	start := time.Now()
	err := s.repo.Get(ctx, key, &queue)
	duration := time.Since(start)
	if err != nil {
		s.metrics.RecordCacheOperation(false, duration)
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, false, nil
		}
		s.logger.Warn("queue cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false, err
	}
	s.metrics.RecordCacheOperation(true, duration)
	return &queue, true, nil
}

// StoreQueue caches the head of the status queue. A non-positive ttl uses
// the service default.
func (s *CacheService) StoreQueue(ctx context.Context, status models.RequestStatus, queue *dto.RequestQueue, ttl time.Duration) error {
	if !s.Enabled() || !cachedQueues[status] || queue == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	key := queueKey(status)
	start := time.Now()
	err := s.repo.Set(ctx, key, queue, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("queue cache write failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// InvalidateTransition drops the cached queues a request leaves or enters
// when it moves from one status to the next.
func (s *CacheService) InvalidateTransition(ctx context.Context, from, to models.RequestStatus) error {
	if !s.Enabled() {
		return nil
	}
	var firstErr error
	for _, status := range []models.RequestStatus{from, to} {
		if !cachedQueues[status] {
			continue
		}
		key := queueKey(status)
		if err := s.repo.DeleteByPattern(ctx, key); err != nil {
			s.logger.Warn("queue cache invalidate failed", zap.String("key", key), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
