package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fleming-ai/platform/pkg/common/logger"
	"github.com/fleming-ai/platform/pkg/common/models"
	"github.com/redis/go-redis/v9"
)

var ErrNotCached = errors.New("no cached features for patient")

// FeatureStore caches the most recent wide feature row of each patient in
// Redis, keyed by person id. Score endpoints read from here instead of
// re-running the pipeline.
type FeatureStore struct {
	client   *redis.Client
	cacheTTL time.Duration
}

func NewFeatureStore(client *redis.Client, cacheTTL time.Duration) *FeatureStore {
	return &FeatureStore{client: client, cacheTTL: cacheTTL}
}

func featureKey(personID int64) string {
	return fmt.Sprintf("features:%d", personID)
}

func (f *FeatureStore) CacheLatest(ctx context.Context, set models.FeatureSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return err
	}

	key := featureKey(set.PersonID)
	if err := f.client.Set(ctx, key, data, f.cacheTTL).Err(); err != nil {
		logger.Log.WithError(err).WithField("key", key).Error("Failed to cache features")
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"key":  key,
		"size": len(data),
	}).Debug("Cached features")
	return nil
}

func (f *FeatureStore) GetLatest(ctx context.Context, personID int64) (models.FeatureSet, error) {
	data, err := f.client.Get(ctx, featureKey(personID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.FeatureSet{}, ErrNotCached
	}
	if err != nil {
		return models.FeatureSet{}, err
	}

	var set models.FeatureSet
	if err := json.Unmarshal(data, &set); err != nil {
		return models.FeatureSet{}, err
	}
	return set, nil
}
