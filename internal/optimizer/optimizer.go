// Package optimizer trains, caches, and queries the per-user clustering
// model that assigns cloud resources to action buckets.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ady24s/Cloud9/internal/store"
	"github.com/ady24s/Cloud9/pkg/types"
)

const (
	// DefaultSeed pins the k-means initialization so the positional
	// cluster-to-action mapping is at least stable per training set
	DefaultSeed int64 = 42

	// maxClusters caps k; fewer training samples lower it to the
	// sample count
	maxClusters = 3

	// historyLimit bounds how much metric history feeds one training run
	historyLimit = 1000
)

// Action labels are positional: cluster 0 need not contain oversized
// instances, it is simply whichever group the seeded k-means labeled 0.
// This is a known limitation of the model, kept as-is deliberately.
var clusterActions = []string{
	"downsize",
	"switch to spot",
	"archive idle storage",
}

// ActionForCluster maps a cluster id to its fixed recommendation text
func ActionForCluster(c int) string {
	if c >= 0 && c < len(clusterActions) {
		return clusterActions[c]
	}
	return clusterActions[len(clusterActions)-1]
}

// MetricHistory is the slice of the metric store the optimizer reads
type MetricHistory interface {
	ListForUser(ctx context.Context, userID string, limit int) ([]types.MetricSample, error)
}

// Optimizer lazily trains per-user models and serves recommendations
// from the cached artifact. Training for the same user is serialized by
// a per-user mutex; two racing trainers do wasted work at worst, never
// corrupt the artifact.
type Optimizer struct {
	history   MetricHistory
	artifacts ArtifactStore
	seed      int64
	log       *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an optimizer over the given history and artifact store
func New(history MetricHistory, artifacts ArtifactStore, log *zap.Logger) *Optimizer {
	return &Optimizer{
		history:   history,
		artifacts: artifacts,
		seed:      DefaultSeed,
		log:       log,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (o *Optimizer) userLock(userID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		o.locks[userID] = l
	}
	return l
}

// Train fits a fresh model from the user's full metric history and
// persists the artifact, replacing any previous one.
func (o *Optimizer) Train(ctx context.Context, userID string) error {
	l := o.userLock(userID)
	l.Lock()
	defer l.Unlock()

	_, err := o.train(ctx, userID)
	return err
}

func (o *Optimizer) train(ctx context.Context, userID string) (*Artifact, error) {
	rows, err := o.history.ListForUser(ctx, userID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load training history: %w", err)
	}
	if len(rows) == 0 {
		return nil, store.ErrNoArtifact
	}

	data := make([][]float64, len(rows))
	for i := range rows {
		data[i] = FeatureVector(&rows[i])
	}

	scaler, err := FitScaler(data)
	if err != nil {
		return nil, err
	}

	k := maxClusters
	if len(data) < k {
		k = len(data)
	}

	centroids, err := KMeans(scaler.TransformAll(data), k, o.seed)
	if err != nil {
		return nil, err
	}

	artifact := &Artifact{
		Scaler:    scaler,
		Centroids: centroids,
		K:         k,
		TrainedAt: time.Now(),
	}

	if err := o.artifacts.Save(ctx, userID, artifact); err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}

	o.log.Info("trained optimizer model",
		zap.String("user_id", userID),
		zap.Int("samples", len(rows)),
		zap.Int("k", k))

	return artifact, nil
}

// loadOrTrain returns the cached artifact, training one on first query
func (o *Optimizer) loadOrTrain(ctx context.Context, userID string) (*Artifact, error) {
	artifact, err := o.artifacts.Load(ctx, userID)
	if err == nil {
		return artifact, nil
	}
	if !errors.Is(err, store.ErrNoArtifact) {
		return nil, err
	}

	l := o.userLock(userID)
	l.Lock()
	defer l.Unlock()

	// Another caller may have trained while we waited
	if artifact, err := o.artifacts.Load(ctx, userID); err == nil {
		return artifact, nil
	}
	return o.train(ctx, userID)
}

// Recommend classifies the user's current resources into action
// buckets using the cached model. A user with no metric history gets
// an empty result, not an error.
func (o *Optimizer) Recommend(ctx context.Context, userID string) ([]types.Recommendation, error) {
	artifact, err := o.loadOrTrain(ctx, userID)
	if errors.Is(err, store.ErrNoArtifact) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := o.history.ListForUser(ctx, userID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	var recs []types.Recommendation
	for _, row := range latestPerResource(rows) {
		v := artifact.Scaler.Transform(FeatureVector(&row))
		cluster := Assign(artifact.Centroids, v)
		recs = append(recs, types.Recommendation{
			ResourceID: row.ResourceID,
			Cluster:    cluster,
			Action:     ActionForCluster(cluster),
		})
	}

	return recs, nil
}

// Invalidate clears the cached artifact so the next query retrains
func (o *Optimizer) Invalidate(ctx context.Context, userID string) error {
	return o.artifacts.Delete(ctx, userID)
}

// FeatureVector extracts the training features from one sample
func FeatureVector(m *types.MetricSample) []float64 {
	return []float64{
		m.CPUUsage,
		m.MemoryUsage,
		m.ExecutionTime,
		m.NetworkBytes,
		m.Power,
	}
}

// latestPerResource keeps the most recent sample for each resource.
// Rows arrive ordered by recency, so the first occurrence wins.
func latestPerResource(rows []types.MetricSample) []types.MetricSample {
	seen := make(map[string]bool, len(rows))
	var out []types.MetricSample
	for _, r := range rows {
		if seen[r.ResourceID] {
			continue
		}
		seen[r.ResourceID] = true
		out = append(out, r)
	}
	return out
}
