// Package ingest drives the periodic multi-tenant metric ingestion
// sweep.
package ingest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ady24s/Cloud9/internal/crypto"
	"github.com/ady24s/Cloud9/internal/providers"
	"github.com/ady24s/Cloud9/internal/store"
	"github.com/ady24s/Cloud9/pkg/types"
)

// Config holds scheduler configuration
type Config struct {
	Interval        time.Duration
	ProviderTimeout time.Duration
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() *Config {
	return &Config{
		Interval:        10 * time.Minute,
		ProviderTimeout: 30 * time.Second,
	}
}

// CredentialSource reads stored credentials; the scheduler never
// writes them
type CredentialSource interface {
	DistinctUserIDs(ctx context.Context) ([]string, error)
	Get(ctx context.Context, userID string, provider types.Provider) (*types.Credential, error)
}

// MetricSink appends normalized samples and enumerates tenants with
// history
type MetricSink interface {
	DistinctUserIDs(ctx context.Context) ([]string, error)
	AppendBatch(ctx context.Context, samples []types.MetricSample) error
}

// Decrypter opens encrypted credential fields
type Decrypter interface {
	DecryptString(ciphertext string) (string, error)
}

// Retrainer rebuilds a tenant's optimizer model after new rows land.
// Retraining is an optimization; its failure never fails the sweep.
type Retrainer interface {
	Train(ctx context.Context, userID string) error
}

// Scheduler runs ingestion sweeps on a fixed interval, one at a time.
// A sweep still running when the next tick fires is skipped, not
// queued.
type Scheduler struct {
	config    *Config
	registry  *providers.Registry
	creds     CredentialSource
	metrics   MetricSink
	box       Decrypter
	retrainer Retrainer
	log       *zap.Logger

	sweepMu sync.Mutex
	cancel  context.CancelFunc
}

// NewScheduler creates a scheduler. retrainer may be nil.
func NewScheduler(config *Config, registry *providers.Registry, creds CredentialSource, metrics MetricSink, box Decrypter, retrainer Retrainer, log *zap.Logger) *Scheduler {
	if config == nil {
		config = DefaultConfig()
	}
	return &Scheduler{
		config:    config,
		registry:  registry,
		creds:     creds,
		metrics:   metrics,
		box:       box,
		retrainer: retrainer,
		log:       log,
	}
}

// Start runs the sweep loop until the context is canceled. The first
// sweep fires immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.log.Info("ingestion scheduler starting",
		zap.Duration("interval", s.config.Interval))

	go s.Sweep(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("ingestion scheduler shutting down")
			return ctx.Err()

		case <-ticker.C:
			// Run off the loop goroutine so a long sweep cannot delay
			// the next scheduling decision; the overlapping sweep is
			// skipped inside Sweep
			go s.Sweep(ctx)
		}
	}
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Sweep executes one ingestion cycle across all tenants and providers.
// It returns immediately when another sweep is still in flight.
func (s *Scheduler) Sweep(ctx context.Context) {
	if !s.sweepMu.TryLock() {
		s.log.Info("sweep already running, skipping")
		return
	}
	defer s.sweepMu.Unlock()

	started := time.Now()
	tenants, err := s.tenantIDs(ctx)
	if err != nil {
		s.log.Error("enumerate tenants failed", zap.Error(err))
		return
	}

	total := 0
	for _, userID := range tenants {
		total += s.sweepTenant(ctx, userID)
	}

	s.log.Info("sweep complete",
		zap.Int("tenants", len(tenants)),
		zap.Int("rows", total),
		zap.Duration("elapsed", time.Since(started)))
}

// tenantIDs is the union of tenants with stored metrics and tenants
// with at least one credential, so a brand-new credential triggers
// ingestion before any history exists.
func (s *Scheduler) tenantIDs(ctx context.Context) ([]string, error) {
	withMetrics, err := s.metrics.DistinctUserIDs(ctx)
	if err != nil {
		return nil, err
	}
	withCreds, err := s.creds.DistinctUserIDs(ctx)
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(withMetrics)+len(withCreds))
	for _, id := range withMetrics {
		set[id] = true
	}
	for _, id := range withCreds {
		set[id] = true
	}

	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// sweepTenant ingests one tenant across all available providers. Any
// failure, including a panic, is contained to this tenant.
func (s *Scheduler) sweepTenant(ctx context.Context, userID string) (rows int) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("tenant sweep panicked",
				zap.String("user_id", userID),
				zap.Any("panic", r))
		}
	}()

	for _, adapter := range s.registry.Adapters() {
		n, err := s.ingestOne(ctx, userID, adapter)
		if err != nil {
			s.log.Warn("tenant provider ingestion failed",
				zap.String("user_id", userID),
				zap.String("provider", string(adapter.Provider())),
				zap.Error(err))
			continue
		}
		rows += n
	}

	if rows > 0 && s.retrainer != nil {
		if err := s.retrainer.Train(ctx, userID); err != nil {
			s.log.Warn("eager retrain failed",
				zap.String("user_id", userID), zap.Error(err))
		}
	}

	return rows
}

// ingestOne fetches and persists samples for one tenant-provider pair
func (s *Scheduler) ingestOne(ctx context.Context, userID string, adapter providers.Adapter) (int, error) {
	cred, err := s.creds.Get(ctx, userID, adapter.Provider())
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	material, err := s.decryptMaterial(cred)
	if err != nil {
		// Corrupted or foreign ciphertext is handled like invalid
		// credentials: skip this pair, keep the record
		return 0, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.config.ProviderTimeout)
	defer cancel()

	samples, err := adapter.Fetch(fetchCtx, material)
	if err != nil {
		return 0, err
	}
	if len(samples) == 0 {
		return 0, nil
	}

	for i := range samples {
		samples[i].UserID = userID
	}

	if err := s.metrics.AppendBatch(ctx, samples); err != nil {
		return 0, err
	}
	return len(samples), nil
}

func (s *Scheduler) decryptMaterial(cred *types.Credential) (providers.Material, error) {
	var m providers.Material
	var err error

	if m.AccessKey, err = s.box.DecryptString(cred.AccessKeyEnc); err != nil {
		return providers.Material{}, err
	}
	if m.SecretKey, err = s.box.DecryptString(cred.SecretKeyEnc); err != nil {
		return providers.Material{}, err
	}
	if m.ExtraJSON, err = s.box.DecryptString(cred.ExtraJSONEnc); err != nil {
		return providers.Material{}, err
	}
	return m, nil
}

// ensure the sealed box satisfies the scheduler's decrypter seam
var _ Decrypter = (*crypto.SealedBox)(nil)
