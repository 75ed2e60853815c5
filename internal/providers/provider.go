// Package providers implements per-cloud metric retrieval behind a
// common adapter contract. Adapters are pure with respect to storage:
// they return normalized samples and never touch the database.
package providers

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/ady24s/Cloud9/pkg/types"
)

// Material is the decrypted credential material handed to an adapter.
// Field population is provider-specific; adapters check their own
// required fields before any network call.
type Material struct {
	AccessKey string
	SecretKey string
	ExtraJSON string
}

// Adapter fetches normalized metric samples for one provider using one
// user's decrypted credentials. A fetch with missing required fields
// returns zero samples and a nil error without contacting the network.
// Top-level failures (bad credentials, unreachable endpoints) return
// zero samples and an *AuthError; failures inside a single
// region/zone/resource are logged and skipped.
type Adapter interface {
	Provider() types.Provider
	Available() bool
	Fetch(ctx context.Context, m Material) ([]types.MetricSample, error)
}

// AuthError classifies a top-level provider failure. The scheduler
// logs it and moves on; credentials are never auto-revoked.
type AuthError struct {
	Provider types.Provider
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: provider auth failure: %v", e.Provider, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Options bounds the fan-out and cost of a single fetch
type Options struct {
	Lookback     time.Duration // metric query window, most recent datapoint wins
	MaxRegions   int           // AWS region fan-out bound
	MaxResources int           // per-region/zone resource bound
	Timeout      time.Duration // per remote call
	Limiter      *rate.Limiter // shared across metric queries, may be nil
}

// DefaultOptions returns fetch bounds matching the scheduler defaults
func DefaultOptions() Options {
	return Options{
		Lookback:     time.Hour,
		MaxRegions:   3,
		MaxResources: 20,
		Timeout:      30 * time.Second,
		Limiter:      rate.NewLimiter(rate.Limit(10), 20),
	}
}

func (o Options) wait(ctx context.Context) error {
	if o.Limiter == nil {
		return nil
	}
	return o.Limiter.Wait(ctx)
}

// Registry holds the adapters that advertise availability. Absent
// adapters are simply omitted from the sweep's provider list.
type Registry struct {
	adapters []Adapter
}

// NewRegistry builds a registry from the given adapters, keeping only
// those that report themselves available.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{}
	for _, a := range adapters {
		if a != nil && a.Available() {
			r.adapters = append(r.adapters, a)
		}
	}
	return r
}

// Adapters returns the available adapters in registration order
func (r *Registry) Adapters() []Adapter {
	return r.adapters
}

// Get returns the adapter for a provider, if registered and available
func (r *Registry) Get(p types.Provider) (Adapter, bool) {
	for _, a := range r.adapters {
		if a.Provider() == p {
			return a, true
		}
	}
	return nil, false
}
