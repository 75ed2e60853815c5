package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ady24s/Cloud9/pkg/types"
)

type stubAdapter struct {
	provider  types.Provider
	available bool
}

func (s *stubAdapter) Provider() types.Provider { return s.provider }
func (s *stubAdapter) Available() bool          { return s.available }
func (s *stubAdapter) Fetch(ctx context.Context, m Material) ([]types.MetricSample, error) {
	return nil, nil
}

func TestRegistry_OmitsUnavailableAdapters(t *testing.T) {
	r := NewRegistry(
		&stubAdapter{provider: types.ProviderAWS, available: true},
		&stubAdapter{provider: types.ProviderGCP, available: false},
		&stubAdapter{provider: types.ProviderAzure, available: true},
	)

	require.Len(t, r.Adapters(), 2)

	_, ok := r.Get(types.ProviderAWS)
	assert.True(t, ok)
	_, ok = r.Get(types.ProviderGCP)
	assert.False(t, ok, "unavailable adapter must be omitted from the registry")
	_, ok = r.Get(types.ProviderAzure)
	assert.True(t, ok)
}

func TestRegistry_DefaultAdaptersAvailable(t *testing.T) {
	log := zap.NewNop()
	opts := DefaultOptions()

	r := NewRegistry(
		NewAWSAdapter(opts, log),
		NewGCPAdapter(opts, log),
		NewAzureAdapter(opts, log),
	)
	assert.Len(t, r.Adapters(), 3)
}

func TestNormalizeFraction(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.42, 42.0},
		{0, 0},
		{1, 100},
		{1.5, 100},  // clamped
		{-0.1, 0},   // clamped
		{0.005, 0.5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeFraction(tt.in))
	}
}
