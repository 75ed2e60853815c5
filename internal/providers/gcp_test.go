package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/api/monitoredres"

	"github.com/ady24s/Cloud9/pkg/types"
)

type fakeLister struct {
	series []*monitoringpb.TimeSeries
	err    error
}

func (f *fakeLister) ListCPUTimeSeries(ctx context.Context, projectID string, start, end time.Time, maxSeries int) ([]*monitoringpb.TimeSeries, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.series) > maxSeries {
		return f.series[:maxSeries], nil
	}
	return f.series, nil
}

func cpuSeries(instanceID, zone string, fraction float64) *monitoringpb.TimeSeries {
	return &monitoringpb.TimeSeries{
		Resource: &monitoredres.MonitoredResource{
			Type:   "gce_instance",
			Labels: map[string]string{"instance_id": instanceID, "zone": zone},
		},
		Points: []*monitoringpb.Point{
			{Value: &monitoringpb.TypedValue{
				Value: &monitoringpb.TypedValue_DoubleValue{DoubleValue: fraction},
			}},
		},
	}
}

func testGCPAdapter(factory gcpClientFactory) *GCPAdapter {
	opts := DefaultOptions()
	opts.Limiter = nil
	return &GCPAdapter{opts: opts, newClient: factory, log: zap.NewNop()}
}

const serviceAccountJSON = `{"type":"service_account","project_id":"demo-project"}`

func TestGCPAdapter_MissingCredentialFields(t *testing.T) {
	called := false
	adapter := testGCPAdapter(func(ctx context.Context, credsJSON []byte) (timeSeriesLister, error) {
		called = true
		return &fakeLister{}, nil
	})

	samples, err := adapter.Fetch(context.Background(), Material{})
	require.NoError(t, err)
	assert.Empty(t, samples)

	// Service account JSON without a project id is also a precondition
	// failure, not a remote error
	samples, err = adapter.Fetch(context.Background(), Material{ExtraJSON: `{"type":"service_account"}`})
	require.NoError(t, err)
	assert.Empty(t, samples)
	assert.False(t, called)
}

func TestGCPAdapter_NormalizesFractionalCPU(t *testing.T) {
	adapter := testGCPAdapter(func(ctx context.Context, credsJSON []byte) (timeSeriesLister, error) {
		return &fakeLister{series: []*monitoringpb.TimeSeries{
			cpuSeries("1234567890", "us-central1-a", 0.42),
		}}, nil
	})

	samples, err := adapter.Fetch(context.Background(), Material{ExtraJSON: serviceAccountJSON})
	require.NoError(t, err)
	require.Len(t, samples, 1)

	s := samples[0]
	assert.Equal(t, types.ProviderGCP, s.Provider)
	assert.Equal(t, "1234567890", s.ResourceID)
	assert.Equal(t, 42.0, s.CPUUsage)
	assert.Equal(t, "us-central1-a", s.Region)
	assert.Equal(t, "gce", s.ResourceKind)
}

func TestGCPAdapter_SkipsEmptySeries(t *testing.T) {
	adapter := testGCPAdapter(func(ctx context.Context, credsJSON []byte) (timeSeriesLister, error) {
		return &fakeLister{series: []*monitoringpb.TimeSeries{
			{Resource: &monitoredres.MonitoredResource{Labels: map[string]string{"instance_id": "no-points"}}},
			cpuSeries("has-points", "europe-west1-b", 1.5), // clamped to 100
		}}, nil
	})

	samples, err := adapter.Fetch(context.Background(), Material{ExtraJSON: serviceAccountJSON})
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "has-points", samples[0].ResourceID)
	assert.Equal(t, 100.0, samples[0].CPUUsage)
}

func TestGCPAdapter_ClientFailure(t *testing.T) {
	adapter := testGCPAdapter(func(ctx context.Context, credsJSON []byte) (timeSeriesLister, error) {
		return nil, errors.New("invalid service account key")
	})

	samples, err := adapter.Fetch(context.Background(), Material{ExtraJSON: serviceAccountJSON})
	assert.Empty(t, samples)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, types.ProviderGCP, authErr.Provider)
}
