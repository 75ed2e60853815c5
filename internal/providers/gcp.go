package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	monitoring "cloud.google.com/go/monitoring/apiv3/v2"
	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/ady24s/Cloud9/pkg/types"
)

const gcpCPUMetricType = "compute.googleapis.com/instance/cpu/utilization"

// timeSeriesLister is the slice of the Cloud Monitoring client the
// adapter uses. maxSeries bounds how many series are drained from the
// iterator.
type timeSeriesLister interface {
	ListCPUTimeSeries(ctx context.Context, projectID string, start, end time.Time, maxSeries int) ([]*monitoringpb.TimeSeries, error)
}

// gcpClientFactory builds a monitoring client from service-account JSON
type gcpClientFactory func(ctx context.Context, credsJSON []byte) (timeSeriesLister, error)

// GCPAdapter retrieves GCE CPU utilization via Cloud Monitoring
type GCPAdapter struct {
	opts      Options
	newClient gcpClientFactory
	log       *zap.Logger
}

// NewGCPAdapter creates a GCP adapter backed by the real SDK
func NewGCPAdapter(opts Options, log *zap.Logger) *GCPAdapter {
	return &GCPAdapter{
		opts:      opts,
		newClient: newGCPClient,
		log:       log,
	}
}

// Provider returns the provider identifier
func (g *GCPAdapter) Provider() types.Provider {
	return types.ProviderGCP
}

// Available reports whether the adapter can serve fetches
func (g *GCPAdapter) Available() bool {
	return g.newClient != nil
}

// Fetch lists recent CPU utilization time series for the service
// account's project and takes the most recent point of each. GCP
// reports CPU as a 0-1 fraction; values are normalized to percent.
func (g *GCPAdapter) Fetch(ctx context.Context, m Material) ([]types.MetricSample, error) {
	if m.ExtraJSON == "" {
		return nil, nil
	}

	var sa struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal([]byte(m.ExtraJSON), &sa); err != nil {
		return nil, &AuthError{Provider: types.ProviderGCP, Err: fmt.Errorf("parse service account: %w", err)}
	}
	if sa.ProjectID == "" {
		return nil, nil
	}

	client, err := g.newClient(ctx, []byte(m.ExtraJSON))
	if err != nil {
		return nil, &AuthError{Provider: types.ProviderGCP, Err: err}
	}

	if err := g.opts.wait(ctx); err != nil {
		return nil, &AuthError{Provider: types.ProviderGCP, Err: err}
	}

	end := time.Now().UTC()
	start := end.Add(-g.opts.Lookback)

	series, err := client.ListCPUTimeSeries(ctx, sa.ProjectID, start, end, g.opts.MaxResources)
	if err != nil {
		return nil, &AuthError{Provider: types.ProviderGCP, Err: err}
	}

	var samples []types.MetricSample
	for _, ts := range series {
		points := ts.GetPoints()
		if len(points) == 0 {
			continue
		}

		labels := ts.GetResource().GetLabels()
		instanceID := labels["instance_id"]
		if instanceID == "" {
			instanceID = "unknown"
		}

		// Points come back most-recent first
		cpu := NormalizeFraction(points[0].GetValue().GetDoubleValue())

		samples = append(samples, types.MetricSample{
			ID:           uuid.New().String(),
			Provider:     types.ProviderGCP,
			ResourceID:   instanceID,
			ResourceName: instanceID,
			Timestamp:    end,
			CPUUsage:     cpu,
			ResourceKind: "gce",
			Region:       labels["zone"],
		})
	}

	return samples, nil
}

// gcpMetricClient adapts the SDK client to timeSeriesLister
type gcpMetricClient struct {
	client *monitoring.MetricClient
}

func (c *gcpMetricClient) ListCPUTimeSeries(ctx context.Context, projectID string, start, end time.Time, maxSeries int) ([]*monitoringpb.TimeSeries, error) {
	req := &monitoringpb.ListTimeSeriesRequest{
		Name:   fmt.Sprintf("projects/%s", projectID),
		Filter: fmt.Sprintf("metric.type = %q", gcpCPUMetricType),
		Interval: &monitoringpb.TimeInterval{
			StartTime: timestamppb.New(start),
			EndTime:   timestamppb.New(end),
		},
		View: monitoringpb.ListTimeSeriesRequest_FULL,
	}

	var series []*monitoringpb.TimeSeries
	it := c.client.ListTimeSeries(ctx, req)
	for len(series) < maxSeries {
		ts, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		series = append(series, ts)
	}
	return series, nil
}

// newGCPClient builds a real monitoring client from service-account JSON
func newGCPClient(ctx context.Context, credsJSON []byte) (timeSeriesLister, error) {
	client, err := monitoring.NewMetricClient(ctx, option.WithCredentialsJSON(credsJSON))
	if err != nil {
		return nil, err
	}
	return &gcpMetricClient{client: client}, nil
}
