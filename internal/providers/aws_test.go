package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ady24s/Cloud9/pkg/types"
)

type fakeEC2 struct {
	instances []string
	err       error
}

func (f *fakeEC2) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	var insts []ec2types.Instance
	for _, id := range f.instances {
		insts = append(insts, ec2types.Instance{
			InstanceId: aws.String(id),
			State:      &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning},
		})
	}
	return &ec2.DescribeInstancesOutput{
		Reservations: []ec2types.Reservation{{Instances: insts}},
	}, nil
}

type fakeCloudWatch struct {
	// datapoints returned per metric name
	byMetric map[string][]cwtypes.Datapoint
	err      error
}

func (f *fakeCloudWatch) GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &cloudwatch.GetMetricStatisticsOutput{
		Datapoints: f.byMetric[*params.MetricName],
	}, nil
}

func testAWSAdapter(factory awsClientFactory, regions ...string) *AWSAdapter {
	if len(regions) == 0 {
		regions = []string{"us-east-1"}
	}
	opts := DefaultOptions()
	opts.Limiter = nil
	return &AWSAdapter{
		opts:       opts,
		regions:    regions,
		newClients: factory,
		log:        zap.NewNop(),
	}
}

func TestAWSAdapter_MissingCredentialFields(t *testing.T) {
	called := false
	adapter := testAWSAdapter(func(ctx context.Context, m Material, region string) (ec2API, cloudWatchAPI, error) {
		called = true
		return nil, nil, nil
	})

	samples, err := adapter.Fetch(context.Background(), Material{AccessKey: "AKIA..."})
	require.NoError(t, err)
	assert.Empty(t, samples)
	assert.False(t, called, "must not contact the network without a secret key")
}

func TestAWSAdapter_FetchSamples(t *testing.T) {
	now := time.Now()
	cw := &fakeCloudWatch{byMetric: map[string][]cwtypes.Datapoint{
		"CPUUtilization": {
			{Timestamp: aws.Time(now.Add(-10 * time.Minute)), Average: aws.Float64(80)},
			{Timestamp: aws.Time(now.Add(-5 * time.Minute)), Average: aws.Float64(42.5)},
		},
		"NetworkIn":  {{Timestamp: aws.Time(now), Sum: aws.Float64(1000)}},
		"NetworkOut": {{Timestamp: aws.Time(now), Sum: aws.Float64(500)}},
	}}
	adapter := testAWSAdapter(func(ctx context.Context, m Material, region string) (ec2API, cloudWatchAPI, error) {
		return &fakeEC2{instances: []string{"i-abc123"}}, cw, nil
	})

	samples, err := adapter.Fetch(context.Background(), Material{AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err)
	require.Len(t, samples, 1)

	s := samples[0]
	assert.Equal(t, types.ProviderAWS, s.Provider)
	assert.Equal(t, "i-abc123", s.ResourceID)
	assert.Equal(t, 42.5, s.CPUUsage, "most recent datapoint wins")
	assert.Equal(t, 1500.0, s.NetworkBytes)
	assert.Equal(t, 0.0, s.MemoryUsage, "unavailable metric defaults to zero")
	assert.Equal(t, "ec2", s.ResourceKind)
	assert.Equal(t, "running", s.State)
}

func TestAWSAdapter_RegionFailureIsPartial(t *testing.T) {
	cw := &fakeCloudWatch{byMetric: map[string][]cwtypes.Datapoint{
		"CPUUtilization": {{Timestamp: aws.Time(time.Now()), Average: aws.Float64(10)}},
	}}
	adapter := testAWSAdapter(func(ctx context.Context, m Material, region string) (ec2API, cloudWatchAPI, error) {
		if region == "us-east-1" {
			return &fakeEC2{err: errors.New("throttled")}, cw, nil
		}
		return &fakeEC2{instances: []string{"i-west"}}, cw, nil
	}, "us-east-1", "us-west-2")

	samples, err := adapter.Fetch(context.Background(), Material{AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err, "one failed region must not abort the fetch")
	require.Len(t, samples, 1)
	assert.Equal(t, "i-west", samples[0].ResourceID)
	assert.Equal(t, "us-west-2", samples[0].Region)
}

func TestAWSAdapter_AllRegionsFailing(t *testing.T) {
	adapter := testAWSAdapter(func(ctx context.Context, m Material, region string) (ec2API, cloudWatchAPI, error) {
		return nil, nil, errors.New("invalid credentials")
	}, "us-east-1", "us-west-2")

	samples, err := adapter.Fetch(context.Background(), Material{AccessKey: "a", SecretKey: "s"})
	assert.Empty(t, samples)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, types.ProviderAWS, authErr.Provider)
}

func TestAWSAdapter_BoundsInstanceFanOut(t *testing.T) {
	ids := make([]string, 50)
	for i := range ids {
		ids[i] = "i-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	cw := &fakeCloudWatch{byMetric: map[string][]cwtypes.Datapoint{}}
	adapter := testAWSAdapter(func(ctx context.Context, m Material, region string) (ec2API, cloudWatchAPI, error) {
		return &fakeEC2{instances: ids}, cw, nil
	})
	adapter.opts.MaxResources = 20

	samples, err := adapter.Fetch(context.Background(), Material{AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err)
	assert.Len(t, samples, 20)
}
