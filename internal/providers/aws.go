package providers

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ady24s/Cloud9/pkg/types"
)

// defaultAWSRegions is the region fan-out list, truncated to
// Options.MaxRegions per fetch to bound worst-case latency.
var defaultAWSRegions = []string{"us-east-1", "us-west-2", "eu-west-1"}

// ec2API is the slice of the EC2 client the adapter uses
type ec2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// cloudWatchAPI is the slice of the CloudWatch client the adapter uses
type cloudWatchAPI interface {
	GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

// awsClientFactory builds per-region clients from decrypted material
type awsClientFactory func(ctx context.Context, m Material, region string) (ec2API, cloudWatchAPI, error)

// AWSAdapter retrieves EC2 utilization metrics via CloudWatch
type AWSAdapter struct {
	opts       Options
	regions    []string
	newClients awsClientFactory
	log        *zap.Logger
}

// NewAWSAdapter creates an AWS adapter backed by the real SDK
func NewAWSAdapter(opts Options, log *zap.Logger) *AWSAdapter {
	return &AWSAdapter{
		opts:       opts,
		regions:    defaultAWSRegions,
		newClients: newAWSClients,
		log:        log,
	}
}

// Provider returns the provider identifier
func (a *AWSAdapter) Provider() types.Provider {
	return types.ProviderAWS
}

// Available reports whether the adapter can serve fetches
func (a *AWSAdapter) Available() bool {
	return a.newClients != nil
}

// Fetch enumerates EC2 instances across the bounded region list and
// samples CPU and network metrics for each over the lookback window.
func (a *AWSAdapter) Fetch(ctx context.Context, m Material) ([]types.MetricSample, error) {
	if m.AccessKey == "" || m.SecretKey == "" {
		return nil, nil
	}

	end := time.Now().UTC()
	start := end.Add(-a.opts.Lookback)

	regions := a.regions
	if len(regions) > a.opts.MaxRegions {
		regions = regions[:a.opts.MaxRegions]
	}

	var samples []types.MetricSample
	var firstErr error
	failedRegions := 0

	for _, region := range regions {
		ec2Client, cwClient, err := a.newClients(ctx, m, region)
		if err != nil {
			a.log.Warn("aws client setup failed",
				zap.String("region", region), zap.Error(err))
			failedRegions++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		instances, err := a.listInstances(ctx, ec2Client)
		if err != nil {
			a.log.Warn("aws describe instances failed",
				zap.String("region", region), zap.Error(err))
			failedRegions++
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		if len(instances) > a.opts.MaxResources {
			instances = instances[:a.opts.MaxResources]
		}

		for _, inst := range instances {
			sample, err := a.sampleInstance(ctx, cwClient, inst, region, start, end)
			if err != nil {
				a.log.Warn("aws instance metrics failed",
					zap.String("region", region),
					zap.String("instance_id", inst.id), zap.Error(err))
				continue
			}
			samples = append(samples, sample)
		}
	}

	// Every region failing before any enumeration is a top-level
	// failure, not a partial one.
	if failedRegions == len(regions) && firstErr != nil {
		return nil, &AuthError{Provider: types.ProviderAWS, Err: firstErr}
	}

	return samples, nil
}

type awsInstance struct {
	id    string
	name  string
	state string
}

func (a *AWSAdapter) listInstances(ctx context.Context, client ec2API) ([]awsInstance, error) {
	var instances []awsInstance

	input := &ec2.DescribeInstancesInput{}
	for {
		out, err := client.DescribeInstances(ctx, input)
		if err != nil {
			return nil, err
		}

		for _, reservation := range out.Reservations {
			for _, inst := range reservation.Instances {
				if inst.InstanceId == nil {
					continue
				}
				entry := awsInstance{id: *inst.InstanceId, name: *inst.InstanceId}
				if inst.State != nil {
					entry.state = string(inst.State.Name)
				}
				for _, tag := range inst.Tags {
					if tag.Key != nil && *tag.Key == "Name" && tag.Value != nil {
						entry.name = *tag.Value
					}
				}
				instances = append(instances, entry)
			}
		}

		if out.NextToken == nil || len(instances) >= a.opts.MaxResources {
			break
		}
		input.NextToken = out.NextToken
	}

	return instances, nil
}

func (a *AWSAdapter) sampleInstance(ctx context.Context, cw cloudWatchAPI, inst awsInstance, region string, start, end time.Time) (types.MetricSample, error) {
	cpu, err := a.latestStatistic(ctx, cw, inst.id, "CPUUtilization",
		cwtypes.StatisticAverage, cwtypes.StandardUnitPercent, start, end)
	if err != nil {
		return types.MetricSample{}, err
	}

	// Network failures degrade to zero rather than dropping the sample
	netIn, err := a.latestStatistic(ctx, cw, inst.id, "NetworkIn",
		cwtypes.StatisticSum, cwtypes.StandardUnitBytes, start, end)
	if err != nil {
		a.log.Debug("aws network-in unavailable",
			zap.String("instance_id", inst.id), zap.Error(err))
		netIn = 0
	}
	netOut, err := a.latestStatistic(ctx, cw, inst.id, "NetworkOut",
		cwtypes.StatisticSum, cwtypes.StandardUnitBytes, start, end)
	if err != nil {
		a.log.Debug("aws network-out unavailable",
			zap.String("instance_id", inst.id), zap.Error(err))
		netOut = 0
	}

	return types.MetricSample{
		ID:           uuid.New().String(),
		Provider:     types.ProviderAWS,
		ResourceID:   inst.id,
		ResourceName: inst.name,
		Timestamp:    end,
		CPUUsage:     ClampPercent(cpu),
		// Memory requires the CloudWatch agent on the instance; absent
		// metrics default to zero on the common schema.
		MemoryUsage:  0,
		NetworkBytes: netIn + netOut,
		ResourceKind: "ec2",
		Region:       region,
		State:        inst.state,
		UserID:       "",
	}, nil
}

// latestStatistic returns the most recent datapoint for one CloudWatch
// metric within the window, or zero when no datapoints exist.
func (a *AWSAdapter) latestStatistic(ctx context.Context, cw cloudWatchAPI, instanceID, metric string, stat cwtypes.Statistic, unit cwtypes.StandardUnit, start, end time.Time) (float64, error) {
	if err := a.opts.wait(ctx); err != nil {
		return 0, err
	}

	out, err := cw.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/EC2"),
		MetricName: aws.String(metric),
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String("InstanceId"), Value: aws.String(instanceID)},
		},
		StartTime:  aws.Time(start),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(300),
		Statistics: []cwtypes.Statistic{stat},
		Unit:       unit,
	})
	if err != nil {
		return 0, err
	}

	var latest *cwtypes.Datapoint
	for i := range out.Datapoints {
		dp := &out.Datapoints[i]
		if dp.Timestamp == nil {
			continue
		}
		if latest == nil || dp.Timestamp.After(*latest.Timestamp) {
			latest = dp
		}
	}
	if latest == nil {
		return 0, nil
	}

	switch stat {
	case cwtypes.StatisticSum:
		if latest.Sum != nil {
			return *latest.Sum, nil
		}
	default:
		if latest.Average != nil {
			return *latest.Average, nil
		}
	}
	return 0, nil
}

// newAWSClients builds real SDK clients from static credentials
func newAWSClients(ctx context.Context, m Material, region string) (ec2API, cloudWatchAPI, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(m.AccessKey, m.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, nil, err
	}
	return ec2.NewFromConfig(cfg), cloudwatch.NewFromConfig(cfg), nil
}
