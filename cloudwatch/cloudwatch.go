package cloudwatch

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwClient "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/pkg/errors"

	"flashcat.cloud/cpudash/pkg/metrics"
)

const (
	Namespace   = "AWS/EC2"
	MetricName  = "CPUUtilization"
	DimensionID = "InstanceId"
)

// Sample is one averaged datapoint of an instance metric.
type Sample struct {
	Timestamp time.Time
	Average   float64
}

// Fetcher returns CPU utilization samples of an instance for the last hours,
// bucketed by period seconds.
type Fetcher interface {
	CPUUtilization(ctx context.Context, instanceID string, hours, period int) ([]Sample, error)
}

type cloudwatchClient interface {
	GetMetricStatistics(context.Context, *cwClient.GetMetricStatisticsInput, ...func(*cwClient.Options)) (*cwClient.GetMetricStatisticsOutput, error)
}

type CloudWatch struct {
	client cloudwatchClient
	now    func() time.Time
	debug  bool
}

func New(client cloudwatchClient, debug bool) *CloudWatch {
	return &CloudWatch{
		client: client,
		now:    time.Now,
		debug:  debug,
	}
}

func NewFromConfig(cfg aws.Config, debug bool, httpClient *http.Client) *CloudWatch {
	return New(cwClient.NewFromConfig(cfg, func(options *cwClient.Options) {
		// Disable logging
		options.ClientLogMode = 0

		if httpClient != nil {
			options.HTTPClient = httpClient
		}
	}), debug)
}

// CPUUtilization queries [now-hours, now]. hours and period are passed to
// CloudWatch as is, its own limits apply.
func (c *CloudWatch) CPUUtilization(ctx context.Context, instanceID string, hours, period int) ([]Sample, error) {
	params := c.statisticsInput(instanceID, hours, period)

	start := time.Now()
	resp, err := c.client.GetMetricStatistics(ctx, params)
	metrics.ObserveUpstream("cloudwatch_get_metric_statistics", start, err)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s statistics of %s", MetricName, instanceID)
	}

	samples := make([]Sample, 0, len(resp.Datapoints))
	for _, dp := range resp.Datapoints {
		if dp.Timestamp == nil || dp.Average == nil {
			continue
		}
		samples = append(samples, Sample{
			Timestamp: *dp.Timestamp,
			Average:   *dp.Average,
		})
	}

	if c.debug {
		log.Printf("D! fetched %d %s datapoints of %s, window %dh period %ds", len(samples), MetricName, instanceID, hours, period)
	}
	return samples, nil
}

func (c *CloudWatch) statisticsInput(instanceID string, hours, period int) *cwClient.GetMetricStatisticsInput {
	endTime := c.now().UTC()
	startTime := endTime.Add(-time.Duration(hours) * time.Hour)

	return &cwClient.GetMetricStatisticsInput{
		Namespace:  aws.String(Namespace),
		MetricName: aws.String(MetricName),
		Dimensions: []types.Dimension{
			{
				Name:  aws.String(DimensionID),
				Value: aws.String(instanceID),
			},
		},
		StartTime:  aws.Time(startTime),
		EndTime:    aws.Time(endTime),
		Period:     aws.Int32(int32(period)),
		Statistics: []types.Statistic{types.StatisticAverage},
		Unit:       types.StandardUnitPercent,
	}
}

var _ Fetcher = new(CloudWatch)
