package inventory

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/pkg/errors"

	"flashcat.cloud/cpudash/pkg/metrics"
)

const (
	ModeFilter = "filter"
	ModeScan   = "scan"

	privateIPFilter = "private-ip-address"
	scanPageSize    = 1000
)

type ec2Client interface {
	DescribeInstances(context.Context, *ec2.DescribeInstancesInput, ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// EC2 resolves instances through DescribeInstances. In filter mode EC2 does
// the matching, in scan mode every instance is listed and matched here.
type EC2 struct {
	client ec2Client
	mode   string
	debug  bool
}

func NewEC2(client ec2Client, mode string, debug bool) (*EC2, error) {
	switch mode {
	case "":
		mode = ModeFilter
	case ModeFilter, ModeScan:
	default:
		return nil, fmt.Errorf("unknown inventory mode: %s", mode)
	}
	return &EC2{client: client, mode: mode, debug: debug}, nil
}

// NewEC2FromConfig sends DescribeInstances through httpClient, or through the
// SDK default client when it is nil.
func NewEC2FromConfig(cfg aws.Config, mode string, debug bool, httpClient *http.Client) (*EC2, error) {
	return NewEC2(ec2.NewFromConfig(cfg, func(options *ec2.Options) {
		if httpClient != nil {
			options.HTTPClient = httpClient
		}
	}), mode, debug)
}

func (e *EC2) InstanceID(ctx context.Context, ip string) (id string, err error) {
	start := time.Now()
	defer func() {
		if errors.Is(err, ErrInstanceNotFound) {
			metrics.ObserveUpstream("ec2_describe_instances", start, nil)
			return
		}
		metrics.ObserveUpstream("ec2_describe_instances", start, err)
	}()

	if e.mode == ModeScan {
		id, err = e.scan(ctx, ip)
	} else {
		id, err = e.filter(ctx, ip)
	}

	if e.debug && err == nil {
		log.Printf("D! resolved ip %s to instance %s (%s mode)", ip, id, e.mode)
	}
	return id, err
}

func (e *EC2) filter(ctx context.Context, ip string) (string, error) {
	resp, err := e.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		Filters: []types.Filter{
			{
				Name:   aws.String(privateIPFilter),
				Values: []string{ip},
			},
		},
	})
	if err != nil {
		return "", errors.Wrapf(err, "describe instances by private ip %s", ip)
	}

	for _, reservation := range resp.Reservations {
		for _, instance := range reservation.Instances {
			if instance.InstanceId != nil && *instance.InstanceId != "" {
				return *instance.InstanceId, nil
			}
		}
	}
	return "", ErrInstanceNotFound
}

func (e *EC2) scan(ctx context.Context, ip string) (string, error) {
	paginator := ec2.NewDescribeInstancesPaginator(e.client, &ec2.DescribeInstancesInput{
		MaxResults: aws.Int32(scanPageSize),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", errors.Wrap(err, "describe instances")
		}
		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				if instance.InstanceId != nil && ownsPrivateIP(instance, ip) {
					return *instance.InstanceId, nil
				}
			}
		}
	}
	return "", ErrInstanceNotFound
}

// ownsPrivateIP mirrors the private-ip-address filter: the primary address
// or any private address of an attached interface.
func ownsPrivateIP(instance types.Instance, ip string) bool {
	if aws.ToString(instance.PrivateIpAddress) == ip {
		return true
	}
	for _, ni := range instance.NetworkInterfaces {
		if aws.ToString(ni.PrivateIpAddress) == ip {
			return true
		}
		for _, addr := range ni.PrivateIpAddresses {
			if aws.ToString(addr.PrivateIpAddress) == ip {
				return true
			}
		}
	}
	return false
}

var _ Resolver = new(EC2)
