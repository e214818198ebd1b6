package inventory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEC2 serves pages of reservations. When the request carries the
// private-ip-address filter it applies it the way EC2 would.
type fakeEC2 struct {
	pages [][]types.Reservation
	err   error
	calls int
	last  *ec2.DescribeInstancesInput
}

func (f *fakeEC2) DescribeInstances(_ context.Context, in *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	f.calls++
	f.last = in
	if f.err != nil {
		return nil, f.err
	}

	if len(in.Filters) > 0 {
		want := in.Filters[0].Values[0]
		out := &ec2.DescribeInstancesOutput{}
		for _, page := range f.pages {
			for _, r := range page {
				var matched []types.Instance
				for _, i := range r.Instances {
					if ownsPrivateIP(i, want) {
						matched = append(matched, i)
					}
				}
				if len(matched) > 0 {
					out.Reservations = append(out.Reservations, types.Reservation{Instances: matched})
				}
			}
		}
		return out, nil
	}

	idx := 0
	if in.NextToken != nil {
		idx = int((*in.NextToken)[0] - '0')
	}
	out := &ec2.DescribeInstancesOutput{Reservations: f.pages[idx]}
	if idx+1 < len(f.pages) {
		out.NextToken = aws.String(string(rune('0' + idx + 1)))
	}
	return out, nil
}

func instance(id, ip string, secondary ...string) types.Instance {
	i := types.Instance{
		InstanceId:       aws.String(id),
		PrivateIpAddress: aws.String(ip),
	}
	if len(secondary) > 0 {
		ni := types.InstanceNetworkInterface{PrivateIpAddress: aws.String(ip)}
		for _, s := range secondary {
			ni.PrivateIpAddresses = append(ni.PrivateIpAddresses, types.InstancePrivateIpAddress{PrivateIpAddress: aws.String(s)})
		}
		i.NetworkInterfaces = []types.InstanceNetworkInterface{ni}
	}
	return i
}

func inventoryPages() [][]types.Reservation {
	return [][]types.Reservation{
		{
			{Instances: []types.Instance{instance("i-aaa", "10.0.0.1"), instance("i-bbb", "10.0.0.2")}},
		},
		{
			{Instances: []types.Instance{instance("i-ccc", "10.0.1.5", "10.0.1.6")}},
		},
	}
}

func TestEC2FilterMode(t *testing.T) {
	client := &fakeEC2{pages: inventoryPages()}
	r, err := NewEC2(client, ModeFilter, false)
	require.NoError(t, err)

	id, err := r.InstanceID(context.Background(), "10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, "i-bbb", id)
	assert.Equal(t, 1, client.calls)
	require.Len(t, client.last.Filters, 1)
	assert.Equal(t, "private-ip-address", aws.ToString(client.last.Filters[0].Name))
	assert.Equal(t, []string{"10.0.0.2"}, client.last.Filters[0].Values)
}

func TestEC2NotFound(t *testing.T) {
	for _, mode := range []string{ModeFilter, ModeScan} {
		t.Run(mode, func(t *testing.T) {
			r, err := NewEC2(&fakeEC2{pages: inventoryPages()}, mode, false)
			require.NoError(t, err)

			_, err = r.InstanceID(context.Background(), "192.168.1.1")
			assert.ErrorIs(t, err, ErrInstanceNotFound)
		})
	}
}

func TestEC2ScanMatchesFilter(t *testing.T) {
	filter, err := NewEC2(&fakeEC2{pages: inventoryPages()}, ModeFilter, false)
	require.NoError(t, err)
	scanClient := &fakeEC2{pages: inventoryPages()}
	scan, err := NewEC2(scanClient, ModeScan, false)
	require.NoError(t, err)

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.1.5", "10.0.1.6"} {
		want, err := filter.InstanceID(context.Background(), ip)
		require.NoError(t, err)
		got, err := scan.InstanceID(context.Background(), ip)
		require.NoError(t, err)
		assert.Equal(t, want, got, ip)
	}

	assert.Empty(t, scanClient.last.Filters)
}

func TestEC2ExactMatchOnly(t *testing.T) {
	r, err := NewEC2(&fakeEC2{pages: inventoryPages()}, ModeScan, false)
	require.NoError(t, err)

	_, err = r.InstanceID(context.Background(), "10.0.0.")
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestEC2ProviderError(t *testing.T) {
	boom := errors.New("throttled")
	r, err := NewEC2(&fakeEC2{err: boom}, ModeFilter, false)
	require.NoError(t, err)

	_, err = r.InstanceID(context.Background(), "10.0.0.1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInstanceNotFound)
	assert.ErrorIs(t, err, boom)
}

func TestNewEC2RejectsUnknownMode(t *testing.T) {
	_, err := NewEC2(&fakeEC2{}, "guess", false)
	assert.Error(t, err)
}

type countingResolver struct {
	calls int
	ids   map[string]string
}

func (c *countingResolver) InstanceID(_ context.Context, ip string) (string, error) {
	c.calls++
	if id, ok := c.ids[ip]; ok {
		return id, nil
	}
	return "", ErrInstanceNotFound
}

func TestCachedResolver(t *testing.T) {
	base := &countingResolver{ids: map[string]string{"10.0.0.1": "i-aaa"}}
	r := New(base, time.Minute)

	for i := 0; i < 3; i++ {
		id, err := r.InstanceID(context.Background(), "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, "i-aaa", id)
	}
	assert.Equal(t, 1, base.calls)

	for i := 0; i < 2; i++ {
		_, err := r.InstanceID(context.Background(), "10.9.9.9")
		assert.ErrorIs(t, err, ErrInstanceNotFound)
	}
	assert.Equal(t, 3, base.calls)
}

func TestNewWithoutTTLReturnsBase(t *testing.T) {
	base := &countingResolver{}
	assert.Same(t, Resolver(base), New(base, 0))
}

type countingTransport struct {
	calls int32
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	atomic.AddInt32(&c.calls, 1)
	return http.DefaultTransport.RoundTrip(req)
}

func endpointConfig(endpoint string) aws.Config {
	return aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("a", "b", ""),
		EndpointResolver: aws.EndpointResolverFunc(func(_, region string) (aws.Endpoint, error) {
			return aws.Endpoint{URL: endpoint, SigningRegion: region, HostnameImmutable: true}, nil
		}),
		Retryer: func() aws.Retryer { return aws.NopRetryer{} },
	}
}

const describeInstancesResponse = `<DescribeInstancesResponse xmlns="http://ec2.amazonaws.com/doc/2016-11-15/">
  <requestId>req-1</requestId>
  <reservationSet>
    <item>
      <reservationId>r-1</reservationId>
      <instancesSet>
        <item>
          <instanceId>i-0abc</instanceId>
          <privateIpAddress>10.0.0.7</privateIpAddress>
        </item>
      </instancesSet>
    </item>
  </reservationSet>
</DescribeInstancesResponse>`

func TestNewEC2FromConfigUsesHTTPClient(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if assert.NoError(t, r.ParseForm()) {
			form = r.PostForm
		}
		w.Header().Set("Content-Type", "text/xml;charset=UTF-8")
		fmt.Fprint(w, describeInstancesResponse)
	}))
	defer srv.Close()

	transport := &countingTransport{}
	e, err := NewEC2FromConfig(endpointConfig(srv.URL), ModeFilter, false, &http.Client{Transport: transport})
	require.NoError(t, err)

	id, err := e.InstanceID(context.Background(), "10.0.0.7")
	require.NoError(t, err)
	assert.Equal(t, "i-0abc", id)
	assert.EqualValues(t, 1, atomic.LoadInt32(&transport.calls))

	assert.Equal(t, "DescribeInstances", form.Get("Action"))
	assert.Equal(t, "private-ip-address", form.Get("Filter.1.Name"))
	assert.Equal(t, "10.0.0.7", form.Get("Filter.1.Value.1"))
}

func TestNewEC2FromConfigDefaultClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml;charset=UTF-8")
		fmt.Fprint(w, `<DescribeInstancesResponse xmlns="http://ec2.amazonaws.com/doc/2016-11-15/"><requestId>req-2</requestId><reservationSet/></DescribeInstancesResponse>`)
	}))
	defer srv.Close()

	e, err := NewEC2FromConfig(endpointConfig(srv.URL), ModeFilter, false, nil)
	require.NoError(t, err)

	_, err = e.InstanceID(context.Background(), "10.9.9.9")
	assert.ErrorIs(t, err, ErrInstanceNotFound)
}
