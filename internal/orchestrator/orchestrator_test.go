package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/corral/internal/awsapi/awsapitest"
	"github.com/yairfalse/corral/internal/scanner"
	"github.com/yairfalse/corral/internal/session"
	"github.com/yairfalse/corral/pkg/resource"
)

type mockLister struct {
	regions []string
	calls   atomic.Int32
}

func (m *mockLister) ListRegions(context.Context) []string {
	m.calls.Add(1)
	return m.regions
}

func costPtr(v float64) *float64 { return &v }

// fixture scanners produce deterministic records per region.
func fixtureScanners() []scanner.Scanner {
	return []scanner.Scanner{
		{Kind: resource.KindEC2Instance, Scan: func(_ context.Context, region string) ([]resource.Record, error) {
			return []resource.Record{
				{ResourceID: "i-1", Kind: resource.KindEC2Instance, Region: region, State: "running", EstimatedMonthlyCost: costPtr(8.468)},
				{ResourceID: "i-2", Kind: resource.KindEC2Instance, Region: region, State: "stopped", EstimatedMonthlyCost: costPtr(0)},
			}, nil
		}},
		{Kind: resource.KindEBSVolume, Scan: func(_ context.Context, region string) ([]resource.Record, error) {
			return []resource.Record{
				{ResourceID: "vol-1", Kind: resource.KindEBSVolume, Region: region, State: "available", EstimatedMonthlyCost: costPtr(8.333)},
			}, nil
		}},
		{Kind: resource.KindLambdaFunction, Scan: func(_ context.Context, region string) ([]resource.Record, error) {
			return []resource.Record{
				{ResourceID: "fn", Kind: resource.KindLambdaFunction, Region: region, State: "active"},
			}, nil
		}},
		{Kind: resource.KindS3Bucket, Scan: func(_ context.Context, _ string) ([]resource.Record, error) {
			return []resource.Record{
				{ResourceID: "bucket", Kind: resource.KindS3Bucket, Region: "eu-west-1", State: "active"},
			}, nil
		}},
	}
}

func stripTiming(r resource.ScanResult) resource.ScanResult {
	r.Timestamp = time.Time{}
	r.Duration = 0
	return r
}

// ══════════════════════════════════════════════════════════════════════════════
// Aggregation
// ══════════════════════════════════════════════════════════════════════════════

func TestScan_SummaryInvariants(t *testing.T) {
	o := New(nil, nil, WithRegions("us-east-1", "us-west-2"), WithScanners(fixtureScanners()...))
	result := o.Scan(context.Background())

	require.Empty(t, result.Errors)
	assert.Equal(t, 9, len(result.Resources))
	assert.Equal(t, len(result.Resources), result.Summary.Total)

	for name, table := range map[string]map[string]int{
		"by_type":   result.Summary.ByKind,
		"by_region": result.Summary.ByRegion,
		"by_state":  result.Summary.ByState,
	} {
		sum := 0
		for _, n := range table {
			sum += n
		}
		assert.Equal(t, result.Summary.Total, sum, name)
	}

	assert.Equal(t, 4, result.Summary.ByKind["EC2_Instance"])
	assert.Equal(t, 4, result.Summary.ByRegion["us-east-1"])
	assert.Equal(t, 1, result.Summary.ByRegion["eu-west-1"])
	assert.Equal(t, StateDone, o.State())
}

func TestScan_CostTotals(t *testing.T) {
	o := New(nil, nil, WithRegions("us-east-1", "us-west-2"), WithScanners(fixtureScanners()...))
	result := o.Scan(context.Background())

	cs := result.CostSummary
	assert.Equal(t, 33.6, cs.Total)
	assert.Equal(t, 16.94, cs.ByKind["EC2_Instance"])
	assert.Equal(t, 16.67, cs.ByKind["EBS_Volume"])
	assert.NotContains(t, cs.ByKind, "Lambda_Function")

	var sum float64
	for _, v := range cs.ByKind {
		sum += v
	}
	assert.LessOrEqual(t, math.Abs(sum-cs.Total), 0.01*float64(len(cs.ByKind)))
}

func TestScan_ResourcesOrderedAndUnique(t *testing.T) {
	dup := scanner.Scanner{Kind: resource.KindEC2Instance, Scan: func(_ context.Context, region string) ([]resource.Record, error) {
		return []resource.Record{
			{ResourceID: "i-9", Kind: resource.KindEC2Instance, Region: region},
			{ResourceID: "i-1", Kind: resource.KindEC2Instance, Region: region},
			{ResourceID: "i-9", Kind: resource.KindEC2Instance, Region: region},
		}, nil
	}}

	result := New(nil, nil, WithRegions("us-east-1"), WithScanners(dup)).Scan(context.Background())

	require.Len(t, result.Resources, 2)
	assert.Equal(t, "i-1", result.Resources[0].ResourceID)
	assert.Equal(t, "i-9", result.Resources[1].ResourceID)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.Total)
	assert.NotNil(t, s.ByKind)

	cs := SummarizeCost(nil)
	assert.Equal(t, 0.0, cs.Total)
	assert.NotNil(t, cs.ByKind)
}

// ══════════════════════════════════════════════════════════════════════════════
// Regions
// ══════════════════════════════════════════════════════════════════════════════

func TestScan_FallbackRegions(t *testing.T) {
	tests := []struct {
		name   string
		lister RegionLister
	}{
		{"empty lister", &mockLister{}},
		{"nil lister", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New(nil, tt.lister, WithScanners(fixtureScanners()...)).Scan(context.Background())
			assert.Equal(t, session.FallbackRegions(), result.RegionsScanned)
			assert.Equal(t, len(session.FallbackRegions()), result.Summary.ByKind["EBS_Volume"])
		})
	}
}

func TestScan_RegionsOverrideDiscovery(t *testing.T) {
	lister := &mockLister{regions: []string{"ap-south-1"}}

	result := New(nil, lister, WithRegions("us-east-1"), WithScanners(fixtureScanners()...)).Scan(context.Background())

	assert.Equal(t, []string{"us-east-1"}, result.RegionsScanned)
	assert.Equal(t, int32(0), lister.calls.Load())
}

func TestScan_DeduplicatesRegionOverride(t *testing.T) {
	var calls atomic.Int32
	counting := scanner.Scanner{Kind: resource.KindEC2Instance, Scan: func(context.Context, string) ([]resource.Record, error) {
		calls.Add(1)
		return nil, nil
	}}

	result := New(nil, nil,
		WithRegions("us-east-1", "eu-west-1", "us-east-1", ""),
		WithScanners(counting)).Scan(context.Background())

	assert.Equal(t, []string{"us-east-1", "eu-west-1"}, result.RegionsScanned)
	assert.Equal(t, int32(2), calls.Load())
}

func TestScan_UsesListerRegions(t *testing.T) {
	lister := &mockLister{regions: []string{"ap-south-1", "sa-east-1"}}

	result := New(nil, lister, WithScanners(fixtureScanners()...)).Scan(context.Background())

	assert.Equal(t, []string{"ap-south-1", "sa-east-1"}, result.RegionsScanned)
	assert.Equal(t, 4, result.Summary.ByRegion["sa-east-1"])
}

// ══════════════════════════════════════════════════════════════════════════════
// Failure isolation
// ══════════════════════════════════════════════════════════════════════════════

func TestScan_PartialFailure(t *testing.T) {
	flaky := scanner.Scanner{Kind: resource.KindNATGateway, Scan: func(_ context.Context, region string) ([]resource.Record, error) {
		if region == "us-west-2" {
			return []resource.Record{{ResourceID: "nat-partial", Kind: resource.KindNATGateway, Region: region}}, errors.New("throttled")
		}
		return []resource.Record{{ResourceID: "nat-1", Kind: resource.KindNATGateway, Region: region}}, nil
	}}
	scanners := append(fixtureScanners(), flaky)

	result := New(nil, nil, WithRegions("us-east-1", "us-west-2"), WithScanners(scanners...)).Scan(context.Background())

	require.Len(t, result.Errors, 1)
	assert.Equal(t, resource.ScanErrorKind, result.Errors[0].Kind)
	assert.Equal(t, "NAT_Gateway in us-west-2: throttled", result.Errors[0].Message)
	assert.Equal(t, 2, result.Summary.ByKind["NAT_Gateway"])
	assert.Equal(t, 4, result.Summary.ByKind["EC2_Instance"])
}

func TestScan_RecoversPanics(t *testing.T) {
	boom := scanner.Scanner{Kind: resource.KindRDSInstance, Scan: func(context.Context, string) ([]resource.Record, error) {
		panic("nil pointer")
	}}
	scanners := append(fixtureScanners(), boom)

	result := New(nil, nil, WithRegions("us-east-1"), WithScanners(scanners...)).Scan(context.Background())

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "RDS_Instance in us-east-1: panic: nil pointer", result.Errors[0].Message)
	assert.Equal(t, 5, result.Summary.Total)
}

func TestScan_GlobalFailure(t *testing.T) {
	iam := scanner.Scanner{Kind: resource.KindIAMUser, Scan: func(context.Context, string) ([]resource.Record, error) {
		return nil, errors.New("access denied")
	}}

	result := New(nil, nil, WithRegions("us-east-1"), WithScanners(iam)).Scan(context.Background())

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "IAM_User in global: access denied", result.Errors[0].Message)
}

func TestScan_CancelledContext(t *testing.T) {
	var calls atomic.Int32
	counting := scanner.Scanner{Kind: resource.KindEC2Instance, Scan: func(context.Context, string) ([]resource.Record, error) {
		calls.Add(1)
		return nil, nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := New(nil, nil, WithRegions("us-east-1", "us-west-2"), WithScanners(counting))
	result := o.Scan(ctx)

	assert.Equal(t, int32(0), calls.Load())
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0].Message, "context canceled")
	assert.Equal(t, []string{"us-east-1", "us-west-2"}, result.RegionsScanned)
	assert.Equal(t, StateDone, o.State())
}

func TestScan_TaskTimeout(t *testing.T) {
	slow := scanner.Scanner{Kind: resource.KindEC2Instance, Scan: func(ctx context.Context, _ string) ([]resource.Record, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	result := New(nil, nil, WithRegions("us-east-1"), WithScanners(slow), WithTaskTimeout(10*time.Millisecond)).Scan(context.Background())

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "deadline exceeded")
}

// ══════════════════════════════════════════════════════════════════════════════
// Pool
// ══════════════════════════════════════════════════════════════════════════════

func TestScan_PoolSizeDoesNotChangeResult(t *testing.T) {
	regions := []string{"us-east-1", "us-east-2", "us-west-1", "us-west-2", "eu-west-1"}
	failing := scanner.Scanner{Kind: resource.KindLogGroup, Scan: func(_ context.Context, region string) ([]resource.Record, error) {
		return nil, fmt.Errorf("denied in %s", region)
	}}
	scanners := append(fixtureScanners(), failing)

	one := New(nil, nil, WithRegions(regions...), WithScanners(scanners...), WithMaxWorkers(1)).Scan(context.Background())
	many := New(nil, nil, WithRegions(regions...), WithScanners(scanners...), WithMaxWorkers(8)).Scan(context.Background())

	assert.Equal(t, stripTiming(one), stripTiming(many))
	assert.Len(t, one.Errors, len(regions))
}

func TestScan_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	tracking := scanner.Scanner{Kind: resource.KindEC2Instance, Scan: func(context.Context, string) ([]resource.Record, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil, nil
	}}

	regions := make([]string, 12)
	for i := range regions {
		regions[i] = fmt.Sprintf("region-%d", i)
	}

	New(nil, nil, WithRegions(regions...), WithScanners(tracking), WithMaxWorkers(3)).Scan(context.Background())

	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestWithMaxWorkers_Clamps(t *testing.T) {
	assert.Equal(t, 1, New(nil, nil, WithMaxWorkers(0)).maxWorkers)
	assert.Equal(t, 1, New(nil, nil, WithMaxWorkers(-4)).maxWorkers)
	assert.Equal(t, DefaultMaxWorkers, New(nil, nil).maxWorkers)
}

func TestScan_ExcludeKinds(t *testing.T) {
	result := New(nil, nil,
		WithRegions("us-east-1"),
		WithScanners(fixtureScanners()...),
		WithExcludeKinds(resource.KindEBSVolume, resource.KindS3Bucket),
	).Scan(context.Background())

	assert.NotContains(t, result.Summary.ByKind, "EBS_Volume")
	assert.NotContains(t, result.Summary.ByKind, "S3_Bucket")
	assert.Equal(t, 3, result.Summary.Total)
}

func TestScan_DefaultScannersEmptyAccount(t *testing.T) {
	clients := &awsapitest.Clients{}

	result := New(clients, nil, WithRegions("us-east-1", "eu-west-1")).Scan(context.Background())

	assert.Empty(t, result.Errors)
	assert.Equal(t, 0, result.Summary.Total)
	assert.Contains(t, clients.Regions(), "eu-west-1")
	assert.Contains(t, clients.Regions(), "global")
	assert.Equal(t, 2, clients.EC2Client.Calls("DescribeInstances"))
	assert.Equal(t, 1, clients.IAMClient.Calls("ListUsers"))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "regions_resolved", StateRegionsResolved.String())
	assert.Equal(t, "fanned_out", StateFannedOut.String())
	assert.Equal(t, "aggregating", StateAggregating.String())
	assert.Equal(t, "done", StateDone.String())
}
