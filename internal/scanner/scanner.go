// Package scanner converts AWS listings into uniform resource records, one scanner per kind.
package scanner

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/yairfalse/corral/internal/awsapi"
	"github.com/yairfalse/corral/pkg/resource"
)

// Estimator attaches a monthly cost to a record.
type Estimator interface {
	Estimate(r resource.Record) *float64
}

// Func lists one kind of resource in one region.
// On failure it returns the records gathered so far together with the error.
type Func func(ctx context.Context, region string) ([]resource.Record, error)

// Scanner lists one resource kind.
type Scanner struct {
	Kind resource.Kind
	Scan Func
}

// Set builds scanners over a shared client source.
type Set struct {
	clients    awsapi.Clients
	estimator  Estimator
	homeRegion string
	now        func() time.Time
}

// Option configures a Set.
type Option func(*Set)

// WithEstimator attaches cost estimates to every record.
func WithEstimator(e Estimator) Option {
	return func(s *Set) { s.estimator = e }
}

// WithHomeRegion sets the region used for account-wide listings.
func WithHomeRegion(region string) Option {
	return func(s *Set) { s.homeRegion = region }
}

// WithClock overrides the time source used for metric windows.
func WithClock(now func() time.Time) Option {
	return func(s *Set) { s.now = now }
}

// New creates a scanner set.
func New(clients awsapi.Clients, opts ...Option) *Set {
	s := &Set{
		clients:    clients,
		homeRegion: "us-east-1",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Set) table() []Scanner {
	return []Scanner{
		{resource.KindEC2Instance, s.scanInstances},
		{resource.KindEBSVolume, s.scanVolumes},
		{resource.KindElasticIP, s.scanElasticIPs},
		{resource.KindRDSInstance, s.scanRDS},
		{resource.KindLambdaFunction, s.scanLambda},
		{resource.KindLoadBalancer, s.scanLoadBalancers},
		{resource.KindLogGroup, s.scanLogGroups},
		{resource.KindNATGateway, s.scanNATGateways},
		{resource.KindS3Bucket, s.scanBuckets},
		{resource.KindIAMUser, s.scanIAMUsers},
		{resource.KindIAMRole, s.scanIAMRoles},
	}
}

// All returns every scanner, regional kinds first.
func (s *Set) All() []Scanner {
	table := s.table()
	out := make([]Scanner, 0, len(table))
	for _, sc := range table {
		out = append(out, Scanner{Kind: sc.Kind, Scan: s.wrap(sc.Kind, sc.Scan)})
	}
	return out
}

// Regional returns scanners run once per region.
func (s *Set) Regional() []Scanner {
	var out []Scanner
	for _, sc := range s.All() {
		if !sc.Kind.Global() {
			out = append(out, sc)
		}
	}
	return out
}

// Global returns scanners run once per account.
func (s *Set) Global() []Scanner {
	var out []Scanner
	for _, sc := range s.All() {
		if sc.Kind.Global() {
			out = append(out, sc)
		}
	}
	return out
}

// wrap logs outcomes and attaches cost estimates.
func (s *Set) wrap(kind resource.Kind, fn Func) Func {
	return func(ctx context.Context, region string) ([]resource.Record, error) {
		records, err := fn(ctx, region)
		if s.estimator != nil {
			for i := range records {
				records[i].EstimatedMonthlyCost = s.estimator.Estimate(records[i])
			}
		}
		if err != nil {
			log.Warn().Err(err).
				Str("scanner", string(kind)).
				Str("region", region).
				Int("partial", len(records)).
				Msg("scan failed")
			return records, err
		}
		log.Debug().
			Str("scanner", string(kind)).
			Str("region", region).
			Int("count", len(records)).
			Msg("scan complete")
		return records, nil
	}
}

// newRecord creates a record with the common fields set.
func newRecord(kind resource.Kind, region, id, name, state string, tags map[string]string) resource.Record {
	if tags == nil {
		tags = make(map[string]string)
	}
	return resource.Record{
		ResourceID:   id,
		ResourceName: name,
		Kind:         kind,
		Region:       region,
		State:        state,
		Tags:         tags,
		Extra:        make(map[string]any),
	}
}

func timePtr(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
