// Package cost estimates monthly resource cost from a static price table.
// Figures are approximations for on-demand us-east-1 pricing, not billing data.
package cost

import (
	"math"

	"github.com/yairfalse/corral/pkg/resource"
)

// HoursPerMonth converts hourly prices to monthly.
const HoursPerMonth = 730

// Table holds the static prices used for estimation.
type Table struct {
	EC2Hourly            map[string]float64
	EBSPerGBMonth        map[string]float64
	RDSHourly            map[string]float64
	LoadBalancerMonthly  map[string]float64
	NATGatewayMonthly    float64
	ElasticIPIdleMonthly float64
}

// DefaultTable returns the built-in price table.
func DefaultTable() *Table {
	return &Table{
		EC2Hourly: map[string]float64{
			"t3.micro":   0.0116,
			"t3.small":   0.0232,
			"t3.medium":  0.0464,
			"t3.large":   0.0928,
			"t3.xlarge":  0.1856,
			"t3.2xlarge": 0.3712,
			"t3a.micro":  0.0104,
			"t3a.small":  0.0208,
			"t3a.medium": 0.0416,
			"t3a.large":  0.0832,
			"m5.large":   0.096,
			"m5.xlarge":  0.192,
			"m5.2xlarge": 0.384,
			"c5.large":   0.085,
			"c5.xlarge":  0.170,
			"r5.large":   0.126,
			"r5.xlarge":  0.252,
		},
		EBSPerGBMonth: map[string]float64{
			"gp2": 0.10,
			"gp3": 0.08,
			"io1": 0.125,
			"st1": 0.045,
			"sc1": 0.015,
		},
		RDSHourly: map[string]float64{
			"db.t3.micro":  0.017,
			"db.t3.small":  0.034,
			"db.t3.medium": 0.068,
			"db.t3.large":  0.136,
			"db.t3.xlarge": 0.272,
			"db.m5.large":  0.215,
			"db.m5.xlarge": 0.43,
		},
		LoadBalancerMonthly: map[string]float64{
			"application": 16.2,
			"network":     32.4,
			"classic":     9.0,
		},
		NATGatewayMonthly:    32.0,
		ElasticIPIdleMonthly: 3.6,
	}
}

// Estimate returns the monthly cost of r, or nil when the table has no price for it.
func (t *Table) Estimate(r resource.Record) *float64 {
	switch r.Kind {
	case resource.KindEC2Instance:
		hourly, ok := t.EC2Hourly[stringAttr(r, "instance_type")]
		if !ok {
			return nil
		}
		if r.State != "running" {
			return price(0)
		}
		return price(hourly * HoursPerMonth)

	case resource.KindEBSVolume:
		perGB, ok := t.EBSPerGBMonth[stringAttr(r, "volume_type")]
		if !ok {
			return nil
		}
		return price(perGB * numberAttr(r, "size_gb"))

	case resource.KindElasticIP:
		if r.State == "unassociated" {
			return price(t.ElasticIPIdleMonthly)
		}
		return price(0)

	case resource.KindRDSInstance:
		hourly, ok := t.RDSHourly[stringAttr(r, "instance_class")]
		if !ok {
			return nil
		}
		if r.State != "available" {
			return price(0)
		}
		return price(hourly * HoursPerMonth)

	case resource.KindLoadBalancer:
		monthly, ok := t.LoadBalancerMonthly[stringAttr(r, "type")]
		if !ok {
			return nil
		}
		return price(monthly)

	case resource.KindNATGateway:
		if r.State == "deleted" || r.State == "failed" {
			return price(0)
		}
		return price(t.NATGatewayMonthly)
	}

	return nil
}

// Round rounds v to cents.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}

func price(v float64) *float64 {
	return &v
}

func stringAttr(r resource.Record, key string) string {
	s, _ := r.Extra[key].(string)
	return s
}

func numberAttr(r resource.Record, key string) float64 {
	switch v := r.Extra[key].(type) {
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	default:
		return 0
	}
}
