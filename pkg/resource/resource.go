// Package resource defines the unified resource model for Corral.
package resource

import "time"

// GlobalRegion is the region value for account-wide kinds.
const GlobalRegion = "global"

// Record represents one cloud resource in unified format.
// Records are built by a scanner from a single listing and never modified afterwards.
type Record struct {
	ResourceID           string            `json:"resource_id" yaml:"resource_id"`
	ResourceName         string            `json:"resource_name" yaml:"resource_name"`
	Kind                 Kind              `json:"resource_type" yaml:"resource_type"`
	Region               string            `json:"region" yaml:"region"`
	State                string            `json:"state" yaml:"state"`
	CreatedAt            *time.Time        `json:"creation_date,omitempty" yaml:"creation_date,omitempty"`
	Tags                 map[string]string `json:"tags" yaml:"tags"`
	EstimatedMonthlyCost *float64          `json:"estimated_cost_monthly,omitempty" yaml:"estimated_cost_monthly,omitempty"`
	Extra                map[string]any    `json:"additional_info,omitempty" yaml:"additional_info,omitempty"`
}

// Key returns the identity of a record within one scan.
func (r Record) Key() Key {
	return Key{Kind: r.Kind, Region: r.Region, ID: r.ResourceID}
}

// Cost returns the estimated monthly cost, treating absent as zero.
func (r Record) Cost() float64 {
	if r.EstimatedMonthlyCost == nil {
		return 0
	}
	return *r.EstimatedMonthlyCost
}

// Key uniquely identifies a record inside a ScanResult.
type Key struct {
	Kind   Kind
	Region string
	ID     string
}

// Less orders keys by kind, region, then id.
func (k Key) Less(other Key) bool {
	if k.Kind != other.Kind {
		return k.Kind < other.Kind
	}
	if k.Region != other.Region {
		return k.Region < other.Region
	}
	return k.ID < other.ID
}

// ScanErrorKind is the kind tag carried by every recorded scan task failure.
const ScanErrorKind = "scan_error"

// ScanError records one failed scan task.
type ScanError struct {
	Kind    string `json:"type" yaml:"type"`
	Message string `json:"message" yaml:"message"`
}

// Summary holds frequency tables computed over a scan's records.
type Summary struct {
	Total    int            `json:"total_resources" yaml:"total_resources"`
	ByKind   map[string]int `json:"by_type" yaml:"by_type"`
	ByRegion map[string]int `json:"by_region" yaml:"by_region"`
	ByState  map[string]int `json:"by_state" yaml:"by_state"`
}

// CostSummary holds estimated monthly cost totals, rounded to cents.
type CostSummary struct {
	Total  float64            `json:"estimated_monthly_total" yaml:"estimated_monthly_total"`
	ByKind map[string]float64 `json:"by_resource_type" yaml:"by_resource_type"`
}

// ScanResult is the immutable outcome of one orchestration run.
type ScanResult struct {
	Timestamp      time.Time     `json:"timestamp" yaml:"timestamp"`
	RegionsScanned []string      `json:"regions_scanned" yaml:"regions_scanned"`
	Resources      []Record      `json:"resources" yaml:"resources"`
	Errors         []ScanError   `json:"errors" yaml:"errors"`
	Summary        Summary       `json:"summary" yaml:"summary"`
	CostSummary    CostSummary   `json:"cost_summary" yaml:"cost_summary"`
	Duration       time.Duration `json:"duration_ns" yaml:"duration_ns"`
}
