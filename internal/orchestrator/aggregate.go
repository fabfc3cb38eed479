package orchestrator

import (
	"fmt"
	"sort"

	"github.com/google/btree"

	"github.com/yairfalse/corral/internal/cost"
	"github.com/yairfalse/corral/pkg/resource"
)

// collector owns the result tree and error list. Only the collector goroutine touches it.
type collector struct {
	records *btree.BTreeG[resource.Record]
	errors  []resource.ScanError
}

func newCollector() *collector {
	return &collector{
		records: btree.NewG(32, func(a, b resource.Record) bool {
			return a.Key().Less(b.Key())
		}),
	}
}

func (c *collector) add(r taskResult) {
	for _, rec := range r.records {
		c.records.ReplaceOrInsert(rec)
	}
	if r.err != nil {
		c.errors = append(c.errors, resource.ScanError{
			Kind:    resource.ScanErrorKind,
			Message: fmt.Sprintf("%s in %s: %v", r.task.scanner.Kind, r.task.region, r.err),
		})
	}
}

// result returns records in key order and errors sorted by message.
func (c *collector) result() resource.ScanResult {
	records := make([]resource.Record, 0, c.records.Len())
	c.records.Ascend(func(r resource.Record) bool {
		records = append(records, r)
		return true
	})

	errs := append([]resource.ScanError{}, c.errors...)
	sort.Slice(errs, func(i, j int) bool { return errs[i].Message < errs[j].Message })

	return resource.ScanResult{
		Resources:   records,
		Errors:      errs,
		Summary:     Summarize(records),
		CostSummary: SummarizeCost(records),
	}
}

// Summarize builds the frequency tables for records in one pass.
func Summarize(records []resource.Record) resource.Summary {
	s := resource.Summary{
		Total:    len(records),
		ByKind:   make(map[string]int),
		ByRegion: make(map[string]int),
		ByState:  make(map[string]int),
	}
	for _, r := range records {
		s.ByKind[string(r.Kind)]++
		s.ByRegion[r.Region]++
		s.ByState[r.State]++
	}
	return s
}

// SummarizeCost totals estimated monthly cost globally and per kind, rounded to cents.
// Kinds without any estimate are omitted from the per-kind table.
func SummarizeCost(records []resource.Record) resource.CostSummary {
	var total float64
	byKind := make(map[string]float64)
	for _, r := range records {
		if r.EstimatedMonthlyCost == nil {
			continue
		}
		total += *r.EstimatedMonthlyCost
		byKind[string(r.Kind)] += *r.EstimatedMonthlyCost
	}
	for k, v := range byKind {
		byKind[k] = cost.Round(v)
	}
	return resource.CostSummary{Total: cost.Round(total), ByKind: byKind}
}
