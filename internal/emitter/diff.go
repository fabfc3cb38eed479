package emitter

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/yairfalse/corral/pkg/resource"
)

// DiffType names the kind of change between two scans.
type DiffType string

const (
	DiffAdded    DiffType = "added"
	DiffDeleted  DiffType = "deleted"
	DiffModified DiffType = "modified"
)

// Change is one field's before and after value.
type Change struct {
	Previous string
	Current  string
}

// Diff describes how one record changed since the last scan.
type Diff struct {
	Type     DiffType
	Record   resource.Record
	Previous *resource.Record
	Changes  map[string]Change
}

// DiffTracker tracks records between scans and detects changes.
type DiffTracker struct {
	mu          sync.RWMutex
	previous    map[resource.Key]resource.Record
	initialized bool
}

// NewDiffTracker creates a new diff tracker.
func NewDiffTracker() *DiffTracker {
	return &DiffTracker{
		previous: make(map[resource.Key]resource.Record),
	}
}

// ComputeDiff compares current records against the stored baseline.
// Returns nil before the first Update and an empty slice when nothing changed.
// Diffs are ordered by record key.
func (d *DiffTracker) ComputeDiff(current []resource.Record) []Diff {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.initialized {
		return nil
	}

	currentMap := indexRecords(current)
	diffs := make([]Diff, 0)
	diffs = append(diffs, d.findDeletedAndModified(currentMap)...)
	diffs = append(diffs, d.findAdded(currentMap)...)

	slices.SortFunc(diffs, func(a, b Diff) int {
		ka, kb := a.Record.Key(), b.Record.Key()
		switch {
		case ka.Less(kb):
			return -1
		case kb.Less(ka):
			return 1
		}
		return 0
	})
	return diffs
}

func indexRecords(records []resource.Record) map[resource.Key]resource.Record {
	m := make(map[resource.Key]resource.Record, len(records))
	for _, r := range records {
		m[r.Key()] = r
	}
	return m
}

func (d *DiffTracker) findDeletedAndModified(currentMap map[resource.Key]resource.Record) []Diff {
	var diffs []Diff
	for key, prev := range d.previous {
		prevCopy := prev
		curr, exists := currentMap[key]
		if !exists {
			diffs = append(diffs, Diff{Type: DiffDeleted, Record: prev, Previous: &prevCopy})
			continue
		}
		if changes := detectChanges(prev, curr); len(changes) > 0 {
			diffs = append(diffs, Diff{Type: DiffModified, Record: curr, Previous: &prevCopy, Changes: changes})
		}
	}
	return diffs
}

func (d *DiffTracker) findAdded(currentMap map[resource.Key]resource.Record) []Diff {
	var diffs []Diff
	for key, curr := range currentMap {
		if _, exists := d.previous[key]; !exists {
			diffs = append(diffs, Diff{Type: DiffAdded, Record: curr})
		}
	}
	return diffs
}

// Update stores current as the baseline for the next comparison.
func (d *DiffTracker) Update(current []resource.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.previous = indexRecords(current)
	d.initialized = true
}

// detectChanges compares two records. Extra is not compared: it carries
// point-in-time details such as stored bytes.
func detectChanges(prev, curr resource.Record) map[string]Change {
	changes := make(map[string]Change)

	if prev.ResourceName != curr.ResourceName {
		changes["name"] = Change{Previous: prev.ResourceName, Current: curr.ResourceName}
	}

	if prev.State != curr.State {
		changes["state"] = Change{Previous: prev.State, Current: curr.State}
	}

	if !maps.Equal(prev.Tags, curr.Tags) {
		changes["tags"] = Change{Previous: mapToJSON(prev.Tags), Current: mapToJSON(curr.Tags)}
	}

	if costString(prev.EstimatedMonthlyCost) != costString(curr.EstimatedMonthlyCost) {
		changes["estimated_cost_monthly"] = Change{
			Previous: costString(prev.EstimatedMonthlyCost),
			Current:  costString(curr.EstimatedMonthlyCost),
		}
	}

	return changes
}

// mapToJSON renders a map deterministically; encoding/json sorts keys.
func mapToJSON(m map[string]string) string {
	if m == nil {
		return "{}"
	}
	b, _ := json.Marshal(m)
	return string(b)
}

func costString(c *float64) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *c)
}
