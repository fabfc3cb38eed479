package emitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/corral/pkg/resource"
)

func makeRecord(id, state string, tags map[string]string) resource.Record {
	return resource.Record{
		ResourceID:   id,
		ResourceName: "test-" + id,
		Kind:         resource.KindEC2Instance,
		Region:       "us-east-1",
		State:        state,
		Tags:         tags,
		Extra:        map[string]any{},
	}
}

func TestDiffTracker_FirstScan(t *testing.T) {
	tracker := NewDiffTracker()
	records := []resource.Record{makeRecord("i-001", "running", nil)}

	assert.Nil(t, tracker.ComputeDiff(records), "first scan should return nil")
}

func TestDiffTracker_NoChanges(t *testing.T) {
	tracker := NewDiffTracker()
	records := []resource.Record{
		makeRecord("i-001", "running", nil),
		makeRecord("i-002", "running", map[string]string{}),
	}
	tracker.Update(records)

	diffs := tracker.ComputeDiff(records)
	require.NotNil(t, diffs)
	assert.Empty(t, diffs, "identical records should produce no diffs")
}

func TestDiffTracker_AddedAndDeleted(t *testing.T) {
	tracker := NewDiffTracker()
	tracker.Update([]resource.Record{makeRecord("i-001", "running", nil), makeRecord("i-002", "running", nil)})

	diffs := tracker.ComputeDiff([]resource.Record{makeRecord("i-002", "running", nil), makeRecord("i-003", "pending", nil)})

	require.Len(t, diffs, 2)
	assert.Equal(t, DiffDeleted, diffs[0].Type)
	assert.Equal(t, "i-001", diffs[0].Record.ResourceID)
	require.NotNil(t, diffs[0].Previous)
	assert.Equal(t, DiffAdded, diffs[1].Type)
	assert.Equal(t, "i-003", diffs[1].Record.ResourceID)
	assert.Nil(t, diffs[1].Previous)
}

func TestDiffTracker_SameIDDifferentRegion(t *testing.T) {
	tracker := NewDiffTracker()
	east := makeRecord("i-001", "running", nil)
	west := east
	west.Region = "us-west-2"
	tracker.Update([]resource.Record{east})

	diffs := tracker.ComputeDiff([]resource.Record{east, west})

	require.Len(t, diffs, 1)
	assert.Equal(t, DiffAdded, diffs[0].Type)
	assert.Equal(t, "us-west-2", diffs[0].Record.Region)
}

func TestDiffTracker_Modified(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*resource.Record)
		field  string
		prev   string
		curr   string
	}{
		{"state", func(r *resource.Record) { r.State = "stopped" }, "state", "running", "stopped"},
		{"name", func(r *resource.Record) { r.ResourceName = "renamed" }, "name", "test-i-001", "renamed"},
		{"tags", func(r *resource.Record) { r.Tags = map[string]string{"env": "prod"} }, "tags", `{"env":"dev"}`, `{"env":"prod"}`},
		{"cost", func(r *resource.Record) { c := 30.0; r.EstimatedMonthlyCost = &c }, "estimated_cost_monthly", "", "30.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewDiffTracker()
			prev := makeRecord("i-001", "running", map[string]string{"env": "dev"})
			tracker.Update([]resource.Record{prev})

			curr := makeRecord("i-001", "running", map[string]string{"env": "dev"})
			tt.mutate(&curr)
			diffs := tracker.ComputeDiff([]resource.Record{curr})

			require.Len(t, diffs, 1)
			assert.Equal(t, DiffModified, diffs[0].Type)
			require.Contains(t, diffs[0].Changes, tt.field)
			assert.Equal(t, Change{Previous: tt.prev, Current: tt.curr}, diffs[0].Changes[tt.field])
			assert.Len(t, diffs[0].Changes, 1)
		})
	}
}

func TestDiffTracker_ExtraIgnored(t *testing.T) {
	tracker := NewDiffTracker()
	prev := makeRecord("i-001", "running", nil)
	tracker.Update([]resource.Record{prev})

	curr := makeRecord("i-001", "running", nil)
	curr.Extra["stored_bytes"] = int64(2048)

	assert.Empty(t, tracker.ComputeDiff([]resource.Record{curr}))
}
