package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/corral/pkg/resource"
)

func record(id string, kind resource.Kind, region, state string, tags map[string]string) resource.Record {
	return resource.Record{ResourceID: id, Kind: kind, Region: region, State: state, Tags: tags}
}

func TestMatch_NoFilters(t *testing.T) {
	f := New()
	assert.True(t, f.IsEmpty())
	assert.True(t, f.Match(record("i-1", resource.KindEC2Instance, "us-east-1", "running", nil)))
}

func TestMatch(t *testing.T) {
	prodWeb := record("i-1", resource.KindEC2Instance, "us-east-1", "running", map[string]string{"env": "prod", "team": "web"})
	devVol := record("vol-1", resource.KindEBSVolume, "eu-west-1", "available", map[string]string{"env": "dev"})
	skipped := record("i-2", resource.KindEC2Instance, "us-east-1", "stopped", map[string]string{"corral:skip": "true"})

	tests := []struct {
		name   string
		filter *Filter
		want   map[string]bool
	}{
		{
			name:   "kind",
			filter: New(WithKinds(resource.KindEC2Instance)),
			want:   map[string]bool{"i-1": true, "vol-1": false, "i-2": true},
		},
		{
			name:   "region",
			filter: New(WithRegions("eu-west-1")),
			want:   map[string]bool{"i-1": false, "vol-1": true, "i-2": false},
		},
		{
			name:   "state ignores case",
			filter: New(WithStates("RUNNING", "available")),
			want:   map[string]bool{"i-1": true, "vol-1": true, "i-2": false},
		},
		{
			name:   "include tags all required",
			filter: New(WithTags(map[string]string{"env": "prod", "team": "web"})),
			want:   map[string]bool{"i-1": true, "vol-1": false, "i-2": false},
		},
		{
			name:   "exclude tags any match",
			filter: New(WithoutTags(map[string]string{"corral:skip": "true", "env": "dev"})),
			want:   map[string]bool{"i-1": true, "vol-1": false, "i-2": false},
		},
		{
			name:   "dimensions combine",
			filter: New(WithKinds(resource.KindEC2Instance), WithStates("stopped")),
			want:   map[string]bool{"i-1": false, "vol-1": false, "i-2": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, r := range []resource.Record{prodWeb, devVol, skipped} {
				assert.Equal(t, tt.want[r.ResourceID], tt.filter.Match(r), r.ResourceID)
			}
		})
	}
}

func TestRecords_PreservesOrder(t *testing.T) {
	records := []resource.Record{
		record("a", resource.KindEC2Instance, "us-east-1", "running", nil),
		record("b", resource.KindEC2Instance, "us-east-1", "stopped", nil),
		record("c", resource.KindEC2Instance, "us-east-1", "running", nil),
	}

	got := New(WithStates("running")).Records(records)

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ResourceID)
	assert.Equal(t, "c", got[1].ResourceID)
}

func TestRecords_EmptyFilterReturnsInput(t *testing.T) {
	records := []resource.Record{record("a", resource.KindS3Bucket, "us-east-1", "active", nil)}
	assert.Equal(t, records, New().Records(records))
}

func TestParseTags(t *testing.T) {
	tags, err := ParseTags([]string{"env=prod", " team = web ", "flag"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"env": "prod", "team": "web", "flag": ""}, tags)

	_, err = ParseTags([]string{"=value"})
	require.Error(t, err)
}

func TestParseKinds(t *testing.T) {
	kinds, err := ParseKinds([]string{"EC2_Instance", "S3_Bucket"})
	require.NoError(t, err)
	assert.Equal(t, []resource.Kind{resource.KindEC2Instance, resource.KindS3Bucket}, kinds)

	_, err = ParseKinds([]string{"Widget"})
	assert.True(t, errors.Is(err, resource.ErrUnknownKind))
}
