package emitter

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/yairfalse/corral/pkg/resource"
)

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", "yaml"} {
		_, err := ParseFormat(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseFormat("csv")
	assert.Error(t, err)
}

func TestWriterEmitter_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriterEmitter(&buf, FormatTable).Emit(context.Background(), sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "i-123")
	assert.Contains(t, out, "EC2_Instance")
	assert.Contains(t, out, "$7.59")
	assert.Contains(t, out, "1 resources across 1 regions")
	assert.Contains(t, out, "Estimated monthly cost: $7.59")
	assert.NotContains(t, out, "scan errors")
}

func TestWriterEmitter_TableErrors(t *testing.T) {
	result := sampleResult()
	result.Errors = []resource.ScanError{{Kind: resource.ScanErrorKind, Message: "S3_Bucket in global: AccessDenied"}}

	var buf bytes.Buffer
	require.NoError(t, NewWriterEmitter(&buf, FormatTable).Emit(context.Background(), result))

	assert.Contains(t, buf.String(), "1 scan errors:")
	assert.Contains(t, buf.String(), "S3_Bucket in global: AccessDenied")
}

func TestWriterEmitter_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriterEmitter(&buf, FormatJSON).Emit(context.Background(), sampleResult()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "resources")
	assert.Contains(t, decoded, "summary")
	assert.Contains(t, decoded, "cost_summary")
	assert.Equal(t, []any{"us-east-1"}, decoded["regions_scanned"])
}

func TestWriterEmitter_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriterEmitter(&buf, FormatYAML).Emit(context.Background(), sampleResult()))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	resources, ok := decoded["resources"].([]any)
	require.True(t, ok)
	require.Len(t, resources, 1)
	assert.Equal(t, "i-123", resources[0].(map[string]any)["resource_id"])
}

func TestWriteOutcomes(t *testing.T) {
	outcomes := []resource.Outcome{
		{ResourceID: "i-1", Kind: resource.KindEC2Instance, Action: resource.ActionStop, VerificationStatus: resource.VerificationVerified, Message: "Instance stop initiated. Current state: stopped", Success: true},
		{ResourceID: "vol-1", Kind: resource.KindEBSVolume, Action: resource.ActionDelete, VerificationStatus: resource.VerificationFailed, Message: "Volume not found"},
	}

	var table bytes.Buffer
	require.NoError(t, WriteOutcomes(&table, FormatTable, outcomes...))
	assert.Contains(t, table.String(), "Volume not found")
	assert.Contains(t, table.String(), "verified")

	var single bytes.Buffer
	require.NoError(t, WriteOutcomes(&single, FormatJSON, outcomes[0]))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(single.Bytes(), &decoded))
	assert.Equal(t, "i-1", decoded["resource_id"])

	var many bytes.Buffer
	require.NoError(t, WriteOutcomes(&many, FormatJSON, outcomes...))
	var list []map[string]any
	require.NoError(t, json.Unmarshal(many.Bytes(), &list))
	assert.Len(t, list, 2)
}

func TestEncode_RejectsTable(t *testing.T) {
	assert.Error(t, Encode(&bytes.Buffer{}, FormatTable, struct{}{}))
}
