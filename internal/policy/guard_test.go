package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const protectProd = `
package corral.actions

deny contains msg if {
	input.action == "terminate"
	input.metadata.tags.env == "prod"
	msg := "production instances cannot be terminated"
}
`

const protectBuckets = `
package corral.actions

deny contains msg if {
	input.kind == "S3_Bucket"
	startswith(input.resource_id, "backup-")
	msg := sprintf("bucket %s is a backup", [input.resource_id])
}
`

func TestGuard_NoPoliciesAllows(t *testing.T) {
	d := NewGuard().Evaluate(context.Background(), Input{Kind: "EC2_Instance", Action: "terminate"})
	assert.True(t, d.Allowed)
	assert.Empty(t, d.Reasons)
}

func TestGuard_Evaluate(t *testing.T) {
	g := NewGuard()
	require.NoError(t, g.LoadPolicy(context.Background(), "prod.rego", protectProd))
	require.NoError(t, g.LoadPolicy(context.Background(), "buckets.rego", protectBuckets))
	assert.Equal(t, 2, g.Len())

	tests := []struct {
		name    string
		input   Input
		allowed bool
		reason  string
	}{
		{
			name: "prod terminate denied",
			input: Input{Kind: "EC2_Instance", ResourceID: "i-1", Action: "terminate",
				Metadata: map[string]any{"tags": map[string]string{"env": "prod"}}},
			reason: "production instances cannot be terminated",
		},
		{
			name: "prod stop allowed",
			input: Input{Kind: "EC2_Instance", ResourceID: "i-1", Action: "stop",
				Metadata: map[string]any{"tags": map[string]string{"env": "prod"}}},
			allowed: true,
		},
		{
			name:    "dev terminate allowed",
			input:   Input{Kind: "EC2_Instance", ResourceID: "i-2", Action: "terminate", Metadata: map[string]any{}},
			allowed: true,
		},
		{
			name:   "backup bucket denied",
			input:  Input{Kind: "S3_Bucket", ResourceID: "backup-2024", Action: "delete"},
			reason: "bucket backup-2024 is a backup",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Evaluate(context.Background(), tt.input)
			assert.Equal(t, tt.allowed, d.Allowed)
			if tt.reason != "" {
				assert.Equal(t, []string{tt.reason}, d.Reasons)
			}
		})
	}
}

func TestGuard_CompileError(t *testing.T) {
	g := NewGuard()
	err := g.LoadPolicy(context.Background(), "bad.rego", "package corral.actions\n\ndeny contains msg if {")
	require.Error(t, err)
	assert.Equal(t, 0, g.Len())
	assert.True(t, g.Evaluate(context.Background(), Input{}).Allowed)
}

func TestGuard_EvaluationErrorDenies(t *testing.T) {
	g := NewGuard()
	conflict := `
package corral.actions

deny := "not a set" if { input.action == "delete" }
deny := "conflict" if { input.kind == "EBS_Volume" }
`
	require.NoError(t, g.LoadPolicy(context.Background(), "conflict.rego", conflict))

	d := g.Evaluate(context.Background(), Input{Kind: "EBS_Volume", Action: "delete"})
	assert.False(t, d.Allowed)
	require.Len(t, d.Reasons, 1)
	assert.Contains(t, d.Reasons[0], "policy evaluation failed")
}

func TestGuard_LoadPaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "prod.rego"), []byte(protectProd), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	g := NewGuard()
	require.NoError(t, g.LoadPaths(context.Background(), dir))
	assert.Equal(t, 1, g.Len())

	err := g.LoadPaths(context.Background(), filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestGuard_ShippedPolicies(t *testing.T) {
	g := NewGuard()
	require.NoError(t, g.LoadPaths(context.Background(), filepath.Join("..", "..", "policies")))

	tests := []struct {
		name    string
		input   Input
		allowed bool
	}{
		{
			"protected tag",
			Input{Kind: "EBS_Volume", ResourceID: "vol-1", Action: "delete", Metadata: map[string]any{"tags": map[string]string{"corral:protected": "true"}}},
			false,
		},
		{
			"terminate production",
			Input{Kind: "EC2_Instance", ResourceID: "i-1", Action: "terminate", Metadata: map[string]any{"tags": map[string]string{"env": "production"}}},
			false,
		},
		{
			"stop production",
			Input{Kind: "EC2_Instance", ResourceID: "i-1", Action: "stop", Metadata: map[string]any{"tags": map[string]string{"env": "production"}}},
			true,
		},
		{
			"no metadata",
			Input{Kind: "S3_Bucket", ResourceID: "logs", Action: "delete"},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Evaluate(context.Background(), tt.input)
			assert.Equal(t, tt.allowed, d.Allowed, d.Reasons)
		})
	}
}
