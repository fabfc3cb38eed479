// Package policy gates destructive actions with OPA Rego rules.
//
// Policies live in package corral.actions and contribute messages to the
// deny set:
//
//	package corral.actions
//
//	deny contains msg if {
//		input.action == "terminate"
//		input.metadata.tags.env == "prod"
//		msg := "production instances cannot be terminated"
//	}
package policy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Query is the rule evaluated for every action.
const Query = "data.corral.actions.deny"

// Input is the document policies see as `input`.
type Input struct {
	Kind       string         `json:"kind"`
	ResourceID string         `json:"resource_id"`
	Region     string         `json:"region"`
	Action     string         `json:"action"`
	Metadata   map[string]any `json:"metadata"`
}

// Decision is the outcome of evaluating all loaded policies.
type Decision struct {
	Allowed bool
	Reasons []string
}

// Guard holds compiled policies. It is safe for concurrent use.
type Guard struct {
	mu       sync.RWMutex
	modules  map[string]string
	prepared *rego.PreparedEvalQuery
	tracer   trace.Tracer
}

// NewGuard creates a guard with no policies; it allows everything.
func NewGuard() *Guard {
	return &Guard{
		modules: make(map[string]string),
		tracer:  otel.Tracer("corral/policy"),
	}
}

// LoadPolicy adds or replaces a named Rego module and recompiles the query.
func (g *Guard) LoadPolicy(ctx context.Context, name, code string) error {
	ctx, span := g.tracer.Start(ctx, "policy.load",
		trace.WithAttributes(attribute.String("policy.name", name)))
	defer span.End()

	g.mu.Lock()
	defer g.mu.Unlock()

	modules := make(map[string]string, len(g.modules)+1)
	for k, v := range g.modules {
		modules[k] = v
	}
	modules[name] = code

	opts := []func(*rego.Rego){rego.Query(Query)}
	for n, c := range modules {
		opts = append(opts, rego.Module(n, c))
	}

	prepared, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("compile policy %s: %w", name, err)
	}

	g.modules = modules
	g.prepared = &prepared

	log.Info().Str("policy_name", name).Int("policies", len(modules)).Msg("policy loaded")
	return nil
}

// LoadPaths loads .rego files; directories are walked recursively.
func (g *Guard) LoadPaths(ctx context.Context, paths ...string) error {
	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".rego") {
				return nil
			}
			content, err := os.ReadFile(filepath.Clean(path))
			if err != nil {
				return fmt.Errorf("read policy file %s: %w", path, err)
			}
			return g.LoadPolicy(ctx, path, string(content))
		})
		if err != nil {
			return fmt.Errorf("load policies from %s: %w", root, err)
		}
	}
	return nil
}

// Len returns the number of loaded modules.
func (g *Guard) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.modules)
}

// Evaluate checks input against the loaded policies. Evaluation errors deny.
func (g *Guard) Evaluate(ctx context.Context, input Input) Decision {
	g.mu.RLock()
	prepared := g.prepared
	g.mu.RUnlock()

	if prepared == nil {
		return Decision{Allowed: true}
	}

	ctx, span := g.tracer.Start(ctx, "policy.evaluate",
		trace.WithAttributes(
			attribute.String("resource.id", input.ResourceID),
			attribute.String("resource.kind", input.Kind),
			attribute.String("action", input.Action)))
	defer span.End()

	rs, err := prepared.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("resource_id", input.ResourceID).Msg("policy evaluation failed")
		return Decision{Reasons: []string{fmt.Sprintf("policy evaluation failed: %v", err)}}
	}

	reasons := denyReasons(rs)
	if len(reasons) > 0 {
		log.Info().
			Str("resource_id", input.ResourceID).
			Str("action", input.Action).
			Strs("reasons", reasons).
			Msg("action denied by policy")
		return Decision{Reasons: reasons}
	}
	return Decision{Allowed: true}
}

func denyReasons(rs rego.ResultSet) []string {
	var reasons []string
	for _, result := range rs {
		for _, expr := range result.Expressions {
			values, ok := expr.Value.([]interface{})
			if !ok {
				continue
			}
			for _, v := range values {
				reasons = append(reasons, fmt.Sprint(v))
			}
		}
	}
	sort.Strings(reasons)
	return reasons
}
