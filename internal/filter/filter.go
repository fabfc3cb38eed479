// Package filter narrows scan results by kind, region, state and tag.
package filter

import (
	"fmt"
	"strings"

	"github.com/yairfalse/corral/pkg/resource"
)

// Filter decides which records of a scan to keep.
// An empty dimension matches everything.
type Filter struct {
	kinds       map[resource.Kind]bool
	regions     map[string]bool
	states      map[string]bool
	includeTags map[string]string
	excludeTags map[string]string
}

// Option configures a Filter.
type Option func(*Filter)

// WithKinds keeps only records of the given kinds.
func WithKinds(kinds ...resource.Kind) Option {
	return func(f *Filter) {
		for _, k := range kinds {
			f.kinds[k] = true
		}
	}
}

// WithRegions keeps only records in the given regions.
func WithRegions(regions ...string) Option {
	return func(f *Filter) {
		for _, r := range regions {
			f.regions[r] = true
		}
	}
}

// WithStates keeps only records in the given states. Matching ignores case.
func WithStates(states ...string) Option {
	return func(f *Filter) {
		for _, s := range states {
			f.states[strings.ToLower(s)] = true
		}
	}
}

// WithTags keeps only records carrying every given tag.
func WithTags(tags map[string]string) Option {
	return func(f *Filter) {
		for k, v := range tags {
			f.includeTags[k] = v
		}
	}
}

// WithoutTags drops records carrying any of the given tags.
func WithoutTags(tags map[string]string) Option {
	return func(f *Filter) {
		for k, v := range tags {
			f.excludeTags[k] = v
		}
	}
}

// New creates a Filter.
func New(opts ...Option) *Filter {
	f := &Filter{
		kinds:       make(map[resource.Kind]bool),
		regions:     make(map[string]bool),
		states:      make(map[string]bool),
		includeTags: make(map[string]string),
		excludeTags: make(map[string]string),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Match reports whether r passes every configured dimension.
func (f *Filter) Match(r resource.Record) bool {
	if len(f.kinds) > 0 && !f.kinds[r.Kind] {
		return false
	}
	if len(f.regions) > 0 && !f.regions[r.Region] {
		return false
	}
	if len(f.states) > 0 && !f.states[strings.ToLower(r.State)] {
		return false
	}

	// Include tags: ALL must match
	for k, v := range f.includeTags {
		if r.Tags == nil || r.Tags[k] != v {
			return false
		}
	}

	// Exclude tags: ANY match excludes
	for k, v := range f.excludeTags {
		if r.Tags != nil && r.Tags[k] == v {
			return false
		}
	}

	return true
}

// Records returns the records that pass the filter, preserving order.
func (f *Filter) Records(records []resource.Record) []resource.Record {
	if f.IsEmpty() {
		return records
	}

	filtered := make([]resource.Record, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// IsEmpty returns true if no filters are configured.
func (f *Filter) IsEmpty() bool {
	return len(f.kinds) == 0 && len(f.regions) == 0 && len(f.states) == 0 &&
		len(f.includeTags) == 0 && len(f.excludeTags) == 0
}

// ParseTags converts "key=value" pairs into a map. A pair without "=" matches an empty value.
func ParseTags(pairs []string) (map[string]string, error) {
	tags := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, _ := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if k == "" {
			return nil, fmt.Errorf("invalid tag %q: key is empty", p)
		}
		tags[k] = strings.TrimSpace(v)
	}
	return tags, nil
}

// ParseKinds converts kind names into resource kinds.
func ParseKinds(names []string) ([]resource.Kind, error) {
	kinds := make([]resource.Kind, 0, len(names))
	for _, n := range names {
		k, err := resource.ParseKind(n)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}
