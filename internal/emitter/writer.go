package emitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/yairfalse/corral/pkg/resource"
)

// Format selects how results are rendered.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat converts a string into a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, json or yaml)", s)
	}
}

// WriterEmitter renders scan results to an io.Writer.
type WriterEmitter struct {
	w      io.Writer
	format Format
}

// NewWriterEmitter creates an emitter writing format to w.
func NewWriterEmitter(w io.Writer, format Format) *WriterEmitter {
	return &WriterEmitter{w: w, format: format}
}

// Emit renders result.
func (e *WriterEmitter) Emit(_ context.Context, result resource.ScanResult) error {
	if e.format != FormatTable {
		return Encode(e.w, e.format, result)
	}
	return writeScanTable(e.w, result)
}

// Close is a no-op; the writer belongs to the caller.
func (e *WriterEmitter) Close() error {
	return nil
}

// Encode writes v as JSON or YAML.
func Encode(w io.Writer, format Format, v any) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("format %q is not an encoding", format)
	}
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator(" ")
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func writeScanTable(w io.Writer, result resource.ScanResult) error {
	table := newTable(w, []string{"Kind", "Region", "ID", "Name", "State", "Cost/Month"})
	for _, r := range result.Resources {
		table.Append([]string{
			string(r.Kind),
			r.Region,
			r.ResourceID,
			r.ResourceName,
			r.State,
			formatCost(r.EstimatedMonthlyCost),
		})
	}
	table.Render()

	_, _ = fmt.Fprintf(w, "\n%d resources across %d regions in %s\n",
		result.Summary.Total, len(result.RegionsScanned), result.Duration.Round(time.Millisecond))
	for _, kind := range sortedKeys(result.Summary.ByKind) {
		_, _ = fmt.Fprintf(w, "  %-22s %d\n", kind, result.Summary.ByKind[kind])
	}
	_, _ = fmt.Fprintf(w, "Estimated monthly cost: $%.2f\n", result.CostSummary.Total)

	if len(result.Errors) > 0 {
		_, _ = fmt.Fprintf(w, "\n%d scan errors:\n", len(result.Errors))
		for _, e := range result.Errors {
			_, _ = fmt.Fprintf(w, "  %s\n", e.Message)
		}
	}
	return nil
}

// WriteOutcomes renders action outcomes in format.
func WriteOutcomes(w io.Writer, format Format, outcomes ...resource.Outcome) error {
	if format != FormatTable {
		if len(outcomes) == 1 {
			return Encode(w, format, outcomes[0])
		}
		return Encode(w, format, outcomes)
	}

	table := newTable(w, []string{"Resource", "Kind", "Action", "Status", "Message"})
	for _, o := range outcomes {
		table.Append([]string{
			o.ResourceID,
			string(o.Kind),
			string(o.Action),
			string(o.VerificationStatus),
			o.Message,
		})
	}
	table.Render()
	return nil
}

func formatCost(c *float64) string {
	if c == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", *c)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
