package action

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yairfalse/corral/pkg/resource"
)

// ExecuteBulk runs requests one after another. Each request is isolated; a
// failure never affects its siblings.
func (e *Executor) ExecuteBulk(ctx context.Context, reqs []resource.Request) resource.BulkResult {
	result := resource.BulkResult{
		Outcomes: make([]resource.Outcome, 0, len(reqs)),
		Total:    len(reqs),
	}
	for _, req := range reqs {
		out := e.Execute(ctx, req)
		if out.Success {
			result.Successful++
		} else {
			result.Failed++
		}
		result.Outcomes = append(result.Outcomes, out)
	}
	return result
}

// ParseRequests decodes a JSON array of requests. Elements decode
// independently: one that is not a valid request object becomes a zero
// Request, which fails validation when executed.
func ParseRequests(raw []byte) ([]resource.Request, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("decode requests: %w", err)
	}

	reqs := make([]resource.Request, len(elems))
	for i, elem := range elems {
		var req resource.Request
		if err := json.Unmarshal(elem, &req); err != nil {
			continue
		}
		reqs[i] = req
	}
	return reqs, nil
}
