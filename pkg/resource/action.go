package resource

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownAction is returned when a string does not name a supported action.
var ErrUnknownAction = errors.New("invalid action. Must be stop, delete or terminate")

// Action is a mutating operation on a resource.
type Action string

const (
	ActionStop      Action = "stop"
	ActionDelete    Action = "delete"
	ActionTerminate Action = "terminate"
)

// ParseAction converts a string into an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionStop, ActionDelete, ActionTerminate:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// VerificationStatus describes how far an action's effect was confirmed.
type VerificationStatus string

const (
	// VerificationVerified means a read after the mutation observed the expected state.
	VerificationVerified VerificationStatus = "verified"
	// VerificationPending means the action was accepted but not (yet) confirmed.
	VerificationPending VerificationStatus = "pending"
	// VerificationFailed means the action was rejected or errored.
	VerificationFailed VerificationStatus = "failed"
)

// Request asks for one action on one resource.
type Request struct {
	ResourceID string `json:"resource_id" yaml:"resource_id"`
	Kind       Kind   `json:"resource_type" yaml:"resource_type"`
	Region     string `json:"region" yaml:"region"`
	Action     Action `json:"action" yaml:"action"`
}

// Validate checks that the request names a resource, a known kind and a known action.
func (r Request) Validate() error {
	if r.ResourceID == "" {
		return errors.New("resource ID is required")
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, string(r.Kind))
	}
	if _, err := ParseAction(string(r.Action)); err != nil {
		return err
	}
	return nil
}

// Outcome is the result of one action attempt.
type Outcome struct {
	Success            bool               `json:"success" yaml:"success"`
	ResourceID         string             `json:"resource_id" yaml:"resource_id"`
	Kind               Kind               `json:"resource_type" yaml:"resource_type"`
	Region             string             `json:"region,omitempty" yaml:"region,omitempty"`
	Action             Action             `json:"action" yaml:"action"`
	Message            string             `json:"message" yaml:"message"`
	VerificationStatus VerificationStatus `json:"verification_status" yaml:"verification_status"`
	Error              string             `json:"error,omitempty" yaml:"error,omitempty"`
	Timestamp          time.Time          `json:"timestamp" yaml:"timestamp"`
}

// BulkResult aggregates the outcomes of a bulk invocation.
type BulkResult struct {
	Outcomes   []Outcome `json:"results" yaml:"results"`
	Total      int       `json:"total_actions" yaml:"total_actions"`
	Successful int       `json:"successful" yaml:"successful"`
	Failed     int       `json:"failed" yaml:"failed"`
}
