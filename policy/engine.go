// Package policy gates inbound webhook events with an OPA rego policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Decision values returned by the policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Input is what the policy evaluates for each parsed event.
type Input struct {
	EventType      string         `json:"event_type"`
	SessionID      string         `json:"session_id"`
	ConversationID string         `json:"conversation_id"`
	TurnID         string         `json:"turn_id,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.webhook_policy.decision"),
		rego.Module("webhook_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate decides whether an event may be handled. The policy must
// define data.webhook_policy.decision as "allow" or "block".
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		// No decision rule matched; admit the event.
		return DecisionAllow, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("policy returned non-string decision")
}

// DefaultPolicy admits every event. Deployments override it to filter
// by event type, conversation, or caller metadata.
const DefaultPolicy = `
package webhook_policy

default decision := "allow"
`
