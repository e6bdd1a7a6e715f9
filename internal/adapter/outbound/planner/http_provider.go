package planner

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/G-TechSD/ganesha-ai/internal/domain/plan"
)

// maxPlanResponseBytes caps how much of a provider's response body gets
// read, so a misbehaving or malicious endpoint can't exhaust memory.
const maxPlanResponseBytes = 1 << 20

// httpPlanRequest is the wire shape POSTed to the provider endpoint.
// It is intentionally generic rather than modeled on any one vendor's
// chat-completion API, since spec.md treats "LLM providers" as an
// external collaborator contract, not a specific SDK.
type httpPlanRequest struct {
	Task    string           `json:"task"`
	Facts   plan.SystemFacts `json:"system_facts"`
	History []plan.Turn      `json:"history"`
}

type httpPlanResponse struct {
	PlanID  string        `json:"plan_id"`
	Actions []plan.Action `json:"actions"`
}

// HTTPPlanner is a minimal net/http-based plan.Planner implementation:
// POST the task and system facts to Endpoint, expect a JSON plan back.
// It carries no vendor-specific authentication; ProviderOption hooks let
// a caller add headers (bearer tokens, API keys) without this package
// needing to know about any one provider's scheme.
type HTTPPlanner struct {
	Endpoint   string
	httpClient *http.Client
	configure  []func(*http.Request)
}

// ProviderOption configures an HTTPPlanner at construction time,
// mirroring the teacher's functional-option style for its own HTTP
// client adapter.
type ProviderOption func(*HTTPPlanner)

// WithHTTPClient overrides the default client (timeouts, proxies, test
// transport injection).
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *HTTPPlanner) { p.httpClient = client }
}

// WithRequestHeader attaches a static header to every outgoing request,
// e.g. WithRequestHeader("Authorization", "Bearer ...").
func WithRequestHeader(key, value string) ProviderOption {
	return func(p *HTTPPlanner) {
		p.configure = append(p.configure, func(r *http.Request) { r.Header.Set(key, value) })
	}
}

// NewHTTPPlanner builds a planner posting to endpoint.
func NewHTTPPlanner(endpoint string, opts ...ProviderOption) *HTTPPlanner {
	p := &HTTPPlanner{
		Endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *HTTPPlanner) Plan(ctx context.Context, facts plan.SystemFacts, task string, history []plan.Turn) (plan.Plan, error) {
	body, err := json.Marshal(httpPlanRequest{Task: task, Facts: facts, History: history})
	if err != nil {
		return plan.Plan{}, fmt.Errorf("marshal plan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return plan.Plan{}, fmt.Errorf("build plan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for _, configure := range p.configure {
		configure(req)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return plan.Plan{}, fmt.Errorf("plan provider request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return plan.Plan{}, fmt.Errorf("plan provider returned status %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, maxPlanResponseBytes)
	var parsed httpPlanResponse
	if err := json.NewDecoder(limited).Decode(&parsed); err != nil {
		return plan.Plan{}, fmt.Errorf("decode plan response: %w", err)
	}

	return plan.Plan{PlanID: parsed.PlanID, Actions: parsed.Actions}, nil
}
