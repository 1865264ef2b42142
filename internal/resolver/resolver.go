// Package resolver composes the network simulator, the scenario engine and the
// default response into the ordered pipeline that answers one mock call.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prasenjit/go-mocksim/internal/faker"
	"github.com/prasenjit/go-mocksim/internal/logging"
	"github.com/prasenjit/go-mocksim/internal/models"
	"github.com/prasenjit/go-mocksim/internal/network"
	"github.com/prasenjit/go-mocksim/internal/scenario"
	"github.com/prasenjit/go-mocksim/internal/template"
)

// ErrMockDisabled is returned for configs that are switched off
var ErrMockDisabled = errors.New("mock is disabled")

// Strategies that can produce a response
const (
	StrategyErrorScenario = "error_scenario"
	StrategyScenario      = "scenario"
	StrategySequence      = "sequence"
	StrategyConditional   = "conditional"
	StrategyDynamic       = "dynamic"
	StrategyStatic        = "static"
)

// ModelSource lists the API models used for dynamic responses
type ModelSource interface {
	ListModels() ([]*models.ApiModel, error)
}

// Request is the part of an HTTP request the pipeline looks at
type Request struct {
	PathParams  map[string]string
	QueryParams map[string][]string
	Headers     map[string][]string
	Body        []byte
}

// Result is the outcome of one resolved call
type Result struct {
	Response     models.MockResponse
	Strategy     string
	Delay        time.Duration
	State        string
	CallCount    int
	Transitioned bool
}

// Resolver answers mock calls
type Resolver struct {
	network   *network.Simulator
	engine    *scenario.Engine
	templates *template.Engine
	models    ModelSource
	generator faker.Options
}

// New creates a resolver. generator holds the default generation options,
// overridden per config by MockConfig.Generation.
func New(sim *network.Simulator, engine *scenario.Engine, templates *template.Engine, modelSource ModelSource, generator faker.Options) *Resolver {
	return &Resolver{
		network:   sim,
		engine:    engine,
		templates: templates,
		models:    modelSource,
		generator: generator,
	}
}

// Engine returns the scenario engine holding endpoint state
func (r *Resolver) Engine() *scenario.Engine {
	return r.engine
}

// Resolve runs the pipeline for cfg. A simulated failure is returned as a
// *network.TransportError, a broken scenario as a *scenario.ConfigError.
// State changes made before the final delay are kept if ctx is cancelled.
func (r *Resolver) Resolve(ctx context.Context, cfg *models.MockConfig, req *Request) (*Result, error) {
	if !cfg.Enabled {
		return nil, ErrMockDisabled
	}
	if req == nil {
		req = &Request{}
	}

	plan := r.network.Plan(cfg)
	if err := r.network.Apply(ctx, plan); err != nil {
		return nil, err
	}

	res, err := r.selectResponse(cfg, req)
	if err != nil {
		return nil, err
	}

	res.Delay = plan.Delay
	res.CallCount = r.engine.CallCount(cfg.EndpointID)
	res.State, _ = r.engine.CurrentState(cfg.EndpointID)

	if err := r.network.Wait(ctx, plan.Delay); err != nil {
		return res, err
	}
	return res, nil
}

func (r *Resolver) selectResponse(cfg *models.MockConfig, req *Request) (*Result, error) {
	if cfg.ErrorScenariosEnabled {
		if resp := r.engine.ProcessErrorScenario(cfg.ErrorScenarios); resp != nil {
			return &Result{Response: *resp, Strategy: StrategyErrorScenario}, nil
		}
	}

	if cfg.ScenarioEnabled && cfg.ScenarioConfig != nil {
		step, err := r.engine.Step(cfg.EndpointID, cfg.ScenarioConfig, req.Body)
		if err != nil {
			return nil, err
		}
		return &Result{Response: step.Response, Strategy: StrategyScenario, Transitioned: step.Transitioned()}, nil
	}

	if cfg.SequenceEnabled {
		if seq, _ := r.engine.MatchSequence(cfg.EndpointID, cfg.SequenceResponses); seq != nil {
			return &Result{Response: seq.Response(), Strategy: StrategySequence}, nil
		}
	}

	if cfg.ConditionalEnabled {
		if rule := r.engine.MatchRule(cfg.ConditionalRules, req.Body); rule != nil {
			return &Result{Response: rule.Response, Strategy: StrategyConditional}, nil
		}
	}

	return r.defaultResponse(cfg, req), nil
}

// defaultResponse is the generated body when a model resolves, else the
// rendered static template
func (r *Resolver) defaultResponse(cfg *models.MockConfig, req *Request) *Result {
	status := cfg.StatusCode
	if status == 0 {
		status = 200
	}

	tctx := &template.Context{
		PathParams:  req.PathParams,
		QueryParams: req.QueryParams,
		Headers:     req.Headers,
		Body:        req.Body,
		CallCount:   r.engine.CallCount(cfg.EndpointID),
	}
	tctx.State, _ = r.engine.CurrentState(cfg.EndpointID)

	var headers map[string]string
	if len(cfg.ResponseHeaders) > 0 {
		headers = r.templates.ProcessHeaders(cfg.ResponseHeaders, tctx)
	}

	if cfg.DynamicResponse {
		if body, ok := r.generate(cfg); ok {
			return &Result{
				Response: models.MockResponse{StatusCode: status, Body: body, Headers: headers},
				Strategy: StrategyDynamic,
			}
		}
	}

	return &Result{
		Response: models.MockResponse{
			StatusCode: status,
			Body:       decodeBody(r.templates.Process(cfg.ResponseBody, tctx)),
			Headers:    headers,
		},
		Strategy: StrategyStatic,
	}
}

func (r *Resolver) generate(cfg *models.MockConfig) (any, bool) {
	opts := r.generator.Merge(cfg.Generation)

	var all []*models.ApiModel
	if r.models != nil {
		var err error
		if all, err = r.models.ListModels(); err != nil {
			logging.L.Warnw("failed to list models", "endpointId", cfg.EndpointID, "error", err)
		}
	}

	if model := models.FindModel(all, cfg.ResponseModel); model != nil {
		if len(cfg.ResponseTemplate) > 0 {
			return faker.GenerateFromTemplate(model, all, cfg.ResponseTemplate, opts), true
		}
		return faker.Generate(model, all, opts), true
	}

	if len(cfg.ResponseTemplate) > 0 {
		out := make(map[string]any, len(cfg.ResponseTemplate))
		for k, v := range cfg.ResponseTemplate {
			out[k] = v
		}
		return out, true
	}
	return nil, false
}

// decodeBody returns the rendered body as JSON when it parses, else as a string
func decodeBody(rendered string) any {
	if rendered == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(rendered), &v); err != nil {
		return rendered
	}
	return v
}
