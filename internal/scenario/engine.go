// Package scenario selects mock responses from per-endpoint runtime state:
// state machine scenarios, call sequences, conditional rules and injected errors.
package scenario

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prasenjit/go-mocksim/internal/catalog"
	"github.com/prasenjit/go-mocksim/internal/condition"
	"github.com/prasenjit/go-mocksim/internal/models"
)

// ErrUnknownState is wrapped by a ConfigError when a scenario names an undeclared state
var ErrUnknownState = errors.New("unknown scenario state")

// ErrNoScenario is wrapped by a ConfigError when a scenario call has no config
var ErrNoScenario = errors.New("no scenario config")

// ConfigError is a configuration defect found while running a scenario.
// It is never retried; callers surface it as a server error.
type ConfigError struct {
	EndpointID string
	State      string
	Err        error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("scenario for endpoint %s: state %q: %v", e.EndpointID, e.State, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Step is the outcome of one scenario call
type Step struct {
	Response models.MockResponse
	From     string
	To       string
}

// Transitioned reports whether the call moved the machine to another state
func (s Step) Transitioned() bool {
	return s.From != s.To
}

// Engine owns the runtime state of every mocked endpoint
type Engine struct {
	store     StateStore
	evaluator *condition.Evaluator

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEngine creates an engine. A nil store defaults to a MemoryStateStore
// and a nil rng to a time seeded source.
func NewEngine(store StateStore, rng *rand.Rand) *Engine {
	if store == nil {
		store = NewMemoryStateStore()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{
		store:     store,
		evaluator: condition.NewEvaluator(),
		rng:       rng,
	}
}

// ProcessScenario returns the response of the current state, then advances
// along the first matching transition. The next call observes the new state.
func (e *Engine) ProcessScenario(endpointID string, cfg *models.ScenarioConfig, body []byte) (models.MockResponse, error) {
	step, err := e.Step(endpointID, cfg, body)
	return step.Response, err
}

// Step is ProcessScenario reporting the transition taken
func (e *Engine) Step(endpointID string, cfg *models.ScenarioConfig, body []byte) (Step, error) {
	if cfg == nil {
		return Step{}, &ConfigError{EndpointID: endpointID, Err: ErrNoScenario}
	}

	var step Step
	err := e.store.Update(endpointID, func(st *EndpointState) error {
		current := st.State
		if current == "" {
			current = cfg.InitialState
		}

		state, ok := cfg.State(current)
		if !ok {
			return &ConfigError{EndpointID: endpointID, State: current, Err: ErrUnknownState}
		}

		next := current
		for _, t := range cfg.Transitions {
			if t.From == current && e.fires(t, body) {
				next = t.To
				break
			}
		}

		st.State = next
		step = Step{Response: state.Response, From: current, To: next}
		return nil
	})
	if err != nil {
		return Step{}, err
	}
	return step, nil
}

func (e *Engine) fires(t models.StateTransition, body []byte) bool {
	switch t.Trigger {
	case models.TriggerAuto, models.TriggerOnCall:
		return true
	case models.TriggerCondition:
		if len(body) == 0 || t.Condition == nil {
			return false
		}
		return e.evaluator.Evaluate(*t.Condition, body)
	default:
		return false
	}
}

// NextCall increments and returns the 1-indexed call number of the endpoint
func (e *Engine) NextCall(endpointID string) int {
	var n int
	_ = e.store.Update(endpointID, func(st *EndpointState) error {
		st.CallCount++
		n = st.CallCount
		return nil
	})
	return n
}

// ProcessSequence counts the call and returns the first entry for that call
// number, or def when there is none
func (e *Engine) ProcessSequence(endpointID string, seqs []models.SequenceResponse, def models.MockResponse) models.MockResponse {
	if seq, _ := e.MatchSequence(endpointID, seqs); seq != nil {
		return seq.Response()
	}
	return def
}

// MatchSequence counts the call and returns the first entry for that call
// number, or nil, along with the call number
func (e *Engine) MatchSequence(endpointID string, seqs []models.SequenceResponse) (*models.SequenceResponse, int) {
	n := e.NextCall(endpointID)
	for i := range seqs {
		if seqs[i].CallNumber == n {
			return &seqs[i], n
		}
	}
	return nil, n
}

// ProcessConditionalRules returns the response of the first rule whose
// condition holds for body, or def
func (e *Engine) ProcessConditionalRules(rules []models.ConditionalRule, body []byte, def models.MockResponse) models.MockResponse {
	if r := e.MatchRule(rules, body); r != nil {
		return r.Response
	}
	return def
}

// MatchRule returns the first matching rule or nil
func (e *Engine) MatchRule(rules []models.ConditionalRule, body []byte) *models.ConditionalRule {
	for i := range rules {
		if e.evaluator.Evaluate(rules[i].Condition, body) {
			return &rules[i]
		}
	}
	return nil
}

// ProcessErrorScenario runs one Bernoulli trial per entry in order and returns
// the response of the first success, or nil when none fires
func (e *Engine) ProcessErrorScenario(errs []models.ErrorScenario) *models.MockResponse {
	for _, es := range errs {
		if e.roll() >= es.Probability {
			continue
		}
		resp := mergeOverride(catalog.ResponseFor(es.Type), es.Response)
		return &resp
	}
	return nil
}

// mergeOverride replaces catalog fields the override sets; headers merge by key
func mergeOverride(resp models.MockResponse, o *models.ResponseOverride) models.MockResponse {
	if o == nil {
		return resp
	}
	if o.StatusCode != nil {
		resp.StatusCode = *o.StatusCode
	}
	if o.Body != nil {
		resp.Body = o.Body
	}
	if len(o.Headers) > 0 {
		if resp.Headers == nil {
			resp.Headers = make(map[string]string, len(o.Headers))
		}
		for k, v := range o.Headers {
			resp.Headers[k] = v
		}
	}
	return resp
}

// CallCount returns the number of sequence calls seen for the endpoint
func (e *Engine) CallCount(endpointID string) int {
	return e.store.Get(endpointID).CallCount
}

// CurrentState returns the scenario state, false when uninitialised
func (e *Engine) CurrentState(endpointID string) (string, bool) {
	st := e.store.Get(endpointID).State
	return st, st != ""
}

// States returns the state of every endpoint that has been called
func (e *Engine) States() map[string]EndpointState {
	return e.store.Snapshot()
}

// ResetEndpoint forgets the state and call count of one endpoint
func (e *Engine) ResetEndpoint(endpointID string) {
	e.store.Delete(endpointID)
}

// ResetAll forgets every endpoint
func (e *Engine) ResetAll() {
	e.store.Clear()
}

func (e *Engine) roll() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}
