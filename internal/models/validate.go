package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid mock config")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks the config for values the engine cannot act on.
// It is run whenever a config is saved.
func (m *MockConfig) Validate() error {
	if strings.TrimSpace(m.EndpointID) == "" {
		return invalidf("endpointId is required")
	}
	if m.Path != "" && !strings.HasPrefix(m.Path, "/") {
		return invalidf("path must start with '/': %q", m.Path)
	}
	if m.StatusCode != 0 && !validStatus(m.StatusCode) {
		return invalidf("statusCode out of range: %d", m.StatusCode)
	}
	if m.DynamicResponse && m.ResponseModel == "" && len(m.ResponseTemplate) == 0 {
		return invalidf("dynamicResponse requires responseModel or responseTemplate")
	}

	if m.DelayMs < 0 || m.DelayRandomMin < 0 || m.DelayRandomMax < 0 || m.TimeoutMs < 0 {
		return invalidf("delays must not be negative")
	}
	if m.SimulateNetworkError {
		if !m.NetworkErrorType.Valid() {
			return invalidf("unknown networkErrorType %q", m.NetworkErrorType)
		}
		if !validProbability(m.NetworkErrorProbability) {
			return invalidf("networkErrorProbability must be within [0,1]: %v", m.NetworkErrorProbability)
		}
	}

	if m.ScenarioEnabled {
		if m.ScenarioConfig == nil {
			return invalidf("scenarioEnabled requires scenarioConfig")
		}
		if err := m.ScenarioConfig.Validate(); err != nil {
			return err
		}
	}
	for i, seq := range m.SequenceResponses {
		if seq.CallNumber < 1 {
			return invalidf("sequenceResponses[%d]: callNumber must be >= 1", i)
		}
		if !validStatus(seq.StatusCode) {
			return invalidf("sequenceResponses[%d]: statusCode out of range: %d", i, seq.StatusCode)
		}
	}
	for i, rule := range m.ConditionalRules {
		if err := rule.Condition.Validate(); err != nil {
			return fmt.Errorf("conditionalRules[%d]: %w", i, err)
		}
		if !validStatus(rule.Response.StatusCode) {
			return invalidf("conditionalRules[%d]: statusCode out of range: %d", i, rule.Response.StatusCode)
		}
	}
	for i, es := range m.ErrorScenarios {
		if !es.Type.Valid() {
			return invalidf("errorScenarios[%d]: unknown type %q", i, es.Type)
		}
		if !validProbability(es.Probability) {
			return invalidf("errorScenarios[%d]: probability must be within [0,1]: %v", i, es.Probability)
		}
		if es.Response != nil && es.Response.StatusCode != nil && !validStatus(*es.Response.StatusCode) {
			return invalidf("errorScenarios[%d]: statusCode out of range: %d", i, *es.Response.StatusCode)
		}
	}

	return nil
}

// Validate checks that every state referenced by the machine is declared
func (s *ScenarioConfig) Validate() error {
	if len(s.States) == 0 {
		return invalidf("scenario has no states")
	}

	declared := make(map[string]bool, len(s.States))
	for _, st := range s.States {
		if st.Name == "" {
			return invalidf("scenario state without a name")
		}
		if declared[st.Name] {
			return invalidf("duplicate scenario state %q", st.Name)
		}
		if !validStatus(st.Response.StatusCode) {
			return invalidf("state %q: statusCode out of range: %d", st.Name, st.Response.StatusCode)
		}
		declared[st.Name] = true
	}

	if !declared[s.InitialState] {
		return invalidf("initialState %q is not a declared state", s.InitialState)
	}

	for i, t := range s.Transitions {
		if !declared[t.From] {
			return invalidf("transitions[%d]: unknown from state %q", i, t.From)
		}
		if !declared[t.To] {
			return invalidf("transitions[%d]: unknown to state %q", i, t.To)
		}
		if !t.Trigger.Valid() {
			return invalidf("transitions[%d]: unknown trigger %q", i, t.Trigger)
		}
		if t.Trigger == TriggerCondition {
			if t.Condition == nil {
				return invalidf("transitions[%d]: condition trigger without condition", i)
			}
			if err := t.Condition.Validate(); err != nil {
				return fmt.Errorf("transitions[%d]: %w", i, err)
			}
		}
	}

	return nil
}

// Validate checks the operator and, for matches, the pattern
func (c *Condition) Validate() error {
	if c.Field == "" {
		return invalidf("condition field is required")
	}
	if !c.Operator.Valid() {
		return invalidf("unknown operator %q", c.Operator)
	}
	if c.Operator == OpMatches {
		pattern, ok := c.Value.(string)
		if !ok {
			return invalidf("matches requires a string pattern")
		}
		if _, err := regexp.Compile(pattern); err != nil {
			return invalidf("invalid pattern %q: %v", pattern, err)
		}
	}
	return nil
}

func validStatus(code int) bool {
	return code >= 100 && code <= 599
}

func validProbability(p float64) bool {
	return p >= 0 && p <= 1
}
