package models

import (
	"time"
)

// MockResponse is a concrete response a mocked endpoint returns
type MockResponse struct {
	StatusCode int               `json:"statusCode"`
	Body       any               `json:"body"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// TriggerKind decides when a state transition fires
type TriggerKind string

// Supported transition triggers
const (
	TriggerAuto      TriggerKind = "auto"
	TriggerOnCall    TriggerKind = "on_call"
	TriggerCondition TriggerKind = "condition"
)

// Valid reports whether the trigger kind is supported
func (t TriggerKind) Valid() bool {
	switch t {
	case TriggerAuto, TriggerOnCall, TriggerCondition:
		return true
	default:
		return false
	}
}

// ErrorKind names a canned error response from the error catalog
type ErrorKind string

// Standard error kinds
const (
	ErrorBadRequest         ErrorKind = "BAD_REQUEST"
	ErrorUnauthorized       ErrorKind = "UNAUTHORIZED"
	ErrorForbidden          ErrorKind = "FORBIDDEN"
	ErrorNotFound           ErrorKind = "NOT_FOUND"
	ErrorInternal           ErrorKind = "INTERNAL_SERVER_ERROR"
	ErrorServiceUnavailable ErrorKind = "SERVICE_UNAVAILABLE"
	ErrorRateLimited        ErrorKind = "RATE_LIMITED"
)

// Valid reports whether the error kind is part of the catalog
func (k ErrorKind) Valid() bool {
	switch k {
	case ErrorBadRequest, ErrorUnauthorized, ErrorForbidden, ErrorNotFound,
		ErrorInternal, ErrorServiceUnavailable, ErrorRateLimited:
		return true
	default:
		return false
	}
}

// NetworkErrorKind is the transport failure simulated below the HTTP layer
type NetworkErrorKind string

// Supported network error kinds
const (
	NetworkConnectionRefused NetworkErrorKind = "connection_refused"
	NetworkConnectionReset   NetworkErrorKind = "connection_reset"
	NetworkHostUnreachable   NetworkErrorKind = "host_unreachable"
	NetworkDNSFailure        NetworkErrorKind = "dns_failure"
)

// Valid reports whether the network error kind is supported
func (k NetworkErrorKind) Valid() bool {
	switch k {
	case NetworkConnectionRefused, NetworkConnectionReset, NetworkHostUnreachable, NetworkDNSFailure:
		return true
	default:
		return false
	}
}

// ScenarioState is a named state of a scenario state machine
type ScenarioState struct {
	Name     string       `json:"name"`
	Response MockResponse `json:"response"`
}

// StateTransition moves a scenario from one state to another
type StateTransition struct {
	From      string      `json:"from"`
	To        string      `json:"to"`
	Trigger   TriggerKind `json:"trigger"`
	Condition *Condition  `json:"condition,omitempty"`
}

// ScenarioConfig is a finite state machine scripting a multi-step conversation
type ScenarioConfig struct {
	States       []ScenarioState   `json:"states"`
	Transitions  []StateTransition `json:"transitions"`
	InitialState string            `json:"initialState"`
}

// State returns the declared state with the given name
func (s *ScenarioConfig) State(name string) (*ScenarioState, bool) {
	for i := range s.States {
		if s.States[i].Name == name {
			return &s.States[i], true
		}
	}
	return nil, false
}

// SequenceResponse is the response returned on a given 1-indexed call number
type SequenceResponse struct {
	CallNumber int               `json:"callNumber"`
	StatusCode int               `json:"statusCode"`
	Body       any               `json:"body"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// Response returns the response part of the sequence entry
func (s SequenceResponse) Response() MockResponse {
	return MockResponse{StatusCode: s.StatusCode, Body: s.Body, Headers: s.Headers}
}

// ConditionalRule returns Response when Condition holds for the request body
type ConditionalRule struct {
	Condition Condition    `json:"condition"`
	Response  MockResponse `json:"response"`
}

// ResponseOverride is a partial MockResponse; nil fields fall back to the catalog
type ResponseOverride struct {
	StatusCode *int              `json:"statusCode,omitempty"`
	Body       any               `json:"body,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// ErrorScenario injects an error response with the given probability
type ErrorScenario struct {
	Type        ErrorKind         `json:"type"`
	Probability float64           `json:"probability"`
	Response    *ResponseOverride `json:"response,omitempty"`
}

// GenerationOptions tunes dynamic response generation
type GenerationOptions struct {
	Locale          string `json:"locale,omitempty"`
	Seed            *int64 `json:"seed,omitempty"`
	IncludeOptional *bool  `json:"includeOptional,omitempty"`
	MaxDepth        int    `json:"maxDepth,omitempty"`
	ArrayLength     int    `json:"arrayLength,omitempty"`
}

// MockConfig is the mock configuration of a single endpoint
type MockConfig struct {
	ID         string `json:"id"`
	EndpointID string `json:"endpointId"`
	Method     string `json:"method"` // GET, POST, ...
	Path       string `json:"path"`   // Path pattern e.g., /users/{id}
	Enabled    bool   `json:"enabled"`

	// Static / dynamic default response
	StatusCode       int                `json:"statusCode"`
	ResponseBody     string             `json:"responseBody"` // Can contain template variables
	ResponseHeaders  map[string]string  `json:"responseHeaders,omitempty"`
	DynamicResponse  bool               `json:"dynamicResponse"`
	ResponseModel    string             `json:"responseModel,omitempty"`
	ResponseTemplate map[string]any     `json:"responseTemplate,omitempty"`
	Generation       *GenerationOptions `json:"generation,omitempty"`

	// Network conditions
	DelayMs                 int              `json:"delayMs"`
	UseRandomDelay          bool             `json:"useRandomDelay"`
	DelayRandomMin          int              `json:"delayRandomMin"`
	DelayRandomMax          int              `json:"delayRandomMax"`
	SimulateTimeout         bool             `json:"simulateTimeout"`
	TimeoutMs               int              `json:"timeoutMs"`
	SimulateNetworkError    bool             `json:"simulateNetworkError"`
	NetworkErrorType        NetworkErrorKind `json:"networkErrorType,omitempty"`
	NetworkErrorProbability float64          `json:"networkErrorProbability"`

	// Response selection strategies
	ScenarioEnabled       bool               `json:"scenarioEnabled"`
	ScenarioConfig        *ScenarioConfig    `json:"scenarioConfig,omitempty"`
	SequenceEnabled       bool               `json:"sequenceEnabled"`
	SequenceResponses     []SequenceResponse `json:"sequenceResponses,omitempty"`
	ConditionalEnabled    bool               `json:"conditionalEnabled"`
	ConditionalRules      []ConditionalRule  `json:"conditionalRules,omitempty"`
	ErrorScenariosEnabled bool               `json:"errorScenariosEnabled"`
	ErrorScenarios        []ErrorScenario    `json:"errorScenarios,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MockConfigSummary is a lightweight version for listings
type MockConfigSummary struct {
	ID         string   `json:"id"`
	EndpointID string   `json:"endpointId"`
	Method     string   `json:"method"`
	Path       string   `json:"path"`
	Enabled    bool     `json:"enabled"`
	Strategies []string `json:"strategies"`
}

// Summary returns a listing view of the config
func (m *MockConfig) Summary() MockConfigSummary {
	strategies := make([]string, 0, 4)
	if m.ErrorScenariosEnabled {
		strategies = append(strategies, "errorScenarios")
	}
	if m.ScenarioEnabled {
		strategies = append(strategies, "scenario")
	}
	if m.SequenceEnabled {
		strategies = append(strategies, "sequence")
	}
	if m.ConditionalEnabled {
		strategies = append(strategies, "conditional")
	}
	return MockConfigSummary{
		ID:         m.ID,
		EndpointID: m.EndpointID,
		Method:     m.Method,
		Path:       m.Path,
		Enabled:    m.Enabled,
		Strategies: strategies,
	}
}
