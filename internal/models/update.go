package models

// MockConfigUpdate represents a partial update of a mock config.
// Only non-nil fields are applied.
type MockConfigUpdate struct {
	EndpointID *string `json:"endpointId,omitempty"`
	Method     *string `json:"method,omitempty"`
	Path       *string `json:"path,omitempty"`
	Enabled    *bool   `json:"enabled,omitempty"`

	StatusCode       *int               `json:"statusCode,omitempty"`
	ResponseBody     *string            `json:"responseBody,omitempty"`
	ResponseHeaders  *map[string]string `json:"responseHeaders,omitempty"`
	DynamicResponse  *bool              `json:"dynamicResponse,omitempty"`
	ResponseModel    *string            `json:"responseModel,omitempty"`
	ResponseTemplate *map[string]any    `json:"responseTemplate,omitempty"`
	Generation       *GenerationOptions `json:"generation,omitempty"`

	DelayMs                 *int              `json:"delayMs,omitempty"`
	UseRandomDelay          *bool             `json:"useRandomDelay,omitempty"`
	DelayRandomMin          *int              `json:"delayRandomMin,omitempty"`
	DelayRandomMax          *int              `json:"delayRandomMax,omitempty"`
	SimulateTimeout         *bool             `json:"simulateTimeout,omitempty"`
	TimeoutMs               *int              `json:"timeoutMs,omitempty"`
	SimulateNetworkError    *bool             `json:"simulateNetworkError,omitempty"`
	NetworkErrorType        *NetworkErrorKind `json:"networkErrorType,omitempty"`
	NetworkErrorProbability *float64          `json:"networkErrorProbability,omitempty"`

	ScenarioEnabled       *bool               `json:"scenarioEnabled,omitempty"`
	ScenarioConfig        *ScenarioConfig     `json:"scenarioConfig,omitempty"`
	SequenceEnabled       *bool               `json:"sequenceEnabled,omitempty"`
	SequenceResponses     *[]SequenceResponse `json:"sequenceResponses,omitempty"`
	ConditionalEnabled    *bool               `json:"conditionalEnabled,omitempty"`
	ConditionalRules      *[]ConditionalRule  `json:"conditionalRules,omitempty"`
	ErrorScenariosEnabled *bool               `json:"errorScenariosEnabled,omitempty"`
	ErrorScenarios        *[]ErrorScenario    `json:"errorScenarios,omitempty"`
}

// Apply copies every set field of the update onto cfg
func (u *MockConfigUpdate) Apply(cfg *MockConfig) {
	if u.EndpointID != nil {
		cfg.EndpointID = *u.EndpointID
	}
	if u.Method != nil {
		cfg.Method = *u.Method
	}
	if u.Path != nil {
		cfg.Path = *u.Path
	}
	if u.Enabled != nil {
		cfg.Enabled = *u.Enabled
	}

	if u.StatusCode != nil {
		cfg.StatusCode = *u.StatusCode
	}
	if u.ResponseBody != nil {
		cfg.ResponseBody = *u.ResponseBody
	}
	if u.ResponseHeaders != nil {
		cfg.ResponseHeaders = *u.ResponseHeaders
	}
	if u.DynamicResponse != nil {
		cfg.DynamicResponse = *u.DynamicResponse
	}
	if u.ResponseModel != nil {
		cfg.ResponseModel = *u.ResponseModel
	}
	if u.ResponseTemplate != nil {
		cfg.ResponseTemplate = *u.ResponseTemplate
	}
	if u.Generation != nil {
		cfg.Generation = u.Generation
	}

	if u.DelayMs != nil {
		cfg.DelayMs = *u.DelayMs
	}
	if u.UseRandomDelay != nil {
		cfg.UseRandomDelay = *u.UseRandomDelay
	}
	if u.DelayRandomMin != nil {
		cfg.DelayRandomMin = *u.DelayRandomMin
	}
	if u.DelayRandomMax != nil {
		cfg.DelayRandomMax = *u.DelayRandomMax
	}
	if u.SimulateTimeout != nil {
		cfg.SimulateTimeout = *u.SimulateTimeout
	}
	if u.TimeoutMs != nil {
		cfg.TimeoutMs = *u.TimeoutMs
	}
	if u.SimulateNetworkError != nil {
		cfg.SimulateNetworkError = *u.SimulateNetworkError
	}
	if u.NetworkErrorType != nil {
		cfg.NetworkErrorType = *u.NetworkErrorType
	}
	if u.NetworkErrorProbability != nil {
		cfg.NetworkErrorProbability = *u.NetworkErrorProbability
	}

	if u.ScenarioEnabled != nil {
		cfg.ScenarioEnabled = *u.ScenarioEnabled
	}
	if u.ScenarioConfig != nil {
		cfg.ScenarioConfig = u.ScenarioConfig
	}
	if u.SequenceEnabled != nil {
		cfg.SequenceEnabled = *u.SequenceEnabled
	}
	if u.SequenceResponses != nil {
		cfg.SequenceResponses = *u.SequenceResponses
	}
	if u.ConditionalEnabled != nil {
		cfg.ConditionalEnabled = *u.ConditionalEnabled
	}
	if u.ConditionalRules != nil {
		cfg.ConditionalRules = *u.ConditionalRules
	}
	if u.ErrorScenariosEnabled != nil {
		cfg.ErrorScenariosEnabled = *u.ErrorScenariosEnabled
	}
	if u.ErrorScenarios != nil {
		cfg.ErrorScenarios = *u.ErrorScenarios
	}
}
