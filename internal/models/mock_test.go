package models

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func intPtr(v int) *int { return &v }

func validMock() MockConfig {
	return MockConfig{
		EndpointID: "get-user",
		Method:     "GET",
		Path:       "/users/{id}",
		StatusCode: 200,
	}
}

func TestMockConfig_Validate(t *testing.T) {
	scenario := &ScenarioConfig{
		InitialState: "a",
		States: []ScenarioState{
			{Name: "a", Response: MockResponse{StatusCode: 200}},
			{Name: "b", Response: MockResponse{StatusCode: 201}},
		},
		Transitions: []StateTransition{{From: "a", To: "b", Trigger: TriggerOnCall}},
	}

	tests := []struct {
		name    string
		mutate  func(m *MockConfig)
		wantErr bool
	}{
		{"valid", func(m *MockConfig) {}, false},
		{"missing endpoint", func(m *MockConfig) { m.EndpointID = " " }, true},
		{"relative path", func(m *MockConfig) { m.Path = "users" }, true},
		{"status out of range", func(m *MockConfig) { m.StatusCode = 700 }, true},
		{"dynamic without model", func(m *MockConfig) { m.DynamicResponse = true }, true},
		{"dynamic with template", func(m *MockConfig) {
			m.DynamicResponse = true
			m.ResponseTemplate = map[string]any{"id": 1}
		}, false},
		{"negative delay", func(m *MockConfig) { m.DelayMs = -1 }, true},
		{"unknown network error", func(m *MockConfig) {
			m.SimulateNetworkError = true
			m.NetworkErrorType = "cable_cut"
		}, true},
		{"network probability", func(m *MockConfig) {
			m.SimulateNetworkError = true
			m.NetworkErrorType = NetworkDNSFailure
			m.NetworkErrorProbability = 2
		}, true},
		{"disabled network error ignores type", func(m *MockConfig) { m.NetworkErrorType = "cable_cut" }, false},
		{"scenario without config", func(m *MockConfig) { m.ScenarioEnabled = true }, true},
		{"valid scenario", func(m *MockConfig) {
			m.ScenarioEnabled = true
			m.ScenarioConfig = scenario
		}, false},
		{"sequence call zero", func(m *MockConfig) {
			m.SequenceResponses = []SequenceResponse{{CallNumber: 0, StatusCode: 200}}
		}, true},
		{"sequence bad status", func(m *MockConfig) {
			m.SequenceResponses = []SequenceResponse{{CallNumber: 1, StatusCode: 42}}
		}, true},
		{"rule bad operator", func(m *MockConfig) {
			m.ConditionalRules = []ConditionalRule{{
				Condition: Condition{Field: "a", Operator: "like"},
				Response:  MockResponse{StatusCode: 200},
			}}
		}, true},
		{"rule bad pattern", func(m *MockConfig) {
			m.ConditionalRules = []ConditionalRule{{
				Condition: Condition{Field: "a", Operator: OpMatches, Value: "("},
				Response:  MockResponse{StatusCode: 200},
			}}
		}, true},
		{"error scenario unknown type", func(m *MockConfig) {
			m.ErrorScenarios = []ErrorScenario{{Type: "TEAPOT", Probability: 0.5}}
		}, true},
		{"error scenario override status", func(m *MockConfig) {
			m.ErrorScenarios = []ErrorScenario{{
				Type:        ErrorRateLimited,
				Probability: 1,
				Response:    &ResponseOverride{StatusCode: intPtr(1000)},
			}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMock()
			tt.mutate(&m)
			err := m.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected error to wrap ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestScenarioConfig_Validate(t *testing.T) {
	states := []ScenarioState{
		{Name: "a", Response: MockResponse{StatusCode: 200}},
		{Name: "b", Response: MockResponse{StatusCode: 200}},
	}

	tests := []struct {
		name    string
		cfg     ScenarioConfig
		wantErr bool
	}{
		{"valid", ScenarioConfig{InitialState: "a", States: states}, false},
		{"no states", ScenarioConfig{InitialState: "a"}, true},
		{"unknown initial", ScenarioConfig{InitialState: "z", States: states}, true},
		{"duplicate state", ScenarioConfig{InitialState: "a", States: append(states, states[0])}, true},
		{"unknown target", ScenarioConfig{
			InitialState: "a",
			States:       states,
			Transitions:  []StateTransition{{From: "a", To: "z", Trigger: TriggerAuto}},
		}, true},
		{"unknown trigger", ScenarioConfig{
			InitialState: "a",
			States:       states,
			Transitions:  []StateTransition{{From: "a", To: "b", Trigger: "sometimes"}},
		}, true},
		{"condition trigger without condition", ScenarioConfig{
			InitialState: "a",
			States:       states,
			Transitions:  []StateTransition{{From: "a", To: "b", Trigger: TriggerCondition}},
		}, true},
		{"condition trigger", ScenarioConfig{
			InitialState: "a",
			States:       states,
			Transitions: []StateTransition{{
				From:      "a",
				To:        "b",
				Trigger:   TriggerCondition,
				Condition: &Condition{Field: "paid", Operator: OpEquals, Value: true},
			}},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestScenarioConfig_State(t *testing.T) {
	cfg := ScenarioConfig{States: []ScenarioState{{Name: "idle", Response: MockResponse{StatusCode: 204}}}}

	st, ok := cfg.State("idle")
	if !ok || st.Response.StatusCode != 204 {
		t.Errorf("Expected idle state, got %v %v", st, ok)
	}
	if _, ok := cfg.State("busy"); ok {
		t.Error("Expected unknown state to be missing")
	}
}

func TestMockConfigUpdate_Apply(t *testing.T) {
	m := validMock()
	m.ResponseBody = "keep"

	enabled := true
	delay := 250
	kind := NetworkConnectionReset
	seqs := []SequenceResponse{{CallNumber: 1, StatusCode: 201}}

	update := MockConfigUpdate{
		Enabled:           &enabled,
		DelayMs:           &delay,
		NetworkErrorType:  &kind,
		SequenceResponses: &seqs,
	}
	update.Apply(&m)

	if !m.Enabled || m.DelayMs != 250 || m.NetworkErrorType != NetworkConnectionReset {
		t.Errorf("Update not applied: %+v", m)
	}
	if !reflect.DeepEqual(m.SequenceResponses, seqs) {
		t.Errorf("Expected sequence responses to be replaced, got %v", m.SequenceResponses)
	}
	if m.ResponseBody != "keep" || m.Path != "/users/{id}" {
		t.Error("Unset fields must be left alone")
	}

	// An explicit empty list clears the field
	empty := []SequenceResponse{}
	(&MockConfigUpdate{SequenceResponses: &empty}).Apply(&m)
	if len(m.SequenceResponses) != 0 {
		t.Errorf("Expected sequence responses to be cleared, got %v", m.SequenceResponses)
	}
}

func TestMockConfig_Summary(t *testing.T) {
	m := validMock()
	m.ErrorScenariosEnabled = true
	m.SequenceEnabled = true

	s := m.Summary()
	if s.EndpointID != "get-user" || s.Method != "GET" {
		t.Errorf("Unexpected summary %+v", s)
	}
	if !reflect.DeepEqual(s.Strategies, []string{"errorScenarios", "sequence"}) {
		t.Errorf("Expected strategies in pipeline order, got %v", s.Strategies)
	}
}

func TestKindValidity(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"trigger auto", TriggerAuto.Valid()},
		{"trigger on_call", TriggerOnCall.Valid()},
		{"error rate limited", ErrorRateLimited.Valid()},
		{"network dns", NetworkDNSFailure.Valid()},
		{"operator matches", OpMatches.Valid()},
	}
	for _, tt := range tests {
		if !tt.valid {
			t.Errorf("Expected %s to be valid", tt.name)
		}
	}

	if TriggerKind("later").Valid() || ErrorKind("TEAPOT").Valid() ||
		NetworkErrorKind("cable_cut").Valid() || Operator("like").Valid() {
		t.Error("Expected unknown kinds to be invalid")
	}
	if len(ValidOperators()) != 7 {
		t.Errorf("Expected 7 operators, got %d", len(ValidOperators()))
	}
}

func TestFindModel(t *testing.T) {
	list := []*ApiModel{{Name: "User"}, nil, {Name: "Order"}}

	if m := FindModel(list, "Order"); m == nil || m.Name != "Order" {
		t.Errorf("Expected Order, got %v", m)
	}
	if FindModel(list, "Missing") != nil {
		t.Error("Expected nil for unknown model")
	}
}

func TestCondition_JSONKeepsExplicitNull(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		expectsNull bool
		omitted     bool
		out         string
	}{
		{"explicit null", `{"field":"a","operator":"eq","value":null}`, true, false, `{"field":"a","operator":"eq","value":null}`},
		{"omitted", `{"field":"a","operator":"eq"}`, false, true, `{"field":"a","operator":"eq"}`},
		{"string", `{"field":"a","operator":"eq","value":"x"}`, false, false, `{"field":"a","operator":"eq","value":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Condition
			if err := json.Unmarshal([]byte(tt.in), &c); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if c.ExpectsNull() != tt.expectsNull || c.ValueOmitted() != tt.omitted {
				t.Errorf("ExpectsNull=%v ValueOmitted=%v", c.ExpectsNull(), c.ValueOmitted())
			}

			out, err := json.Marshal(c)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(out) != tt.out {
				t.Errorf("expected %s, got %s", tt.out, out)
			}
		})
	}
}
