package models

import (
	"bytes"
	"encoding/json"
)

// Operator is a condition comparison operator
type Operator string

// Supported condition operators
const (
	OpExists    Operator = "exists"
	OpEquals    Operator = "eq"
	OpNotEquals Operator = "neq"
	OpGreater   Operator = "gt"
	OpLess      Operator = "lt"
	OpContains  Operator = "contains"
	OpMatches   Operator = "matches"
)

// Valid reports whether the operator is one of the supported operators
func (o Operator) Valid() bool {
	switch o {
	case OpExists, OpEquals, OpNotEquals, OpGreater, OpLess, OpContains, OpMatches:
		return true
	default:
		return false
	}
}

// Condition is a typed test against a field of the request body.
//
// An omitted value and an explicit JSON null are different expectations: eq
// with no value matches a missing field, eq with null matches a null field.
type Condition struct {
	Field    string   `json:"field"`           // Dot-notation path into the request body
	Operator Operator `json:"operator"`        // One of the Op* constants
	Value    any      `json:"value,omitempty"` // Expected value, unused by exists

	null bool // value was given as JSON null
}

// NullCondition builds a condition whose expected value is JSON null
func NullCondition(field string, op Operator) Condition {
	return Condition{Field: field, Operator: op, null: true}
}

// ExpectsNull reports whether the value was given as JSON null
func (c Condition) ExpectsNull() bool {
	return c.null && c.Value == nil
}

// ValueOmitted reports whether no value was given at all
func (c Condition) ValueOmitted() bool {
	return !c.null && c.Value == nil
}

type conditionFields Condition

// UnmarshalJSON keeps track of an explicit "value": null
func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw struct {
		conditionFields
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = Condition(raw.conditionFields)
	c.Value, c.null = nil, false
	switch v := bytes.TrimSpace(raw.Value); {
	case len(v) == 0:
	case bytes.Equal(v, []byte("null")):
		c.null = true
	default:
		return json.Unmarshal(v, &c.Value)
	}
	return nil
}

// MarshalJSON writes an explicit null back out so it survives storage
func (c Condition) MarshalJSON() ([]byte, error) {
	if !c.ExpectsNull() {
		return json.Marshal(conditionFields(c))
	}
	return json.Marshal(struct {
		conditionFields
		Value any `json:"value"`
	}{conditionFields: conditionFields(c)})
}

// ValidOperators returns all valid condition operators
func ValidOperators() []Operator {
	return []Operator{
		OpExists, OpEquals, OpNotEquals, OpGreater,
		OpLess, OpContains, OpMatches,
	}
}
