package condition

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/prasenjit/go-mocksim/internal/models"
	"github.com/tidwall/gjson"
)

// Evaluator evaluates conditions against a JSON request body.
// It is stateless and safe for concurrent use.
type Evaluator struct{}

// NewEvaluator creates a new condition evaluator
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// EvaluateAll evaluates all conditions against the body
// All conditions must match (AND logic)
func (e *Evaluator) EvaluateAll(conditions []models.Condition, body []byte) bool {
	for _, cond := range conditions {
		if !e.Evaluate(cond, body) {
			return false
		}
	}
	return true
}

// Evaluate evaluates a single condition against the body.
// Type mismatches and unknown operators evaluate to false.
func (e *Evaluator) Evaluate(cond models.Condition, body []byte) bool {
	actual := Lookup(body, cond.Field)

	switch cond.Operator {
	case models.OpExists:
		return actual.Exists() && actual.Type != gjson.Null
	case models.OpEquals:
		return strictEqual(actual, cond)
	case models.OpNotEquals:
		return !strictEqual(actual, cond)
	case models.OpGreater:
		a, b, ok := numericPair(actual, cond.Value)
		return ok && a > b
	case models.OpLess:
		a, b, ok := numericPair(actual, cond.Value)
		return ok && a < b
	case models.OpContains:
		return contains(actual, cond)
	case models.OpMatches:
		return matches(actual, cond.Value)
	default:
		return false
	}
}

// Lookup walks body one dot-separated key at a time.
// A missing key, a non-JSON body or an empty field yields a result
// for which Exists() is false.
func Lookup(body []byte, field string) gjson.Result {
	if len(body) == 0 || field == "" || !gjson.ValidBytes(body) {
		return gjson.Result{}
	}

	keys := strings.Split(field, ".")
	for i, k := range keys {
		keys[i] = escapeKey(k)
	}
	return gjson.GetBytes(body, strings.Join(keys, "."))
}

// escapeKey makes every character of k literal in a gjson path
func escapeKey(k string) string {
	var b strings.Builder
	for _, r := range k {
		if !isPlainKeyRune(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isPlainKeyRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' ||
		r == '_' || r == '-' || r == ':' || r > 0x7f
}

// strictEqual compares scalars of the same JSON type only. A missing field
// equals an omitted value and nothing else; a null field equals only an
// explicit null.
func strictEqual(actual gjson.Result, cond models.Condition) bool {
	if !actual.Exists() {
		return cond.ValueOmitted()
	}

	expected := cond.Value
	switch actual.Type {
	case gjson.Null:
		return cond.ExpectsNull()
	case gjson.True, gjson.False:
		b, ok := expected.(bool)
		return ok && b == actual.Bool()
	case gjson.Number:
		n, ok := toNumber(expected)
		return ok && n == actual.Num
	case gjson.String:
		s, ok := expected.(string)
		return ok && s == actual.Str
	default:
		// objects and arrays are compared by identity, which a decoded value never shares
		return false
	}
}

func numericPair(actual gjson.Result, expected any) (float64, float64, bool) {
	if actual.Type != gjson.Number {
		return 0, 0, false
	}
	n, ok := toNumber(expected)
	if !ok {
		return 0, 0, false
	}
	return actual.Num, n, true
}

// toNumber accepts Go numeric kinds and json.Number, never strings
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func contains(actual gjson.Result, cond models.Condition) bool {
	switch {
	case actual.Type == gjson.String:
		s, ok := cond.Value.(string)
		return ok && strings.Contains(actual.Str, s)
	case actual.IsArray():
		for _, item := range actual.Array() {
			if strictEqual(item, cond) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func matches(actual gjson.Result, expected any) bool {
	pattern, ok := expected.(string)
	if !ok || actual.Type != gjson.String {
		return false
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(actual.Str)
}
