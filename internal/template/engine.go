package template

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prasenjit/go-mocksim/internal/faker"
	"github.com/tidwall/gjson"
)

// Engine renders {{variable}} templates in mock bodies and header values
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewEngine creates a new template engine
func NewEngine() *Engine {
	return &Engine{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
}

// Context contains all data available for template rendering
type Context struct {
	PathParams  map[string]string
	QueryParams map[string][]string
	Headers     map[string][]string
	Body        []byte

	// Runtime state of the mocked endpoint after the call
	CallCount int
	State     string
}

// templateVarPattern matches template variables like {{variable}}
var templateVarPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Process replaces every variable of the template
func (e *Engine) Process(template string, ctx *Context) string {
	if ctx == nil {
		ctx = &Context{}
	}
	return templateVarPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		return e.resolveVariable(name, ctx)
	})
}

// ProcessHeaders renders every header value
func (e *Engine) ProcessHeaders(headers map[string]string, ctx *Context) map[string]string {
	result := make(map[string]string, len(headers))
	for key, value := range headers {
		result[key] = e.Process(value, ctx)
	}
	return result
}

func (e *Engine) resolveVariable(name string, ctx *Context) string {
	// Both "path.id" and ".path.id" are accepted
	name = strings.TrimPrefix(name, ".")

	source, key, _ := strings.Cut(name, ".")

	switch source {
	case "path":
		return ctx.PathParams[key]
	case "query":
		if vals := ctx.QueryParams[key]; len(vals) > 0 {
			return vals[0]
		}
	case "header":
		for k, vals := range ctx.Headers {
			if strings.EqualFold(k, key) && len(vals) > 0 {
				return vals[0]
			}
		}
	case "body":
		if key != "" && len(ctx.Body) > 0 {
			if result := gjson.GetBytes(ctx.Body, key); result.Exists() {
				return result.String()
			}
		}
	case "mock":
		return resolveMock(key, ctx)
	case "fake":
		if key != "" {
			return fmt.Sprint(faker.FakeValue(key, e.seed()))
		}
	case "random":
		return e.resolveRandom(key)
	case "timestamp":
		return e.resolveTimestamp(key)
	}

	return ""
}

func resolveMock(key string, ctx *Context) string {
	switch key {
	case "callCount":
		return strconv.Itoa(ctx.CallCount)
	case "state":
		return ctx.State
	default:
		return ""
	}
}

// resolveRandom handles random.<kind> and random.<kind>(args). Unknown kinds
// render as the empty string.
func (e *Engine) resolveRandom(key string) string {
	name, args := parseCall(key)

	e.mu.Lock()
	defer e.mu.Unlock()

	switch name {
	case "uuid":
		return uuid.NewString()
	case "int":
		lo, hi := 0, 999999
		if len(args) == 2 {
			a, errA := strconv.Atoi(args[0])
			b, errB := strconv.Atoi(args[1])
			if errA == nil && errB == nil && b > a {
				lo, hi = a, b
			}
		}
		return strconv.Itoa(lo + e.rng.Intn(hi-lo+1))
	case "float":
		lo, hi := 0.0, 1000.0
		if len(args) == 2 {
			a, errA := strconv.ParseFloat(args[0], 64)
			b, errB := strconv.ParseFloat(args[1], 64)
			if errA == nil && errB == nil && b > a {
				lo, hi = a, b
			}
		}
		return strconv.FormatFloat(lo+e.rng.Float64()*(hi-lo), 'f', 2, 64)
	case "string":
		n := 10
		if len(args) == 1 {
			if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
				n = v
			}
		}
		return randomString(e.rng, n)
	case "bool":
		return strconv.FormatBool(e.rng.Intn(2) == 1)
	case "email", "name", "phone":
		return fmt.Sprint(faker.FakeValue(name, e.rng.Int63()))
	}
	return ""
}

var timestampLayouts = map[string]string{
	"iso":      time.RFC3339,
	"date":     time.DateOnly,
	"time":     time.TimeOnly,
	"datetime": time.DateTime,
}

// resolveTimestamp renders timestamp.<form>. Anything it cannot interpret
// falls back to unix seconds.
func (e *Engine) resolveTimestamp(key string) string {
	now := e.now()
	name, args := parseCall(key)

	if layout, ok := timestampLayouts[name]; ok {
		return now.Format(layout)
	}

	switch name {
	case "unixMilli":
		return strconv.FormatInt(now.UnixMilli(), 10)
	case "unixNano":
		return strconv.FormatInt(now.UnixNano(), 10)
	case "format":
		if len(args) == 1 {
			return now.Format(args[0])
		}
	case "add":
		if len(args) == 1 {
			if d, err := time.ParseDuration(args[0]); err == nil {
				return now.Add(d).Format(time.RFC3339)
			}
		}
	}
	return strconv.FormatInt(now.Unix(), 10)
}

func (e *Engine) seed() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Int63()
}

// parseCall splits "int(1, 10)" into "int" and ["1" "10"]. A key without
// parentheses has no args; so does "int()".
func parseCall(key string) (string, []string) {
	name, rest, ok := strings.Cut(key, "(")
	if !ok {
		return key, nil
	}
	inner := strings.TrimSuffix(rest, ")")
	if strings.TrimSpace(inner) == "" {
		return name, nil
	}

	args := strings.Split(inner, ",")
	for i := range args {
		args[i] = strings.TrimSpace(args[i])
	}
	return name, args
}

func randomString(rng *rand.Rand, length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rng.Intn(len(charset))]
	}
	return string(b)
}
