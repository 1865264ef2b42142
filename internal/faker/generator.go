// Package faker generates plausible synthetic data for API models.
//
// Output is a pure function of the model, the model directory and the options:
// the same seed always reproduces the same document. Primitive values come from
// github.com/go-faker/faker/v4 whose global random source is reseeded, under a
// package lock, at the start of every generation.
package faker

import (
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	gofaker "github.com/go-faker/faker/v4"
	"github.com/prasenjit/go-mocksim/internal/models"
)

// Defaults applied to zero valued options
const (
	DefaultLocale      = "en"
	DefaultMaxDepth    = 3
	DefaultArrayLength = 3
)

// fakerMu guards the global random source of the faker library
var fakerMu sync.Mutex

// Options tunes generation
type Options struct {
	Locale          string
	Seed            *int64
	IncludeOptional *bool
	MaxDepth        int
	ArrayLength     int
	// Now is the reference instant for recent timestamps and the default seed.
	// With a seed and no Now, timestamps are anchored to SeededEpoch.
	Now time.Time
}

// SeededEpoch anchors recent timestamps when a seed is given without Now
var SeededEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Merge overlays the non-zero values of a stored GenerationOptions
func (o Options) Merge(g *models.GenerationOptions) Options {
	if g == nil {
		return o
	}
	if g.Locale != "" {
		o.Locale = g.Locale
	}
	if g.Seed != nil {
		seed := *g.Seed
		o.Seed = &seed
	}
	if g.IncludeOptional != nil {
		include := *g.IncludeOptional
		o.IncludeOptional = &include
	}
	if g.MaxDepth > 0 {
		o.MaxDepth = g.MaxDepth
	}
	if g.ArrayLength > 0 {
		o.ArrayLength = g.ArrayLength
	}
	return o
}

func (o Options) normalize() Options {
	if o.Locale == "" {
		o.Locale = DefaultLocale
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.ArrayLength <= 0 {
		o.ArrayLength = DefaultArrayLength
	}
	switch {
	case !o.Now.IsZero():
	case o.Seed != nil:
		o.Now = SeededEpoch
	default:
		o.Now = time.Now()
	}
	if o.IncludeOptional == nil {
		include := true
		o.IncludeOptional = &include
	}
	if o.Seed == nil {
		seed := o.Now.UnixMilli()
		o.Seed = &seed
	}
	return o
}

// Generate builds one document for model. Unknown nested models yield empty objects.
func Generate(model *models.ApiModel, allModels []*models.ApiModel, opts Options) map[string]any {
	opts = opts.normalize()
	if model == nil {
		return map[string]any{}
	}

	fakerMu.Lock()
	defer fakerMu.Unlock()

	g := newGenerator(*opts.Seed, allModels, opts)
	return g.object(model.Fields, 0)
}

// GenerateMultiple builds count documents. Item i is generated with seed base+i.
func GenerateMultiple(model *models.ApiModel, allModels []*models.ApiModel, count int, opts Options) []map[string]any {
	opts = opts.normalize()
	base := *opts.Seed

	items := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		itemOpts := opts
		seed := base + int64(i)
		itemOpts.Seed = &seed
		items = append(items, Generate(model, allModels, itemOpts))
	}
	return items
}

// GenerateFromTemplate generates a full document and overlays the template.
// Template values always win; the merge is shallow.
func GenerateFromTemplate(model *models.ApiModel, allModels []*models.ApiModel, template map[string]any, opts Options) map[string]any {
	out := Generate(model, allModels, opts)
	for k, v := range template {
		out[k] = v
	}
	return out
}

// FakeValue returns a single value for a field name, using smart detection
// first and treating the name as a declared type otherwise.
func FakeValue(name string, seed int64) any {
	fakerMu.Lock()
	defer fakerMu.Unlock()

	g := newGenerator(seed, nil, Options{Seed: &seed}.normalize())
	if v, ok := g.smart(name, "string"); ok {
		return v
	}
	return g.byType(name)
}

type generator struct {
	rng    *rand.Rand
	models []*models.ApiModel
	opts   Options
}

func newGenerator(seed int64, allModels []*models.ApiModel, opts Options) *generator {
	gofaker.SetRandomSource(rand.NewSource(seed))
	return &generator{
		rng:    rand.New(rand.NewSource(seed)),
		models: allModels,
		opts:   opts,
	}
}

func (g *generator) object(fields []models.ApiField, depth int) map[string]any {
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if !*g.opts.IncludeOptional && !f.IsRequired {
			continue
		}
		out[f.Name] = g.field(f, depth)
	}
	return out
}

func (g *generator) field(f models.ApiField, depth int) any {
	if elem, ok := ArrayElementType(f.Type); ok {
		item := f
		item.Type = elem
		item.IsComplex = f.IsComplex && !isPrimitiveType(elem)

		values := make([]any, g.opts.ArrayLength)
		for i := range values {
			values[i] = g.field(item, depth)
		}
		return values
	}

	if f.IsComplex {
		if depth >= g.opts.MaxDepth {
			return nil
		}
		if len(f.RefFields) > 0 {
			return g.object(f.RefFields, depth+1)
		}
		if m := models.FindModel(g.models, f.Type); m != nil {
			return g.object(m.Fields, depth+1)
		}
		return map[string]any{}
	}

	if v, ok := g.smart(f.Name, f.Type); ok {
		return v
	}
	return g.byType(f.Type)
}

var (
	genericArray = regexp.MustCompile(`^(?:List|Set)<\s*(.+?)\s*>$`)
	suffixArray  = regexp.MustCompile(`^(.+?)\[\]$`)
)

// ArrayElementType reports whether declared is an array notation
// (List<T>, Set<T> or T[]) and returns the element type
func ArrayElementType(declared string) (string, bool) {
	declared = strings.TrimSpace(declared)
	if m := genericArray.FindStringSubmatch(declared); m != nil {
		return m[1], true
	}
	if m := suffixArray.FindStringSubmatch(declared); m != nil {
		return m[1], true
	}
	return "", false
}

func isPrimitiveType(t string) bool {
	switch strings.ToLower(t) {
	case "string", "boolean", "bool", "int", "long", "integer", "number",
		"double", "float", "decimal", "date", "datetime", "instant", "uuid":
		return true
	default:
		return false
	}
}
