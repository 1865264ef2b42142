package faker

import (
	"fmt"
	"math"
	"strings"
	"time"

	gofaker "github.com/go-faker/faker/v4"
	"github.com/google/uuid"
)

var statuses = []string{"ACTIVE", "INACTIVE", "PENDING", "COMPLETED"}

// faker/v4 has no company or country generators
var (
	companySuffixes = []string{"Inc", "LLC", "Group", "Labs", "Corp", "Holdings", "Partners", "Systems"}
	countries       = []string{
		"United States", "Canada", "Mexico", "Brazil", "Argentina", "United Kingdom",
		"Ireland", "France", "Germany", "Spain", "Portugal", "Italy", "Netherlands",
		"Sweden", "Norway", "Poland", "India", "Japan", "South Korea", "Australia",
		"New Zealand", "South Africa", "Nigeria", "Kenya", "Egypt", "Singapore",
	}
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// smart picks a value from the field name. Patterns are checked in priority order.
func (g *generator) smart(name, declared string) (any, bool) {
	lower := strings.ToLower(name)
	lowerType := strings.ToLower(declared)

	switch {
	case strings.Contains(lower, "email"):
		return gofaker.Email(), true
	case strings.Contains(lower, "phone") || strings.Contains(lower, "tel"):
		return gofaker.Phonenumber(), true
	case lower == "name" || lower == "fullname":
		return gofaker.FirstName() + " " + gofaker.LastName(), true
	case lower == "firstname":
		return gofaker.FirstName(), true
	case lower == "lastname":
		return gofaker.LastName(), true
	case strings.Contains(lower, "password") || strings.Contains(lower, "pwd"):
		return gofaker.Password(), true
	case strings.Contains(lower, "url") || strings.Contains(lower, "link") || strings.Contains(lower, "website"):
		return gofaker.URL(), true
	case strings.Contains(lower, "avatar") || strings.Contains(lower, "profileimage"):
		return fmt.Sprintf("https://i.pravatar.cc/300?img=%d", g.intBetween(1, 70)), true
	case lower == "id" && (lowerType == "uuid" || lowerType == "string"):
		return g.uuid(), true
	// country is a geo field even though it contains "count"
	case strings.Contains(lower, "count") && !strings.Contains(lower, "country"),
		strings.Contains(lower, "quantity"),
		strings.Contains(lower, "qty"):
		return g.intBetween(1, 100), true
	case strings.Contains(lower, "price") || strings.Contains(lower, "amount") || strings.Contains(lower, "cost"):
		return g.floatBetween(10, 10000), true
	case lower == "age":
		return g.intBetween(18, 80), true
	case strings.Contains(lower, "description"):
		return gofaker.Paragraph(), true
	case lower == "title":
		return gofaker.Sentence(), true
	case lower == "status":
		return statuses[g.rng.Intn(len(statuses))], true
	case lower == "code":
		return g.code(6), true
	case lower == "ip" || lower == "ipaddress" || lower == "ip_address" || lower == "ipv4":
		return gofaker.IPv4(), true
	case lower == "ipv6":
		return gofaker.IPv6(), true
	}

	if v, ok := g.geo(lower); ok {
		return v, true
	}

	switch {
	case lower == "color":
		return fmt.Sprintf("rgb(%d, %d, %d)", g.rng.Intn(256), g.rng.Intn(256), g.rng.Intn(256)), true
	case strings.Contains(lower, "date") || strings.HasSuffix(lower, "at"):
		return g.recent(), true
	case strings.Contains(lower, "company"):
		return gofaker.LastName() + " " + companySuffixes[g.rng.Intn(len(companySuffixes))], true
	case lower == "content" || lower == "body" || lower == "text":
		return gofaker.Paragraph() + "\n\n" + gofaker.Paragraph(), true
	case lower == "comment":
		return gofaker.Sentence(), true
	case lower == "tag" || lower == "category":
		return gofaker.Word(), true
	}

	return nil, false
}

func (g *generator) geo(lower string) (any, bool) {
	switch {
	case strings.Contains(lower, "address"):
		return gofaker.GetRealAddress().Address, true
	case strings.Contains(lower, "city"):
		return gofaker.GetRealAddress().City, true
	case strings.Contains(lower, "country"):
		return countries[g.rng.Intn(len(countries))], true
	case strings.Contains(lower, "zip") || strings.Contains(lower, "postal") || lower == "postcode":
		return gofaker.GetRealAddress().PostalCode, true
	case lower == "lat" || lower == "latitude":
		return round(g.rng.Float64()*180-90, 6), true
	case lower == "lng" || lower == "lon" || lower == "long" || lower == "longitude":
		return round(g.rng.Float64()*360-180, 6), true
	default:
		return nil, false
	}
}

// byType is the fallback when no name pattern matched
func (g *generator) byType(declared string) any {
	t := strings.ToLower(strings.TrimSpace(declared))

	switch {
	case t == "boolean" || t == "bool":
		return g.rng.Intn(2) == 1
	case t == "int" || t == "long" || t == "integer" || t == "number":
		return g.intBetween(1, 9999)
	case t == "double" || t == "float" || t == "decimal":
		return g.floatBetween(0, 1000)
	case strings.Contains(t, "date") || strings.Contains(t, "time") || t == "instant":
		return g.recent()
	case t == "uuid":
		return g.uuid()
	default:
		return gofaker.Word()
	}
}

func (g *generator) intBetween(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *generator) floatBetween(lo, hi float64) float64 {
	return round(lo+g.rng.Float64()*(hi-lo), 2)
}

// recent returns an ISO-8601 instant within 30 days before the reference time
func (g *generator) recent() string {
	back := time.Duration(g.rng.Int63n(int64(30 * 24 * time.Hour)))
	return g.opts.Now.Add(-back).UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func (g *generator) uuid() string {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (g *generator) code(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = codeAlphabet[g.rng.Intn(len(codeAlphabet))]
	}
	return string(b)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
