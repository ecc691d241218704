package stub

import (
	"maps"
	"math"
	"regexp/syntax"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
)

// maxArrayItems caps the items generated for an array bounded only by
// maxItems.
const maxArrayItems = 10

// Generator produces example values from schemas.
//
// Values follow this priority chain:
//  1. Explicit example on the schema
//  2. First enum value
//  3. Default value
//  4. Composition (allOf merged, first of oneOf and anyOf)
//  5. Type-specific generation with format and pattern awareness
type Generator struct {
	now     func() time.Time
	newUUID func() string
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithClock sets the clock used for date and date-time values.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) { g.now = now }
}

// WithUUIDs sets the source of uuid values.
func WithUUIDs(next func() string) GeneratorOption {
	return func(g *Generator) { g.newUUID = next }
}

// NewGenerator creates a Generator.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{now: time.Now, newUUID: uuid.NewString}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate produces an example value for ref.
func (g *Generator) Generate(ref *openapi3.SchemaRef) any {
	return g.generate(ref, make(map[*openapi3.Schema]bool))
}

func (g *Generator) generate(ref *openapi3.SchemaRef, visiting map[*openapi3.Schema]bool) any {
	if ref == nil || ref.Value == nil {
		return nil
	}
	schema := ref.Value
	if visiting[schema] {
		return nil // recursive schema
	}
	visiting[schema] = true
	defer delete(visiting, schema)

	if schema.Example != nil {
		return schema.Example
	}
	if len(schema.Enum) > 0 {
		return schema.Enum[0]
	}
	if schema.Default != nil {
		return schema.Default
	}

	if len(schema.AllOf) > 0 {
		return g.generateAllOf(schema, visiting)
	}
	if len(schema.OneOf) > 0 {
		return g.generate(schema.OneOf[0], visiting)
	}
	if len(schema.AnyOf) > 0 {
		return g.generate(schema.AnyOf[0], visiting)
	}

	switch typeOf(schema) {
	case openapi3.TypeObject:
		return g.generateObject(schema, visiting)
	case openapi3.TypeArray:
		return g.generateArray(schema, visiting)
	case openapi3.TypeString:
		return g.generateString(schema)
	case openapi3.TypeInteger:
		return int64(math.Ceil(numberInRange(schema)))
	case openapi3.TypeNumber:
		return numberInRange(schema)
	case openapi3.TypeBoolean:
		return true
	default:
		if len(schema.Properties) > 0 {
			return g.generateObject(schema, visiting)
		}
		return nil
	}
}

func typeOf(schema *openapi3.Schema) string {
	for _, t := range schema.Type.Slice() {
		if t != openapi3.TypeNull {
			return t
		}
	}
	return ""
}

func (g *Generator) generateObject(schema *openapi3.Schema, visiting map[*openapi3.Schema]bool) map[string]any {
	obj := make(map[string]any, len(schema.Properties))
	for name, prop := range schema.Properties {
		if prop != nil && prop.Value != nil && prop.Value.WriteOnly {
			continue
		}
		obj[name] = g.generate(prop, visiting)
	}
	return obj
}

func (g *Generator) generateAllOf(schema *openapi3.Schema, visiting map[*openapi3.Schema]bool) any {
	merged := make(map[string]any)
	var last any
	for _, sub := range schema.AllOf {
		v := g.generate(sub, visiting)
		if m, ok := v.(map[string]any); ok {
			maps.Copy(merged, m)
		} else if v != nil {
			last = v
		}
	}
	maps.Copy(merged, g.generateObject(schema, visiting))
	if len(merged) == 0 {
		return last
	}
	return merged
}

func (g *Generator) generateArray(schema *openapi3.Schema, visiting map[*openapi3.Schema]bool) []any {
	count := 1
	switch {
	case schema.MinItems > 0:
		count = int(min(schema.MinItems, math.MaxInt32))
	case schema.MaxItems != nil:
		count = int(min(*schema.MaxItems, maxArrayItems))
	}
	items := make([]any, count)
	for i := range items {
		items[i] = g.generate(schema.Items, visiting)
	}
	return items
}

// numberInRange returns the minimum when set. Otherwise a value not above
// the maximum, or 1 when unbounded.
func numberInRange(schema *openapi3.Schema) float64 {
	if schema.Min != nil {
		return *schema.Min
	}
	if schema.Max != nil {
		switch m := *schema.Max; {
		case m == 0:
			return -1
		case m < 1:
			return m
		}
	}
	return 1
}

func (g *Generator) generateString(schema *openapi3.Schema) string {
	switch schema.Format {
	case "uuid":
		return g.newUUID()
	case "date-time":
		return g.now().UTC().Format(time.RFC3339)
	case "date":
		return g.now().UTC().Format(time.DateOnly)
	case "time":
		return g.now().UTC().Format("15:04:05Z")
	case "email":
		return "example@example.com"
	case "uri", "url":
		return "https://example.com/"
	case "hostname":
		return "example.com"
	case "ipv4":
		return "192.0.2.1"
	case "ipv6":
		return "2001:db8::1"
	case "byte":
		return "c3RyaW5n"
	}
	if schema.Pattern != "" {
		if s, ok := MatchingString(schema.Pattern); ok {
			return s
		}
	}
	s := "string"
	if n := int(min(schema.MinLength, 1024)); len(s) < n {
		s += strings.Repeat("x", n-len(s))
	}
	if schema.MaxLength != nil && uint64(len(s)) > *schema.MaxLength {
		s = s[:*schema.MaxLength]
	}
	return s
}

// MatchingString returns a short string matched by the regular expression
// pattern.
func MatchingString(pattern string) (string, bool) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return "", false
	}
	var b strings.Builder
	if !emit(&b, re.Simplify()) {
		return "", false
	}
	return b.String(), true
}

func emit(b *strings.Builder, re *syntax.Regexp) bool {
	switch re.Op {
	case syntax.OpNoMatch:
		return false
	case syntax.OpLiteral:
		for _, r := range re.Rune {
			b.WriteRune(r)
		}
	case syntax.OpCharClass:
		r, ok := pickRune(re.Rune)
		if !ok {
			return false
		}
		b.WriteRune(r)
	case syntax.OpAnyChar, syntax.OpAnyCharNotNL:
		b.WriteByte('x')
	case syntax.OpCapture, syntax.OpPlus:
		return emit(b, re.Sub[0])
	case syntax.OpRepeat:
		for range re.Min {
			if !emit(b, re.Sub[0]) {
				return false
			}
		}
	case syntax.OpConcat:
		for _, sub := range re.Sub {
			if !emit(b, sub) {
				return false
			}
		}
	case syntax.OpAlternate:
		return emit(b, re.Sub[0])
	}
	// Empty matches, anchors, boundaries, star and quest emit nothing.
	return true
}

// pickRune returns the first printable rune of a character class given as
// lo-hi pairs.
func pickRune(ranges []rune) (rune, bool) {
	if len(ranges) < 2 {
		return 0, false
	}
	for i := 0; i+1 < len(ranges); i += 2 {
		lo, hi := ranges[i], ranges[i+1]
		if hi < '!' {
			continue
		}
		return max(lo, '!'), true
	}
	return ranges[0], true
}
