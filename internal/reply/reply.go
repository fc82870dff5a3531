// Package reply turns a raw webhook response body into the text shown to the user.
//
// Webhooks built on chat-trigger style automations answer in several shapes: a
// bare string, a JSON string, or a JSON object carrying the answer under one of
// a handful of field names. Rules are evaluated in order and the first match
// wins; anything unmatched degrades to Placeholder.
package reply

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Placeholder is used when no usable reply could be extracted.
const Placeholder = "Sorry, I didn't get a valid response."

// Shape names the branch that produced a reply. It is used for logging and
// metric labels.
type Shape string

const (
	ShapeString       Shape = "string"
	ShapeRaw          Shape = "raw"
	ShapeEmpty        Shape = "empty"
	ShapeUnrecognized Shape = "unrecognized"
)

// FieldShape is the shape reported when a reply came from a named field.
func FieldShape(field string) Shape {
	return Shape("field:" + field)
}

// Rule extracts reply text from a parsed JSON body.
type Rule struct {
	Name    string
	Shape   Shape
	Extract func(v gjson.Result) (string, bool)
}

// DefaultFields are probed, in this order, on JSON object responses.
var DefaultFields = []string{"text", "output", "message", "response"}

// DefaultRules is the rule list used by Normalize.
var DefaultRules = NewRules(DefaultFields...)

// Result is a normalized reply.
type Result struct {
	Text  string
	Shape Shape
}

// Recognized reports whether the body matched a known shape.
func (r Result) Recognized() bool {
	return r.Shape != ShapeUnrecognized
}

// NewRules builds the rule list: a JSON string first, then one field rule per
// name in priority order.
func NewRules(fields ...string) []Rule {
	rules := []Rule{StringRule()}
	for _, f := range fields {
		rules = append(rules, FieldRule(f))
	}
	return rules
}

// StringRule matches a JSON string body.
func StringRule() Rule {
	return Rule{
		Name:  "string",
		Shape: ShapeString,
		Extract: func(v gjson.Result) (string, bool) {
			if v.Type != gjson.String {
				return "", false
			}
			return v.Str, true
		},
	}
}

// FieldRule matches a JSON object holding a non-empty string under field.
func FieldRule(field string) Rule {
	return Rule{
		Name:  field,
		Shape: FieldShape(field),
		Extract: func(v gjson.Result) (string, bool) {
			if !v.IsObject() {
				return "", false
			}
			// Map rather than Get: field names are not gjson paths.
			f, ok := v.Map()[field]
			// Numbers, booleans and nested values are skipped on purpose so
			// the next field gets its chance.
			if !ok || f.Type != gjson.String || f.Str == "" {
				return "", false
			}
			return f.Str, true
		},
	}
}

// Normalize applies DefaultRules to body.
func Normalize(body string) Result {
	return NormalizeWith(DefaultRules, body)
}

// NormalizeWith applies rules to body. Bodies that are not valid JSON are used
// verbatim unless they are blank.
func NormalizeWith(rules []Rule, body string) Result {
	if !gjson.Valid(body) {
		if strings.TrimSpace(body) != "" {
			return Result{Text: body, Shape: ShapeRaw}
		}
		return Result{Text: Placeholder, Shape: ShapeEmpty}
	}
	v := gjson.Parse(body)

	for _, rule := range rules {
		if text, ok := rule.Extract(v); ok {
			return Result{Text: text, Shape: rule.Shape}
		}
	}
	return Result{Text: Placeholder, Shape: ShapeUnrecognized}
}
