package envelope

import (
	"encoding/json"
	"net/url"
)

// Parsed is the result of leniently parsing a request body or query string.
// It is a total function result: parse failures set Errored instead of
// propagating an error.
type Parsed struct {
	// Status reports whether parsing succeeded.
	Status bool

	// Errored reports that the top-level document failed to parse.
	Errored bool

	// Empty reports that the input carried no data. Always false when
	// parsing failed.
	Empty bool

	// Raw is the input string as received.
	Raw string

	// Data holds the parsed fields, nil when Empty or Errored.
	Data map[string]any
}

// Parse leniently parses a JSON document. Empty input, "null" and "{}" all
// yield an empty result. String field values that spell a number or boolean
// literal are coerced via a secondary parse; anything else stays a string.
func Parse(raw string) Parsed {
	if raw == "" || raw == "null" || raw == "{}" {
		return Parsed{Status: true, Empty: true, Raw: raw}
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return Parsed{Errored: true, Raw: raw}
	}
	if len(data) == 0 {
		return Parsed{Status: true, Empty: true, Raw: raw}
	}

	for key, value := range data {
		if s, ok := value.(string); ok {
			data[key] = coerceLiteral(s)
		}
	}

	return Parsed{Status: true, Raw: raw, Data: data}
}

// ParseQuery runs query parameters through the same lenient parsing rules as
// request bodies. Repeated parameters keep their first value.
func ParseQuery(values url.Values) Parsed {
	if len(values) == 0 {
		return Parsed{Status: true, Empty: true}
	}

	data := make(map[string]any, len(values))
	for key := range values {
		data[key] = coerceLiteral(values.Get(key))
	}

	return Parsed{Status: true, Data: data}
}

// coerceLiteral attempts to reparse a string value as a number or boolean
// literal, falling back to the raw string.
func coerceLiteral(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	switch v.(type) {
	case float64, bool:
		return v
	default:
		return s
	}
}

// Field returns the named field from the parsed data and whether it was
// present.
func (p Parsed) Field(name string) (any, bool) {
	if p.Data == nil {
		return nil, false
	}
	v, ok := p.Data[name]
	return v, ok
}

// StringField returns the named field as a string. Coerced numeric and
// boolean values do not satisfy it.
func (p Parsed) StringField(name string) string {
	v, ok := p.Field(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// BoolField returns the named field as a bool.
func (p Parsed) BoolField(name string) bool {
	v, ok := p.Field(name)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// NumberField returns the named field as a float64.
func (p Parsed) NumberField(name string) float64 {
	v, ok := p.Field(name)
	if !ok {
		return 0
	}
	n, _ := v.(float64)
	return n
}
