package events

import (
	"bytes"
	"encoding/json"
	"sort"
)

// AttrKind is the JSON kind of an attribute value.
type AttrKind int

const (
	AttrNull AttrKind = iota
	AttrString
	AttrNumber
	AttrBool
	AttrObject
	AttrArray
)

func (k AttrKind) String() string {
	switch k {
	case AttrString:
		return "string"
	case AttrNumber:
		return "number"
	case AttrBool:
		return "bool"
	case AttrObject:
		return "object"
	case AttrArray:
		return "array"
	default:
		return "null"
	}
}

// AttrValue is a tagged event attribute value as sent by the client.
type AttrValue struct {
	Kind AttrKind
	Str  string
	Num  float64
	Bool bool
	Raw  json.RawMessage // objects, arrays and out-of-range numbers are kept verbatim
}

// String builds a string-kind value.
func String(s string) AttrValue { return AttrValue{Kind: AttrString, Str: s} }

// AttrFromAny tags a decoded JSON value.
func AttrFromAny(v any) AttrValue {
	switch x := v.(type) {
	case nil:
		return AttrValue{Kind: AttrNull}
	case string:
		return AttrValue{Kind: AttrString, Str: x}
	case bool:
		return AttrValue{Kind: AttrBool, Bool: x}
	case float64:
		return AttrValue{Kind: AttrNumber, Num: x}
	case int:
		return AttrValue{Kind: AttrNumber, Num: float64(x)}
	case int64:
		return AttrValue{Kind: AttrNumber, Num: float64(x)}
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			// Num is ±Inf here; keep the literal so it survives re-encoding.
			return AttrValue{Kind: AttrNumber, Num: f, Raw: json.RawMessage(x.String())}
		}
		return AttrValue{Kind: AttrNumber, Num: f}
	case map[string]any:
		raw, _ := json.Marshal(x)
		return AttrValue{Kind: AttrObject, Raw: raw}
	case []any:
		raw, _ := json.Marshal(x)
		return AttrValue{Kind: AttrArray, Raw: raw}
	default:
		raw, _ := json.Marshal(x)
		return AttrValue{Kind: AttrObject, Raw: raw}
	}
}

// UnmarshalJSON tags whatever JSON value arrives.
func (a *AttrValue) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	*a = AttrFromAny(v)
	return nil
}

// MarshalJSON writes the value back in its original JSON kind.
func (a AttrValue) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AttrString:
		return json.Marshal(a.Str)
	case AttrNumber:
		if len(a.Raw) > 0 {
			return a.Raw, nil
		}
		return json.Marshal(a.Num)
	case AttrBool:
		return json.Marshal(a.Bool)
	case AttrObject, AttrArray:
		if len(a.Raw) == 0 {
			return []byte("null"), nil
		}
		return a.Raw, nil
	default:
		return []byte("null"), nil
	}
}

// StringAttributes keeps only string-kind values, ordered by key.
// Everything else is discarded; dropped reports how many.
func StringAttributes(in map[string]AttrValue) (kept []Attribute, dropped int) {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := in[k]
		if v.Kind != AttrString {
			dropped++
			continue
		}
		kept = append(kept, Attribute{Key: k, Value: v.Str})
	}
	return kept, dropped
}
