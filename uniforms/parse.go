package uniforms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ParseOverrides decodes a JSON override document. Each member may be a
// number, an array of 2 to 4 numbers, an {"x","y","z","w"} object, or a
// three.js style {"type": ..., "value": ...} wrapper around any of those.
// An empty document is the same as "{}".
func ParseOverrides(doc string) (Set, error) {
	if strings.TrimSpace(doc) == "" {
		return NewSet(nil), nil
	}

	var raw map[string]json.RawMessage
	dec := json.NewDecoder(strings.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return Set{}, fmt.Errorf("%w: %v", ErrUniformParse, err)
	}
	if raw == nil {
		return Set{}, fmt.Errorf("%w: document must be an object", ErrUniformParse)
	}
	if dec.More() {
		return Set{}, fmt.Errorf("%w: trailing data after object", ErrUniformParse)
	}

	values := make(map[string]Value, len(raw))
	for name, msg := range raw {
		if name == "" {
			return Set{}, fmt.Errorf("%w: empty uniform name", ErrUniformParse)
		}
		v, err := parseValue(msg, true)
		if err != nil {
			return Set{}, fmt.Errorf("uniform %q: %w", name, err)
		}
		values[name] = v
	}
	return NewSet(values), nil
}

func parseValue(msg json.RawMessage, allowWrapper bool) (Value, error) {
	msg = bytes.TrimSpace(msg)
	if len(msg) == 0 {
		return Value{}, fmt.Errorf("%w: empty value", ErrUniformParse)
	}

	switch msg[0] {
	case '[':
		var comps []float32
		if err := json.Unmarshal(msg, &comps); err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrUniformParse, err)
		}
		if len(comps) < 2 {
			return Value{}, fmt.Errorf("%w: vector needs 2 to 4 components, got %d", ErrUniformParse, len(comps))
		}
		return FromComponents(comps)
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(msg, &obj); err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrUniformParse, err)
		}
		if inner, ok := obj["value"]; ok && allowWrapper {
			return parseValue(inner, false)
		}
		return parseVectorObject(obj)
	default:
		var f float32
		if err := json.Unmarshal(msg, &f); err != nil {
			return Value{}, fmt.Errorf("%w: unsupported value %s", ErrUniformParse, string(msg))
		}
		return Float(f), nil
	}
}

func parseVectorObject(obj map[string]json.RawMessage) (Value, error) {
	var comps []float32
	for _, axis := range []string{"x", "y", "z", "w"} {
		msg, ok := obj[axis]
		if !ok {
			break
		}
		var f float32
		if err := json.Unmarshal(msg, &f); err != nil {
			return Value{}, fmt.Errorf("%w: component %s: %v", ErrUniformParse, axis, err)
		}
		comps = append(comps, f)
	}
	if len(comps) < 2 || len(comps) != len(obj) {
		return Value{}, fmt.Errorf("%w: vector object must have keys x, y[, z[, w]]", ErrUniformParse)
	}
	return FromComponents(comps)
}
