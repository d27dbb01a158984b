package config

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// Configuration is a tree of mapping, sequence and scalar nodes describing a bundler build.
//
// Mapping nodes are map[string]any, sequence nodes are []any and everything else is a
// scalar. Values are treated as immutable: operations return fresh trees.
type Configuration map[string]any

// Clone returns a deep copy of the configuration with all nested maps and slices
// normalised to mapping and sequence nodes.
func (c Configuration) Clone() Configuration {
	if c == nil {
		return Configuration{}
	}
	return Configuration(cloneMapping(c))
}

// Lookup returns the node at the dotted path, e.g. "module.rules".
func (c Configuration) Lookup(path string) (any, bool) {
	var node any = map[string]any(c)
	for _, key := range strings.Split(path, ".") {
		m, ok := AsMapping(node)
		if !ok {
			return nil, false
		}
		node, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

// Sequence returns the sequence at the dotted path or nil when absent or not a sequence.
func (c Configuration) Sequence(path string) []any {
	node, ok := c.Lookup(path)
	if !ok {
		return nil
	}
	seq, _ := AsSequence(node)
	return seq
}

// Mapping returns the mapping at the dotted path or nil when absent or not a mapping.
func (c Configuration) Mapping(path string) map[string]any {
	node, ok := c.Lookup(path)
	if !ok {
		return nil
	}
	m, _ := AsMapping(node)
	return m
}

// String returns the scalar string at the dotted path.
func (c Configuration) String(path string) string {
	node, ok := c.Lookup(path)
	if !ok {
		return ""
	}
	s, _ := node.(string)
	return s
}

// JSON renders the configuration as indented JSON.
func (c Configuration) JSON() ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any(c)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// YAML renders the configuration as YAML.
func (c Configuration) YAML() ([]byte, error) {
	return yaml.Marshal(map[string]any(c))
}

// AsMapping reports whether v is a mapping node. Any map keyed by strings qualifies;
// the returned map is the original when v is already a map[string]any.
func AsMapping(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Configuration:
		return map[string]any(m), true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// AsSequence reports whether v is a sequence node. Any slice or array except []byte
// qualifies; the returned slice is the original when v is already a []any.
func AsSequence(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []byte, nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// CloneNode deep copies a single node.
func CloneNode(v any) any {
	if m, ok := AsMapping(v); ok {
		return cloneMapping(m)
	}
	if s, ok := AsSequence(v); ok {
		return cloneSequence(s)
	}
	return v
}

func cloneMapping(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneNode(v)
	}
	return out
}

func cloneSequence(s []any) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = CloneNode(v)
	}
	return out
}
