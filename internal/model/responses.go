package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Response is a single model's answer. Text may encode a provider failure
// in the form "[<Label> Error]: <message>".
type Response struct {
	Key  ModelKey
	Text string
}

// ResponseSet maps ModelKey to response text, preserving insertion order.
// It is built once per audit and not modified afterwards.
type ResponseSet struct {
	entries []Response
}

// NewResponseSet builds a set from entries in order. Later duplicates of a key
// are dropped so every key appears exactly once.
func NewResponseSet(entries []Response) ResponseSet {
	out := make([]Response, 0, len(entries))
	seen := make(map[ModelKey]bool, len(entries))
	for _, e := range entries {
		if seen[e.Key] {
			continue
		}
		seen[e.Key] = true
		out = append(out, e)
	}
	return ResponseSet{entries: out}
}

// Len returns the number of entries.
func (s ResponseSet) Len() int { return len(s.entries) }

// Keys returns the keys in insertion order.
func (s ResponseSet) Keys() []ModelKey {
	keys := make([]ModelKey, len(s.entries))
	for i, e := range s.entries {
		keys[i] = e.Key
	}
	return keys
}

// Get returns the text stored for key.
func (s ResponseSet) Get(key ModelKey) (string, bool) {
	for _, e := range s.entries {
		if e.Key == key {
			return e.Text, true
		}
	}
	return "", false
}

// Entries returns a copy of the entries in insertion order.
func (s ResponseSet) Entries() []Response {
	out := make([]Response, len(s.entries))
	copy(out, s.entries)
	return out
}

// MarshalJSON encodes the set as a JSON object whose member order matches
// insertion order.
func (s ResponseSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(string(e.Key))
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Text)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping document order.
func (s *ResponseSet) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*s = ResponseSet{}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode response set: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("decode response set: expected object, got %v", tok)
	}

	var entries []Response
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode response set key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("decode response set: unexpected key %v", tok)
		}
		var text string
		if err := dec.Decode(&text); err != nil {
			return fmt.Errorf("decode response set value for %q: %w", key, err)
		}
		entries = append(entries, Response{Key: ModelKey(key), Text: text})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode response set: %w", err)
	}

	*s = NewResponseSet(entries)
	return nil
}
