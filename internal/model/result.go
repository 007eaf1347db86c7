package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entry is one key/value pair of a Result.
type Entry struct {
	Key   string
	Value any
}

// Result is an insertion-ordered mapping. Its JSON encoding is an object whose
// members appear in insertion order, which keeps sorted aggregations sorted on
// the wire. Values may themselves be *Result.
type Result struct {
	entries []Entry
	index   map[string]int
}

// NewResult returns an empty Result.
func NewResult() *Result {
	return &Result{index: make(map[string]int)}
}

// Set stores v under key. Setting an existing key replaces its value in place.
func (r *Result) Set(key string, v any) *Result {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[key]; ok {
		r.entries[i].Value = v
		return r
	}
	r.index[key] = len(r.entries)
	r.entries = append(r.entries, Entry{Key: key, Value: v})
	return r
}

// Get returns the value stored under key.
func (r *Result) Get(key string) (any, bool) {
	i, ok := r.index[key]
	if !ok {
		return nil, false
	}
	return r.entries[i].Value, true
}

// Len returns the number of entries.
func (r *Result) Len() int {
	return len(r.entries)
}

// Keys returns the keys in insertion order.
func (r *Result) Keys() []string {
	keys := make([]string, len(r.entries))
	for i, e := range r.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns a copy of the entries in insertion order.
func (r *Result) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

// MarshalJSON implements json.Marshaler.
func (r *Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", e.Key, err)
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal value for %q: %w", e.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
