package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNotObject is returned when a request body is valid JSON but not an object.
var ErrNotObject = errors.New("payload must be a JSON object")

// ErrTrailingData is returned when anything other than whitespace follows
// the first JSON value.
var ErrTrailingData = errors.New("unexpected data after JSON value")

// Payload is one loosely-typed record as received. Numbers are kept as
// json.Number so integer and decimal text survive unchanged.
type Payload map[string]any

// DecodePayload reads exactly one JSON object from r.
func DecodePayload(r io.Reader) (Payload, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	switch _, err := dec.Token(); {
	case err == nil:
		return nil, fmt.Errorf("decode payload: %w", ErrTrailingData)
	case !errors.Is(err, io.EOF):
		return nil, fmt.Errorf("decode payload: %w: %w", ErrTrailingData, err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return Payload(obj), nil
}

// ParsePayload decodes a JSON object from b.
func ParsePayload(b []byte) (Payload, error) {
	return DecodePayload(bytes.NewReader(b))
}

// Get returns the raw value stored under key, nil when missing.
func (p Payload) Get(key string) any {
	if p == nil {
		return nil
	}
	return p[key]
}

// Children returns the objects in the list stored under key. Non-object
// elements are skipped.
func (p Payload) Children(key string) []Payload {
	items, ok := p.Get(key).([]any)
	if !ok {
		return nil
	}
	out := make([]Payload, 0, len(items))
	for _, it := range items {
		if obj, ok := it.(map[string]any); ok {
			out = append(out, Payload(obj))
		}
	}
	return out
}

// With returns a shallow copy of p with key set to v.
func (p Payload) With(key string, v any) Payload {
	out := make(Payload, len(p)+1)
	for k, val := range p {
		out[k] = val
	}
	out[key] = v
	return out
}

// JSON re-encodes the payload.
func (p Payload) JSON() ([]byte, error) {
	return json.Marshal(map[string]any(p))
}
