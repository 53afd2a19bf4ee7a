// Copyright 2026 The Vigil Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"reflect"
	"testing"
)

type sample struct {
	Name  string            `cbor:"name"`
	Count uint64            `cbor:"count"`
	Tags  map[string]string `cbor:"tags,omitempty"`
}

func TestMarshalDeterministic(t *testing.T) {
	v := sample{
		Name:  "eth0",
		Count: 42,
		Tags:  map[string]string{"b": "2", "a": "1", "c": "3"},
	}

	first, err := Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Marshal(v)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("encoding not deterministic: %x vs %x", first, again)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	in := sample{Name: "nvme0n1", Count: 1 << 40}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out sample
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestUnmarshalIgnoresUnknownFields(t *testing.T) {
	type wide struct {
		Name  string `cbor:"name"`
		Extra int    `cbor:"extra"`
	}
	data, err := Marshal(wide{Name: "x", Extra: 7})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var narrow sample
	if err := Unmarshal(data, &narrow); err != nil {
		t.Fatalf("Unmarshal with unknown field: %v", err)
	}
	if narrow.Name != "x" {
		t.Errorf("Name = %q, want x", narrow.Name)
	}
}

func TestStreamEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	for i := 0; i < 3; i++ {
		if err := enc.Encode(sample{Name: "cpu", Count: uint64(i)}); err != nil {
			t.Fatalf("Encode %d: %v", i, err)
		}
	}
	dec := NewDecoder(&buf)
	for i := 0; i < 3; i++ {
		var s sample
		if err := dec.Decode(&s); err != nil {
			t.Fatalf("Decode %d: %v", i, err)
		}
		if s.Count != uint64(i) {
			t.Errorf("Count = %d, want %d", s.Count, i)
		}
	}
}
