package core

import (
	"encoding/json"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"-", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{100, "1.00"},
		{1, "0.01"},
		{3334, "33.34"},
		{-250, "-2.50"},
		{0, "0.00"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).String(); got != tc.want {
			t.Errorf("Money{%d}.String() = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	// Every value the codec emits must decode back to the same cents:
	// zero (a fresh group total) and negatives (a mismatch delta) included.
	cases := []struct {
		cents int64
		json  string
	}{
		{1234, `"12.34"`},
		{0, `"0.00"`},
		{-1000, `"-10.00"`},
		{1, `"0.01"`},
	}
	for _, tc := range cases {
		in := Money{Cents: tc.cents}
		data, err := json.Marshal(in)
		if err != nil {
			t.Fatalf("marshal %d: %v", tc.cents, err)
		}
		if string(data) != tc.json {
			t.Fatalf("marshal %d = %s, want %s", tc.cents, data, tc.json)
		}
		var out Money
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if out.Cents != tc.cents {
			t.Fatalf("round trip %s = %d cents, want %d", tc.json, out.Cents, tc.cents)
		}
	}
}

func TestParseShareAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"12.34", 1234, true},
		{"0.00", 0, true},
		{"0", 0, true},
		{"-1.00", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseShareAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyUnmarshalRejectsFloats(t *testing.T) {
	var m Money
	if err := json.Unmarshal([]byte(`12.34`), &m); err == nil {
		t.Fatal("expected error for unquoted number")
	}
}
