package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeClass(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "canonical casing", input: "Tank", expected: "Tank"},
		{name: "lowercase", input: "tank", expected: "Tank"},
		{name: "uppercase", input: "CLERIC", expected: "Cleric"},
		{name: "mixed casing", input: "sUmMoNeR", expected: "Summoner"},
		{name: "surrounding whitespace", input: "  mage ", expected: "Mage"},
		{name: "unknown class", input: "Paladin", expected: ""},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeClass(tt.input))
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
		ok       bool
	}{
		{name: "minimum", input: "1", expected: 1, ok: true},
		{name: "maximum", input: "9999", expected: 9999, ok: true},
		{name: "typical", input: "42", expected: 42, ok: true},
		{name: "whitespace tolerated", input: " 70 ", expected: 70, ok: true},
		{name: "zero rejected", input: "0", ok: false},
		{name: "negative rejected", input: "-5", ok: false},
		{name: "above cap rejected", input: "10000", ok: false},
		{name: "not a number", input: "seventy", ok: false},
		{name: "empty", input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, ok := ParseLevel(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, level)
			}
		})
	}
}
