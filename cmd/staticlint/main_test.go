package main

import (
	"slices"
	"testing"

	"golang.org/x/tools/go/analysis"
)

func names(as []*analysis.Analyzer) []string {
	out := make([]string, 0, len(as))
	for _, a := range as {
		out = append(out, a.Name)
	}
	return out
}

func TestFilterAnalyzers(t *testing.T) {
	tests := []struct {
		name     string
		input    []*analysis.Analyzer
		skip     string
		expected []string
	}{
		{
			name:     "keep all",
			input:    []*analysis.Analyzer{{Name: "printf"}, {Name: "droppederr"}},
			expected: []string{"printf", "droppederr"},
		},
		{
			name:     "skip listed",
			input:    []*analysis.Analyzer{{Name: "printf"}, {Name: "SA1000"}, {Name: "droppederr"}},
			skip:     " SA1000 ,printf,",
			expected: []string{"droppederr"},
		},
		{
			name:     "nil and duplicates",
			input:    []*analysis.Analyzer{nil, {Name: "nilerr"}, {Name: "nilerr"}},
			expected: []string{"nilerr"},
		},
		{
			name:     "empty input",
			input:    []*analysis.Analyzer{},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(filterAnalyzers(tt.input, tt.skip))
			if !slices.Equal(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
