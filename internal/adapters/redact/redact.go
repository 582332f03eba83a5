// Package redact masks sensitive tag values before points are stored.
//
// The schema is a YAML document:
//
//	tags:
//	  - user.email
//	  - device.id
//	replacement: "***"   # optional, defaults to REDACTED
package redact

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vshulcz/Telemetra/internal/domain"
)

const defaultReplacement = "REDACTED"

type schema struct {
	Replacement string   `yaml:"replacement"`
	Tags        []string `yaml:"tags"`
}

// Filter replaces the values of configured tag keys. It is safe for concurrent use.
type Filter struct {
	keys        map[string]struct{}
	replacement string
}

// Load reads a schema file.
func Load(path string) (*Filter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read redact schema: %w", err)
	}
	return Parse(data)
}

// Parse builds a Filter from YAML. A schema without tags is an error.
func Parse(data []byte) (*Filter, error) {
	var s schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse redact schema: %w", err)
	}
	f := &Filter{keys: make(map[string]struct{}, len(s.Tags)), replacement: s.Replacement}
	for _, k := range s.Tags {
		if k = strings.TrimSpace(k); k != "" {
			f.keys[k] = struct{}{}
		}
	}
	if len(f.keys) == 0 {
		return nil, errors.New("redact schema has no tags")
	}
	if f.replacement == "" {
		f.replacement = defaultReplacement
	}
	return f, nil
}

// Apply returns points with sensitive tag values replaced and the number of
// values redacted. Points without sensitive tags are returned unchanged.
// A nil Filter is a no-op.
func (f *Filter) Apply(points []domain.Point) ([]domain.Point, int) {
	if f == nil || len(points) == 0 {
		return points, 0
	}
	out := make([]domain.Point, len(points))
	total := 0
	for i, p := range points {
		out[i] = p
		tags := p.Tags()
		n := 0
		for k := range tags {
			if _, ok := f.keys[k]; ok {
				tags[k] = f.replacement
				n++
			}
		}
		if n > 0 {
			out[i] = p.WithTags(tags)
			total += n
		}
	}
	return out, total
}
