package domain

import (
	"encoding/json"
	"maps"
	"math"
	"time"
)

// Point is one immutable metric observation. Build it with NewPoint.
type Point struct {
	tags      map[string]string
	timestamp *int64
	metric    string
	value     float64
}

// Metric returns the metric name.
func (p Point) Metric() string { return p.metric }

// Value returns the observed value.
func (p Point) Value() float64 { return p.value }

// Tags returns a copy of the point tags, or nil when there are none.
func (p Point) Tags() map[string]string {
	if len(p.tags) == 0 {
		return nil
	}
	return maps.Clone(p.tags)
}

// Tag looks up a single tag value.
func (p Point) Tag(key string) (string, bool) {
	v, ok := p.tags[key]
	return v, ok
}

// Timestamp returns the observation time in Unix milliseconds and whether it is set.
func (p Point) Timestamp() (int64, bool) {
	if p.timestamp == nil {
		return 0, false
	}
	return *p.timestamp, true
}

// WithTags returns a copy of p whose tags are replaced by tags.
func (p Point) WithTags(tags map[string]string) Point {
	p.tags = maps.Clone(tags)
	return p
}

// WithDefaultTimestamp returns p unchanged when it carries a timestamp,
// otherwise a copy stamped with ms.
func (p Point) WithDefaultTimestamp(ms int64) Point {
	if p.timestamp == nil {
		p.timestamp = &ms
	}
	return p
}

type pointJSON struct {
	Metric    string            `json:"metric"`
	Value     *float64          `json:"value"`
	Tags      map[string]string `json:"tags,omitempty"`
	Timestamp *int64            `json:"timestamp,omitempty"`
}

// MarshalJSON encodes the point using the ingestion wire format. JSON has no
// NaN or infinity, so non-finite values are written as null.
func (p Point) MarshalJSON() ([]byte, error) {
	var value *float64
	if !math.IsNaN(p.value) && !math.IsInf(p.value, 0) {
		value = &p.value
	}
	return json.Marshal(pointJSON{
		Metric:    p.metric,
		Value:     value,
		Tags:      p.tags,
		Timestamp: p.timestamp,
	})
}

// UnmarshalJSON decodes the ingestion wire format. A null or missing value
// decodes as NaN.
func (p *Point) UnmarshalJSON(data []byte) error {
	var w pointJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	value := math.NaN()
	if w.Value != nil {
		value = *w.Value
	}
	*p = Point{metric: w.Metric, value: value, timestamp: w.Timestamp}
	if len(w.Tags) > 0 {
		p.tags = w.Tags
	}
	return nil
}

// PointBuilder collects optional attributes before a Point is finalized.
type PointBuilder struct {
	tags      map[string]string
	timestamp *int64
	metric    string
	value     float64
}

// NewPoint starts building a point. The metric name is not validated here.
func NewPoint(metric string, value float64) *PointBuilder {
	return &PointBuilder{metric: metric, value: value}
}

// WithTag sets a single tag, overwriting an existing key.
func (b *PointBuilder) WithTag(key, value string) *PointBuilder {
	if b.tags == nil {
		b.tags = make(map[string]string)
	}
	b.tags[key] = value
	return b
}

// WithTags merges tags into the builder.
func (b *PointBuilder) WithTags(tags map[string]string) *PointBuilder {
	for k, v := range tags {
		b.WithTag(k, v)
	}
	return b
}

// WithTimestamp sets an explicit timestamp in Unix milliseconds.
func (b *PointBuilder) WithTimestamp(ms int64) *PointBuilder {
	b.timestamp = &ms
	return b
}

// WithTime sets the timestamp from t.
func (b *PointBuilder) WithTime(t time.Time) *PointBuilder {
	return b.WithTimestamp(t.UnixMilli())
}

// Build finalizes the point. A missing timestamp is taken from the wall clock now,
// not when the point is later recorded.
func (b *PointBuilder) Build() Point {
	p := Point{metric: b.metric, value: b.value}
	if len(b.tags) > 0 {
		p.tags = maps.Clone(b.tags)
	}
	ts := time.Now().UnixMilli()
	if b.timestamp != nil {
		ts = *b.timestamp
	}
	p.timestamp = &ts
	return p
}
