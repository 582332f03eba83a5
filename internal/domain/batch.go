package domain

// Batch is the ordered set of points drained by one flush.
type Batch struct {
	ID     string  `json:"-"`
	Points []Point `json:"points"`
}

// Len returns the number of points in the batch.
func (b Batch) Len() int { return len(b.Points) }

// Empty reports whether there is nothing to deliver.
func (b Batch) Empty() bool { return len(b.Points) == 0 }

// Metrics lists the distinct metric names in first-seen order.
func (b Batch) Metrics() []string {
	seen := make(map[string]struct{}, len(b.Points))
	out := make([]string, 0, len(b.Points))
	for _, p := range b.Points {
		if _, ok := seen[p.metric]; ok {
			continue
		}
		seen[p.metric] = struct{}{}
		out = append(out, p.metric)
	}
	return out
}
