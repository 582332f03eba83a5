package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/vshulcz/Telemetra/internal/domain"
	"github.com/vshulcz/Telemetra/internal/ports"
)

func names(points []domain.Point) []string {
	out := make([]string, 0, len(points))
	for _, p := range points {
		out = append(out, fmt.Sprintf("%s=%v", p.Metric(), p.Value()))
	}
	return out
}

func TestRepo(t *testing.T) {
	ctx := context.TODO()
	r := New()

	batches := []struct {
		id     string
		points []domain.Point
		dup    bool
	}{
		{"b1", []domain.Point{domain.NewPoint("cpu", 1).Build(), domain.NewPoint("mem", 1).Build()}, false},
		{"b2", []domain.Point{domain.NewPoint("cpu", 2).Build()}, false},
		{"b1", []domain.Point{domain.NewPoint("cpu", 99).Build()}, true},
		{"", []domain.Point{domain.NewPoint("cpu", 3).Build()}, false},
		{"", []domain.Point{domain.NewPoint("cpu", 4).Build()}, false},
		{"b3", nil, false},
	}
	for _, b := range batches {
		err := r.Append(ctx, b.id, b.points)
		if b.dup {
			if !errors.Is(err, domain.ErrDuplicateBatch) {
				t.Fatalf("Append(%s)=%v want duplicate batch", b.id, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Append(%s): %v", b.id, err)
		}
	}

	tests := []struct {
		name string
		q    ports.PointQuery
		want []string
	}{
		{"all", ports.PointQuery{}, []string{"cpu=1", "mem=1", "cpu=2", "cpu=3", "cpu=4"}},
		{"by metric", ports.PointQuery{Metric: "cpu"}, []string{"cpu=1", "cpu=2", "cpu=3", "cpu=4"}},
		{"newest two", ports.PointQuery{Metric: "cpu", Limit: 2}, []string{"cpu=3", "cpu=4"}},
		{"limit above size", ports.PointQuery{Limit: 50}, []string{"cpu=1", "mem=1", "cpu=2", "cpu=3", "cpu=4"}},
		{"unknown metric", ports.PointQuery{Metric: "disk"}, []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.Query(ctx, tc.q)
			if err != nil {
				t.Fatal(err)
			}
			gotNames := names(got)
			if fmt.Sprint(gotNames) != fmt.Sprint(tc.want) {
				t.Fatalf("got %v want %v", gotNames, tc.want)
			}
		})
	}

	if n, _ := r.Count(ctx); n != 5 {
		t.Fatalf("Count=%d want 5", n)
	}
	if err := r.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestRepo_QueryReturnsCopy(t *testing.T) {
	r := New()
	_ = r.Append(context.TODO(), "", []domain.Point{domain.NewPoint("a", 1).Build()})
	got, _ := r.Query(context.TODO(), ports.PointQuery{})
	got[0] = domain.NewPoint("changed", 0).Build()

	again, _ := r.Query(context.TODO(), ports.PointQuery{})
	if again[0].Metric() != "a" {
		t.Fatalf("internal state mutated: %s", again[0].Metric())
	}
}

func TestRepo_Concurrent(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				_ = r.Append(context.TODO(), fmt.Sprintf("w%d-%d", i, j), []domain.Point{domain.NewPoint("m", float64(j)).Build()})
				_, _ = r.Query(context.TODO(), ports.PointQuery{Limit: 3})
			}
		}()
	}
	wg.Wait()
	if n, _ := r.Count(context.TODO()); n != 16*50 {
		t.Fatalf("Count=%d want %d", n, 16*50)
	}
}
