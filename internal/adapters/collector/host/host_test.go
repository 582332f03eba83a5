package host

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/vshulcz/Telemetra/internal/domain"
)

func byMetric(points []domain.Point) map[string][]domain.Point {
	out := make(map[string][]domain.Point)
	for _, p := range points {
		out[p.Metric()] = append(out[p.Metric()], p)
	}
	return out
}

func TestSampler_RuntimeAndHost(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	s := New(WithTags(map[string]string{"service": "agent", "host": "test-host"}))
	s.now = func() time.Time { return fixed }
	s.memory = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 1024, Free: 256, UsedPercent: 75}, nil
	}
	s.cpu = func(context.Context) ([]float64, error) { return []float64{10, 20}, nil }

	points, err := s.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	got := byMetric(points)

	for _, name := range []string{MHeapAlloc, MSys, MNumGC, MGoroutines, MPollCount, TotalMemory, FreeMemory, UsedPercent} {
		if len(got[name]) != 1 {
			t.Fatalf("metric %q sampled %d times", name, len(got[name]))
		}
	}
	if v := got[TotalMemory][0].Value(); v != 1024 {
		t.Fatalf("total memory=%v", v)
	}
	if v := got[UsedPercent][0].Value(); v != 75 {
		t.Fatalf("used percent=%v", v)
	}

	cpus := got[CPUUtilization]
	if len(cpus) != 2 {
		t.Fatalf("cpu points=%d want 2", len(cpus))
	}
	if c, _ := cpus[1].Tag("cpu"); c != "1" || cpus[1].Value() != 20 {
		t.Fatalf("second cpu point tag=%q value=%v", c, cpus[1].Value())
	}

	for _, p := range points {
		if ts, _ := p.Timestamp(); ts != fixed.UnixMilli() {
			t.Fatalf("%s timestamp=%d", p.Metric(), ts)
		}
		if h, _ := p.Tag("host"); h != "test-host" {
			t.Fatalf("%s host tag=%q", p.Metric(), h)
		}
		if svc, _ := p.Tag("service"); svc != "agent" {
			t.Fatalf("%s service tag=%q", p.Metric(), svc)
		}
	}
}

func TestSampler_PollCountIncrements(t *testing.T) {
	s := New(WithoutHostStats())
	for want := 1; want <= 3; want++ {
		points, err := s.Sample(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		pc := byMetric(points)[MPollCount]
		if len(pc) != 1 || pc[0].Value() != float64(want) {
			t.Fatalf("poll count=%v want %d", pc, want)
		}
		if len(byMetric(points)[TotalMemory]) != 0 {
			t.Fatal("host stats must be skipped")
		}
	}
}

func TestSampler_HostErrorsAreBestEffort(t *testing.T) {
	s := New()
	s.memory = func(context.Context) (*mem.VirtualMemoryStat, error) { return nil, errors.New("no /proc") }
	s.cpu = func(context.Context) ([]float64, error) { return nil, errors.New("no /proc") }

	points, err := s.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	got := byMetric(points)
	if len(got[MHeapAlloc]) != 1 {
		t.Fatal("runtime metrics missing")
	}
	if len(got[TotalMemory]) != 0 || len(got[CPUUtilization]) != 0 {
		t.Fatal("host metrics must be absent on error")
	}
}

func TestSampler_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Sample(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
}
