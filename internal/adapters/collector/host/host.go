// Package host samples Go runtime statistics and host CPU/RAM usage as telemetry points.
package host

import (
	"context"
	"os"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/vshulcz/Telemetra/internal/domain"
	"github.com/vshulcz/Telemetra/internal/ports"
)

// Metric names produced by Sampler.
const (
	MHeapAlloc    = "runtime.heap_alloc"
	MHeapInuse    = "runtime.heap_inuse"
	MHeapObjects  = "runtime.heap_objects"
	MStackInuse   = "runtime.stack_inuse"
	MSys          = "runtime.sys"
	MTotalAlloc   = "runtime.total_alloc"
	MNumGC        = "runtime.num_gc"
	MPauseTotalNs = "runtime.pause_total_ns"
	MGoroutines   = "runtime.goroutines"
	MPollCount    = "agent.poll_count"

	TotalMemory    = "host.memory.total"
	FreeMemory     = "host.memory.free"
	UsedPercent    = "host.memory.used_percent"
	CPUUtilization = "host.cpu.utilization"
)

// Sampler reads a fresh set of points on every call. Host metrics are
// best-effort: when gopsutil fails the runtime points are still returned.
type Sampler struct {
	tags     map[string]string
	now      func() time.Time
	memory   func(context.Context) (*mem.VirtualMemoryStat, error)
	cpu      func(context.Context) ([]float64, error)
	polls    atomic.Int64
	skipHost bool
}

var _ ports.Sampler = (*Sampler)(nil)

// Option configures a Sampler.
type Option func(*Sampler)

// WithTags attaches static tags to every sampled point.
func WithTags(tags map[string]string) Option {
	return func(s *Sampler) {
		for k, v := range tags {
			s.tags[k] = v
		}
	}
}

// WithoutHostStats limits sampling to the Go runtime.
func WithoutHostStats() Option {
	return func(s *Sampler) { s.skipHost = true }
}

// New creates a Sampler tagged with the local hostname when it is known.
func New(opts ...Option) *Sampler {
	s := &Sampler{
		tags:   make(map[string]string),
		now:    time.Now,
		memory: mem.VirtualMemoryWithContext,
		cpu: func(ctx context.Context) ([]float64, error) {
			return cpu.PercentWithContext(ctx, 0, true)
		},
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		s.tags["host"] = h
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sample returns one point per metric, all stamped with the same time.
func (s *Sampler) Sample(ctx context.Context) ([]domain.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ts := s.now()
	point := func(name string, v float64) domain.Point {
		return domain.NewPoint(name, v).WithTags(s.tags).WithTime(ts).Build()
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	points := []domain.Point{
		point(MHeapAlloc, float64(ms.HeapAlloc)),
		point(MHeapInuse, float64(ms.HeapInuse)),
		point(MHeapObjects, float64(ms.HeapObjects)),
		point(MStackInuse, float64(ms.StackInuse)),
		point(MSys, float64(ms.Sys)),
		point(MTotalAlloc, float64(ms.TotalAlloc)),
		point(MNumGC, float64(ms.NumGC)),
		point(MPauseTotalNs, float64(ms.PauseTotalNs)),
		point(MGoroutines, float64(runtime.NumGoroutine())),
		point(MPollCount, float64(s.polls.Add(1))),
	}

	if s.skipHost {
		return points, nil
	}
	if vm, err := s.memory(ctx); err == nil && vm != nil {
		points = append(points,
			point(TotalMemory, float64(vm.Total)),
			point(FreeMemory, float64(vm.Free)),
			point(UsedPercent, vm.UsedPercent),
		)
	}
	if pct, err := s.cpu(ctx); err == nil {
		for i, p := range pct {
			points = append(points, domain.NewPoint(CPUUtilization, p).
				WithTags(s.tags).
				WithTag("cpu", strconv.Itoa(i)).
				WithTime(ts).
				Build())
		}
	}
	return points, nil
}
