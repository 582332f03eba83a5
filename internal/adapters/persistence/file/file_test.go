package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/vshulcz/Telemetra/internal/adapters/repository/memory"
	"github.com/vshulcz/Telemetra/internal/domain"
	"github.com/vshulcz/Telemetra/internal/ports"
)

func mustQueryAll(t *testing.T, repo *memory.Repo) []domain.Point {
	t.Helper()
	points, err := repo.Query(context.TODO(), ports.PointQuery{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	return points
}

func TestSave(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "points.json")
	p := New(file)

	in := []domain.Point{
		domain.NewPoint("cpu", 0.25).WithTag("host", "a").WithTimestamp(10).Build(),
		domain.NewPoint("mem", 512).WithTimestamp(11).Build(),
	}
	if err := p.Save(context.TODO(), in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	repo := memory.New()
	if err := p.Restore(context.TODO(), repo); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	got := mustQueryAll(t, repo)
	if len(got) != 2 {
		t.Fatalf("restored %d points, want 2", len(got))
	}
	if got[0].Metric() != "cpu" || got[0].Value() != 0.25 {
		t.Errorf("first point = %s=%v", got[0].Metric(), got[0].Value())
	}
	if host, _ := got[0].Tag("host"); host != "a" {
		t.Errorf("host tag = %q", host)
	}
	if ts, ok := got[1].Timestamp(); !ok || ts != 11 {
		t.Errorf("second timestamp = %d,%v", ts, ok)
	}

	entries, err := os.ReadDir(filepath.Dir(file))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestSave_Empty(t *testing.T) {
	file := filepath.Join(t.TempDir(), "points.json")
	p := New(file)
	if err := p.Save(context.TODO(), nil); err != nil {
		t.Fatalf("Save empty: %v", err)
	}
	b, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "[]\n" {
		t.Errorf("file = %q, want []", b)
	}

	repo := memory.New()
	if err := p.Restore(context.TODO(), repo); err != nil {
		t.Fatalf("Restore empty: %v", err)
	}
	if n, _ := repo.Count(context.TODO()); n != 0 {
		t.Errorf("expected empty after restore, got %d", n)
	}
}

func TestRestore(t *testing.T) {
	p := New(filepath.Join(t.TempDir(), "nope.json"))
	if err := p.Restore(context.TODO(), memory.New()); err != nil {
		t.Fatalf("Restore non-existent: %v", err)
	}

	file := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(file, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write bad json: %v", err)
	}
	if err := New(file).Restore(context.TODO(), memory.New()); err == nil {
		t.Fatal("expected error for bad JSON, got nil")
	}
}

func TestSave_CreateError(t *testing.T) {
	p := New(t.TempDir())
	if err := p.Save(context.TODO(), nil); err == nil {
		t.Fatal("expected error when saving to directory path, got nil")
	}
}
