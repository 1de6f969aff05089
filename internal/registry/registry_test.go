package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/veltaworks/docintel/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	d, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return NewStore(d)
}

func TestAddAndByNumber(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p := &Project{
		Number:     "PRJ-4521",
		Name:       "Harbor Expansion",
		ClientID:   "c-9",
		ClientName: "Northwind",
		Centroid:   []float32{0.1, 0.2, 0.3},
	}
	if err := s.Add(ctx, p); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if p.ID == "" {
		t.Error("Add() did not assign an id")
	}

	got, err := s.ByNumber(ctx, "PRJ-4521")
	if err != nil {
		t.Fatalf("ByNumber() error: %v", err)
	}
	if got == nil {
		t.Fatal("ByNumber() = nil")
	}
	if got.Name != "Harbor Expansion" || got.Status != "active" {
		t.Errorf("got %+v", got)
	}
	if len(got.Centroid) != 3 {
		t.Errorf("centroid = %v", got.Centroid)
	}

	missing, err := s.ByNumber(ctx, "PRJ-0000")
	if err != nil {
		t.Fatalf("ByNumber(missing) error: %v", err)
	}
	if missing != nil {
		t.Errorf("ByNumber(missing) = %+v, want nil", missing)
	}
}

func TestAddUpsertsByNumber(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Add(ctx, &Project{Number: "PRJ-1", Name: "Old Name"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(ctx, &Project{Number: "PRJ-1", Name: "New Name"}); err != nil {
		t.Fatal(err)
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("List() returned %d projects, want 1", len(all))
	}
	if all[0].Name != "New Name" {
		t.Errorf("Name = %q, want New Name", all[0].Name)
	}
}

func TestImportSeedsRejectsBadSeedBeforeAnyWrite(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.ImportSeeds(ctx, []Seed{
		{Number: "PRJ-1", Name: "Valid"},
		{Name: "Missing Number"},
	})
	if err == nil {
		t.Fatal("ImportSeeds() = nil, want error")
	}

	all, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("partial import happened: %d projects written", len(all))
	}
}

func TestImportFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	path := filepath.Join(t.TempDir(), "projects.yml")
	content := `- number: PRJ-4521
  name: Harbor Expansion
  client_name: Northwind
- number: OPS-101
  name: Ops Modernization
  status: closed
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	n, err := s.ImportFile(ctx, path)
	if err != nil {
		t.Fatalf("ImportFile() error: %v", err)
	}
	if n != 2 {
		t.Errorf("imported %d, want 2", n)
	}

	ops, err := s.ByNumber(ctx, "OPS-101")
	if err != nil {
		t.Fatal(err)
	}
	if ops == nil || ops.Status != "closed" {
		t.Errorf("OPS-101 = %+v", ops)
	}
}
