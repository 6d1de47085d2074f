package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/CTAG07/drosera/pkg/ngram"
	_ "modernc.org/sqlite"
)

// setupTestStore creates a SQLite database in a temp dir and a Store over
// it, releasing both with t.Cleanup.
func setupTestStore(t *testing.T) (*sql.DB, *Store) {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", dbFile)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := NewStore(db)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(s.Close)

	return db, s
}

// buildModel returns a small trained bigram model with a known observation
// order.
func buildModel(t *testing.T) *ngram.Model {
	t.Helper()
	m, err := ngram.NewModel(2)
	if err != nil {
		t.Fatalf("NewModel() error = %v", err)
	}
	for _, ng := range [][]string{
		{"one", "fish"},
		{"fish", "two"},
		{"two", "fish"},
		{"fish", ngram.TerminalToken},
		{"fish", "two"},
	} {
		if err := m.AddNGram(ng...); err != nil {
			t.Fatalf("AddNGram(%v) error = %v", ng, err)
		}
	}
	return m
}

// collectEdges flattens a model's edges for comparison.
func collectEdges(m *ngram.Model) [][3]any {
	var edges [][3]any
	m.Edges(func(prefix, suffix string, count int) bool {
		edges = append(edges, [3]any{prefix, suffix, count})
		return true
	})
	return edges
}

func TestSetupSchemaIdempotent(t *testing.T) {
	db, _ := setupTestStore(t)
	if err := SetupSchema(db); err != nil {
		t.Errorf("second SetupSchema() error = %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()
	m := buildModel(t)

	if err := s.Save(ctx, "fish", m); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := s.Load(ctx, "fish")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Order() != m.Order() {
		t.Errorf("loaded order = %d, want %d", loaded.Order(), m.Order())
	}
	if got, want := loaded.Stats(), m.Stats(); got != want {
		t.Errorf("loaded Stats() = %+v, want %+v", got, want)
	}

	// Observation order must round-trip, not just the counts: sampling
	// depends on it.
	got, want := collectEdges(loaded), collectEdges(m)
	if len(got) != len(want) {
		t.Fatalf("loaded %d edges, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("edge[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLoadMissingModel(t *testing.T) {
	_, s := setupTestStore(t)

	if _, err := s.Load(context.Background(), "nope"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Load() on missing model error = %v, want sql.ErrNoRows", err)
	}
}

// Save is a snapshot: saving the same model twice must not double counts.
func TestSaveReplaces(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()
	m := buildModel(t)

	if err := s.Save(ctx, "fish", m); err != nil {
		t.Fatalf("first Save() error = %v", err)
	}
	if err := s.Save(ctx, "fish", m); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	loaded, err := s.Load(ctx, "fish")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, want := loaded.Stats(), m.Stats(); got != want {
		t.Errorf("after double save, Stats() = %+v, want %+v", got, want)
	}
}

func TestListAndInfo(t *testing.T) {
	_, s := setupTestStore(t)
	ctx := context.Background()
	m := buildModel(t)

	if err := s.Save(ctx, "a", m); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save(ctx, "b", m); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	models, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(models) != 2 {
		t.Errorf("List() returned %d models, want 2", len(models))
	}
	for _, name := range []string{"a", "b"} {
		info, ok := models[name]
		if !ok {
			t.Errorf("List() missing model %q", name)
			continue
		}
		if info.Order != 2 {
			t.Errorf("model %q order = %d, want 2", name, info.Order)
		}
	}

	if _, err := s.Info(ctx, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Info() on missing model error = %v, want sql.ErrNoRows", err)
	}
}

func TestDelete(t *testing.T) {
	db, s := setupTestStore(t)
	ctx := context.Background()
	m := buildModel(t)

	if err := s.Save(ctx, "keep", m); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save(ctx, "drop", m); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	dropped, err := s.Info(ctx, "drop")
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}

	if err := s.Delete(ctx, "drop"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := s.Info(ctx, "drop"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Info() after delete error = %v, want sql.ErrNoRows", err)
	}

	var count int
	_ = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM ngram_edges WHERE model_id = ?", dropped.Id).Scan(&count)
	if count != 0 {
		t.Errorf("deleted model still has %d edges", count)
	}

	if n, err := s.EdgeCount(ctx, "keep"); err != nil || n == 0 {
		t.Errorf("EdgeCount(keep) = (%d, %v), want edges to survive", n, err)
	}

	// Deleting a missing model is not an error.
	if err := s.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Delete() on missing model error = %v", err)
	}
}
