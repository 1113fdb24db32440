package metastore

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metadata.sqlite3")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertAndGetVector(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	row := VectorRow{ID: "v1", Dimension: 3, Data: []float32{1, 2, 3}, Metadata: []byte(`{"tag":"x"}`)}
	if err := s.InsertVector(ctx, row); err != nil {
		t.Fatalf("InsertVector: %v", err)
	}

	got, ok, err := s.GetVector(ctx, "v1")
	if err != nil {
		t.Fatalf("GetVector: %v", err)
	}
	if !ok {
		t.Fatal("expected row to be found")
	}
	if got.Dimension != 3 || len(got.Data) != 3 {
		t.Fatalf("unexpected row shape: %+v", got)
	}
	if string(got.Metadata) != `{"tag":"x"}` {
		t.Errorf("metadata mismatch: %s", got.Metadata)
	}
}

func TestInsertVectorIsUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.InsertVector(ctx, VectorRow{ID: "v1", Dimension: 2, Data: []float32{1, 1}}); err != nil {
		t.Fatalf("InsertVector: %v", err)
	}
	if err := s.InsertVector(ctx, VectorRow{ID: "v1", Dimension: 2, Data: []float32{9, 9}, Metadata: []byte("{}")}); err != nil {
		t.Fatalf("InsertVector (overwrite): %v", err)
	}

	got, ok, err := s.GetVector(ctx, "v1")
	if err != nil || !ok {
		t.Fatalf("GetVector: ok=%v err=%v", ok, err)
	}
	if got.Data[0] != 9 || got.Data[1] != 9 {
		t.Errorf("expected overwritten data [9 9], got %v", got.Data)
	}
	if string(got.Metadata) != "{}" {
		t.Errorf("expected overwritten metadata, got %s", got.Metadata)
	}

	n, err := s.CountVectors(ctx)
	if err != nil {
		t.Fatalf("CountVectors: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row after upsert, got %d", n)
	}
}

func TestDeleteVectorIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.InsertVector(ctx, VectorRow{ID: "v1", Dimension: 1, Data: []float32{1}}); err != nil {
		t.Fatalf("InsertVector: %v", err)
	}
	if err := s.DeleteVector(ctx, "v1"); err != nil {
		t.Fatalf("DeleteVector: %v", err)
	}
	if err := s.DeleteVector(ctx, "v1"); err != nil {
		t.Fatalf("DeleteVector on missing id: %v", err)
	}
	if err := s.DeleteVector(ctx, "never-existed"); err != nil {
		t.Fatalf("DeleteVector on unknown id: %v", err)
	}

	if _, ok, err := s.GetVector(ctx, "v1"); err != nil || ok {
		t.Fatalf("expected v1 gone, ok=%v err=%v", ok, err)
	}
}

func TestAllVectorsOrderedByCreatedAt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		if err := s.InsertVector(ctx, VectorRow{ID: id, Dimension: 1, Data: []float32{1}}); err != nil {
			t.Fatalf("InsertVector(%s): %v", id, err)
		}
	}

	rows, err := s.AllVectors(ctx)
	if err != nil {
		t.Fatalf("AllVectors: %v", err)
	}
	if len(rows) != len(ids) {
		t.Fatalf("expected %d rows, got %d", len(ids), len(rows))
	}
	for i, id := range ids {
		if rows[i].ID != id {
			t.Errorf("expected row %d to be %s, got %s", i, id, rows[i].ID)
		}
	}
}

func TestSystemInfoRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.GetSystemInfo(ctx, "vector_count"); err != nil || ok {
		t.Fatalf("expected absent key, ok=%v err=%v", ok, err)
	}

	if err := s.SetSystemInfo(ctx, "vector_count", "5"); err != nil {
		t.Fatalf("SetSystemInfo: %v", err)
	}
	if err := s.SetSystemInfo(ctx, "vector_count", "6"); err != nil {
		t.Fatalf("SetSystemInfo (overwrite): %v", err)
	}

	v, ok, err := s.GetSystemInfo(ctx, "vector_count")
	if err != nil || !ok {
		t.Fatalf("GetSystemInfo: ok=%v err=%v", ok, err)
	}
	if v != "6" {
		t.Errorf("expected '6', got %q", v)
	}
}
