package kowari

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewVectorGeneratesIDWhenNil(t *testing.T) {
	v := NewVector(nil, []float32{1, 2, 3}, nil)
	if v.ID == uuid.Nil {
		t.Error("expected NewVector to generate a random id when none is supplied")
	}
	if v.Dimension() != 3 {
		t.Errorf("expected dimension 3, got %d", v.Dimension())
	}
}

func TestNewVectorHonorsExplicitID(t *testing.T) {
	id := uuid.New()
	v := NewVector(&id, []float32{1}, nil)
	if v.ID != id {
		t.Errorf("expected id %s, got %s", id, v.ID)
	}
}

func TestNewVectorCopiesData(t *testing.T) {
	data := []float32{1, 2, 3}
	v := NewVector(nil, data, nil)

	data[0] = 99
	if v.Data[0] == 99 {
		t.Error("expected NewVector to copy its input slice")
	}
}

func TestVectorClone(t *testing.T) {
	v := NewVector(nil, []float32{1, 2}, []byte(`{"k":"v"}`))
	clone := v.Clone()

	clone.Data[0] = 42
	clone.Metadata[2] = 'X'

	if v.Data[0] == 42 {
		t.Error("expected Clone to deep-copy Data")
	}
	if string(v.Metadata) == string(clone.Metadata) {
		t.Error("expected Clone to deep-copy Metadata")
	}
}
