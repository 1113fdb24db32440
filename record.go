package kowari

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Vector is the core unit of storage: an identity, a dense float32
// payload, and an optional JSON-shaped metadata document. Both the id
// and the data are immutable after construction; metadata is opaque to
// the core and only ever round-tripped.
type Vector struct {
	ID       uuid.UUID
	Data     []float32
	Metadata json.RawMessage
}

// NewVector builds a Vector, generating a random id when none is
// supplied. The returned Vector owns a copy of data so later mutation of
// the caller's slice cannot corrupt stored state.
func NewVector(id *uuid.UUID, data []float32, metadata json.RawMessage) Vector {
	var vid uuid.UUID
	if id != nil {
		vid = *id
	} else {
		vid = uuid.New()
	}

	owned := make([]float32, len(data))
	copy(owned, data)

	return Vector{ID: vid, Data: owned, Metadata: metadata}
}

// Dimension returns the length of the vector's data slice.
func (v Vector) Dimension() int {
	return len(v.Data)
}

// Clone returns a deep copy of v, safe to mutate independently.
func (v Vector) Clone() Vector {
	data := make([]float32, len(v.Data))
	copy(data, v.Data)

	var md json.RawMessage
	if v.Metadata != nil {
		md = make(json.RawMessage, len(v.Metadata))
		copy(md, v.Metadata)
	}

	return Vector{ID: v.ID, Data: data, Metadata: md}
}

// ScoredVector pairs a Vector with a similarity score produced by a
// query. Higher scores are always more similar, regardless of which
// kernel produced them (see similarity.go for the Euclidean negation
// convention).
type ScoredVector struct {
	Vector Vector
	Score  float64
}
