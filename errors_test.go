package kowari

import (
	"errors"
	"testing"
)

func TestWrapErrReturnsNilForNilError(t *testing.T) {
	if err := WrapErr("op", KindStorage, nil); err != nil {
		t.Errorf("expected WrapErr(nil) to return nil, got %v", err)
	}
}

func TestWrapErrPreservesIs(t *testing.T) {
	err := WrapErr("collection.add", KindStorage, ErrDimensionMismatch)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Error("expected errors.Is to see through StoreError to the wrapped sentinel")
	}
}

func TestWrapErrUnwrap(t *testing.T) {
	err := WrapErr("op", KindPersistence, ErrNotFound)
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatal("expected errors.As to find a *StoreError")
	}
	if storeErr.Unwrap() != ErrNotFound {
		t.Errorf("expected Unwrap to return the wrapped error, got %v", storeErr.Unwrap())
	}
	if storeErr.Op != "op" {
		t.Errorf("expected Op %q, got %q", "op", storeErr.Op)
	}
	if storeErr.Kind != KindPersistence {
		t.Errorf("expected Kind %v, got %v", KindPersistence, storeErr.Kind)
	}
}

func TestErrorKindString(t *testing.T) {
	cases := map[ErrorKind]string{
		KindOther:         "other",
		KindStorage:       "storage",
		KindIndex:         "index",
		KindPersistence:   "persistence",
		KindSerialization: "serialization",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("expected %v.String() to be %q, got %q", kind, want, got)
		}
	}
}
