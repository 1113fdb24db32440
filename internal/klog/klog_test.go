package klog

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriterLoggerFiltersBelowMinLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)

	l.Info("should not appear")
	if buf.Len() != 0 {
		t.Errorf("expected Info below LevelWarn to be filtered, got %q", buf.String())
	}

	l.Warn("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Errorf("expected Warn message in output, got %q", buf.String())
	}
}

func TestWriterLoggerIncludesKeyvals(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelDebug)

	l.Error("failed", "op", "collection.add", "id", 42)
	out := buf.String()

	if !strings.Contains(out, "op=collection.add") {
		t.Errorf("expected keyval op=collection.add in output, got %q", out)
	}
	if !strings.Contains(out, "id=42") {
		t.Errorf("expected keyval id=42 in output, got %q", out)
	}
	if !strings.Contains(out, "[ERROR]") {
		t.Errorf("expected level tag [ERROR] in output, got %q", out)
	}
}

func TestWithMergesKeyvals(t *testing.T) {
	var buf bytes.Buffer
	base := New(&buf, LevelDebug)
	scoped := base.With("collection", "docs")

	scoped.Info("opened")
	out := buf.String()

	if !strings.Contains(out, "collection=docs") {
		t.Errorf("expected With's keyvals to carry through, got %q", out)
	}
}

func TestNopLoggerDiscardsEverything(t *testing.T) {
	l := Nop()
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")

	scoped := l.With("k", "v")
	scoped.Error("still discarded")
}
