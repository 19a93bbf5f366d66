package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestHandleWritesToFileAndStderrWhenDebug(t *testing.T) {
	var buf bytes.Buffer
	debugOn := true
	h := NewHandler(&buf, nil, &debugOn)

	logger := slog.New(h)
	logger.Info("translation fault", "va", "0x1000")

	out := buf.String()
	if !strings.Contains(out, "INFO:") {
		t.Errorf("output missing level: %q", out)
	}
	if !strings.Contains(out, "translation fault") {
		t.Errorf("output missing message: %q", out)
	}
	if !strings.Contains(out, "0x1000") {
		t.Errorf("output missing attr: %q", out)
	}
}

func TestHandleSkipsFileWhenNil(t *testing.T) {
	debugOff := false
	h := NewHandler(nil, nil, &debugOff)
	if err := h.Handle(context.Background(), slog.Record{Message: "no file", Level: slog.LevelDebug}); err != nil {
		t.Fatalf("Handle() = %v, want nil", err)
	}
}

func TestSetDebugTogglesStderrTee(t *testing.T) {
	var buf bytes.Buffer
	debugOff := false
	h := NewHandler(&buf, nil, &debugOff)
	if h.debug {
		t.Fatal("debug should start false")
	}
	on := true
	h.SetDebug(&on)
	if !h.debug {
		t.Error("SetDebug(true) should enable stderr tee")
	}
}

func TestWithAttrsPreservesMutex(t *testing.T) {
	var buf bytes.Buffer
	debugOff := false
	h := NewHandler(&buf, nil, &debugOff)
	h2 := h.WithAttrs([]slog.Attr{slog.String("cpu", "0")}).(*LogHandler)
	if h2.mu != h.mu {
		t.Error("WithAttrs should share the same mutex as the parent handler")
	}
}
