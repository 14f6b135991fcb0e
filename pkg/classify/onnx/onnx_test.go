package onnx

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewMissingModel(t *testing.T) {
	_, err := New(Config{ModelPath: filepath.Join(t.TempDir(), "nope.onnx"), Labels: []string{"a"}})
	if err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestNewRequiresLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.onnx")
	if err := os.WriteFile(path, []byte("onnx"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(Config{ModelPath: path}); err == nil {
		t.Fatal("expected error without labels")
	}
}
