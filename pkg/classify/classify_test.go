package classify

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestRankSortsDescending(t *testing.T) {
	preds := Rank([]float32{0.1, 0.7, 0.2}, []string{"cat", "dog", "cow"}, false)

	want := []string{"dog", "cow", "cat"}
	for i, p := range preds {
		if p.Label != want[i] {
			t.Errorf("position %d = %s, want %s", i, p.Label, want[i])
		}
	}

	top, ok := preds.Top()
	if !ok || top.Label != "dog" {
		t.Errorf("Top = %+v, %v", top, ok)
	}
}

func TestRankSoftmax(t *testing.T) {
	preds := Rank([]float32{2, 1, 0}, []string{"a", "b", "c"}, true)

	var sum float64
	for _, p := range preds {
		sum += p.Confidence
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("softmax sum = %v, want 1", sum)
	}
	if preds[0].Label != "a" {
		t.Errorf("top = %s, want a", preds[0].Label)
	}
}

func TestRankMismatchedLengths(t *testing.T) {
	if got := Rank([]float32{0.5, 0.5, 0.9}, []string{"a", "b"}, false); len(got) != 2 {
		t.Errorf("extra scores should be ignored, got %d predictions", len(got))
	}
	if got := Rank([]float32{0.5}, []string{"a", "b"}, false); len(got) != 1 {
		t.Errorf("missing scores should truncate, got %d predictions", len(got))
	}
}

func TestPredictionsHelpers(t *testing.T) {
	var empty Predictions
	if _, ok := empty.Top(); ok {
		t.Error("empty predictions have no top")
	}

	p := Predictions{{"a", 0.2}, {"b", 0.9}, {"c", 0.5}, {"d", 0.1}}
	p.Sort()
	if p[0].Label != "b" {
		t.Errorf("sorted top = %s", p[0].Label)
	}
	if len(p.Head(3)) != 3 || len(p.Head(10)) != 4 {
		t.Error("Head returned wrong length")
	}
}

func TestParseModelSpec(t *testing.T) {
	tests := []struct {
		name       string
		json       string
		wantLabels []string
	}{
		{
			name:       "labels from ml5 specs",
			json:       `{"ml5Specs":{"mapStringToIndex":["cow","cat","dog"]}}`,
			wantLabels: []string{"cow", "cat", "dog"},
		},
		{
			name:       "missing specs default to two classes",
			json:       `{"modelTopology":{}}`,
			wantLabels: []string{"0", "1"},
		},
		{
			name:       "empty map defaults",
			json:       `{"ml5Specs":{"mapStringToIndex":[]}}`,
			wantLabels: []string{"0", "1"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			spec, err := ParseModelSpec([]byte(tc.json))
			if err != nil {
				t.Fatal(err)
			}
			if spec.NumLabels != len(tc.wantLabels) {
				t.Errorf("NumLabels = %d, want %d", spec.NumLabels, len(tc.wantLabels))
			}
			for i, l := range tc.wantLabels {
				if spec.Labels[i] != l {
					t.Errorf("label %d = %q, want %q", i, spec.Labels[i], l)
				}
			}
		})
	}
}

func TestLoadModelSpecErrors(t *testing.T) {
	if _, err := LoadModelSpec(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadModelSpec(path); err == nil {
		t.Error("expected parse error")
	}
}
