package classify

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultNumLabels is assumed when the model metadata lists no classes.
const DefaultNumLabels = 2

// ModelSpec is the subset of an exported model.json we need.
type ModelSpec struct {
	Labels    []string
	NumLabels int
}

type modelJSON struct {
	Specs *struct {
		MapStringToIndex []string `json:"mapStringToIndex"`
	} `json:"ml5Specs"`
}

// LoadModelSpec reads class labels from a model.json file.
// When the file carries no label map the result has DefaultNumLabels
// anonymous classes named "0", "1", ...
func LoadModelSpec(path string) (*ModelSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model metadata: %w", err)
	}
	return ParseModelSpec(data)
}

// ParseModelSpec parses model.json bytes.
func ParseModelSpec(data []byte) (*ModelSpec, error) {
	var raw modelJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse model metadata: %w", err)
	}

	if raw.Specs != nil && len(raw.Specs.MapStringToIndex) > 0 {
		labels := raw.Specs.MapStringToIndex
		return &ModelSpec{Labels: labels, NumLabels: len(labels)}, nil
	}

	labels := make([]string, DefaultNumLabels)
	for i := range labels {
		labels[i] = fmt.Sprint(i)
	}
	return &ModelSpec{Labels: labels, NumLabels: DefaultNumLabels}, nil
}
