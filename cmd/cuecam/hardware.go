package main

import (
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-cuecam/internal/config"
	"github.com/teslashibe/go-cuecam/pkg/camera"
	"github.com/teslashibe/go-cuecam/pkg/camera/gocvcam"
	"github.com/teslashibe/go-cuecam/pkg/classify"
	"github.com/teslashibe/go-cuecam/pkg/classify/onnx"
	"github.com/teslashibe/go-cuecam/pkg/cue"
)

// newDevice opens OpenCV capture devices as described by cfg.
func newDevice(cfg config.CameraConfig, logger *slog.Logger) (*gocvcam.Device, error) {
	capture := camera.DefaultConfig()
	if p := camera.GetPreset(cfg.Preset); p != nil {
		capture = *p
	}
	devices := make(map[camera.Facing]int, len(cfg.Devices))
	for name, id := range cfg.Devices {
		f, err := camera.ParseFacing(name)
		if err != nil {
			return nil, fmt.Errorf("camera.devices: %w", err)
		}
		devices[f] = id
	}
	return gocvcam.New(devices, cfg.DefaultDevice, capture, logger), nil
}

// loadClassifier reads the label metadata and loads the ONNX model.
func loadClassifier(cfg config.ModelConfig, logger *slog.Logger) (*onnx.Classifier, error) {
	spec, err := classify.LoadModelSpec(cfg.Metadata)
	if err != nil {
		return nil, err
	}
	for _, label := range spec.Labels {
		if err := cue.ValidLabel(label); err != nil {
			logger.Warn("label cannot name a media file, its cue will never play", "error", err)
		}
	}
	clf, err := onnx.New(onnx.Config{
		ModelPath:    cfg.Path,
		Labels:       spec.Labels,
		InputSize:    cfg.InputSize,
		ApplySoftmax: cfg.ApplySoftmax,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("model loaded", "path", cfg.Path, "labels", spec.NumLabels)
	return clf, nil
}
