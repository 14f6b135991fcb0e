// Package onnx runs exported image classifiers through OpenCV DNN.
package onnx

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-cuecam/pkg/camera"
	"github.com/teslashibe/go-cuecam/pkg/classify"
)

// Config holds classifier configuration.
type Config struct {
	ModelPath    string
	Labels       []string
	InputSize    int  // Square model input (default 224)
	ApplySoftmax bool // Set when the model emits logits
}

// Classifier runs an exported image classifier through OpenCV DNN.
type Classifier struct {
	net    gocv.Net
	config Config
	mu     sync.Mutex // Protects inference
}

// New loads the model at cfg.ModelPath.
func New(cfg Config) (*Classifier, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}
	if len(cfg.Labels) == 0 {
		return nil, fmt.Errorf("classifier needs at least one label")
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = 224
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model from %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &Classifier{net: net, config: cfg}, nil
}

// Classify implements classify.Classifier.
func (c *Classifier) Classify(ctx context.Context, frame camera.Frame) (classify.Predictions, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	img, err := gocv.IMDecode(frame.JPEG, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	size := image.Pt(c.config.InputSize, c.config.InputSize)
	blob := gocv.BlobFromImage(img, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	c.net.SetInput(blob, "")
	output := c.net.Forward("")
	defer output.Close()

	scores, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	return classify.Rank(scores, c.config.Labels, c.config.ApplySoftmax), nil
}

// Close releases the network.
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.Close()
}

var _ classify.Classifier = (*Classifier)(nil)
