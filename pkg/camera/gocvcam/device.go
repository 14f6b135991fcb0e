// Package gocvcam implements camera.Device over OpenCV capture devices.
package gocvcam

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-cuecam/pkg/camera"
)

// Device opens local capture devices through OpenCV.
//
// Facing is mapped to device indices. A strict request fails unless the
// facing has a mapped device; a loose request uses the mapped device when
// there is one and the default device otherwise; an unconstrained request
// always opens the default device.
type Device struct {
	Devices   map[camera.Facing]int
	DefaultID int
	Config    camera.Config

	logger *slog.Logger
}

// New creates a device with the given facing map.
func New(devices map[camera.Facing]int, defaultID int, cfg camera.Config, logger *slog.Logger) *Device {
	if logger == nil {
		logger = slog.Default()
	}
	return &Device{
		Devices:   devices,
		DefaultID: defaultID,
		Config:    cfg,
		logger:    logger.With("component", "camera.gocv"),
	}
}

// resolve picks the device index for c.
func (d *Device) resolve(c camera.Constraints) (int, error) {
	switch c.Mode {
	case camera.FacingExact:
		id, ok := d.Devices[c.Facing]
		if !ok {
			return 0, fmt.Errorf("%w: no %s-facing device", camera.ErrConstraintUnsatisfied, c.Facing)
		}
		return id, nil
	case camera.FacingPreferred:
		if id, ok := d.Devices[c.Facing]; ok {
			return id, nil
		}
	}
	return d.DefaultID, nil
}

// Open implements camera.Device.
func (d *Device) Open(ctx context.Context, c camera.Constraints) (camera.Stream, error) {
	id, err := d.resolve(c)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vc, err := gocv.VideoCaptureDevice(id)
	if err != nil {
		return nil, fmt.Errorf("open device %d: %w", id, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open device %d: not opened", id)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(d.Config.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(d.Config.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(d.Config.Framerate))

	// Read one frame so a device that opens but produces nothing is rejected
	// here rather than stalling the classification loop later.
	probe := gocv.NewMat()
	ok := vc.Read(&probe)
	empty := probe.Empty()
	probe.Close()
	if !ok || empty {
		vc.Close()
		return nil, fmt.Errorf("device %d produced no frames", id)
	}

	exited := make(chan struct{})
	box := camera.NewMailbox(func() error {
		<-exited
		return vc.Close()
	})
	go d.capture(vc, box, exited)

	d.logger.Debug("device opened", "device", id, "constraints", c.String())
	return box, nil
}

// capture reads frames until the mailbox is stopped.
func (d *Device) capture(vc *gocv.VideoCapture, box *camera.Mailbox, exited chan<- struct{}) {
	defer close(exited)

	img := gocv.NewMat()
	defer img.Close()

	params := []int{gocv.IMWriteJpegQuality, d.Config.Quality}
	var seq uint64
	for {
		select {
		case <-box.Done():
			return
		default:
		}

		if ok := vc.Read(&img); !ok {
			d.logger.Warn("device read failed, stopping capture")
			go box.Stop()
			return
		}
		if img.Empty() {
			continue
		}

		buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, params)
		if err != nil {
			d.logger.Debug("jpeg encode failed", "error", err)
			continue
		}
		data := append([]byte(nil), buf.GetBytes()...)
		buf.Close()

		seq++
		box.Publish(camera.Frame{
			Seq:       seq,
			Timestamp: time.Now(),
			Width:     img.Cols(),
			Height:    img.Rows(),
			JPEG:      data,
		})
	}
}

var _ camera.Device = (*Device)(nil)
