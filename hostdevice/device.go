// Package hostdevice emulates the device pipeline on the host.  Frames come
// from a camera, video or image, and both networks run through the OpenCV DNN
// module.  The device exposes the same named streams as real hardware so the
// fusion pipeline can run unchanged.
package hostdevice

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"
	"time"

	"github.com/swdee/go-depthai-lite"
	"github.com/swdee/go-depthai-lite/preprocess"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// DetectionLayer and EmotionLayer name the output tensors published by the
// host device
const (
	DetectionLayer = "detection_out"
	EmotionLayer   = "prob_emotion"
)

// Device runs the face detection and emotion networks on the host
type Device struct {
	*depthai.MemDevice

	cfg    depthai.PipelineConfig
	source Source
	log    *zap.Logger

	// detPool runs face detection, emoPool the emotion network
	detPool *Pool
	emoPool *Pool

	seq    *depthai.SequenceGenerator
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// Option configures optional Device settings
type Option func(*Device)

// WithLogger sets the logger used by the device
func WithLogger(log *zap.Logger) Option {
	return func(d *Device) {
		if log != nil {
			d.log = log
		}
	}
}

// New returns a stopped device reading frames from source.  Depth, system
// information and IMU are never produced on the host so those sub-pipelines
// are disabled in the returned device's config
func New(cfg depthai.PipelineConfig, source Source, opts ...Option) *Device {

	cfg.ConfidenceThreshold = 0
	cfg.Rate = 0
	cfg.Freq = 0

	d := &Device{
		MemDevice: depthai.NewMemDevice("host", cfg),
		cfg:       cfg,
		source:    source,
		log:       zap.NewNop(),
		seq:       depthai.NewSequenceGenerator(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Config returns the pipeline config the device was built with, sessions
// must use it so only streams the host produces are polled
func (d *Device) Config() depthai.PipelineConfig {
	return d.cfg
}

// Start loads the networks and begins capturing
func (d *Device) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.IsRunning() {
		return nil
	}

	var err error

	d.detPool, err = NewPool(1, d.cfg.NNPath1)

	if err != nil {
		return fmt.Errorf("error loading face detection network: %w", err)
	}

	d.emoPool, err = NewPool(1, d.cfg.NNPath2)

	if err != nil {
		d.detPool.Close()
		return fmt.Errorf("error loading emotion network: %w", err)
	}

	ctx, d.cancel = context.WithCancel(ctx)
	d.SetRunning(true)

	d.wg.Add(2)
	go d.captureLoop(ctx)
	go d.stage2Loop(ctx)

	d.log.Info("Host device started", zap.Int("previewWidth", d.cfg.PreviewWidth),
		zap.Int("previewHeight", d.cfg.PreviewHeight), zap.Float32("fps", d.cfg.ColorFPS),
		zap.Int("detectionNets", d.detPool.Size()), zap.Int("emotionNets", d.emoPool.Size()))

	return nil
}

// Stop halts capture, closes the streams and frees the networks.  The
// device can not be restarted
func (d *Device) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}

	d.MemDevice.Close()
	d.wg.Wait()

	if d.detPool != nil {
		d.detPool.Close()
	}

	if d.emoPool != nil {
		d.emoPool.Close()
	}

	_ = d.source.Close()
}

// captureLoop reads frames at the configured rate, publishes the preview and
// runs face detection on it
func (d *Device) captureLoop(ctx context.Context) {
	defer d.wg.Done()

	fps := d.cfg.ColorFPS

	if fps <= 0 {
		fps = 30
	}

	ticker := time.NewTicker(time.Duration(float64(time.Second) / float64(fps)))
	defer ticker.Stop()

	img := gocv.NewMat()
	defer img.Close()

	preview := gocv.NewMat()
	defer preview.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if !d.source.Read(&img) {
				d.log.Info("Video source ended")
				d.SetRunning(false)
				return
			}

			if err := d.processFrame(ctx, img, &preview); err != nil {
				d.log.Warn("Error processing frame", zap.Error(err))
			}
		}
	}
}

// processFrame publishes the preview and detections of one captured frame
func (d *Device) processFrame(ctx context.Context, img gocv.Mat, preview *gocv.Mat) error {

	seq := d.seq.Next()

	frame, err := d.previewFrame(img, preview, seq)

	if err != nil {
		return err
	}

	if err := d.publish(ctx, depthai.StreamPreview, frame); err != nil {
		return err
	}

	dets, err := d.detect(*preview)

	if err != nil {
		return err
	}

	return d.publish(ctx, depthai.StreamDetections,
		depthai.NewNNDataFp16(seq, DetectionLayer, dets))
}

// previewFrame scales the captured frame to the preview size and encodes it
// in the configured layout and color order
func (d *Device) previewFrame(img gocv.Mat, preview *gocv.Mat, seq int64) (*depthai.ImgFrame, error) {

	size := image.Pt(d.cfg.PreviewWidth, d.cfg.PreviewHeight)

	if size.X <= 0 || size.Y <= 0 {
		return nil, errors.New("preview size not configured")
	}

	gocv.Resize(img, preview, size, 0, 0, gocv.InterpolationArea)

	frame, err := preprocess.MatToFrame(*preview, depthai.StreamPreview, previewType(d.cfg), seq)

	if err != nil {
		return nil, err
	}

	frame.Timestamp = time.Now()

	return frame, nil
}

// previewType returns the frame type the camera emits for the config
func previewType(cfg depthai.PipelineConfig) depthai.FrameType {
	switch {
	case cfg.ColorOrder == depthai.OrderRGB && cfg.Interleaved:
		return depthai.RGB888i
	case cfg.ColorOrder == depthai.OrderRGB:
		return depthai.RGB888p
	case cfg.Interleaved:
		return depthai.BGR888i
	default:
		return depthai.BGR888p
	}
}

// detect runs the SSD face detector which outputs [1,1,N,7] records
func (d *Device) detect(preview gocv.Mat) ([]float32, error) {

	blob := gocv.BlobFromImage(preview, 1.0, image.Pt(preview.Cols(), preview.Rows()),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	return d.detPool.forward(blob)
}

// stage2Loop answers second stage requests, replying with the sequence number
// of the request
func (d *Device) stage2Loop(ctx context.Context) {
	defer d.wg.Done()

	in, err := d.Input(depthai.StreamStage2In)

	if err != nil {
		d.log.Error("Second stage input missing", zap.Error(err))
		return
	}

	for {
		msg, err := in.Get(ctx)

		if err != nil {
			return
		}

		buf, ok := msg.(*depthai.Buffer)

		if !ok {
			continue
		}

		probs, err := d.classify(buf.Data)

		if err != nil {
			d.log.Warn("Error running emotion network", zap.Int64("seq", buf.Seq),
				zap.Error(err))
			continue
		}

		if err := d.publish(ctx, depthai.StreamStage2Out,
			depthai.NewNNDataFp16(buf.Seq, EmotionLayer, probs)); err != nil {
			return
		}
	}
}

// classify runs the emotion network on a square planar BGR tensor
func (d *Device) classify(tensor []byte) ([]float32, error) {

	size, err := planarSize(len(tensor))

	if err != nil {
		return nil, err
	}

	img, err := preprocess.FromPlanar(tensor, size, size, 3)

	if err != nil {
		return nil, err
	}

	defer img.Close()

	blob := gocv.BlobFromImage(img, 1.0, image.Pt(size, size),
		gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	return d.emoPool.forward(blob)
}

// planarSize returns the side of a square 3 channel tensor of n bytes
func planarSize(n int) (int, error) {

	side := int(math.Sqrt(float64(n / 3)))

	if side == 0 || side*side*3 != n {
		return 0, fmt.Errorf("tensor of %d bytes is not a square 3 channel image", n)
	}

	return side, nil
}

func (d *Device) publish(ctx context.Context, stream string, msg depthai.Message) error {

	q, err := d.Output(stream)

	if err != nil {
		return err
	}

	return q.Send(ctx, msg)
}
