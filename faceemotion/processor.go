// Package faceemotion fuses the face detection, emotion recognition, depth
// and telemetry streams of a device session into a single JSON result per
// poll.
package faceemotion

import (
	"context"
	"image"
	"image/color"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/swdee/go-depthai-lite"
	"github.com/swdee/go-depthai-lite/postprocess"
	"github.com/swdee/go-depthai-lite/preprocess"
	"github.com/swdee/go-depthai-lite/render"
	"github.com/swdee/go-depthai-lite/spatial"
	"github.com/swdee/go-depthai-lite/telemetry"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Params are the processor settings fixed for its lifetime
type Params struct {
	// WorkingSize bounds the face crop to [0,WorkingSize] on both axis
	WorkingSize int `mapstructure:"working_size"`
	// Stage2Size is the square input size of the emotion network
	Stage2Size int `mapstructure:"stage2_size"`
	// Stage2Timeout bounds the wait for an emotion reply, 0 waits forever
	Stage2Timeout time.Duration `mapstructure:"stage2_timeout"`
	// Fill is the letterbox padding color
	Fill color.RGBA `mapstructure:"-"`
	// Spatial configures depth correlation
	Spatial spatial.Params `mapstructure:"spatial"`
	// Labels are the class names of the detection network
	Labels []string `mapstructure:"labels"`
}

// DefaultParams returns the settings for the face-detection-retail-0004 and
// emotions-recognition-retail-0003 networks
func DefaultParams() Params {
	return Params{
		WorkingSize:   preprocess.DefaultWorkingSize,
		Stage2Size:    preprocess.DefaultStage2Size,
		Stage2Timeout: time.Second,
		Fill:          color.RGBA{R: 0, G: 0, B: 0, A: 255},
		Spatial:       spatial.DefaultParams(),
		Labels:        []string{"background", "face"},
	}
}

// Options are the per poll flags supplied by the caller
type Options struct {
	// GetPreview copies the preview frame into Preview as ARGB
	GetPreview bool `mapstructure:"get_preview"`
	// Width and Height of the ARGB copy
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
	// Preview is the caller owned ARGB buffer, at least Width*Height*4 bytes
	Preview []byte `mapstructure:"-"`
	// DrawBestFace outlines the best face on the preview
	DrawBestFace bool `mapstructure:"draw_best_face"`
	// DrawAllFaces outlines every retained detection on the preview
	DrawAllFaces bool `mapstructure:"draw_all_faces"`
	// ScoreThreshold is the minimum detection score kept
	ScoreThreshold float32 `mapstructure:"score_threshold"`
	// UseDepth adds X,Y,Z coordinates to the best face
	UseDepth bool `mapstructure:"use_depth"`
	// RetrieveInformation adds device system information
	RetrieveInformation bool `mapstructure:"retrieve_information"`
	// UseIMU adds the latest IMU rotation vector
	UseIMU bool `mapstructure:"use_imu"`
}

// Processor runs the fusion pipeline.  Polls on different sessions may run
// concurrently, a single session must only be polled by one caller at a time
type Processor struct {
	params    Params
	newBridge BridgeFactory
	font      render.Font
	log       *zap.Logger

	mu      sync.Mutex
	sources map[uuid.UUID]*telemetry.QueueSource
}

// ProcessorOption configures optional Processor settings
type ProcessorOption func(*Processor)

// WithBridgeFactory replaces the queue backed second stage bridge
func WithBridgeFactory(f BridgeFactory) ProcessorOption {
	return func(p *Processor) {
		if f != nil {
			p.newBridge = f
		}
	}
}

// WithLogger sets the logger used by the processor
func WithLogger(log *zap.Logger) ProcessorOption {
	return func(p *Processor) {
		if log != nil {
			p.log = log
		}
	}
}

// NewProcessor returns a processor using the given params
func NewProcessor(params Params, opts ...ProcessorOption) *Processor {

	p := &Processor{
		params:    params,
		newBridge: NewQueueBridge,
		font:      render.DefaultFont(),
		log:       zap.NewNop(),
		sources:   make(map[uuid.UUID]*telemetry.QueueSource),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Poll runs Results on the session registered under deviceNum
func (p *Processor) Poll(ctx context.Context, reg *depthai.Registry,
	deviceNum int, opt Options) string {

	sess, ok := reg.Get(deviceNum)

	if !ok {
		return ErrorResult(NoDevice)
	}

	return p.Results(ctx, sess, opt)
}

// Results samples the newest messages on the session streams and returns the
// fused result as JSON.  Errors are returned as {"error":"KIND"} objects
func (p *Processor) Results(ctx context.Context, sess *depthai.Session,
	opt Options) string {

	if err := sess.Check(); err != nil {
		return ErrorResult(KindOf(err))
	}

	start := time.Now()
	log := p.log.With(zap.String("session", sess.ID().String()),
		zap.String("device", sess.Device().ID()))

	res, err := p.fuse(ctx, sess, opt, log)

	if err != nil {
		kind := KindOf(err)

		if kind == Stage2Timeout {
			log.Warn("Emotion network did not reply", zap.Error(err))
		} else {
			log.Error("Poll failed", zap.Error(err))
		}

		return ErrorResult(kind)
	}

	snap := telemetry.Merge(p.source(sess), opt.RetrieveInformation, opt.UseIMU)
	res.SysInfo = snap.SysInfo
	res.IMU = snap.IMU
	res.WantSys = opt.RetrieveInformation
	res.WantIMU = opt.UseIMU

	out, err := res.Marshal()

	if err != nil {
		log.Error("Error serializing result", zap.Error(err))
		return ErrorResult(Internal)
	}

	log.Debug("Poll complete", zap.Duration("took", time.Since(start)),
		zap.Bool("face", res.Best != nil), zap.Bool("emotion", res.Emotion != nil))

	return out
}

// fuse runs the face pipeline: sample, decode, crop, second stage, depth and
// preview drawing
func (p *Processor) fuse(ctx context.Context, sess *depthai.Session,
	opt Options, log *zap.Logger) (Result, error) {

	var res Result

	frame := latest[*depthai.ImgFrame](sess, depthai.StreamPreview)
	det := latest[*depthai.NNData](sess, depthai.StreamDetections)

	var depthFrame *depthai.ImgFrame

	if opt.UseDepth {
		depthFrame = latest[*depthai.ImgFrame](sess, depthai.StreamDepth)
	}

	var (
		preview     gocv.Mat
		havePreview bool
	)

	if frame != nil {
		mat, err := preprocess.FrameToMat(frame)

		if err != nil {
			log.Warn("Dropped invalid preview frame", zap.Error(err))
		} else {
			preview = mat
			havePreview = true
			defer preview.Close()
		}
	}

	frameW, frameH := sess.Config().PreviewWidth, sess.Config().PreviewHeight

	if havePreview {
		frameW, frameH = preview.Cols(), preview.Rows()
	}

	if det != nil {
		dets := postprocess.DecodeDetections(det.FirstLayerFp16(), opt.ScoreThreshold)

		var (
			bestBox  image.Rectangle
			drawBest bool
		)

		if best, ok := dets.Best(); ok {
			region := preprocess.ExtractRegion(best.Box, frameW, frameH,
				preprocess.RegionParams{Ceiling: p.params.WorkingSize})

			res.Best = NewBestFace(best, region)

			if !region.Degenerate() && havePreview {

				emotion, err := p.classify(ctx, sess, preview, region)

				if err != nil {
					return Result{}, err
				}

				res.Emotion = emotion

				if depthFrame != nil {
					res.Best.Coordinate = p.correlate(depthFrame, region, frameW, frameH, log)
				}

				if opt.DrawBestFace {
					bestBox = region.Rect()
					drawBest = true
				}
			}
		}

		// the best face is drawn last so its emotion caption stays on top
		if havePreview && opt.DrawAllFaces {
			render.DetectionBoxes(&preview, dets.Detections, p.params.Labels, p.font, 1)
		}

		if drawBest {
			render.BestFaceBox(&preview, bestBox, res.Emotion, p.font)
		}
	}

	if havePreview && opt.GetPreview {
		if err := render.WriteARGB(preview, opt.Preview, opt.Width, opt.Height); err != nil {
			log.Warn("Error writing preview", zap.Error(err))
		}
	}

	return res, nil
}

// classify crops the face and runs it through the second stage network
func (p *Processor) classify(ctx context.Context, sess *depthai.Session,
	preview gocv.Mat, region preprocess.Region) (*postprocess.EmotionVector, error) {

	crop, ok := preprocess.CropFrame(preview, region)

	if !ok {
		return nil, nil
	}

	defer crop.Close()

	bridge, err := p.newBridge(sess, p.params)

	if err != nil {
		return nil, err
	}

	if c, ok := bridge.(io.Closer); ok {
		defer c.Close()
	}

	return bridge.Infer(ctx, crop)
}

// correlate returns the spatial coordinate of the face center or nil when
// the depth frame has no valid samples there
func (p *Processor) correlate(f *depthai.ImgFrame, region preprocess.Region,
	frameW, frameH int, log *zap.Logger) *spatial.Coordinate {

	depth, err := spatial.FromFrame(f)

	if err != nil {
		log.Warn("Dropped invalid depth frame", zap.Error(err))
		return nil
	}

	sp, ok := spatial.Calculate(region.Center, frameW, frameH, depth, p.params.Spatial)

	if !ok {
		return nil
	}

	return &sp.Coordinate
}

// source returns the telemetry source of the session, kept across polls so
// the last known values are reported between device updates
func (p *Processor) source(sess *depthai.Session) telemetry.Source {
	p.mu.Lock()
	defer p.mu.Unlock()

	src, ok := p.sources[sess.ID()]

	if !ok {
		src = telemetry.NewQueueSource(sess)
		p.sources[sess.ID()] = src
	}

	return src
}

// Forget drops the cached state of a session that has been closed
func (p *Processor) Forget(sess *depthai.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sources, sess.ID())
}

// latest returns the newest message of type T on the named stream, or the
// zero value when the stream is absent or empty
func latest[T depthai.Message](sess *depthai.Session, name string) T {

	var zero T

	q, err := sess.OutputQueue(name)

	if err != nil {
		return zero
	}

	m, ok := depthai.Latest[T](q)

	if !ok {
		return zero
	}

	return m
}
