package faceemotion

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/swdee/go-depthai-lite"
	"github.com/swdee/go-depthai-lite/postprocess"
	"github.com/swdee/go-depthai-lite/preprocess"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Bridge runs the second stage emotion network on a face crop
type Bridge interface {
	// Infer returns the emotion vector of the crop.  A nil vector with a nil
	// error means the network replied with too few values
	Infer(ctx context.Context, crop gocv.Mat) (*postprocess.EmotionVector, error)
}

// BridgeFactory creates the Bridge used for a session
type BridgeFactory func(sess *depthai.Session, p Params) (Bridge, error)

// QueueBridge sends face crops to the device over the landm_in stream and
// waits for the matching reply on landm_out.  Only one request is in flight
// at a time
type QueueBridge struct {
	in      depthai.InputQueue
	out     depthai.OutputQueue
	seq     *depthai.SequenceGenerator
	fill    color.RGBA
	timeout time.Duration
	resizer *preprocess.Resizer
	log     *zap.Logger
}

// NewQueueBridge returns a bridge over the session's second stage streams
func NewQueueBridge(sess *depthai.Session, p Params) (Bridge, error) {

	in, err := sess.InputQueue(depthai.StreamStage2In)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStage2Failed, err)
	}

	out, err := sess.OutputQueue(depthai.StreamStage2Out)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStage2Failed, err)
	}

	return &QueueBridge{
		in:      in,
		out:     out,
		seq:     sess.Sequence(),
		fill:    p.Fill,
		timeout: p.Stage2Timeout,
		resizer: preprocess.NewResizer(p.Stage2Size, p.Stage2Size,
			p.Stage2Size, p.Stage2Size),
		log: sess.Logger(),
	}, nil
}

// Close frees the resize buffers
func (b *QueueBridge) Close() error {
	return b.resizer.Close()
}

// Infer implements Bridge
func (b *QueueBridge) Infer(ctx context.Context, crop gocv.Mat) (*postprocess.EmotionVector, error) {

	resized := gocv.NewMat()
	defer resized.Close()

	b.resizer.LetterBoxResize(crop, &resized, b.fill)
	tensor := preprocess.ToPlanar(resized)

	// replies to earlier requests that timed out are stale
	if stale := b.out.TryGetAll(); len(stale) > 0 {
		b.log.Debug("Discarded stale second stage replies", zap.Int("count", len(stale)))
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	seq := b.seq.Next()

	if err := b.in.Send(ctx, &depthai.Buffer{Data: tensor, Seq: seq}); err != nil {
		return nil, b.wrapErr(seq, "send", err)
	}

	for {
		msg, err := b.out.Get(ctx)

		if err != nil {
			return nil, b.wrapErr(seq, "receive", err)
		}

		nn, ok := msg.(*depthai.NNData)

		if !ok || nn.Seq != seq {
			b.log.Debug("Skipped unmatched second stage reply",
				zap.Int64("want", seq), zap.Int64("got", msg.SequenceNum()))
			continue
		}

		emotion, ok := postprocess.DecodeEmotion(nn.FirstLayerFp16())

		if !ok {
			return nil, nil
		}

		return emotion, nil
	}
}

// wrapErr classifies a queue error as a timeout or failure
func (b *QueueBridge) wrapErr(seq int64, op string, err error) error {

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s seq %d after %s", ErrStage2Timeout, op, seq, b.timeout)
	}

	return fmt.Errorf("%w: %s seq %d: %w", ErrStage2Failed, op, seq, err)
}
