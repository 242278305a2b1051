package preprocess

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// DefaultStage2Size is the square input size of the emotion recognition
// network
const DefaultStage2Size = 64

// Resizer defines the struct used for letterbox resizing an image to a
// network's input size.  The source size can change between calls, eg: the
// face crop differs every frame, so the scaling factors are recalculated on
// Reset
type Resizer struct {
	// srcWidth is the width of the source image
	srcWidth int
	// srcHeight is the height of the source image
	srcHeight int
	// destWidth is the width to scale to
	destWidth int
	// destHeight is the height to scale to
	destHeight int
	// tempMat holds the scaled image before padding is applied
	tempMat gocv.Mat
	// letterbox parameters used in scaling
	xPad  int
	yPad  int
	scale float32
	// resize dimensions
	resizeW int
	resizeH int
}

// NewResizer returns a resizer scaling images of the source size to the
// destination size
func NewResizer(srcWidth, srcHeight, destWidth, destHeight int) *Resizer {
	r := &Resizer{
		destWidth:  destWidth,
		destHeight: destHeight,
		tempMat:    gocv.NewMat(),
	}

	r.Reset(srcWidth, srcHeight)

	return r
}

// Close frees memory allocated during resize process
func (r *Resizer) Close() error {
	return r.tempMat.Close()
}

// Reset changes the source image size and recalculates the scaling factors
func (r *Resizer) Reset(srcWidth, srcHeight int) {
	r.srcWidth = srcWidth
	r.srcHeight = srcHeight
	r.preCalc()
}

// preCalc the scaling factors for source and destination Mats
func (r *Resizer) preCalc() {

	r.resizeW = r.destWidth
	r.resizeH = r.destHeight
	r.xPad = 0
	r.yPad = 0
	r.scale = 0

	if r.srcWidth <= 0 || r.srcHeight <= 0 {
		return
	}

	scaleW := float32(r.destWidth) / float32(r.srcWidth)
	scaleH := float32(r.destHeight) / float32(r.srcHeight)
	r.scale = scaleH

	if scaleW < scaleH {
		r.scale = scaleW
		r.resizeH = int(float32(r.srcHeight) * r.scale)
	} else {
		r.resizeW = int(float32(r.srcWidth) * r.scale)
	}

	// a very thin source must still scale to at least one pixel
	if r.resizeW < 1 {
		r.resizeW = 1
	}

	if r.resizeH < 1 {
		r.resizeH = 1
	}

	r.yPad = (r.destHeight - r.resizeH) / 2 // padding height / 2
	r.xPad = (r.destWidth - r.resizeW) / 2  // padding width / 2
}

// LetterBoxResize resizes the input image to the destination size whilst
// maintaining image aspect.  Fill is the color used for letter box padding.
// If src does not match the size the Resizer was set up with it is Reset
// first
func (r *Resizer) LetterBoxResize(src gocv.Mat, dest *gocv.Mat, fill color.RGBA) {

	if src.Cols() != r.srcWidth || src.Rows() != r.srcHeight {
		r.Reset(src.Cols(), src.Rows())
	}

	gocv.Resize(src, &r.tempMat, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(r.tempMat, dest, r.yPad, r.destHeight-r.resizeH-r.yPad,
		r.xPad, r.destWidth-r.resizeW-r.xPad, gocv.BorderConstant, fill)
}

// ScaleFactor returns the scale factor used in letterbox resize
func (r *Resizer) ScaleFactor() float32 {
	return r.scale
}

// XPad returns the x padding used in letterbox resize
func (r *Resizer) XPad() int {
	return r.xPad
}

// YPad returns the y padding used in letterbox resize
func (r *Resizer) YPad() int {
	return r.yPad
}

