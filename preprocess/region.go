package preprocess

import (
	"image"

	"github.com/swdee/go-depthai-lite/postprocess"
	"gocv.io/x/gocv"
)

// DefaultWorkingSize is the largest extent in pixels of a face crop passed
// to the second stage network
const DefaultWorkingSize = 300

// RegionParams defines the parameters used to derive a face crop from a
// detection
type RegionParams struct {
	// Ceiling bounds the crop rectangle to [0,Ceiling] on both axis
	Ceiling int
}

// DefaultRegionParams returns params using DefaultWorkingSize
func DefaultRegionParams() RegionParams {
	return RegionParams{
		Ceiling: DefaultWorkingSize,
	}
}

// Region is a detection mapped into preview frame pixel space
type Region struct {
	// Pixel is the detection box scaled to the frame without clamping
	Pixel postprocess.BoxRect
	// Center is the midpoint of the Pixel box
	Center image.Point
	// Crop is the rectangle to cut out of the frame for the second stage
	Crop postprocess.BoxRect
	// Clamped is true if Crop had to be bounded to the working size
	Clamped bool
}

// Degenerate reports if the crop has no area
func (r Region) Degenerate() bool {
	return r.Crop.Width() <= 0 || r.Crop.Height() <= 0
}

// Rect returns the crop as an image.Rectangle
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.Crop.Left, r.Crop.Top, r.Crop.Right, r.Crop.Bottom)
}

// ExtractRegion maps a normalized box into a frame of the given size.  When
// the pixel box lies within [0,Ceiling) it is used as the crop unchanged,
// otherwise each coordinate is clamped independently into [0,Ceiling]
func ExtractRegion(box postprocess.NormBox, frameW, frameH int, p RegionParams) Region {

	px := box.ToPixels(frameW, frameH)

	r := Region{
		Pixel: px,
		Center: image.Pt(
			px.Left+(px.Right-px.Left)/2,
			px.Top+(px.Bottom-px.Top)/2,
		),
		Crop: px,
	}

	if px.Left > 0 && px.Top > 0 && px.Right < p.Ceiling && px.Bottom < p.Ceiling {
		return r
	}

	r.Clamped = true
	r.Crop = postprocess.BoxRect{
		Left:   clampInt(px.Left, 0, p.Ceiling),
		Top:    clampInt(px.Top, 0, p.Ceiling),
		Right:  clampInt(px.Right, 0, p.Ceiling),
		Bottom: clampInt(px.Bottom, 0, p.Ceiling),
	}

	return r
}

// clampInt restricts val to the range min and max
func clampInt(val, min, max int) int {

	if val < min {
		return min
	}

	if val > max {
		return max
	}

	return val
}

// CropFrame returns a view of the frame covering the region's crop, limited
// to the frame bounds.  The returned Mat shares memory with frame and must be
// closed by the caller.  False is returned when nothing remains to crop
func CropFrame(frame gocv.Mat, r Region) (gocv.Mat, bool) {

	if r.Degenerate() || frame.Empty() {
		return gocv.Mat{}, false
	}

	rect := r.Rect().Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))

	if rect.Empty() {
		return gocv.Mat{}, false
	}

	return frame.Region(rect), true
}
