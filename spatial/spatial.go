// Package spatial computes 3D coordinates of a point in the preview frame
// from the device's raw stereo depth map.
package spatial

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/swdee/go-depthai-lite"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Algorithm selects how depth samples in the ROI are reduced to a single
// depth value
type Algorithm int

const (
	Average Algorithm = 0
	Median  Algorithm = 1
	Min     Algorithm = 2
	Max     Algorithm = 3
)

// String returns the name of the algorithm
func (a Algorithm) String() string {
	switch a {
	case Average:
		return "average"
	case Median:
		return "median"
	case Min:
		return "min"
	case Max:
		return "max"
	default:
		return fmt.Sprintf("unknown algorithm %d", a)
	}
}

// Params are the settings used by Calculate
type Params struct {
	// Delta is the half size in pixels of the ROI around the point
	Delta int `mapstructure:"delta"`
	// LowerThreshold and UpperThreshold in millimetres bound valid depth
	// samples
	LowerThreshold uint16 `mapstructure:"lower_threshold"`
	UpperThreshold uint16 `mapstructure:"upper_threshold"`
	// HFOV is the horizontal field of view of the depth camera in degrees
	HFOV float64 `mapstructure:"hfov"`
	// Algorithm reduces ROI samples to one depth
	Algorithm Algorithm `mapstructure:"algorithm"`
}

// DefaultParams returns params suitable for the OAK-D stereo pair
func DefaultParams() Params {
	return Params{
		Delta:          5,
		LowerThreshold: 200,
		UpperThreshold: 30000,
		HFOV:           71.86,
		Algorithm:      Average,
	}
}

// DepthMap is a raw depth frame in millimetres
type DepthMap struct {
	Width  int
	Height int
	Data   []uint16
}

// FromFrame converts a RAW16 ImgFrame to a DepthMap
func FromFrame(f *depthai.ImgFrame) (DepthMap, error) {

	if f.Type != depthai.RAW16 {
		return DepthMap{}, fmt.Errorf("depth frame must be RAW16, got %s", f.Type)
	}

	if err := f.Validate(); err != nil {
		return DepthMap{}, err
	}

	n := f.Width * f.Height
	data := make([]uint16, n)

	for i := 0; i < n; i++ {
		data[i] = binary.LittleEndian.Uint16(f.Data[i*2:])
	}

	return DepthMap{Width: f.Width, Height: f.Height, Data: data}, nil
}

// At returns the depth at pixel x,y
func (d DepthMap) At(x, y int) uint16 {
	return d.Data[y*d.Width+x]
}

// Coordinate is a point in 3D space relative to the camera in millimetres
type Coordinate struct {
	X int `json:"X"`
	Y int `json:"Y"`
	Z int `json:"Z"`
}

// Result is the outcome of a spatial calculation
type Result struct {
	// ROI is the region of the depth map the samples were taken from, in
	// depth map pixel coordinates
	ROI image.Rectangle
	// Samples is the number of valid depth values found in the ROI
	Samples int
	// Coordinate of the point
	Coordinate Coordinate
}

// Calculate returns the spatial coordinate of the point center given in
// preview frame coordinates.  The point is scaled into the depth map, an ROI
// of +/- Delta pixels is sampled, and depth values outside the thresholds
// are ignored.  False is returned when the ROI holds no valid depth
func Calculate(center image.Point, previewW, previewH int, depth DepthMap,
	p Params) (Result, bool) {

	if depth.Width <= 0 || depth.Height <= 0 || previewW <= 0 || previewH <= 0 {
		return Result{}, false
	}

	// scale point from preview to depth frame
	dx := center.X * depth.Width / previewW
	dy := center.Y * depth.Height / previewH

	roi := image.Rect(dx-p.Delta, dy-p.Delta, dx+p.Delta, dy+p.Delta).
		Intersect(image.Rect(0, 0, depth.Width, depth.Height))

	if roi.Empty() {
		return Result{}, false
	}

	samples := make([]float64, 0, roi.Dx()*roi.Dy())

	for y := roi.Min.Y; y < roi.Max.Y; y++ {
		for x := roi.Min.X; x < roi.Max.X; x++ {
			v := depth.At(x, y)

			if v >= p.LowerThreshold && v <= p.UpperThreshold {
				samples = append(samples, float64(v))
			}
		}
	}

	if len(samples) == 0 {
		return Result{}, false
	}

	z := reduce(samples, p.Algorithm)

	// centroid of the ROI relative to the depth frame center
	midX := float64(roi.Min.X+roi.Max.X) / 2
	midY := float64(roi.Min.Y+roi.Max.Y) / 2
	bbX := midX - float64(depth.Width)/2
	bbY := midY - float64(depth.Height)/2

	angleX := angle(bbX, depth.Width, p.HFOV)
	angleY := angle(bbY, depth.Width, p.HFOV)

	return Result{
		ROI:     roi,
		Samples: len(samples),
		Coordinate: Coordinate{
			X: int(z * math.Tan(angleX)),
			Y: int(-z * math.Tan(angleY)),
			Z: int(z),
		},
	}, true
}

// angle returns the angle in radians of an offset from the image center.
// Both axis use the horizontal field of view as the depth pixels are square
func angle(offset float64, width int, hfovDeg float64) float64 {
	hfov := hfovDeg * math.Pi / 180
	return math.Atan(math.Tan(hfov/2) * offset / (float64(width) / 2))
}

// reduce the samples to a single depth value
func reduce(samples []float64, a Algorithm) float64 {

	switch a {
	case Median:
		sort.Float64s(samples)
		return stat.Quantile(0.5, stat.Empirical, samples, nil)
	case Min:
		return floats.Min(samples)
	case Max:
		return floats.Max(samples)
	default:
		return stat.Mean(samples, nil)
	}
}
