package depthai

import (
	"errors"
	"fmt"
)

// ColorResolution is the sensor resolution of the color camera
type ColorResolution int

const (
	Color1080P ColorResolution = 0
	Color4K    ColorResolution = 1
	Color12MP  ColorResolution = 2
	Color13MP  ColorResolution = 3
)

// String returns a readable name of the resolution
func (r ColorResolution) String() string {
	switch r {
	case Color1080P:
		return "1080p"
	case Color4K:
		return "4k"
	case Color12MP:
		return "12mp"
	case Color13MP:
		return "13mp"
	default:
		return fmt.Sprintf("unknown color resolution %d", r)
	}
}

// MonoResolution is the sensor resolution of the stereo mono cameras
type MonoResolution int

const (
	Mono400P MonoResolution = 0
	Mono720P MonoResolution = 1
	Mono800P MonoResolution = 2
	Mono480P MonoResolution = 3
)

// String returns a readable name of the resolution
func (r MonoResolution) String() string {
	switch r {
	case Mono400P:
		return "400p"
	case Mono720P:
		return "720p"
	case Mono800P:
		return "800p"
	case Mono480P:
		return "480p"
	default:
		return fmt.Sprintf("unknown mono resolution %d", r)
	}
}

// ColorOrder is the channel order of color camera output
type ColorOrder int

const (
	OrderBGR ColorOrder = 0
	OrderRGB ColorOrder = 1
)

// String returns a readable name of the color order
func (o ColorOrder) String() string {
	switch o {
	case OrderBGR:
		return "BGR"
	case OrderRGB:
		return "RGB"
	default:
		return fmt.Sprintf("unknown color order %d", o)
	}
}

// MedianFilter is the stereo depth median filter kernel
type MedianFilter int

const (
	MedianOff MedianFilter = 0
	Median3x3 MedianFilter = 1
	Median5x5 MedianFilter = 2
	Median7x7 MedianFilter = 3
)

// String returns a readable name of the filter
func (m MedianFilter) String() string {
	switch m {
	case MedianOff:
		return "off"
	case Median3x3:
		return "3x3"
	case Median5x5:
		return "5x5"
	case Median7x7:
		return "7x7"
	default:
		return fmt.Sprintf("unknown median filter %d", m)
	}
}

// PipelineConfig describes the device pipeline.  Zero values disable the
// corresponding sub-pipeline, eg: a ConfidenceThreshold of 0 means no stereo
// depth stream is created
type PipelineConfig struct {
	// DeviceID selects a device by MX ID, empty or "NONE" picks the first
	// available device
	DeviceID string `mapstructure:"device_id"`
	// DeviceNum is the index the device session is registered under
	DeviceNum int `mapstructure:"device_num"`

	// PreviewWidth and PreviewHeight are the color camera preview size, the
	// preview stream is only created when both are positive
	PreviewWidth  int `mapstructure:"preview_width"`
	PreviewHeight int `mapstructure:"preview_height"`
	// ColorResolution of the color camera sensor
	ColorResolution ColorResolution `mapstructure:"color_resolution"`
	// ColorFPS is the color camera frame rate
	ColorFPS float32 `mapstructure:"color_fps"`
	// Interleaved selects interleaved over planar preview output
	Interleaved bool `mapstructure:"interleaved"`
	// ColorOrder of the preview output
	ColorOrder ColorOrder `mapstructure:"color_order"`

	// NNPath1 is the face detection model, NNPath2 the emotion model
	NNPath1 string `mapstructure:"nn_path1"`
	NNPath2 string `mapstructure:"nn_path2"`

	// ConfidenceThreshold of the stereo matcher in range 0-255
	ConfidenceThreshold int  `mapstructure:"confidence_threshold"`
	LeftRightCheck      bool `mapstructure:"left_right_check"`
	Subpixel            bool `mapstructure:"subpixel"`
	// DepthAlign aligns depth to the color camera when positive
	DepthAlign          int            `mapstructure:"depth_align"`
	MedianFilter        MedianFilter   `mapstructure:"median_filter"`
	MonoLeftResolution  MonoResolution `mapstructure:"mono_left_resolution"`
	MonoRightResolution MonoResolution `mapstructure:"mono_right_resolution"`

	// ISPScaleNum/ISPScaleDen downscale the color ISP output for RGB-depth
	// alignment
	ISPScaleNum int `mapstructure:"isp_scale_num"`
	ISPScaleDen int `mapstructure:"isp_scale_den"`
	ManualFocus int `mapstructure:"manual_focus"`

	// Rate is the system information update rate in Hz
	Rate float32 `mapstructure:"rate"`

	// Freq is the IMU rotation vector rate in Hz
	Freq                 int `mapstructure:"freq"`
	BatchReportThreshold int `mapstructure:"batch_report_threshold"`
	MaxBatchReports      int `mapstructure:"max_batch_reports"`
}

// DefaultPipelineConfig returns the settings used by the face emotion demo
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		DeviceID:             "NONE",
		PreviewWidth:         300,
		PreviewHeight:        300,
		ColorResolution:      Color1080P,
		ColorFPS:             30,
		Interleaved:          true,
		ColorOrder:           OrderBGR,
		ConfidenceThreshold:  230,
		LeftRightCheck:       true,
		DepthAlign:           1,
		MedianFilter:         Median7x7,
		MonoLeftResolution:   Mono400P,
		MonoRightResolution:  Mono400P,
		Rate:                 1,
		Freq:                 400,
		BatchReportThreshold: 1,
		MaxBatchReports:      10,
	}
}

// HasStream reports if the pipeline described by the config produces or
// consumes the named stream
func (c PipelineConfig) HasStream(name string) bool {

	switch name {
	case StreamPreview:
		return c.PreviewWidth > 0 && c.PreviewHeight > 0
	case StreamDetections, StreamStage2In, StreamStage2Out:
		return true
	case StreamDepth:
		return c.ConfidenceThreshold > 0
	case StreamSysInfo:
		return c.Rate > 0
	case StreamIMU:
		return c.Freq > 0
	default:
		return false
	}
}

// Streams returns the names of all streams the pipeline exposes
func (c PipelineConfig) Streams() []string {

	all := []string{StreamPreview, StreamDetections, StreamStage2In,
		StreamStage2Out, StreamDepth, StreamSysInfo, StreamIMU}

	out := make([]string, 0, len(all))

	for _, name := range all {
		if c.HasStream(name) {
			out = append(out, name)
		}
	}

	return out
}

// Validate checks the configuration values are usable
func (c PipelineConfig) Validate() error {

	var errs []error

	if c.PreviewWidth < 0 || c.PreviewHeight < 0 {
		errs = append(errs, fmt.Errorf("preview size %dx%d must not be negative",
			c.PreviewWidth, c.PreviewHeight))
	}

	if c.ColorFPS <= 0 {
		errs = append(errs, fmt.Errorf("color fps %.1f must be positive", c.ColorFPS))
	}

	if c.ColorResolution < Color1080P || c.ColorResolution > Color13MP {
		errs = append(errs, fmt.Errorf("invalid color resolution %d", c.ColorResolution))
	}

	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 255 {
		errs = append(errs, fmt.Errorf("confidence threshold %d outside range 0-255",
			c.ConfidenceThreshold))
	}

	if c.MedianFilter < MedianOff || c.MedianFilter > Median7x7 {
		errs = append(errs, fmt.Errorf("invalid median filter %d", c.MedianFilter))
	}

	if (c.ISPScaleNum > 0) != (c.ISPScaleDen > 0) {
		errs = append(errs, errors.New("isp scale requires both numerator and denominator"))
	}

	if c.NNPath1 == "" {
		errs = append(errs, errors.New("face detection model path nn_path1 not set"))
	}

	if c.NNPath2 == "" {
		errs = append(errs, errors.New("emotion model path nn_path2 not set"))
	}

	if c.Freq < 0 || c.Rate < 0 {
		errs = append(errs, errors.New("imu freq and sysinfo rate must not be negative"))
	}

	return errors.Join(errs...)
}
