package depthai

import (
	"fmt"
	"time"
)

// Message is a single item carried on a device queue
type Message interface {
	// SequenceNum is the sequence number assigned by the producer of the
	// message.  Neural network outputs carry the sequence number of the
	// input they were computed from
	SequenceNum() int64
}

// FrameType defines the pixel format of an ImgFrame
type FrameType int

const (
	// BGR888i is 3 channel BGR with interleaved pixels
	BGR888i FrameType = iota
	// BGR888p is 3 channel BGR with planar channels
	BGR888p
	// RGB888i is 3 channel RGB with interleaved pixels
	RGB888i
	// RGB888p is 3 channel RGB with planar channels
	RGB888p
	// RAW16 is single channel little endian uint16, used for depth in millimetres
	RAW16
	// GRAY8 is single channel 8 bit grayscale
	GRAY8
)

// String returns a readable name of the frame type
func (t FrameType) String() string {
	switch t {
	case BGR888i:
		return "BGR888i"
	case BGR888p:
		return "BGR888p"
	case RGB888i:
		return "RGB888i"
	case RGB888p:
		return "RGB888p"
	case RAW16:
		return "RAW16"
	case GRAY8:
		return "GRAY8"
	default:
		return fmt.Sprintf("unknown frame type %d", t)
	}
}

// Channels returns the number of channels for the frame type
func (t FrameType) Channels() int {
	switch t {
	case BGR888i, BGR888p, RGB888i, RGB888p:
		return 3
	default:
		return 1
	}
}

// Planar returns true if the channels are stored one after another rather
// than interleaved per pixel
func (t FrameType) Planar() bool {
	return t == BGR888p || t == RGB888p
}

// BytesPerPixel returns the number of bytes a single pixel occupies across
// all channels
func (t FrameType) BytesPerPixel() int {
	if t == RAW16 {
		return 2
	}

	return t.Channels()
}

// ImgFrame is an image buffer received from a device stream
type ImgFrame struct {
	// Stream is the name of the queue the frame was read from
	Stream string
	// Type is the pixel format
	Type FrameType
	// Width of the image in pixels
	Width int
	// Height of the image in pixels
	Height int
	// Data is the raw pixel buffer
	Data []byte
	// Seq is the device sequence number
	Seq int64
	// Timestamp is the device capture time
	Timestamp time.Time
}

// SequenceNum implements Message
func (f *ImgFrame) SequenceNum() int64 {
	return f.Seq
}

// Validate checks the buffer size matches the frame dimensions
func (f *ImgFrame) Validate() error {

	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("frame %q has invalid dimensions %dx%d",
			f.Stream, f.Width, f.Height)
	}

	want := f.Width * f.Height * f.Type.BytesPerPixel()

	if len(f.Data) < want {
		return fmt.Errorf("frame %q buffer too small for %s %dx%d, have %d bytes, need %d",
			f.Stream, f.Type, f.Width, f.Height, len(f.Data), want)
	}

	return nil
}

// Buffer is a raw tensor sent to a device input queue
type Buffer struct {
	Data []byte
	Seq  int64
}

// SequenceNum implements Message
func (b *Buffer) SequenceNum() int64 {
	return b.Seq
}

// MemoryInfo is the used and total size of a device memory region in bytes
type MemoryInfo struct {
	Used  int64
	Total int64
}

// CPUUsage is the average load of a device CPU in the range [0,1]
type CPUUsage struct {
	Average float32
}

// ChipTemperature holds the device temperature sensors in degrees celsius
type ChipTemperature struct {
	CSS     float32
	MSS     float32
	UPA     float32
	DSS     float32
	Average float32
}

// SystemInformation is the periodic health report emitted on the sysinfo stream
type SystemInformation struct {
	DDRMemoryUsage     MemoryInfo
	CMXMemoryUsage     MemoryInfo
	LeonCSSMemoryUsage MemoryInfo
	LeonMSSMemoryUsage MemoryInfo
	LeonCSSCPUUsage    CPUUsage
	LeonMSSCPUUsage    CPUUsage
	ChipTemperature    ChipTemperature
	Seq                int64
}

// SequenceNum implements Message
func (s *SystemInformation) SequenceNum() int64 {
	return s.Seq
}

// RotationVector is a single IMU rotation vector reading as a quaternion
type RotationVector struct {
	I        float32
	J        float32
	K        float32
	Real     float32
	Accuracy float32
	Seq      int64
}

// IMUData is a batch of IMU packets emitted on the imu stream
type IMUData struct {
	Packets []RotationVector
	Seq     int64
}

// SequenceNum implements Message
func (d *IMUData) SequenceNum() int64 {
	return d.Seq
}
