package hostdevice

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"gocv.io/x/gocv"
)

// Source provides color frames to the host device
type Source interface {
	// Read the next frame into dst, false when no frame is available
	Read(dst *gocv.Mat) bool
	Close() error
}

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
}

// OpenSource opens a camera when src is a device index, repeats a still
// image for image files, and otherwise plays src as a video file
func OpenSource(src string, loop bool) (Source, error) {

	if id, err := strconv.Atoi(src); err == nil {
		cam, err := gocv.OpenVideoCapture(id)

		if err != nil {
			return nil, fmt.Errorf("error opening camera %d: %w", id, err)
		}

		return cam, nil
	}

	if imageExts[strings.ToLower(filepath.Ext(src))] {
		return NewImageSource(src)
	}

	video, err := gocv.VideoCaptureFile(src)

	if err != nil {
		return nil, fmt.Errorf("error opening video file %s: %w", src, err)
	}

	return &videoSource{video: video, loop: loop}, nil
}

// ImageSource returns the same still image on every read
type ImageSource struct {
	img gocv.Mat
}

// NewImageSource loads an image file
func NewImageSource(file string) (*ImageSource, error) {

	img := gocv.IMRead(file, gocv.IMReadColor)

	if img.Empty() {
		return nil, fmt.Errorf("error reading image %s", file)
	}

	return &ImageSource{img: img}, nil
}

// Read implements Source
func (s *ImageSource) Read(dst *gocv.Mat) bool {
	s.img.CopyTo(dst)
	return true
}

// Close implements Source
func (s *ImageSource) Close() error {
	return s.img.Close()
}

// videoSource plays a video file, rewinding at the end when looping
type videoSource struct {
	video *gocv.VideoCapture
	loop  bool
}

func (s *videoSource) Read(dst *gocv.Mat) bool {

	if s.video.Read(dst) && !dst.Empty() {
		return true
	}

	if !s.loop {
		return false
	}

	s.video.Set(gocv.VideoCapturePosFrames, 0)

	return s.video.Read(dst) && !dst.Empty()
}

func (s *videoSource) Close() error {
	return s.video.Close()
}
