package preprocess

import (
	"fmt"

	"gocv.io/x/gocv"
)

// ToPlanar converts an interleaved 8 bit Mat (HWC) to a planar byte buffer
// (CHW) as expected by the device neural network input
func ToPlanar(src gocv.Mat) []byte {

	channels := gocv.Split(src)

	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()

	plane := src.Rows() * src.Cols()
	out := make([]byte, 0, plane*len(channels))

	for _, c := range channels {
		out = append(out, c.ToBytes()...)
	}

	return out
}

// FromPlanar converts a planar byte buffer (CHW) back to an interleaved 8 bit
// Mat (HWC).  The caller must close the returned Mat
func FromPlanar(data []byte, width, height, channels int) (gocv.Mat, error) {

	plane := width * height

	if width <= 0 || height <= 0 || channels <= 0 {
		return gocv.Mat{}, fmt.Errorf("invalid planar dimensions %dx%dx%d",
			width, height, channels)
	}

	if len(data) < plane*channels {
		return gocv.Mat{}, fmt.Errorf("planar buffer has %d bytes, need %d",
			len(data), plane*channels)
	}

	mats := make([]gocv.Mat, 0, channels)

	defer func() {
		for _, m := range mats {
			m.Close()
		}
	}()

	for c := 0; c < channels; c++ {
		m, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC1,
			data[c*plane:(c+1)*plane])

		if err != nil {
			return gocv.Mat{}, fmt.Errorf("error creating channel %d: %w", c, err)
		}

		mats = append(mats, m)
	}

	dst := gocv.NewMat()
	gocv.Merge(mats, &dst)

	return dst, nil
}
