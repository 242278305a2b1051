package preprocess

import (
	"fmt"

	"github.com/swdee/go-depthai-lite"
	"gocv.io/x/gocv"
)

// FrameToMat converts a device ImgFrame into a gocv Mat.  Color frames are
// always returned as interleaved BGR regardless of the device color order
// and layout, RAW16 frames as CV16UC1 and GRAY8 as CV8UC1.  The caller must
// close the returned Mat
func FrameToMat(f *depthai.ImgFrame) (gocv.Mat, error) {

	if err := f.Validate(); err != nil {
		return gocv.Mat{}, err
	}

	size := f.Width * f.Height * f.Type.BytesPerPixel()
	data := f.Data[:size]

	var (
		mat gocv.Mat
		err error
	)

	switch {
	case f.Type == depthai.RAW16:
		mat, err = gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV16UC1, data)

	case f.Type == depthai.GRAY8:
		mat, err = gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC1, data)

	case f.Type.Planar():
		mat, err = FromPlanar(data, f.Width, f.Height, 3)

	case f.Type == depthai.BGR888i || f.Type == depthai.RGB888i:
		mat, err = gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, data)

	default:
		return gocv.Mat{}, fmt.Errorf("unsupported frame type %s", f.Type)
	}

	if err != nil {
		return gocv.Mat{}, fmt.Errorf("error converting %s frame: %w", f.Type, err)
	}

	if f.Type == depthai.RGB888i || f.Type == depthai.RGB888p {
		bgr := gocv.NewMat()
		gocv.CvtColor(mat, &bgr, gocv.ColorRGBToBGR)
		mat.Close()
		mat = bgr
	}

	return mat, nil
}

// MatToFrame converts an interleaved BGR Mat into an ImgFrame of the given
// type, used by producers publishing preview frames
func MatToFrame(src gocv.Mat, stream string, t depthai.FrameType, seq int64) (*depthai.ImgFrame, error) {

	if src.Empty() || src.Channels() != 3 {
		return nil, fmt.Errorf("expected 3 channel Mat, got %d channels", src.Channels())
	}

	img := src

	if t == depthai.RGB888i || t == depthai.RGB888p {
		rgb := gocv.NewMat()
		defer rgb.Close()
		gocv.CvtColor(src, &rgb, gocv.ColorBGRToRGB)
		img = rgb
	}

	var data []byte

	switch {
	case t.Planar():
		data = ToPlanar(img)
	case t == depthai.BGR888i || t == depthai.RGB888i:
		data = img.ToBytes()
	default:
		return nil, fmt.Errorf("unsupported color frame type %s", t)
	}

	return &depthai.ImgFrame{
		Stream: stream,
		Type:   t,
		Width:  src.Cols(),
		Height: src.Rows(),
		Data:   data,
		Seq:    seq,
	}, nil
}
