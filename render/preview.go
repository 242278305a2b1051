package render

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
)

// WriteARGB scales the BGR preview frame to width x height and writes it to
// dst as A,R,G,B bytes per pixel
func WriteARGB(src gocv.Mat, dst []byte, width, height int) error {

	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid ARGB size %dx%d", width, height)
	}

	need := width * height * 4

	if len(dst) < need {
		return fmt.Errorf("ARGB buffer has %d bytes, need %d", len(dst), need)
	}

	if src.Empty() {
		return fmt.Errorf("preview frame is empty")
	}

	img, err := src.ToImage()

	if err != nil {
		return fmt.Errorf("error converting preview to image: %w", err)
	}

	scaled := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)

	for i := 0; i < width*height; i++ {
		px := scaled.Pix[i*4 : i*4+4]
		dst[i*4] = px[3]
		dst[i*4+1] = px[0]
		dst[i*4+2] = px[1]
		dst[i*4+3] = px[2]
	}

	return nil
}
