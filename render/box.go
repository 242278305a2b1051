package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/swdee/go-depthai-lite/postprocess"
	"gocv.io/x/gocv"
)

// boxLabel holds the precalculated position of a caption drawn above a box
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// DetectionBoxes renders the bounding boxes of all detections on the preview
// frame.  Boxes are normalized so are scaled to the image size
func DetectionBoxes(img *gocv.Mat, dets []postprocess.Detection,
	labels []string, font Font, lineThickness int) {

	boxLabels := make([]boxLabel, 0, len(dets))

	for i, det := range dets {

		box := det.Box.ToPixels(img.Cols(), img.Rows())
		rect := image.Rect(box.Left, box.Top, box.Right, box.Bottom)

		useClr := classColors[i%len(classColors)]
		gocv.Rectangle(img, rect, useClr, lineThickness)

		text := fmt.Sprintf("%s %.2f", labelName(labels, det.Label), det.Score)
		boxLabels = append(boxLabels, placeLabel(rect, text, useClr, font, lineThickness))
	}

	// draw all labels last so they are the top most layer and are not
	// overlapped by neighbouring boxes
	for _, box := range boxLabels {
		drawLabel(img, box, font)
	}
}

// BestFaceBox renders the crop rectangle of the best face in white.  When an
// emotion vector is given the dominant emotion is written above the box
func BestFaceBox(img *gocv.Mat, rect image.Rectangle,
	emotion *postprocess.EmotionVector, font Font) {

	gocv.Rectangle(img, rect, White, 1)

	if emotion == nil {
		return
	}

	name, prob := emotion.Dominant()

	clr, ok := emotionColors[name]

	if !ok {
		clr = White
	}

	text := fmt.Sprintf("%s %.2f", name, prob)
	drawLabel(img, placeLabel(rect, text, clr, font, 1), font)
}

// labelName returns the class label text, or the class number when the
// labels list does not cover it
func labelName(labels []string, class int) string {

	if class >= 0 && class < len(labels) {
		return labels[class]
	}

	return fmt.Sprintf("%d", class)
}

// placeLabel calculates where the caption box and text go for the given
// font alignment
func placeLabel(rect image.Rectangle, text string, clr color.RGBA,
	font Font, lineThickness int) boxLabel {

	textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

	var centerX int

	switch font.Alignment {
	case Center:
		centerX = (rect.Min.X + rect.Max.X) / 2

	case Right:
		centerX = rect.Max.X - (textSize.X / 2) - font.RightPad + (lineThickness / 2)

	case Left:
		fallthrough
	default:
		centerX = rect.Min.X + (textSize.X / 2) + font.LeftPad - (lineThickness / 2)
	}

	labelPosition := image.Pt(centerX-textSize.X/2, rect.Min.Y-font.BottomPad)

	bRect := image.Rect(centerX-textSize.X/2-font.LeftPad,
		rect.Min.Y-textSize.Y-font.TopPad-font.BottomPad,
		centerX+textSize.X/2+font.RightPad, rect.Min.Y)

	return boxLabel{
		rect:    bRect,
		clr:     clr,
		text:    text,
		textPos: labelPosition,
	}
}

// drawLabel paints the caption background and text
func drawLabel(img *gocv.Mat, box boxLabel, font Font) {

	gocv.Rectangle(img, box.rect, box.clr, -1)

	gocv.PutTextWithParams(img, box.text, box.textPos,
		font.Face, font.Scale, font.Color, font.Thickness,
		font.LineType, false)
}
