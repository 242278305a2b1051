package postprocess

// NormBox is a bounding box with coordinates normalized to the range [0,1]
// of the image the network was run on
type NormBox struct {
	XMin float32
	YMin float32
	XMax float32
	YMax float32
}

// BoxRect are the pixel dimensions of the bounding box of a detected object
type BoxRect struct {
	Left   int
	Right  int
	Top    int
	Bottom int
}

// Width of the box in pixels
func (b BoxRect) Width() int {
	return b.Right - b.Left
}

// Height of the box in pixels
func (b BoxRect) Height() int {
	return b.Bottom - b.Top
}

// ToPixels scales the normalized box to an image of the given size.  Values
// are truncated towards zero
func (n NormBox) ToPixels(width, height int) BoxRect {
	return BoxRect{
		Left:   int(n.XMin * float32(width)),
		Top:    int(n.YMin * float32(height)),
		Right:  int(n.XMax * float32(width)),
		Bottom: int(n.YMax * float32(height)),
	}
}

// Detection defines the attributes of a single object detected
type Detection struct {
	// Label is the class index the model was trained on
	Label int
	// Score is the confidence score of the object detected
	Score float32
	// Box is the normalized bounding box of the object location
	Box NormBox
}
