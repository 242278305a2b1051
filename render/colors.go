package render

import "image/color"

var (
	// classColors is a list of colors used to paint detection boxes
	classColors = []color.RGBA{
		{R: 255, G: 56, B: 56, A: 255},   // #FF3838
		{R: 255, G: 112, B: 31, A: 255},  // #FF701F
		{R: 255, G: 178, B: 29, A: 255},  // #FFB21D
		{R: 207, G: 210, B: 49, A: 255},  // #CFD231
		{R: 72, G: 249, B: 10, A: 255},   // #48F90A
		{R: 26, G: 147, B: 52, A: 255},   // #1A9334
		{R: 0, G: 212, B: 187, A: 255},   // #00D4BB
		{R: 0, G: 194, B: 255, A: 255},   // #00C2FF
		{R: 52, G: 69, B: 147, A: 255},   // #344593
		{R: 100, G: 115, B: 255, A: 255}, // #6473FF
	}

	// emotionColors are the caption colors for each emotion class
	emotionColors = map[string]color.RGBA{
		"neutral":  {R: 192, G: 192, B: 192, A: 255}, // #C0C0C0
		"happy":    {R: 72, G: 249, B: 10, A: 255},   // #48F90A
		"sad":      {R: 0, G: 64, B: 255, A: 255},    // #0040FF
		"surprise": {R: 255, G: 178, B: 29, A: 255},  // #FFB21D
		"anger":    {R: 255, G: 0, B: 0, A: 255},     // #FF0000
	}

	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)
