package faceemotion

import (
	"encoding/json"

	"github.com/swdee/go-depthai-lite/postprocess"
	"github.com/swdee/go-depthai-lite/preprocess"
	"github.com/swdee/go-depthai-lite/spatial"
)

// BestFace is the highest scoring face of a poll
type BestFace struct {
	Label int     `json:"label"`
	Score float32 `json:"score"`
	// normalized bounding box
	XMin float32 `json:"xmin"`
	YMin float32 `json:"ymin"`
	XMax float32 `json:"xmax"`
	YMax float32 `json:"ymax"`
	// center of the box in preview pixels
	XCenter int `json:"xcenter"`
	YCenter int `json:"ycenter"`
	// Coordinate is set when depth was correlated, its X,Y,Z fields are
	// flattened into the face object
	*spatial.Coordinate
}

// NewBestFace builds the result entry for a detection and its region
func NewBestFace(det postprocess.Detection, r preprocess.Region) *BestFace {
	return &BestFace{
		Label:   det.Label,
		Score:   det.Score,
		XMin:    det.Box.XMin,
		YMin:    det.Box.YMin,
		XMax:    det.Box.XMax,
		YMax:    det.Box.YMax,
		XCenter: r.Center.X,
		YCenter: r.Center.Y,
	}
}

// Result is the fused output of one poll
type Result struct {
	// Best is nil when no face passed the score threshold
	Best *BestFace
	// Emotion is nil when the second stage did not run or replied short
	Emotion *postprocess.EmotionVector
	// SysInfo and IMU hold telemetry snapshots
	SysInfo any
	IMU     any
	// WantSys and WantIMU control presence of the telemetry fields
	WantSys bool
	WantIMU bool
}

type emptyObject struct{}

type resultJSON struct {
	Best        any `json:"best"`
	FaceEmotion any `json:"faceEmotion"`
	SysInfo     any `json:"sysinfo,omitempty"`
	IMU         any `json:"imu,omitempty"`
}

// Marshal serializes the result.  Absent values are written as empty
// objects so "best" and "faceEmotion" are always present, telemetry fields
// only appear when requested
func (r Result) Marshal() (string, error) {

	out := resultJSON{
		Best:        emptyObject{},
		FaceEmotion: emptyObject{},
	}

	if r.Best != nil {
		out.Best = r.Best
	}

	if r.Emotion != nil {
		out.FaceEmotion = r.Emotion
	}

	if r.WantSys {
		out.SysInfo = orEmpty(r.SysInfo)
	}

	if r.WantIMU {
		out.IMU = orEmpty(r.IMU)
	}

	b, err := json.Marshal(out)

	if err != nil {
		return "", err
	}

	return string(b), nil
}

func orEmpty(v any) any {
	if v == nil {
		return emptyObject{}
	}
	return v
}
