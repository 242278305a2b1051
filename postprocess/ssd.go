package postprocess

import (
	"iter"
	"math"
)

const (
	// ssdRecordSize is the number of elements per record in a DetectionOutput
	// layer: [image_id, label, conf, x_min, y_min, x_max, y_max]
	ssdRecordSize = 7
	// ssdSentinel marks the end of valid records when placed in the image_id
	// position
	ssdSentinel = -1.0
)

// DetectionOutput is a fixed stride view over the flat output tensor of an
// SSD style DetectionOutput layer, such as used by face-detection-retail-0004
type DetectionOutput struct {
	data []float32
}

// NewDetectionOutput wraps the flat tensor data
func NewDetectionOutput(data []float32) DetectionOutput {
	return DetectionOutput{data: data}
}

// record returns the i'th record and if it is valid.  A record is invalid if
// it starts with the sentinel or does not fit entirely within the tensor
func (d DetectionOutput) record(i int) ([]float32, bool) {

	start := i * ssdRecordSize
	end := start + ssdRecordSize

	if end > len(d.data) {
		return nil, false
	}

	rec := d.data[start:end]

	if rec[0] == ssdSentinel {
		return nil, false
	}

	return rec, true
}

// All iterates over the records in tensor order, yielding the record index
// and decoded detection.  Iteration stops at the first sentinel record or
// when the tensor is exhausted.  Each call to All starts from the beginning
func (d DetectionOutput) All() iter.Seq2[int, Detection] {
	return func(yield func(int, Detection) bool) {
		for i := 0; ; i++ {
			rec, ok := d.record(i)

			if !ok {
				return
			}

			det := Detection{
				Label: int(rec[1]),
				Score: rec[2],
				Box: NormBox{
					XMin: rec[3],
					YMin: rec[4],
					XMax: rec[5],
					YMax: rec[6],
				},
			}

			if !yield(i, det) {
				return
			}
		}
	}
}

// Len returns the number of records before the sentinel
func (d DetectionOutput) Len() int {

	n := 0

	for range d.All() {
		n++
	}

	return n
}

// DetectionResult holds the records of a DetectionOutput that passed the
// score threshold
type DetectionResult struct {
	// Detections are the retained records in tensor order
	Detections []Detection
	// best is the index into Detections of the highest scoring record, or -1
	best int
}

// BestIndex returns the index of the best detection or -1 if there is none
func (r DetectionResult) BestIndex() int {
	return r.best
}

// Best returns the highest scoring detection.  The boolean is false when no
// detection passed the threshold
func (r DetectionResult) Best() (Detection, bool) {

	if r.best < 0 || r.best >= len(r.Detections) {
		return Detection{}, false
	}

	return r.Detections[r.best], true
}

// DecodeDetections filters the records of a DetectionOutput tensor keeping
// those with a score greater or equal to threshold.  Records with a NaN score
// or a non finite box coordinate are dropped.  The best record is the
// first retained record with the strictly greatest score, so on a tie the
// earlier record wins.  Any retained record can be best, including one with
// a score of exactly zero when the threshold is zero
func DecodeDetections(data []float32, threshold float32) DetectionResult {

	res := DetectionResult{
		Detections: make([]Detection, 0),
		best:       -1,
	}

	var maxScore float32

	for _, det := range NewDetectionOutput(data).All() {

		if !(det.Score >= threshold) || !finite(det.Box.XMin, det.Box.YMin,
			det.Box.XMax, det.Box.YMax) {
			continue
		}

		if res.best == -1 || det.Score > maxScore {
			maxScore = det.Score
			res.best = len(res.Detections)
		}

		res.Detections = append(res.Detections, det)
	}

	return res
}

// finite returns true if none of the values are NaN or infinite
func finite(vals ...float32) bool {

	for _, v := range vals {
		f := float64(v)

		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}

	return true
}
