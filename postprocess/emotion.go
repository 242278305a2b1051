package postprocess

// EmotionClasses are the output classes of the emotions-recognition-retail-0003
// model in tensor order
var EmotionClasses = []string{"neutral", "happy", "sad", "surprise", "anger"}

// EmotionVector holds the per class probabilities of the emotion model
type EmotionVector struct {
	Neutral  float32 `json:"neutral"`
	Happy    float32 `json:"happy"`
	Sad      float32 `json:"sad"`
	Surprise float32 `json:"surprise"`
	Anger    float32 `json:"anger"`
}

// DecodeEmotion maps the first five elements of the emotion model output
// to named classes.  Returns false if the output is too short or one of the
// class probabilities is not finite
func DecodeEmotion(probs []float32) (*EmotionVector, bool) {

	if len(probs) < len(EmotionClasses) {
		return nil, false
	}

	if !finite(probs[:len(EmotionClasses)]...) {
		return nil, false
	}

	return &EmotionVector{
		Neutral:  probs[0],
		Happy:    probs[1],
		Sad:      probs[2],
		Surprise: probs[3],
		Anger:    probs[4],
	}, true
}

// Values returns the probabilities in class order
func (e EmotionVector) Values() []float32 {
	return []float32{e.Neutral, e.Happy, e.Sad, e.Surprise, e.Anger}
}

// Dominant returns the class with the highest probability and its value.
// On a tie the class listed first wins
func (e EmotionVector) Dominant() (string, float32) {

	vals := e.Values()
	best := 0

	for i := 1; i < len(vals); i++ {
		if vals[i] > vals[best] {
			best = i
		}
	}

	return EmotionClasses[best], vals[best]
}
