package faceemotion

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/swdee/go-depthai-lite"
	"github.com/swdee/go-depthai-lite/postprocess"
	"gocv.io/x/gocv"
)

// fakeBridge records calls instead of talking to a device
type fakeBridge struct {
	calls   int
	emotion *postprocess.EmotionVector
	err     error
}

func (f *fakeBridge) Infer(ctx context.Context, crop gocv.Mat) (*postprocess.EmotionVector, error) {
	f.calls++
	return f.emotion, f.err
}

func (f *fakeBridge) factory(sess *depthai.Session, p Params) (Bridge, error) {
	return f, nil
}

var testEmotion = &postprocess.EmotionVector{Neutral: 0.125, Happy: 0.75, Sad: 0.0625,
	Surprise: 0.03125, Anger: 0.03125}

func newTestSession(t *testing.T) (*depthai.Session, *depthai.MemDevice) {

	cfg := depthai.DefaultPipelineConfig()
	dev := depthai.NewMemDevice("test", cfg)
	dev.SetRunning(true)

	t.Cleanup(dev.Close)

	return depthai.NewSession(0, dev, cfg), dev
}

func publish(t *testing.T, dev *depthai.MemDevice, stream string, msg depthai.Message) {

	q, err := dev.Output(stream)

	if err != nil {
		t.Fatal(err)
	}

	if err := q.Send(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
}

// previewFrame returns a solid color interleaved BGR frame
func previewFrame(width, height int, b, g, r byte) *depthai.ImgFrame {

	data := make([]byte, width*height*3)

	for i := 0; i < len(data); i += 3 {
		data[i], data[i+1], data[i+2] = b, g, r
	}

	return &depthai.ImgFrame{Stream: depthai.StreamPreview, Type: depthai.BGR888i,
		Width: width, Height: height, Data: data}
}

// depthFrame returns a RAW16 frame with every pixel at mm
func depthFrame(width, height int, mm uint16) *depthai.ImgFrame {

	data := make([]byte, width*height*2)

	for i := 0; i < width*height; i++ {
		binary.LittleEndian.PutUint16(data[i*2:], mm)
	}

	return &depthai.ImgFrame{Stream: depthai.StreamDepth, Type: depthai.RAW16,
		Width: width, Height: height, Data: data}
}

func detections(vals ...float32) *depthai.NNData {
	return depthai.NewNNDataFp16(1, "detection_out", vals)
}

func decode(t *testing.T, out string) map[string]json.RawMessage {

	var m map[string]json.RawMessage

	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("invalid JSON %s: %v", out, err)
	}

	return m
}

func TestNoDevice(t *testing.T) {

	p := NewProcessor(DefaultParams())

	if got := p.Poll(context.Background(), depthai.NewRegistry(), 0, Options{}); got != `{"error":"NO_DEVICE"}` {
		t.Errorf("unexpected result %s", got)
	}

	if got := p.Results(context.Background(), nil, Options{}); got != `{"error":"NO_DEVICE"}` {
		t.Errorf("unexpected result %s", got)
	}
}

func TestDeviceNotRunning(t *testing.T) {

	sess, dev := newTestSession(t)
	dev.SetRunning(false)

	publish(t, dev, depthai.StreamPreview, previewFrame(300, 300, 0, 0, 0))

	reg := depthai.NewRegistry()
	reg.Add(sess)

	bridge := &fakeBridge{}
	p := NewProcessor(DefaultParams(), WithBridgeFactory(bridge.factory))

	if got := p.Poll(context.Background(), reg, 0, Options{}); got != `{"error":"DEVICE_NOT_RUNNING"}` {
		t.Errorf("unexpected result %s", got)
	}

	q, _ := dev.Output(depthai.StreamPreview)

	if q.Stats().Buffered != 1 {
		t.Error("streams must not be read when the device is not running")
	}
}

func TestBestFaceWithEmotion(t *testing.T) {

	sess, dev := newTestSession(t)

	publish(t, dev, depthai.StreamPreview, previewFrame(300, 300, 40, 80, 120))
	publish(t, dev, depthai.StreamDetections,
		detections(0, 1, 0.875, 0.125, 0.125, 0.5, 0.5, -1))

	bridge := &fakeBridge{emotion: testEmotion}
	p := NewProcessor(DefaultParams(), WithBridgeFactory(bridge.factory))

	got := p.Results(context.Background(), sess, Options{ScoreThreshold: 0.5})

	want := `{"best":{"label":1,"score":0.875,"xmin":0.125,"ymin":0.125,"xmax":0.5,` +
		`"ymax":0.5,"xcenter":93,"ycenter":93},"faceEmotion":{"neutral":0.125,` +
		`"happy":0.75,"sad":0.0625,"surprise":0.03125,"anger":0.03125}}`

	if got != want {
		t.Errorf("expected %s\ngot %s", want, got)
	}

	if bridge.calls != 1 {
		t.Errorf("expected 1 bridge call, got %d", bridge.calls)
	}
}

func TestSingleDetectionAboveThreshold(t *testing.T) {

	sess, dev := newTestSession(t)

	publish(t, dev, depthai.StreamPreview, previewFrame(300, 300, 0, 0, 0))
	publish(t, dev, depthai.StreamDetections,
		detections(0, 0, 0.9, 0.1, 0.1, 0.5, 0.5, -1))

	bridge := &fakeBridge{emotion: testEmotion}
	p := NewProcessor(DefaultParams(), WithBridgeFactory(bridge.factory))

	m := decode(t, p.Results(context.Background(), sess, Options{ScoreThreshold: 0.5}))

	var best BestFace

	if err := json.Unmarshal(m["best"], &best); err != nil {
		t.Fatal(err)
	}

	if math.Abs(float64(best.Score)-0.9) > 0.001 || best.Label != 0 {
		t.Errorf("unexpected best face %+v", best)
	}

	// 0.1 in half precision is slightly below 0.1 so truncates to 29
	if best.XCenter != 89 || best.YCenter != 89 {
		t.Errorf("expected center 89,89, got %d,%d", best.XCenter, best.YCenter)
	}
}

func TestNoFaceAboveThreshold(t *testing.T) {

	sess, dev := newTestSession(t)

	publish(t, dev, depthai.StreamPreview, previewFrame(300, 300, 0, 0, 0))
	publish(t, dev, depthai.StreamDetections,
		detections(0, 0, 0.9, 0.1, 0.1, 0.5, 0.5, -1))

	bridge := &fakeBridge{emotion: testEmotion}
	p := NewProcessor(DefaultParams(), WithBridgeFactory(bridge.factory))

	got := p.Results(context.Background(), sess, Options{ScoreThreshold: 0.95})

	if got != `{"best":{},"faceEmotion":{}}` {
		t.Errorf("unexpected result %s", got)
	}

	if bridge.calls != 0 {
		t.Errorf("expected no bridge calls, got %d", bridge.calls)
	}
}

func TestDegenerateCropSkipsSecondStage(t *testing.T) {

	sess, dev := newTestSession(t)

	publish(t, dev, depthai.StreamPreview, previewFrame(300, 300, 0, 0, 0))
	// box lies right of the frame so the clamped crop has zero width
	publish(t, dev, depthai.StreamDetections,
		detections(0, 1, 0.875, 1.125, 0.25, 1.25, 0.5, -1))

	bridge := &fakeBridge{emotion: testEmotion}
	p := NewProcessor(DefaultParams(), WithBridgeFactory(bridge.factory))

	m := decode(t, p.Results(context.Background(), sess, Options{ScoreThreshold: 0.5}))

	if string(m["faceEmotion"]) != "{}" {
		t.Errorf("expected empty emotion, got %s", m["faceEmotion"])
	}

	if string(m["best"]) == "{}" {
		t.Error("expected best face to be reported")
	}

	if bridge.calls != 0 {
		t.Errorf("expected no bridge calls, got %d", bridge.calls)
	}
}

func TestNoDetectionsYet(t *testing.T) {

	sess, _ := newTestSession(t)

	bridge := &fakeBridge{}
	p := NewProcessor(DefaultParams(), WithBridgeFactory(bridge.factory))

	got := p.Results(context.Background(), sess, Options{ScoreThreshold: 0.5})

	if got != `{"best":{},"faceEmotion":{}}` {
		t.Errorf("unexpected result %s", got)
	}
}

func TestDepthCorrelation(t *testing.T) {

	sess, dev := newTestSession(t)

	publish(t, dev, depthai.StreamPreview, previewFrame(300, 300, 0, 0, 0))
	publish(t, dev, depthai.StreamDetections,
		detections(0, 1, 0.875, 0.125, 0.125, 0.5, 0.5, -1))
	publish(t, dev, depthai.StreamDepth, depthFrame(300, 300, 1000))

	bridge := &fakeBridge{emotion: testEmotion}
	p := NewProcessor(DefaultParams(), WithBridgeFactory(bridge.factory))

	// depth not requested
	m := decode(t, p.Results(context.Background(), sess, Options{ScoreThreshold: 0.5}))

	if strings.Contains(string(m["best"]), `"Z"`) {
		t.Errorf("unexpected depth in %s", m["best"])
	}

	publish(t, dev, depthai.StreamDetections,
		detections(0, 1, 0.875, 0.125, 0.125, 0.5, 0.5, -1))
	publish(t, dev, depthai.StreamPreview, previewFrame(300, 300, 0, 0, 0))

	m = decode(t, p.Results(context.Background(), sess,
		Options{ScoreThreshold: 0.5, UseDepth: true}))

	var best struct {
		X *int
		Y *int
		Z *int
	}

	if err := json.Unmarshal(m["best"], &best); err != nil {
		t.Fatal(err)
	}

	if best.X == nil || best.Y == nil || best.Z == nil {
		t.Fatalf("expected X,Y,Z in %s", m["best"])
	}

	if *best.Z != 1000 {
		t.Errorf("expected Z 1000, got %d", *best.Z)
	}

	// center is left of and above the frame center
	if *best.X >= 0 || *best.Y <= 0 {
		t.Errorf("unexpected X,Y %d,%d", *best.X, *best.Y)
	}
}

func TestDepthNeedsFreshFrame(t *testing.T) {

	sess, dev := newTestSession(t)

	publish(t, dev, depthai.StreamPreview, previewFrame(300, 300, 0, 0, 0))
	publish(t, dev, depthai.StreamDetections,
		detections(0, 1, 0.875, 0.125, 0.125, 0.5, 0.5, -1))

	bridge := &fakeBridge{emotion: testEmotion}
	p := NewProcessor(DefaultParams(), WithBridgeFactory(bridge.factory))

	m := decode(t, p.Results(context.Background(), sess,
		Options{ScoreThreshold: 0.5, UseDepth: true}))

	if strings.Contains(string(m["best"]), `"Z"`) {
		t.Errorf("expected no depth without a depth frame, got %s", m["best"])
	}
}

func TestTelemetryMerged(t *testing.T) {

	sess, dev := newTestSession(t)

	p := NewProcessor(DefaultParams(), WithBridgeFactory((&fakeBridge{}).factory))

	got := p.Results(context.Background(), sess,
		Options{RetrieveInformation: true, UseIMU: true})

	if got != `{"best":{},"faceEmotion":{},"sysinfo":{},"imu":{}}` {
		t.Errorf("unexpected result %s", got)
	}

	publish(t, dev, depthai.StreamSysInfo, &depthai.SystemInformation{
		DDRMemoryUsage: depthai.MemoryInfo{Used: 1, Total: 2},
	})

	m := decode(t, p.Results(context.Background(), sess, Options{RetrieveInformation: true}))

	if !strings.Contains(string(m["sysinfo"]), `"ddrMemoryUsage":{"used":1,"total":2}`) {
		t.Errorf("unexpected sysinfo %s", m["sysinfo"])
	}

	if _, ok := m["imu"]; ok {
		t.Error("imu must be absent when not requested")
	}

	// no new message, last value is kept
	m = decode(t, p.Results(context.Background(), sess, Options{RetrieveInformation: true}))

	if !strings.Contains(string(m["sysinfo"]), `"used":1`) {
		t.Errorf("expected cached sysinfo, got %s", m["sysinfo"])
	}
}

func TestPreviewARGB(t *testing.T) {

	sess, dev := newTestSession(t)

	// pure red in BGR order
	publish(t, dev, depthai.StreamPreview, previewFrame(300, 300, 0, 0, 255))

	p := NewProcessor(DefaultParams(), WithBridgeFactory((&fakeBridge{}).factory))

	buf := make([]byte, 20*10*4)

	p.Results(context.Background(), sess, Options{GetPreview: true, Width: 20,
		Height: 10, Preview: buf})

	for i := 0; i < 20*10; i++ {
		px := buf[i*4 : i*4+4]

		if px[0] != 255 || px[1] < 250 || px[2] > 5 || px[3] > 5 {
			t.Fatalf("pixel %d: expected opaque red, got %v", i, px)
		}
	}
}

func TestNaNDetectionDoesNotHideFace(t *testing.T) {

	sess, dev := newTestSession(t)

	nan := float32(math.NaN())

	publish(t, dev, depthai.StreamPreview, previewFrame(300, 300, 40, 80, 120))
	publish(t, dev, depthai.StreamDetections,
		detections(0, 1, nan, 0.125, 0.125, 0.5, 0.5,
			0, 1, 0.875, 0.125, 0.125, 0.5, 0.5, -1))

	p := NewProcessor(DefaultParams(),
		WithBridgeFactory((&fakeBridge{emotion: testEmotion}).factory))

	m := decode(t, p.Results(context.Background(), sess, Options{ScoreThreshold: 0.5}))

	if _, ok := m["error"]; ok {
		t.Fatalf("unexpected error result %s", m["error"])
	}

	if !strings.Contains(string(m["best"]), `"score":0.875`) {
		t.Errorf("expected real face as best, got %s", m["best"])
	}
}

func TestBestFaceCaptionDrawnOverAllFaces(t *testing.T) {

	sess, dev := newTestSession(t)

	publish(t, dev, depthai.StreamPreview, previewFrame(300, 300, 40, 80, 120))
	publish(t, dev, depthai.StreamDetections,
		detections(0, 1, 0.875, 0.125, 0.125, 0.5, 0.5, -1))

	p := NewProcessor(DefaultParams(),
		WithBridgeFactory((&fakeBridge{emotion: testEmotion}).factory))

	buf := make([]byte, 300*300*4)

	p.Results(context.Background(), sess, Options{GetPreview: true, Width: 300,
		Height: 300, Preview: buf, DrawBestFace: true, DrawAllFaces: true,
		ScoreThreshold: 0.5})

	// face box is (37,37)-(150,150), both captions share its top left corner
	// and pixel (37,36) lies in their left padding
	i := (36*300 + 37) * 4
	px := buf[i : i+4]

	// happy caption is green, the first detection caption is red
	if px[1] > 128 || px[2] < 200 {
		t.Errorf("expected happy caption on top, got ARGB %v", px)
	}
}

func TestStage2Timeout(t *testing.T) {

	sess, dev := newTestSession(t)

	publish(t, dev, depthai.StreamPreview, previewFrame(300, 300, 0, 0, 0))
	publish(t, dev, depthai.StreamDetections,
		detections(0, 1, 0.875, 0.125, 0.125, 0.5, 0.5, -1))

	params := DefaultParams()
	params.Stage2Timeout = 20 * time.Millisecond

	// nothing answers on landm_out
	p := NewProcessor(params)

	got := p.Results(context.Background(), sess, Options{ScoreThreshold: 0.5})

	if got != `{"error":"STAGE2_TIMEOUT"}` {
		t.Errorf("unexpected result %s", got)
	}
}

// respond plays the device side of the second stage, answering each request
// with a reply of the wrong sequence number first
func respond(t *testing.T, dev *depthai.MemDevice, probs []float32) {

	in, err := dev.Input(depthai.StreamStage2In)

	if err != nil {
		t.Fatal(err)
	}

	out, _ := dev.Output(depthai.StreamStage2Out)

	go func() {
		ctx := context.Background()

		for {
			msg, err := in.Get(ctx)

			if err != nil {
				return
			}

			buf := msg.(*depthai.Buffer)

			if len(buf.Data) != 64*64*3 {
				t.Errorf("expected 64x64x3 tensor, got %d bytes", len(buf.Data))
			}

			_ = out.Send(ctx, depthai.NewNNDataFp16(buf.Seq+100, "prob", probs))
			_ = out.Send(ctx, depthai.NewNNDataFp16(buf.Seq, "prob", probs))
		}
	}()
}

func TestQueueBridgeRoundTrip(t *testing.T) {

	sess, dev := newTestSession(t)

	respond(t, dev, []float32{0.125, 0.75, 0.0625, 0.03125, 0.03125})

	p := NewProcessor(DefaultParams())

	for i := 0; i < 3; i++ {
		publish(t, dev, depthai.StreamPreview, previewFrame(300, 300, 0, 0, 0))
		publish(t, dev, depthai.StreamDetections,
			detections(0, 1, 0.875, 0.125, 0.125, 0.5, 0.5, -1))

		m := decode(t, p.Results(context.Background(), sess, Options{ScoreThreshold: 0.5}))

		want := `{"neutral":0.125,"happy":0.75,"sad":0.0625,"surprise":0.03125,"anger":0.03125}`

		if string(m["faceEmotion"]) != want {
			t.Errorf("poll %d: expected %s, got %s", i, want, m["faceEmotion"])
		}
	}
}

func TestQueueBridgeShortReply(t *testing.T) {

	sess, dev := newTestSession(t)

	respond(t, dev, []float32{0.5, 0.5})

	publish(t, dev, depthai.StreamPreview, previewFrame(300, 300, 0, 0, 0))
	publish(t, dev, depthai.StreamDetections,
		detections(0, 1, 0.875, 0.125, 0.125, 0.5, 0.5, -1))

	p := NewProcessor(DefaultParams())

	m := decode(t, p.Results(context.Background(), sess, Options{ScoreThreshold: 0.5}))

	if string(m["faceEmotion"]) != "{}" {
		t.Errorf("expected empty emotion for short reply, got %s", m["faceEmotion"])
	}

	if string(m["best"]) == "{}" {
		t.Error("expected best face")
	}
}
