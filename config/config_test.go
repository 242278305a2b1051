package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/swdee/go-depthai-lite"
	"github.com/swdee/go-depthai-lite/spatial"
)

func writeConfig(t *testing.T, body string) string {

	path := filepath.Join(t.TempDir(), "config.yaml")

	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestLoad(t *testing.T) {

	path := writeConfig(t, `
pipeline:
  preview_width: 320
  preview_height: 240
  confidence_threshold: 0
  nn_path1: models/face-detection-retail-0004.onnx
processor:
  stage2_timeout: 250ms
  spatial:
    delta: 8
    algorithm: 1
poll:
  score_threshold: 0.7
  use_depth: true
  count: 5
log:
  mode: release
`)

	cfg, err := Load(path)

	if err != nil {
		t.Fatal(err)
	}

	if cfg.Pipeline.PreviewWidth != 320 || cfg.Pipeline.PreviewHeight != 240 {
		t.Errorf("unexpected preview size %dx%d", cfg.Pipeline.PreviewWidth,
			cfg.Pipeline.PreviewHeight)
	}

	if cfg.Pipeline.HasStream(depthai.StreamDepth) {
		t.Error("depth stream must be disabled by confidence threshold 0")
	}

	if cfg.Pipeline.NNPath1 != "models/face-detection-retail-0004.onnx" {
		t.Errorf("unexpected nn path %q", cfg.Pipeline.NNPath1)
	}

	if cfg.Processor.Stage2Timeout != 250*time.Millisecond {
		t.Errorf("unexpected stage2 timeout %s", cfg.Processor.Stage2Timeout)
	}

	if cfg.Processor.Spatial.Delta != 8 || cfg.Processor.Spatial.Algorithm != spatial.Median {
		t.Errorf("unexpected spatial params %+v", cfg.Processor.Spatial)
	}

	if cfg.Poll.ScoreThreshold != 0.7 || !cfg.Poll.UseDepth || cfg.Poll.Count != 5 {
		t.Errorf("unexpected poll config %+v", cfg.Poll)
	}

	if cfg.Log.Mode != "release" {
		t.Errorf("unexpected log mode %q", cfg.Log.Mode)
	}

	// untouched settings keep defaults
	if cfg.Pipeline.ColorFPS != 30 || cfg.Processor.WorkingSize != 300 ||
		cfg.Processor.Stage2Size != 64 {
		t.Errorf("defaults not applied %+v %+v", cfg.Pipeline, cfg.Processor)
	}

	if cfg.Processor.Fill.A != 255 {
		t.Error("letterbox fill must keep its default")
	}
}

func TestLoadEnvOverride(t *testing.T) {

	path := writeConfig(t, "poll:\n  score_threshold: 0.7\n")

	t.Setenv("FACEEMOTION_POLL_SCORE_THRESHOLD", "0.9")
	t.Setenv("FACEEMOTION_PIPELINE_RATE", "0")

	cfg, err := Load(path)

	if err != nil {
		t.Fatal(err)
	}

	if cfg.Poll.ScoreThreshold != 0.9 {
		t.Errorf("expected env override 0.9, got %f", cfg.Poll.ScoreThreshold)
	}

	if cfg.Pipeline.HasStream(depthai.StreamSysInfo) {
		t.Error("sysinfo stream must be disabled by env rate 0")
	}
}

func TestLoadErrors(t *testing.T) {

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := writeConfig(t, "pipeline:\n  confidence_threshold: 300\n")

	if _, err := Load(path); err == nil {
		t.Error("expected validation error")
	}
}

func TestFromEnv(t *testing.T) {

	t.Setenv("FACEEMOTION_HOST_SOURCE", "testdata/face.jpg")

	cfg, err := FromEnv()

	if err != nil {
		t.Fatal(err)
	}

	if cfg.Host.Source != "testdata/face.jpg" {
		t.Errorf("unexpected source %q", cfg.Host.Source)
	}

	if cfg.Poll.Width != 300 || !cfg.Poll.DrawBestFace {
		t.Errorf("unexpected poll defaults %+v", cfg.Poll)
	}
}

func TestNewLogger(t *testing.T) {

	for _, mode := range []string{"debug", "release"} {
		log, err := NewLogger(mode)

		if err != nil {
			t.Fatalf("%s: %v", mode, err)
		}

		log.Debug("logger ready")
	}
}
