// Package config loads the face emotion application settings from YAML.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/swdee/go-depthai-lite"
	"github.com/swdee/go-depthai-lite/faceemotion"
)

// EnvPrefix is the prefix of environment variables overriding file settings,
// eg: FACEEMOTION_POLL_SCORE_THRESHOLD=0.7
const EnvPrefix = "FACEEMOTION"

type Config struct {
	Pipeline  depthai.PipelineConfig `mapstructure:"pipeline"`
	Processor faceemotion.Params     `mapstructure:"processor"`
	Host      HostConfig             `mapstructure:"host"`
	Poll      PollConfig             `mapstructure:"poll"`
	Log       LogConfig              `mapstructure:"log"`
}

// HostConfig selects the video source of the host device
type HostConfig struct {
	// Source is a camera index, video file or still image
	Source string `mapstructure:"source"`
	// Loop restarts a video file when it ends
	Loop bool `mapstructure:"loop"`
}

type PollConfig struct {
	faceemotion.Options `mapstructure:",squash"`
	// Count is the number of polls the CLI makes, 0 polls until interrupted
	Count int `mapstructure:"count"`
	// Interval between polls
	Interval time.Duration `mapstructure:"interval"`
	// PreviewPath saves the last ARGB preview as PNG when set
	PreviewPath string `mapstructure:"preview_path"`
}

type LogConfig struct {
	// Mode is "release" for production logging, anything else for
	// development logging
	Mode string `mapstructure:"mode"`
}

// Load reads configuration from the YAML file.  Settings missing from the
// file take their default value and every setting can be overridden from the
// environment
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

// FromEnv returns the defaults with environment overrides applied, used when
// no config file is given
func FromEnv() (*Config, error) {
	v := viper.New()

	setDefaults(v)
	bindEnv(v)

	return unmarshal(v)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func unmarshal(v *viper.Viper) (*Config, error) {

	cfg := Default()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	p := d.Pipeline
	v.SetDefault("pipeline.device_id", p.DeviceID)
	v.SetDefault("pipeline.device_num", p.DeviceNum)
	v.SetDefault("pipeline.preview_width", p.PreviewWidth)
	v.SetDefault("pipeline.preview_height", p.PreviewHeight)
	v.SetDefault("pipeline.color_resolution", int(p.ColorResolution))
	v.SetDefault("pipeline.color_fps", p.ColorFPS)
	v.SetDefault("pipeline.interleaved", p.Interleaved)
	v.SetDefault("pipeline.color_order", int(p.ColorOrder))
	v.SetDefault("pipeline.nn_path1", p.NNPath1)
	v.SetDefault("pipeline.nn_path2", p.NNPath2)
	v.SetDefault("pipeline.confidence_threshold", p.ConfidenceThreshold)
	v.SetDefault("pipeline.left_right_check", p.LeftRightCheck)
	v.SetDefault("pipeline.subpixel", p.Subpixel)
	v.SetDefault("pipeline.depth_align", p.DepthAlign)
	v.SetDefault("pipeline.median_filter", int(p.MedianFilter))
	v.SetDefault("pipeline.mono_left_resolution", int(p.MonoLeftResolution))
	v.SetDefault("pipeline.mono_right_resolution", int(p.MonoRightResolution))
	v.SetDefault("pipeline.isp_scale_num", p.ISPScaleNum)
	v.SetDefault("pipeline.isp_scale_den", p.ISPScaleDen)
	v.SetDefault("pipeline.manual_focus", p.ManualFocus)
	v.SetDefault("pipeline.rate", p.Rate)
	v.SetDefault("pipeline.freq", p.Freq)
	v.SetDefault("pipeline.batch_report_threshold", p.BatchReportThreshold)
	v.SetDefault("pipeline.max_batch_reports", p.MaxBatchReports)

	pr := d.Processor
	v.SetDefault("processor.working_size", pr.WorkingSize)
	v.SetDefault("processor.stage2_size", pr.Stage2Size)
	v.SetDefault("processor.stage2_timeout", pr.Stage2Timeout)
	v.SetDefault("processor.labels", pr.Labels)
	v.SetDefault("processor.spatial.delta", pr.Spatial.Delta)
	v.SetDefault("processor.spatial.lower_threshold", pr.Spatial.LowerThreshold)
	v.SetDefault("processor.spatial.upper_threshold", pr.Spatial.UpperThreshold)
	v.SetDefault("processor.spatial.hfov", pr.Spatial.HFOV)
	v.SetDefault("processor.spatial.algorithm", int(pr.Spatial.Algorithm))

	v.SetDefault("host.source", d.Host.Source)
	v.SetDefault("host.loop", d.Host.Loop)

	po := d.Poll
	v.SetDefault("poll.get_preview", po.GetPreview)
	v.SetDefault("poll.width", po.Width)
	v.SetDefault("poll.height", po.Height)
	v.SetDefault("poll.draw_best_face", po.DrawBestFace)
	v.SetDefault("poll.draw_all_faces", po.DrawAllFaces)
	v.SetDefault("poll.score_threshold", po.ScoreThreshold)
	v.SetDefault("poll.use_depth", po.UseDepth)
	v.SetDefault("poll.retrieve_information", po.RetrieveInformation)
	v.SetDefault("poll.use_imu", po.UseIMU)
	v.SetDefault("poll.count", po.Count)
	v.SetDefault("poll.interval", po.Interval)
	v.SetDefault("poll.preview_path", po.PreviewPath)

	v.SetDefault("log.mode", d.Log.Mode)
}

// Default returns the configuration used when no file is given
func Default() *Config {
	pipeline := depthai.DefaultPipelineConfig()
	pipeline.NNPath1 = "models/face-detection-retail-0004.onnx"
	pipeline.NNPath2 = "models/emotions-recognition-retail-0003.onnx"

	return &Config{
		Pipeline:  pipeline,
		Processor: faceemotion.DefaultParams(),
		Host: HostConfig{
			Source: "0",
			Loop:   true,
		},
		Poll: PollConfig{
			Options: faceemotion.Options{
				GetPreview:     true,
				Width:          300,
				Height:         300,
				DrawBestFace:   true,
				ScoreThreshold: 0.5,
			},
			Count:    1,
			Interval: 100 * time.Millisecond,
		},
		Log: LogConfig{
			Mode: "debug",
		},
	}
}
