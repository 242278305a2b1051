package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/swdee/go-depthai-lite"
	"github.com/swdee/go-depthai-lite/config"
	"github.com/swdee/go-depthai-lite/faceemotion"
	"github.com/swdee/go-depthai-lite/hostdevice"
	"go.uber.org/zap"
)

// Version is the application version
const Version = "0.1.0"

var (
	// configPath is the YAML config file, empty uses defaults and environment
	configPath string
	// sourceFlag overrides the host video source
	sourceFlag string
	// labelsPath is an optional labels file for the detection network
	labelsPath string

	// app holds the state shared by subcommands once started
	app *appState
)

// appState is the running host device and the processor polling it
type appState struct {
	cfg       *config.Config
	log       *zap.Logger
	device    *hostdevice.Device
	registry  *depthai.Registry
	processor *faceemotion.Processor
}

var rootCmd = &cobra.Command{
	Use:     "faceemotion",
	Short:   "Face detection and emotion recognition with depth fusion",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		rt, err := start(cmd.Context())

		if err != nil {
			return err
		}

		app = rt
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			app.device.Stop()
			_ = app.log.Sync()
		}
	},
}

// start loads configuration, opens the video source and starts the host
// device
func start(ctx context.Context) (*appState, error) {

	var (
		cfg *config.Config
		err error
	)

	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.FromEnv()
	}

	if err != nil {
		return nil, err
	}

	if sourceFlag != "" {
		cfg.Host.Source = sourceFlag
	}

	if labelsPath != "" {
		labels, err := depthai.LoadLabels(labelsPath)

		if err != nil {
			return nil, err
		}

		cfg.Processor.Labels = labels
	}

	log, err := config.NewLogger(cfg.Log.Mode)

	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	src, err := hostdevice.OpenSource(cfg.Host.Source, cfg.Host.Loop)

	if err != nil {
		return nil, err
	}

	dev := hostdevice.New(cfg.Pipeline, src, hostdevice.WithLogger(log))

	if err := dev.Start(ctx); err != nil {
		dev.Stop()
		return nil, err
	}

	reg := depthai.NewRegistry()
	reg.Add(depthai.NewSession(cfg.Pipeline.DeviceNum, dev, dev.Config(),
		depthai.WithLogger(log)))

	return &appState{
		cfg:       cfg,
		log:       log,
		device:    dev,
		registry:  reg,
		processor: faceemotion.NewProcessor(cfg.Processor, faceemotion.WithLogger(log)),
	}, nil
}

// Execute runs the root command until it completes or Ctrl+C is pressed
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVarP(&sourceFlag, "source", "s", "", "Camera index, video file or image (overrides host.source)")
	rootCmd.PersistentFlags().StringVarP(&labelsPath, "labels", "l", "", "Labels file of the face detection network")
}
