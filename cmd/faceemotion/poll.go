package main

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

var (
	pollCount   int
	previewPath string
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll fused face emotion results and print them as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPoll(cmd.Context())
	},
}

func runPoll(ctx context.Context) error {

	pc := app.cfg.Poll
	opts := pc.Options

	if opts.GetPreview {
		opts.Preview = make([]byte, opts.Width*opts.Height*4)
	}

	for i := 0; pc.Count == 0 || i < pc.Count; i++ {

		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pc.Interval):
			}
		}

		out := app.processor.Poll(ctx, app.registry, app.cfg.Pipeline.DeviceNum, opts)
		fmt.Println(out)
	}

	if opts.GetPreview && pc.PreviewPath != "" {
		if err := savePreview(pc.PreviewPath, opts.Preview, opts.Width, opts.Height); err != nil {
			return err
		}

		app.log.Info("Saved preview", zap.String("path", pc.PreviewPath))
	}

	return nil
}

// savePreview writes an ARGB buffer to an image file
func savePreview(path string, argb []byte, width, height int) error {

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for i := 0; i < width*height; i++ {
		img.Pix[i*4] = argb[i*4+1]
		img.Pix[i*4+1] = argb[i*4+2]
		img.Pix[i*4+2] = argb[i*4+3]
		img.Pix[i*4+3] = argb[i*4]
	}

	mat, err := gocv.ImageToMatRGB(img)

	if err != nil {
		return fmt.Errorf("error converting preview: %w", err)
	}

	defer mat.Close()

	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("error writing preview to %s", path)
	}

	return nil
}

func init() {
	pollCmd.Flags().IntVarP(&pollCount, "count", "n", -1, "Number of polls, 0 polls until interrupted (overrides poll.count)")
	pollCmd.Flags().StringVarP(&previewPath, "preview", "p", "", "Save the last preview to this file (overrides poll.preview_path)")
	pollCmd.PreRun = func(cmd *cobra.Command, args []string) {
		if pollCount >= 0 {
			app.cfg.Poll.Count = pollCount
		}

		if previewPath != "" {
			app.cfg.Poll.PreviewPath = previewPath
		}
	}

	rootCmd.AddCommand(pollCmd)
}
