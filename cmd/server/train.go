package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"campus-face-id/internal/core/dataset"
	"campus-face-id/internal/integrations/opencv"

	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the LBPH model from a dataset directory",
	Long: `Train the LBPH face model from a directory of face images.
Images are named User.<label>.<n>.<ext> or stored below <label>/ directories.
The label is the student id in the directory. Every detected face is cropped
and used for training; the model replaces the existing trainer.yml.`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().String("dataset", "", "Dataset directory (defaults to opencv.dataset_dir)")
	trainCmd.Flags().String("model", "", "Output model file (defaults to opencv.model_path)")
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, logCloser, err := setup()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	if dir, _ := cmd.Flags().GetString("dataset"); dir != "" {
		cfg.OpenCV.DatasetDir = dir
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.OpenCV.ModelPath = model
		if err := os.MkdirAll(filepath.Dir(model), 0755); err != nil {
			return fmt.Errorf("failed to create model directory: %w", err)
		}
	}

	samples, skipped, err := dataset.Scan(cfg.OpenCV.DatasetDir)
	if err != nil {
		return fmt.Errorf("failed to scan dataset: %w", err)
	}
	for _, path := range skipped {
		log.Warnf("Skipping %s: no label in file or directory name", path)
	}

	vision, err := opencv.NewService(cfg.OpenCV)
	if err != nil {
		return err
	}
	defer vision.Close()

	fmt.Printf("Training on %d images from %s (%d labels)\n",
		len(samples), cfg.OpenCV.DatasetDir, len(dataset.Labels(samples)))

	bar := progressbar.NewOptions(len(samples),
		progressbar.OptionSetDescription("Training faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	report, err := vision.TrainDataset(cmd.Context(), samples, func(done, total int) {
		_ = bar.Set(done)
	})
	_ = bar.Finish()
	fmt.Println()
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}

	fmt.Printf("Trained on %d faces from %d images, labels %v in %v\n",
		report.Faces, report.Images, report.Labels, report.Duration.Round(time.Millisecond))
	if len(report.Skipped) > 0 {
		fmt.Printf("%d images without a detectable face\n", len(report.Skipped))
	}
	fmt.Printf("Model written to %s\n", cfg.OpenCV.ModelPath)
	return nil
}
