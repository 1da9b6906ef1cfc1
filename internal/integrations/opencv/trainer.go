package opencv

import (
	"context"
	"fmt"
	"time"

	"campus-face-id/internal/core/dataset"
	"campus-face-id/internal/core/processor"

	log "github.com/sirupsen/logrus"
	gocv "gocv.io/x/gocv"
)

// AddSample erkennt das erste Gesicht im Bild, ergänzt das Modell um dieses
// Gesicht und speichert das Modell.
func (s *Service) AddSample(ctx context.Context, label int, imageData []byte) error {
	if label <= 0 {
		return fmt.Errorf("invalid label %d", label)
	}

	mat, err := decodeImage(imageData)
	if err != nil {
		return err
	}
	defer mat.Close()

	gray := toGray(mat)
	defer gray.Close()

	rects := s.detector.Detect(gray)
	if len(rects) == 0 {
		return processor.ErrNoFace
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	face := cropFace(gray, rects[0])
	defer face.Close()

	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	s.recognizer.Update([]gocv.Mat{face}, []int{label})
	log.Infof("Added training sample for label %d", label)

	if s.cfg.ModelPath == "" {
		return nil
	}
	return s.recognizer.Save(s.cfg.ModelPath)
}

// TrainDataset trainiert ein neues Modell aus den Beispielbildern und ersetzt
// das aktuelle Modell erst nach erfolgreichem Training.
func (s *Service) TrainDataset(ctx context.Context, samples []dataset.Sample, progress func(done, total int)) (*processor.TrainReport, error) {
	if len(samples) == 0 {
		return nil, dataset.ErrEmptyDataset
	}

	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	start := time.Now()
	report := &processor.TrainReport{}

	var faces []gocv.Mat
	var labels []int
	defer func() {
		for _, f := range faces {
			f.Close()
		}
	}()

	for i, sample := range samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n := s.collectFaces(sample, &faces, &labels)
		report.Images++
		if n == 0 {
			report.Skipped = append(report.Skipped, sample.Path)
		}
		report.Faces += n

		if progress != nil {
			progress(i+1, len(samples))
		}
	}

	if len(faces) == 0 {
		return nil, fmt.Errorf("%w in any dataset image", processor.ErrNoFace)
	}

	s.recognizer.Replace(faces, labels)

	seen := make(map[int]bool)
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			report.Labels = append(report.Labels, l)
		}
	}
	report.Duration = time.Since(start)

	log.Infof("Trained LBPH model on %d faces from %d images (%d labels) in %v",
		report.Faces, report.Images, len(report.Labels), report.Duration)

	if s.cfg.ModelPath != "" {
		if err := s.recognizer.Save(s.cfg.ModelPath); err != nil {
			return report, err
		}
	}
	return report, nil
}

// collectFaces liest ein Bild und hängt alle gefundenen Gesichter an
func (s *Service) collectFaces(sample dataset.Sample, faces *[]gocv.Mat, labels *[]int) int {
	img := gocv.IMRead(sample.Path, gocv.IMReadGrayScale)
	if img.Empty() {
		img.Close()
		log.Warnf("Skipping unreadable training image %s", sample.Path)
		return 0
	}
	defer img.Close()

	rects := s.detector.Detect(img)
	for _, rect := range rects {
		*faces = append(*faces, cropFace(img, rect))
		*labels = append(*labels, sample.Label)
	}
	if len(rects) == 0 {
		log.Debugf("No face found in training image %s", sample.Path)
	}
	return len(rects)
}
