// Package dataset findet Trainingsbilder und ihre Labels im Dateisystem.
//
// Unterstützt werden zwei Layouts:
//
//	dataset/User.<label>.<n>.jpg
//	dataset/<label>/<beliebig>.jpg
package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ErrEmptyDataset wird zurückgegeben, wenn keine verwertbaren Bilder gefunden wurden
var ErrEmptyDataset = errors.New("dataset contains no labelled images")

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".pgm":  true,
	".webp": true,
	".tif":  true,
	".tiff": true,
}

// Sample ist ein einzelnes Trainingsbild
type Sample struct {
	Path  string
	Label int
}

// Scan durchsucht dir rekursiv nach Trainingsbildern. Dateien ohne
// erkennbares Label werden übersprungen und in skipped zurückgegeben.
func Scan(dir string) (samples []Sample, skipped []string, err error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open dataset directory: %w", err)
	}
	if !info.IsDir() {
		return nil, nil, fmt.Errorf("dataset path %s is not a directory", dir)
	}

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		label, ok := LabelFor(dir, path)
		if !ok {
			skipped = append(skipped, path)
			return nil
		}
		samples = append(samples, Sample{Path: path, Label: label})
		return nil
	})
	if err != nil {
		return nil, skipped, fmt.Errorf("failed to scan dataset: %w", err)
	}

	if len(samples) == 0 {
		return nil, skipped, ErrEmptyDataset
	}

	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Label != samples[j].Label {
			return samples[i].Label < samples[j].Label
		}
		return samples[i].Path < samples[j].Path
	})
	return samples, skipped, nil
}

// LabelFor leitet das Label eines Bildes aus Dateiname oder Verzeichnis ab.
func LabelFor(root, path string) (int, bool) {
	name := filepath.Base(path)

	// User.<label>.<n>.<ext>
	parts := strings.Split(name, ".")
	if len(parts) >= 3 && strings.EqualFold(parts[0], "user") {
		if label, err := strconv.Atoi(parts[1]); err == nil && label > 0 {
			return label, true
		}
	}

	// <label>/<datei>
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0, false
	}
	dir := filepath.Dir(rel)
	if dir == "." {
		return 0, false
	}
	first := strings.Split(filepath.ToSlash(dir), "/")[0]
	if label, err := strconv.Atoi(first); err == nil && label > 0 {
		return label, true
	}
	return 0, false
}

// Labels gibt die eindeutigen Labels sortiert zurück
func Labels(samples []Sample) []int {
	seen := make(map[int]bool)
	var labels []int
	for _, s := range samples {
		if !seen[s.Label] {
			seen[s.Label] = true
			labels = append(labels, s.Label)
		}
	}
	sort.Ints(labels)
	return labels
}
