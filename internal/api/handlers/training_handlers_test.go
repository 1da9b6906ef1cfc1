package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"campus-face-id/internal/core/processor"
)

func TestAddSample(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/students/2/samples", imageBody)
	assertStatusCode(t, w, http.StatusOK)

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	parseJSONResponse(t, w, &resp)
	if !resp.Success || resp.Message != "Training sample added for Emily Wong" {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(env.trainer.labels) != 1 || env.trainer.labels[0] != 2 {
		t.Errorf("expected sample for label 2, got %v", env.trainer.labels)
	}
}

func TestAddSample_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		trainerErr error
		status     int
	}{
		{"unknown student", "/api/students/9/samples", imageBody, nil, http.StatusNotFound},
		{"missing image", "/api/students/1/samples", `{}`, nil, http.StatusBadRequest},
		{"invalid base64", "/api/students/1/samples", `{"image":"***"}`, nil, http.StatusBadRequest},
		{"no face", "/api/students/1/samples", imageBody, processor.ErrNoFace, http.StatusUnprocessableEntity},
		{"undecodable", "/api/students/1/samples", imageBody, processor.ErrUndecodableImage, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.trainer.err = tt.trainerErr

			w := env.do(t, http.MethodPost, tt.path, tt.body)
			assertStatusCode(t, w, tt.status)
			if len(env.trainer.labels) != 0 {
				t.Errorf("no sample should be stored, got %v", env.trainer.labels)
			}
		})
	}
}

func TestTrain(t *testing.T) {
	env := newTestEnv(t)

	dir := env.cfg.OpenCV.DatasetDir
	for _, name := range []string{"User.1.1.jpg", "User.1.2.jpg", "User.2.1.png", "notes.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("img"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	w := env.do(t, http.MethodPost, "/api/train", "")
	assertStatusCode(t, w, http.StatusOK)

	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Report  struct {
			Images  int      `json:"images"`
			Labels  []int    `json:"labels"`
			Skipped []string `json:"skipped"`
		} `json:"report"`
	}
	parseJSONResponse(t, w, &resp)
	if !resp.Success || resp.Report.Images != 3 {
		t.Errorf("unexpected response %+v", resp)
	}
	if len(resp.Report.Labels) != 2 {
		t.Errorf("expected labels 1 and 2, got %v", resp.Report.Labels)
	}
	if len(resp.Report.Skipped) != 1 {
		t.Errorf("expected notes.jpg to be skipped, got %v", resp.Report.Skipped)
	}
	if resp.Message != "Model trained on 3 faces from 3 images" {
		t.Errorf("unexpected message %q", resp.Message)
	}
}

func TestTrain_EmptyDataset(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/train", "")
	assertStatusCode(t, w, http.StatusBadRequest)
	if len(env.trainer.samples) != 0 {
		t.Error("trainer must not run on an empty dataset")
	}
}

func TestTrain_NoFaces(t *testing.T) {
	env := newTestEnv(t)
	env.trainer.err = processor.ErrNoFace

	if err := os.WriteFile(filepath.Join(env.cfg.OpenCV.DatasetDir, "User.1.1.jpg"), []byte("img"), 0644); err != nil {
		t.Fatal(err)
	}

	w := env.do(t, http.MethodPost, "/api/train", "")
	assertStatusCode(t, w, http.StatusUnprocessableEntity)
}
