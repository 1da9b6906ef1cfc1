package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"campus-face-id/config"
	"campus-face-id/internal/core/models"
	"campus-face-id/internal/db"
	"campus-face-id/internal/db/repository"
)

func newTestRepo(t *testing.T, name string) *repository.SQLiteRepository {
	t.Helper()
	database, err := db.Open(config.DBConfig{File: "file:" + name + "?mode=memory&cache=shared"})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close(database) })
	return repository.NewSQLiteRepository(database)
}

func TestRunCleanup(t *testing.T) {
	repo := newTestRepo(t, "cleanup_run")
	snapshotDir := t.TempDir()

	now := time.Now()
	records := []*models.Recognition{
		{RequestID: "old-with-image", Source: "http", DebugImage: "old.jpg", CreatedAt: now.AddDate(0, 0, -10)},
		{RequestID: "old-missing-file", Source: "http", DebugImage: "gone.jpg", CreatedAt: now.AddDate(0, 0, -9)},
		{RequestID: "recent", Source: "http", DebugImage: "recent.jpg", CreatedAt: now.AddDate(0, 0, -1)},
	}
	for _, rec := range records {
		if err := repo.SaveRecognition(rec); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	for _, name := range []string{"old.jpg", "recent.jpg"} {
		if err := os.WriteFile(filepath.Join(snapshotDir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	svc := NewCleanupService(repo, config.CleanupConfig{RetentionDays: 7}, snapshotDir)
	svc.now = func() time.Time { return now }

	report, err := svc.RunCleanup(context.Background())
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if report.Recognitions != 2 || report.Files != 1 || report.Errors != 0 {
		t.Errorf("unexpected report: %+v", report)
	}

	if _, err := os.Stat(filepath.Join(snapshotDir, "old.jpg")); !os.IsNotExist(err) {
		t.Error("expected old debug image to be removed")
	}
	if _, err := os.Stat(filepath.Join(snapshotDir, "recent.jpg")); err != nil {
		t.Error("expected recent debug image to be kept")
	}

	_, total, err := repo.GetRecognitions(repository.RecognitionFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 {
		t.Errorf("expected 1 remaining record, got %d", total)
	}
}

func TestRunCleanup_Disabled(t *testing.T) {
	repo := newTestRepo(t, "cleanup_disabled")
	if err := repo.SaveRecognition(&models.Recognition{RequestID: "old", Source: "http", CreatedAt: time.Now().AddDate(-1, 0, 0)}); err != nil {
		t.Fatal(err)
	}

	svc := NewCleanupService(repo, config.CleanupConfig{RetentionDays: 0}, "")
	report, err := svc.RunCleanup(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Recognitions != 0 {
		t.Errorf("expected nothing deleted, got %+v", report)
	}
}

func TestStart_StopsWithContext(t *testing.T) {
	repo := newTestRepo(t, "cleanup_start")
	svc := NewCleanupService(repo, config.CleanupConfig{RetentionDays: 1, IntervalHours: 1}, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup service did not stop")
	}
}
