package cleanup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"campus-face-id/config"
	"campus-face-id/internal/db/repository"

	log "github.com/sirupsen/logrus"
)

// CleanupService ist verantwortlich für die automatische Bereinigung alter Daten
type CleanupService struct {
	repo          repository.Repository
	config        config.CleanupConfig
	snapshotDir   string
	checkInterval time.Duration
	now           func() time.Time
}

// Report fasst einen Bereinigungslauf zusammen
type Report struct {
	Recognitions int
	Files        int
	Errors       int
}

// NewCleanupService erstellt einen neuen Cleanup-Service
func NewCleanupService(repo repository.Repository, cfg config.CleanupConfig, snapshotDir string) *CleanupService {
	interval := time.Duration(cfg.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &CleanupService{
		repo:          repo,
		config:        cfg,
		snapshotDir:   snapshotDir,
		checkInterval: interval,
		now:           time.Now,
	}
}

// Start startet den Bereinigungsdienst; blockiert bis ctx beendet ist
func (s *CleanupService) Start(ctx context.Context) {
	log.Info("Cleanup service started")

	if _, err := s.RunCleanup(ctx); err != nil {
		log.Errorf("Initial cleanup failed: %v", err)
	}

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			log.Info("Running scheduled cleanup")
			if _, err := s.RunCleanup(ctx); err != nil {
				log.Errorf("Scheduled cleanup failed: %v", err)
			}
		case <-ctx.Done():
			log.Info("Cleanup service stopped")
			return
		}
	}
}

// RunCleanup löscht Protokolleinträge und Debug-Bilder, die älter als die Aufbewahrungsfrist sind
func (s *CleanupService) RunCleanup(ctx context.Context) (*Report, error) {
	report := &Report{}
	if s.config.RetentionDays <= 0 {
		log.Info("Cleanup disabled (retention days <= 0)")
		return report, nil
	}

	cutoff := s.now().AddDate(0, 0, -s.config.RetentionDays)
	log.Infof("Cleaning up data older than %s", cutoff.Format("2006-01-02"))

	old, err := s.repo.DeleteRecognitionsBefore(cutoff)
	if err != nil {
		return report, fmt.Errorf("failed to clean up recognitions: %w", err)
	}
	report.Recognitions = len(old)

	for _, rec := range old {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if rec.DebugImage == "" || s.snapshotDir == "" {
			continue
		}
		// Nur Dateinamen zulassen, keine Pfade
		filePath := filepath.Join(s.snapshotDir, filepath.Base(rec.DebugImage))
		if err := os.Remove(filePath); err != nil {
			if !os.IsNotExist(err) {
				log.Warnf("Failed to delete debug image %s: %v", filePath, err)
				report.Errors++
			}
			continue
		}
		report.Files++
	}

	log.Infof("Cleanup completed: deleted %d recognitions and %d files, encountered %d errors",
		report.Recognitions, report.Files, report.Errors)
	return report, nil
}
