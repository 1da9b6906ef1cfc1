package repository

import (
	"errors"
	"fmt"
	"time"

	"campus-face-id/internal/core/models"

	"gorm.io/gorm"
)

// ErrStudentNotFound wird zurückgegeben, wenn kein Studierender zum Label existiert
var ErrStudentNotFound = errors.New("student not found")

// ErrStudentExists wird beim Anlegen eines bereits vergebenen Labels zurückgegeben
var ErrStudentExists = errors.New("student already exists")

// Repository definiert die Schnittstelle für die Datenbank-Operationen
type Repository interface {
	// Studierende
	GetStudentByLabel(label int) (*models.Student, error)
	GetStudents() ([]models.Student, error)
	CreateStudent(student *models.Student) error
	UpdateStudent(student *models.Student) error
	DeleteStudent(label int) error

	// Erkennungsprotokoll
	SaveRecognition(rec *models.Recognition) error
	GetRecognitions(filter RecognitionFilter) ([]models.Recognition, int64, error)
	DeleteRecognitionsBefore(cutoff time.Time) ([]models.Recognition, error)

	GetStatistics() (models.Statistics, error)
}

// RecognitionFilter schränkt die Protokollabfrage ein
type RecognitionFilter struct {
	Limit   int
	Offset  int
	Success *bool
}

// SQLiteRepository implementiert die Repository-Schnittstelle für SQLite
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository erstellt eine neue SQLite-Repository-Instanz
func NewSQLiteRepository(db *gorm.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetStudentByLabel holt einen Studierenden anhand des LBPH-Labels
func (r *SQLiteRepository) GetStudentByLabel(label int) (*models.Student, error) {
	if label <= 0 {
		return nil, ErrStudentNotFound
	}
	var student models.Student
	if err := r.db.First(&student, label).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return &student, nil
}

// GetStudents holt alle Studierenden sortiert nach Label
func (r *SQLiteRepository) GetStudents() ([]models.Student, error) {
	var students []models.Student
	if err := r.db.Order("id ASC").Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

// CreateStudent legt einen Studierenden an
func (r *SQLiteRepository) CreateStudent(student *models.Student) error {
	if student.ID == 0 {
		return fmt.Errorf("student label must be positive")
	}
	var count int64
	if err := r.db.Model(&models.Student{}).
		Where("id = ? OR student_id = ?", student.ID, student.StudentID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrStudentExists
	}
	return r.db.Create(student).Error
}

// UpdateStudent aktualisiert einen vorhandenen Studierenden
func (r *SQLiteRepository) UpdateStudent(student *models.Student) error {
	if _, err := r.GetStudentByLabel(int(student.ID)); err != nil {
		return err
	}
	var count int64
	if err := r.db.Model(&models.Student{}).
		Where("student_id = ? AND id <> ?", student.StudentID, student.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrStudentExists
	}
	return r.db.Save(student).Error
}

// DeleteStudent löscht einen Studierenden
func (r *SQLiteRepository) DeleteStudent(label int) error {
	result := r.db.Delete(&models.Student{}, label)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStudentNotFound
	}
	return nil
}

// SaveRecognition speichert einen Erkennungsversuch
func (r *SQLiteRepository) SaveRecognition(rec *models.Recognition) error {
	return r.db.Create(rec).Error
}

// GetRecognitions holt Protokolleinträge, neueste zuerst
func (r *SQLiteRepository) GetRecognitions(filter RecognitionFilter) ([]models.Recognition, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if filter.Success != nil {
			return db.Where("success = ?", *filter.Success)
		}
		return db
	}

	var total int64
	if err := r.db.Model(&models.Recognition{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	var recs []models.Recognition
	if err := r.db.Scopes(scope).
		Preload("Student").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&recs).Error; err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// DeleteRecognitionsBefore löscht alte Einträge und gibt sie zurück, damit
// zugehörige Dateien entfernt werden können
func (r *SQLiteRepository) DeleteRecognitionsBefore(cutoff time.Time) ([]models.Recognition, error) {
	var old []models.Recognition
	if err := r.db.Where("created_at < ?", cutoff).Find(&old).Error; err != nil {
		return nil, fmt.Errorf("failed to find old recognitions: %w", err)
	}
	if len(old) == 0 {
		return nil, nil
	}
	if err := r.db.Where("created_at < ?", cutoff).Delete(&models.Recognition{}).Error; err != nil {
		return nil, fmt.Errorf("failed to delete old recognitions: %w", err)
	}
	return old, nil
}

// GetStatistics berechnet Kennzahlen
func (r *SQLiteRepository) GetStatistics() (models.Statistics, error) {
	var stats models.Statistics

	if err := r.db.Model(&models.Student{}).Count(&stats.Students).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&models.Recognition{}).Count(&stats.TotalRecognitions).Error; err != nil {
		return stats, err
	}
	if err := r.db.Model(&models.Recognition{}).Where("success = ?", true).Count(&stats.SuccessfulMatches).Error; err != nil {
		return stats, err
	}
	stats.FailedRecognitions = stats.TotalRecognitions - stats.SuccessfulMatches

	var latest models.Recognition
	err := r.db.Order("created_at DESC").First(&latest).Error
	switch {
	case err == nil:
		t := latest.CreatedAt
		stats.LatestRecognition = &t
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return stats, err
	}

	return stats, nil
}
