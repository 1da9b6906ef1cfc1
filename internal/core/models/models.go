package models

import (
	"time"

	"gorm.io/datatypes"
)

// Student ist ein Eintrag im Studierendenverzeichnis. Die ID ist zugleich das
// Label, unter dem das LBPH-Modell das Gesicht trainiert hat.
type Student struct {
	ID             uint      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	Program        string    `json:"program"`
	Year           string    `json:"year"`
	Status         string    `gorm:"index" json:"status"`
	StudentID      string    `gorm:"uniqueIndex;not null" json:"studentId"`
	GPA            string    `json:"gpa"`
	Email          string    `json:"email"`
	EnrollmentDate string    `json:"enrollmentDate"`
	ResidenceHall  string    `json:"residenceHall"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}

// Label gibt das LBPH-Label des Studierenden zurück
func (s Student) Label() int {
	return int(s.ID)
}

// BoundingBox beschreibt das erkannte Gesicht im Bild
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Recognition protokolliert einen Erkennungsversuch
type Recognition struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	RequestID   string         `gorm:"index;not null" json:"request_id"`
	Source      string         `gorm:"index" json:"source"` // "http", "mqtt"
	Success     bool           `gorm:"index" json:"success"`
	Label       *int           `json:"label,omitempty"`
	StudentID   *uint          `gorm:"index" json:"student_id,omitempty"`
	Confidence  *float64       `json:"confidence,omitempty"`
	Distance    *float64       `json:"distance,omitempty"`
	FacesFound  int            `json:"faces_found"`
	BoundingBox datatypes.JSON `gorm:"type:json" json:"bounding_box,omitempty"`
	Error       string         `json:"error,omitempty"`
	DebugImage  string         `json:"debug_image,omitempty"` // Dateiname im Snapshot-Verzeichnis
	DurationMs  int64          `json:"duration_ms"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	Student     *Student       `gorm:"foreignKey:StudentID;constraint:OnDelete:SET NULL;" json:"student,omitempty"`
}

// Statistics fasst den Zustand des Verzeichnisses und des Erkennungsprotokolls zusammen
type Statistics struct {
	Students           int64      `json:"students"`
	TotalRecognitions  int64      `json:"total_recognitions"`
	SuccessfulMatches  int64      `json:"successful_matches"`
	FailedRecognitions int64      `json:"failed_recognitions"`
	LatestRecognition  *time.Time `json:"latest_recognition,omitempty"`
}
