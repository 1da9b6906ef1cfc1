package db

import (
	"fmt"

	"campus-face-id/internal/core/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultStudents sind die Datensätze, mit denen das mitgelieferte Modell trainiert wurde.
func DefaultStudents() []models.Student {
	return []models.Student{
		{
			ID:             1,
			Name:           "John Davis",
			Program:        "Computer Science",
			Year:           "3rd Year",
			Status:         "Active",
			StudentID:      "STU-10045",
			GPA:            "3.8",
			Email:          "john.davis@university.edu",
			EnrollmentDate: "Sept 2021",
			ResidenceHall:  "North Campus",
		},
		{
			ID:             2,
			Name:           "Emily Wong",
			Program:        "Electrical Engineering",
			Year:           "2nd Year",
			Status:         "Active",
			StudentID:      "STU-10872",
			GPA:            "3.95",
			Email:          "emily.wong@university.edu",
			EnrollmentDate: "Sept 2022",
			ResidenceHall:  "East Campus",
		},
		{
			ID:             3,
			Name:           "Harshil Bohra",
			Program:        "Information Technology",
			Year:           "2nd Year",
			Status:         "Active",
			StudentID:      "STU-09458",
			GPA:            "3.6",
			Email:          "harshil.bohra@university.edu",
			EnrollmentDate: "Sept 2023",
			ResidenceHall:  "South Campus",
		},
	}
}

// SeedStudents legt die Standarddatensätze an, solange das Verzeichnis leer ist.
func SeedStudents(database *gorm.DB) error {
	var count int64
	if err := database.Model(&models.Student{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count students: %w", err)
	}
	if count > 0 {
		log.Debugf("Student directory already has %d entries, skipping seed", count)
		return nil
	}

	students := DefaultStudents()
	if err := database.Create(&students).Error; err != nil {
		return fmt.Errorf("failed to seed students: %w", err)
	}
	log.Infof("Seeded student directory with %d entries", len(students))
	return nil
}
