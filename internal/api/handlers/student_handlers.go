package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"campus-face-id/internal/api/middleware"
	"campus-face-id/internal/core/models"
	"campus-face-id/internal/db/repository"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// labelParam liest das Label aus :id; false bedeutet, dass bereits geantwortet wurde
func labelParam(c *gin.Context) (int, bool) {
	label, err := strconv.Atoi(c.Param("id"))
	if err != nil || label <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": middleware.T(c, "error.invalid_id")})
		return 0, false
	}
	return label, true
}

// studentError ordnet Repository-Fehlern Statuscode und Meldung zu
func studentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrStudentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": middleware.T(c, "error.student_not_found")})
	case errors.Is(err, repository.ErrStudentExists):
		c.JSON(http.StatusConflict, gin.H{"error": middleware.T(c, "error.student_exists")})
	default:
		log.Errorf("Student directory error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func validateStudent(s *models.Student) error {
	if s.ID == 0 {
		return errors.New("id must be a positive label")
	}
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(s.StudentID) == "" {
		return errors.New("studentId is required")
	}
	return nil
}

// ListStudents gibt alle Studierenden zurück
func (h *APIHandler) ListStudents(c *gin.Context) {
	students, err := h.repo.GetStudents()
	if err != nil {
		studentError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

// GetStudent gibt einen Studierenden zurück
func (h *APIHandler) GetStudent(c *gin.Context) {
	label, ok := labelParam(c)
	if !ok {
		return
	}
	student, err := h.repo.GetStudentByLabel(label)
	if err != nil {
		studentError(c, err)
		return
	}
	c.JSON(http.StatusOK, student)
}

// CreateStudent legt einen Studierenden an; id ist das LBPH-Label
func (h *APIHandler) CreateStudent(c *gin.Context) {
	var student models.Student
	if err := c.ShouldBindJSON(&student); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": middleware.T(c, "error.invalid_student", map[string]interface{}{"Error": err.Error()})})
		return
	}
	if err := validateStudent(&student); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": middleware.T(c, "error.invalid_student", map[string]interface{}{"Error": err.Error()})})
		return
	}

	if err := h.repo.CreateStudent(&student); err != nil {
		studentError(c, err)
		return
	}

	log.Infof("Created student %s (label %d)", student.Name, student.ID)
	c.JSON(http.StatusCreated, student)
}

// UpdateStudent überschreibt die im Body enthaltenen Felder eines Studierenden
func (h *APIHandler) UpdateStudent(c *gin.Context) {
	label, ok := labelParam(c)
	if !ok {
		return
	}
	student, err := h.repo.GetStudentByLabel(label)
	if err != nil {
		studentError(c, err)
		return
	}

	if err := c.ShouldBindJSON(student); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": middleware.T(c, "error.invalid_student", map[string]interface{}{"Error": err.Error()})})
		return
	}
	// Das Label ist der Schlüssel des Modells und bleibt unverändert
	student.ID = uint(label)
	if err := validateStudent(student); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": middleware.T(c, "error.invalid_student", map[string]interface{}{"Error": err.Error()})})
		return
	}

	if err := h.repo.UpdateStudent(student); err != nil {
		studentError(c, err)
		return
	}
	c.JSON(http.StatusOK, student)
}

// DeleteStudent löscht einen Studierenden
func (h *APIHandler) DeleteStudent(c *gin.Context) {
	label, ok := labelParam(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteStudent(label); err != nil {
		studentError(c, err)
		return
	}
	log.Infof("Deleted student with label %d", label)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": middleware.T(c, "student.deleted")})
}
