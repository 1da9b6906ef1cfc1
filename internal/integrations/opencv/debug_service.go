package opencv

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// DebugImage repräsentiert ein annotiertes Erkennungsbild
type DebugImage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
	Faces     int       `json:"faces"`
	ImageData []byte    `json:"-"`
}

// DebugService speichert die letzten annotierten Erkennungsbilder im Speicher
type DebugService struct {
	images     map[string]*DebugImage
	imagesList []*DebugImage // zeitlich sortiert, ältestes zuerst
	maxImages  int
	mutex      sync.RWMutex
}

// NewDebugService erstellt einen neuen Debug-Service
func NewDebugService(maxImages int) *DebugService {
	if maxImages <= 0 {
		maxImages = 20
	}

	return &DebugService{
		images:     make(map[string]*DebugImage),
		imagesList: make([]*DebugImage, 0, maxImages),
		maxImages:  maxImages,
	}
}

// AddDebugImage fügt ein neues Debug-Bild hinzu oder ersetzt ein vorhandenes
func (s *DebugService) AddDebugImage(id, source string, imgData []byte, faces int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	debugImg := &DebugImage{
		ID:        id,
		Timestamp: time.Now(),
		Source:    source,
		Faces:     faces,
		ImageData: imgData,
	}

	if _, exists := s.images[id]; exists {
		s.images[id] = debugImg
		for i, img := range s.imagesList {
			if img.ID == id {
				s.imagesList[i] = debugImg
				break
			}
		}
	} else {
		s.images[id] = debugImg
		s.imagesList = append(s.imagesList, debugImg)

		if len(s.imagesList) > s.maxImages {
			oldest := s.imagesList[0]
			delete(s.images, oldest.ID)
			s.imagesList = s.imagesList[1:]
		}
	}

	log.Debugf("Debug image stored: %s with %d face(s)", id, faces)
}

// GetLatestImages gibt die neuesten Debug-Bilder zurück, neuestes zuerst
func (s *DebugService) GetLatestImages(count int) []*DebugImage {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if count <= 0 || count > len(s.imagesList) {
		count = len(s.imagesList)
	}

	result := make([]*DebugImage, 0, count)
	for i := len(s.imagesList) - 1; i >= len(s.imagesList)-count; i-- {
		result = append(result, s.imagesList[i])
	}
	return result
}

// GetImage gibt ein bestimmtes Bild anhand seiner ID zurück
func (s *DebugService) GetImage(id string) *DebugImage {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.images[id]
}

// RegisterRoutes registriert die API-Routen für den Debug-Service
func (s *DebugService) RegisterRoutes(router gin.IRoutes) {
	router.GET("/debug/recognitions", s.handleGetLatestImages)
	router.GET("/debug/recognitions/:id", s.handleGetImage)
}

func (s *DebugService) handleGetLatestImages(c *gin.Context) {
	count, _ := strconv.Atoi(c.DefaultQuery("count", "0"))
	c.JSON(http.StatusOK, gin.H{"images": s.GetLatestImages(count)})
}

func (s *DebugService) handleGetImage(c *gin.Context) {
	img := s.GetImage(c.Param("id"))
	if img == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "debug image not found"})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", img.ImageData)
}
