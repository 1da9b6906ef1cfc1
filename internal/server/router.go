package server

import (
	"campus-face-id/config"
	"campus-face-id/internal/api/middleware"
	"campus-face-id/internal/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const sessionName = "campus-face"

// NewRouter erstellt die gin-Engine mit Logging, Recovery, CORS, Sessions und i18n.
// Die Routen registrieren die Handler selbst.
func NewRouter(cfg *config.Config, translator *middleware.Translator) *gin.Engine {
	router := gin.New()
	router.Use(logger.GinLogger(), gin.Recovery())
	router.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))

	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
	})
	router.Use(sessions.Sessions(sessionName, store))

	router.Use(middleware.I18n(translator))

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Accept-Language")

	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}
