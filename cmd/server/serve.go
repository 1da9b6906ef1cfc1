package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"campus-face-id/internal/api/handlers"
	"campus-face-id/internal/api/middleware"
	"campus-face-id/internal/core/processor"
	"campus-face-id/internal/db"
	"campus-face-id/internal/db/repository"
	"campus-face-id/internal/integrations/homeassistant"
	"campus-face-id/internal/integrations/mqtt"
	"campus-face-id/internal/integrations/opencv"
	"campus-face-id/internal/server"
	"campus-face-id/internal/server/sse"
	"campus-face-id/internal/services/cleanup"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recognition HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logCloser, err := setup()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Datenbank
	log.Info("Initializing database...")
	database, err := db.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close(database)
	repo := repository.NewSQLiteRepository(database)

	// OpenCV
	vision, err := opencv.NewService(cfg.OpenCV)
	if err != nil {
		return err
	}
	defer vision.Close()
	if !vision.Ready() {
		log.Warnf("No trained model at %s, recognition stays unavailable until the model is trained", cfg.OpenCV.ModelPath)
	}

	var debugSink processor.DebugSink
	if cfg.OpenCV.DebugImages > 0 {
		debugSink = vision.DebugSvc
	}

	// Erkennungspipeline
	imageProcessor := processor.NewImageProcessor(repo, vision, cfg, debugSink)
	pool := processor.NewWorkerPool(imageProcessor, cfg.Recognition)
	defer pool.Shutdown()

	sseHub := sse.NewHub()
	go sseHub.Run()
	defer sseHub.Stop()
	imageProcessor.AddNotifier(sseHub)

	// MQTT
	if cfg.MQTT.Enabled {
		mqttClient := mqtt.NewClient(cfg.MQTT)
		mqttClient.SetRecognizer(pool)
		imageProcessor.AddNotifier(mqttClient)
		if cfg.MQTT.HomeAssistantDiscovery {
			discovery := homeassistant.NewDiscoveryManager(mqttClient, cfg.MQTT.DiscoveryPrefix)
			mqttClient.OnConnect(func() {
				if err := discovery.Register(); err != nil {
					log.Warnf("Home Assistant discovery failed: %v", err)
				}
			})
		}
		if err := mqttClient.Start(); err != nil {
			log.Warnf("Failed to start MQTT client: %v. Continuing without MQTT.", err)
		}
		defer mqttClient.Stop()
	} else {
		log.Info("MQTT is disabled in config")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	cleanupService := cleanup.NewCleanupService(repo, cfg.Cleanup, cfg.Server.SnapshotDir)
	go cleanupService.Start(ctx)

	translator, err := middleware.NewTranslator(middleware.I18nConfig{
		DefaultLanguage: cfg.I18n.DefaultLanguage,
		LocalesDir:      cfg.I18n.LocalesDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize translations: %w", err)
	}

	// Router
	router := server.NewRouter(cfg, translator)
	api := router.Group("/api")
	handlers.NewAPIHandler(repo, cfg, pool, vision, vision, pool, sseHub).RegisterRoutes(api)
	if debugSink != nil {
		vision.DebugSvc.RegisterRoutes(api)
	}
	if cfg.Server.SnapshotDir != "" {
		router.Static("/snapshots", cfg.Server.SnapshotDir)
		log.Infof("Serving snapshots from %s under /snapshots/", cfg.Server.SnapshotDir)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	// SSE-Streams zuerst beenden, sonst wartet Shutdown auf sie
	sseHub.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Error during shutdown: %v", err)
	}

	log.Info("Server stopped")
	return nil
}
