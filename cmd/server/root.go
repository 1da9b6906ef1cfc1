package main

import (
	"fmt"
	"io"

	"campus-face-id/config"
	"campus-face-id/internal/logger"
	"campus-face-id/internal/util/timezone"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "./config/config.yaml"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "campus-face",
	Short: "Face recognition service for campus security",
	Long: `campus-face identifies students from camera frames. It detects the face
with a Haar cascade, classifies it with an LBPH model and returns the matching
student record. Without a subcommand the HTTP server is started.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to the YAML config file")
}

// setup lädt die Konfiguration und initialisiert Logger und Zeitzone
func setup() (*config.Config, io.Closer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	closer, err := logger.Init(cfg.Log)
	if err != nil {
		log.Errorf("Failed to initialize logger completely: %v", err)
	}

	timezone.Initialize(cfg.Server.Timezone)
	return cfg, closer, nil
}
