package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix ist das Präfix für Umgebungsvariablen, z.B. CAMPUS_FACE_SERVER_PORT
const EnvPrefix = "CAMPUS_FACE"

// Config repräsentiert die Hauptkonfiguration der Anwendung
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	DB          DBConfig          `mapstructure:"db"`
	OpenCV      OpenCVConfig      `mapstructure:"opencv"`
	Recognition RecognitionConfig `mapstructure:"recognition"`
	MQTT        MQTTConfig        `mapstructure:"mqtt"`
	Cleanup     CleanupConfig     `mapstructure:"cleanup"`
	I18n        I18nConfig        `mapstructure:"i18n"`
}

// ServerConfig enthält Server-bezogene Einstellungen
type ServerConfig struct {
	Host                string   `mapstructure:"host"`
	Port                int      `mapstructure:"port"`
	DataDir             string   `mapstructure:"data_dir"`
	SnapshotDir         string   `mapstructure:"snapshot_dir"`
	Timezone            string   `mapstructure:"timezone"`
	CORSOrigins         []string `mapstructure:"cors_origins"`
	SessionSecret       string   `mapstructure:"session_secret"`
	MaxBodyMB           int      `mapstructure:"max_body_mb"`
	ReadTimeoutSeconds  int      `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `mapstructure:"write_timeout_seconds"`
}

// Addr gibt die Listen-Adresse des HTTP-Servers zurück
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig enthält Log-Einstellungen
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// DBConfig enthält Datenbankeinstellungen (SQLite)
type DBConfig struct {
	File         string `mapstructure:"file"`
	SeedStudents bool   `mapstructure:"seed_students"`
}

// OpenCVConfig enthält Einstellungen für Gesichtsdetektion und LBPH-Erkennung
type OpenCVConfig struct {
	CascadePath     string  `mapstructure:"cascade_path"`  // Haar-Cascade XML
	ModelPath       string  `mapstructure:"model_path"`    // trainiertes LBPH-Modell (trainer.yml)
	DatasetDir      string  `mapstructure:"dataset_dir"`   // Trainingsbilder
	ScaleFactor     float64 `mapstructure:"scale_factor"`  // detectMultiScale scaleFactor
	MinNeighbors    int     `mapstructure:"min_neighbors"` // detectMultiScale minNeighbors
	MinSizeWidth    int     `mapstructure:"min_size_width"`
	MinSizeHeight   int     `mapstructure:"min_size_height"`
	Radius          int     `mapstructure:"radius"`    // LBPH-Radius
	Neighbors       int     `mapstructure:"neighbors"` // LBPH-Nachbarn
	Threshold       float64 `mapstructure:"threshold"` // LBPH-Distanzschwelle, 0 = OpenCV-Standard
	SaveDebugImages bool    `mapstructure:"save_debug_images"`
	DebugImages     int     `mapstructure:"debug_images"` // Anzahl Debug-Bilder im Speicher
}

// RecognitionConfig enthält Einstellungen für die Erkennungspipeline
type RecognitionConfig struct {
	MinConfidence  float64 `mapstructure:"min_confidence"` // 0 deaktiviert die Prüfung
	Workers        int     `mapstructure:"workers"`        // 0 = automatisch
	QueueSize      int     `mapstructure:"queue_size"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// MQTTConfig enthält die Konfiguration für den MQTT-Client
type MQTTConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Broker         string `mapstructure:"broker"`
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	ClientID       string `mapstructure:"client_id"`
	TopicPrefix    string `mapstructure:"topic_prefix"`
	AcceptRequests bool   `mapstructure:"accept_requests"`

	HomeAssistantDiscovery bool   `mapstructure:"homeassistant_discovery"`
	DiscoveryPrefix        string `mapstructure:"discovery_prefix"`
}

// CleanupConfig enthält Bereinigungseinstellungen
type CleanupConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
	IntervalHours int `mapstructure:"interval_hours"`
}

// I18nConfig enthält Einstellungen für lokalisierte API-Meldungen
type I18nConfig struct {
	DefaultLanguage string `mapstructure:"default_language"`
	LocalesDir      string `mapstructure:"locales_dir"` // optional, überschreibt die eingebetteten Dateien
}

// Load lädt die Konfiguration aus .env, Datei, Umgebungsvariablen und Standardwerten
func Load(configPath string) (*Config, error) {
	// .env ist optional
	if err := godotenv.Load(); err == nil {
		log.Debug("Loaded environment from .env")
	}

	v := viper.New()

	// Standardwerte festlegen
	setDefaults(v)

	// Konfigurationsdatei laden, wenn vorhanden
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Warnf("Config file %s does not exist, using defaults", configPath)
		} else {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Infof("Config loaded from %s", configPath)
		}
	}

	// Umgebungsvariablen überlagern die Konfiguration
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	if err := ensureDirectories(&cfg); err != nil {
		return nil, fmt.Errorf("failed to create required directories: %w", err)
	}

	return &cfg, nil
}

// setDefaults legt Standardwerte für die Konfiguration fest
func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("server.snapshot_dir", "./data/snapshots")
	v.SetDefault("server.timezone", "UTC")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.session_secret", "campus-face-id")
	v.SetDefault("server.max_body_mb", 16)
	v.SetDefault("server.read_timeout_seconds", 30)
	v.SetDefault("server.write_timeout_seconds", 0) // SSE-Verbindungen sind langlebig

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	// DB
	v.SetDefault("db.file", "./data/campus-face.db")
	v.SetDefault("db.seed_students", true)

	// OpenCV
	v.SetDefault("opencv.cascade_path", "./Face/haarcascade_frontalface_default.xml")
	v.SetDefault("opencv.model_path", "./Face/trainer/trainer.yml")
	v.SetDefault("opencv.dataset_dir", "./Face/dataset")
	v.SetDefault("opencv.scale_factor", 1.3)
	v.SetDefault("opencv.min_neighbors", 5)
	v.SetDefault("opencv.min_size_width", 0)
	v.SetDefault("opencv.min_size_height", 0)
	v.SetDefault("opencv.radius", 1)
	v.SetDefault("opencv.neighbors", 8)
	v.SetDefault("opencv.threshold", 0.0)
	v.SetDefault("opencv.save_debug_images", false)
	v.SetDefault("opencv.debug_images", 30)

	// Recognition
	v.SetDefault("recognition.min_confidence", 0.0)
	v.SetDefault("recognition.workers", 0)
	v.SetDefault("recognition.queue_size", 32)
	v.SetDefault("recognition.timeout_seconds", 20)

	// MQTT
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.client_id", "campus-face-id")
	v.SetDefault("mqtt.topic_prefix", "campus-face")
	v.SetDefault("mqtt.accept_requests", false)
	v.SetDefault("mqtt.homeassistant_discovery", false)
	v.SetDefault("mqtt.discovery_prefix", "homeassistant")

	// Cleanup
	v.SetDefault("cleanup.retention_days", 30)
	v.SetDefault("cleanup.interval_hours", 24)

	// I18n
	v.SetDefault("i18n.default_language", "en")
	v.SetDefault("i18n.locales_dir", "")
}

// ensureDirectories stellt sicher, dass alle erforderlichen Verzeichnisse existieren
func ensureDirectories(cfg *Config) error {
	if cfg.Server.DataDir != "" {
		if err := os.MkdirAll(cfg.Server.DataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	if cfg.Server.SnapshotDir != "" {
		if err := os.MkdirAll(cfg.Server.SnapshotDir, 0755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	// Datenbank-Verzeichnis (für SQLite)
	if cfg.DB.File != "" && !strings.HasPrefix(cfg.DB.File, "file:") {
		if err := os.MkdirAll(filepath.Dir(cfg.DB.File), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Modellverzeichnis, damit Training das Modell ablegen kann
	if cfg.OpenCV.ModelPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OpenCV.ModelPath), 0755); err != nil {
			return fmt.Errorf("failed to create model directory: %w", err)
		}
	}

	return nil
}
