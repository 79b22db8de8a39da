package cmd

import (
	"context"
	"dashboard-bootstrap/internal/config"
	"dashboard-bootstrap/internal/database"
	"dashboard-bootstrap/internal/messaging"
	"dashboard-bootstrap/internal/storage"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func LoadEnvFile(configPath string) error {
	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return nil
	}

	log.Printf("loading env from file %s", configPath)
	if err := godotenv.Load(configPath); err != nil {
		return fmt.Errorf("error loading .env file '%s': %w", configPath, err)
	}
	return nil
}

func Hostname() string {
	host, err := os.Hostname()
	if err != nil {
		slog.Warn("unable to determine hostname", "error", err)
		return "unknown"
	}
	return host
}

// CreateObjectStore returns a local directory store when LOCAL_ARTIFACT_DIR
// is set, and an S3 store otherwise. progress may be nil.
func CreateObjectStore(ctx context.Context, cfg *config.Config, progress io.Writer) (storage.ObjectStore, error) {
	if cfg.LocalArtifactDir != "" {
		slog.Info("using local artifact directory", "dir", cfg.LocalArtifactDir)
		return storage.NewLocalObjectStore(cfg.LocalArtifactDir)
	}

	store, err := storage.NewS3ObjectStore(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3EndpointURL,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Anonymous:       cfg.S3Anonymous,
	})
	if err != nil {
		return nil, err
	}
	if progress != nil && cfg.ShowDownloadProgress {
		store = store.WithProgress(progress)
	}
	return store, nil
}

func OpenLedger(cfg *config.Config) (*gorm.DB, error) {
	if cfg.LedgerDSN == "" {
		return nil, fmt.Errorf("LEDGER_DSN is not set")
	}
	return database.NewDatabase(cfg.LedgerDSN)
}

// CreatePublisher connects to RabbitMQ when RABBITMQ_URL is set. Without a
// broker, events are dropped.
func CreatePublisher(cfg *config.Config) (messaging.Publisher, error) {
	if cfg.RabbitMQURL == "" {
		return messaging.NoopPublisher{}, nil
	}
	return messaging.NewRabbitMQPublisher(cfg.RabbitMQURL)
}
