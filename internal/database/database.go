package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/config"
	logging "github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/logging"
	"github.com/sjshim/Self-Regulation-Ontology-Neuro/internal/models"
)

var DB *gorm.DB

// Init opens the configured database into DB and migrates the schema.
func Init(cfg config.DatabaseConfig, log *zap.Logger) error {
	db, err := Open(cfg, log)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects with the configured driver and migrates the schema.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.Host, cfg.User, cfg.Password, cfg.DBName, cfg.Port)
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logging.NewGormZapLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("Database connection established successfully.", zap.String("driver", dialector.Name()))

	if err := runMigrations(db); err != nil {
		return nil, err
	}
	log.Info("Database migrations completed successfully.")
	return db, nil
}

func runMigrations(db *gorm.DB) error {
	// AutoMigrate creates tables, columns and foreign keys; the composite
	// index for metric timelines is created separately.
	err := db.AutoMigrate(
		&models.ProcessingRun{},
		&models.UnitResult{},
		&models.UnitMetric{},
	)
	if err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	metricsIndex := `CREATE INDEX IF NOT EXISTS idx_unit_metrics_key ON unit_metrics (metric_key, unit_result_id);`
	if err := db.Exec(metricsIndex).Error; err != nil {
		return fmt.Errorf("failed to create index on unit_metrics: %w", err)
	}
	return nil
}
