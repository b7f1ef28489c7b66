package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shravan4518/ppsrest/pkg/config"
	"github.com/shravan4518/ppsrest/pkg/database/models"
	"github.com/shravan4518/ppsrest/pkg/database/repositories"
)

type DB struct {
	*gorm.DB
}

// NewConnection opens the simulator's database. The driver is selected
// by configuration: "postgres" for deployments, "sqlite" for local runs
// and tests (the database name is the file path, ":memory:" included).
func NewConnection(cfg *config.Config) (*DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	var db *gorm.DB
	var err error

	switch cfg.Database.Driver {
	case "postgres":
		dsn := buildDSN(cfg.Database.Host, cfg.Database.Port, cfg.Database.Username,
			cfg.Database.Password, cfg.Database.Database, cfg.Database.SSLMode)

		debugDSN := dsn
		if cfg.Database.Password != "" {
			debugDSN = strings.Replace(dsn, fmt.Sprintf("password=%s", cfg.Database.Password), "password=***", 1)
		}
		log.Printf("database: connecting with DSN %s", debugDSN)

		db, err = gorm.Open(postgres.Open(dsn), gormConfig)
	case "sqlite":
		log.Printf("database: opening sqlite database %s", cfg.Database.Database)
		db, err = gorm.Open(sqlite.Open(cfg.Database.Database), gormConfig)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	return &DB{db}, nil
}

func (db *DB) AutoMigrate() error {
	log.Println("database: running auto-migration...")

	err := db.DB.AutoMigrate(
		&models.AdminUser{},
		&models.ProfiledDevice{},
		&models.ProfilerConfig{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	log.Println("database: auto-migration completed")
	return nil
}

// BootstrapInitialAdmin creates the initial REST admin account if one is
// configured and no account with that username exists yet.
func (db *DB) BootstrapInitialAdmin(cfg *config.Config) error {
	if !cfg.InitialAdmin.Enabled {
		log.Println("database: initial admin not enabled, skipping creation")
		return nil
	}
	if cfg.InitialAdmin.Username == "" || cfg.InitialAdmin.Password == "" {
		return fmt.Errorf("initial admin enabled but username or password missing")
	}

	adminRepo := repositories.NewAdminUserRepository(db.DB)
	if _, err := adminRepo.GetByUsername(cfg.InitialAdmin.Username); err == nil {
		log.Printf("database: initial admin %s already exists", cfg.InitialAdmin.Username)
		return nil
	}

	admin := &models.AdminUser{
		Username: cfg.InitialAdmin.Username,
		Enabled:  true,
	}
	if err := admin.SetPassword(cfg.InitialAdmin.Password); err != nil {
		return fmt.Errorf("failed to hash initial admin password: %w", err)
	}
	if err := adminRepo.Create(admin); err != nil {
		return fmt.Errorf("failed to create initial admin: %w", err)
	}

	log.Printf("database: initial admin %s created", cfg.InitialAdmin.Username)
	return nil
}

func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func buildDSN(host string, port int, username, password, database, sslmode string) string {
	parts := []string{
		fmt.Sprintf("host=%s", host),
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("user=%s", username),
		fmt.Sprintf("dbname=%s", database),
		fmt.Sprintf("sslmode=%s", sslmode),
	}
	if password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", password))
	}
	return strings.Join(parts, " ")
}
