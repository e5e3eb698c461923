// Package local implements the gateway interfaces in-process: rows in a
// gorm-managed database, objects on the local filesystem, and password auth
// with bcrypt credentials and HS256 tokens. It backs development mode and
// the test suites, so the rest of the application sees the exact surface the
// remote backend exposes.
package local

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// User is the credential row behind the local auth surface.
type User struct {
	ID        string    `gorm:"primaryKey"`
	Email     string    `gorm:"uniqueIndex;not null"`
	Password  string    `gorm:"not null"`
	CreatedAt time.Time
}

// Gateway is an in-process backend. It satisfies gateway.Gateway.
type Gateway struct {
	db        *gorm.DB
	jwtSecret []byte
	tokenTTL  time.Duration
	mediaDir  string
	mediaBase string
	log       *slog.Logger

	mu      sync.Mutex
	session *models.Session

	changes chan *models.Session
}

// Open connects to the configured database, migrates the schema, and returns
// a ready gateway.
func Open(cfg *config.Config, log *slog.Logger) (*Gateway, error) {
	if log == nil {
		log = slog.Default()
	}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
		dialector = postgres.Open(dsn)
	default:
		dialector = sqlite.Open(cfg.DBPath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := db.AutoMigrate(&User{}, &models.Blog{}, &models.Comment{}); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &Gateway{
		db:        db,
		jwtSecret: []byte(cfg.JWTSecret),
		tokenTTL:  24 * time.Hour,
		mediaDir:  cfg.MediaDir,
		mediaBase: cfg.MediaBaseURL,
		log:       log,
		changes:   make(chan *models.Session, 16),
	}, nil
}

// MediaDir returns the directory objects are written under, for static serving.
func (g *Gateway) MediaDir() string {
	return g.mediaDir
}

// SessionChanges delivers a session snapshot on every auth transition.
func (g *Gateway) SessionChanges() <-chan *models.Session {
	return g.changes
}

// setSession stores the session and emits a change event without ever
// blocking the calling operation.
func (g *Gateway) setSession(s *models.Session) {
	g.mu.Lock()
	g.session = s
	g.mu.Unlock()
	select {
	case g.changes <- s:
	default:
		select {
		case <-g.changes:
		default:
		}
		select {
		case g.changes <- s:
		default:
		}
	}
}
