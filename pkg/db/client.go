package db

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/angelmondragon/techstore-checkout/pkg/config"
	"github.com/angelmondragon/techstore-checkout/pkg/db/models"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Client wraps the shared GORM connection.
type Client struct {
	conn *gorm.DB
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New opens the sqlite or postgres database selected by the storage config and
// migrates the slot table.
func New(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Client, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	client := &Client{conn: conn}
	if err := client.Migrate(ctx); err != nil {
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "driver", cfg.Driver), "database connection established")
	}
	return client, nil
}

// NewFromConn wraps an already-open connection.
func NewFromConn(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func dialectorFor(cfg config.StorageConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.StorageSQLite:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		return sqlite.Open(cfg.SQLitePath), nil
	case config.StoragePostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("database DSN is required")
		}
		return postgres.New(postgres.Config{
			DSN:                  cfg.PostgresDSN,
			PreferSimpleProtocol: true,
		}), nil
	default:
		return nil, fmt.Errorf("driver %q is not backed by a database", cfg.Driver)
	}
}

// Migrate creates or updates the tables this service owns.
func (c *Client) Migrate(ctx context.Context) error {
	if err := c.conn.WithContext(ctx).AutoMigrate(&models.StorageSlot{}); err != nil {
		return fmt.Errorf("migrating storage slots: %w", err)
	}
	return nil
}

// DB returns the underlying GORM connection.
func (c *Client) DB() *gorm.DB {
	return c.conn
}

// Ping verifies the datasource is reachable.
func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close shuts down the pooled connections.
func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
