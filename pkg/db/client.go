package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/cakeverse/cakeverse-backend/pkg/config"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

// Client owns the process-wide GORM pool. Every wallet movement runs inside
// exactly one WithTx unit.
type Client struct {
	conn *gorm.DB
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// New opens the pool described by cfg and verifies it answers a ping.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	conn, err := gorm.Open(dialectorFor(cfg), GormConfig(logg, cfg.SlowQuery))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName(cfg), err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	client := &Client{conn: conn}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", driverName(cfg), err)
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"driver":         driverName(cfg),
			"max_open_conns": cfg.MaxOpenConns,
		}), "database connection established")
	}
	return client, nil
}

func driverName(cfg config.DBConfig) string {
	if strings.EqualFold(cfg.Driver, config.DriverSQLite) {
		return config.DriverSQLite
	}
	return "postgres"
}

func dialectorFor(cfg config.DBConfig) gorm.Dialector {
	if driverName(cfg) == config.DriverSQLite {
		return sqlite.Open(cfg.DSN)
	}
	return postgres.New(postgres.Config{
		DSN:                  cfg.DSN,
		PreferSimpleProtocol: true,
	})
}

// GormConfig writes timestamps in UTC and routes query diagnostics to logg.
// A nil logger silences GORM entirely.
func GormConfig(logg *logger.Logger, slowQuery time.Duration) *gorm.Config {
	return &gorm.Config{
		Logger:                 newQueryLogger(logg, slowQuery),
		SkipDefaultTransaction: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Wrap adapts an already opened connection.
func Wrap(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx commits when fn returns nil and rolls back on error or panic; a
// panic is re-raised after the rollback.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
