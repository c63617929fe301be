package connector

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/xerrors"
)

// NewMySQL 连接池参数取自配置
func NewMySQL(cfg *MySQLConfig, opts ...Option) (MySQLConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	dsn := cfg.dsn()
	c, err := newConn(cfg.Name, o, gormDriver("mysql", clog.String("host", cfg.Host), o.tracing,
		func() gorm.Dialector { return mysql.Open(dsn) },
		func(db *gorm.DB) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
			return nil
		}))
	if err != nil {
		return nil, err
	}
	return c, nil
}

// NewSQLite SQLite 只允许一个写者，连接池固定为单连接
func NewSQLite(cfg *SQLiteConfig, opts ...Option) (SQLiteConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)
	path := cfg.Path
	c, err := newConn(cfg.Name, o, gormDriver("sqlite", clog.String("path", path), o.tracing,
		func() gorm.Dialector { return sqlite.Open(path) },
		func(db *gorm.DB) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			sqlDB.SetMaxOpenConns(1)
			return nil
		}))
	if err != nil {
		return nil, err
	}
	return c, nil
}

func gormDriver(kind string, target clog.Field, tracing bool,
	dialector func() gorm.Dialector, tune func(*gorm.DB) error) driver[*gorm.DB] {
	return driver[*gorm.DB]{
		kind:   kind,
		target: target,
		dial: func(context.Context) (*gorm.DB, error) {
			db, err := gorm.Open(dialector(), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
			if err != nil {
				return nil, err
			}
			if tracing {
				err = xerrors.Wrap(db.Use(otelgorm.NewPlugin()), "gorm tracing")
			}
			if err == nil {
				err = tune(db)
			}
			if err != nil {
				_ = closeDB(db)
				return nil, err
			}
			return db, nil
		},
		probe: func(ctx context.Context, db *gorm.DB) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		release: closeDB,
	}
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
