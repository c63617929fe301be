package lastid

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/connector"
	"github.com/ceyewan/flake/xerrors"
)

// lastIDRow 表 last_ids 的一行，Name 为记录名
type lastIDRow struct {
	Name      string `gorm:"primaryKey;size:128"`
	Value     string `gorm:"size:20;not null"`
	UpdatedAt time.Time
}

func (lastIDRow) TableName() string { return "last_ids" }

// gormStore MySQL 与 SQLite 共用，写入为按主键 upsert
type gormStore struct {
	db   *gorm.DB
	name string
}

func newGorm(conn connector.TypedConnector[*gorm.DB], name string, logger clog.Logger) (Store, error) {
	if conn == nil || conn.GetClient() == nil {
		return nil, xerrors.Wrap(ErrConnectorNil, "gorm")
	}
	db := conn.GetClient()
	if err := db.AutoMigrate(&lastIDRow{}); err != nil {
		return nil, xerrors.Wrap(err, "migrate last_ids")
	}
	logger.Debug("last_ids table ready", clog.String("connector", conn.Name()))
	return &gormStore{db: db, name: name}, nil
}

func (s *gormStore) Write(ctx context.Context, id uint64) error {
	row := lastIDRow{Name: s.name, Value: encode(id)}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}

func (s *gormStore) Read(ctx context.Context) (uint64, error) {
	var row lastIDRow
	err := s.db.WithContext(ctx).Where("name = ?", s.name).Take(&row).Error
	if err != nil {
		if xerrors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return decode(row.Value)
}

func (s *gormStore) Close() error { return nil }
