package mysql

import (
	"errors"
	"fmt"
	"time"

	"Campus_Community/internal/model"
	"Campus_Community/internal/pkg"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB 连接 MySQL 并配置连接池
func InitDB(dsn string) error {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("mysql open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)
	DB = db
	return nil
}

// AutoMigrate 自动建表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Board{},
		&model.Club{},
		&model.PrivilegeType{},
		&model.Forum{},
		&model.ForumMember{},
		&model.Post{},
		&model.PostLike{},
		&model.Opportunity{},
		&model.Subscription{},
		&model.Notification{},
		&model.NotificationOutbox{},
	)
}

func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps gorm errors onto the service sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkg.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", pkg.ErrConflict, err)
	}
	return err
}

func scopeWhere(q *gorm.DB, scope model.Scope) *gorm.DB {
	if scope.ClubID != 0 {
		q = q.Where("club_id = ?", scope.ClubID)
	}
	if scope.BoardID != 0 {
		q = q.Where("board_id = ?", scope.BoardID)
	}
	return q
}
