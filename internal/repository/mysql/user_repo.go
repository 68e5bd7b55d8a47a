package mysql

import (
	"context"
	"time"

	"Campus_Community/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return translate(r.DB.WithContext(ctx).Create(user).Error)
}

// FindByLogin 用户名或邮箱登录
func (r *UserRepository) FindByLogin(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).Where("username = ? OR email = ?", username, username).First(&user).Error
	return &user, translate(err)
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	return &user, translate(err)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var usr model.User
	err := r.DB.WithContext(ctx).Where("email = ?", email).First(&usr).Error
	return &usr, translate(err)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	return r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("password", hash).Error
}

// SetBanned 封禁/解封，解封时清空原因与时间
func (r *UserRepository) SetBanned(ctx context.Context, id uint64, banned bool, reason string) error {
	fields := map[string]any{"banned": banned, "ban_reason": reason, "banned_at": nil}
	if banned {
		fields["banned_at"] = time.Now()
	} else {
		fields["ban_reason"] = ""
	}
	tx := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		// 值未变化时 MySQL 也返回 0，需确认用户是否存在
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// ListIDs 按 id 递增分批读取用户 id，用于全员广播
func (r *UserRepository) ListIDs(ctx context.Context, afterID uint64, limit int) ([]uint64, error) {
	var ids []uint64
	err := r.DB.WithContext(ctx).Model(&model.User{}).
		Where("id > ? AND banned = ?", afterID, false).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}
